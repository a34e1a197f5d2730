package netsim

import "math"

// direction indexes a full-duplex Link's two independent transmission
// timelines, per spec.md §4.3.1's next_available_time[d].
const (
	DirAtoB = 0
	DirBtoA = 1
)

// Link is a full-duplex point-to-point connection between two ports. Each
// direction has its own serialization timeline so traffic in one direction
// never contends with the other, matching spec.md's next_available_time[d]
// discipline.
type Link struct {
	Name              string
	BandwidthBPS      float64
	PropagationDelayS float64
	Failed            bool
	Dropped           int

	nextAvailable [2]float64
}

// EarliestStart returns the earliest time direction dir could begin
// transmitting a new packet, given currentTime and the link's own backlog.
func (l *Link) EarliestStart(dir int, currentTime float64) float64 {
	return math.Max(currentTime, l.nextAvailable[dir])
}

// Transmit commits a B-byte transmission in direction dir starting at
// currentTime (the caller must already have confirmed EarliestStart(dir,
// currentTime) <= currentTime, i.e. the port only calls this once the link
// is actually free). It returns the simulated arrival time at the far
// endpoint. A failed link drops the packet: it bumps Dropped and reports
// ok=false without advancing next_available_time, since no transmission
// occurred.
func (l *Link) Transmit(dir int, currentTime float64, sizeBytes int) (arrival float64, ok bool) {
	if l.Failed {
		l.Dropped++
		return 0, false
	}
	start := l.EarliestStart(dir, currentTime)
	serialization := float64(sizeBytes*8) / l.BandwidthBPS
	l.nextAvailable[dir] = start + serialization
	return start + serialization + l.PropagationDelayS, true
}
