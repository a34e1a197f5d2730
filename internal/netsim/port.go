package netsim

import "github.com/aifabric/netsim/internal/des"

// Port is a per-direction FIFO queue feeding one end of a Link. Deliver is
// invoked (scheduled at the computed arrival time) on the far endpoint once
// a packet's transmission completes; hosts and switches wire their own
// packet-handling into it at topology build time.
type Port struct {
	Index          int
	Link           *Link
	Dir            int
	Deliver        func(s *des.Scheduler, pkt *Packet) error
	PeakDepth      int
	queue          []*Packet
	drainScheduled bool
}

// QueueDepth reports the current backlog, used by adaptive routing to rank
// candidate egress ports by load (spec.md §4.3.3).
func (p *Port) QueueDepth() int {
	return len(p.queue)
}

// Enqueue appends pkt to the port's queue and, if a drain isn't already
// scheduled, schedules one for the current time. Matches spec.md §4.3.2's
// enqueue contract exactly. PeakDepth tracks the port's all-time high
// backlog, per spec.md §3's "per-port peak/occupancy counters."
func (p *Port) Enqueue(s *des.Scheduler, pkt *Packet) error {
	p.queue = append(p.queue, pkt)
	if len(p.queue) > p.PeakDepth {
		p.PeakDepth = len(p.queue)
	}
	if !p.drainScheduled {
		p.drainScheduled = true
		return s.Schedule(0, p.drain)
	}
	return nil
}

// drain implements spec.md §4.3.2's three-step algorithm: peek, wait for
// the link to free up without popping, then pop-and-transmit and loop.
func (p *Port) drain(s *des.Scheduler) error {
	for {
		if len(p.queue) == 0 {
			p.drainScheduled = false
			return nil
		}
		head := p.queue[0]
		now := s.CurrentTime()
		start := p.Link.EarliestStart(p.Dir, now)
		if start > now {
			return s.Schedule(start-now, p.drain)
		}
		p.queue = p.queue[1:]
		arrival, ok := p.Link.Transmit(p.Dir, now, head.SizeBytes)
		if !ok {
			// failed link: packet is dropped, already counted by the
			// link itself. Continue draining the rest of the queue.
			continue
		}
		delay := arrival - now
		pkt := head
		if err := s.Schedule(delay, func(s *des.Scheduler) error {
			return p.Deliver(s, pkt)
		}); err != nil {
			return err
		}
	}
}
