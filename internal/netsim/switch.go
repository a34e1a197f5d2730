package netsim

import (
	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/netaddr"
)

// Switch implements spec.md §4.3.3: LPM-based candidate discovery,
// routing-mode dispatch, TTL handling, and a per-destination route cache
// invalidated by the LPM table's version counter (§9 "Routing cache
// invalidation").
type Switch struct {
	ID   int
	Name string

	Ports                   []*Port
	Routes                  *netaddr.LPMTable
	Mode                    RoutingMode
	FlowletThresholdPackets int
	FlowletIdleGapS         float64

	Dropped int
	OnDrop  func(pkt *Packet) // optional hook for proactive stall reporting (§14.2)

	flowlets          map[int]*flowletState
	routeCache        map[netaddr.IP][]int
	routeCacheVersion int
}

// NewSwitch constructs a Switch ready to have ports attached by the
// topology builder.
func NewSwitch(id int, name string, mode RoutingMode) *Switch {
	return &Switch{
		ID: id, Name: name, Mode: mode,
		Routes:     netaddr.NewLPMTable(),
		flowlets:   make(map[int]*flowletState),
		routeCache: make(map[netaddr.IP][]int),
	}
}

// liveCandidates returns the sorted port-index set for dst, intersected
// with "link not failed", per spec.md §4.3.3 step 1. The result is cached
// per destination and invalidated whenever Routes.Version() changes.
func (sw *Switch) liveCandidates(dst netaddr.IP) []int {
	if sw.routeCacheVersion != sw.Routes.Version() {
		sw.routeCache = make(map[netaddr.IP][]int)
		sw.routeCacheVersion = sw.Routes.Version()
	}
	if cached, ok := sw.routeCache[dst]; ok {
		return cached
	}
	all := sw.Routes.Lookup(dst)
	live := make([]int, 0, len(all))
	for _, idx := range all {
		if !sw.Ports[idx].Link.Failed {
			live = append(live, idx)
		}
	}
	sw.routeCache[dst] = live
	return live
}

func selectCandidate(candidates []int, tuple netaddr.FiveTuple) int {
	return netaddr.SelectCandidate(candidates, tuple.Hash())
}

// SelectPortForPacket implements spec.md §4.3.3 end to end: candidate
// discovery, empty-set drop, mode dispatch, then TTL decrement/drop.
func (sw *Switch) SelectPortForPacket(s *des.Scheduler, pkt *Packet) (int, bool) {
	candidates := sw.liveCandidates(pkt.DstIP)
	if len(candidates) == 0 {
		sw.drop(pkt)
		return -1, false
	}

	var idx int
	switch sw.Mode {
	case RoutingFlowlet:
		idx = sw.selectFlowlet(s, pkt, candidates)
	case RoutingAdaptive:
		idx = sw.selectAdaptive(pkt, candidates)
	default:
		idx = selectCandidate(candidates, pkt.FiveTuple())
	}

	pkt.TTL--
	if pkt.TTL <= 0 {
		sw.drop(pkt)
		return -1, false
	}
	return idx, true
}

func (sw *Switch) drop(pkt *Packet) {
	sw.Dropped++
	if sw.OnDrop != nil {
		sw.OnDrop(pkt)
	}
}

// OnPacket is wired as every ingress Port.Deliver on this switch: it routes
// the packet onward or silently drops it (the drop is already counted by
// SelectPortForPacket).
func (sw *Switch) OnPacket(s *des.Scheduler, pkt *Packet) error {
	idx, ok := sw.SelectPortForPacket(s, pkt)
	if !ok {
		return nil
	}
	return sw.Ports[idx].Enqueue(s, pkt)
}
