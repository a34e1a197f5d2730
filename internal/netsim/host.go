package netsim

import (
	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/netaddr"
)

// Host implements spec.md §4.3.4: a single-interface endpoint that
// fragments outbound messages to MTU and publishes every delivered packet
// to its subscribers (the flow injector, and optionally tracing/metrics).
// Matching the teacher's own advice (§9 "Flow-completion observer"), this
// is a first-class publish/subscribe point, not a wrapped method.
type Host struct {
	ID         int
	Name       string
	IP         netaddr.IP
	MTU        int
	DefaultTTL int

	OutPort     *Port
	subscribers []func(pkt *Packet)
}

// Subscribe registers f to be called with every packet this host receives
// as a destination. Multiple subscribers may be registered.
func (h *Host) Subscribe(f func(pkt *Packet)) {
	h.subscribers = append(h.subscribers, f)
}

// SendMessage fragments a sizeBytes-long message into MTU-sized packets and
// hands each to the outbound port. The host never blocks: every fragment
// is enqueued at call time, per spec.md's "all packets of the message are
// queued at time of call."
func (h *Host) SendMessage(s *des.Scheduler, flowID int, dstIP netaddr.IP, sizeBytes int) error {
	if sizeBytes <= 0 {
		return nil
	}
	n := (sizeBytes + h.MTU - 1) / h.MTU
	for i := 0; i < n; i++ {
		sz := h.MTU
		if i == n-1 {
			if rem := sizeBytes - h.MTU*(n-1); rem > 0 {
				sz = rem
			}
		}
		pkt := &Packet{
			FlowID: flowID, FlowCount: n, FlowSeq: i,
			SrcIP: h.IP, DstIP: dstIP, SizeBytes: sz, TTL: h.DefaultTTL,
		}
		if err := h.OutPort.Enqueue(s, pkt); err != nil {
			return err
		}
	}
	return nil
}

// Deliver is wired as the Port.Deliver callback on whichever port faces
// this host. It is spec.md's on_message: packets not addressed to this
// host are ignored (can occur transiently during topology wiring tests),
// matching ones fan out to every subscriber.
func (h *Host) Deliver(s *des.Scheduler, pkt *Packet) error {
	if pkt.DstIP != h.IP {
		return nil
	}
	for _, sub := range h.subscribers {
		sub(pkt)
	}
	return nil
}
