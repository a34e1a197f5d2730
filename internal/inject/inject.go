// Package inject adapts workload.Flow (a logical bulk transfer) onto
// internal/netsim's packet-level fabric: it fragments via Host.SendMessage
// and detects completion by accounting delivered bytes against the flow's
// declared size. It is the concrete implementation of workload.Injector,
// kept in its own package so internal/workload never imports internal/netsim
// (spec.md §9's layering: the Runner depends only on the Injector
// interface).
package inject

import (
	"fmt"

	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/netsim"
	"github.com/aifabric/netsim/internal/simerrors"
	"github.com/aifabric/netsim/internal/workload"
)

// pendingFlow tracks byte-accounted completion for one in-flight flow,
// grounded on spec.md §4.3.4's "a flow completes when every fragment it
// was split into has been delivered" rule restated for the injector layer.
type pendingFlow struct {
	expected   int
	received   int
	onComplete func(flowID int)
}

// FlowInjector implements workload.Injector over a fixed set of hosts
// addressed by node id. OnDrop, if set, is called once per packet the
// fabric drops that belonged to a still-pending flow — wired to
// workload.Runner.NotifyDrop for SPEC_FULL.md §14's proactive at-risk
// tagging.
type FlowInjector struct {
	hostByNode map[int]*netsim.Host
	pending    map[int]*pendingFlow
	OnDrop     func(flowID int)
}

// NewFlowInjector subscribes to every host's delivery feed so it can
// account bytes as packets arrive, and to every switch's drop hook so a
// modeled drop can be attributed back to its owning flow.
func NewFlowInjector(hosts []*netsim.Host, switches []*netsim.Switch) *FlowInjector {
	fi := &FlowInjector{
		hostByNode: make(map[int]*netsim.Host, len(hosts)),
		pending:    make(map[int]*pendingFlow),
	}
	for _, h := range hosts {
		fi.hostByNode[h.ID] = h
		h.Subscribe(fi.onDeliver)
	}
	for _, sw := range switches {
		sw.OnDrop = fi.onDrop
	}
	return fi
}

var _ workload.Injector = (*FlowInjector)(nil)

// Inject fragments flow at its source host and tracks completion against
// its destination byte count. A zero-byte flow completes immediately
// without emitting any packet, per spec.md §8's "zero-byte flow" boundary
// case.
func (fi *FlowInjector) Inject(s *des.Scheduler, flow workload.Flow, onComplete func(flowID int)) error {
	if flow.SizeBytes <= 0 {
		onComplete(flow.FlowID)
		return nil
	}

	host, ok := fi.hostByNode[flow.SrcNodeID]
	if !ok {
		return fmt.Errorf("inject: no host for node id %d", flow.SrcNodeID)
	}
	if _, dup := fi.pending[flow.FlowID]; dup {
		return fmt.Errorf("inject: flow id %d already in flight", flow.FlowID)
	}
	fi.pending[flow.FlowID] = &pendingFlow{expected: flow.SizeBytes, onComplete: onComplete}

	return host.SendMessage(s, flow.FlowID, flow.DstIP, flow.SizeBytes)
}

// onDeliver is a Host subscriber (func(pkt *Packet), no error return), so an
// overrun here can't propagate through Run() the way a des.Action error
// would; it panics instead, matching des.Scheduler.MustSchedule's existing
// idiom for invariant violations reached off the error-returning path.
func (fi *FlowInjector) onDeliver(pkt *netsim.Packet) {
	pf, ok := fi.pending[pkt.FlowID]
	if !ok {
		return
	}
	pf.received += pkt.SizeBytes
	if pf.received > 2*pf.expected {
		panic(simerrors.NewInvariantError("flow-byte-overrun",
			fmt.Sprintf("flow %d received %d bytes, more than 2x its expected %d", pkt.FlowID, pf.received, pf.expected)))
	}
	if pf.received < pf.expected {
		return
	}
	delete(fi.pending, pkt.FlowID)
	pf.onComplete(pkt.FlowID)
}

func (fi *FlowInjector) onDrop(pkt *netsim.Packet) {
	if _, ok := fi.pending[pkt.FlowID]; !ok {
		return
	}
	if fi.OnDrop != nil {
		fi.OnDrop(pkt.FlowID)
	}
}
