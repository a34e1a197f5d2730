package inject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/netaddr"
	"github.com/aifabric/netsim/internal/netsim"
	"github.com/aifabric/netsim/internal/workload"
)

// buildPair wires two hosts through one switch, the same shape as
// netsim's own ping-scenario fixture, to exercise the injector without
// depending on netsim's unexported test helper.
func buildPair(mtu int) (*netsim.Host, *netsim.Host, *netsim.Switch) {
	hostA := &netsim.Host{ID: 0, Name: "A", IP: netaddr.MustParseIP("10.0.0.1"), MTU: mtu, DefaultTTL: 64}
	hostB := &netsim.Host{ID: 1, Name: "B", IP: netaddr.MustParseIP("10.0.0.2"), MTU: mtu, DefaultTTL: 64}
	sw := netsim.NewSwitch(0, "sw0", netsim.RoutingECMP)

	linkA := &netsim.Link{Name: "A-sw", BandwidthBPS: 1e9, PropagationDelayS: 1e-6}
	linkB := &netsim.Link{Name: "sw-B", BandwidthBPS: 1e9, PropagationDelayS: 1e-6}

	portSwToA := &netsim.Port{Index: 0, Link: linkA, Dir: netsim.DirBtoA, Deliver: hostA.Deliver}
	portAToSw := &netsim.Port{Index: 0, Link: linkA, Dir: netsim.DirAtoB, Deliver: sw.OnPacket}
	hostA.OutPort = portAToSw

	portSwToB := &netsim.Port{Index: 1, Link: linkB, Dir: netsim.DirAtoB, Deliver: hostB.Deliver}
	portBToSw := &netsim.Port{Index: 0, Link: linkB, Dir: netsim.DirBtoA, Deliver: sw.OnPacket}
	hostB.OutPort = portBToSw

	sw.Ports = []*netsim.Port{portSwToA, portSwToB}
	sw.Routes.Insert(netaddr.Prefix{Network: hostB.IP, Length: 32}, 1)
	sw.Routes.Insert(netaddr.Prefix{Network: hostA.IP, Length: 32}, 0)

	return hostA, hostB, sw
}

func TestFlowInjectorCompletesAfterAllFragmentsDelivered(t *testing.T) {
	hostA, hostB, sw := buildPair(4096)
	fi := NewFlowInjector([]*netsim.Host{hostA, hostB}, []*netsim.Switch{sw})
	s := des.New()

	var completedID int
	require.NoError(t, fi.Inject(s, workload.Flow{
		FlowID: 7, SrcNodeID: hostA.ID, DstIP: hostB.IP, SizeBytes: 4096 * 3,
	}, func(flowID int) { completedID = flowID }))
	require.NoError(t, s.Run())

	assert.Equal(t, 7, completedID)
	assert.Empty(t, fi.pending)
}

func TestFlowInjectorZeroByteFlowCompletesImmediately(t *testing.T) {
	hostA, hostB, sw := buildPair(4096)
	fi := NewFlowInjector([]*netsim.Host{hostA, hostB}, []*netsim.Switch{sw})
	s := des.New()

	completed := false
	require.NoError(t, fi.Inject(s, workload.Flow{
		FlowID: 1, SrcNodeID: hostA.ID, DstIP: hostB.IP, SizeBytes: 0,
	}, func(flowID int) { completed = true }))

	assert.True(t, completed)
	assert.Equal(t, 0, s.Pending())
}

func TestFlowInjectorDuplicateFlowIDRejected(t *testing.T) {
	hostA, hostB, sw := buildPair(4096)
	fi := NewFlowInjector([]*netsim.Host{hostA, hostB}, []*netsim.Switch{sw})
	s := des.New()

	require.NoError(t, fi.Inject(s, workload.Flow{
		FlowID: 3, SrcNodeID: hostA.ID, DstIP: hostB.IP, SizeBytes: 1000,
	}, func(flowID int) {}))
	err := fi.Inject(s, workload.Flow{
		FlowID: 3, SrcNodeID: hostA.ID, DstIP: hostB.IP, SizeBytes: 1000,
	}, func(flowID int) {})
	assert.Error(t, err)
}

func TestFlowInjectorUnknownSourceNodeRejected(t *testing.T) {
	hostA, hostB, sw := buildPair(4096)
	fi := NewFlowInjector([]*netsim.Host{hostA, hostB}, []*netsim.Switch{sw})
	s := des.New()

	err := fi.Inject(s, workload.Flow{
		FlowID: 1, SrcNodeID: 999, DstIP: hostB.IP, SizeBytes: 100,
	}, func(flowID int) {})
	assert.Error(t, err)
}

func TestFlowInjectorReportsDropOnlyForPendingFlow(t *testing.T) {
	hostA, hostB, sw := buildPair(4096)
	fi := NewFlowInjector([]*netsim.Host{hostA, hostB}, []*netsim.Switch{sw})

	var dropped []int
	fi.OnDrop = func(flowID int) { dropped = append(dropped, flowID) }

	fi.pending[42] = &pendingFlow{expected: 10, onComplete: func(int) {}}
	fi.onDrop(&netsim.Packet{FlowID: 42})
	fi.onDrop(&netsim.Packet{FlowID: 999}) // not pending, ignored

	assert.Equal(t, []int{42}, dropped)
}

func TestFlowInjectorPanicsOnByteOverrun(t *testing.T) {
	hostA, hostB, sw := buildPair(4096)
	fi := NewFlowInjector([]*netsim.Host{hostA, hostB}, []*netsim.Switch{sw})

	fi.pending[1] = &pendingFlow{expected: 10, onComplete: func(int) {}}
	assert.Panics(t, func() {
		fi.onDeliver(&netsim.Packet{FlowID: 1, SizeBytes: 21})
	})
}
