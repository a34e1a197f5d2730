package netsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/netaddr"
)

func twoCandidateSwitch(mode RoutingMode) *Switch {
	sw := NewSwitch(0, "sw0", mode)
	dst := netaddr.MustParseIP("10.0.1.1")
	link0 := &Link{BandwidthBPS: 1e9}
	link1 := &Link{BandwidthBPS: 1e9}
	p0 := &Port{Index: 0, Link: link0, Dir: DirAtoB}
	p1 := &Port{Index: 1, Link: link1, Dir: DirAtoB}
	sw.Ports = []*Port{p0, p1}
	sw.Routes.Insert(netaddr.Prefix{Network: dst, Length: 32}, 0)
	sw.Routes.Insert(netaddr.Prefix{Network: dst, Length: 32}, 1)
	return sw
}

func TestECMPDeterministicAcrossCalls(t *testing.T) {
	sw := twoCandidateSwitch(RoutingECMP)
	s := des.New()
	dst := netaddr.MustParseIP("10.0.1.1")
	mkPkt := func() *Packet {
		return &Packet{SrcIP: netaddr.MustParseIP("10.0.0.1"), DstIP: dst, SrcPort: 5000, DstPort: 80, Protocol: 6, TTL: 10}
	}

	idx1, ok1 := sw.SelectPortForPacket(s, mkPkt())
	idx2, ok2 := sw.SelectPortForPacket(s, mkPkt())
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, idx1, idx2)
}

func TestECMPDiffersWithDifferentSourcePort(t *testing.T) {
	sw := twoCandidateSwitch(RoutingECMP)
	s := des.New()
	dst := netaddr.MustParseIP("10.0.1.1")

	seenAny := false
	idxBase, _ := sw.SelectPortForPacket(s, &Packet{SrcIP: netaddr.MustParseIP("10.0.0.1"), DstIP: dst, SrcPort: 1, DstPort: 80, Protocol: 6, TTL: 10})
	for sp := uint16(2); sp < 50; sp++ {
		idx, _ := sw.SelectPortForPacket(s, &Packet{SrcIP: netaddr.MustParseIP("10.0.0.1"), DstIP: dst, SrcPort: sp, DstPort: 80, Protocol: 6, TTL: 10})
		if idx != idxBase {
			seenAny = true
			break
		}
	}
	assert.True(t, seenAny, "expected hash to diverge across at least one of 48 distinct source ports")
}

func TestAdaptivePicksShortestQueue(t *testing.T) {
	sw := twoCandidateSwitch(RoutingAdaptive)
	sw.Ports[0].queue = []*Packet{{}, {}, {}}
	s := des.New()
	dst := netaddr.MustParseIP("10.0.1.1")
	idx, ok := sw.SelectPortForPacket(s, &Packet{SrcIP: netaddr.MustParseIP("10.0.0.1"), DstIP: dst, SrcPort: 1, DstPort: 2, Protocol: 6, TTL: 10})
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestFlowletReroutesOnPacketCountThreshold(t *testing.T) {
	sw := twoCandidateSwitch(RoutingFlowlet)
	sw.FlowletThresholdPackets = 3
	s := des.New()
	dst := netaddr.MustParseIP("10.0.1.1")

	var choices []int
	for i := 0; i < 10; i++ {
		idx, ok := sw.SelectPortForPacket(s, &Packet{FlowID: 42, SrcIP: netaddr.MustParseIP("10.0.0.1"), DstIP: dst, SrcPort: 1, DstPort: 2, Protocol: 6, TTL: 10})
		require.True(t, ok)
		choices = append(choices, idx)
	}
	// the flowlet state must have rerouted (perturbed hash) at least once
	// by the 4th packet (threshold=3 means reroute fires on the 4th call).
	fl := sw.flowlets[42]
	require.NotNil(t, fl)
	assert.GreaterOrEqual(t, fl.flowletField, uint32(1))
}

func TestFlowletReroutesOnIdleGap(t *testing.T) {
	sw := twoCandidateSwitch(RoutingFlowlet)
	sw.FlowletIdleGapS = 50e-6
	s := des.New()
	dst := netaddr.MustParseIP("10.0.1.1")
	pkt := func() *Packet {
		return &Packet{FlowID: 1, SrcIP: netaddr.MustParseIP("10.0.0.1"), DstIP: dst, SrcPort: 1, DstPort: 2, Protocol: 6, TTL: 10}
	}

	_, ok := sw.SelectPortForPacket(s, pkt())
	require.True(t, ok)
	require.NoError(t, s.Schedule(100e-6, func(s *des.Scheduler) error {
		_, ok := sw.SelectPortForPacket(s, pkt())
		require.True(t, ok)
		return nil
	}))
	require.NoError(t, s.Run())

	fl := sw.flowlets[1]
	require.NotNil(t, fl)
	assert.Equal(t, uint32(1), fl.flowletField)
}

func TestFlowletNoRerouteWithoutGapOrThreshold(t *testing.T) {
	sw := twoCandidateSwitch(RoutingFlowlet)
	s := des.New()
	dst := netaddr.MustParseIP("10.0.1.1")
	for i := 0; i < 1000; i++ {
		_, ok := sw.SelectPortForPacket(s, &Packet{FlowID: 9, SrcIP: netaddr.MustParseIP("10.0.0.1"), DstIP: dst, SrcPort: 1, DstPort: 2, Protocol: 6, TTL: 64})
		require.True(t, ok)
	}
	assert.Equal(t, uint32(1), sw.flowlets[9].flowletField)
}
