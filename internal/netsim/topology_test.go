package netsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aifabric/netsim/internal/des"
)

func smallDesc() AIFactorySUDesc {
	return AIFactorySUDesc{
		Leaves: 2, Spines: 2, ServersPerLeaf: 2,
		ServerParallelLinks: 1, LeafToSpineParallelLinks: 1,
		BandwidthServerToLeafBPS: 1e9, BandwidthLeafToSpineBPS: 4e9,
		PropagationDelayS: 1e-6, MTU: 4096, TTL: 64,
		Mode: RoutingECMP, Seed: 7,
	}
}

func TestBuildProducesExpectedDeviceCounts(t *testing.T) {
	f := &AIFactorySUFrame{Desc: smallDesc()}
	topo, err := f.Build()
	require.NoError(t, err)
	assert.Len(t, topo.Hosts, 4)
	assert.Len(t, topo.Switches, 4) // 2 leaves + 2 spines
	assert.Len(t, topo.Links, 2*2+2*2)
}

func TestBuildIsIdempotent(t *testing.T) {
	d := smallDesc()
	f1 := &AIFactorySUFrame{Desc: d}
	f2 := &AIFactorySUFrame{Desc: d}
	t1, err1 := f1.Build()
	require.NoError(t, err1)
	t2, err2 := f2.Build()
	require.NoError(t, err2)

	require.Equal(t, len(t1.Hosts), len(t2.Hosts))
	for i := range t1.Hosts {
		assert.Equal(t, t1.Hosts[i].IP, t2.Hosts[i].IP)
	}
	for i := range t1.Switches {
		dst := t1.Hosts[0].IP
		assert.Equal(t, t1.Switches[i].Routes.Lookup(dst), t2.Switches[i].Routes.Lookup(dst))
	}
}

func TestFailurePercentZeroFailsNoLinks(t *testing.T) {
	d := smallDesc()
	d.FailurePercent = 0
	f := &AIFactorySUFrame{Desc: d}
	topo, err := f.Build()
	require.NoError(t, err)
	for _, l := range topo.Links {
		assert.False(t, l.Failed)
	}
}

func TestFailurePercentHundredRejected(t *testing.T) {
	d := smallDesc()
	d.FailurePercent = 100
	f := &AIFactorySUFrame{Desc: d}
	_, err := f.Build()
	assert.Error(t, err)
}

func TestEndToEndDeliveryAcrossSpines(t *testing.T) {
	f := &AIFactorySUFrame{Desc: smallDesc()}
	topo, err := f.Build()
	require.NoError(t, err)

	s := des.New()
	src := topo.Hosts[0]
	dst := topo.Hosts[len(topo.Hosts)-1]
	var delivered []*Packet
	dst.Subscribe(func(p *Packet) { delivered = append(delivered, p) })

	require.NoError(t, src.SendMessage(s, 1, dst.IP, 1000))
	require.NoError(t, s.Run())

	require.Len(t, delivered, 1)
	assert.Equal(t, src.IP, delivered[0].SrcIP)
}

func TestLeafDoesNotRouteToFailedSpineUplink(t *testing.T) {
	d := smallDesc()
	f := &AIFactorySUFrame{Desc: d}
	topo, err := f.Build()
	require.NoError(t, err)

	leaf := topo.Switches[0]
	// fail one of the leaf's two spine uplinks directly and confirm the
	// live-candidate view drops it without needing a rebuild.
	for _, port := range leaf.Ports {
		if port.Link.BandwidthBPS == d.BandwidthLeafToSpineBPS {
			port.Link.Failed = true
			break
		}
	}
	farLeafHost := topo.Hosts[len(topo.Hosts)-1].IP
	for _, idx := range leaf.liveCandidates(farLeafHost) {
		assert.False(t, leaf.Ports[idx].Link.Failed)
	}
}
