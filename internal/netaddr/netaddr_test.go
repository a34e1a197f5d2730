package netaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPRoundTrip(t *testing.T) {
	ip, err := ParseIP("10.0.1.2")
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.2", ip.String())
}

func TestParseIPRejectsMalformed(t *testing.T) {
	for _, s := range []string{"10.0.1", "10.0.1.256", "a.b.c.d", "10.0.1.2.3"} {
		_, err := ParseIP(s)
		assert.Error(t, err, s)
	}
}

func TestPrefixContains(t *testing.T) {
	p := Prefix{Network: MustParseIP("10.0.0.0"), Length: 16}
	assert.True(t, p.Contains(MustParseIP("10.0.5.9")))
	assert.False(t, p.Contains(MustParseIP("10.1.0.0")))
}

func TestLPMPrefersLongestMatch(t *testing.T) {
	tbl := NewLPMTable()
	tbl.Insert(Prefix{Network: MustParseIP("10.0.0.0"), Length: 8}, 1)
	tbl.Insert(Prefix{Network: MustParseIP("10.0.1.0"), Length: 24}, 2)

	got := tbl.Lookup(MustParseIP("10.0.1.5"))
	assert.Equal(t, []int{2}, got)

	got = tbl.Lookup(MustParseIP("10.5.5.5"))
	assert.Equal(t, []int{1}, got)
}

func TestLPMNoMatchReturnsNil(t *testing.T) {
	tbl := NewLPMTable()
	tbl.Insert(Prefix{Network: MustParseIP("10.0.0.0"), Length: 8}, 1)
	assert.Nil(t, tbl.Lookup(MustParseIP("192.168.1.1")))
}

func TestLPMMultiplePortsSortedForECMP(t *testing.T) {
	tbl := NewLPMTable()
	p := Prefix{Network: MustParseIP("10.0.0.0"), Length: 16}
	tbl.Insert(p, 3)
	tbl.Insert(p, 1)
	tbl.Insert(p, 2)

	got := tbl.Lookup(MustParseIP("10.0.0.1"))
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestLPMInsertIsIdempotent(t *testing.T) {
	tbl := NewLPMTable()
	p := Prefix{Network: MustParseIP("10.0.0.0"), Length: 16}
	tbl.Insert(p, 1)
	tbl.Insert(p, 1)
	assert.Equal(t, []int{1}, tbl.Lookup(MustParseIP("10.0.0.1")))
}

func TestLPMRemove(t *testing.T) {
	tbl := NewLPMTable()
	p := Prefix{Network: MustParseIP("10.0.0.0"), Length: 16}
	tbl.Insert(p, 1)
	tbl.Insert(p, 2)
	tbl.Remove(p, 1)
	assert.Equal(t, []int{2}, tbl.Lookup(MustParseIP("10.0.0.1")))
}

func TestLPMVersionIncrementsOnChange(t *testing.T) {
	tbl := NewLPMTable()
	v0 := tbl.Version()
	p := Prefix{Network: MustParseIP("10.0.0.0"), Length: 16}
	tbl.Insert(p, 1)
	assert.Greater(t, tbl.Version(), v0)
	v1 := tbl.Version()
	tbl.Remove(p, 1)
	assert.Greater(t, tbl.Version(), v1)
}

func TestFiveTupleHashDeterministic(t *testing.T) {
	ft := FiveTuple{
		SrcIP: MustParseIP("10.0.0.1"), DstIP: MustParseIP("10.0.0.2"),
		SrcPort: 5000, DstPort: 443, Protocol: 6,
	}
	assert.Equal(t, ft.Hash(), ft.Hash())

	other := ft
	other.DstPort = 8080
	assert.NotEqual(t, ft.Hash(), other.Hash())
}

func TestFiveTupleHashChangesWithFlowletField(t *testing.T) {
	ft := FiveTuple{SrcIP: MustParseIP("10.0.0.1"), DstIP: MustParseIP("10.0.0.2"), SrcPort: 1, DstPort: 2, Protocol: 6}
	rerouted := ft
	rerouted.FlowletField = 1
	assert.NotEqual(t, ft.Hash(), rerouted.Hash())
}

func TestSelectCandidateDeterministic(t *testing.T) {
	candidates := []int{2, 5, 9}
	h := uint64(12345)
	assert.Equal(t, SelectCandidate(candidates, h), SelectCandidate(candidates, h))
}

func TestSelectCandidateEmpty(t *testing.T) {
	assert.Equal(t, -1, SelectCandidate(nil, 7))
}
