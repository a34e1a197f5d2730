package netaddr

import "golang.org/x/exp/slices"

// LPMTable maps prefixes to the set of next-hop port indices that may be
// used to reach them, and returns the port-index set for the longest
// matching prefix on lookup (spec.md §4.2). It uses a length-indexed sweep
// from /32 down to /0, which is one of the three strategies spec.md
// explicitly sanctions (binary trie, radix tree, or length-indexed sweep)
// and is the simplest to keep deterministic.
type LPMTable struct {
	byLength [33]map[uint32][]int
	version  int
}

// NewLPMTable constructs an empty table.
func NewLPMTable() *LPMTable {
	t := &LPMTable{}
	for i := range t.byLength {
		t.byLength[i] = make(map[uint32][]int)
	}
	return t
}

// Insert adds portIdx as a next hop for the given prefix. Port-index sets
// are kept in ascending sorted order so that every consumer (ECMP hashing,
// adaptive routing) sees a stable candidate ordering, per spec.md's
// determinism requirement ("no reliance on map-iteration order").
func (t *LPMTable) Insert(p Prefix, portIdx int) {
	key := uint32(p.Network) & p.mask()
	ports := t.byLength[p.Length][key]
	if !slices.Contains(ports, portIdx) {
		ports = append(ports, portIdx)
		slices.Sort(ports)
		t.byLength[p.Length][key] = ports
	}
	t.version++
}

// Remove deletes portIdx as a next hop for the given prefix (used when a
// link is marked failed and its port must stop being offered as a route).
func (t *LPMTable) Remove(p Prefix, portIdx int) {
	key := uint32(p.Network) & p.mask()
	ports := t.byLength[p.Length][key]
	idx := slices.Index(ports, portIdx)
	if idx < 0 {
		return
	}
	t.byLength[p.Length][key] = append(ports[:idx], ports[idx+1:]...)
	t.version++
}

// Version returns a counter that increments on every structural change,
// used by callers (internal/netsim) to invalidate a per-(node, dst) lookup
// cache without recomputing it unless the topology actually changed.
func (t *LPMTable) Version() int {
	return t.version
}

// Lookup returns the port-index set registered for the longest prefix that
// contains dst, or nil if no prefix matches. The returned slice is shared
// with the table's internal storage and must be treated as read-only by
// callers (they should intersect into a fresh slice rather than mutate it).
func (t *LPMTable) Lookup(dst IP) []int {
	for length := 32; length >= 0; length-- {
		mask := Prefix{Length: length}.mask()
		key := uint32(dst) & mask
		if ports, ok := t.byLength[length][key]; ok && len(ports) > 0 {
			return ports
		}
	}
	return nil
}
