package netaddr

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// FiveTuple identifies a flow for hash-based multipath routing (spec.md
// §4.2, §4.3.3). FlowletField is not part of the classic TCP/IP five-tuple:
// it is an extra perturbation value that flowlet routing increments on
// reroute, so that the same five-tuple hashes to a different candidate
// after a flowlet-idle reroute without otherwise changing packet identity.
type FiveTuple struct {
	SrcIP        IP
	DstIP        IP
	SrcPort      uint16
	DstPort      uint16
	Protocol     uint8
	FlowletField uint32
}

// Hash returns a deterministic, byte-order-independent digest of the tuple
// for use as an ECMP/ adaptive-routing candidate-selection key. It hashes a
// fixed-width packed encoding of the fields rather than a textual
// rendering, per spec.md's requirement that candidate selection not depend
// on string formatting (and so is stable across platforms and immune to
// padding/locale differences in %v-style formatting).
func (t FiveTuple) Hash() uint64 {
	var buf [17]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(t.SrcIP))
	binary.BigEndian.PutUint32(buf[4:8], uint32(t.DstIP))
	binary.BigEndian.PutUint16(buf[8:10], t.SrcPort)
	binary.BigEndian.PutUint16(buf[10:12], t.DstPort)
	buf[12] = t.Protocol
	binary.BigEndian.PutUint32(buf[13:17], t.FlowletField)
	return xxhash.Sum64(buf[:])
}

// SelectCandidate picks one of candidates deterministically from hash h.
// candidates must already be in a stable order (LPMTable.Lookup guarantees
// ascending port-index order) so that the same (tuple, candidate set) pair
// always yields the same port, regardless of map iteration order anywhere
// upstream.
func SelectCandidate(candidates []int, h uint64) int {
	if len(candidates) == 0 {
		return -1
	}
	return candidates[h%uint64(len(candidates))]
}
