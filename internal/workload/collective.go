package workload

import (
	"fmt"

	"github.com/iti/rngstream"

	"github.com/aifabric/netsim/internal/netaddr"
)

// CollectiveKind names the collective operation being expanded, per
// spec.md §4.4's traffic patterns. Only ring-algorithm expansion is
// implemented, mirroring original_source's collective.py (its
// CollectiveAlgorithm.TREE branch raises NotImplementedError and is not
// carried over).
type CollectiveKind int

const (
	CollectiveReduceScatter CollectiveKind = iota
	CollectiveAllGather
	CollectiveAllReduce
)

func (k CollectiveKind) tag() string {
	switch k {
	case CollectiveReduceScatter:
		return "reduce_scatter"
	case CollectiveAllGather:
		return "all_gather"
	case CollectiveAllReduce:
		return "all_reduce"
	default:
		return "collective"
	}
}

// CollectiveSpec describes one ring-collective expansion request. IPOf
// resolves a participant node id to the address the flow injector should
// address traffic to, keeping this package free of any topology import.
type CollectiveSpec struct {
	Kind                CollectiveKind
	Participants        []int
	BytesPerParticipant int
	StartTimeS          float64
	GapS                float64
	JobID, StepID       int
	PhaseID             int
	BucketID            int
	Seed                uint64
	IPOf                func(nodeID int) netaddr.IP
	NextFlowID          func() int
}

// ExpandRingCollective expands a collective into P-1 ring steps of
// neighbor-to-neighbor sends and returns them as one flat flow list. The
// caller is responsible for grouping the result into a workload.Bucket
// (along with any other collective's flows sharing the same barrier);
// within that bucket, every flow runs concurrently and is joined together
// — ring steps are sequenced only by StartOffsetS, not by a per-step
// barrier, matching original_source's build_workload1_dp_heavy_job, which
// concatenates a ReduceScatter's and an AllGather's flows into a single
// Bucket per gradient-sync barrier rather than one barrier per ring step.
// Grounded on original_source's traffic/patterns/ring.py
// expand_ring_neighbor_sends, translated from Python's in-place
// Fisher-Yates (seeded stdlib random.Random) into a deterministic shuffle
// drawn from a named rngstream.RngStream, since this module never uses
// ambient math/rand (spec.md §9 "every stochastic decision draws from a
// named, seeded stream").
func ExpandRingCollective(spec CollectiveSpec) ([]Flow, error) {
	p := len(spec.Participants)
	if p < 2 {
		return nil, nil
	}
	if spec.IPOf == nil || spec.NextFlowID == nil {
		return nil, fmt.Errorf("workload: CollectiveSpec requires IPOf and NextFlowID")
	}

	ring := ringOrder(spec.Participants, spec.Seed)
	steps := p - 1
	chunks := chunkSizes(spec.BytesPerParticipant, steps)
	opTag := spec.Kind.tag()

	flows := make([]Flow, 0, steps*p)
	for s := 0; s < steps; s++ {
		t := spec.StartTimeS + float64(s)*spec.GapS
		size := chunks[s]
		for i, sender := range ring {
			receiver := ring[(i+1)%p]
			flows = append(flows, Flow{
				FlowID:       spec.NextFlowID(),
				JobID:        spec.JobID,
				StepID:       spec.StepID,
				PhaseID:      spec.PhaseID,
				BucketID:     spec.BucketID,
				Tag:          fmt.Sprintf("%s/ring_step_%d", opTag, s),
				SrcNodeID:    sender,
				DstNodeID:    receiver,
				SrcIP:        spec.IPOf(sender),
				DstIP:        spec.IPOf(receiver),
				SizeBytes:    size,
				StartOffsetS: t,
			})
		}
	}
	return flows, nil
}

// ringOrder returns a deterministic Fisher-Yates shuffle of participants
// seeded by seed, so repeated calls with the same seed produce the same
// ring regardless of prior PRNG draws elsewhere in the run.
func ringOrder(participants []int, seed uint64) []int {
	out := make([]int, len(participants))
	copy(out, participants)
	rng := rngstream.New(fmt.Sprintf("ring-order-%d", seed))
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng.RandU01() * float64(i+1))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// chunkSizes splits bytesPerParticipant into p pieces as evenly as
// possible; the first rem pieces absorb the remainder, matching
// original_source's deterministic-remainder rule.
func chunkSizes(bytesPerParticipant, p int) []int {
	base := bytesPerParticipant / p
	rem := bytesPerParticipant % p
	out := make([]int, p)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}
