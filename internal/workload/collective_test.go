package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aifabric/netsim/internal/netaddr"
)

func ipFor(nodeID int) netaddr.IP {
	ip, _ := netaddr.ParseIP("10.0.0.1")
	return ip + netaddr.IP(nodeID)
}

// groupByStep splits a flat ring-collective flow list into per-step groups
// of p flows each, relying on ExpandRingCollective's step-major emission
// order (all p sends for step 0, then all p sends for step 1, ...).
func groupByStep(flows []Flow, p int) [][]Flow {
	var steps [][]Flow
	for i := 0; i < len(flows); i += p {
		steps = append(steps, flows[i:i+p])
	}
	return steps
}

func TestExpandRingCollectiveStepCountAndChunkSizes(t *testing.T) {
	var next int
	spec := CollectiveSpec{
		Kind:                CollectiveAllReduce,
		Participants:        []int{0, 1, 2, 3},
		BytesPerParticipant: 10,
		GapS:                1e-6,
		Seed:                42,
		IPOf:                ipFor,
		NextFlowID:          func() int { next++; return next },
	}
	flows, err := ExpandRingCollective(spec)
	require.NoError(t, err)
	require.Len(t, flows, 3*4) // (P-1) steps * P sends, P=4

	steps := groupByStep(flows, 4)
	require.Len(t, steps, 3) // P-1 steps

	// chunk sizes across the 3 steps must sum to bytes_per_participant (10)
	// with the deterministic remainder going to the earliest steps.
	sizes := make([]int, len(steps))
	for i, step := range steps {
		require.Len(t, step, 4) // one send per participant per step
		sizes[i] = step[0].SizeBytes
	}
	sum := 0
	for _, sz := range sizes {
		sum += sz
	}
	assert.Equal(t, 10, sum)
	assert.GreaterOrEqual(t, sizes[0], sizes[len(sizes)-1])
}

func TestExpandRingCollectiveDeterministicForSameSeed(t *testing.T) {
	newSpec := func() CollectiveSpec {
		var next int
		return CollectiveSpec{
			Kind:                CollectiveAllGather,
			Participants:        []int{0, 1, 2, 3, 4},
			BytesPerParticipant: 100,
			GapS:                1e-6,
			Seed:                7,
			IPOf:                ipFor,
			NextFlowID:          func() int { next++; return next },
		}
	}
	f1, err := ExpandRingCollective(newSpec())
	require.NoError(t, err)
	f2, err := ExpandRingCollective(newSpec())
	require.NoError(t, err)

	require.Equal(t, len(f1), len(f2))
	for i := range f1 {
		assert.Equal(t, f1[i].SrcNodeID, f2[i].SrcNodeID)
		assert.Equal(t, f1[i].DstNodeID, f2[i].DstNodeID)
	}
}

func TestExpandRingCollectiveSingleParticipantIsNoop(t *testing.T) {
	flows, err := ExpandRingCollective(CollectiveSpec{
		Participants: []int{0},
		IPOf:         ipFor,
		NextFlowID:   func() int { return 1 },
	})
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestExpandRingCollectiveEachSenderHasDistinctReceiver(t *testing.T) {
	var next int
	flows, err := ExpandRingCollective(CollectiveSpec{
		Kind:                CollectiveReduceScatter,
		Participants:        []int{10, 20, 30},
		BytesPerParticipant: 9,
		Seed:                1,
		IPOf:                ipFor,
		NextFlowID:          func() int { next++; return next },
	})
	require.NoError(t, err)
	for _, f := range flows {
		assert.NotEqual(t, f.SrcNodeID, f.DstNodeID)
	}
}

func TestExpandRingCollectiveFlowsShareBucketAndCarrySequentialIDs(t *testing.T) {
	var next int
	flows, err := ExpandRingCollective(CollectiveSpec{
		Kind:                CollectiveAllReduce,
		Participants:        []int{0, 1, 2},
		BytesPerParticipant: 6,
		GapS:                1e-6,
		Seed:                3,
		JobID:               1,
		StepID:              2,
		PhaseID:             1,
		BucketID:            5,
		IPOf:                ipFor,
		NextFlowID:          func() int { next++; return next },
	})
	require.NoError(t, err)
	require.NotEmpty(t, flows)
	for i, f := range flows {
		assert.Equal(t, 1, f.JobID)
		assert.Equal(t, 2, f.StepID)
		assert.Equal(t, 5, f.BucketID)
		assert.Equal(t, i+1, f.FlowID)
		assert.Contains(t, f.Tag, "all_reduce/ring_step_")
	}
}
