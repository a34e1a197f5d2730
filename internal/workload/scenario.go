package workload

import (
	"fmt"

	"github.com/aifabric/netsim/internal/netaddr"
)

// DPHeavyConfig parameterizes the data-parallel-heavy training scenario:
// Steps repetitions of forward/backward compute, a gradient-sync comm
// phase made of NumBuckets barrier-gated buckets (each a ReduceScatter
// immediately followed by an AllGather over the same participants), and
// an optimizer-step compute phase. Grounded on original_source's
// workloads/workload1_dp_heavy.py Workload1Config.
type DPHeavyConfig struct {
	Steps                     int
	TFwdBwdMS                 float64
	NumBuckets                int
	BucketBytesPerParticipant int
	GapS                      float64
	OptimizerMS               float64
	Seed                      uint64
}

// BuildDPHeavyJob assembles the Job hierarchy for the DP-heavy scenario.
// IPOf resolves a participant node id to the address the flow injector
// should address traffic to. Each step's gradient_sync Phase holds
// NumBuckets Buckets; each Bucket concatenates one ReduceScatter's flows
// with one AllGather's flows, mirroring build_workload1_dp_heavy_job's
// `Bucket(bucket_id=bucket_id, flows=rs.flows + ag.flows)` — ring steps
// within each collective are sequenced by StartOffsetS only, and the two
// collectives making up a bucket both start at offset 0 and are joined by
// the same barrier.
func BuildDPHeavyJob(jobID int, name string, participants []int, cfg DPHeavyConfig, ipOf func(nodeID int) netaddr.IP) (*Job, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("workload: DP-heavy job requires at least 2 participants, got %d", len(participants))
	}
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("workload: DP-heavy job requires Steps > 0, got %d", cfg.Steps)
	}
	if cfg.NumBuckets <= 0 {
		return nil, fmt.Errorf("workload: DP-heavy job requires NumBuckets > 0, got %d", cfg.NumBuckets)
	}

	var nextFlowID int
	newFlowID := func() int {
		nextFlowID++
		return nextFlowID
	}

	steps := make([]JobStep, cfg.Steps)
	for stepIdx := 0; stepIdx < cfg.Steps; stepIdx++ {
		phases := make([]Phase, 0, 3)

		phases = append(phases, Phase{
			PhaseID:   0,
			Name:      "fwd_bwd_compute",
			Kind:      PhaseCompute,
			DurationS: cfg.TFwdBwdMS / 1000.0,
		})

		buckets := make([]Bucket, cfg.NumBuckets)
		for b := 0; b < cfg.NumBuckets; b++ {
			rsFlows, err := ExpandRingCollective(CollectiveSpec{
				Kind:                CollectiveReduceScatter,
				Participants:        participants,
				BytesPerParticipant: cfg.BucketBytesPerParticipant,
				GapS:                cfg.GapS,
				JobID:               jobID,
				StepID:              stepIdx,
				PhaseID:             1,
				BucketID:            b,
				Seed:                cfg.Seed,
				IPOf:                ipOf,
				NextFlowID:          newFlowID,
			})
			if err != nil {
				return nil, err
			}
			agFlows, err := ExpandRingCollective(CollectiveSpec{
				Kind:                CollectiveAllGather,
				Participants:        participants,
				BytesPerParticipant: cfg.BucketBytesPerParticipant,
				GapS:                cfg.GapS,
				JobID:               jobID,
				StepID:              stepIdx,
				PhaseID:             1,
				BucketID:            b,
				Seed:                cfg.Seed,
				IPOf:                ipOf,
				NextFlowID:          newFlowID,
			})
			if err != nil {
				return nil, err
			}

			flows := make([]Flow, 0, len(rsFlows)+len(agFlows))
			flows = append(flows, rsFlows...)
			flows = append(flows, agFlows...)
			buckets[b] = Bucket{BucketID: b, Flows: flows}
		}

		phases = append(phases, Phase{
			PhaseID: 1,
			Name:    "gradient_sync",
			Kind:    PhaseComm,
			Buckets: buckets,
		})

		phases = append(phases, Phase{
			PhaseID:   2,
			Name:      "optimizer_compute",
			Kind:      PhaseCompute,
			DurationS: cfg.OptimizerMS / 1000.0,
		})

		steps[stepIdx] = JobStep{StepID: stepIdx, Phases: phases}
	}

	return &Job{
		JobID:        jobID,
		Name:         name,
		Steps:        steps,
		Participants: participants,
	}, nil
}
