// Package workload implements the Job state machine of spec.md §4.4: the
// Job/Step/Phase/Bucket/Flow data model, the event-driven Runner FSM, the
// Barrier/Join rendezvous, and collective expansion / mice injection.
package workload

import "github.com/aifabric/netsim/internal/netaddr"

// Flow is one logical bulk transfer the Runner hands to the flow injector.
// It is packet-agnostic: the network fabric decides packetization,
// routing, and congestion. Grounded on original_source's
// ai_factory_simulation/traffic/flow.py Flow dataclass.
type Flow struct {
	FlowID       int
	JobID        int
	StepID       int
	PhaseID      int
	BucketID     int
	Tag          string
	SrcNodeID    int
	DstNodeID    int
	SrcIP        netaddr.IP
	DstIP        netaddr.IP
	SizeBytes    int
	StartOffsetS float64
}

// Bucket is a barrier-synchronized set of flows within a comm phase.
type Bucket struct {
	BucketID int
	Flows    []Flow
}

// PhaseKind tags Phase's two closed variants, per spec.md §9's "tagged
// variants over inheritance" guidance.
type PhaseKind int

const (
	PhaseCompute PhaseKind = iota
	PhaseComm
)

// Phase is a single step's unit of work: either a pure-compute delay or a
// communication phase made of sequential barrier buckets.
type Phase struct {
	PhaseID   int
	Name      string
	Kind      PhaseKind
	DurationS float64  // Kind == PhaseCompute
	Buckets   []Bucket // Kind == PhaseComm
}

// JobStep is one step of a Job: an ordered sequence of phases.
type JobStep struct {
	StepID int
	Phases []Phase
}

// Job is the top-level unit the Runner advances end to end.
type Job struct {
	JobID        int
	Name         string
	Steps        []JobStep
	Participants []int // node ids, for metrics/placement only
}
