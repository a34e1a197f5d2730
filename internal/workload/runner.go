package workload

import (
	"fmt"

	"github.com/aifabric/netsim/internal/des"
)

// Injector is the Runner's sole dependency on the network layer: it
// decouples workload (Job/Step/Phase FSM) from internal/inject (the
// concrete flow-to-packet adapter), matching spec.md §4.5's contract
// without an import cycle. onComplete must be called exactly once per
// flow.
type Injector interface {
	Inject(s *des.Scheduler, f Flow, onComplete func(flowID int)) error
}

// Runner is the event-driven FSM of spec.md §4.4: it never spins or
// sleeps, advancing purely in response to scheduled events. Grounded on
// original_source/core/runner.py's JobRunner, translated from Python
// closures into Go methods that take the step/phase cursor as explicit
// arguments (runStep, runPhase); only the bucket loop inside a comm phase
// stays a recursive closure.
type Runner struct {
	Injector      Injector
	Job           Job
	OnJobComplete func(*JobMetrics)

	metrics  *JobMetrics
	atRisk   *AtRiskSet
	flowJoin map[int]string // flow id -> owning barrier name, for proactive at-risk tagging

	// activeBarriers holds every comm-phase Barrier that has not yet fully
	// resolved. A stalled run (the scheduler's queue empties before the
	// job reaches its final phase) is diagnosed after Scheduler.Run
	// returns by inspecting these barriers' Unfinished sets, per spec.md
	// §7's "stalled run" report.
	activeBarriers map[string]*Barrier
}

// NewRunner constructs a Runner for job against injector. atRisk may be
// shared across every concurrently-installed job so a single set collects
// every at-risk barrier (spec.md §4.4 "multiple jobs may be installed...
// they share the scheduler"); metrics.Record does not carry that set.
func NewRunner(job Job, injector Injector, atRisk *AtRiskSet) *Runner {
	return &Runner{
		Job: job, Injector: injector, atRisk: atRisk,
		flowJoin:       make(map[int]string),
		activeBarriers: make(map[string]*Barrier),
	}
}

// Unfinished reports every still-pending barrier across every comm phase
// this Runner ever started but that never fully resolved. Empty once the
// job completes normally; non-empty after a stalled run.
func (r *Runner) Unfinished() map[string][]int {
	out := make(map[string][]int)
	for barrierKey, b := range r.activeBarriers {
		for name, ids := range b.Unfinished() {
			out[barrierKey+"/"+name] = ids
		}
	}
	return out
}

// Start schedules job start at time 0 and returns the (initially empty)
// metrics record that will be populated as the run proceeds.
func (r *Runner) Start(s *des.Scheduler) (*JobMetrics, error) {
	r.metrics = &JobMetrics{JobID: r.Job.JobID}
	if err := s.Schedule(0, r.startJob); err != nil {
		return nil, err
	}
	return r.metrics, nil
}

func (r *Runner) startJob(s *des.Scheduler) error {
	r.metrics.StartTime = s.CurrentTime()
	return r.runStep(s, 0)
}

func (r *Runner) runStep(s *des.Scheduler, stepIdx int) error {
	if stepIdx >= len(r.Job.Steps) {
		r.metrics.EndTime = s.CurrentTime()
		r.metrics.Done = true
		if r.OnJobComplete != nil {
			r.OnJobComplete(r.metrics)
		}
		return nil
	}
	step := r.Job.Steps[stepIdx]
	sm := &StepMetrics{StepID: step.StepID, StartTime: s.CurrentTime()}
	r.metrics.Steps = append(r.metrics.Steps, sm)
	return r.runPhase(s, stepIdx, 0)
}

func (r *Runner) runPhase(s *des.Scheduler, stepIdx, phaseIdx int) error {
	step := r.Job.Steps[stepIdx]
	sm := r.metrics.Steps[len(r.metrics.Steps)-1]

	if phaseIdx >= len(step.Phases) {
		sm.EndTime = s.CurrentTime()
		return r.runStep(s, stepIdx+1)
	}

	phase := step.Phases[phaseIdx]
	pm := &PhaseMetrics{PhaseID: phase.PhaseID, Name: phase.Name, StartTime: s.CurrentTime()}
	sm.Phases = append(sm.Phases, pm)

	donePhase := func(s *des.Scheduler) error {
		pm.EndTime = s.CurrentTime()
		return r.runPhase(s, stepIdx, phaseIdx+1)
	}

	switch phase.Kind {
	case PhaseCompute:
		return s.Schedule(phase.DurationS, donePhase)
	case PhaseComm:
		return r.runCommPhase(s, phase, donePhase)
	default:
		return fmt.Errorf("workload: unknown phase kind %d", phase.Kind)
	}
}

func (r *Runner) runCommPhase(s *des.Scheduler, phase Phase, donePhase des.Action) error {
	barrier := NewBarrier()
	barrierKey := fmt.Sprintf("job%d/phase%d", r.Job.JobID, phase.PhaseID)
	r.activeBarriers[barrierKey] = barrier
	var runBucket func(s *des.Scheduler, bucketIdx int) error

	runBucket = func(s *des.Scheduler, bucketIdx int) error {
		if bucketIdx >= len(phase.Buckets) {
			delete(r.activeBarriers, barrierKey)
			return donePhase(s)
		}
		bucket := phase.Buckets[bucketIdx]
		if len(bucket.Flows) == 0 {
			return runBucket(s, bucketIdx+1)
		}

		joinName := fmt.Sprintf("phase%d/bucket%d", phase.PhaseID, bucket.BucketID)
		ids := make([]int, len(bucket.Flows))
		for i, f := range bucket.Flows {
			ids[i] = f.FlowID
			r.flowJoin[f.FlowID] = joinName
		}
		join := NewJoin(ids, func(s *des.Scheduler) error {
			return runBucket(s, bucketIdx+1)
		})
		if err := barrier.Add(joinName, join); err != nil {
			return err
		}

		for _, f := range bucket.Flows {
			flow := f
			delay := flow.StartOffsetS
			if delay < 0 {
				delay = 0
			}
			if err := s.Schedule(delay, func(s *des.Scheduler) error {
				return r.Injector.Inject(s, flow, func(flowID int) {
					// onComplete fires synchronously from within the
					// delivery event that completed the flow, so s is
					// still the live scheduler for "now".
					if err := barrier.OnFlowComplete(s, flowID); err != nil {
						panic(err)
					}
				})
			}); err != nil {
				return err
			}
		}
		return nil
	}

	return runBucket(s, 0)
}

// NotifyDrop implements SPEC_FULL.md §14's proactive at-risk tagging: when
// the network layer reports a modeled drop belonging to flowID, and that
// flow is part of a live barrier, the barrier is flagged at_risk
// immediately rather than only discovered as "stalled" at run end.
func (r *Runner) NotifyDrop(flowID int) {
	if name, ok := r.flowJoin[flowID]; ok && r.atRisk != nil {
		r.atRisk.Flag(name)
	}
}
