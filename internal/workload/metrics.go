package workload

// PhaseMetrics, StepMetrics, and JobMetrics stamp start/end times as the
// Runner advances, per spec.md §4.4 "Metrics stamping." Grounded on
// original_source's core/entities.py PhaseMetrics/StepMetrics/JobMetrics
// dataclasses.
type PhaseMetrics struct {
	PhaseID   int
	Name      string
	StartTime float64
	EndTime   float64
}

type StepMetrics struct {
	StepID    int
	StartTime float64
	EndTime   float64
	Phases    []*PhaseMetrics
}

type JobMetrics struct {
	JobID     int
	StartTime float64
	EndTime   float64
	Done      bool
	Steps     []*StepMetrics
}
