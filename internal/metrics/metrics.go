// Package metrics assembles the structured metrics record spec.md §6
// names as the core's sole output: topology summary, per-step timing,
// per-flow FCT arrays partitioned by job vs. mice, per-port/per-switch
// peak queue depths, and the global dropped-packet count. Grounded on
// original_source's scenarios/mice_flow_injector.py percentile summary
// and core/entities.py's metrics dataclasses, with percentile computation
// moved onto gonum.org/v1/gonum/stat (already the teacher's graph-algorithm
// dependency) instead of a hand-rolled implementation.
package metrics

import (
	"encoding/json"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/aifabric/netsim/internal/workload"
)

// FlowRecord is one completed flow's timing, partitioned into job and mice
// populations at the top level of Record.
type FlowRecord struct {
	FlowID int     `json:"flow_id"`
	Tag    string  `json:"tag"`
	FCTS   float64 `json:"fct_s"`
	Bytes  int     `json:"bytes"`
}

// StepSummary is one job step's start/end/duration, per spec.md §6.
type StepSummary struct {
	JobID      int     `json:"job_id"`
	StepID     int     `json:"step_id"`
	StartTimeS float64 `json:"start_time_s"`
	EndTimeS   float64 `json:"end_time_s"`
	DurationS  float64 `json:"duration_s"`
}

// PortQueueDepth reports one port's peak occupancy across the run.
type PortQueueDepth struct {
	SwitchName string `json:"switch_name"`
	PortIndex  int    `json:"port_index"`
	PeakDepth  int    `json:"peak_depth"`
}

// TopologySummary is a structural snapshot of the built fabric, enough to
// distinguish two configurations without re-parsing the full graph.
type TopologySummary struct {
	Hosts  int `json:"hosts"`
	Leaves int `json:"leaves"`
	Spines int `json:"spines"`
	Links  int `json:"links"`
	Failed int `json:"failed_links"`
}

// Percentiles bundles the p50/p95/p99 of a distribution, computed by
// FCTPercentiles.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Record is the complete run output of spec.md §6's "Metrics (produced)".
type Record struct {
	Topology     TopologySummary   `json:"topology"`
	Steps        []StepSummary     `json:"steps"`
	JobFlows     []FlowRecord      `json:"job_flows"`
	MiceFlows    []FlowRecord      `json:"mice_flows"`
	JobFCT       Percentiles       `json:"job_fct_percentiles_s"`
	MiceFCT      Percentiles       `json:"mice_fct_percentiles_s"`
	PortPeaks    []PortQueueDepth  `json:"port_peaks"`
	DroppedTotal int               `json:"dropped_total"`
	SeedsUsed    map[string]uint64 `json:"seeds_used"`
	Stalled      bool              `json:"stalled"`
}

// FCTPercentiles computes p50/p95/p99 over a set of FCT samples using
// linear interpolation between closest ranks (gonum's stat.LinInterp
// cumulant kind), matching the common convention for online percentile
// reporting. Returns the zero value for an empty input.
func FCTPercentiles(samples []float64) Percentiles {
	if len(samples) == 0 {
		return Percentiles{}
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return Percentiles{
		P50: stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		P95: stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		P99: stat.Quantile(0.99, stat.LinInterp, sorted, nil),
	}
}

// StepSummariesFromJobMetrics flattens a JobMetrics tree into StepSummary
// rows, discarding phase-level detail (phase timing remains available on
// the JobMetrics itself for verbose/debug runs, per run.message_verbose).
func StepSummariesFromJobMetrics(jm *workload.JobMetrics) []StepSummary {
	out := make([]StepSummary, 0, len(jm.Steps))
	for _, sm := range jm.Steps {
		out = append(out, StepSummary{
			JobID:      jm.JobID,
			StepID:     sm.StepID,
			StartTimeS: sm.StartTime,
			EndTimeS:   sm.EndTime,
			DurationS:  sm.EndTime - sm.StartTime,
		})
	}
	return out
}

// UnmarshalRecord parses a Record from its JSON serialization.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
