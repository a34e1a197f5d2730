package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/inject"
	"github.com/aifabric/netsim/internal/metrics"
	"github.com/aifabric/netsim/internal/netaddr"
	"github.com/aifabric/netsim/internal/netsim"
	"github.com/aifabric/netsim/internal/simconfig"
	"github.com/aifabric/netsim/internal/simerrors"
	"github.com/aifabric/netsim/internal/workload"

	"gonum.org/v1/gonum/stat"
)

const dpHeavyJobID = 1

var routingModeByName = map[string]netsim.RoutingMode{
	"ecmp":     netsim.RoutingECMP,
	"flowlet":  netsim.RoutingFlowlet,
	"adaptive": netsim.RoutingAdaptive,
}

// buildTopologyDesc maps simconfig's flat, YAML-shaped config onto
// internal/netsim's AIFactorySUDesc. The topology's own link-failure draw
// reuses scenario.params.seed: spec.md §6's schema carries no separate
// topology-level seed key, so one seed seeds every stochastic decision in
// a run except the mice injector's own independently configured seed.
func buildTopologyDesc(cfg *simconfig.Config) netsim.AIFactorySUDesc {
	su := cfg.Topology.AIFactorySU
	return netsim.AIFactorySUDesc{
		Leaves:                   su.Leaves,
		Spines:                   su.Spines,
		ServersPerLeaf:           su.ServersPerLeaf,
		ServerParallelLinks:      su.ServerParallelLinks,
		LeafToSpineParallelLinks: su.LeafToSpineParallelLinks,
		BandwidthServerToLeafBPS: cfg.Topology.Links.BandwidthBPS.ServerToLeaf,
		BandwidthLeafToSpineBPS:  cfg.Topology.Links.BandwidthBPS.LeafToSpine,
		PropagationDelayS:        cfg.Topology.PropDelayS,
		MTU:                      cfg.Topology.MTU,
		TTL:                      cfg.Topology.TTL,
		FailurePercent:           cfg.Topology.Links.FailurePercent,
		Mode:                     routingModeByName[cfg.Topology.Routing.Mode],
		FlowletThresholdPackets:  cfg.Topology.Routing.EcmpFlowletNPackets,
		Seed:                     cfg.Scenario.Params.Seed,
	}
}

// flowRecorder wraps a workload.Injector to time every flow from Inject to
// onComplete and partition the samples into job vs. mice populations by
// Flow.JobID, per spec.md §6's "per-flow FCT arrays partitioned by
// {job, mice}." Grounded on internal/inject's own byte-accounting pattern:
// this is the same "wrap, don't modify" shape applied one layer up so
// internal/inject stays free of any metrics dependency.
type flowRecorder struct {
	inner     workload.Injector
	jobFlows  []metrics.FlowRecord
	miceFlows []metrics.FlowRecord
}

func (fr *flowRecorder) Inject(s *des.Scheduler, f workload.Flow, onComplete func(flowID int)) error {
	start := s.CurrentTime()
	return fr.inner.Inject(s, f, func(flowID int) {
		rec := metrics.FlowRecord{FlowID: f.FlowID, Tag: f.Tag, FCTS: s.CurrentTime() - start, Bytes: f.SizeBytes}
		if f.JobID < 0 {
			fr.miceFlows = append(fr.miceFlows, rec)
		} else {
			fr.jobFlows = append(fr.jobFlows, rec)
		}
		onComplete(flowID)
	})
}

var _ workload.Injector = (*flowRecorder)(nil)

func fctSamples(records []metrics.FlowRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.FCTS
	}
	return out
}

// quantilePercent adapts metrics' 0-1 gonum convention to
// workload.MiceInjector.Summary's 0-100 percentile argument.
func quantilePercent(sorted []float64, p float64) float64 {
	return stat.Quantile(p/100.0, stat.LinInterp, sorted, nil)
}

// Simulate builds the topology and scenario named by cfg, runs the
// simulation to completion (or to a stall), and assembles the resulting
// metrics record. cfg must already have passed Validate.
func Simulate(cfg *simconfig.Config) (*metrics.Record, error) {
	topo, err := (&netsim.AIFactorySUFrame{Desc: buildTopologyDesc(cfg)}).Build()
	if err != nil {
		return nil, fmt.Errorf("building topology: %w", err)
	}

	participants := make([]int, len(topo.Hosts))
	ipOf := func(nodeID int) netaddr.IP { return topo.Hosts[nodeID].IP }
	for i, h := range topo.Hosts {
		participants[i] = h.ID
	}

	sp := cfg.Scenario.Params
	job, err := workload.BuildDPHeavyJob(dpHeavyJobID, cfg.Scenario.Name, participants, workload.DPHeavyConfig{
		Steps:                     sp.Steps,
		TFwdBwdMS:                 sp.TFwdBwdMS,
		NumBuckets:                sp.NumBuckets,
		BucketBytesPerParticipant: sp.BucketBytesPerParticipant,
		GapS:                      sp.GapUS / 1e6,
		OptimizerMS:               sp.OptimizerMS,
		Seed:                      sp.Seed,
	}, ipOf)
	if err != nil {
		return nil, fmt.Errorf("building scenario: %w", err)
	}

	fi := inject.NewFlowInjector(topo.Hosts, topo.Switches)
	recorder := &flowRecorder{inner: fi}

	atRisk := workload.NewAtRiskSet()
	runner := workload.NewRunner(*job, recorder, atRisk)
	fi.OnDrop = runner.NotifyDrop

	s := des.New()
	jobMetrics, err := runner.Start(s)
	if err != nil {
		return nil, fmt.Errorf("starting job: %w", err)
	}

	var mice *workload.MiceInjector
	seedsUsed := map[string]uint64{"scenario": sp.Seed}
	if sp.Mice.Enabled {
		rackOf := func(nodeID int) string {
			return fmt.Sprintf("leaf-%d", nodeID/cfg.Topology.AIFactorySU.ServersPerLeaf)
		}
		mice = workload.NewMiceInjector(workload.MiceConfig{
			Enabled:        sp.Mice.Enabled,
			Seed:           sp.Mice.Seed,
			StartDelayS:    sp.Mice.StartDelayS,
			EndTimeS:       sp.Mice.EndTimeS,
			InterarrivalS:  sp.Mice.InterarrivalS,
			MinPackets:     sp.Mice.MinPackets,
			MaxPackets:     sp.Mice.MaxPackets,
			MTUBytes:       cfg.Topology.MTU,
			ForceCrossRack: sp.Mice.ForceCrossRack,
		}, recorder, participants, ipOf, rackOf)
		if err := mice.Install(s); err != nil {
			return nil, fmt.Errorf("installing mice injector: %w", err)
		}
		seedsUsed["mice"] = sp.Mice.Seed
	}

	runErr := s.Run()
	stalled := false
	if runErr != nil {
		return nil, fmt.Errorf("run failed: %w", runErr)
	}
	if !jobMetrics.Done {
		stalled = true
		unfinished := make([]simerrors.UnfinishedFlow, 0)
		for name, ids := range runner.Unfinished() {
			unfinished = append(unfinished, simerrors.UnfinishedFlow{BarrierName: name, FlowIDs: ids})
		}
		logrus.WithField("sim_time_s", s.CurrentTime()).Warn(simerrors.NewStallError(unfinished).Error())
	}

	if mice != nil {
		summary := mice.Summary(quantilePercent)
		logrus.Infof("mice summary: %d flows, avg %.3fms, p95 %.3fms, p99 %.3fms",
			summary.Flows, summary.FCTAvgMS, summary.FCTP95MS, summary.FCTP99MS)
	}

	var failedLinks int
	for _, l := range topo.Links {
		if l.Failed {
			failedLinks++
		}
	}
	var dropped int
	for _, sw := range topo.Switches {
		dropped += sw.Dropped
	}
	for _, l := range topo.Links {
		dropped += l.Dropped
	}

	var portPeaks []metrics.PortQueueDepth
	for _, sw := range topo.Switches {
		for _, p := range sw.Ports {
			portPeaks = append(portPeaks, metrics.PortQueueDepth{SwitchName: sw.Name, PortIndex: p.Index, PeakDepth: p.PeakDepth})
		}
	}

	rec := &metrics.Record{
		Topology: metrics.TopologySummary{
			Hosts:  len(topo.Hosts),
			Leaves: cfg.Topology.AIFactorySU.Leaves,
			Spines: cfg.Topology.AIFactorySU.Spines,
			Links:  len(topo.Links),
			Failed: failedLinks,
		},
		Steps:        metrics.StepSummariesFromJobMetrics(jobMetrics),
		JobFlows:     recorder.jobFlows,
		MiceFlows:    recorder.miceFlows,
		JobFCT:       metrics.FCTPercentiles(fctSamples(recorder.jobFlows)),
		MiceFCT:      metrics.FCTPercentiles(fctSamples(recorder.miceFlows)),
		PortPeaks:    portPeaks,
		DroppedTotal: dropped,
		SeedsUsed:    seedsUsed,
		Stalled:      stalled,
	}
	return rec, nil
}
