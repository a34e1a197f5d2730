package workload

import (
	"fmt"
	"sort"

	"github.com/iti/rngstream"

	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/netaddr"
)

// MiceConfig configures the background small-flow injector of spec.md
// §4.4's mice traffic pattern. Grounded on original_source's
// scenarios/mice_flow_injector.py MiceConfig.
type MiceConfig struct {
	Enabled        bool
	Seed           uint64
	StartDelayS    float64
	EndTimeS       float64 // use math.Inf(1) to run for the whole simulation
	InterarrivalS  float64
	MinPackets     int
	MaxPackets     int
	MTUBytes       int
	ForceCrossRack bool
}

// MiceSummary reports the completed mice population at finalize time,
// mirroring the Python original's mice_flow_summary entity.
type MiceSummary struct {
	Flows    int
	FCTAvgMS float64
	FCTP95MS float64
	FCTP99MS float64
}

// MiceInjector injects unrelated small background flows between random
// host pairs at a fixed interarrival, independent of any Job. Grounded on
// original_source's MiceFlowInjector, translated from a single stdlib
// random.Random draw sequence into one named rngstream.RngStream (spec.md
// §9's PRNG discipline forbids ambient math/rand).
type MiceInjector struct {
	cfg      MiceConfig
	injector Injector
	hosts    []int
	ipOf     func(nodeID int) netaddr.IP
	rackOf   func(nodeID int) string

	rng      *rngstream.RngStream
	nextFlow int
	fctsS    []float64
}

// NewMiceInjector constructs a mice injector over hosts (sorted node ids,
// matching the original's sorted(network.hosts.keys()) for determinism).
// rackOf may be nil if cfg.ForceCrossRack is false.
func NewMiceInjector(cfg MiceConfig, injector Injector, hosts []int, ipOf func(int) netaddr.IP, rackOf func(int) string) *MiceInjector {
	sorted := make([]int, len(hosts))
	copy(sorted, hosts)
	sort.Ints(sorted)
	return &MiceInjector{
		cfg:      cfg,
		injector: injector,
		hosts:    sorted,
		ipOf:     ipOf,
		rackOf:   rackOf,
		rng:      rngstream.New(fmt.Sprintf("mice-%d", cfg.Seed)),
		nextFlow: 1_000_000_000,
	}
}

// Install schedules the first injection, validating configuration the way
// install() does in the original.
func (m *MiceInjector) Install(s *des.Scheduler) error {
	if !m.cfg.Enabled {
		return nil
	}
	if m.cfg.InterarrivalS <= 0 {
		return fmt.Errorf("workload: mice.interarrival_s must be > 0")
	}
	if m.cfg.EndTimeS <= m.cfg.StartDelayS {
		return fmt.Errorf("workload: mice.end_time_s must be > mice.start_delay_s")
	}
	if len(m.hosts) < 2 {
		return fmt.Errorf("workload: mice requires at least 2 hosts")
	}
	return s.Schedule(m.cfg.StartDelayS, m.injectNext)
}

func (m *MiceInjector) randIndex(n int) int {
	i := int(m.rng.RandU01() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

func (m *MiceInjector) randIntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + m.randIndex(hi-lo+1)
}

func (m *MiceInjector) pickPair() (int, int) {
	src := m.hosts[m.randIndex(len(m.hosts))]

	if !m.cfg.ForceCrossRack || m.rackOf == nil {
		for {
			dst := m.hosts[m.randIndex(len(m.hosts))]
			if dst != src {
				return src, dst
			}
		}
	}

	srcRack := m.rackOf(src)
	for i := 0; i < 128; i++ {
		dst := m.hosts[m.randIndex(len(m.hosts))]
		if dst != src && m.rackOf(dst) != srcRack {
			return src, dst
		}
	}
	for {
		dst := m.hosts[m.randIndex(len(m.hosts))]
		if dst != src {
			return src, dst
		}
	}
}

func (m *MiceInjector) injectNext(s *des.Scheduler) error {
	now := s.CurrentTime()
	if now >= m.cfg.EndTimeS {
		return nil
	}

	src, dst := m.pickPair()
	nPackets := m.randIntRange(m.cfg.MinPackets, m.cfg.MaxPackets)
	sizeBytes := nPackets * m.cfg.MTUBytes

	flowID := m.nextFlow
	m.nextFlow++

	f := Flow{
		FlowID:    flowID,
		JobID:     -1,
		StepID:    -1,
		PhaseID:   -1,
		BucketID:  -1,
		Tag:       "mice",
		SrcNodeID: src,
		DstNodeID: dst,
		SizeBytes: sizeBytes,
	}
	if m.ipOf != nil {
		f.SrcIP, f.DstIP = m.ipOf(src), m.ipOf(dst)
	}

	t0 := now
	if err := m.injector.Inject(s, f, func(flowID int) {
		// onComplete fires from within the delivering scheduler event,
		// so CurrentTime still reflects the completion instant.
		m.fctsS = append(m.fctsS, s.CurrentTime()-t0)
	}); err != nil {
		return err
	}

	return s.Schedule(m.cfg.InterarrivalS, m.injectNext)
}

// Summary computes the mice FCT summary. Percentiles use the same
// linear-interpolation convention as internal/metrics (spec.md §5).
func (m *MiceInjector) Summary(percentile func(sorted []float64, p float64) float64) MiceSummary {
	n := len(m.fctsS)
	if n == 0 {
		return MiceSummary{}
	}
	sorted := make([]float64, n)
	copy(sorted, m.fctsS)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	avg := sum / float64(n)
	return MiceSummary{
		Flows:    n,
		FCTAvgMS: avg * 1000.0,
		FCTP95MS: percentile(sorted, 95.0) * 1000.0,
		FCTP99MS: percentile(sorted, 99.0) * 1000.0,
	}
}
