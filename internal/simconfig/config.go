// Package simconfig loads and validates the run configuration of
// spec.md §6: a structured record with `run`, `topology`, and `scenario`
// top-level groups, consumed by the core but otherwise external to it.
// Grounded on the teacher's own `yaml.v3` usage (desc-topo.go's
// Marshal/Unmarshal pattern) for the load path, and on
// armadaproject-armada's `multierror.Append` accumulation pattern
// (internal/scheduler/jobdb/job_run.go's Assert) for validation.
package simconfig

import (
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/aifabric/netsim/internal/simerrors"
)

// RunConfig toggles ambient run behaviors orthogonal to the simulated
// network itself.
type RunConfig struct {
	FileDebug      bool `yaml:"file_debug"`
	MessageVerbose bool `yaml:"message_verbose"`
	VerboseRoute   bool `yaml:"verbose_route"`
	Visualize      bool `yaml:"visualize"`
}

// AIFactorySUConfig sizes the Clos scalable unit, matching
// internal/netsim.AIFactorySUDesc's fields one for one.
type AIFactorySUConfig struct {
	Leaves                   int `yaml:"leaves"`
	Spines                   int `yaml:"spines"`
	ServersPerLeaf           int `yaml:"servers_per_leaf"`
	ServerParallelLinks      int `yaml:"server_parallel_links"`
	LeafToSpineParallelLinks int `yaml:"leaf_to_spine_parallel_links"`
}

// RoutingConfig selects the switch dispatch mode and the flowlet
// threshold, per spec.md §4.3.3.
type RoutingConfig struct {
	Mode                string `yaml:"mode"`
	EcmpFlowletNPackets int    `yaml:"ecmp_flowlet_n_packets"`
}

// BandwidthConfig carries the two distinct link speeds of an
// ai_factory_su: server uplinks and leaf-to-spine uplinks.
type BandwidthConfig struct {
	ServerToLeaf float64 `yaml:"server_to_leaf"`
	LeafToSpine  float64 `yaml:"leaf_to_spine"`
}

// LinksConfig configures failure injection and link speeds.
type LinksConfig struct {
	FailurePercent float64         `yaml:"failure_percent"`
	BandwidthBPS   BandwidthConfig `yaml:"bandwidth_bps"`
}

// TopologyConfig is spec.md §6's `topology` group.
type TopologyConfig struct {
	Type        string            `yaml:"type"`
	AIFactorySU AIFactorySUConfig `yaml:"ai_factory_su"`
	Routing     RoutingConfig     `yaml:"routing"`
	Links       LinksConfig       `yaml:"links"`
	MaxPath     int               `yaml:"max_path"`
	MTU         int               `yaml:"mtu"`
	TTL         int               `yaml:"ttl"`
	PropDelayS  float64           `yaml:"propagation_delay_s"`
}

// MiceParams configures the background mice injector, mirroring
// internal/workload.MiceConfig's fields one for one.
type MiceParams struct {
	Enabled        bool    `yaml:"enabled"`
	Seed           uint64  `yaml:"seed"`
	StartDelayS    float64 `yaml:"start_delay_s"`
	EndTimeS       float64 `yaml:"end_time_s"`
	InterarrivalS  float64 `yaml:"interarrival_s"`
	MinPackets     int     `yaml:"min_packets"`
	MaxPackets     int     `yaml:"max_packets"`
	ForceCrossRack bool    `yaml:"force_cross_rack"`
}

// ScenarioParams carries the well-known scenario keys spec.md §6 names;
// everything else under `scenario.params` is opaque to the core.
type ScenarioParams struct {
	Steps                     int        `yaml:"steps"`
	Seed                      uint64     `yaml:"seed"`
	NumBuckets                int        `yaml:"num_buckets"`
	BucketBytesPerParticipant int        `yaml:"bucket_bytes_per_participant"`
	GapUS                     float64    `yaml:"gap_us"`
	TFwdBwdMS                 float64    `yaml:"t_fwd_bwd_ms"`
	OptimizerMS               float64    `yaml:"optimizer_ms"`
	Mice                      MiceParams `yaml:"mice"`
}

// ScenarioConfig is spec.md §6's `scenario` group.
type ScenarioConfig struct {
	Name   string         `yaml:"name"`
	Params ScenarioParams `yaml:"params"`
}

// Config is the full run configuration consumed by cmd/aifabric-sim.
type Config struct {
	Run      RunConfig      `yaml:"run"`
	Topology TopologyConfig `yaml:"topology"`
	Scenario ScenarioConfig `yaml:"scenario"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, simerrors.NewConfigError(path, err.Error())
	}
	return &cfg, nil
}

var validRoutingModes = map[string]bool{"ecmp": true, "adaptive": true, "flowlet": true}

// Validate accumulates every configuration problem (rather than stopping
// at the first) so a single load reports every offending key at once, per
// armadaproject-armada's Assert convention.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Topology.Type != "ai_factory_su" {
		result = multierror.Append(result, simerrors.NewConfigError("topology.type", "only \"ai_factory_su\" is supported"))
	}
	su := c.Topology.AIFactorySU
	if su.Leaves <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.ai_factory_su.leaves", "must be > 0"))
	}
	if su.Spines <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.ai_factory_su.spines", "must be > 0"))
	}
	if su.ServersPerLeaf <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.ai_factory_su.servers_per_leaf", "must be > 0"))
	}
	if su.ServerParallelLinks <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.ai_factory_su.server_parallel_links", "must be > 0"))
	}
	if su.LeafToSpineParallelLinks <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.ai_factory_su.leaf_to_spine_parallel_links", "must be > 0"))
	}

	if !validRoutingModes[c.Topology.Routing.Mode] {
		result = multierror.Append(result, simerrors.NewConfigError("topology.routing.mode", "must be one of ecmp, adaptive, flowlet"))
	}
	if c.Topology.Routing.EcmpFlowletNPackets < 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.routing.ecmp_flowlet_n_packets", "must be >= 0"))
	}

	if c.Topology.Links.FailurePercent < 0 || c.Topology.Links.FailurePercent >= 100 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.links.failure_percent", "must be in [0, 100)"))
	}
	if c.Topology.Links.BandwidthBPS.ServerToLeaf <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.links.bandwidth_bps.server_to_leaf", "must be > 0"))
	}
	if c.Topology.Links.BandwidthBPS.LeafToSpine <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.links.bandwidth_bps.leaf_to_spine", "must be > 0"))
	}

	if c.Topology.MTU <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.mtu", "must be > 0"))
	}
	if c.Topology.TTL <= 0 {
		result = multierror.Append(result, simerrors.NewConfigError("topology.ttl", "must be > 0"))
	}

	if c.Scenario.Params.Mice.Enabled {
		m := c.Scenario.Params.Mice
		if m.InterarrivalS <= 0 {
			result = multierror.Append(result, simerrors.NewConfigError("scenario.params.mice.interarrival_s", "must be > 0"))
		}
		if m.EndTimeS <= m.StartDelayS {
			result = multierror.Append(result, simerrors.NewConfigError("scenario.params.mice.end_time_s", "must be > start_delay_s"))
		}
		if m.MinPackets <= 0 || m.MaxPackets < m.MinPackets {
			result = multierror.Append(result, simerrors.NewConfigError("scenario.params.mice.min_packets/max_packets", "must satisfy 0 < min <= max"))
		}
	}

	if result != nil {
		return result.ErrorOrNil()
	}
	return nil
}
