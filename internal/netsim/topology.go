package netsim

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/netaddr"
)

// AIFactorySUDesc is the plain, serializable shape of the
// topology.ai_factory_su configuration group (spec.md §6), following the
// teacher's Frame/Desc split (desc-topo.go): Desc types are what get
// loaded from YAML, Frame types do the building.
type AIFactorySUDesc struct {
	Leaves                   int
	Spines                   int
	ServersPerLeaf           int
	ServerParallelLinks      int
	LeafToSpineParallelLinks int
	BandwidthServerToLeafBPS float64
	BandwidthLeafToSpineBPS  float64
	PropagationDelayS        float64
	MTU                      int
	TTL                      int
	FailurePercent           float64
	Mode                     RoutingMode
	FlowletThresholdPackets  int
	FlowletIdleGapS          float64
	Seed                     uint64
}

// AIFactorySUFrame builds a runtime Topology from an AIFactorySUDesc,
// mirroring the teacher's CreateXFrame / Transform builder idiom while
// specialized to the one concrete topology shape SPEC_FULL.md §13 names.
type AIFactorySUFrame struct {
	Desc AIFactorySUDesc
}

// Topology is the built network: every host, switch, link, and the LPM
// routing tables populated for deterministic ECMP/adaptive/flowlet
// dispatch. Hosts and switches are addressed by stable slice index, per
// spec.md §9's "arena + index" guidance — no pointer cycles.
type Topology struct {
	Hosts    []*Host
	Switches []*Switch
	Links    []*Link
}

// graph node-id layout: hosts first, then leaves, then spines. Kept as a
// closed numbering scheme rather than a map so the topology graph build is
// allocation-light and deterministic.
type nodeSpace struct {
	numHosts, numLeaves, numSpines int
}

func (ns nodeSpace) hostNode(i int) int64  { return int64(i) }
func (ns nodeSpace) leafNode(i int) int64  { return int64(ns.numHosts + i) }
func (ns nodeSpace) spineNode(i int) int64 { return int64(ns.numHosts + ns.numLeaves + i) }

// edgeLinks records, for one graph edge (a pair of device nodes), every
// physical parallel Link/port connecting them — ECMP/flowlet/adaptive
// candidate sets are built from these, not from the single logical graph
// edge gonum sees.
type edgeLinks struct {
	fromNode int64   // graph node id the link was first added from
	toNode   int64   // graph node id the link was first added to
	fromPort []int   // port index on fromNode's device, one per parallel link
	toPort   []int   // port index on toNode's device, one per parallel link
	links    []*Link // the physical links themselves, same order as fromPort
}

// portsOn returns the parallel-link ports attached to node's own device,
// regardless of whether node was the "from" or "to" side when the edge was
// first recorded — edgeKey normalizes node order, so a lookup from either
// endpoint must still resolve to the right port set.
func (el *edgeLinks) portsOn(node int64) []int {
	if node == el.fromNode {
		return el.fromPort
	}
	return el.toPort
}

// anyLive reports whether at least one of the parallel physical links
// backing this graph edge is not failed.
func (el *edgeLinks) anyLive() bool {
	for _, l := range el.links {
		if !l.Failed {
			return true
		}
	}
	return false
}

// Build constructs the full topology: addressing, devices, physical links,
// the shortest-path graph, and per-switch LPM tables, then injects link
// failures and verifies the result is still connected.
func (f *AIFactorySUFrame) Build() (*Topology, error) {
	d := f.Desc
	if d.Leaves <= 0 || d.Spines <= 0 || d.ServersPerLeaf <= 0 {
		return nil, errors.New("netsim: ai_factory_su requires leaves, spines, servers_per_leaf > 0")
	}
	if d.ServerParallelLinks <= 0 {
		d.ServerParallelLinks = 1
	}
	if d.LeafToSpineParallelLinks <= 0 {
		d.LeafToSpineParallelLinks = 1
	}
	if d.FailurePercent >= 100 {
		return nil, errors.New("netsim: failure_percent=100 would disconnect the fabric; builders must fail loudly")
	}

	ns := nodeSpace{numHosts: d.Leaves * d.ServersPerLeaf, numLeaves: d.Leaves, numSpines: d.Spines}
	t := &Topology{}
	g := simple.NewUndirectedGraph()

	leafPrefixes := make([]netaddr.Prefix, d.Leaves)
	for l := 0; l < d.Leaves; l++ {
		leafPrefixes[l] = netaddr.Prefix{Network: netaddr.IP(uint32(10)<<24 | uint32(l)<<8), Length: 24}
	}

	for l := 0; l < d.Leaves; l++ {
		for srv := 0; srv < d.ServersPerLeaf; srv++ {
			idx := l*d.ServersPerLeaf + srv
			ip := netaddr.IP(uint32(leafPrefixes[l].Network) | uint32(srv+1))
			t.Hosts = append(t.Hosts, &Host{
				ID: idx, Name: fmt.Sprintf("host-%d-%d", l, srv),
				IP: ip, MTU: d.MTU, DefaultTTL: d.TTL,
			})
			g.AddNode(simple.Node(ns.hostNode(idx)))
		}
	}
	for l := 0; l < d.Leaves; l++ {
		t.Switches = append(t.Switches, NewSwitch(l, fmt.Sprintf("leaf-%d", l), d.Mode))
		t.Switches[l].FlowletThresholdPackets = d.FlowletThresholdPackets
		t.Switches[l].FlowletIdleGapS = d.FlowletIdleGapS
		g.AddNode(simple.Node(ns.leafNode(l)))
	}
	for sp := 0; sp < d.Spines; sp++ {
		sw := NewSwitch(d.Leaves+sp, fmt.Sprintf("spine-%d", sp), d.Mode)
		sw.FlowletThresholdPackets = d.FlowletThresholdPackets
		sw.FlowletIdleGapS = d.FlowletIdleGapS
		t.Switches = append(t.Switches, sw)
		g.AddNode(simple.Node(ns.spineNode(sp)))
	}

	edges := make(map[[2]int64]*edgeLinks)
	addLink := func(fromDev, toDev devEndpoint, bps float64, fromNode, toNode int64) {
		l := &Link{
			Name:              fmt.Sprintf("%s<->%s#%d", fromDev.name(), toDev.name(), len(t.Links)),
			BandwidthBPS:      bps,
			PropagationDelayS: d.PropagationDelayS,
		}
		t.Links = append(t.Links, l)
		fromPort := fromDev.addPort(l, DirAtoB, toDev.deliver())
		toPort := toDev.addPort(l, DirBtoA, fromDev.deliver())
		key := edgeKey(fromNode, toNode)
		el := edges[key]
		if el == nil {
			el = &edgeLinks{fromNode: fromNode, toNode: toNode}
			edges[key] = el
			g.SetEdge(g.NewEdge(simple.Node(fromNode), simple.Node(toNode)))
		}
		el.fromPort = append(el.fromPort, fromPort)
		el.toPort = append(el.toPort, toPort)
		el.links = append(el.links, l)
	}

	for l := 0; l < d.Leaves; l++ {
		leaf := t.Switches[l]
		for srv := 0; srv < d.ServersPerLeaf; srv++ {
			hostIdx := l*d.ServersPerLeaf + srv
			host := t.Hosts[hostIdx]
			for k := 0; k < d.ServerParallelLinks; k++ {
				addLink(hostEndpoint{host}, switchEndpoint{leaf}, d.BandwidthServerToLeafBPS,
					ns.hostNode(hostIdx), ns.leafNode(l))
			}
		}
	}
	leafToSpineStart := len(t.Links)
	for l := 0; l < d.Leaves; l++ {
		leaf := t.Switches[l]
		for sp := 0; sp < d.Spines; sp++ {
			spine := t.Switches[d.Leaves+sp]
			for k := 0; k < d.LeafToSpineParallelLinks; k++ {
				addLink(switchEndpoint{leaf}, switchEndpoint{spine}, d.BandwidthLeafToSpineBPS,
					ns.leafNode(l), ns.spineNode(sp))
			}
		}
	}

	// only leaf-to-spine links are failure candidates: a server-to-leaf
	// link is a host's sole connection, so failing it isn't "a configurable
	// fraction of non-critical links" (spec.md §4.3.5) but a disconnection.
	if err := injectFailures(t.Links[leafToSpineStart:], d.FailurePercent, d.Seed); err != nil {
		return nil, err
	}

	allShortest := path.DijkstraAllPaths(g)
	for swIdx, sw := range t.Switches {
		swNode := switchGraphNode(ns, d, swIdx)
		for leafIdx, prefix := range leafPrefixes {
			destNode := ns.leafNode(leafIdx)
			if swNode == destNode {
				// hosts on this leaf are reached directly, not via the graph
				for srv := 0; srv < d.ServersPerLeaf; srv++ {
					hostIdx := leafIdx*d.ServersPerLeaf + srv
					key := edgeKey(swNode, ns.hostNode(hostIdx))
					if el, ok := edges[key]; ok {
						for _, port := range el.portsOn(swNode) {
							sw.Routes.Insert(netaddr.Prefix{Network: t.Hosts[hostIdx].IP, Length: 32}, port)
						}
					}
				}
				continue
			}
			paths, _ := allShortest.AllBetween(swNode, destNode)
			for _, p := range paths {
				if len(p) < 2 {
					continue
				}
				nextHop := p[1].ID()
				key := edgeKey(swNode, nextHop)
				el, ok := edges[key]
				if !ok {
					continue
				}
				for _, port := range el.portsOn(swNode) {
					sw.Routes.Insert(prefix, port)
				}
			}
		}
	}

	if err := verifyConnected(g, edges); err != nil {
		return nil, err
	}
	return t, nil
}

func switchGraphNode(ns nodeSpace, d AIFactorySUDesc, swIdx int) int64 {
	if swIdx < d.Leaves {
		return ns.leafNode(swIdx)
	}
	return ns.spineNode(swIdx - d.Leaves)
}

// edgeKey is order-independent: the graph is undirected, but addLink and
// the route builder query it from both endpoints, and edgeLinks.portsOn
// resolves the correct side's ports once the lookup succeeds regardless of
// which order the original edge was added in.
func edgeKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

// devEndpoint abstracts over Host/Switch so addLink can attach a port to
// either without a type switch at every call site. addPort's farDeliver is
// the packet handler of the device at the other end of the link.
type devEndpoint interface {
	name() string
	deliver() func(s *des.Scheduler, pkt *Packet) error
	addPort(l *Link, dir int, farDeliver func(s *des.Scheduler, pkt *Packet) error) int
}

type hostEndpoint struct{ h *Host }

func (e hostEndpoint) name() string                                       { return e.h.Name }
func (e hostEndpoint) deliver() func(s *des.Scheduler, pkt *Packet) error { return e.h.Deliver }
func (e hostEndpoint) addPort(l *Link, dir int, farDeliver func(s *des.Scheduler, pkt *Packet) error) int {
	p := &Port{Index: 0, Link: l, Dir: dir, Deliver: farDeliver}
	e.h.OutPort = p
	return 0
}

type switchEndpoint struct{ s *Switch }

func (e switchEndpoint) name() string                                       { return e.s.Name }
func (e switchEndpoint) deliver() func(s *des.Scheduler, pkt *Packet) error { return e.s.OnPacket }
func (e switchEndpoint) addPort(l *Link, dir int, farDeliver func(s *des.Scheduler, pkt *Packet) error) int {
	idx := len(e.s.Ports)
	p := &Port{Index: idx, Link: l, Dir: dir, Deliver: farDeliver}
	e.s.Ports = append(e.s.Ports, p)
	return idx
}

// verifyConnected enforces spec.md §4.3.5: a failed link must never be the
// only path to a reachable destination. It rebuilds the topology graph
// keeping only edges with at least one live parallel link, then checks the
// result is a single connected component.
func verifyConnected(full graph.Graph, edges map[[2]int64]*edgeLinks) error {
	live := simple.NewUndirectedGraph()
	nodes := full.Nodes()
	for nodes.Next() {
		live.AddNode(nodes.Node())
	}
	for key, el := range edges {
		if !el.anyLive() {
			continue
		}
		live.SetEdge(live.NewEdge(simple.Node(key[0]), simple.Node(key[1])))
	}
	components := topo.ConnectedComponents(live)
	if len(components) != 1 {
		return errors.Errorf("netsim: topology is not fully connected after failure injection (%d components)", len(components))
	}
	return nil
}
