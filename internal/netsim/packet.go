// Package netsim implements the network fabric of spec.md §4.3: links,
// ports, hosts, switches, routing mode dispatch, and the Clos topology
// builder for the "ai_factory_su" scalable unit (SPEC_FULL.md §13).
package netsim

import "github.com/aifabric/netsim/internal/netaddr"

// Packet is the unit the fabric moves. It carries the fields spec.md's
// §4.3.4 Host.send_message and §4.3.3 Switch.select_port_for_packet need:
// flow identity for completion accounting, the five-tuple for hashing, and
// a mutable FlowletField that flowlet routing perturbs on reroute.
type Packet struct {
	FlowID       int
	FlowCount    int
	FlowSeq      int
	SrcIP        netaddr.IP
	DstIP        netaddr.IP
	SrcPort      uint16
	DstPort      uint16
	Protocol     uint8
	SizeBytes    int
	TTL          int
	FlowletField uint32
}

// FiveTuple extracts the routing-relevant identity of the packet.
func (p *Packet) FiveTuple() netaddr.FiveTuple {
	return netaddr.FiveTuple{
		SrcIP: p.SrcIP, DstIP: p.DstIP,
		SrcPort: p.SrcPort, DstPort: p.DstPort,
		Protocol: p.Protocol, FlowletField: p.FlowletField,
	}
}
