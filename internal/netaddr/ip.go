// Package netaddr implements the packet & routing primitives of spec.md
// §4.2: dotted-quad IPv4 addressing, longest-prefix-match routing tables,
// and the deterministic five-tuple hash used by ECMP/flowlet routing.
package netaddr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// IP is a 32-bit unsigned address, per spec.md's Data Model.
type IP uint32

// ParseIP parses a dotted-quad string ("10.0.1.2") into an IP.
func ParseIP(s string) (IP, error) {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return 0, errors.Errorf("netaddr: %q is not a dotted-quad address", s)
	}
	var v uint32
	for _, o := range octets {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 || n > 255 {
			return 0, errors.Errorf("netaddr: invalid octet %q in address %q", o, s)
		}
		v = v<<8 | uint32(n)
	}
	return IP(v), nil
}

// MustParseIP is ParseIP for call sites building fixed topologies where a
// malformed literal is a programming error, not a runtime condition.
func MustParseIP(s string) IP {
	ip, err := ParseIP(s)
	if err != nil {
		panic(err)
	}
	return ip
}

// String renders the address back to dotted-quad form.
func (ip IP) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}

// Prefix is a (network, length) pair: the address masked to its first
// Length bits, plus that bit count.
type Prefix struct {
	Network IP
	Length  int
}

// mask returns the Length-bit network mask as a 32-bit value.
func (p Prefix) mask() uint32 {
	if p.Length <= 0 {
		return 0
	}
	if p.Length >= 32 {
		return 0xFFFFFFFF
	}
	return uint32(0xFFFFFFFF) << (32 - p.Length)
}

// Contains reports whether ip falls within the prefix.
func (p Prefix) Contains(ip IP) bool {
	m := p.mask()
	return uint32(ip)&m == uint32(p.Network)&m
}

func (p Prefix) String() string {
	return fmt.Sprintf("%s/%d", p.Network, p.Length)
}
