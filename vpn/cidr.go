package vpn

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultRange is the OpenVPN default tunnel subnet.
const DefaultRange = "10.8.0.0/24"

// Range is an IPv4 network compared with 32-bit masks.
type Range struct {
	base uint32
	mask uint32
	text string
}

// ParseRange parses "a.b.c.d/n". The base address need not be the network address.
func ParseRange(cidr string) (Range, error) {
	addr, prefix, ok := strings.Cut(strings.TrimSpace(cidr), "/")
	if !ok {
		return Range{}, fmt.Errorf("invalid vpn range %q: missing prefix length", cidr)
	}
	base, ok := ipv4ToUint32(addr)
	if !ok {
		return Range{}, fmt.Errorf("invalid vpn range %q: not an IPv4 address", cidr)
	}
	bits, err := strconv.Atoi(prefix)
	if err != nil || bits < 0 || bits > 32 {
		return Range{}, fmt.Errorf("invalid vpn range %q: bad prefix length", cidr)
	}
	var mask uint32
	if bits > 0 {
		mask = ^uint32(0) << (32 - bits)
	}
	return Range{base: base, mask: mask, text: cidr}, nil
}

// Contains reports whether ip falls inside the range. IPv6, "unknown" and
// malformed addresses are never contained.
func (r Range) Contains(ip string) bool {
	v, ok := ipv4ToUint32(ip)
	if !ok {
		return false
	}
	return v&r.mask == r.base&r.mask
}

func (r Range) String() string { return r.text }

// InRange is the stateless form of ParseRange(cidr).Contains(ip).
func InRange(ip, cidr string) bool {
	rng, err := ParseRange(cidr)
	if err != nil {
		return false
	}
	return rng.Contains(ip)
}

func ipv4ToUint32(s string) (uint32, bool) {
	parsed := net.ParseIP(strings.TrimSpace(s))
	if parsed == nil || !strings.Contains(s, ".") {
		return 0, false
	}
	v4 := parsed.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

// isLoopbackOrUnknown matches the addresses a local development client presents.
func isLoopbackOrUnknown(ip string) bool {
	switch ip {
	case "127.0.0.1", "::1", UnknownIP, "":
		return true
	}
	return false
}
