package peeraddr

import (
	"net/netip"
	"strings"

	"github.com/pion/ice/v4"
)

const candidatePrefix = "candidate:"

// ParseCandidate extracts the connection address and port from an ICE
// candidate attribute line:
//
//	candidate:<foundation> <component> <protocol> <priority> <address> <port> typ <type> ...
//
// The "candidate:" prefix is optional. The address must be an IP literal and
// the port non-zero; mDNS hostnames and any line that does not match the
// grammar yield ok=false.
func ParseCandidate(line string) (addr netip.AddrPort, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return netip.AddrPort{}, false
	}

	c, err := ice.UnmarshalCandidate(line)
	if err != nil {
		return netip.AddrPort{}, false
	}

	ip, err := netip.ParseAddr(c.Address())
	if err != nil {
		return netip.AddrPort{}, false
	}
	if c.Port() <= 0 || c.Port() > 65535 {
		return netip.AddrPort{}, false
	}

	return netip.AddrPortFrom(ip.Unmap(), uint16(c.Port())), true
}

// FormatCandidate renders a UDP host candidate line for addr, including the
// "candidate:" prefix.
func FormatCandidate(addr netip.AddrPort) (string, error) {
	c, err := ice.NewCandidateHost(&ice.CandidateHostConfig{
		Network:   "udp",
		Address:   addr.Addr().String(),
		Port:      int(addr.Port()),
		Component: ice.ComponentRTP,
	})
	if err != nil {
		return "", err
	}
	return candidatePrefix + c.Marshal(), nil
}
