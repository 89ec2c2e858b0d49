package peeraddr

import (
	"net/netip"
	"sync"
	"testing"
)

// TestParseCandidateWellFormed verifies the parser returns the
// connection-address/port fields regardless of the other field values.
func TestParseCandidateWellFormed(t *testing.T) {
	testCases := []struct {
		name string
		line string
		want string
	}{
		{"host udp", "candidate:1 1 UDP 2122260223 192.0.2.5 54321 typ host", "192.0.2.5:54321"},
		{"no prefix", "1 1 udp 2122260223 192.0.2.5 54321 typ host", "192.0.2.5:54321"},
		{"lowercase protocol", "candidate:3 1 udp 100 198.51.100.20 9 typ host", "198.51.100.20:9"},
		{"different foundation and priority", "candidate:842163049 1 udp 1 192.0.2.5 54321 typ host", "192.0.2.5:54321"},
		{"rtcp component", "candidate:1 2 UDP 2122260222 192.0.2.5 54322 typ host", "192.0.2.5:54322"},
		{"srflx with related address", "candidate:4 1 udp 1677729535 203.0.113.7 61234 typ srflx raddr 10.0.0.5 rport 5000", "203.0.113.7:61234"},
		{"relay with related address", "candidate:5 1 udp 33562367 203.0.113.9 3478 typ relay raddr 203.0.113.7 rport 61234", "203.0.113.9:3478"},
		{"tcp active", "candidate:6 1 tcp 1518280447 192.0.2.9 9 typ host tcptype active", "192.0.2.9:9"},
		{"extensions", "candidate:1 1 udp 2122260223 192.0.2.5 54321 typ host generation 0 network-id 1", "192.0.2.5:54321"},
		{"ipv6", "candidate:7 1 udp 2122262783 2001:db8::1 50000 typ host", "[2001:db8::1]:50000"},
		{"surrounding whitespace", "  candidate:1 1 UDP 2122260223 192.0.2.5 54321 typ host \n", "192.0.2.5:54321"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, ok := ParseCandidate(tc.line)
			if !ok {
				t.Fatalf("ParseCandidate(%q) failed", tc.line)
			}
			if addr.String() != tc.want {
				t.Errorf("address = %s, want %s", addr, tc.want)
			}
		})
	}
}

// TestMalformedCandidateLeavesCellFinding verifies that unparsable lines
// neither error nor resolve the cell.
func TestMalformedCandidateLeavesCellFinding(t *testing.T) {
	testCases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"prefix only", "candidate:"},
		{"too few fields", "candidate:1 1 UDP 2122260223 192.0.2.5"},
		{"missing type", "candidate:1 1 UDP 2122260223 192.0.2.5 54321 typ"},
		{"non-numeric port", "candidate:1 1 UDP 2122260223 192.0.2.5 port typ host"},
		{"port out of range", "candidate:1 1 UDP 2122260223 192.0.2.5 70000 typ host"},
		{"port zero", "candidate:1 1 udp 2122260223 192.0.2.5 0 typ host"},
		{"non-numeric priority", "candidate:1 1 UDP high 192.0.2.5 54321 typ host"},
		{"typ keyword missing", "candidate:1 1 UDP 2122260223 192.0.2.5 54321 kind host"},
		{"unknown protocol", "candidate:1 1 SCTP 2122260223 192.0.2.5 54321 typ host"},
		{"hostname address", "candidate:1 1 UDP 2122260223 not-an-ip 54321 typ host"},
		{"mdns address", "candidate:1 1 UDP 2122260223 4f2a9c3e-1b7d-4e55-9c1a-0d6e3f1a2b3c.local 54321 typ host"},
		{"garbage", "this is not a candidate"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cell := NewCell()
			if cell.SetFromCandidate(tc.line) {
				t.Fatalf("SetFromCandidate(%q) reported a transition", tc.line)
			}
			if got := cell.Get(); got.IsFound() {
				t.Fatalf("cell = %s, want Finding", got)
			}
		})
	}
}

func TestScenarioCandidateResolvesCell(t *testing.T) {
	cell := NewCell()
	if !cell.SetFromCandidate("candidate:1 1 UDP 2122260223 192.0.2.5 54321 typ host") {
		t.Fatal("expected transition to Found")
	}

	want := netip.MustParseAddrPort("192.0.2.5:54321")
	got, ok := cell.Get().Addr()
	if !ok || got != want {
		t.Fatalf("cell = %v (found=%v), want Found(%s)", got, ok, want)
	}
}

// TestCellNeverRevertsToFinding drives the cell through mixed call
// sequences and checks that Found is sticky and the first address wins.
func TestCellNeverRevertsToFinding(t *testing.T) {
	first := "candidate:1 1 UDP 2122260223 192.0.2.5 54321 typ host"
	second := "candidate:2 1 UDP 2122260223 198.51.100.1 1000 typ host"
	bad := "candidate:1 1 UDP"

	sequences := [][]string{
		{first, bad},
		{bad, first, bad, second},
		{first, second, first},
		{bad, bad, first},
	}

	for i, seq := range sequences {
		cell := NewCell()
		var resolved State
		for _, line := range seq {
			cell.SetFromCandidate(line)
			state := cell.Get()
			if resolved.IsFound() && state != resolved {
				t.Fatalf("sequence %d: cell changed from %s to %s after %q", i, resolved, state, line)
			}
			if state.IsFound() {
				resolved = state
			}
		}
		if got := cell.Get().String(); got != "192.0.2.5:54321" {
			t.Errorf("sequence %d: cell = %s, want first parsed address", i, got)
		}
	}
}

func TestSetIsWriteOnce(t *testing.T) {
	cell := NewCell()
	a := netip.MustParseAddrPort("192.0.2.5:54321")
	b := netip.MustParseAddrPort("198.51.100.1:1000")

	if !cell.Set(a) {
		t.Fatal("first Set should transition")
	}
	if cell.Set(b) {
		t.Fatal("second Set should be a no-op")
	}
	if got, _ := cell.Get().Addr(); got != a {
		t.Errorf("cell = %s, want %s", got, a)
	}
}

func TestStateString(t *testing.T) {
	if got := Finding.String(); got != Unresolved {
		t.Errorf("Finding.String() = %q, want %q", got, Unresolved)
	}
	if got := Found(netip.MustParseAddrPort("192.0.2.5:54321")).String(); got != "192.0.2.5:54321" {
		t.Errorf("Found.String() = %q", got)
	}
}

// TestCloneSharesState verifies clones are handles, not copies.
func TestCloneSharesState(t *testing.T) {
	cell := NewCell()
	reader1 := cell.Clone()
	reader2 := reader1.Clone()

	if reader1.Get().IsFound() || reader2.Get().IsFound() {
		t.Fatal("clones resolved before Set")
	}

	reader2.Set(netip.MustParseAddrPort("192.0.2.5:54321"))

	for i, c := range []*Cell{cell, reader1, reader2} {
		if got := c.Get().String(); got != "192.0.2.5:54321" {
			t.Errorf("handle %d = %s, want 192.0.2.5:54321", i, got)
		}
	}
}

// TestConcurrentReadersObserveMonotonicState runs readers against a single
// writer; each reader must never see Finding after having seen Found.
func TestConcurrentReadersObserveMonotonicState(t *testing.T) {
	cell := NewCell()
	const readers = 8
	const reads = 2000

	var wg sync.WaitGroup
	errs := make(chan string, readers)

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func(c *Cell) {
			defer wg.Done()
			seen := false
			for n := 0; n < reads; n++ {
				found := c.Get().IsFound()
				if seen && !found {
					errs <- "reader observed Found then Finding"
					return
				}
				seen = seen || found
			}
		}(cell.Clone())
	}

	cell.SetFromCandidate("candidate:1 1 UDP 2122260223 192.0.2.5 54321 typ host")
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}

// TestFormatParseRoundTrip verifies that formatting an address as a host
// candidate and parsing it back yields the same address.
func TestFormatParseRoundTrip(t *testing.T) {
	addrs := []string{
		"192.0.2.5:54321",
		"127.0.0.1:14192",
		"10.0.0.1:1",
		"203.0.113.255:65535",
		"[2001:db8::1]:50000",
		"[::1]:9",
	}

	for _, s := range addrs {
		t.Run(s, func(t *testing.T) {
			want := netip.MustParseAddrPort(s)
			line, err := FormatCandidate(want)
			if err != nil {
				t.Fatalf("FormatCandidate: %v", err)
			}
			got, ok := ParseCandidate(line)
			if !ok {
				t.Fatalf("ParseCandidate(%q) failed", line)
			}
			if got != want {
				t.Errorf("round trip = %s, want %s (line %q)", got, want, line)
			}
		})
	}
}
