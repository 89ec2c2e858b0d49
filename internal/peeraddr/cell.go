// Package peeraddr tracks the remote peer's transport address as learned
// from its ICE candidate.
package peeraddr

import (
	"net/netip"
	"sync"
)

// Unresolved is the text a State renders while the address is still unknown.
const Unresolved = "finding..."

// State is a snapshot of a Cell: either Finding or Found(addr).
type State struct {
	addr  netip.AddrPort
	found bool
}

// Finding is the unresolved State.
var Finding = State{}

// Found returns the resolved State for addr.
func Found(addr netip.AddrPort) State {
	return State{addr: addr, found: true}
}

// Addr returns the resolved address and whether the state is Found.
func (s State) Addr() (netip.AddrPort, bool) {
	return s.addr, s.found
}

// IsFound reports whether the address has been resolved.
func (s State) IsFound() bool { return s.found }

// String renders "ip:port" when Found and Unresolved otherwise.
func (s State) String() string {
	if !s.found {
		return Unresolved
	}
	return s.addr.String()
}

// Cell is a write-once slot shared between the signaling path and the
// keepalive tasks. A *Cell and every handle returned by Clone refer to the
// same state; once Found, a Cell never returns to Finding.
type Cell struct {
	shared *cellState
}

type cellState struct {
	mu    sync.RWMutex
	state State
}

// NewCell returns a Cell in the Finding state.
func NewCell() *Cell {
	return &Cell{shared: &cellState{}}
}

// Clone returns another handle to the same underlying state.
func (c *Cell) Clone() *Cell {
	return &Cell{shared: c.shared}
}

// Get returns the current state without blocking on writers for longer
// than a single assignment.
func (c *Cell) Get() State {
	c.shared.mu.RLock()
	defer c.shared.mu.RUnlock()
	return c.shared.state
}

// Set transitions the cell to Found(addr). Only the first call has any
// effect; it returns true when this call performed the transition.
func (c *Cell) Set(addr netip.AddrPort) bool {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()
	if c.shared.state.found {
		return false
	}
	c.shared.state = Found(addr)
	return true
}

// SetFromCandidate parses the address out of an ICE candidate line and
// stores it. Lines that do not parse leave the cell untouched.
func (c *Cell) SetFromCandidate(line string) bool {
	addr, ok := ParseCandidate(line)
	if !ok {
		return false
	}
	return c.Set(addr)
}
