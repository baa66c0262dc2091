package relay

import (
	"sync"

	"github.com/auntie-care/auntie-voice/internal/calls"
)

// State is the per-call data shared by the inbound and outbound tasks.
// The inbound task writes streamID and greeted; the outbound task reads
// streamID concurrently, so every field sits behind mu.
type State struct {
	mu       sync.Mutex
	streamID string
	greeted  bool
	phase    calls.Phase
	reason   string
}

func NewState() *State {
	return &State{phase: calls.PhaseConnecting}
}

// SetStreamID records the carrier stream identifier. It is immutable once set:
// later calls return the original value and false.
func (s *State) SetStreamID(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamID != "" {
		return s.streamID, false
	}
	s.streamID = id
	return id, true
}

func (s *State) StreamID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID, s.streamID != ""
}

// MarkGreeted flips greeted and reports whether this call did the flip.
func (s *State) MarkGreeted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.greeted {
		return false
	}
	s.greeted = true
	return true
}

func (s *State) Greeted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greeted
}

func (s *State) Phase() calls.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetPhase moves the lifecycle forward. Phases never move backwards.
func (s *State) SetPhase(p calls.Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if phaseRank(p) <= phaseRank(s.phase) {
		return false
	}
	s.phase = p
	return true
}

// Finish records why the call ended. The first reason wins.
func (s *State) Finish(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == "" {
		s.reason = reason
	}
}

func (s *State) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func phaseRank(p calls.Phase) int {
	switch p {
	case calls.PhaseConnecting:
		return 0
	case calls.PhaseActive:
		return 1
	case calls.PhaseClosing:
		return 2
	case calls.PhaseClosed:
		return 3
	default:
		return -1
	}
}
