package relay

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/auntie-care/auntie-voice/internal/calls"
)

func TestStateStreamIDIsSetOnce(t *testing.T) {
	s := NewState()
	if _, ok := s.StreamID(); ok {
		t.Fatalf("new state should not have a stream id")
	}
	if got, fresh := s.SetStreamID("CA123"); got != "CA123" || !fresh {
		t.Fatalf("SetStreamID() = %q, %v; want CA123, true", got, fresh)
	}
	if got, fresh := s.SetStreamID("CA999"); got != "CA123" || fresh {
		t.Fatalf("second SetStreamID() = %q, %v; want CA123, false", got, fresh)
	}
}

func TestStateMarkGreetedConcurrent(t *testing.T) {
	s := NewState()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkGreeted() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("MarkGreeted won %d times, want 1", wins.Load())
	}
	if !s.Greeted() {
		t.Fatalf("Greeted() = false after MarkGreeted")
	}
}

func TestStatePhaseOnlyMovesForward(t *testing.T) {
	s := NewState()
	if s.Phase() != calls.PhaseConnecting {
		t.Fatalf("initial phase = %q", s.Phase())
	}
	if !s.SetPhase(calls.PhaseActive) {
		t.Fatalf("SetPhase(active) = false")
	}
	if !s.SetPhase(calls.PhaseClosed) {
		t.Fatalf("SetPhase(closed) = false")
	}
	if s.SetPhase(calls.PhaseClosing) {
		t.Fatalf("SetPhase(closing) after closed = true")
	}
	if s.Phase() != calls.PhaseClosed {
		t.Fatalf("phase = %q, want closed", s.Phase())
	}
}

func TestStateFinishKeepsFirstReason(t *testing.T) {
	s := NewState()
	s.Finish(calls.ReasonCarrierStop)
	s.Finish(calls.ReasonRealtimeError)
	if got := s.Reason(); got != calls.ReasonCarrierStop {
		t.Fatalf("Reason() = %q, want %q", got, calls.ReasonCarrierStop)
	}
}
