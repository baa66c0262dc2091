package calls

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseConnecting Phase = "connecting"
	PhaseActive     Phase = "active"
	PhaseClosing    Phase = "closing"
	PhaseClosed     Phase = "closed"
)

const (
	ReasonCarrierStop         = "carrier_stop"
	ReasonCarrierClosed       = "carrier_closed"
	ReasonCarrierWriteFailed  = "carrier_write_failed"
	ReasonRealtimeError       = "realtime_closed"
	ReasonRealtimeWriteFailed = "realtime_write_failed"
	ReasonDialFailed          = "dial_failed"
	ReasonIdleTimeout         = "idle_timeout"
	ReasonShutdown            = "shutdown"
)

var ErrNotFound = errors.New("call not found")

// Call is a snapshot of one relayed phone call.
type Call struct {
	ID             string    `json:"call_id"`
	StreamSID      string    `json:"stream_sid,omitempty"`
	CallSID        string    `json:"call_sid,omitempty"`
	Phase          Phase     `json:"phase"`
	EndReason      string    `json:"end_reason,omitempty"`
	FramesIn       int64     `json:"frames_in"`
	FramesOut      int64     `json:"frames_out"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	EndedAt        time.Time `json:"ended_at,omitzero"`

	cancel context.CancelFunc
}

// Manager tracks live calls and ends the ones that stop exchanging frames.
// Ended calls are kept for retention so they stay visible to /v1/calls.
type Manager struct {
	mu                sync.RWMutex
	calls             map[string]*Call
	inactivityTimeout time.Duration
	retention         time.Duration
	onExpire          func(*Call)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 2 * time.Minute
	}
	return &Manager{
		calls:             make(map[string]*Call),
		inactivityTimeout: inactivityTimeout,
		retention:         5 * time.Minute,
	}
}

func (m *Manager) SetExpireHook(hook func(*Call)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create registers a new call. cancel is invoked when the janitor expires it.
func (m *Manager) Create(cancel context.CancelFunc) *Call {
	now := time.Now().UTC()
	c := &Call{
		ID:             uuid.NewString(),
		Phase:          PhaseConnecting,
		StartedAt:      now,
		LastActivityAt: now,
		cancel:         cancel,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[c.ID] = c
	return clone(c)
}

func (m *Manager) Get(callID string) (*Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.calls[callID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

// List returns all known calls, newest first.
func (m *Manager) List() []*Call {
	m.mu.RLock()
	out := make([]*Call, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, clone(c))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

func (m *Manager) BindStream(callID, streamSID, callSID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	if !ok {
		return ErrNotFound
	}
	c.StreamSID = streamSID
	c.CallSID = callSID
	c.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) SetPhase(callID string, phase Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	if !ok {
		return ErrNotFound
	}
	if c.Phase == PhaseClosed {
		return nil
	}
	c.Phase = phase
	return nil
}

// Touch records a relayed frame. inbound is true for carrier to AI traffic.
func (m *Manager) Touch(callID string, inbound bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	if !ok {
		return ErrNotFound
	}
	if inbound {
		c.FramesIn++
	} else {
		c.FramesOut++
	}
	c.LastActivityAt = time.Now().UTC()
	return nil
}

// End closes the call record. The first reason wins; later calls are no-ops.
func (m *Manager) End(callID, reason string) (*Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Phase != PhaseClosed {
		now := time.Now().UTC()
		c.Phase = PhaseClosed
		c.EndReason = reason
		c.EndedAt = now
		c.LastActivityAt = now
		c.cancel = nil
	}
	return clone(c), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.calls {
		if c.Phase != PhaseClosed {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var (
		expired []*Call
		cancels []context.CancelFunc
	)

	m.mu.Lock()
	for id, c := range m.calls {
		if c.Phase == PhaseClosed {
			if now.Sub(c.EndedAt) >= m.retention {
				delete(m.calls, id)
			}
			continue
		}
		if now.Sub(c.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		c.Phase = PhaseClosed
		c.EndReason = ReasonIdleTimeout
		c.EndedAt = now
		c.LastActivityAt = now
		if c.cancel != nil {
			cancels = append(cancels, c.cancel)
			c.cancel = nil
		}
		expired = append(expired, clone(c))
	}
	hook := m.onExpire
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if hook != nil {
		for _, c := range expired {
			hook(c)
		}
	}
}

func clone(c *Call) *Call {
	cp := *c
	cp.cancel = nil
	return &cp
}
