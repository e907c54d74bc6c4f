// Package session owns one filter state per open dashboard.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio-engine/internal/filter"
	"portfolio-engine/internal/interaction"
	"portfolio-engine/internal/model"
	"portfolio-engine/internal/observability"
	"portfolio-engine/internal/store"
)

var ErrNotFound = errors.New("session not found")

const defaultTTL = 30 * time.Minute

type session struct {
	mu       sync.Mutex
	id       string
	state    filter.State
	seeded   bool
	last     *model.Dashboard
	lastSeen time.Time
}

// View is what a session call returns: the batch result and the
// dashboard rendered by the previous call, if any.
type View struct {
	SessionID string
	Result    interaction.Result
	Previous  *model.Dashboard
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	store   *store.Store
	ctrl    *interaction.Controller
	ttl     time.Duration
	metrics *observability.Metrics
	now     func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

func NewManager(st *store.Store, ctrl *interaction.Controller, ttl time.Duration, metrics *observability.Metrics) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{
		sessions:    make(map[string]*session),
		store:       st,
		ctrl:        ctrl,
		ttl:         ttl,
		metrics:     metrics,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
}

// Create opens a session and renders its first dashboard.
func (m *Manager) Create(ctx context.Context) View {
	s := &session{id: uuid.NewString(), lastSeen: m.now()}

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.metrics.SetActiveSessions(n)
	slog.Info("session created", "session_id", s.id, "active", n)

	s.mu.Lock()
	defer s.mu.Unlock()
	return m.run(s, func(snap store.Snapshot, st filter.State) interaction.Result {
		return m.ctrl.Render(ctx, snap, st)
	})
}

// Get re-renders the current state of a session.
func (m *Manager) Get(ctx context.Context, id string) (View, error) {
	return m.with(ctx, id, func(snap store.Snapshot, st filter.State) interaction.Result {
		return m.ctrl.Render(ctx, snap, st)
	})
}

// Apply processes a batch of events against a session's state.
func (m *Manager) Apply(ctx context.Context, id string, events []model.Event) (View, error) {
	return m.with(ctx, id, func(snap store.Snapshot, st filter.State) interaction.Result {
		return m.ctrl.Process(ctx, snap, st, events)
	})
}

func (m *Manager) Reset(ctx context.Context, id string) (View, error) {
	return m.with(ctx, id, func(snap store.Snapshot, st filter.State) interaction.Result {
		return m.ctrl.Reset(ctx, snap, st)
	})
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	m.metrics.SetActiveSessions(n)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) with(ctx context.Context, id string, fn func(store.Snapshot, filter.State) interaction.Result) (View, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return View{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return m.run(s, fn), nil
}

// run must be called with s.mu held.
func (m *Manager) run(s *session, fn func(store.Snapshot, filter.State) interaction.Result) View {
	snap := m.store.Snapshot()
	m.seed(s, snap)

	res := fn(snap, s.state)
	s.state = res.State
	if s.state.Age != nil {
		// a range set by the user counts as seeded
		s.seeded = true
	}

	prev := s.last
	d := res.Dashboard
	s.last = &d
	s.lastSeen = m.now()

	return View{SessionID: s.id, Result: res, Previous: prev}
}

// seed sets the age range from the first snapshot that has clients with
// a known age. Later snapshots never reseed.
func (m *Manager) seed(s *session, snap store.Snapshot) {
	if s.seeded || !snap.ClientsLoaded {
		return
	}
	r, ok := filter.ObservedAgeRange(snap.Clients)
	if !ok {
		return
	}
	s.state = s.state.WithAge(r)
	s.seeded = true
}

// Sweep removes sessions idle for longer than the TTL and returns how
// many were removed.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastSeen)
		s.mu.Unlock()
		if idle > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		m.metrics.SetActiveSessions(n)
		slog.Info("expired idle sessions", "removed", removed, "active", n)
	}
	return removed
}

// Start runs Sweep every interval until Stop is called.
func (m *Manager) Start(interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	go m.cleanupLoop(interval)
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
}
