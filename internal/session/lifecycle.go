// File: internal/session/lifecycle.go
package session

import (
	"context"
	"sync"

	"repairdesk_backend/internal/shared"

	"go.uber.org/zap"
)

// State tracks the lifecycle of a session manager.
type State string

const (
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateDisposed     State = "disposed"
)

// Change describes a session transition delivered to listeners.
type Change struct {
	Profile *shared.Profile // nil when signed out
	State   State
}

// Listener receives session changes. Listeners run synchronously under the
// manager's notification path and must return quickly.
type Listener func(Change)

// Manager owns the current authenticated profile for a connected client and
// broadcasts sign-in/sign-out transitions. A manager starts in the
// initializing state; consumers treat anything before ready as "loading".
// Once disposed, late profile resolutions and further transitions are
// ignored.
type Manager struct {
	mu         sync.Mutex
	state      State
	current    *shared.Profile
	listeners  map[uint64]Listener
	nextID     uint64
	profileSvc shared.ProfileService
	logger     *zap.Logger
}

// NewManager creates a session manager in the initializing state.
func NewManager(profileSvc shared.ProfileService, logger *zap.Logger) *Manager {
	return &Manager{
		state:      StateInitializing,
		listeners:  make(map[uint64]Listener),
		profileSvc: profileSvc,
		logger:     logger.Named("session"),
	}
}

// Initialize resolves the profile for an already-authenticated identity and
// moves the manager to ready. With nil claims the manager becomes ready in
// the signed-out state. Initialize is a no-op on a disposed manager.
func (m *Manager) Initialize(ctx context.Context, claims *shared.Claims) error {
	if claims == nil {
		m.transition(nil, StateReady)
		return nil
	}

	resolved, err := m.profileSvc.FetchOrCreate(ctx, claims.UserID, claims.Email)
	if err != nil {
		m.logger.Error("Session initialization failed", zap.Error(err), zap.String("profileID", claims.UserID.String()))
		m.transition(nil, StateReady)
		return err
	}

	m.transition(resolved, StateReady)
	return nil
}

// SignIn installs the given profile as the current session.
func (m *Manager) SignIn(p *shared.Profile) {
	m.transition(p, StateReady)
}

// SignOut clears the current session.
func (m *Manager) SignOut() {
	m.transition(nil, StateReady)
}

// Current returns the current profile (nil when signed out) and state.
func (m *Manager) Current() (*shared.Profile, State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.state
}

// Loading reports whether session resolution is still in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateInitializing
}

// OnChange registers a listener for session transitions. The returned
// function removes the listener and is safe to call more than once.
func (m *Manager) OnChange(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Dispose permanently shuts the manager down. Listeners are dropped and any
// in-flight initialization that lands afterwards is discarded.
func (m *Manager) Dispose() {
	m.mu.Lock()
	m.state = StateDisposed
	m.current = nil
	m.listeners = make(map[uint64]Listener)
	m.mu.Unlock()
}

func (m *Manager) transition(p *shared.Profile, next State) {
	m.mu.Lock()
	if m.state == StateDisposed {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.current = p
	snapshot := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		snapshot = append(snapshot, fn)
	}
	m.mu.Unlock()

	change := Change{Profile: p, State: next}
	for _, fn := range snapshot {
		fn(change)
	}
}
