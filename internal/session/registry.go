// File: internal/session/registry.go
package session

import (
	"context"
	"sync"

	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry keeps one lifecycle Manager per signed-in actor. Sign-in drives
// the manager through profile resolution; sign-out disposes it and runs the
// registered hooks, so per-actor state held elsewhere is released with the
// session instead of leaking for the process lifetime.
type Registry struct {
	mu         sync.Mutex
	managers   map[uuid.UUID]*Manager
	hooks      []func(uuid.UUID)
	profileSvc shared.ProfileService
	logger     *zap.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(profileSvc shared.ProfileService, logger *zap.Logger) *Registry {
	return &Registry{
		managers:   make(map[uuid.UUID]*Manager),
		profileSvc: profileSvc,
		logger:     logger.Named("session"),
	}
}

// OnSignOut registers a hook invoked with the actor ID after their session
// ends. Register hooks during wiring, before traffic arrives.
func (r *Registry) OnSignOut(hook func(uuid.UUID)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// SignIn resolves the actor's profile, creating the row when the identity
// has none yet, and moves their manager to the signed-in ready state. A
// repeated sign-in reuses the existing manager.
func (r *Registry) SignIn(ctx context.Context, claims *shared.Claims) (*Manager, error) {
	r.mu.Lock()
	m, ok := r.managers[claims.UserID]
	if !ok {
		m = NewManager(r.profileSvc, r.logger)
		r.managers[claims.UserID] = m
	}
	r.mu.Unlock()

	if err := m.Initialize(ctx, claims); err != nil {
		return m, err
	}
	return m, nil
}

// ManagerFor returns the actor's live manager, or nil when signed out.
func (r *Registry) ManagerFor(actorID uuid.UUID) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.managers[actorID]
}

// SignOut moves the actor's manager to the signed-out state, disposes it
// and runs the sign-out hooks. Unknown actors still get their hooks run;
// a tracker may outlive a manager the process never saw sign in.
func (r *Registry) SignOut(actorID uuid.UUID) {
	r.mu.Lock()
	m, ok := r.managers[actorID]
	delete(r.managers, actorID)
	hooks := make([]func(uuid.UUID), len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.Unlock()

	if ok {
		m.SignOut()
		m.Dispose()
	}
	for _, hook := range hooks {
		hook(actorID)
	}
}
