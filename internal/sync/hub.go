package sync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"repairdesk_backend/internal/common"
)

// Member is the type-erased view of a domain controller the hub needs.
type Member interface {
	Domain() string
	State() State
	// RefreshSilent runs a background refresh; failures are already
	// swallowed by the controller.
	RefreshSilent(ctx context.Context) error
	// RetryFailed re-runs the blocking load after the domain entered the
	// error state.
	RetryFailed(ctx context.Context) error
}

// Status is one domain's lifecycle state for reporting.
type Status struct {
	Domain string `json:"domain"`
	State  State  `json:"state"`
}

// Hub keeps the controllers of all data domains together so periodic
// revalidation and status reporting can treat them uniformly.
type Hub struct {
	mu      sync.Mutex
	members []Member
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger}
}

// Register adds a domain controller.
func (h *Hub) Register(m Member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members = append(h.members, m)
}

// Statuses reports the state of every registered domain.
func (h *Hub) Statuses() []Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	statuses := make([]Status, 0, len(h.members))
	for _, m := range h.members {
		statuses = append(statuses, Status{Domain: m.Domain(), State: m.State()})
	}
	return statuses
}

// Retry re-runs the blocking load for one domain after it got stuck in the
// error state. The error surfaces so the caller can report the outcome.
func (h *Hub) Retry(ctx context.Context, domain string) error {
	h.mu.Lock()
	var member Member
	for _, m := range h.members {
		if m.Domain() == domain {
			member = m
			break
		}
	}
	h.mu.Unlock()

	if member == nil {
		return common.ErrNotFound.WithDetails("Unknown sync domain: " + domain)
	}
	return member.RetryFailed(ctx)
}

// RefreshAll revalidates every domain in the background. Used by the
// periodic refresh job; stale data stays visible throughout.
func (h *Hub) RefreshAll(ctx context.Context) {
	h.mu.Lock()
	members := make([]Member, len(h.members))
	copy(members, h.members)
	h.mu.Unlock()

	for _, m := range members {
		if err := m.RefreshSilent(ctx); err != nil {
			h.logger.Warn("Silent refresh reported an error",
				zap.String("domain", m.Domain()), zap.Error(err))
		}
	}
}
