// File: internal/sync/controller.go
package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/config"

	"go.uber.org/zap"
)

// State is the fetch-lifecycle state of one data domain.
type State string

const (
	StateIdle              State = "idle"
	StateLoadingBlocking   State = "loading_blocking"
	StateLoadingBackground State = "loading_background"
	StateSuccess           State = "success"
	// StateError means a blocking load exhausted its retries; the domain
	// waits for a manual retry and shows no data.
	StateError State = "error"
)

// Fetcher loads a fresh snapshot of one data domain.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Event describes a state change of a controller. Err is set on failures:
// with StateError the domain is blocked on it, with StateSuccess it records
// a swallowed background failure worth a transient notice.
type Event struct {
	Domain string
	State  State
	Err    error
}

// Listener receives controller events.
type Listener func(Event)

// Controller orchestrates the fetch lifecycle for one data domain. The
// first load for an empty domain blocks and retries transient failures a
// bounded number of times; every later load runs in the background where
// the stale snapshot stays visible and failures are reduced to a notice.
// Good data is never erased because a refresh failed.
type Controller[T any] struct {
	mu       sync.Mutex
	domain   string
	fetch    Fetcher[T]
	cached   []T
	hasData  bool
	state    State
	disposed bool

	fetchTimeout   time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration

	listeners map[uint64]Listener
	nextID    uint64

	logger *zap.Logger
}

// NewController builds a controller for one domain using the configured
// timeout and retry policy.
func NewController[T any](domain string, fetch Fetcher[T], cfg *config.Config, logger *zap.Logger) *Controller[T] {
	return &Controller[T]{
		domain:         domain,
		fetch:          fetch,
		state:          StateIdle,
		fetchTimeout:   cfg.FetchTimeout,
		retryAttempts:  cfg.SyncRetryAttempts,
		retryBaseDelay: cfg.SyncRetryBaseDelay,
		listeners:      make(map[uint64]Listener),
		logger:         logger,
	}
}

// Refresh loads the domain. With no cached data and silent=false the call
// blocks through the retry policy and surfaces the final error. Once data
// is cached, or when silent is forced, failures are swallowed and the
// previous snapshot is returned instead.
func (c *Controller[T]) Refresh(ctx context.Context, silent bool) ([]T, error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, common.ErrInternalServer.WithDetails("The sync controller is disposed.")
	}
	blocking := !c.hasData && !silent
	var notify func()
	if blocking {
		notify = c.transitionLocked(StateLoadingBlocking, nil)
	} else {
		notify = c.transitionLocked(StateLoadingBackground, nil)
	}
	c.mu.Unlock()
	notify()

	if blocking {
		return c.blockingLoad(ctx)
	}
	return c.backgroundLoad(ctx)
}

// Retry is the manual-retry action offered by the error state. It behaves
// like a first blocking load.
func (c *Controller[T]) Retry(ctx context.Context) ([]T, error) {
	return c.Refresh(ctx, false)
}

// RetryFailed adapts Retry to the hub's type-erased Member view.
func (c *Controller[T]) RetryFailed(ctx context.Context) error {
	_, err := c.Retry(ctx)
	return err
}

// Revalidate refreshes the snapshot when a dormant view becomes visible
// again. Cached data stays on screen throughout.
func (c *Controller[T]) Revalidate(ctx context.Context) ([]T, error) {
	return c.Refresh(ctx, true)
}

// RefreshSilent runs one background refresh. It satisfies the hub's Member
// interface for periodic revalidation.
func (c *Controller[T]) RefreshSilent(ctx context.Context) error {
	_, err := c.Refresh(ctx, true)
	return err
}

// Rollback discards optimistic local state by re-fetching from the source
// of truth in a single attempt. There is no local undo log.
func (c *Controller[T]) Rollback(ctx context.Context) ([]T, error) {
	data, err := c.fetchOnce(ctx)
	if err != nil {
		c.logger.Warn("Rollback re-fetch failed; keeping previous snapshot",
			zap.String("domain", c.domain), zap.Error(err))
		return c.Items(), err
	}
	c.store(data, nil)
	return data, nil
}

// Items returns the cached snapshot.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.cached))
	copy(out, c.cached)
	return out
}

// State returns the current lifecycle state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Domain returns the domain name this controller owns.
func (c *Controller[T]) Domain() string {
	return c.domain
}

// OnChange registers a listener. The returned function removes it.
func (c *Controller[T]) OnChange(listener Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
		})
	}
}

// Dispose marks the controller torn down. In-flight results are discarded
// so nothing updates state for a view that no longer exists.
func (c *Controller[T]) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.listeners = make(map[uint64]Listener)
}

func (c *Controller[T]) blockingLoad(ctx context.Context) ([]T, error) {
	attempts := c.retryAttempts + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay(attempt)):
			case <-ctx.Done():
				c.store(nil, ctx.Err())
				return nil, ctx.Err()
			}
		}

		data, err := c.fetchOnce(ctx)
		if err == nil {
			c.store(data, nil)
			return data, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		c.logger.Warn("Blocking load failed, will retry",
			zap.String("domain", c.domain), zap.Int("attempt", attempt+1), zap.Error(err))
	}

	c.store(nil, lastErr)
	return nil, lastErr
}

func (c *Controller[T]) backgroundLoad(ctx context.Context) ([]T, error) {
	data, err := c.fetchOnce(ctx)

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, common.ErrInternalServer.WithDetails("The sync controller is disposed.")
	}
	if err != nil {
		// Stale-but-valid data always wins over no data. The listener
		// event carries the error for a transient notice.
		stale := make([]T, len(c.cached))
		copy(stale, c.cached)
		c.logger.Warn("Background refresh failed; keeping stale data",
			zap.String("domain", c.domain), zap.Error(err))
		notify := c.transitionLocked(StateSuccess, err)
		c.mu.Unlock()
		notify()
		return stale, nil
	}
	c.cached = data
	c.hasData = true
	notify := c.transitionLocked(StateSuccess, nil)
	c.mu.Unlock()
	notify()
	return data, nil
}

// fetchOnce runs one fetch attempt under the configured timeout. A fetch
// that outlives the window counts as failed.
func (c *Controller[T]) fetchOnce(ctx context.Context) ([]T, error) {
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}
	data, err := c.fetch(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrFetch.WithDetails("The data fetch timed out.")
		}
		return nil, err
	}
	return data, nil
}

// retryDelay grows by a third of the base per extra attempt: with the
// default 1.5s base that is 1.5s, then 2s.
func (c *Controller[T]) retryDelay(attempt int) time.Duration {
	return c.retryBaseDelay + time.Duration(attempt-1)*(c.retryBaseDelay/3)
}

// store records the result of a blocking load.
func (c *Controller[T]) store(data []T, err error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	var notify func()
	if err != nil {
		notify = c.transitionLocked(StateError, err)
	} else {
		c.cached = data
		c.hasData = true
		notify = c.transitionLocked(StateSuccess, nil)
	}
	c.mu.Unlock()
	notify()
}

// transitionLocked updates the state and returns a closure that notifies
// the listeners. Callers hold c.mu and must invoke the closure after
// releasing it, so listeners never run under the lock.
func (c *Controller[T]) transitionLocked(state State, err error) func() {
	c.state = state
	evt := Event{Domain: c.domain, State: state, Err: err}
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	return func() {
		for _, l := range listeners {
			l(evt)
		}
	}
}

func retryable(err error) bool {
	return common.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded)
}
