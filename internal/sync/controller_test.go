package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		FetchTimeout:       60 * time.Millisecond,
		SyncRetryAttempts:  2,
		SyncRetryBaseDelay: 30 * time.Millisecond,
	}
}

// eventRecorder collects controller events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestBlockingLoad_SucceedsFirstTry(t *testing.T) {
	fetch := func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())

	items, err := c.Refresh(context.Background(), false)

	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)
	assert.Equal(t, StateSuccess, c.State())
}

func TestBlockingLoad_RetriesTransientFailuresWithIncreasingDelay(t *testing.T) {
	attempts := 0
	fetch := func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts < 3 {
			return nil, common.ErrFetch.WithDetails("flaky")
		}
		return []string{"ok"}, nil
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())

	start := time.Now()
	items, err := c.Refresh(context.Background(), false)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Equal(t, []string{"ok"}, items)
	assert.Equal(t, 3, attempts)
	// Second attempt waits the base delay, the third a third more.
	assert.GreaterOrEqual(t, elapsed, 70*time.Millisecond)
}

func TestBlockingLoad_ExhaustionEntersErrorStateThenManualRetryRecovers(t *testing.T) {
	healthy := false
	attempts := 0
	fetch := func(ctx context.Context) ([]string, error) {
		attempts++
		if !healthy {
			return nil, common.ErrFetch.WithDetails("gateway down")
		}
		return []string{"back"}, nil
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())

	items, err := c.Refresh(context.Background(), false)

	assert.Nil(t, items)
	assert.True(t, common.IsCode(err, common.ErrFetch.Code))
	assert.Equal(t, 3, attempts) // immediate + 2 retries
	// Never stuck spinning: the domain lands in a manual-retry state.
	assert.Equal(t, StateError, c.State())

	healthy = true
	items, err = c.Retry(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"back"}, items)
	assert.Equal(t, StateSuccess, c.State())
}

func TestBlockingLoad_NonRetryableErrorFailsImmediately(t *testing.T) {
	attempts := 0
	fetch := func(ctx context.Context) ([]string, error) {
		attempts++
		return nil, errors.New("schema mismatch")
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())

	_, err := c.Refresh(context.Background(), false)

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, StateError, c.State())
}

func TestBlockingLoad_TimeoutCountsAsTransient(t *testing.T) {
	attempts := 0
	fetch := func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts == 1 {
			<-ctx.Done() // outlive the fetch window
			return nil, ctx.Err()
		}
		return []string{"late but fine"}, nil
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())

	items, err := c.Refresh(context.Background(), false)

	assert.NoError(t, err)
	assert.Equal(t, []string{"late but fine"}, items)
	assert.Equal(t, 2, attempts)
}

func TestBackgroundRefresh_FailureKeepsStaleDataAndRaisesOneNotice(t *testing.T) {
	healthy := true
	fetch := func(ctx context.Context) ([]string, error) {
		if !healthy {
			return nil, common.ErrFetch.WithDetails("timeout")
		}
		items := make([]string, 10)
		for i := range items {
			items[i] = fmt.Sprintf("request-%d", i)
		}
		return items, nil
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())

	first, err := c.Refresh(context.Background(), false)
	assert.NoError(t, err)
	assert.Len(t, first, 10)

	recorder := &eventRecorder{}
	c.OnChange(recorder.listen)

	healthy = false
	second, err := c.Refresh(context.Background(), true)

	// The ten cached requests stay visible; no error replaces them.
	assert.NoError(t, err)
	assert.Len(t, second, 10)
	assert.Equal(t, StateSuccess, c.State())

	notices := 0
	for _, evt := range recorder.snapshot() {
		if evt.State == StateSuccess && evt.Err != nil {
			notices++
		}
	}
	assert.Equal(t, 1, notices)
}

func TestBackgroundRefresh_IsUsedOnceDataIsCached(t *testing.T) {
	attempts := 0
	fetch := func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts > 1 {
			return nil, common.ErrFetch.WithDetails("down")
		}
		return []string{"seed"}, nil
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())

	_, err := c.Refresh(context.Background(), false)
	assert.NoError(t, err)

	// Not silent, but data exists: failures must not blank the view and
	// the bounded blocking retry policy must not kick in.
	items, err := c.Refresh(context.Background(), false)
	assert.NoError(t, err)
	assert.Equal(t, []string{"seed"}, items)
	assert.Equal(t, 2, attempts)
}

func TestRollback_RefetchesFromSourceOfTruth(t *testing.T) {
	serverTruth := []string{"v1"}
	fetch := func(ctx context.Context) ([]string, error) {
		out := make([]string, len(serverTruth))
		copy(out, serverTruth)
		return out, nil
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())

	_, err := c.Refresh(context.Background(), false)
	assert.NoError(t, err)

	// An optimistic mutation failed server-side; the server truth moved on.
	serverTruth = []string{"v1", "v2"}
	items, err := c.Rollback(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, items)
	assert.Equal(t, []string{"v1", "v2"}, c.Items())
}

func TestDispose_RefusesFurtherLoads(t *testing.T) {
	fetch := func(ctx context.Context) ([]string, error) {
		return []string{"a"}, nil
	}
	c := NewController("requests", fetch, testConfig(), zap.NewNop())
	c.Dispose()

	_, err := c.Refresh(context.Background(), false)

	assert.Error(t, err)
}

func TestHub_RetryReloadsFailedDomain(t *testing.T) {
	healthy := false
	fetch := func(ctx context.Context) ([]string, error) {
		if !healthy {
			return nil, errors.New("schema migration in progress")
		}
		return []string{"x"}, nil
	}
	c := NewController("inventory", fetch, testConfig(), zap.NewNop())

	hub := NewHub(zap.NewNop())
	hub.Register(c)

	_, err := c.Refresh(context.Background(), false)
	assert.Error(t, err)
	assert.Equal(t, StateError, c.State())

	healthy = true
	assert.NoError(t, hub.Retry(context.Background(), "inventory"))
	assert.Equal(t, StateSuccess, c.State())
	assert.Equal(t, []string{"x"}, c.Items())
}

func TestHub_RetryUnknownDomain(t *testing.T) {
	hub := NewHub(zap.NewNop())

	err := hub.Retry(context.Background(), "phantom")

	assert.True(t, common.IsCode(err, common.ErrNotFound.Code))
}

func TestHub_TracksAndRefreshesMembers(t *testing.T) {
	fetchCalls := 0
	fetch := func(ctx context.Context) ([]string, error) {
		fetchCalls++
		return []string{"x"}, nil
	}
	c := NewController("inventory", fetch, testConfig(), zap.NewNop())

	hub := NewHub(zap.NewNop())
	hub.Register(c)

	statuses := hub.Statuses()
	assert.Len(t, statuses, 1)
	assert.Equal(t, "inventory", statuses[0].Domain)
	assert.Equal(t, StateIdle, statuses[0].State)

	hub.RefreshAll(context.Background())

	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, StateSuccess, c.State())
}
