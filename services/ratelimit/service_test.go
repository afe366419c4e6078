package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(window time.Duration) *Service {
	return NewService(window, zap.NewNop())
}

func TestAdmit_CountsDownToZero(t *testing.T) {
	svc := newTestService(time.Minute)
	limit := 5

	for i := 1; i <= limit; i++ {
		decision := svc.Admit("tenant:acme", limit)
		assert.True(t, decision.Allowed, "request %d should be admitted", i)
		assert.Equal(t, limit, decision.Limit)
		assert.Equal(t, limit-i, decision.Remaining)
	}

	decision := svc.Admit("tenant:acme", limit)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.Equal(t, limit, decision.Limit)
}

func TestAdmit_RejectionDoesNotConsume(t *testing.T) {
	svc := newTestService(time.Minute)

	svc.Admit("tenant:acme", 1)

	// Rejections must not advance the counter
	for i := 0; i < 3; i++ {
		decision := svc.Admit("tenant:acme", 1)
		assert.False(t, decision.Allowed)
	}

	stats, ok := svc.Usage("tenant:acme")
	require.True(t, ok)
	assert.Equal(t, 1, stats.Count)
}

func TestAdmit_WindowReset(t *testing.T) {
	svc := newTestService(time.Minute)

	current := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	for i := 0; i < 2; i++ {
		assert.True(t, svc.Admit("tenant:acme", 2).Allowed)
	}
	assert.False(t, svc.Admit("tenant:acme", 2).Allowed)

	// Just inside the window: still rejected
	current = current.Add(59 * time.Second)
	assert.False(t, svc.Admit("tenant:acme", 2).Allowed)

	// Past the window: counter resets and the full budget is back
	current = current.Add(2 * time.Second)
	decision := svc.Admit("tenant:acme", 2)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Remaining)
	assert.Equal(t, current.Add(time.Minute), decision.ResetAt)
}

func TestAdmit_KeysAreIndependent(t *testing.T) {
	svc := newTestService(time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, svc.Admit("tenant:acme", 3).Allowed)
	}
	assert.False(t, svc.Admit("tenant:acme", 3).Allowed)

	// Exhausting one key leaves every other key untouched
	decision := svc.Admit("tenant:globex", 3)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.Remaining)

	decision = svc.Admit("ip:10.0.0.5", 3)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.Remaining)
}

func TestAdmit_NonPositiveLimitAdmitsWithoutCounting(t *testing.T) {
	svc := newTestService(time.Minute)

	decision := svc.Admit("tenant:acme", 0)
	assert.True(t, decision.Allowed)

	decision = svc.Admit("tenant:acme", -1)
	assert.True(t, decision.Allowed)

	assert.Equal(t, 0, svc.Size())
}

// With N goroutines racing for L slots, exactly L must be admitted.
func TestAdmit_ConcurrentAdmissionIsExact(t *testing.T) {
	svc := newTestService(time.Minute)

	const (
		limit      = 50
		goroutines = 200
	)

	var admitted atomic.Int64
	var wg sync.WaitGroup

	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if svc.Admit("tenant:acme", limit).Allowed {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())

	stats, ok := svc.Usage("tenant:acme")
	require.True(t, ok)
	assert.Equal(t, limit, stats.Count)
}

func TestUsage(t *testing.T) {
	svc := newTestService(time.Minute)

	current := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	_, ok := svc.Usage("tenant:acme")
	assert.False(t, ok)

	svc.Admit("tenant:acme", 10)
	svc.Admit("tenant:acme", 10)

	stats, ok := svc.Usage("tenant:acme")
	require.True(t, ok)
	assert.Equal(t, "tenant:acme", stats.Key)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, current, stats.WindowStart)
	assert.Equal(t, current.Add(time.Minute), stats.ResetAt)
}

func TestSweep(t *testing.T) {
	svc := newTestService(time.Minute)

	current := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	svc.Admit("tenant:acme", 10)
	svc.Admit("ip:10.0.0.5", 10)
	require.Equal(t, 2, svc.Size())

	// One key stays active past the idle cutoff
	current = current.Add(9 * time.Minute)
	svc.Admit("tenant:acme", 10)

	current = current.Add(2 * time.Minute)
	removed := svc.Sweep(10 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, svc.Size())

	_, ok := svc.Usage("ip:10.0.0.5")
	assert.False(t, ok)
	_, ok = svc.Usage("tenant:acme")
	assert.True(t, ok)

	// Evicted keys come back lazily with a fresh budget
	decision := svc.Admit("ip:10.0.0.5", 10)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 9, decision.Remaining)
}

func TestStartCleanupWorker_StopsOnContextCancel(t *testing.T) {
	svc := newTestService(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartCleanupWorker(ctx, 10*time.Millisecond, time.Minute)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop after context cancellation")
	}
}
