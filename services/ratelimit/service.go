package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWindow is the fixed counting window applied to every key.
const DefaultWindow = time.Minute

// Decision is the outcome of an admission check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// UsageStats represents the current counter state for one key
type UsageStats struct {
	Key         string    `json:"key"`
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
	ResetAt     time.Time `json:"reset_at"`
}

// window is the counter for a single key. Each window carries its own mutex
// so admission checks for different keys never contend.
type window struct {
	mu       sync.Mutex
	start    time.Time
	count    int
	lastSeen time.Time
}

// Service is an in-memory fixed-window rate limiter. A window counts requests
// from its start until the window duration elapses; the next admission after
// that resets the counter. This is deliberately a fixed window, not a sliding
// one: up to 2x the limit can pass across a window boundary.
type Service struct {
	mu      sync.Mutex
	windows map[string]*window

	windowDuration time.Duration
	logger         *zap.Logger

	// now is injectable for deterministic window tests
	now func() time.Time
}

// NewService creates a new rate limiter with the given window duration.
// A non-positive duration falls back to DefaultWindow.
func NewService(windowDuration time.Duration, logger *zap.Logger) *Service {
	if windowDuration <= 0 {
		windowDuration = DefaultWindow
	}
	return &Service{
		windows:        make(map[string]*window),
		windowDuration: windowDuration,
		logger:         logger,
		now:            time.Now,
	}
}

// Admit checks whether one more request under key fits within limit and, if
// so, counts it. The check and increment happen under the key's window mutex:
// concurrent callers racing for the last slot can never both be admitted.
// A non-positive limit admits without counting.
func (s *Service) Admit(key string, limit int) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}

	w := s.getWindow(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := s.now()
	w.lastSeen = now

	// Expired window resets before any counting in this call
	if now.Sub(w.start) > s.windowDuration {
		w.start = now
		w.count = 0
	}

	resetAt := w.start.Add(s.windowDuration)

	if w.count >= limit {
		return Decision{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   resetAt,
		}
	}

	w.count++
	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// getWindow returns the window for key, creating it lazily on first sight.
// Only the map lookup runs under the service mutex.
func (s *Service) getWindow(key string) *window {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.windows[key]; ok {
		return w
	}

	now := s.now()
	w := &window{start: now, lastSeen: now}
	s.windows[key] = w
	return w
}

// Usage returns the current counter state for a key
func (s *Service) Usage(key string) (UsageStats, bool) {
	s.mu.Lock()
	w, ok := s.windows[key]
	s.mu.Unlock()

	if !ok {
		return UsageStats{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return UsageStats{
		Key:         key,
		Count:       w.count,
		WindowStart: w.start,
		ResetAt:     w.start.Add(s.windowDuration),
	}, true
}

// Size returns the number of tracked keys
func (s *Service) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Sweep removes windows that have been idle longer than retention and
// returns how many were dropped. Keys come back lazily on next sight, so
// evicting an idle window never loses live counts.
func (s *Service) Sweep(retention time.Duration) int {
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		w.mu.Lock()
		idle := w.lastSeen.Before(cutoff)
		w.mu.Unlock()
		if idle {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker starts a background worker that periodically sweeps
// idle windows. Without it the key map grows without bound under
// high-cardinality IP traffic. Stops when the context is cancelled.
func (s *Service) StartCleanupWorker(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started rate limit cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention))

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(retention); removed > 0 {
				s.logger.Debug("swept idle rate limit windows",
					zap.Int("removed", removed),
					zap.Int("remaining", s.Size()))
			}
		case <-ctx.Done():
			s.logger.Info("stopping rate limit cleanup worker")
			return
		}
	}
}
