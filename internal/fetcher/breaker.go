package fetcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	// CircuitClosed lets downloads through.
	CircuitClosed CircuitState = iota
	// CircuitOpen holds downloads back until the cooldown has passed.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failed downloads that opens
	// the circuit. Default: 10.
	FailureThreshold int

	// Cooldown is how long an open circuit waits before probing the site again.
	// Default: 2m.
	Cooldown time.Duration
}

// CircuitBreaker pauses a scrape once the site has failed FailureThreshold downloads
// in a row. Unlike a rejecting breaker it never drops work: Wait blocks for the
// cooldown and then lets one probe through. A nil *CircuitBreaker is a no-op.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	trips    int

	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 10
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 2 * time.Minute
	}
	return &CircuitBreaker{
		cfg:       cfg,
		nowFunc:   time.Now,
		sleepFunc: sleepCtx,
	}
}

// Wait returns immediately unless the circuit is open, in which case it blocks
// until the cooldown has elapsed and moves the circuit to half-open.
func (cb *CircuitBreaker) Wait(ctx context.Context) error {
	if cb == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state != CircuitOpen {
		cb.mu.Unlock()
		return nil
	}
	remaining := cb.cfg.Cooldown - cb.nowFunc().Sub(cb.openedAt)
	cb.mu.Unlock()

	if remaining > 0 {
		zap.L().Warn("fetcher: site failing, pausing scrape",
			zap.Duration("cooldown", remaining),
		)
		if err := cb.sleepFunc(ctx, remaining); err != nil {
			return err
		}
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen {
		cb.state = CircuitHalfOpen
	}
	return nil
}

// Record feeds the outcome of a download into the breaker.
func (cb *CircuitBreaker) Record(err error) {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		cb.state = CircuitClosed
		return
	}

	cb.failures++
	switch {
	case cb.state == CircuitHalfOpen:
		cb.open()
	case cb.state == CircuitClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.open()
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Trips returns how many times the circuit has opened.
func (cb *CircuitBreaker) Trips() int {
	if cb == nil {
		return 0
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.trips
}

// open must be called with mu held.
func (cb *CircuitBreaker) open() {
	cb.state = CircuitOpen
	cb.openedAt = cb.nowFunc()
	cb.trips++
	zap.L().Warn("fetcher: circuit opened",
		zap.Int("consecutive_failures", cb.failures),
		zap.Int("trips", cb.trips),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
