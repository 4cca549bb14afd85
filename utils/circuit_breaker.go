// ABOUTME: This file implements the circuit breaker shielding the Cafe24 Admin API upstream
// ABOUTME: A streak of upstream failures sheds traffic locally until a recovery probe succeeds
package utils

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitBreakerOpen is returned when the circuit is shedding load.
var ErrCircuitBreakerOpen = errors.New("upstream circuit is open")

// BreakerState is the admission state of the circuit.
type BreakerState uint8

const (
	BreakerClosed   BreakerState = iota // upstream healthy, requests pass
	BreakerOpen                         // upstream failing, requests shed
	BreakerHalfOpen                     // probing recovery with limited requests
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes when the circuit trips and how it probes recovery.
type BreakerConfig struct {
	FailureThreshold int           // consecutive upstream failures before tripping
	SuccessThreshold int           // probe successes required to close again
	Cooldown         time.Duration // open duration before the first probe
	ProbeLimit       int           // concurrent probes admitted while half-open
}

// DefaultBreakerConfig returns the tuning used for Admin API calls.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Cooldown:         30 * time.Second,
		ProbeLimit:       2,
	}
}

// BreakerStats is a point-in-time snapshot for status reporting.
type BreakerStats struct {
	State           BreakerState
	FailureStreak   int
	ProbeSuccesses  int
	Calls           int64
	Failures        int64
	Shed            int64
	Trips           int64
	LastFailureTime time.Time
	LastSuccessTime time.Time
}

// CircuitBreaker sheds Admin API traffic after repeated upstream failures.
// Only outcomes that say something about the upstream count: context
// cancellations and deadline expiries are the caller giving up and leave the
// circuit untouched.
type CircuitBreaker struct {
	cfg    BreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu             sync.Mutex
	state          BreakerState
	failureStreak  int
	probeSuccesses int
	probesInFlight int
	probeAfter     time.Time

	calls       int64
	failures    int64
	shed        int64
	trips       int64
	lastFailure time.Time
	lastSuccess time.Time
}

// NewCircuitBreaker creates a closed circuit. A nil config gets the defaults.
func NewCircuitBreaker(cfg *BreakerConfig, logger *slog.Logger) *CircuitBreaker {
	if cfg == nil {
		cfg = DefaultBreakerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		cfg:    *cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Execute runs op when the circuit admits it, recording the outcome against
// the upstream's health.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if !cb.admit() {
		return ErrCircuitBreakerOpen
	}

	err := op(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		// The caller gave up; the upstream gets no verdict.
		cb.abstain()
		return err
	}
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		cb.calls++
		return true

	case BreakerOpen:
		if cb.now().Before(cb.probeAfter) {
			cb.shed++
			cb.logger.Debug("Circuit open; request shed",
				"failure_streak", cb.failureStreak)
			return false
		}
		cb.transition(BreakerHalfOpen)
		cb.probesInFlight = 1
		cb.calls++
		return true

	case BreakerHalfOpen:
		if cb.probesInFlight >= cb.cfg.ProbeLimit {
			cb.shed++
			return false
		}
		cb.probesInFlight++
		cb.calls++
		return true
	}
	return false
}

// abstain frees a probe slot without recording a verdict.
func (cb *CircuitBreaker) abstain() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == BreakerHalfOpen && cb.probesInFlight > 0 {
		cb.probesInFlight--
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.lastSuccess = cb.now()
		switch cb.state {
		case BreakerClosed:
			cb.failureStreak = 0
		case BreakerHalfOpen:
			cb.probesInFlight--
			cb.probeSuccesses++
			if cb.probeSuccesses >= cb.cfg.SuccessThreshold {
				cb.logger.Info("Upstream recovered; closing circuit",
					"probe_successes", cb.probeSuccesses)
				cb.transition(BreakerClosed)
			}
		}
		return
	}

	cb.failures++
	cb.lastFailure = cb.now()
	switch cb.state {
	case BreakerClosed:
		cb.failureStreak++
		if cb.failureStreak >= cb.cfg.FailureThreshold {
			cb.logger.Warn("Upstream failure streak reached threshold; opening circuit",
				"failure_streak", cb.failureStreak,
				"error", err)
			cb.transition(BreakerOpen)
		}
	case BreakerHalfOpen:
		// Any probe failure reopens the circuit immediately.
		cb.probesInFlight--
		cb.logger.Warn("Recovery probe failed; reopening circuit", "error", err)
		cb.transition(BreakerOpen)
	}
}

func (cb *CircuitBreaker) transition(to BreakerState) {
	from := cb.state
	cb.state = to
	cb.probeSuccesses = 0
	cb.probesInFlight = 0

	switch to {
	case BreakerClosed:
		cb.failureStreak = 0
	case BreakerOpen:
		cb.trips++
		cb.probeAfter = cb.now().Add(cb.cfg.Cooldown)
	}

	cb.logger.Info("Circuit state changed",
		"from", from.String(),
		"to", to.String())
}

// State returns the current admission state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot for status reporting.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return BreakerStats{
		State:           cb.state,
		FailureStreak:   cb.failureStreak,
		ProbeSuccesses:  cb.probeSuccesses,
		Calls:           cb.calls,
		Failures:        cb.failures,
		Shed:            cb.shed,
		Trips:           cb.trips,
		LastFailureTime: cb.lastFailure,
		LastSuccessTime: cb.lastSuccess,
	}
}

// Reset returns the circuit to its initial closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.logger.Info("Resetting circuit")
	cb.transition(BreakerClosed)
}
