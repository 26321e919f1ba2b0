package synth

import (
	"errors"
	"sync"
	"time"
)

// BreakerState represents the state of a circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"    // Normal operation
	BreakerOpen     BreakerState = "OPEN"      // Provider failing, requests rejected
	BreakerHalfOpen BreakerState = "HALF_OPEN" // Probing whether the provider recovered
)

// ErrCircuitOpen is returned when the breaker rejects a request.
var ErrCircuitOpen = errors.New("provider circuit breaker is open")

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before a trial request is allowed.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Breaker stops calling a provider that keeps failing. Only failures
// classified by the counts function move it toward open.
type Breaker struct {
	config BreakerConfig
	counts func(error) bool
	now    func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// NewBreaker creates a closed breaker. A nil counts function counts every error.
func NewBreaker(config BreakerConfig, counts func(error) bool) *Breaker {
	if counts == nil {
		counts = func(error) bool { return true }
	}
	return &Breaker{
		config: config,
		counts: counts,
		now:    time.Now,
		state:  BreakerClosed,
	}
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return nil
	}
	if b.now().Sub(b.lastFailure) >= b.config.Cooldown {
		b.state = BreakerHalfOpen
		return nil
	}
	return ErrCircuitOpen
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.counts(err) {
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == BreakerHalfOpen || b.failures >= b.config.FailureThreshold {
		b.state = BreakerOpen
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
