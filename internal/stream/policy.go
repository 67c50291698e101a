package stream

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Default reconnection parameters.
const (
	DefaultMaxReconnectAttempts = 5
	DefaultMinReconnectDelay    = 1 * time.Second
	DefaultMaxReconnectDelay    = 5 * time.Second
)

// ReconnectionParameters configures the reconnection loop.
type ReconnectionParameters struct {
	MaxAttempts int           // Attempts per disconnect (0 disables reconnection)
	MinDelay    time.Duration // Lower bound of the random delay before each attempt
	MaxDelay    time.Duration // Upper bound of the random delay before each attempt
}

// DefaultReconnectionParameters returns 5 attempts with a delay between 1s and 5s.
func DefaultReconnectionParameters() ReconnectionParameters {
	return ReconnectionParameters{
		MaxAttempts: DefaultMaxReconnectAttempts,
		MinDelay:    DefaultMinReconnectDelay,
		MaxDelay:    DefaultMaxReconnectDelay,
	}
}

// Validate checks that attempts and delays are non-negative and MinDelay <= MaxDelay.
func (p ReconnectionParameters) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts must be >= 0, got %d", ErrInvalidParameters, p.MaxAttempts)
	}
	if p.MinDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("%w: delays must be >= 0", ErrInvalidParameters)
	}
	if p.MinDelay > p.MaxDelay {
		return fmt.Errorf("%w: min delay (%s) cannot exceed max delay (%s)", ErrInvalidParameters, p.MinDelay, p.MaxDelay)
	}
	return nil
}

// DelayGenerator produces the wait before each reconnection attempt.
type DelayGenerator interface {
	Next(min, max time.Duration) time.Duration
}

// DelayFunc is a function adapter for DelayGenerator.
type DelayFunc func(min, max time.Duration) time.Duration

func (f DelayFunc) Next(min, max time.Duration) time.Duration {
	return f(min, max)
}

// FixedDelay always returns d, ignoring the bounds.
func FixedDelay(d time.Duration) DelayGenerator {
	return DelayFunc(func(_, _ time.Duration) time.Duration { return d })
}

// RandomDelay draws delays uniformly from [min, max] using its own source.
type RandomDelay struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomDelay creates a RandomDelay seeded with seed.
func NewRandomDelay(seed uint64) *RandomDelay {
	return &RandomDelay{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns a delay in [min, max]. It returns min when max <= min.
func (r *RandomDelay) Next(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + time.Duration(r.rnd.Int64N(int64(max-min)+1))
}
