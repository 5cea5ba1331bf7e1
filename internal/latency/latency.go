// Package latency models the simulated network boundary as an injectable
// delay policy, so tests can substitute zero or deterministic delay.
package latency

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Default latency bounds for the simulated round trip.
const (
	defaultMinLatency = 80 * time.Millisecond
	defaultMaxLatency = 250 * time.Millisecond
	defaultRandomSeed = 42
)

// Policy suspends the caller for one simulated round trip.
type Policy interface {
	// Wait blocks for the policy's delay, honoring ctx for cancellation.
	Wait(ctx context.Context) error
}

// UniformPolicy waits a uniformly random duration in [min, max).
type UniformPolicy struct {
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Option applies a configuration option to the UniformPolicy.
type Option func(*UniformPolicy)

// WithRange sets the latency bounds.
func WithRange(minLatency, maxLatency time.Duration) Option {
	return func(p *UniformPolicy) {
		if minLatency > 0 && maxLatency > minLatency {
			p.minLatency = minLatency
			p.maxLatency = maxLatency
		}
	}
}

// WithSeed sets the rng seed for reproducible delays.
func WithSeed(seed int64) Option {
	return func(p *UniformPolicy) {
		p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // simulated latency, not crypto
	}
}

// NewUniformPolicy creates a policy with configuration options.
func NewUniformPolicy(opts ...Option) *UniformPolicy {
	p := &UniformPolicy{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible testing
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Wait blocks for a random delay in the configured range.
func (p *UniformPolicy) Wait(ctx context.Context) error {
	p.mu.Lock()
	delay := p.minLatency + time.Duration(p.rng.Int63n(int64(p.maxLatency-p.minLatency)))
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("latency wait cancelled: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

// nonePolicy returns immediately. Used in tests and tools.
type nonePolicy struct{}

func (nonePolicy) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("latency wait cancelled: %w", err)
	}
	return nil
}

// None returns a policy with zero delay.
func None() Policy {
	return nonePolicy{}
}
