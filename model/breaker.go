package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/agentrelay/agentrelay/logging"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerOptions configures the circuit breaker decorator.
type BreakerOptions struct {
	// MaxFailures is the number of consecutive failures before the
	// circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to
	// half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing
	// failure counts.
	Interval time.Duration
	// Logger receives state-change notices.
	Logger logging.Logger
}

// BreakerGenerator wraps a Generator with circuit breaker protection. When
// the wrapped provider fails repeatedly the circuit opens and subsequent
// calls fail fast without reaching the provider, preventing retry storms.
// Fail-fast errors surface like any other generation failure, so the invoker
// still converts them into the apology result.
type BreakerGenerator struct {
	inner   Generator
	breaker *gobreaker.CircuitBreaker[json.RawMessage]
}

// NewBreakerGenerator wraps inner with a circuit breaker.
func NewBreakerGenerator(inner Generator, optFns ...func(o *BreakerOptions)) *BreakerGenerator {
	opts := BreakerOptions{
		MaxFailures: defaultBreakerMaxFailures,
		Timeout:     defaultBreakerTimeout,
		Interval:    defaultBreakerInterval,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cb := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        "generator:" + inner.Info().Provider,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			opts.Logger.Warn("circuit breaker state change breaker=%s from=%s to=%s", name, from.String(), to.String())
		},
	})

	return &BreakerGenerator{inner: inner, breaker: cb}
}

// GenerateStructured implements Generator.
func (b *BreakerGenerator) GenerateStructured(ctx context.Context, req Request) (json.RawMessage, error) {
	return b.breaker.Execute(func() (json.RawMessage, error) {
		return b.inner.GenerateStructured(ctx, req)
	})
}

// Info implements Generator.
func (b *BreakerGenerator) Info() Info { return b.inner.Info() }
