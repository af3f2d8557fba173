package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"movierec-backend/internal/shared/telemetry"
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated
// upstream failures.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerSettings configures NewBreaker.
type BreakerSettings struct {
	Name     string
	Failures uint32
	Cooldown time.Duration
}

// Breaker wraps a Client and stops calling it after consecutive failures.
type Breaker struct {
	next Client
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreaker decorates next with a circuit breaker.
func NewBreaker(next Client, s BreakerSettings) *Breaker {
	if s.Failures == 0 {
		s.Failures = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.Name == "" {
		s.Name = "llm"
	}
	failures := s.Failures
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// Missing credentials and caller cancellation say nothing about upstream health.
			return err == nil || errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Warn("llm.breaker_state", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Invoke forwards to the wrapped client unless the circuit is open.
func (b *Breaker) Invoke(ctx context.Context, prompt string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Invoke(ctx, prompt)
	})
}

// State reports the breaker state as closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

var _ Client = (*Breaker)(nil)
