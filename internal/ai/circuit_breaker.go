package ai

import (
	"fmt"

	"github.com/sony/gobreaker/v2"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
)

// CircuitBreaker guards one operation's generations. A nil breaker runs
// calls directly.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*GenerateResult]
}

// NewCircuitBreaker returns nil when the breaker is disabled for the operation.
func NewCircuitBreaker(operation string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("AI-%s", operation),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		// Only upstream trouble counts against the breaker
		IsSuccessful: func(err error) bool {
			return err == nil ||
				!(errors.IsType(err, errors.ErrorTypeUpstream) || errors.IsType(err, errors.ErrorTypeUpstreamOverload))
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation", operation,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[*GenerateResult](settings)}
}

// Execute runs fn under the breaker. An open breaker surfaces as the same
// overload error callers get after exhausted retries.
func (b *CircuitBreaker) Execute(fn func() (*GenerateResult, error)) (*GenerateResult, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	result, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.NewOverloadError(errors.ErrCodeAIOverloaded, OverloadedMessage, err).
			WithContext("circuit_breaker", b.cb.Name())
	}
	return result, err
}

// Stats returns circuit breaker statistics
func (b *CircuitBreaker) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled": true,
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
	}
}

// IsHealthy returns true if the breaker is closed or disabled
func (b *CircuitBreaker) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
