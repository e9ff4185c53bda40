package ai

import (
	"context"
	"strings"
	"time"

	"resumeforge/internal/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client adds the overload retry policy and circuit breaker to a Backend.
type Client struct {
	backend     Backend
	breaker     *CircuitBreaker
	maxAttempts int
	retryDelay  time.Duration
	sleep       Sleeper
	logger      *errors.Logger
}

// Ensure Client implements Generator
var _ Generator = (*Client)(nil)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRetry sets the attempt budget and the fixed pause between attempts.
func WithRetry(maxAttempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if maxAttempts >= 1 {
			c.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) ClientOption {
	return func(c *Client) { c.sleep = s }
}

// WithCircuitBreaker wraps every generation in the breaker.
func WithCircuitBreaker(b *CircuitBreaker) ClientOption {
	return func(c *Client) { c.breaker = b }
}

// NewClient creates a retrying client around backend.
func NewClient(backend Backend, logger *errors.Logger, opts ...ClientOption) *Client {
	c := &Client{
		backend:     backend,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		sleep:       contextSleep,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate calls the backend, retrying only when the upstream is overloaded.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return c.breaker.Execute(func() (*GenerateResult, error) {
		return c.generateWithRetry(ctx, req)
	})
}

func (c *Client) generateWithRetry(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("Retrying AI operation",
				"operation", req.Operation,
				"attempt", attempt,
				"max_attempts", c.maxAttempts,
				"delay", c.retryDelay,
				"error", lastErr.Error())

			if err := c.sleep(ctx, c.retryDelay); err != nil {
				return nil, errors.NewUpstreamError(errors.ErrCodeAIServiceFailed,
					"The AI request was cancelled.", err).WithContext("operation", req.Operation)
			}
		}

		result, err := c.backend.Call(ctx, req)
		if err == nil {
			if result == nil || strings.TrimSpace(result.Text) == "" {
				return nil, errors.NewUpstreamError(errors.ErrCodeAIEmptyResponse,
					"The AI service returned an empty response.", nil).WithContext("operation", req.Operation)
			}
			if attempt > 1 {
				c.logger.Info("AI operation succeeded after retry",
					"operation", req.Operation,
					"successful_attempt", attempt)
			}
			return result, nil
		}

		lastErr = err
		if !IsOverloaded(err) {
			c.logger.LogError(err, "AI operation failed", "operation", req.Operation, "attempt", attempt)
			return nil, errors.NewUpstreamError(errors.ErrCodeAIServiceFailed,
				"The AI service request failed. Please try again later.", err).WithContext("operation", req.Operation)
		}
	}

	c.logger.LogError(lastErr, "AI service overloaded after all attempts",
		"operation", req.Operation,
		"total_attempts", c.maxAttempts)
	return nil, errors.NewOverloadError(errors.ErrCodeAIOverloaded, OverloadedMessage, lastErr).
		WithContext("operation", req.Operation)
}

// BreakerStats reports the client's circuit breaker state
func (c *Client) BreakerStats() map[string]any {
	return c.breaker.Stats()
}
