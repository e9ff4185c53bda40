package ai

import (
	"context"
	"fmt"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
)

// Service routes each request to the client configured for its operation.
type Service struct {
	clients  map[string]*Client
	backends map[string]*GeminiBackend
	logger   *errors.Logger
}

// Ensure Service implements Generator
var _ Generator = (*Service)(nil)

// NewService creates one Gemini-backed client per operation
func NewService(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Service, error) {
	s := &Service{
		clients:  make(map[string]*Client),
		backends: make(map[string]*GeminiBackend),
		logger:   logger,
	}

	for _, op := range config.Operations {
		opCfg := cfg.GetOperationConfig(op)

		logger.Debug("Initializing AI client",
			"operation", op,
			"provider", opCfg.Provider,
			"model", opCfg.Model,
			"temperature", *opCfg.Temperature,
			"timeout", *opCfg.Timeout,
			"max_attempts", *opCfg.MaxAttempts,
			"retry_delay", *opCfg.RetryDelay)

		if opCfg.Provider != "gemini" {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Unsupported AI provider: %s", opCfg.Provider), nil)
		}
		backend, err := NewGeminiBackend(ctx, opCfg, logger)
		if err != nil {
			return nil, err
		}

		s.backends[op] = backend
		s.clients[op] = NewClient(backend, logger,
			WithRetry(*opCfg.MaxAttempts, *opCfg.RetryDelay),
			WithCircuitBreaker(NewCircuitBreaker(op, opCfg.CircuitBreaker, logger)))
	}
	return s, nil
}

// NewServiceWithClients builds a service from prepared clients.
func NewServiceWithClients(clients map[string]*Client, logger *errors.Logger) *Service {
	return &Service{clients: clients, backends: map[string]*GeminiBackend{}, logger: logger}
}

// Generate dispatches on req.Operation.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	client, ok := s.clients[req.Operation]
	if !ok {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Unknown AI operation: %s", req.Operation), nil)
	}
	return client.Generate(ctx, req)
}

// CircuitBreakerStats returns breaker state per operation
func (s *Service) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any, len(s.clients))
	healthy := true
	for op, client := range s.clients {
		stats[op] = client.BreakerStats()
		healthy = healthy && client.breaker.IsHealthy()
	}
	stats["overall_healthy"] = healthy
	return stats
}

// GetModelInfo checks the analyze model, which every workflow uses
func (s *Service) GetModelInfo(ctx context.Context, timeout time.Duration) *ModelInfo {
	backend, ok := s.backends[config.OperationAnalyze]
	if !ok {
		return &ModelInfo{Error: "no model configured"}
	}
	return backend.GetModelInfo(ctx, timeout)
}
