package observability

import (
	"context"

	"resumeforge/internal/ai"
)

// TracedGenerator wraps a Generator with TrackGeneration.
type TracedGenerator struct {
	next    ai.Generator
	manager *Manager
}

func NewTracedGenerator(next ai.Generator, manager *Manager) *TracedGenerator {
	return &TracedGenerator{next: next, manager: manager}
}

func (g *TracedGenerator) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResult, error) {
	return g.manager.TrackGeneration(ctx, req.Operation, func(ctx context.Context) (*ai.GenerateResult, error) {
		return g.next.Generate(ctx, req)
	})
}
