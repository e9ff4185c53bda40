package ai

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
)

// GeminiBackend calls Google Gemini through the genai SDK
type GeminiBackend struct {
	client           *genai.Client
	model            string
	provider         string
	temperature      float32
	timeout          time.Duration
	useSystemPrompts bool
	logger           *errors.Logger
}

// Ensure GeminiBackend implements Backend
var _ Backend = (*GeminiBackend)(nil)

// NewGeminiBackend creates a backend for one operation's configuration
func NewGeminiBackend(ctx context.Context, cfg config.OperationAIConfig, logger *errors.Logger) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"Gemini API key is not configured", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"Failed to create Gemini client", err)
	}

	b := &GeminiBackend{
		client:           client,
		model:            cfg.Model,
		provider:         cfg.Provider,
		temperature:      0.7,
		timeout:          90 * time.Second,
		useSystemPrompts: true,
		logger:           logger,
	}
	if cfg.Temperature != nil {
		b.temperature = *cfg.Temperature
	}
	if cfg.Timeout != nil && *cfg.Timeout > 0 {
		b.timeout = *cfg.Timeout
	}
	if cfg.UseSystemPrompts != nil {
		b.useSystemPrompts = *cfg.UseSystemPrompts
	}
	return b, nil
}

// Call performs one GenerateContent request under the per-call timeout.
func (g *GeminiBackend) Call(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	tracer := otel.Tracer("resumeforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+req.Operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", g.provider),
		attribute.String("ai.model", g.model),
		attribute.Float64("ai.temperature", float64(g.temperature)),
		attribute.Bool("ai.structured", req.Schema != nil),
		attribute.Int("input.prompt_length", len(req.Prompt)),
	)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(req.Prompt), g.buildConfig(req))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		span.SetAttributes(attribute.Bool("success", false))
		return nil, fmt.Errorf("gemini %s: %w", req.Operation, err)
	}

	out := &GenerateResult{Text: result.Text(), Usage: extractTokenUsage(result)}
	if out.Usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", out.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", out.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", out.Usage.TotalTokens),
		)
	}
	span.SetAttributes(
		attribute.Int("output.length", len(out.Text)),
		attribute.Bool("success", true),
	)
	return out, nil
}

func (g *GeminiBackend) buildConfig(req GenerateRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = req.Schema
	}
	if g.useSystemPrompts && req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if g.temperature > 0 {
		temperature := g.temperature
		cfg.Temperature = &temperature
	}
	return cfg
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks that the configured model is reachable
func (g *GeminiBackend) GetModelInfo(ctx context.Context, timeout time.Duration) *ModelInfo {
	info := &ModelInfo{Name: g.model}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model, err := g.client.Models.Get(checkCtx, g.model, &genai.GetModelConfig{})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed", "model", g.model, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
