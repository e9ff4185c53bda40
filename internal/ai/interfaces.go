package ai

import (
	"context"

	"google.golang.org/genai"
)

// Generator produces text from the upstream model. Everything above the
// client depends on this interface so it can be stubbed in tests.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// Backend performs exactly one upstream call, without retries.
type Backend interface {
	Call(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// GenerateRequest describes one generation. A nil Schema asks for free text.
type GenerateRequest struct {
	Operation         string
	Prompt            string
	SystemInstruction string
	Schema            *genai.Schema
}

// GenerateResult is the text returned by the model
type GenerateResult struct {
	Text  string
	Usage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// Add returns the sum of two usages. Nil operands count as zero.
func (u *TokenUsage) Add(other *TokenUsage) *TokenUsage {
	if u == nil {
		return other
	}
	if other == nil {
		return u
	}
	return &TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}
