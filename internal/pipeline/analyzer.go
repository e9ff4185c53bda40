package pipeline

import (
	"context"
	"strings"

	"resumeforge/internal/ai"
	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

// Analyzer scores a resume against a job description.
type Analyzer struct {
	gen     ai.Generator
	prompts *ai.Prompts
	logger  *errors.Logger
}

// NewAnalyzer creates an Analyzer. prompts may be nil to use the defaults.
func NewAnalyzer(gen ai.Generator, prompts *ai.Prompts, logger *errors.Logger) *Analyzer {
	return &Analyzer{gen: gen, prompts: prompts, logger: logger}
}

// Analyze runs one structured generation and validates the result.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, jobDescription string) (types.ATSAnalysis, *ai.TokenUsage, error) {
	if strings.TrimSpace(resumeText) == "" {
		return types.ATSAnalysis{}, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Resume text is required", nil)
	}
	if strings.TrimSpace(jobDescription) == "" {
		return types.ATSAnalysis{}, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Job description is required", nil)
	}

	result, err := a.gen.Generate(ctx, a.prompts.BuildAnalyze(resumeText, jobDescription))
	if err != nil {
		return types.ATSAnalysis{}, nil, err
	}

	parsed, err := ParseAnalysis(result.Text)
	if err != nil {
		a.logger.LogError(err, "Failed to parse ATS analysis", "response_length", len(result.Text))
		return types.ATSAnalysis{}, result.Usage, err
	}
	if parsed.Clamped {
		a.logger.Warn("ATS score out of range, clamped",
			"raw_score", parsed.RawScore,
			"score", parsed.Analysis.Score)
	}
	return parsed.Analysis, result.Usage, nil
}
