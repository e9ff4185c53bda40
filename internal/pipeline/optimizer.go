package pipeline

import (
	"context"
	"strings"

	"resumeforge/internal/ai"
	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

// OptimizeInput is the stored resume text and job it is tailored to.
type OptimizeInput struct {
	ResumeText string
	Job        types.JobContext
}

// Optimizer rewrites a resume, writes a cover letter and re-scores the
// rewrite. It persists nothing.
type Optimizer struct {
	gen      ai.Generator
	prompts  *ai.Prompts
	analyzer *Analyzer
	letters  *CoverLetterWriter
	logger   *errors.Logger
}

func NewOptimizer(gen ai.Generator, prompts *ai.Prompts, logger *errors.Logger) *Optimizer {
	return &Optimizer{
		gen:      gen,
		prompts:  prompts,
		analyzer: NewAnalyzer(gen, prompts, logger),
		letters:  NewCoverLetterWriter(gen, prompts, logger),
		logger:   logger,
	}
}

// Optimize runs the three steps in order. Any failure returns a zero
// Optimization together with the error.
func (o *Optimizer) Optimize(ctx context.Context, in OptimizeInput) (types.Optimization, *ai.TokenUsage, error) {
	if strings.TrimSpace(in.ResumeText) == "" {
		return types.Optimization{}, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Resume text is required", nil)
	}
	job := in.Job.Normalize()
	if err := job.Validate(); err != nil {
		return types.Optimization{}, nil, err
	}

	var usage *ai.TokenUsage

	rewrite, err := o.gen.Generate(ctx, o.prompts.BuildOptimizeResume(job.CompanyName, job.RoleTitle, job.JobDescription, in.ResumeText))
	if err != nil {
		return o.fail(err, "optimize_resume")
	}
	optimizedResume := strings.TrimSpace(rewrite.Text)
	usage = usage.Add(rewrite.Usage)

	coverLetter, letterUsage, err := o.letters.ForResume(ctx, job, in.ResumeText)
	if err != nil {
		return o.fail(err, "cover_letter")
	}
	usage = usage.Add(letterUsage)

	analysis, analysisUsage, err := o.analyzer.Analyze(ctx, optimizedResume, job.JobDescription)
	if err != nil {
		return o.fail(err, "analyze_optimized")
	}
	usage = usage.Add(analysisUsage)

	return types.Optimization{
		OptimizedResume:   optimizedResume,
		CoverLetter:       coverLetter,
		OptimizedAnalysis: analysis,
	}, usage, nil
}

func (o *Optimizer) fail(err error, step string) (types.Optimization, *ai.TokenUsage, error) {
	o.logger.LogError(err, "Optimization step failed", "step", step)
	return types.Optimization{}, nil, err
}
