package pipeline

import (
	"context"
	"fmt"
	"strings"

	"resumeforge/internal/ai"
	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

// CoverLetterWriter generates letters from candidate details or a resume.
type CoverLetterWriter struct {
	gen     ai.Generator
	prompts *ai.Prompts
	logger  *errors.Logger
}

func NewCoverLetterWriter(gen ai.Generator, prompts *ai.Prompts, logger *errors.Logger) *CoverLetterWriter {
	return &CoverLetterWriter{gen: gen, prompts: prompts, logger: logger}
}

// Write validates the request and generates a standalone cover letter.
func (w *CoverLetterWriter) Write(ctx context.Context, req types.CoverLetterRequest) (string, *ai.TokenUsage, error) {
	if err := req.Validate(); err != nil {
		return "", nil, err
	}
	job := types.JobContext{
		CompanyName:    req.CompanyName,
		RoleTitle:      req.RoleTitle,
		JobDescription: req.JobDescription,
	}.Normalize()
	return w.generate(ctx, job, CandidateSummary(req))
}

// ForResume generates a letter for a job from resume text.
func (w *CoverLetterWriter) ForResume(ctx context.Context, job types.JobContext, resumeText string) (string, *ai.TokenUsage, error) {
	return w.generate(ctx, job, resumeText)
}

func (w *CoverLetterWriter) generate(ctx context.Context, job types.JobContext, experience string) (string, *ai.TokenUsage, error) {
	req := w.prompts.BuildCoverLetter(job.CompanyName, job.RoleTitle, job.JobDescription, experience)
	result, err := w.gen.Generate(ctx, req)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(result.Text), result.Usage, nil
}

// CandidateSummary renders candidate details in place of a resume.
func CandidateSummary(req types.CoverLetterRequest) string {
	return fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\n\nExperience:\n%s",
		strings.TrimSpace(req.CandidateName),
		strings.TrimSpace(req.CandidateEmail),
		strings.TrimSpace(req.CandidatePhone),
		strings.TrimSpace(req.Experience))
}
