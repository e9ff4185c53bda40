package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeforge/internal/ai"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

// stubGenerator answers per operation and records requests.
type stubGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	requests  []ai.GenerateRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := s.failures[req.Operation]; err != nil {
		return nil, err
	}
	return &ai.GenerateResult{Text: s.responses[req.Operation], Usage: &ai.TokenUsage{TotalTokens: 5}}, nil
}

const samplePayload = `{"score":72,"matchedKeywords":["Go","SQL"],"missingKeywords":["Kubernetes","Terraform"],"recommendations":[{"type":"add","title":"Add K8s","description":"Mention container orchestration"},{"type":"restructure","title":"Reorder","description":"Lead with impact"}]}`

var acme = types.JobContext{
	CompanyName:    "Acme",
	RoleTitle:      "Engineer",
	JobDescription: "We are hiring a backend engineer with strong Python and Go experience to build APIs.",
}

func TestParseAnalysisSamplePayload(t *testing.T) {
	parsed, err := ParseAnalysis(samplePayload)
	require.NoError(t, err)

	a := parsed.Analysis
	assert.Equal(t, 72, a.Score)
	assert.Equal(t, []string{"Go", "SQL"}, a.MatchedKeywords)
	assert.Equal(t, []string{"Kubernetes", "Terraform"}, a.MissingKeywords)
	require.Len(t, a.Recommendations, 2)
	assert.Equal(t, types.Recommendation{Type: "add", Title: "Add K8s", Description: "Mention container orchestration"}, a.Recommendations[0])
	assert.Equal(t, "restructure", a.Recommendations[1].Type)
	assert.Equal(t, types.RecommendationFallback, a.Recommendations[1].Kind())
	assert.False(t, parsed.Clamped)
}

func TestParseAnalysisScores(t *testing.T) {
	tests := []struct {
		name    string
		score   string
		want    int
		clamped bool
	}{
		{"in range", "85", 85, false},
		{"fractional rounds", "84.6", 85, false},
		{"above range", "130", 100, true},
		{"below range", "-4", 0, true},
		{"boundary", "100", 100, false},
		{"huge", "1e300", 100, true},
		{"huge negative", "-1e300", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"score":` + tt.score + `,"matchedKeywords":[],"missingKeywords":[],"recommendations":[]}`
			parsed, err := ParseAnalysis(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, parsed.Analysis.Score)
			assert.Equal(t, tt.clamped, parsed.Clamped)
		})
	}
}

func TestParseAnalysisMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "I think the score is 80"},
		{"score is a string", `{"score":"80","matchedKeywords":[],"missingKeywords":[],"recommendations":[]}`},
		{"missing list", `{"score":80,"matchedKeywords":[],"recommendations":[]}`},
		{"null list", `{"score":80,"matchedKeywords":null,"missingKeywords":[],"recommendations":[]}`},
		{"missing score", `{"matchedKeywords":[],"missingKeywords":[],"recommendations":[]}`},
		{"array instead of object", `[1,2,3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnalysis(tt.payload)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedResult), "got %v", err)
		})
	}
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("  {\"a\":1}  "))
}

func TestAnalyzer(t *testing.T) {
	gen := &stubGenerator{responses: map[string]string{config.OperationAnalyze: "```json\n" + samplePayload + "\n```"}}
	analyzer := NewAnalyzer(gen, nil, errors.NewNopLogger())

	analysis, usage, err := analyzer.Analyze(context.Background(), "resume text", acme.JobDescription)
	require.NoError(t, err)
	assert.Equal(t, 72, analysis.Score)
	assert.Equal(t, int64(5), usage.TotalTokens)

	require.Len(t, gen.requests, 1)
	assert.NotNil(t, gen.requests[0].Schema)
	assert.Contains(t, gen.requests[0].Prompt, "resume text")
}

func TestAnalyzerRejectsBlankInputs(t *testing.T) {
	gen := &stubGenerator{}
	analyzer := NewAnalyzer(gen, nil, errors.NewNopLogger())

	_, _, err := analyzer.Analyze(context.Background(), "  ", acme.JobDescription)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	_, _, err = analyzer.Analyze(context.Background(), "resume", "\n")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Empty(t, gen.requests)
}

func TestAnalyzerPropagatesGeneratorErrors(t *testing.T) {
	overload := errors.NewOverloadError(errors.ErrCodeAIOverloaded, ai.OverloadedMessage, nil)
	gen := &stubGenerator{failures: map[string]error{config.OperationAnalyze: overload}}

	_, _, err := NewAnalyzer(gen, nil, errors.NewNopLogger()).Analyze(context.Background(), "resume", acme.JobDescription)
	assert.Same(t, overload, err)
}

func TestOptimizerSuccess(t *testing.T) {
	gen := &stubGenerator{responses: map[string]string{
		config.OperationOptimizeResume: "  OPTIMIZED RESUME  ",
		config.OperationCoverLetter:    "Dear Hiring Manager",
		config.OperationAnalyze:        samplePayload,
	}}

	out, usage, err := NewOptimizer(gen, nil, errors.NewNopLogger()).Optimize(context.Background(), OptimizeInput{
		ResumeText: "5 years of Python experience",
		Job:        acme,
	})
	require.NoError(t, err)
	assert.Equal(t, "OPTIMIZED RESUME", out.OptimizedResume)
	assert.Equal(t, "Dear Hiring Manager", out.CoverLetter)
	assert.Equal(t, 72, out.OptimizedAnalysis.Score)
	assert.Equal(t, int64(15), usage.TotalTokens)

	require.Len(t, gen.requests, 3)
	assert.Equal(t, config.OperationOptimizeResume, gen.requests[0].Operation)
	assert.Equal(t, config.OperationCoverLetter, gen.requests[1].Operation)
	assert.Equal(t, config.OperationAnalyze, gen.requests[2].Operation)
	assert.Contains(t, gen.requests[2].Prompt, "OPTIMIZED RESUME", "re-analysis must use the rewritten resume")
	assert.Contains(t, gen.requests[1].Prompt, "5 years of Python experience")
}

func TestOptimizerFailureReturnsZeroValue(t *testing.T) {
	for _, failing := range []string{config.OperationOptimizeResume, config.OperationCoverLetter, config.OperationAnalyze} {
		t.Run(failing, func(t *testing.T) {
			failure := errors.NewUpstreamError(errors.ErrCodeAIServiceFailed, "boom", nil)
			gen := &stubGenerator{
				responses: map[string]string{
					config.OperationOptimizeResume: "resume",
					config.OperationCoverLetter:    "letter",
					config.OperationAnalyze:        samplePayload,
				},
				failures: map[string]error{failing: failure},
			}

			out, usage, err := NewOptimizer(gen, nil, errors.NewNopLogger()).Optimize(context.Background(), OptimizeInput{ResumeText: "cv", Job: acme})
			assert.Same(t, failure, err)
			assert.Equal(t, types.Optimization{}, out)
			assert.Nil(t, usage)
		})
	}
}

func TestOptimizerValidatesJob(t *testing.T) {
	gen := &stubGenerator{}
	_, _, err := NewOptimizer(gen, nil, errors.NewNopLogger()).Optimize(context.Background(), OptimizeInput{
		ResumeText: "cv",
		Job:        types.JobContext{CompanyName: "Acme", RoleTitle: "Engineer", JobDescription: "too short"},
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Empty(t, gen.requests)
}

func TestCoverLetterWriter(t *testing.T) {
	gen := &stubGenerator{responses: map[string]string{config.OperationCoverLetter: "\nDear Acme team,\n"}}
	writer := NewCoverLetterWriter(gen, nil, errors.NewNopLogger())

	req := types.CoverLetterRequest{
		CompanyName:    "Acme",
		RoleTitle:      "Engineer",
		JobDescription: acme.JobDescription,
		CandidateName:  "Jane Doe",
		CandidateEmail: "jane@example.com",
		CandidatePhone: "+1 555 0100",
		Experience:     "Seven years building Go services at scale.",
	}
	letter, _, err := writer.Write(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Dear Acme team,", letter)

	require.Len(t, gen.requests, 1)
	prompt := gen.requests[0].Prompt
	assert.True(t, strings.HasPrefix(prompt, "Company: Acme\nRole: Engineer"))
	assert.Contains(t, prompt, "Name: Jane Doe\nEmail: jane@example.com\nPhone: +1 555 0100")

	req.CandidateEmail = "not-an-email"
	_, _, err = writer.Write(context.Background(), req)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Len(t, gen.requests, 1)
}
