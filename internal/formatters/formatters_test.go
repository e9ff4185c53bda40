package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeforge/internal/types"
)

var sampleAnalysis = types.ATSAnalysis{
	Score:           72,
	MatchedKeywords: []string{"Python", "SQL"},
	MissingKeywords: []string{"Kubernetes"},
	Recommendations: []types.Recommendation{
		{Type: "add", Title: "Add K8s", Description: "Mention container orchestration"},
		{Type: "restructure", Title: "Reorder", Description: "Lead with impact"},
	},
}

func TestFormatAnalysis(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{FormatText, []string{"Score: 72/100", "  - Python", "[ADD] Add K8s", "[SUGGESTION] Reorder"}},
		{FormatMarkdown, []string{"# ATS Analysis", "**Score:** 72/100", "## Missing Keywords", "- Kubernetes", "**Reorder** (suggestion)"}},
		{FormatJSON, []string{`"score": 72`, `"matchedKeywords"`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := GlobalRegistry.Format(sampleAnalysis, tt.format)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestFormatOptimization(t *testing.T) {
	result := types.OptimizationResult{
		OptimizedResume:   "Better resume",
		CoverLetter:       "Dear Hiring Manager",
		OriginalAnalysis:  types.ZeroAnalysis(),
		OptimizedAnalysis: sampleAnalysis,
	}

	text, err := GlobalRegistry.Format(result, FormatText)
	require.NoError(t, err)
	assert.Contains(t, text, "=== OPTIMIZED RESUME ===\n\nBetter resume")
	assert.Contains(t, text, "SCORE: 0 -> 72")
	assert.Contains(t, text, "(none)")

	md, err := GlobalRegistry.Format(result, FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, md, "| 0 | 72 |")
	assert.Contains(t, md, "### Matched Keywords")

	raw, err := GlobalRegistry.Format(result, FormatJSON)
	require.NoError(t, err)
	var decoded types.OptimizationResult
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, 72, decoded.OptimizedAnalysis.Score)
}

func TestFormatCoverLetter(t *testing.T) {
	resp := types.CoverLetterResponse{CoverLetter: "Dear team"}

	text, err := GlobalRegistry.Format(resp, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Dear team\n", text)

	md, err := GlobalRegistry.Format(resp, FormatMarkdown)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "# Cover Letter"))
}

func TestFormatErrors(t *testing.T) {
	_, err := GlobalRegistry.Format(sampleAnalysis, "xml")
	assert.Error(t, err)

	_, err = GlobalRegistry.Format(struct{}{}, FormatText)
	assert.Error(t, err, "text has no generic fallback")

	_, err = (&AnalysisTextFormatter{}).Format("not an analysis")
	assert.Error(t, err)
}

func TestSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{FormatJSON, FormatMarkdown, FormatText}, GlobalRegistry.GetSupportedFormats())
}
