package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "resumeforge/internal/errors"
)

const sampleJD = "We are hiring a backend engineer with strong Python and SQL skills for our data platform."

func TestJobContextValidate(t *testing.T) {
	tests := []struct {
		name    string
		ctx     JobContext
		wantErr bool
	}{
		{"valid", JobContext{CompanyName: "Acme", RoleTitle: "Engineer", JobDescription: sampleJD}, false},
		{"blank company", JobContext{CompanyName: "   ", RoleTitle: "Engineer", JobDescription: sampleJD}, true},
		{"missing role", JobContext{CompanyName: "Acme", JobDescription: sampleJD}, true},
		{"short description", JobContext{CompanyName: "Acme", RoleTitle: "Engineer", JobDescription: "too short"}, true},
		{"padding does not count", JobContext{CompanyName: "Acme", RoleTitle: "Engineer", JobDescription: "  " + strings.Repeat("x", 49) + "     "}, true},
		{"exactly fifty", JobContext{CompanyName: "Acme", RoleTitle: "Engineer", JobDescription: strings.Repeat("x", 50)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ctx.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCoverLetterRequestValidate(t *testing.T) {
	valid := CoverLetterRequest{
		CompanyName:    "Acme",
		RoleTitle:      "Engineer",
		JobDescription: sampleJD,
		CandidateName:  "Sam Doe",
		CandidateEmail: "sam@example.com",
		CandidatePhone: "+1 555 0100",
		Experience:     "Five years building Python services.",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name        string
		mutate      func(*CoverLetterRequest)
		wantMessage string
	}{
		{"bad email", func(r *CoverLetterRequest) { r.CandidateEmail = "not-an-email" }, "Valid email is required"},
		{"blank email", func(r *CoverLetterRequest) { r.CandidateEmail = "  " }, "Valid email is required"},
		{"no name", func(r *CoverLetterRequest) { r.CandidateName = "" }, "Candidate name is required"},
		{"no phone", func(r *CoverLetterRequest) { r.CandidatePhone = " " }, "Phone number is required"},
		{"short experience", func(r *CoverLetterRequest) { r.Experience = "Python" }, "Experience description must be at least 20 characters"},
		{"short job description", func(r *CoverLetterRequest) { r.JobDescription = "short" }, "Job description must be at least 50 characters"},
		{"company reported first", func(r *CoverLetterRequest) {
			r.CompanyName = ""
			r.CandidateEmail = "bad"
		}, "Company name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			appErr, ok := apperrors.AsAppError(req.Validate())
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tt.wantMessage, appErr.Message)
		})
	}

	padded := valid
	padded.CandidateEmail = "  sam@example.com "
	assert.NoError(t, padded.Validate(), "surrounding spaces are trimmed before validation")
}

func TestValidateJobDescriptionCountsRunes(t *testing.T) {
	assert.NoError(t, ValidateJobDescription(strings.Repeat("é", MinJobDescriptionLength)))

	err := ValidateJobDescription(strings.Repeat("é", MinJobDescriptionLength-1))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Job description must be at least 50 characters", appErr.Message)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, appErr.Code)
}

func TestATSAnalysisDecodesUpstreamPayload(t *testing.T) {
	payload := `{"score":72,"matchedKeywords":["Go","SQL"],"missingKeywords":["Kubernetes"],"recommendations":[{"type":"add","title":"Add K8s","description":"Mention container orchestration"}]}`

	var analysis ATSAnalysis
	require.NoError(t, json.Unmarshal([]byte(payload), &analysis))

	assert.Equal(t, 72, analysis.Score)
	assert.Equal(t, []string{"Go", "SQL"}, analysis.MatchedKeywords)
	assert.Equal(t, []string{"Kubernetes"}, analysis.MissingKeywords)
	require.Len(t, analysis.Recommendations, 1)
	assert.Equal(t, Recommendation{Type: "add", Title: "Add K8s", Description: "Mention container orchestration"}, analysis.Recommendations[0])
}

func TestRecommendationKind(t *testing.T) {
	assert.Equal(t, RecommendationImprove, Recommendation{Type: "improve"}.Kind())
	unknown := Recommendation{Type: "restructure"}
	assert.Equal(t, RecommendationFallback, unknown.Kind())
	assert.Equal(t, "restructure", unknown.Type)
}

func TestApplicationRecordOriginalAnalysis(t *testing.T) {
	rec := &ApplicationRecord{ID: "a"}
	zero := rec.OriginalAnalysis()
	assert.Equal(t, 0, zero.Score)
	assert.NotNil(t, zero.MatchedKeywords)
	assert.Empty(t, zero.Recommendations)

	score := 64
	rec.OriginalATSScore = &score
	rec.MatchedKeywords = []string{"Python"}
	got := rec.OriginalAnalysis()
	assert.Equal(t, 64, got.Score)
	assert.Equal(t, []string{"Python"}, got.MatchedKeywords)
	assert.Equal(t, []string{}, got.MissingKeywords)

	got.MatchedKeywords[0] = "changed"
	assert.Equal(t, "Python", rec.MatchedKeywords[0])
}

func TestApplicationRecordJSONNulls(t *testing.T) {
	data, err := json.Marshal(&ApplicationRecord{ID: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"optimizedResume":null`)
	assert.Contains(t, string(data), `"originalAtsScore":null`)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 500))
	assert.Equal(t, "héllo...", Preview("héllo world", 5))
	long := strings.Repeat("a", 600)
	assert.Equal(t, strings.Repeat("a", 500)+"...", Preview(long, 500))
}
