package pipeline

import (
	"encoding/json"
	"math"
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

const (
	MinScore = 0
	MaxScore = 100
)

// analysisPayload mirrors the response schema. Pointers distinguish missing
// or null fields from empty ones.
type analysisPayload struct {
	Score           *float64                `json:"score"`
	MatchedKeywords *[]string               `json:"matchedKeywords"`
	MissingKeywords *[]string               `json:"missingKeywords"`
	Recommendations *[]types.Recommendation `json:"recommendations"`
}

// ParsedAnalysis is a validated analysis plus the score as the model sent it.
type ParsedAnalysis struct {
	Analysis types.ATSAnalysis
	RawScore float64
	Clamped  bool
}

// ParseAnalysis decodes a model response into an ATSAnalysis. The score is
// rounded and clamped to [0,100]; list order is kept as returned.
func ParseAnalysis(text string) (ParsedAnalysis, error) {
	var payload analysisPayload
	if err := json.Unmarshal([]byte(CleanJSON(text)), &payload); err != nil {
		return ParsedAnalysis{}, errors.NewMalformedResultError(errors.ErrCodeMalformedResult,
			"The AI service returned an analysis that could not be read.", err)
	}

	var missing []string
	if payload.Score == nil {
		missing = append(missing, "score")
	}
	if payload.MatchedKeywords == nil {
		missing = append(missing, "matchedKeywords")
	}
	if payload.MissingKeywords == nil {
		missing = append(missing, "missingKeywords")
	}
	if payload.Recommendations == nil {
		missing = append(missing, "recommendations")
	}
	if len(missing) > 0 {
		return ParsedAnalysis{}, errors.NewMalformedResultError(errors.ErrCodeMalformedResult,
			"The AI service returned an incomplete analysis.", nil).
			WithContext("missing_fields", strings.Join(missing, ","))
	}

	raw := *payload.Score
	// clamp before converting; huge floats do not convert to int portably
	rounded := math.Round(raw)
	clamped := false
	if rounded < MinScore {
		rounded, clamped = MinScore, true
	} else if rounded > MaxScore {
		rounded, clamped = MaxScore, true
	}
	score := int(rounded)

	return ParsedAnalysis{
		Analysis: types.ATSAnalysis{
			Score:           score,
			MatchedKeywords: *payload.MatchedKeywords,
			MissingKeywords: *payload.MissingKeywords,
			Recommendations: *payload.Recommendations,
		},
		RawScore: raw,
		Clamped:  clamped,
	}, nil
}

// CleanJSON strips a surrounding markdown code fence, if any.
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
