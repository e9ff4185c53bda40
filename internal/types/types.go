package types

import (
	"time"
)

// Well-known recommendation kinds. The upstream may return others; they are
// kept verbatim.
const (
	RecommendationAdd     = "add"
	RecommendationImprove = "improve"
	RecommendationEnhance = "enhance"

	// RecommendationFallback is the display kind for unrecognised types.
	RecommendationFallback = "suggestion"
)

// UploadedDocument is a transient uploaded file. It is never persisted.
type UploadedDocument struct {
	Data      []byte
	MediaType string
	Size      int64
	Filename  string
}

// JobContext describes the posting a resume is tailored to
type JobContext struct {
	CompanyName    string `json:"companyName" validate:"required"`
	RoleTitle      string `json:"roleTitle" validate:"required"`
	JobDescription string `json:"jobDescription" validate:"min=50"`
}

// Recommendation is a single improvement suggestion
type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Kind returns the display kind, mapping unknown types to the fallback
// without changing Type.
func (r Recommendation) Kind() string {
	switch r.Type {
	case RecommendationAdd, RecommendationImprove, RecommendationEnhance:
		return r.Type
	default:
		return RecommendationFallback
	}
}

// ATSAnalysis is the structured compatibility result for one resume against
// one job description.
type ATSAnalysis struct {
	Score           int              `json:"score"`
	MatchedKeywords []string         `json:"matchedKeywords"`
	MissingKeywords []string         `json:"missingKeywords"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ZeroAnalysis is reported when no original analysis has been run yet.
func ZeroAnalysis() ATSAnalysis {
	return ATSAnalysis{
		Score:           0,
		MatchedKeywords: []string{},
		MissingKeywords: []string{},
		Recommendations: []Recommendation{},
	}
}

// Clone returns a deep copy.
func (a ATSAnalysis) Clone() ATSAnalysis {
	return ATSAnalysis{
		Score:           a.Score,
		MatchedKeywords: cloneStrings(a.MatchedKeywords),
		MissingKeywords: cloneStrings(a.MissingKeywords),
		Recommendations: cloneRecommendations(a.Recommendations),
	}
}

// Optimization is what the optimization pipeline produces for one record
type Optimization struct {
	OptimizedResume   string      `json:"optimizedResume"`
	CoverLetter       string      `json:"coverLetter"`
	OptimizedAnalysis ATSAnalysis `json:"optimizedAnalysis"`
}

// OptimizationResult is the optimize endpoint response
type OptimizationResult struct {
	OptimizedResume   string      `json:"optimizedResume"`
	CoverLetter       string      `json:"coverLetter"`
	OriginalAnalysis  ATSAnalysis `json:"originalAnalysis"`
	OptimizedAnalysis ATSAnalysis `json:"optimizedAnalysis"`
}

// ApplicationRecord is one persisted tailoring session
type ApplicationRecord struct {
	ID                     string           `json:"id"`
	CompanyName            string           `json:"companyName"`
	RoleTitle              string           `json:"roleTitle"`
	JobDescription         string           `json:"jobDescription"`
	OriginalResumeText     string           `json:"originalResumeText"`
	OriginalResumeFilename string           `json:"originalResumeFilename"`
	OptimizedResume        *string          `json:"optimizedResume"`
	CoverLetter            *string          `json:"coverLetter"`
	OriginalATSScore       *int             `json:"originalAtsScore"`
	OptimizedATSScore      *int             `json:"optimizedAtsScore"`
	MatchedKeywords        []string         `json:"matchedKeywords"`
	MissingKeywords        []string         `json:"missingKeywords"`
	Recommendations        []Recommendation `json:"recommendations"`
	CreatedAt              time.Time        `json:"createdAt"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// JobContext returns the job fields of the record.
func (r *ApplicationRecord) JobContext() JobContext {
	return JobContext{
		CompanyName:    r.CompanyName,
		RoleTitle:      r.RoleTitle,
		JobDescription: r.JobDescription,
	}
}

// OriginalAnalysis rebuilds the stored original analysis, or the zero
// analysis when none was stored.
func (r *ApplicationRecord) OriginalAnalysis() ATSAnalysis {
	if r.OriginalATSScore == nil {
		return ZeroAnalysis()
	}
	analysis := ATSAnalysis{
		Score:           *r.OriginalATSScore,
		MatchedKeywords: cloneStrings(r.MatchedKeywords),
		MissingKeywords: cloneStrings(r.MissingKeywords),
		Recommendations: cloneRecommendations(r.Recommendations),
	}
	if analysis.MatchedKeywords == nil {
		analysis.MatchedKeywords = []string{}
	}
	if analysis.MissingKeywords == nil {
		analysis.MissingKeywords = []string{}
	}
	if analysis.Recommendations == nil {
		analysis.Recommendations = []Recommendation{}
	}
	return analysis
}

// Clone returns a deep copy of the record.
func (r *ApplicationRecord) Clone() *ApplicationRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.OptimizedResume != nil {
		v := *r.OptimizedResume
		out.OptimizedResume = &v
	}
	if r.CoverLetter != nil {
		v := *r.CoverLetter
		out.CoverLetter = &v
	}
	if r.OriginalATSScore != nil {
		v := *r.OriginalATSScore
		out.OriginalATSScore = &v
	}
	if r.OptimizedATSScore != nil {
		v := *r.OptimizedATSScore
		out.OptimizedATSScore = &v
	}
	out.MatchedKeywords = cloneStrings(r.MatchedKeywords)
	out.MissingKeywords = cloneStrings(r.MissingKeywords)
	out.Recommendations = cloneRecommendations(r.Recommendations)
	return &out
}

// CoverLetterRequest carries candidate details for a standalone letter
type CoverLetterRequest struct {
	CompanyName    string `json:"companyName" validate:"required"`
	RoleTitle      string `json:"roleTitle" validate:"required"`
	JobDescription string `json:"jobDescription" validate:"min=50"`
	CandidateName  string `json:"candidateName" validate:"required"`
	CandidateEmail string `json:"candidateEmail" validate:"required,email"`
	CandidatePhone string `json:"candidatePhone" validate:"required"`
	Experience     string `json:"experience" validate:"min=20"`
}

// CoverLetterResponse is the generate-cover-letter response
type CoverLetterResponse struct {
	CoverLetter string `json:"coverLetter"`
}

// UploadResponse is returned after a resume was stored
type UploadResponse struct {
	ApplicationID     string `json:"applicationId"`
	Message           string `json:"message"`
	ResumeTextPreview string `json:"resumeTextPreview"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRecommendations(in []Recommendation) []Recommendation {
	if in == nil {
		return nil
	}
	out := make([]Recommendation, len(in))
	copy(out, in)
	return out
}
