package ai

import (
	"fmt"

	"google.golang.org/genai"

	"resumeforge/internal/config"
)

// PromptSet holds the system instruction and user template for one operation
type PromptSet struct {
	System string
	User   string
}

// DefaultPrompts are used when neither a prompt file nor inline config
// overrides an operation. User templates take their %s arguments in the
// order documented on each Build method.
var DefaultPrompts = map[string]PromptSet{
	config.OperationAnalyze: {
		System: `You are an expert ATS (Applicant Tracking System) analyzer. Analyze the resume against the job description and provide:
1. An ATS compatibility score (0-100)
2. Keywords from job description that are matched in the resume
3. Important keywords missing from the resume
4. Specific actionable recommendations

Respond with JSON in this exact format:
{
  "score": number,
  "matchedKeywords": string[],
  "missingKeywords": string[],
  "recommendations": [
    {
      "type": "add|improve|enhance",
      "title": "Brief title",
      "description": "Detailed recommendation"
    }
  ]
}`,
		User: "Job Description:\n%s\n\nResume:\n%s",
	},

	config.OperationOptimizeResume: {
		System: `You are an expert resume optimization specialist. Create an optimized version of the provided resume that:
1. Strategically incorporates relevant keywords from the job description
2. Highlights relevant experience and skills with quantifiable achievements
3. Uses strong action verbs and professional language
4. Maintains clean, professional formatting with clear sections
5. Maximizes ATS compatibility with proper keyword density
6. Follows this professional format structure:

[CANDIDATE NAME]
[Contact Information]

PROFESSIONAL SUMMARY
• Compelling 2-3 line summary targeting the specific role

CORE COMPETENCIES
• Key skills organized in a scannable format

PROFESSIONAL EXPERIENCE
[COMPANY NAME] | [DATES]
[Job Title]
• Achievement-focused bullet points with metrics
• Action verbs and relevant keywords
• Quantified results when possible

EDUCATION
[Degree] | [Institution] | [Year]

Return only the complete optimized resume text with professional formatting.`,
		User: `Company: %s
Role: %s

Job Description:
%s

Original Resume:
%s

Please optimize this resume for the above position with professional formatting and clear sections.`,
	},

	config.OperationCoverLetter: {
		System: `You are an expert cover letter writer. Create a personalized, professional cover letter that:
1. Shows genuine interest in the company and role
2. Connects the candidate's experience to job requirements
3. Highlights relevant achievements from the resume
4. Maintains a professional yet engaging tone
5. Follows proper business letter format with sections:
   - Header with contact information
   - Date and employer address
   - Professional salutation
   - Opening paragraph expressing interest
   - Body paragraphs connecting experience to role
   - Closing paragraph with call to action
   - Professional sign-off

Return only the complete cover letter text with proper formatting.`,
		User: `Company: %s
Role: %s

Job Description:
%s

Candidate's Resume/Experience:
%s

Please write a compelling, well-formatted cover letter for this application.`,
	},
}

// Prompts resolves the effective prompts per operation: file, then inline
// config, then the default.
type Prompts struct {
	files  *config.PromptStore
	inline map[string]config.PromptConfig
}

// NewPrompts builds a resolver. files may be nil.
func NewPrompts(cfg *config.Config, files *config.PromptStore) *Prompts {
	p := &Prompts{files: files, inline: make(map[string]config.PromptConfig)}
	if cfg != nil {
		for _, op := range config.Operations {
			p.inline[op] = cfg.GetOperationConfig(op).CustomPrompts
		}
	}
	return p
}

// For returns the prompt set for an operation
func (p *Prompts) For(operation string) PromptSet {
	def := DefaultPrompts[operation]
	if p == nil {
		return def
	}
	loaded := p.files.Get(operation)
	inline := p.inline[operation]
	return PromptSet{
		System: resolvePrompt(loaded.System, inline.System, def.System),
		User:   resolvePrompt(loaded.User, inline.User, def.User),
	}
}

// BuildAnalyze returns the request for an ATS analysis.
func (p *Prompts) BuildAnalyze(resumeText, jobDescription string) GenerateRequest {
	set := p.For(config.OperationAnalyze)
	return GenerateRequest{
		Operation:         config.OperationAnalyze,
		SystemInstruction: set.System,
		Prompt:            fmt.Sprintf(set.User, jobDescription, resumeText),
		Schema:            AnalysisSchema(),
	}
}

// BuildOptimizeResume returns the free-text resume rewrite request.
func (p *Prompts) BuildOptimizeResume(companyName, roleTitle, jobDescription, resumeText string) GenerateRequest {
	set := p.For(config.OperationOptimizeResume)
	return GenerateRequest{
		Operation:         config.OperationOptimizeResume,
		SystemInstruction: set.System,
		Prompt:            fmt.Sprintf(set.User, companyName, roleTitle, jobDescription, resumeText),
	}
}

// BuildCoverLetter returns the free-text cover letter request. experience is
// either a resume or a candidate summary.
func (p *Prompts) BuildCoverLetter(companyName, roleTitle, jobDescription, experience string) GenerateRequest {
	set := p.For(config.OperationCoverLetter)
	return GenerateRequest{
		Operation:         config.OperationCoverLetter,
		SystemInstruction: set.System,
		Prompt:            fmt.Sprintf(set.User, companyName, roleTitle, jobDescription, experience),
	}
}

// AnalysisSchema is the response schema for ATS analyses.
func AnalysisSchema() *genai.Schema {
	stringList := &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":           {Type: genai.TypeNumber},
			"matchedKeywords": stringList,
			"missingKeywords": stringList,
			"recommendations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type":        {Type: genai.TypeString},
						"title":       {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
					},
					Required: []string{"type", "title", "description"},
				},
			},
		},
		Required: []string{"score", "matchedKeywords", "missingKeywords", "recommendations"},
	}
}

// resolvePrompt picks the first non-empty of file, config and default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
