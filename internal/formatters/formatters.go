package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"resumeforge/internal/types"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Data type keys used for registry lookups.
const (
	typeAny          = "any"
	typeAnalysis     = "ATSAnalysis"
	typeOptimization = "OptimizationResult"
	typeCoverLetter  = "CoverLetterResponse"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter(FormatJSON, typeAny, &JSONFormatter{})
	registry.RegisterFormatter(FormatText, typeAnalysis, &AnalysisTextFormatter{})
	registry.RegisterFormatter(FormatMarkdown, typeAnalysis, &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter(FormatText, typeOptimization, &OptimizationTextFormatter{})
	registry.RegisterFormatter(FormatMarkdown, typeOptimization, &OptimizationMarkdownFormatter{})
	registry.RegisterFormatter(FormatText, typeCoverLetter, &CoverLetterFormatter{})
	registry.RegisterFormatter(FormatMarkdown, typeCoverLetter, &CoverLetterFormatter{markdown: true})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[typeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ATSAnalysis:
		return typeAnalysis
	case types.OptimizationResult:
		return typeOptimization
	case types.CoverLetterResponse:
		return typeCoverLetter
	default:
		return typeAny
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return typeAny
}

// AnalysisTextFormatter renders an ATS analysis as plain text
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	analysis, ok := data.(types.ATSAnalysis)
	if !ok {
		return "", fmt.Errorf("expected ATSAnalysis, got %T", data)
	}
	var out strings.Builder
	out.WriteString("=== ATS ANALYSIS ===\n")
	writeAnalysisText(&out, analysis)
	return out.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string {
	return typeAnalysis
}

func writeAnalysisText(out *strings.Builder, a types.ATSAnalysis) {
	fmt.Fprintf(out, "Score: %d/100\n\n", a.Score)
	out.WriteString("Matched keywords:\n")
	writeList(out, a.MatchedKeywords, "  - ")
	out.WriteString("\nMissing keywords:\n")
	writeList(out, a.MissingKeywords, "  - ")
	out.WriteString("\nRecommendations:\n")
	if len(a.Recommendations) == 0 {
		out.WriteString("  (none)\n")
	}
	for _, r := range a.Recommendations {
		fmt.Fprintf(out, "  [%s] %s\n      %s\n", strings.ToUpper(r.Kind()), r.Title, r.Description)
	}
}

// AnalysisMarkdownFormatter renders an ATS analysis as markdown
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	analysis, ok := data.(types.ATSAnalysis)
	if !ok {
		return "", fmt.Errorf("expected ATSAnalysis, got %T", data)
	}
	var out strings.Builder
	out.WriteString("# ATS Analysis\n\n")
	writeAnalysisMarkdown(&out, analysis, "##")
	return out.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string {
	return typeAnalysis
}

func writeAnalysisMarkdown(out *strings.Builder, a types.ATSAnalysis, heading string) {
	fmt.Fprintf(out, "**Score:** %d/100\n\n", a.Score)
	fmt.Fprintf(out, "%s Matched Keywords\n\n", heading)
	writeList(out, a.MatchedKeywords, "- ")
	fmt.Fprintf(out, "\n%s Missing Keywords\n\n", heading)
	writeList(out, a.MissingKeywords, "- ")
	fmt.Fprintf(out, "\n%s Recommendations\n\n", heading)
	if len(a.Recommendations) == 0 {
		out.WriteString("_None_\n")
	}
	for _, r := range a.Recommendations {
		fmt.Fprintf(out, "- **%s** (%s): %s\n", r.Title, r.Kind(), r.Description)
	}
}

// OptimizationTextFormatter renders an optimization result as plain text
type OptimizationTextFormatter struct{}

func (f *OptimizationTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.OptimizationResult)
	if !ok {
		return "", fmt.Errorf("expected OptimizationResult, got %T", data)
	}

	var out strings.Builder
	out.WriteString("=== OPTIMIZED RESUME ===\n\n")
	out.WriteString(result.OptimizedResume)
	out.WriteString("\n\n=== COVER LETTER ===\n\n")
	out.WriteString(result.CoverLetter)
	fmt.Fprintf(&out, "\n\n=== SCORE: %d -> %d ===\n\n",
		result.OriginalAnalysis.Score, result.OptimizedAnalysis.Score)
	out.WriteString("--- Original analysis ---\n")
	writeAnalysisText(&out, result.OriginalAnalysis)
	out.WriteString("\n--- Optimized analysis ---\n")
	writeAnalysisText(&out, result.OptimizedAnalysis)
	return out.String(), nil
}

func (f *OptimizationTextFormatter) SupportedType() string {
	return typeOptimization
}

// OptimizationMarkdownFormatter renders an optimization result as markdown
type OptimizationMarkdownFormatter struct{}

func (f *OptimizationMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.OptimizationResult)
	if !ok {
		return "", fmt.Errorf("expected OptimizationResult, got %T", data)
	}

	var out strings.Builder
	out.WriteString("# Optimized Resume\n\n")
	out.WriteString(result.OptimizedResume)
	out.WriteString("\n\n# Cover Letter\n\n")
	out.WriteString(result.CoverLetter)
	out.WriteString("\n\n# ATS Score\n\n")
	fmt.Fprintf(&out, "| Original | Optimized |\n|---|---|\n| %d | %d |\n\n",
		result.OriginalAnalysis.Score, result.OptimizedAnalysis.Score)
	out.WriteString("## Original Analysis\n\n")
	writeAnalysisMarkdown(&out, result.OriginalAnalysis, "###")
	out.WriteString("\n## Optimized Analysis\n\n")
	writeAnalysisMarkdown(&out, result.OptimizedAnalysis, "###")
	return out.String(), nil
}

func (f *OptimizationMarkdownFormatter) SupportedType() string {
	return typeOptimization
}

// CoverLetterFormatter renders a cover letter as is, with a heading in
// markdown mode.
type CoverLetterFormatter struct {
	markdown bool
}

func (f *CoverLetterFormatter) Format(data any) (string, error) {
	resp, ok := data.(types.CoverLetterResponse)
	if !ok {
		return "", fmt.Errorf("expected CoverLetterResponse, got %T", data)
	}
	if f.markdown {
		return "# Cover Letter\n\n" + resp.CoverLetter + "\n", nil
	}
	return resp.CoverLetter + "\n", nil
}

func (f *CoverLetterFormatter) SupportedType() string {
	return typeCoverLetter
}

func writeList(out *strings.Builder, items []string, bullet string) {
	if len(items) == 0 {
		out.WriteString(bullet + "(none)\n")
		return
	}
	for _, item := range items {
		out.WriteString(bullet + item + "\n")
	}
}
