package server

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"resumeforge/internal/ai"
	"resumeforge/internal/errors"
	"resumeforge/internal/events"
	"resumeforge/internal/observability"
	"resumeforge/internal/pipeline"
	"resumeforge/internal/store"
	"resumeforge/internal/types"
)

const uploadSuccessMessage = "Resume uploaded and parsed successfully"

func (s *Server) startSpan(r *http.Request, name string) (context.Context, oteltrace.Span) {
	return s.obs.Tracer("resumeforge.api").Start(r.Context(), name)
}

// fail records err on the span and writes the mapped error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, span oteltrace.Span, err error, fallback string) {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
	s.writeAppError(w, r, err, fallback)
}

func (s *Server) logUsage(operation, id string, usage *ai.TokenUsage) {
	if usage == nil {
		return
	}
	s.Logger.Debug("Token usage",
		"operation", operation,
		"application_id", id,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"total_tokens", usage.TotalTokens)
}

// uploadHandler extracts the resume text and creates an application record.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.upload")
	defer span.End()

	form, err := s.parseMultipart(w, r)
	if err != nil {
		s.fail(w, r, span, err, "Failed to upload resume")
		return
	}
	defer func() { _ = form.RemoveAll() }()

	header, mediaType, err := s.resumeHeader(form)
	if err != nil {
		s.fail(w, r, span, err, "Failed to upload resume")
		return
	}
	job, err := jobFromForm(form)
	if err != nil {
		s.fail(w, r, span, err, "Failed to upload resume")
		return
	}
	doc, err := s.readResume(header, mediaType)
	if err != nil {
		s.fail(w, r, span, err, "Failed to upload resume")
		return
	}

	span.SetAttributes(
		attribute.String("upload.media_type", doc.MediaType),
		attribute.Int64("upload.size", doc.Size),
	)

	text, err := s.deps.Extractor.Extract(ctx, doc.Data, doc.MediaType)
	if err != nil {
		s.obs.RecordBusinessMetric(ctx, observability.MetricExtractionFailure, false,
			attribute.String("media_type", doc.MediaType))
		s.fail(w, r, span, err, "Failed to upload resume")
		return
	}

	rec, err := s.deps.Store.Create(ctx, store.NewApplication{
		Job:        job,
		ResumeText: text,
		Filename:   doc.Filename,
	})
	if err != nil {
		s.fail(w, r, span, err, "Failed to upload resume")
		return
	}

	s.obs.RecordUpload(ctx, doc.MediaType, doc.Size, len(text))
	s.obs.RecordBusinessMetric(ctx, observability.MetricResumeUploaded, true)
	s.Logger.Info("Resume uploaded",
		"application_id", rec.ID,
		"media_type", doc.MediaType,
		"text_length", len(text))

	s.publish(ctx, events.Event{
		Type:          events.TypeUploaded,
		ApplicationID: rec.ID,
		CompanyName:   rec.CompanyName,
		RoleTitle:     rec.RoleTitle,
	})

	writeJSON(w, http.StatusOK, types.UploadResponse{
		ApplicationID:     rec.ID,
		Message:           uploadSuccessMessage,
		ResumeTextPreview: types.Preview(text, s.PreviewLength),
	})
}

// analyzeOriginalHandler scores the stored resume and saves the analysis.
func (s *Server) analyzeOriginalHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.analyze_original")
	defer span.End()

	id := r.PathValue("id")
	span.SetAttributes(attribute.String("application.id", id))

	rec, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		s.fail(w, r, span, err, "Failed to analyze resume")
		return
	}

	analysis, usage, err := s.deps.Analyzer.Analyze(ctx, rec.OriginalResumeText, rec.JobDescription)
	if err != nil {
		s.obs.RecordBusinessMetric(ctx, observability.MetricOriginalAnalyzed, false)
		s.fail(w, r, span, err, "Failed to analyze resume")
		return
	}
	s.logUsage("analyze-original", id, usage)

	if _, err := s.deps.Store.Update(ctx, id, store.ResultUpdate{OriginalAnalysis: &analysis}); err != nil {
		s.fail(w, r, span, err, "Failed to analyze resume")
		return
	}

	s.obs.RecordBusinessMetric(ctx, observability.MetricOriginalAnalyzed, true)
	s.obs.RecordScore(ctx, "original", analysis.Score)
	span.SetAttributes(attribute.Int("ats.score", analysis.Score))

	score := analysis.Score
	s.publish(ctx, events.Event{
		Type:          events.TypeAnalyzed,
		ApplicationID: id,
		CompanyName:   rec.CompanyName,
		RoleTitle:     rec.RoleTitle,
		Score:         &score,
	})

	writeJSON(w, http.StatusOK, analysis)
}

// optimizeHandler rewrites the stored resume, writes a cover letter and
// re-scores the rewrite. Results are stored only when every step succeeds.
func (s *Server) optimizeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.optimize")
	defer span.End()

	id := r.PathValue("id")
	span.SetAttributes(attribute.String("application.id", id))

	rec, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		s.fail(w, r, span, err, "Failed to optimize resume")
		return
	}

	opt, usage, err := s.deps.Optimizer.Optimize(ctx, pipeline.OptimizeInput{
		ResumeText: rec.OriginalResumeText,
		Job:        rec.JobContext(),
	})
	if err != nil {
		s.obs.RecordBusinessMetric(ctx, observability.MetricResumeOptimized, false)
		s.fail(w, r, span, err, "Failed to optimize resume")
		return
	}
	s.logUsage("optimize", id, usage)

	updated, err := s.deps.Store.Update(ctx, id, store.ResultUpdate{
		Optimization: &store.OptimizationOutcome{
			OptimizedResume:   opt.OptimizedResume,
			CoverLetter:       opt.CoverLetter,
			OptimizedATSScore: opt.OptimizedAnalysis.Score,
		},
	})
	if err != nil {
		s.fail(w, r, span, err, "Failed to optimize resume")
		return
	}

	s.obs.RecordBusinessMetric(ctx, observability.MetricResumeOptimized, true)
	s.obs.RecordScore(ctx, "optimized", opt.OptimizedAnalysis.Score)
	span.SetAttributes(attribute.Int("ats.optimized_score", opt.OptimizedAnalysis.Score))

	s.goBackground(func() { s.afterOptimize(ctx, updated) })

	writeJSON(w, http.StatusOK, types.OptimizationResult{
		OptimizedResume:   opt.OptimizedResume,
		CoverLetter:       opt.CoverLetter,
		OriginalAnalysis:  rec.OriginalAnalysis(),
		OptimizedAnalysis: opt.OptimizedAnalysis,
	})
}

// scanResumeHandler analyzes an uploaded resume without storing anything.
func (s *Server) scanResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.scan_resume")
	defer span.End()

	form, err := s.parseMultipart(w, r)
	if err != nil {
		s.fail(w, r, span, err, "Failed to scan resume")
		return
	}
	defer func() { _ = form.RemoveAll() }()

	header, mediaType, err := s.resumeHeader(form)
	if err != nil {
		s.fail(w, r, span, err, "Failed to scan resume")
		return
	}
	jobDescription := formValue(form, "jobDescription")
	if err := types.ValidateJobDescription(jobDescription); err != nil {
		s.fail(w, r, span, err, "Failed to scan resume")
		return
	}
	doc, err := s.readResume(header, mediaType)
	if err != nil {
		s.fail(w, r, span, err, "Failed to scan resume")
		return
	}

	text, err := s.deps.Extractor.Extract(ctx, doc.Data, doc.MediaType)
	if err != nil {
		s.obs.RecordBusinessMetric(ctx, observability.MetricExtractionFailure, false,
			attribute.String("media_type", doc.MediaType))
		s.fail(w, r, span, err, "Failed to scan resume")
		return
	}

	analysis, usage, err := s.deps.Analyzer.Analyze(ctx, text, jobDescription)
	if err != nil {
		s.obs.RecordBusinessMetric(ctx, observability.MetricResumeScanned, false)
		s.fail(w, r, span, err, "Failed to scan resume")
		return
	}
	s.logUsage("scan", "", usage)

	s.obs.RecordBusinessMetric(ctx, observability.MetricResumeScanned, true)
	s.obs.RecordScore(ctx, "scan", analysis.Score)

	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) getApplicationHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err, "Failed to fetch job application")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) downloadOptimizedResumeHandler(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "optimized_resume.txt", "Optimized resume has not been generated",
		func(rec *types.ApplicationRecord) *string { return rec.OptimizedResume })
}

func (s *Server) downloadCoverLetterHandler(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "cover_letter.txt", "Cover letter has not been generated",
		func(rec *types.ApplicationRecord) *string { return rec.CoverLetter })
}

func (s *Server) download(w http.ResponseWriter, r *http.Request, filename, missing string, field func(*types.ApplicationRecord) *string) {
	id := r.PathValue("id")
	rec, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err, "Failed to fetch job application")
		return
	}
	body := field(rec)
	if body == nil || *body == "" {
		s.writeAppError(w, r, errors.NewNotFoundError(errors.ErrCodeRecordNotFound, missing, nil).WithContext("id", id), missing)
		return
	}
	writeText(w, filename, *body)
}

// generateCoverLetterHandler writes a standalone letter from candidate details.
func (s *Server) generateCoverLetterHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.generate_cover_letter")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, multipartOverhead)

	var req types.CoverLetterRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.fail(w, r, span, err, "Failed to generate cover letter")
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, r, span, err, "Failed to generate cover letter")
		return
	}

	letter, usage, err := s.deps.Letters.Write(ctx, req)
	if err != nil {
		s.obs.RecordBusinessMetric(ctx, observability.MetricCoverLetter, false)
		s.fail(w, r, span, err, "Failed to generate cover letter")
		return
	}
	s.logUsage("cover-letter", "", usage)
	s.obs.RecordBusinessMetric(ctx, observability.MetricCoverLetter, true)

	writeJSON(w, http.StatusOK, types.CoverLetterResponse{CoverLetter: letter})
}
