package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"resumeforge/internal/ai"
)

// Business metric types accepted by RecordBusinessMetric.
const (
	MetricResumeUploaded    = "resume_uploaded"
	MetricOriginalAnalyzed  = "original_analyzed"
	MetricResumeOptimized   = "resume_optimized"
	MetricResumeScanned     = "resume_scanned"
	MetricCoverLetter       = "cover_letter_generated"
	MetricExtractionFailure = "extraction_failed"
	MetricRateLimitHit      = "rate_limit_hit"
)

// Metrics holds the custom instruments. Nil instruments are skipped.
type Metrics struct {
	// generation
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// business
	ResumesUploaded    metric.Int64Counter
	OriginalAnalyses   metric.Int64Counter
	ResumesOptimized   metric.Int64Counter
	ResumesScanned     metric.Int64Counter
	CoverLetters       metric.Int64Counter
	ExtractionFailures metric.Int64Counter
	ATSScore           metric.Int64Histogram
	ResumeTextLength   metric.Int64Histogram

	// infrastructure
	RateLimitHits metric.Int64Counter
	UploadSize    metric.Int64Histogram
}

// Manager owns the tracer and meter providers.
type Manager struct {
	settings       Settings
	resource       *resource.Resource
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
	metricsHandler http.Handler
}

// NewManager builds the providers. A disabled manager is still usable; all
// of its recording methods are no-ops.
func NewManager(settings Settings) (*Manager, error) {
	m := &Manager{settings: settings, metrics: &Metrics{}}
	if !settings.Enabled {
		return m, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(settings.ServiceName),
			semconv.ServiceVersion(settings.ServiceVersion),
			attribute.String("service.instance.id", settings.ServiceInstance),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	m.resource = res

	if err := m.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return m, nil
}

func (m *Manager) initTracing() error {
	if !m.settings.TracingEnabled {
		return nil
	}

	var exporter trace.SpanExporter
	var err error
	switch {
	case m.settings.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if m.settings.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.settings.OTLP.Enabled:
		exporter, err = m.createOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(m.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(m.settings.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) initMetrics() error {
	var readers []sdkmetric.Reader

	if m.settings.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(m.settings.CollectionInterval)))
	}

	if m.settings.OTLP.Enabled {
		reader, err := m.createOTLPMetricsReader()
		if err != nil {
			return fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if m.settings.Prometheus.Enabled {
		reader, handler, err := SetupPrometheusExporter()
		if err != nil {
			return err
		}
		readers = append(readers, reader)
		m.metricsHandler = handler
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(m.resource)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	return m.initCustomMetrics(mp.Meter(m.settings.ServiceName))
}

func (m *Manager) initCustomMetrics(meter metric.Meter) error {
	var err error
	mt := m.metrics

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&mt.AIRequestCount, "resumeforge_ai_requests_total", "Total number of generation requests"},
		{&mt.AIErrorCount, "resumeforge_ai_errors_total", "Total number of failed generation requests"},
		{&mt.ResumesUploaded, "resumeforge_resumes_uploaded_total", "Total number of uploaded resumes"},
		{&mt.OriginalAnalyses, "resumeforge_original_analyses_total", "Total number of stored original analyses"},
		{&mt.ResumesOptimized, "resumeforge_resumes_optimized_total", "Total number of resume optimizations"},
		{&mt.ResumesScanned, "resumeforge_resumes_scanned_total", "Total number of one-off ATS scans"},
		{&mt.CoverLetters, "resumeforge_cover_letters_total", "Total number of standalone cover letters"},
		{&mt.ExtractionFailures, "resumeforge_extraction_failures_total", "Total number of documents that could not be read"},
		{&mt.RateLimitHits, "resumeforge_rate_limit_hits_total", "Total number of rate limit rejections"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	if mt.AIProcessingTime, err = meter.Float64Histogram(
		"resumeforge_ai_processing_duration_seconds",
		metric.WithDescription("Time spent in generation requests, retries included"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	histograms := []struct {
		dst  *metric.Int64Histogram
		name string
		desc string
		unit string
	}{
		{&mt.AITokenUsage, "resumeforge_ai_token_usage", "Token usage per generation request", "{token}"},
		{&mt.ATSScore, "resumeforge_ats_score", "Distribution of ATS scores", "1"},
		{&mt.ResumeTextLength, "resumeforge_resume_text_length", "Characters of extracted resume text", "{char}"},
		{&mt.UploadSize, "resumeforge_upload_size_bytes", "Size of uploaded resume files", "By"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Int64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit(h.unit)); err != nil {
			return fmt.Errorf("failed to create %s metric: %w", h.name, err)
		}
	}
	return nil
}

// Metrics returns the instruments; never nil.
func (m *Manager) Metrics() *Metrics {
	if m == nil || m.metrics == nil {
		return &Metrics{}
	}
	return m.metrics
}

// MetricsHandler returns the Prometheus handler, or nil when disabled.
func (m *Manager) MetricsHandler() http.Handler {
	if m == nil {
		return nil
	}
	return m.metricsHandler
}

// StartMetricsServer starts the dedicated Prometheus listener when a port is
// configured. It reports whether the endpoint still needs mounting on the API
// server.
func (m *Manager) StartMetricsServer(onError func(error)) (mountOnAPI bool) {
	if m == nil || m.metricsHandler == nil {
		return false
	}
	if m.settings.Prometheus.Port == "" {
		return true
	}
	shutdown := StartPrometheusServer(m.MetricsEndpoint(), m.metricsHandler, m.settings.Prometheus.Port, onError)
	m.shutdownFuncs = append(m.shutdownFuncs, shutdown)
	return false
}

func (m *Manager) MetricsEndpoint() string {
	if m == nil || m.settings.Prometheus.Endpoint == "" {
		return "/metrics"
	}
	return m.settings.Prometheus.Endpoint
}

// HTTPMiddleware returns otelhttp instrumentation, or the identity when
// disabled.
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if m == nil || !m.settings.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	opts := []otelhttp.Option{}
	if m.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(m.tracerProvider))
	}
	if m.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(m.meterProvider))
	}
	return otelhttp.NewMiddleware(m.settings.ServiceName, opts...)
}

// Tracer returns a tracer for the service
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if m == nil || !m.settings.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes and stops every provider, returning the first error.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var first error
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// TrackGeneration instruments one generation with a span and metrics.
func (m *Manager) TrackGeneration(ctx context.Context, operation string, fn func(context.Context) (*ai.GenerateResult, error)) (*ai.GenerateResult, error) {
	if m == nil || !m.settings.Enabled || !m.settings.CustomMetrics.AIOperations.Enabled {
		return fn(ctx)
	}

	ctx, span := m.Tracer("resumeforge.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	duration := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	mt := m.metrics
	if m.settings.CustomMetrics.AIOperations.TrackDuration && mt.AIProcessingTime != nil {
		mt.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	if mt.AIRequestCount != nil {
		mt.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if err != nil {
		if mt.AIErrorCount != nil {
			mt.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	if result != nil && result.Usage != nil {
		m.recordTokenUsage(ctx, operation, result.Usage, span)
	}
	span.SetAttributes(attrs...)
	return result, err
}

func (m *Manager) recordTokenUsage(ctx context.Context, operation string, usage *ai.TokenUsage, span oteltrace.Span) {
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
	if !m.settings.CustomMetrics.AIOperations.TrackTokenUsage || m.metrics.AITokenUsage == nil {
		return
	}
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.metrics.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordBusinessMetric counts one business event of metricType.
func (m *Manager) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if m == nil || !m.settings.Enabled {
		return
	}
	custom := m.settings.CustomMetrics
	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	mt := m.metrics

	var counter metric.Int64Counter
	switch metricType {
	case MetricRateLimitHit:
		if !custom.Infrastructure.Enabled || !custom.Infrastructure.TrackRateLimits {
			return
		}
		counter = mt.RateLimitHits
	case MetricResumeUploaded:
		counter = mt.ResumesUploaded
	case MetricOriginalAnalyzed:
		counter = mt.OriginalAnalyses
	case MetricResumeOptimized:
		counter = mt.ResumesOptimized
	case MetricResumeScanned:
		counter = mt.ResumesScanned
	case MetricCoverLetter:
		counter = mt.CoverLetters
	case MetricExtractionFailure:
		counter = mt.ExtractionFailures
	}
	if metricType != MetricRateLimitHit && !custom.BusinessMetrics.Enabled {
		return
	}
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordScore records an ATS score with its kind (original, optimized, scan).
func (m *Manager) RecordScore(ctx context.Context, kind string, score int) {
	if m == nil || !m.settings.Enabled || !m.settings.CustomMetrics.BusinessMetrics.Enabled || m.metrics.ATSScore == nil {
		return
	}
	m.metrics.ATSScore.Record(ctx, int64(score), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordUpload records an accepted upload's file and text sizes.
func (m *Manager) RecordUpload(ctx context.Context, mediaType string, fileSize int64, textLength int) {
	if m == nil || !m.settings.Enabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("media_type", mediaType))
	custom := m.settings.CustomMetrics
	if custom.Infrastructure.Enabled && custom.Infrastructure.TrackUploads && m.metrics.UploadSize != nil {
		m.metrics.UploadSize.Record(ctx, fileSize, attrs)
	}
	if custom.BusinessMetrics.Enabled && custom.BusinessMetrics.TrackContentSizes && m.metrics.ResumeTextLength != nil {
		m.metrics.ResumeTextLength.Record(ctx, int64(textLength), attrs)
	}
}

type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

func (m *Manager) createOTLPExporter() (trace.SpanExporter, error) {
	cfg := m.settings.OTLP
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func (m *Manager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	cfg := m.settings.OTLP
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(m.settings.CollectionInterval)), nil
}
