package server

import (
	"context"
	"sync"
	"time"

	"resumeforge/internal/ai"
	"resumeforge/internal/archive"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/events"
	"resumeforge/internal/extract"
	"resumeforge/internal/observability"
	"resumeforge/internal/pipeline"
	"resumeforge/internal/store"
)

// ErrorResponse is the body of every failed request. Error is the short
// label and Message the user-readable explanation.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BreakerStats reports circuit breaker state per operation.
type BreakerStats interface {
	CircuitBreakerStats() map[string]any
}

// ModelChecker reports whether the configured model is reachable.
type ModelChecker interface {
	GetModelInfo(ctx context.Context, timeout time.Duration) *ai.ModelInfo
}

// Dependencies are the collaborators a Server calls into. Archiver,
// Publisher, Observability, Breakers and Models are optional.
type Dependencies struct {
	Store         store.Store
	Extractor     extract.TextExtractor
	Analyzer      *pipeline.Analyzer
	Optimizer     *pipeline.Optimizer
	Letters       *pipeline.CoverLetterWriter
	Archiver      archive.Archiver
	Publisher     events.Publisher
	Observability *observability.Manager
	Breakers      BreakerStats
	Models        ModelChecker
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	APIKeys map[string]bool

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MaxUploadSize int64
	PreviewLength int

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	deps       Dependencies
	obs        *observability.Manager
	now        func() time.Time
	background sync.WaitGroup
	Logger     *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host            string
	Port            string
	Version         string
	TLSConfig       config.TLSConfig
	APIKeys         []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadSize   int64
	PreviewLength   int
	RateLimit       *config.RateLimitConfig
}

// ServerConfigFrom derives a ServerConfig from the application config.
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	rl := cfg.Server.RateLimit
	return ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Version:         version,
		TLSConfig:       cfg.Server.TLS,
		APIKeys:         cfg.Server.APIKeys,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadSize:   cfg.App.MaxUploadSize,
		PreviewLength:   cfg.App.PreviewLength,
		RateLimit:       &rl,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	if deps.Archiver == nil {
		deps.Archiver = archive.Noop{}
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         cfg.Version,
		AppConfig:       appCfg,
		TLSConfig:       cfg.TLSConfig,
		APIKeys:         apiKeyMap,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxUploadSize:   cfg.MaxUploadSize,
		PreviewLength:   cfg.PreviewLength,
		RateLimit:       cfg.RateLimit,
		RateLimiter:     rateLimiter,
		deps:            deps,
		obs:             deps.Observability,
		now:             func() time.Time { return time.Now().UTC() },
		Logger:          logger,
	}
}

// Close waits for background notifications and releases resources owned by
// the server. The store and publisher are owned by the caller.
func (s *Server) Close() {
	s.background.Wait()
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
