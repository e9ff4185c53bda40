package cli

import (
	"context"
	"fmt"
	"time"

	"resumeforge/internal/archive"
	"resumeforge/internal/config"
	"resumeforge/internal/events"
	"resumeforge/internal/extract"
	"resumeforge/internal/observability"
	"resumeforge/internal/server"
	"resumeforge/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for resume upload, ATS scanning, optimization and cover
letters.

Available endpoints:
- POST /api/upload-resume: Upload a DOCX resume with job details
- POST /api/analyze-original/{id}: Score the stored resume
- POST /api/optimize/{id}: Tailor the resume, write a cover letter and re-score
- POST /api/scan-resume: Score an uploaded resume without storing it
- GET  /api/application/{id}: Fetch a stored application
- POST /api/generate-cover-letter: Write a cover letter from candidate details
- GET  /api/health: Health check
- GET  /api/stats: Server statistics, circuit breakers and model status

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

const shutdownGrace = 10 * time.Second

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	serveCmd.Flags().String("storage", "", "Storage driver: memory, postgres (overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded config.
func applyServeFlags(flags *pflag.FlagSet, cfg *config.Config) {
	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
		"ca-file":   &cfg.Server.TLS.CAFile,
		"storage":   &cfg.Storage.Driver,
	}
	for name, target := range overrides {
		if flags.Changed(name) {
			*target, _ = flags.GetString(name)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd.Flags(), cfg)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	obs, err := observability.NewManager(observability.SettingsFromConfig(cfg, Version))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()

	gen, err := newGeneration(ctx, cfg, obs, logger)
	if err != nil {
		return err
	}
	defer gen.Close(logger)

	records, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open application store: %w", err)
	}
	defer func() {
		if err := records.Close(); err != nil {
			logger.LogError(err, "Failed to close application store")
		}
	}()

	archiver, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}

	publisher, err := events.New(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.LogError(err, "Failed to close event publisher")
		}
	}()

	deps := server.Dependencies{
		Store:         records,
		Extractor:     extract.New(),
		Analyzer:      gen.analyzer,
		Optimizer:     gen.optimizer,
		Letters:       gen.letters,
		Archiver:      archiver,
		Publisher:     publisher,
		Observability: obs,
		Breakers:      gen.service,
		Models:        gen.service,
	}

	srv := server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), deps, logger)
	return srv.Start(ctx)
}
