package cli

import (
	"context"
	"fmt"
	"time"

	"resumeforge/internal/ai"
	"resumeforge/internal/common"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/observability"
	"resumeforge/internal/pipeline"
	"resumeforge/internal/utils"

	"github.com/spf13/cobra"
)

const promptReloadDebounce = 500 * time.Millisecond

// generation bundles the AI service with the pipeline stages built on it.
type generation struct {
	service   *ai.Service
	analyzer  *pipeline.Analyzer
	optimizer *pipeline.Optimizer
	letters   *pipeline.CoverLetterWriter
	watcher   *config.PromptWatcher
}

// newGeneration loads secrets, builds the per-operation AI clients and the
// prompt resolver. obs may be nil.
func newGeneration(ctx context.Context, cfg *config.Config, obs *observability.Manager, logger *errors.Logger) (*generation, error) {
	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return nil, err
	}
	if err := cfg.ValidateAI(); err != nil {
		return nil, err
	}

	service, err := ai.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}

	promptFiles, err := config.NewPromptStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt files: %w", err)
	}

	g := &generation{service: service}
	if cfg.AI.WatchPromptFiles && len(promptFiles.Files()) > 0 {
		g.watcher = config.NewPromptWatcher(promptFiles, promptReloadDebounce, func(err error) {
			if err != nil {
				logger.LogError(err, "Prompt reload failed, keeping previous prompts")
				return
			}
			logger.Info("Prompt files reloaded")
		}, logger)
		if err := g.watcher.Start(); err != nil {
			return nil, fmt.Errorf("failed to watch prompt files: %w", err)
		}
	}

	gen := observability.NewTracedGenerator(service, obs)
	prompts := ai.NewPrompts(cfg, promptFiles)
	g.analyzer = pipeline.NewAnalyzer(gen, prompts, logger)
	g.optimizer = pipeline.NewOptimizer(gen, prompts, logger)
	g.letters = pipeline.NewCoverLetterWriter(gen, prompts, logger)
	return g, nil
}

func (g *generation) Close(logger *errors.Logger) {
	if g.watcher == nil {
		return
	}
	if err := g.watcher.Stop(); err != nil {
		logger.LogError(err, "Failed to stop prompt watcher")
	}
}

// commandFiles returns a file processor limited by the app config.
func commandFiles(cfg *config.Config, logger *errors.Logger) *common.FileProcessor {
	return common.NewFileProcessor(logger, nil, common.Limits{
		MaxTextSize:     cfg.App.MaxFileSize,
		MaxDocumentSize: cfg.App.MaxUploadSize,
	})
}

// addOutputFlags registers --output and --format with completion.
func addOutputFlags(cmd *cobra.Command, target *common.CommandConfig) {
	cmd.Flags().StringVarP(&target.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&target.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		if len(cfg.App.SupportedFormats) > 0 {
			return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
		}
		return []string{"json", "text", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat is shared by the PreRunE of every generating command.
func resolveFormat(target *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(target.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		target.OutputFormat = format
		if target.OutputFile != "" && utils.IsDocumentFile(target.OutputFile) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("Cannot write %s output to a document file: %s", format, target.OutputFile), nil)
		}
		return nil
	}
}
