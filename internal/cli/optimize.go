package cli

import (
	"context"
	"fmt"

	"resumeforge/internal/ai"
	"resumeforge/internal/common"
	"resumeforge/internal/pipeline"
	"resumeforge/internal/types"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [resume-file] [job-description-file]",
	Short: "Tailor a resume and cover letter to a job",
	Long: `Optimize a resume for a specific job. The original resume is scored first,
then rewritten for the posting, a cover letter is drafted and the rewrite is
scored again so both scores can be compared. --company and --role are required.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: resolveFormat(&optimizeConfig),
	RunE:    runOptimize,
}

var (
	optimizeConfig common.CommandConfig
	optimizeJob    types.JobContext
)

func init() {
	addOutputFlags(optimizeCmd, &optimizeConfig)
	optimizeCmd.Flags().StringVar(&optimizeJob.CompanyName, "company", "", "Company name")
	optimizeCmd.Flags().StringVar(&optimizeJob.RoleTitle, "role", "", "Role title")
	_ = optimizeCmd.MarkFlagRequired("company")
	_ = optimizeCmd.MarkFlagRequired("role")
}

func readOptimizeInput(ctx context.Context, files *common.FileProcessor, args []string) (pipeline.OptimizeInput, error) {
	resume, err := files.ReadDocument(ctx, args[0])
	if err != nil {
		return pipeline.OptimizeInput{}, err
	}
	jd, err := files.ReadText(args[1])
	if err != nil {
		return pipeline.OptimizeInput{}, err
	}
	job := types.JobContext{
		CompanyName:    optimizeJob.CompanyName,
		RoleTitle:      optimizeJob.RoleTitle,
		JobDescription: jd,
	}.Normalize()
	if err := job.Validate(); err != nil {
		return pipeline.OptimizeInput{}, err
	}
	return pipeline.OptimizeInput{ResumeText: resume, Job: job}, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	gen, err := newGeneration(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}
	defer gen.Close(logger)

	logDetails := func(input pipeline.OptimizeInput, c common.CommandConfig) {
		logger.Info("Starting resume optimization",
			"company", input.Job.CompanyName,
			"role", input.Job.RoleTitle,
			"resume_chars", len(input.ResumeText),
			"output_format", c.OutputFormat)
	}

	optimize := func(ctx context.Context, input pipeline.OptimizeInput) (types.OptimizationResult, *ai.TokenUsage, error) {
		original, usage, err := gen.analyzer.Analyze(ctx, input.ResumeText, input.Job.JobDescription)
		if err != nil {
			return types.OptimizationResult{}, nil, err
		}
		opt, optUsage, err := gen.optimizer.Optimize(ctx, input)
		if err != nil {
			return types.OptimizationResult{}, nil, err
		}
		return types.OptimizationResult{
			OptimizedResume:   opt.OptimizedResume,
			CoverLetter:       opt.CoverLetter,
			OriginalAnalysis:  original,
			OptimizedAnalysis: opt.OptimizedAnalysis,
		}, usage.Add(optUsage), nil
	}

	files := commandFiles(cfg, logger)
	if err := common.RunAICommand(cmd.Context(), logger, files, optimizeConfig, args, readOptimizeInput, optimize, logDetails); err != nil {
		return fmt.Errorf("failed to optimize resume: %w", err)
	}
	logger.Info("Resume optimization completed successfully")
	return nil
}
