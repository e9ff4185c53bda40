package cli

import (
	"context"
	"fmt"
	"strings"

	"resumeforge/internal/ai"
	"resumeforge/internal/common"
	"resumeforge/internal/errors"
	"resumeforge/internal/types"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [resume-file] [job-description-file]",
	Short: "Score a resume against a job description",
	Long: `Scan a resume the way an applicant tracking system would. The resume may be
a DOCX file or plain text; the job description is read as plain text. The result
holds a 0-100 score, matched and missing keywords and recommendations.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: resolveFormat(&scanConfig),
	RunE:    runScan,
}

var scanConfig common.CommandConfig

func init() {
	addOutputFlags(scanCmd, &scanConfig)
}

// scanInput is a resume and the description it is scored against.
type scanInput struct {
	ResumeText     string
	JobDescription string
}

func readScanInput(ctx context.Context, files *common.FileProcessor, args []string) (scanInput, error) {
	resume, err := files.ReadDocument(ctx, args[0])
	if err != nil {
		return scanInput{}, err
	}
	jd, err := files.ReadText(args[1])
	if err != nil {
		return scanInput{}, err
	}
	if strings.TrimSpace(jd) == "" {
		return scanInput{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Job description file is empty: %s", args[1]), nil)
	}
	return scanInput{ResumeText: resume, JobDescription: jd}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	gen, err := newGeneration(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}
	defer gen.Close(logger)

	logDetails := func(input scanInput, c common.CommandConfig) {
		logger.Info("Starting ATS scan",
			"resume_chars", len(input.ResumeText),
			"job_chars", len(input.JobDescription),
			"output_format", c.OutputFormat)
	}

	scan := func(ctx context.Context, input scanInput) (types.ATSAnalysis, *ai.TokenUsage, error) {
		return gen.analyzer.Analyze(ctx, input.ResumeText, input.JobDescription)
	}

	files := commandFiles(cfg, logger)
	if err := common.RunAICommand(cmd.Context(), logger, files, scanConfig, args, readScanInput, scan, logDetails); err != nil {
		return fmt.Errorf("failed to scan resume: %w", err)
	}
	logger.Info("ATS scan completed successfully")
	return nil
}
