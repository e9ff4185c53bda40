package cli

import (
	"context"
	"fmt"

	"resumeforge/internal/ai"
	"resumeforge/internal/common"
	"resumeforge/internal/types"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter [job-description-file]",
	Short: "Write a cover letter from candidate details",
	Long: `Write a cover letter for a job without a resume. Candidate details come from
flags; the experience summary is read from --experience-file.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveFormat(&coverLetterConfig),
	RunE:    runCoverLetter,
}

var (
	coverLetterConfig  common.CommandConfig
	coverLetterRequest types.CoverLetterRequest
	experienceFile     string
)

func init() {
	addOutputFlags(coverLetterCmd, &coverLetterConfig)
	flags := coverLetterCmd.Flags()
	flags.StringVar(&coverLetterRequest.CompanyName, "company", "", "Company name")
	flags.StringVar(&coverLetterRequest.RoleTitle, "role", "", "Role title")
	flags.StringVar(&coverLetterRequest.CandidateName, "name", "", "Candidate name")
	flags.StringVar(&coverLetterRequest.CandidateEmail, "email", "", "Candidate email")
	flags.StringVar(&coverLetterRequest.CandidatePhone, "phone", "", "Candidate phone")
	flags.StringVar(&experienceFile, "experience-file", "", "File with a summary of relevant experience")
	for _, name := range []string{"company", "role", "name", "email", "phone", "experience-file"} {
		_ = coverLetterCmd.MarkFlagRequired(name)
	}
}

func readCoverLetterInput(ctx context.Context, files *common.FileProcessor, args []string) (types.CoverLetterRequest, error) {
	jd, err := files.ReadText(args[0])
	if err != nil {
		return types.CoverLetterRequest{}, err
	}
	experience, err := files.ReadText(experienceFile)
	if err != nil {
		return types.CoverLetterRequest{}, err
	}
	req := coverLetterRequest
	req.JobDescription = jd
	req.Experience = experience
	if err := req.Validate(); err != nil {
		return types.CoverLetterRequest{}, err
	}
	return req, nil
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	gen, err := newGeneration(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}
	defer gen.Close(logger)

	logDetails := func(req types.CoverLetterRequest, c common.CommandConfig) {
		logger.Info("Starting cover letter generation",
			"company", req.CompanyName,
			"role", req.RoleTitle,
			"output_format", c.OutputFormat)
	}

	write := func(ctx context.Context, req types.CoverLetterRequest) (types.CoverLetterResponse, *ai.TokenUsage, error) {
		letter, usage, err := gen.letters.Write(ctx, req)
		if err != nil {
			return types.CoverLetterResponse{}, nil, err
		}
		return types.CoverLetterResponse{CoverLetter: letter}, usage, nil
	}

	files := commandFiles(cfg, logger)
	if err := common.RunAICommand(cmd.Context(), logger, files, coverLetterConfig, args, readCoverLetterInput, write, logDetails); err != nil {
		return fmt.Errorf("failed to write cover letter: %w", err)
	}
	logger.Info("Cover letter generation completed successfully")
	return nil
}
