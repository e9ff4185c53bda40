package common

import (
	"context"
	"fmt"

	"resumeforge/internal/ai"
	"resumeforge/internal/errors"
)

// ReadInputFunc turns command arguments into the operation input.
type ReadInputFunc[Input any] func(ctx context.Context, files *FileProcessor, args []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is a generation-backed operation reporting token usage.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// RunAICommand reads inputs, runs the operation, reports token usage and
// writes the formatted output.
func RunAICommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	files *FileProcessor,
	cmdConfig CommandConfig,
	args []string,
	readInput ReadInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	input, err := readInput(ctx, files, args)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, tokenUsage, err := operation(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		logger.Info("AI token usage",
			"input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens,
			"total_tokens", tokenUsage.TotalTokens)
	}

	if err := NewOutputHandler(files, logger).HandleOutput(result, cmdConfig); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
