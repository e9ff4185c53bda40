package common

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"resumeforge/internal/errors"
	"resumeforge/internal/extract"
	"resumeforge/internal/utils"
)

// Limits caps local input files. Zero disables a check.
type Limits struct {
	MaxTextSize     int64
	MaxDocumentSize int64
}

// FileProcessor reads command inputs, extracting text from documents.
type FileProcessor struct {
	logger    *errors.Logger
	extractor extract.TextExtractor
	limits    Limits
}

// NewFileProcessor creates a new file processor instance. A nil extractor
// uses the default one.
func NewFileProcessor(logger *errors.Logger, extractor extract.TextExtractor, limits Limits) *FileProcessor {
	if extractor == nil {
		extractor = extract.New()
	}
	return &FileProcessor{logger: logger, extractor: extractor, limits: limits}
}

// ReadBytes reads a whole file with proper error handling
func (fp *FileProcessor) ReadBytes(filename string, maxSize int64) ([]byte, error) {
	if _, err := utils.ValidateInputFile(filename, maxSize); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf("Invalid file %s", filename), err)
	}

	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	return content, nil
}

// ReadText reads a plain-text input.
func (fp *FileProcessor) ReadText(filename string) (string, error) {
	if !utils.IsTextFile(filename) {
		fp.logger.Warn("File may not be a text file", "filename", filename)
	}
	content, err := fp.ReadBytes(filename, fp.limits.MaxTextSize)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ReadDocument returns the text of a resume. DOCX and PDF files go through
// the extractor; anything else is read as plain text.
func (fp *FileProcessor) ReadDocument(ctx context.Context, filename string) (string, error) {
	if !utils.IsDocumentFile(filename) {
		return fp.ReadText(filename)
	}

	mediaType := extract.NormalizeMediaType("", filename)
	if !extract.IsAllowed(mediaType) {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Unsupported document type: %s", filename), nil)
	}
	data, err := fp.ReadBytes(filename, fp.limits.MaxDocumentSize)
	if err != nil {
		return "", err
	}

	fp.logger.Debug("Extracting document text",
		"filename", filename,
		"media_type", mediaType,
		"size", utils.FormatFileSize(int64(len(data))))
	return fp.extractor.Extract(ctx, data, mediaType)
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.EnsureParentDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory for: %s", filename), err)
	}
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}
