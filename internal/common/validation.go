package common

import (
	"fmt"
	"slices"

	"resumeforge/internal/errors"
	"resumeforge/internal/formatters"
)

// ResolveOutputFormat applies the default format when none was given and
// checks the result against the configured and registered formats.
func ResolveOutputFormat(format, defaultFormat string, supportedFormats []string) (string, error) {
	if format == "" {
		format = defaultFormat
	}
	if format == "" {
		format = formatters.FormatJSON
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}

// ValidateOutputFormat validates format against configured supported formats.
// An empty list only requires a registered formatter.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	allowed := supportedFormats
	if len(allowed) == 0 {
		allowed = formatters.GlobalRegistry.GetSupportedFormats()
	}
	if slices.Contains(allowed, format) && slices.Contains(formatters.GlobalRegistry.GetSupportedFormats(), format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, allowed), nil)
}
