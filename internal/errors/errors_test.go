package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantCode string
	}{
		{"direct validation", NewValidationError(ErrCodeInvalidRequest, "bad", nil), ErrorTypeValidation, ErrCodeInvalidRequest},
		{"wrapped overload", fmt.Errorf("step: %w", NewOverloadError(ErrCodeAIOverloaded, "busy", nil)), ErrorTypeUpstreamOverload, ErrCodeAIOverloaded},
		{"not found", NewNotFoundError(ErrCodeRecordNotFound, "missing", nil), ErrorTypeNotFound, ErrCodeRecordNotFound},
		{"foreign error", stderrors.New("boom"), ErrorTypeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, TypeOf(tt.err))
			if tt.wantCode != "" {
				assert.True(t, HasCode(tt.err, tt.wantCode))
				assert.True(t, IsType(tt.err, tt.wantType))
			} else {
				assert.False(t, HasCode(tt.err, ErrCodeInvalidRequest))
			}
		})
	}
}

func TestAppErrorUnwrapAndMessage(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewUpstreamError(ErrCodeAIServiceFailed, "AI request failed", cause).WithContext("operation", "analyze")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "AI_SERVICE_FAILED: AI request failed (caused by: connection reset)", err.Error())
	assert.Equal(t, "analyze", err.Context["operation"])

	// Cause never leaks into the serialized form.
	data, jsonErr := json.Marshal(err)
	require.NoError(t, jsonErr)
	assert.NotContains(t, string(data), "connection reset")
}

func TestLoggerLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	logger.LogError(NewExtractionError(ErrCodeParseFailure, "could not read", stderrors.New("zip: not a valid zip file")), "extraction failed", "filename", "cv.docx")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "extraction failed", entry["msg"])
	assert.Equal(t, "extraction", entry["error_type"])
	assert.Equal(t, ErrCodeParseFailure, entry["error_code"])
	assert.Equal(t, "cv.docx", entry["filename"])
	assert.Equal(t, "zip: not a valid zip file", entry["cause"])
}

func TestNewLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		t.Run(level, func(t *testing.T) {
			logger, err := New(level)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}

	_, err := New("verbose")
	assert.Error(t, err)
}
