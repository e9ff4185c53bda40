package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"resumeforge/internal/errors"
)

// DefaultMaxUploadSize is the resume file limit when none is configured.
const DefaultMaxUploadSize int64 = 10 << 20

// multipartOverhead is allowed on top of the file limit for form fields.
const multipartOverhead int64 = 1 << 20

// healthHandler reports liveness. It never calls the upstream model.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339Nano),
		"version":   s.Version,
		"storage":   s.storageDriver(),
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) storageDriver() string {
	if s.AppConfig == nil || s.AppConfig.Storage.Driver == "" {
		return "memory"
	}
	return s.AppConfig.Storage.Driver
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumeforge",
		"version": s.Version,
		"server": map[string]any{
			"max_upload_size_bytes": s.MaxUploadSize,
			"preview_length":        s.PreviewLength,
			"storage":               s.storageDriver(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.deps.Breakers != nil {
		response["circuit_breakers"] = s.deps.Breakers.CircuitBreakerStats()
	}
	if s.deps.Models != nil {
		response["ai_model"] = s.deps.Models.GetModelInfo(r.Context(), s.modelCheckTimeout())
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) modelCheckTimeout() time.Duration {
	if s.AppConfig != nil && s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout > 0 {
		return s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout
	}
	return 10 * time.Second
}

// parseJSONRequest decodes a JSON request body into v.
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Content-Type must be application/json", err)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Failed to read request body", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Request body is not valid JSON", err)
	}
	return nil
}

// statusFor maps an error type to its HTTP status and short label.
func statusFor(errType errors.ErrorType) (int, string) {
	switch errType {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest, "Invalid request"
	case errors.ErrorTypeExtraction:
		return http.StatusBadRequest, "Failed to process resume"
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeAppError logs err and writes its user-readable message. Causes never
// reach the client.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		s.Logger.LogError(err, fallback, "endpoint", r.URL.Path)
		writeErrorResponse(w, "Internal server error", fallback, http.StatusInternalServerError)
		return
	}

	status, label := statusFor(appErr.Type)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, fallback, "endpoint", r.URL.Path)
	} else {
		s.Logger.Debug("Request rejected",
			"endpoint", r.URL.Path,
			"error_type", string(appErr.Type),
			"error_code", appErr.Code)
	}

	message := appErr.Message
	if status == http.StatusInternalServerError && appErr.Type == errors.ErrorTypeInternal {
		message = fallback
	}
	writeErrorResponse(w, label, message, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encoding failure can only be dropped.
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, label, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   label,
		Message: message,
	})
}

// writeText sends body as a plain-text attachment.
func writeText(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
