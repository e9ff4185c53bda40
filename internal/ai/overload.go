package ai

import (
	"errors"
	"net/http"
	"regexp"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// OverloadedMessage is shown to users once retries are exhausted.
const OverloadedMessage = "The AI service is overloaded. Please try again in a few minutes."

// ErrOverloaded can be returned by backends to signal a busy upstream.
var ErrOverloaded = errors.New("ai: upstream overloaded (503)")

// IsOverloaded reports whether err means the model is temporarily busy.
// Only these errors are retried.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOverloaded) {
		return true
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusServiceUnavailable {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isUnavailable(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return isUnavailable(*apiErrPtr)
	}
	if gErr != nil {
		return false
	}

	// Untyped errors from the HTTP transport (proxies, gateways) only carry
	// the status in the message.
	return statusInMessage.MatchString(err.Error())
}

var statusInMessage = regexp.MustCompile(`\b503\b`)

func isUnavailable(e genai.APIError) bool {
	return e.Code == http.StatusServiceUnavailable || e.Status == "UNAVAILABLE"
}
