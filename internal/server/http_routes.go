package server

import (
	"net/http"
)

// Handler builds the API handler: routes, auth, rate limiting and otelhttp
// instrumentation. The metrics endpoint is mounted when mountMetrics is set.
func (s *Server) Handler(mountMetrics bool) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		return s.rateLimitMiddleware(s.authMiddleware(h))
	}

	mux.HandleFunc("GET /api/health", s.healthHandler)
	mux.Handle("GET /api/stats", protect(s.statsHandler))

	mux.Handle("POST /api/upload", protect(s.uploadHandler))
	mux.Handle("POST /api/upload-resume", protect(s.uploadHandler))
	mux.Handle("POST /api/analyze-original/{id}", protect(s.analyzeOriginalHandler))
	mux.Handle("POST /api/optimize/{id}", protect(s.optimizeHandler))
	mux.Handle("POST /api/scan-resume", protect(s.scanResumeHandler))
	mux.Handle("GET /api/application/{id}", protect(s.getApplicationHandler))
	mux.Handle("GET /api/application/{id}/optimized-resume.txt", protect(s.downloadOptimizedResumeHandler))
	mux.Handle("GET /api/application/{id}/cover-letter.txt", protect(s.downloadCoverLetterHandler))
	mux.Handle("POST /api/generate-cover-letter", protect(s.generateCoverLetterHandler))

	if mountMetrics {
		if h := s.obs.MetricsHandler(); h != nil {
			mux.Handle("GET "+s.obs.MetricsEndpoint(), h)
		}
	}

	return s.obs.HTTPMiddleware()(mux)
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	})
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
