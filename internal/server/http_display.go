package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo(addr string, metricsMounted bool) {
	scheme := "http"
	if s.tlsEnabled() {
		scheme = "https"
	}
	fmt.Printf("Starting server on %s://%s\n", scheme, addr)
	s.displayTLSInfo()
	s.displayEndpoints(metricsMounted)
	s.displayAuthInfo()
	s.displayUploadLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayTLSInfo() {
	switch s.TLSConfig.Mode {
	case tlsModeServer:
		fmt.Println("TLS mode: Server-only (no client certificates required)")
	case tlsModeMutual:
		fmt.Println("TLS mode: Mutual (client certificates required)")
	default:
		fmt.Println("TLS mode: Disabled (HTTP only)")
		return
	}
	if s.TLSConfig.WatchFiles {
		fmt.Println("TLS auto-reload: ENABLED (watching certificate files)")
	}
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints(metricsMounted bool) {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /api/health                                - Health check")
	fmt.Println("  GET  /api/stats                                 - Server statistics")
	fmt.Println("  POST /api/upload                                - Upload resume and job details")
	fmt.Println("  POST /api/analyze-original/{id}                 - Score the uploaded resume")
	fmt.Println("  POST /api/optimize/{id}                         - Optimize resume and write cover letter")
	fmt.Println("  POST /api/scan-resume                           - One-off ATS scan")
	fmt.Println("  GET  /api/application/{id}                      - Fetch application")
	fmt.Println("  GET  /api/application/{id}/optimized-resume.txt - Download optimized resume")
	fmt.Println("  GET  /api/application/{id}/cover-letter.txt     - Download cover letter")
	fmt.Println("  POST /api/generate-cover-letter                 - Standalone cover letter")
	if metricsMounted {
		fmt.Printf("  GET  %s - Prometheus metrics\n", s.obs.MetricsEndpoint())
	}
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api endpoints")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

func (s *Server) displayUploadLimitInfo() {
	fmt.Printf("Upload size limit: %d bytes (%s)\n", s.MaxUploadSize, formatMegabytes(s.MaxUploadSize))
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
