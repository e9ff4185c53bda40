package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
)

// Start listens on Host:Port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.Host, s.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// within ShutdownTimeout. It takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	mountMetrics := s.obs.StartMetricsServer(func(err error) {
		s.Logger.LogError(err, "Prometheus metrics server failed")
	})

	reloader, err := s.startCertReloader()
	if err != nil {
		_ = ln.Close()
		return err
	}
	if reloader != nil {
		defer func() {
			if err := reloader.Stop(); err != nil {
				s.Logger.LogError(err, "Failed to stop certificate watcher")
			}
		}()
	}

	tlsConfig, err := s.buildTLSConfig(reloader)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to set up TLS: %w", err)
	}

	httpServer := &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      s.Handler(mountMetrics),
		TLSConfig:    tlsConfig,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	s.displayServerInfo(httpServer.Addr, mountMetrics)

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", httpServer.Addr,
			"tls_enabled", tlsConfig != nil)

		var err error
		if tlsConfig != nil {
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Logger.Info("Shutdown requested, starting graceful shutdown")
		return s.shutdown(httpServer)
	}
}

func (s *Server) shutdown(httpServer *http.Server) error {
	// The parent context is already done; shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return httpServer.Close()
	}
	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) startCertReloader() (*CertReloader, error) {
	if !s.tlsEnabled() || !s.TLSConfig.WatchFiles || s.TLSConfig.CertFile == "" || s.TLSConfig.KeyFile == "" {
		return nil, nil
	}
	reloader, err := NewCertReloader(s.TLSConfig.CertFile, s.TLSConfig.KeyFile, s.Logger)
	if err != nil {
		return nil, err
	}
	if err := reloader.Start(); err != nil {
		return nil, err
	}
	return reloader, nil
}
