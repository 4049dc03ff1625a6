package relay

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shineum/mailrelay/internal/logger"
)

// shutdownTimeout is the maximum time to wait for in-flight requests
// during graceful shutdown.
const shutdownTimeout = 30 * time.Second

// ServerConfig holds the configuration for a relay Server.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8787").
	ListenAddr string

	Handler http.Handler

	// TLSConfig enables HTTPS when non-nil.
	TLSConfig *tls.Config

	Logger *logger.Logger
}

// Server runs the relay HTTP listener.
type Server struct {
	config   ServerConfig
	http     *http.Server
	listener net.Listener
	log      *logger.Logger
}

// NewServer creates a Server with the given configuration.
func NewServer(cfg ServerConfig) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		config: cfg,
		log:    log,
		http: &http.Server{
			Handler:           cfg.Handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Listen binds the listener so Addr is known before Serve is called.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	if s.config.TLSConfig != nil {
		ln = tls.NewListener(ln, s.config.TLSConfig)
	}
	s.listener = ln
	return nil
}

// Serve handles requests until ctx is cancelled, then stops accepting new
// connections and waits up to 30 seconds for in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("relay: Serve called before Listen")
	}

	s.log.Info().
		Str("addr", s.Addr()).
		Bool("tls_enabled", s.config.TLSConfig != nil).
		Msg("relay listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down relay")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("shutdown timeout reached, forcing close")
		s.http.Close()
		return err
	}

	s.log.Info().Msg("all requests completed")
	return nil
}

// ListenAndServe binds and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Addr returns the listener address, or empty string if not listening.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
