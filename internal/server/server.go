package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/b0ase/path402/apps/oreminer/internal/db"
	"github.com/b0ase/path402/apps/oreminer/internal/toolbar"
)

// DaemonInfo exposes daemon state and the toolbar entry points to the API.
type DaemonInfo interface {
	NodeID() string
	Uptime() time.Duration
	Toolbar() toolbar.View
	OpenToolbar(ctx context.Context) error
	CloseToolbar()
	ProvisionAccount(ctx context.Context) error
	StartMining(ctx context.Context) error
	StopMining() error
	WalletStatus() map[string]interface{}
	History(limit int) ([]db.MetricSample, error)
	Attempts(limit int) ([]db.ProvisioningAttempt, error)
	MetricsHandler() http.Handler
}

// corsMiddleware allows cross-origin requests from dashboards.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Server is the HTTP JSON API for the presentation layer.
type Server struct {
	httpSrv *http.Server
	handler http.Handler
	daemon  DaemonInfo
	log     zerolog.Logger
	bind    string
	port    int
}

func New(bind string, port int, daemon DaemonInfo, logger zerolog.Logger) *Server {
	s := &Server{
		daemon: daemon,
		log:    logger.With().Str("component", "api").Logger(),
		bind:   bind,
		port:   port,
	}
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.handler = corsMiddleware(mux)
	s.httpSrv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Start pre-acquires the port and begins serving HTTP requests.
// If the primary port is in use, it falls back to port+1.
// Returns the actual port bound.
func (s *Server) Start() (int, error) {
	addr := fmt.Sprintf("%s:%d", s.bind, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fallbackPort := s.port + 1
		fallbackAddr := fmt.Sprintf("%s:%d", s.bind, fallbackPort)
		ln, err = net.Listen("tcp", fallbackAddr)
		if err != nil {
			return 0, fmt.Errorf("listen on %s and fallback %s: %w", addr, fallbackAddr, err)
		}
		s.log.Warn().Int("port", fallbackPort).Int("primary", s.port).Msg("Using fallback port")
		s.port = fallbackPort
	}

	s.log.Info().Str("bind", s.bind).Int("port", s.port).Msg("HTTP API listening")
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return s.port, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpSrv.Shutdown(ctx)
	s.log.Info().Msg("HTTP server stopped")
}
