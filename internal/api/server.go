// Package api provides the bot's admin HTTP API.
//
// Operators use it to manage the channel allow list and inspect runtime
// state without touching the chat platform. Every /api route requires
// the X-API-Key header; /health is open for probes.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, logging, auth)
//   - health.go: Health and stats endpoints
//   - channels.go: Channel allow list endpoints
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/llegomark/neko/internal/channels"
	"github.com/llegomark/neko/internal/convo"
)

const (
	// DefaultAddr is the default listen address for the admin API.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout caps header read time to resist slow-client
	// connection exhaustion.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout  = 30 * time.Second
	WriteTimeout = 60 * time.Second
	IdleTimeout  = 120 * time.Second
)

// QueueStats reports the dispatcher's queue occupancy for /api/stats.
type QueueStats interface {
	QueueLen() int
	QueueCap() int
}

// ServerConfig wires the admin server.
type ServerConfig struct {
	APIKey   string          // Required: shared secret for X-API-Key
	Channels *channels.Store // Required
	Sessions *convo.Store    // Required
	Queue    QueueStats      // Optional: nil omits queue stats
	Logger   *slog.Logger
}

// Server is the admin HTTP server.
type Server struct {
	mux    *http.ServeMux
	apiKey string
	logger *slog.Logger
}

// NewServer creates the admin server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.Channels == nil {
		return nil, errors.New("channel store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	hh := &healthHandler{sessions: cfg.Sessions, channels: cfg.Channels, queue: cfg.Queue}
	hh.registerRoutes(mux)

	ch := &channelHandler{store: cfg.Channels, logger: logger}
	ch.registerRoutes(mux)

	return &Server{mux: mux, apiKey: cfg.APIKey, logger: logger}, nil
}

// Handler returns the server with middleware applied.
// Middleware order: recovery → logging → auth → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		authMiddleware(s.apiKey, s.logger),
	)
}

// Run starts the server and blocks until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting admin API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down admin API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// errorBody is the JSON shape every handler uses for failures:
// a stable machine-readable code plus an operator-facing message.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON encodes data with the given status. Once the header is
// written a failed encode cannot reach the client, so it is only logged.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding admin API response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}
