package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"codeberg.org/mutker/homewatt/internal/device"
	"codeberg.org/mutker/homewatt/internal/logger"
	"codeberg.org/mutker/homewatt/internal/telemetry"
	"github.com/gorilla/handlers"
)

const shutdownGrace = 5 * time.Second

// Server exposes the query surface to the presentation layer: the
// cache-backed snapshot, device CRUD and power toggles, and a
// server-sent-event stream re-publishing the registry's fan-out.
type Server struct {
	provider   telemetry.Provider
	registry   *device.Registry
	httpServer *http.Server
}

func NewServer(addr string, provider telemetry.Provider, registry *device.Registry) *Server {
	s := &Server{
		provider: provider,
		registry: registry,
	}

	router := s.newRouter()
	logged := handlers.LoggingHandler(os.Stdout, router)
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete,
		}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: cors(logged),
	}

	return s
}

// Handler returns the fully wrapped handler chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}()

	logger.Info().Str("addr", s.httpServer.Addr).Msg("API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
