// Package api hosts the HTTP server fronting the directory service.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/mcpserverslist/registry/internal/api/router"
	"github.com/mcpserverslist/registry/internal/config"
	"github.com/mcpserverslist/registry/internal/service"
	"github.com/mcpserverslist/registry/internal/telemetry"
)

// TrailingSlashMiddleware redirects requests with trailing slashes to their canonical form
func TrailingSlashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(r.URL.Path, "/")

			// 308 preserves the request method
			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestLogMiddleware logs one line per request
func RequestLogMiddleware(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	humaAPI huma.API
	logger  zerolog.Logger
	server  *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, directory service.DirectoryService, metrics *telemetry.Metrics, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	api := router.NewHumaAPI(cfg, directory, mux, metrics)

	handler := TrailingSlashMiddleware(RequestLogMiddleware(logger, mux))

	return &Server{
		config:  cfg,
		humaAPI: api,
		logger:  logger,
		server: &http.Server{
			Addr:              cfg.ServerAddress,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins listening for incoming HTTP requests
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.config.ServerAddress).Msg("HTTP server starting")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
