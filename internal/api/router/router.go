// Package router wires the huma API and its endpoints onto an http.ServeMux.
package router

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	v0 "github.com/mcpserverslist/registry/internal/api/handlers/v0"
	"github.com/mcpserverslist/registry/internal/auth"
	"github.com/mcpserverslist/registry/internal/config"
	"github.com/mcpserverslist/registry/internal/service"
	"github.com/mcpserverslist/registry/internal/telemetry"
)

// HealthBody is the health check response body
type HealthBody struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version" example:"dev"`
}

// NewHumaAPI creates the huma API on the given mux and registers every endpoint
func NewHumaAPI(cfg *config.Config, directory service.DirectoryService, mux *http.ServeMux, metrics *telemetry.Metrics) huma.API {
	humaConfig := huma.DefaultConfig("MCP Servers Directory API", cfg.Version)
	humaConfig.Info.Description = "API for discovering, submitting and managing MCP servers"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humago.New(mux, humaConfig)

	huma.Get(api, "/v0/health", func(_ context.Context, _ *struct{}) (*v0.Response[HealthBody], error) {
		return &v0.Response[HealthBody]{Body: HealthBody{Status: "ok", Version: cfg.Version}}, nil
	})

	v0.RegisterServersEndpoints(api, directory)
	v0.RegisterCategoriesEndpoints(api, directory)
	v0.RegisterSubmissionsEndpoints(api, directory)
	v0.RegisterAdminEndpoints(api, directory, auth.NewJWTManager(cfg.JWTSecret))

	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return api
}
