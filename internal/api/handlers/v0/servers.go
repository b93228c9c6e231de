package v0

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mcpserverslist/registry/internal/database"
	"github.com/mcpserverslist/registry/internal/service"
	apiv0 "github.com/mcpserverslist/registry/pkg/api/v0"
)

// ListServersInput represents the input for listing servers
type ListServersInput struct {
	Search string `query:"q" doc:"Full-text search query" required:"false" example:"filesystem"`
	Page   int    `query:"page" doc:"Page number, 1-based" default:"1" minimum:"1" example:"2"`
	Limit  int    `query:"limit" doc:"Number of items per page" default:"12" minimum:"1" maximum:"100" example:"12"`
	Sort   string `query:"sort" doc:"Sort field" default:"createdAt" enum:"createdAt,name,stars,lastCommit" required:"false"`
	Order  string `query:"order" doc:"Sort direction" default:"desc" enum:"asc,desc" required:"false"`
}

// ServerDetailInput represents the input for getting server details
type ServerDetailInput struct {
	Slug string `path:"slug" doc:"Server slug" example:"filesystem"`
}

// RegisterServersEndpoints registers the public server endpoints
func RegisterServersEndpoints(api huma.API, directory service.DirectoryService) {
	// List servers endpoint
	huma.Register(api, huma.Operation{
		OperationID: "list-servers",
		Method:      http.MethodGet,
		Path:        "/v0/servers",
		Summary:     "List MCP servers",
		Description: "Get a searchable, sortable, paginated list of MCP servers from the directory",
		Tags:        []string{"servers"},
	}, func(ctx context.Context, input *ListServersInput) (*Response[apiv0.ServerListResponse], error) {
		result, err := directory.ListServers(ctx, service.ListServersParams{
			SearchQuery:   input.Search,
			Page:          input.Page,
			Limit:         input.Limit,
			SortField:     input.Sort,
			SortDirection: input.Order,
		})
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list servers", err)
		}

		return &Response[apiv0.ServerListResponse]{
			Body: apiv0.ServerListResponse{
				Servers:    result.Servers,
				Pagination: result.Pagination,
				Sorting:    result.Sorting,
			},
		}, nil
	})

	// Get server details endpoint
	huma.Register(api, huma.Operation{
		OperationID: "get-server",
		Method:      http.MethodGet,
		Path:        "/v0/servers/{slug}",
		Summary:     "Get MCP server details",
		Description: "Get detailed information about a specific MCP server, including its categories",
		Tags:        []string{"servers"},
	}, func(ctx context.Context, input *ServerDetailInput) (*Response[apiv0.ServerWithCategories], error) {
		server, err := directory.GetServerBySlug(ctx, input.Slug)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, huma.Error404NotFound("Server not found")
			}
			return nil, huma.Error500InternalServerError("Failed to get server details", err)
		}

		return &Response[apiv0.ServerWithCategories]{Body: *server}, nil
	})
}
