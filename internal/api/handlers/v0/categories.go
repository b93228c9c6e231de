package v0

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mcpserverslist/registry/internal/service"
	apiv0 "github.com/mcpserverslist/registry/pkg/api/v0"
)

// RegisterCategoriesEndpoints registers the category taxonomy endpoint
func RegisterCategoriesEndpoints(api huma.API, directory service.DirectoryService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/v0/categories",
		Summary:     "List categories",
		Description: "Get all categories servers can be tagged with",
		Tags:        []string{"categories"},
	}, func(ctx context.Context, _ *struct{}) (*Response[apiv0.CategoryListResponse], error) {
		categories, err := directory.ListCategories(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list categories", err)
		}

		return &Response[apiv0.CategoryListResponse]{
			Body: apiv0.CategoryListResponse{Categories: categories},
		}, nil
	})
}
