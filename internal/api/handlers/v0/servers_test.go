package v0_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v0 "github.com/mcpserverslist/registry/internal/api/handlers/v0"
	"github.com/mcpserverslist/registry/internal/database"
	"github.com/mcpserverslist/registry/internal/service"
	apiv0 "github.com/mcpserverslist/registry/pkg/api/v0"
	"github.com/mcpserverslist/registry/pkg/model"
)

type noopSender struct{}

func (noopSender) Send(string, any) error { return nil }

func newTestService(db database.Database) service.DirectoryService {
	return service.NewDirectoryService(db, nil, nil, noopSender{}, nil, zerolog.Nop())
}

func TestListServersEndpoint(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()

	for i := 0; i < 15; i++ {
		_, err := db.CreateServer(ctx, &model.Server{
			Name:      fmt.Sprintf("Server %02d", i),
			Slug:      fmt.Sprintf("server-%02d", i),
			ShortDesc: fmt.Sprintf("Test server number %d", i),
			Stars:     i,
		})
		require.NoError(t, err)
	}
	_, err := db.CreateServer(ctx, &model.Server{
		Name:      "Filesystem",
		Slug:      "filesystem",
		ShortDesc: "Local file access over MCP",
		Stars:     500,
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test API", "1.0.0"))
	v0.RegisterServersEndpoints(api, newTestService(db))

	tests := []struct {
		name           string
		queryParams    string
		expectedStatus int
		expectedCount  int
		expectedTotal  int
		expectedError  string
	}{
		{
			name:           "default page",
			queryParams:    "",
			expectedStatus: http.StatusOK,
			expectedCount:  12,
			expectedTotal:  16,
		},
		{
			name:           "second page",
			queryParams:    "?page=2",
			expectedStatus: http.StatusOK,
			expectedCount:  4,
			expectedTotal:  16,
		},
		{
			name:           "custom limit",
			queryParams:    "?limit=5",
			expectedStatus: http.StatusOK,
			expectedCount:  5,
			expectedTotal:  16,
		},
		{
			name:           "search",
			queryParams:    "?q=filesystem",
			expectedStatus: http.StatusOK,
			expectedCount:  1,
			expectedTotal:  1,
		},
		{
			name:           "sorted by stars",
			queryParams:    "?sort=stars&order=desc&limit=1",
			expectedStatus: http.StatusOK,
			expectedCount:  1,
			expectedTotal:  16,
		},
		{
			name:           "invalid page",
			queryParams:    "?page=abc",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "validation failed",
		},
		{
			name:           "invalid sort field",
			queryParams:    "?sort=readmeContent",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v0/servers"+tt.queryParams, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var resp apiv0.ServerListResponse
				err := json.NewDecoder(w.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Len(t, resp.Servers, tt.expectedCount)
				assert.Equal(t, tt.expectedTotal, resp.Pagination.Total)
			} else if tt.expectedError != "" {
				assert.Contains(t, w.Body.String(), tt.expectedError)
			}
		})
	}

	t.Run("sorted by stars returns top server first", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v0/servers?sort=stars&order=desc&limit=1", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp apiv0.ServerListResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Servers, 1)
		assert.Equal(t, "Filesystem", resp.Servers[0].Name)
		assert.Equal(t, "stars", resp.Sorting.Field)
		assert.Equal(t, "desc", resp.Sorting.Direction)
	})
}

func TestGetServerEndpoint(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()

	created, err := db.CreateServer(ctx, &model.Server{
		Name:      "Filesystem",
		Slug:      "filesystem",
		ShortDesc: "Local file access over MCP",
	})
	require.NoError(t, err)
	cats, err := db.CreateCategories(ctx, []string{"Storage"})
	require.NoError(t, err)
	require.NoError(t, db.ReplaceServerCategories(ctx, created.ID, []string{cats[0].ID}))

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test API", "1.0.0"))
	v0.RegisterServersEndpoints(api, newTestService(db))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v0/servers/filesystem", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp apiv0.ServerWithCategories
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Filesystem", resp.Name)
		assert.Equal(t, []string{"Storage"}, resp.Categories)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v0/servers/missing", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListCategoriesEndpoint(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	_, err := db.CreateCategories(ctx, []string{"Storage", "Developer Tools"})
	require.NoError(t, err)

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test API", "1.0.0"))
	v0.RegisterCategoriesEndpoints(api, newTestService(db))

	req := httptest.NewRequest(http.MethodGet, "/v0/categories", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp apiv0.CategoryListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Categories, 2)
}
