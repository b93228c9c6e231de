package v0

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mcpserverslist/registry/internal/auth"
	"github.com/mcpserverslist/registry/internal/database"
	"github.com/mcpserverslist/registry/internal/service"
	apiv0 "github.com/mcpserverslist/registry/pkg/api/v0"
	"github.com/mcpserverslist/registry/pkg/model"
)

// CreateServerInput triggers the enrichment workflow for a new server
type CreateServerInput struct {
	Authorization string                    `header:"Authorization" doc:"Admin JWT token" required:"true"`
	Body          apiv0.CreateServerRequest `body:""`
}

// UpdateServerInput edits an existing server
type UpdateServerInput struct {
	Authorization string                    `header:"Authorization" doc:"Admin JWT token" required:"true"`
	ID            string                    `path:"id" doc:"Server id"`
	Body          apiv0.UpdateServerRequest `body:""`
}

// DeleteServerInput removes a server from the directory
type DeleteServerInput struct {
	Authorization string `header:"Authorization" doc:"Admin JWT token" required:"true"`
	ID            string `path:"id" doc:"Server id"`
}

// ListSubmissionsInput lists submissions for review
type ListSubmissionsInput struct {
	Authorization string `header:"Authorization" doc:"Admin JWT token" required:"true"`
	Status        string `query:"status" doc:"Filter by review status" required:"false" enum:"pending,approved,rejected"`
}

// ReviewSubmissionInput approves or rejects one submission
type ReviewSubmissionInput struct {
	Authorization string `header:"Authorization" doc:"Admin JWT token" required:"true"`
	ID            string `path:"id" doc:"Submission id"`
	Body          struct {
		Action string `json:"action" enum:"approve,reject" doc:"Review decision"`
	} `body:""`
}

// PurgeCacheInput empties the listing cache
type PurgeCacheInput struct {
	Authorization string `header:"Authorization" doc:"Admin JWT token" required:"true"`
}

// PurgeCacheResult reports completion of a cache purge
type PurgeCacheResult struct {
	Success bool `json:"success"`
}

// DeleteServerResult reports completion of a server deletion
type DeleteServerResult struct {
	Success bool `json:"success"`
}

var adminSecurity = []map[string][]string{{"bearer": {}}}

// RegisterAdminEndpoints registers the JWT-gated administration endpoints
func RegisterAdminEndpoints(api huma.API, directory service.DirectoryService, jwtManager *auth.JWTManager) {
	authorize := func(header string) error {
		if _, err := jwtManager.ValidateBearer(header); err != nil {
			if errors.Is(err, auth.ErrMissingBearer) {
				return huma.Error401Unauthorized("Invalid Authorization header format. Expected 'Bearer <token>'")
			}
			return huma.Error401Unauthorized("Invalid or expired token", err)
		}
		return nil
	}

	// Trigger server creation
	huma.Register(api, huma.Operation{
		OperationID: "create-server",
		Method:      http.MethodPost,
		Path:        "/v0/servers",
		Summary:     "Create MCP server",
		Description: "Queue the enrichment workflow that creates and populates a new directory entry (admin only).",
		Tags:        []string{"admin"},
		Security:    adminSecurity,
	}, func(ctx context.Context, input *CreateServerInput) (*Response[apiv0.CreateServerResult], error) {
		if err := authorize(input.Authorization); err != nil {
			return nil, err
		}
		result := directory.TriggerServerCreation(ctx, input.Body)
		if !result.Success {
			return nil, huma.Error500InternalServerError(result.Message)
		}
		return &Response[apiv0.CreateServerResult]{Body: *result}, nil
	})

	// Edit server
	huma.Register(api, huma.Operation{
		OperationID: "update-server",
		Method:      http.MethodPut,
		Path:        "/v0/servers/{id}",
		Summary:     "Update MCP server",
		Description: "Replace the editable fields of an existing server (admin only).",
		Tags:        []string{"admin"},
		Security:    adminSecurity,
	}, func(ctx context.Context, input *UpdateServerInput) (*Response[model.Server], error) {
		if err := authorize(input.Authorization); err != nil {
			return nil, err
		}
		server, err := directory.UpdateServer(ctx, input.ID, input.Body)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, huma.Error404NotFound("Server not found")
			}
			return nil, huma.Error500InternalServerError("Failed to update server", err)
		}
		return &Response[model.Server]{Body: *server}, nil
	})

	// Delete server
	huma.Register(api, huma.Operation{
		OperationID: "delete-server",
		Method:      http.MethodDelete,
		Path:        "/v0/servers/{id}",
		Summary:     "Delete MCP server",
		Description: "Remove a server and its category links from the directory (admin only).",
		Tags:        []string{"admin"},
		Security:    adminSecurity,
	}, func(ctx context.Context, input *DeleteServerInput) (*Response[DeleteServerResult], error) {
		if err := authorize(input.Authorization); err != nil {
			return nil, err
		}
		if err := directory.DeleteServer(ctx, input.ID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, huma.Error404NotFound("Server not found")
			}
			return nil, huma.Error500InternalServerError("Failed to delete server", err)
		}
		return &Response[DeleteServerResult]{Body: DeleteServerResult{Success: true}}, nil
	})

	// List submissions
	huma.Register(api, huma.Operation{
		OperationID: "list-submissions",
		Method:      http.MethodGet,
		Path:        "/v0/submissions",
		Summary:     "List submissions",
		Description: "Get user submissions awaiting review (admin only).",
		Tags:        []string{"admin"},
		Security:    adminSecurity,
	}, func(ctx context.Context, input *ListSubmissionsInput) (*Response[apiv0.SubmissionListResponse], error) {
		if err := authorize(input.Authorization); err != nil {
			return nil, err
		}
		submissions, err := directory.ListSubmissions(ctx, model.SubmissionStatus(input.Status))
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list submissions", err)
		}
		return &Response[apiv0.SubmissionListResponse]{
			Body: apiv0.SubmissionListResponse{Submissions: submissions, Count: len(submissions)},
		}, nil
	})

	// Review submission
	huma.Register(api, huma.Operation{
		OperationID: "review-submission",
		Method:      http.MethodPatch,
		Path:        "/v0/submissions/{id}",
		Summary:     "Review submission",
		Description: "Approve or reject a pending submission; approval queues server creation (admin only).",
		Tags:        []string{"admin"},
		Security:    adminSecurity,
	}, func(ctx context.Context, input *ReviewSubmissionInput) (*Response[model.Submission], error) {
		if err := authorize(input.Authorization); err != nil {
			return nil, err
		}
		submission, err := directory.ReviewSubmission(ctx, input.ID, input.Body.Action == "approve")
		if err != nil {
			switch {
			case errors.Is(err, database.ErrNotFound):
				return nil, huma.Error404NotFound("Submission not found")
			case errors.Is(err, database.ErrInvalidInput):
				return nil, huma.Error400BadRequest("Submission is not pending review")
			default:
				return nil, huma.Error500InternalServerError("Failed to review submission", err)
			}
		}
		return &Response[model.Submission]{Body: *submission}, nil
	})

	// Purge listing cache
	huma.Register(api, huma.Operation{
		OperationID: "purge-cache",
		Method:      http.MethodPost,
		Path:        "/v0/admin/cache/purge",
		Summary:     "Purge listing cache",
		Description: "Drop every cached listing result so the next reads hit the database (admin only).",
		Tags:        []string{"admin"},
		Security:    adminSecurity,
	}, func(ctx context.Context, input *PurgeCacheInput) (*Response[PurgeCacheResult], error) {
		if err := authorize(input.Authorization); err != nil {
			return nil, err
		}
		directory.InvalidateListings()
		return &Response[PurgeCacheResult]{Body: PurgeCacheResult{Success: true}}, nil
	})
}
