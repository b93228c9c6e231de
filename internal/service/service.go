package service

import (
	"context"

	apiv0 "github.com/mcpserverslist/registry/pkg/api/v0"
	"github.com/mcpserverslist/registry/pkg/model"
)

// ListServersParams is the listing query tuple
type ListServersParams struct {
	SearchQuery   string
	Page          int
	Limit         int
	SortField     string
	SortDirection string
}

// ListServersResult is the composed page plus its pagination metadata
type ListServersResult struct {
	Servers    []model.Server
	Pagination apiv0.Pagination
	Sorting    apiv0.Sorting
}

// DirectoryService defines the interface for directory operations
type DirectoryService interface {
	// ListServers returns a ranked, paginated listing
	ListServers(ctx context.Context, params ListServersParams) (*ListServersResult, error)
	// GetServerBySlug returns one server with its categories
	GetServerBySlug(ctx context.Context, slug string) (*apiv0.ServerWithCategories, error)
	// ListCategories returns the category taxonomy
	ListCategories(ctx context.Context) ([]model.Category, error)

	// SubmitServer handles the public submission form
	SubmitServer(ctx context.Context, req apiv0.SubmitServerRequest, clientIP string) (*apiv0.SubmitServerResult, error)
	// ListSubmissions returns submissions for admin review
	ListSubmissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error)
	// ReviewSubmission approves or rejects a pending submission; approval
	// dispatches the server creation event
	ReviewSubmission(ctx context.Context, id string, approve bool) (*model.Submission, error)

	// TriggerServerCreation dispatches the enrichment workflow for a new server
	TriggerServerCreation(ctx context.Context, req apiv0.CreateServerRequest) *apiv0.CreateServerResult
	// UpdateServer edits an existing server (admin operation)
	UpdateServer(ctx context.Context, id string, req apiv0.UpdateServerRequest) (*model.Server, error)
	// DeleteServer removes a server (admin operation)
	DeleteServer(ctx context.Context, id string) error

	// InvalidateListings purges every cached listing result
	InvalidateListings()
}
