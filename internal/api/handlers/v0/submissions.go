package v0

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mcpserverslist/registry/internal/service"
	apiv0 "github.com/mcpserverslist/registry/pkg/api/v0"
)

// SubmitServerInput represents the public submission form input
type SubmitServerInput struct {
	XForwardedFor string                    `header:"X-Forwarded-For" required:"false" doc:"Client address used for rate limiting"`
	Body          apiv0.SubmitServerRequest `body:""`
}

// clientIP extracts the originating client address from X-Forwarded-For;
// only the first (leftmost) address counts.
func clientIP(forwardedFor string) string {
	if forwardedFor == "" {
		return "127.0.0.1"
	}
	if idx := strings.Index(forwardedFor, ","); idx >= 0 {
		forwardedFor = forwardedFor[:idx]
	}
	return strings.TrimSpace(forwardedFor)
}

// RegisterSubmissionsEndpoints registers the public submission endpoint
func RegisterSubmissionsEndpoints(api huma.API, directory service.DirectoryService) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-server",
		Method:      http.MethodPost,
		Path:        "/v0/submissions",
		Summary:     "Submit an MCP server",
		Description: "Propose a new MCP server for the directory. Submissions are reviewed before listing.",
		Tags:        []string{"submissions"},
	}, func(ctx context.Context, input *SubmitServerInput) (*Response[apiv0.SubmitServerResult], error) {
		result, err := directory.SubmitServer(ctx, input.Body, clientIP(input.XForwardedFor))
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to process submission", err)
		}

		return &Response[apiv0.SubmitServerResult]{Body: *result}, nil
	})
}
