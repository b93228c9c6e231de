// Package v0 defines the wire types for the v0 HTTP API.
package v0

import (
	"github.com/mcpserverslist/registry/pkg/model"
)

// ServerWithCategories is a server detail response including its categories
type ServerWithCategories struct {
	model.Server
	Categories []string `json:"categories"`
}

// Pagination describes the page window of a list response
type Pagination struct {
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

// Sorting echoes back the sort applied to a list response
type Sorting struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// ServerListResponse is the paginated server list response
type ServerListResponse struct {
	Servers    []model.Server `json:"servers"`
	Pagination Pagination     `json:"pagination"`
	Sorting    Sorting        `json:"sorting"`
}

// CategoryListResponse lists all categories
type CategoryListResponse struct {
	Categories []model.Category `json:"categories"`
}

// SubmissionListResponse lists submissions for admin review
type SubmissionListResponse struct {
	Submissions []model.Submission `json:"submissions"`
	Count       int                `json:"count"`
}

// SubmitServerRequest is the public submission form payload
type SubmitServerRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"255" doc:"Submitter name"`
	Email       string `json:"email" format:"email" maxLength:"255" doc:"Submitter email"`
	ServerName  string `json:"serverName" minLength:"1" maxLength:"255" doc:"Proposed server name"`
	RepoURL     string `json:"repoUrl" format:"uri" maxLength:"255" doc:"Repository URL"`
	Description string `json:"description,omitempty" doc:"Optional free-text description"`
}

// SubmitServerResult is a discriminated success/failure result; expected
// failure modes (duplicate, rate limited) are reported here, never as errors.
type SubmitServerResult struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Submission *model.Submission `json:"data,omitempty"`
}

// CreateServerRequest triggers the enrichment workflow for a new server
type CreateServerRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"255"`
	HomepageURL string `json:"homepageUrl" format:"uri"`
	RepoURL     string `json:"repoUrl,omitempty" format:"uri"`
	DocsURL     string `json:"docsUrl,omitempty" format:"uri"`
	LogoURL     string `json:"logoUrl,omitempty"`
	AIContext   string `json:"aiContext,omitempty" doc:"Free-text hint passed to content generation"`
}

// CreateServerResult reports whether the creation event was accepted
type CreateServerResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UpdateServerRequest is the admin edit payload
type UpdateServerRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"255"`
	ShortDesc   string `json:"shortDesc" minLength:"1" maxLength:"160"`
	LongDesc    string `json:"longDesc,omitempty"`
	HomepageURL string `json:"homepageUrl,omitempty" format:"uri"`
	RepoURL     string `json:"repoUrl,omitempty" format:"uri"`
	DocsURL     string `json:"docsUrl,omitempty" format:"uri"`
	LogoURL     string `json:"logoUrl,omitempty"`
	License     string `json:"license,omitempty" maxLength:"50"`
}
