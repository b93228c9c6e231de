package database

import (
	"context"
	"errors"

	"github.com/mcpserverslist/registry/pkg/model"
)

// Common database errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDatabase      = errors.New("database error")
)

// Sort fields accepted by ServerQuery. Unrecognized values fall back to
// SortCreatedAt.
const (
	SortCreatedAt  = "createdAt"
	SortName       = "name"
	SortStars      = "stars"
	SortLastCommit = "lastCommit"

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// ServerQuery defines filtering, ordering and paging for server listings
type ServerQuery struct {
	Search        string // free-text query; empty means no filtering
	SortField     string
	SortDirection string
	Limit         int
	Offset        int
}

// Database defines the interface for directory persistence operations
type Database interface {
	// CreateServer inserts a new server row; ID and timestamps are assigned here
	CreateServer(ctx context.Context, server *model.Server) (*model.Server, error)
	// UpdateServer replaces the user-editable fields of an existing server
	UpdateServer(ctx context.Context, server *model.Server) (*model.Server, error)
	// UpdateServerStats persists repository stats (and README when non-empty)
	UpdateServerStats(ctx context.Context, serverID string, stats model.RepoStats, readme string) error
	// UpdateServerContent persists generated descriptions
	UpdateServerContent(ctx context.Context, serverID, shortDesc, longDesc string) error
	// DeleteServer removes a server; category links cascade
	DeleteServer(ctx context.Context, serverID string) error
	// GetServerByID retrieves a single server by id
	GetServerByID(ctx context.Context, serverID string) (*model.Server, error)
	// GetServerBySlug retrieves a single server by slug
	GetServerBySlug(ctx context.Context, slug string) (*model.Server, error)
	// GetServerByRepoURL retrieves a server whose repository or homepage URL matches
	GetServerByRepoURL(ctx context.Context, repoURL string) (*model.Server, error)
	// SlugExists reports whether a slug is already taken
	SlugExists(ctx context.Context, slug string) (bool, error)
	// ListServers returns one page of servers matching the query
	ListServers(ctx context.Context, query ServerQuery) ([]model.Server, error)
	// CountServers counts servers matching the same filter predicate as ListServers
	CountServers(ctx context.Context, search string) (int, error)

	// ListCategories returns all categories ordered by sort order then name
	ListCategories(ctx context.Context) ([]model.Category, error)
	// CreateCategories inserts categories by name, skipping names that exist
	CreateCategories(ctx context.Context, names []string) ([]model.Category, error)
	// GetCategoriesByNames resolves category rows for the given names
	GetCategoriesByNames(ctx context.Context, names []string) ([]model.Category, error)
	// ReplaceServerCategories clears all links for the server then inserts the new set
	ReplaceServerCategories(ctx context.Context, serverID string, categoryIDs []string) error
	// GetServerCategories returns the categories linked to a server
	GetServerCategories(ctx context.Context, serverID string) ([]model.Category, error)

	// CreateSubmission inserts a pending submission
	CreateSubmission(ctx context.Context, submission *model.Submission) (*model.Submission, error)
	// SubmissionExistsByRepoURL reports whether a submission with this repo URL exists
	SubmissionExistsByRepoURL(ctx context.Context, repoURL string) (bool, error)
	// ListSubmissions returns submissions, optionally filtered by status
	ListSubmissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error)
	// GetSubmissionByID retrieves a single submission
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// UpdateSubmissionStatus transitions a submission's review status
	UpdateSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) (*model.Submission, error)

	// Close closes the database connection
	Close() error
}
