package model

import "time"

// SubmissionStatus represents the review state of a user submission
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// PlaceholderDescription is the short description a server carries while the
// enrichment workflow is still filling in its metadata.
const PlaceholderDescription = "Processing..."

// UnknownLicense is stored when no license could be resolved for a repository.
const UnknownLicense = "unknown"

// FallbackCategory is assigned when categorization yields no categories at all.
const FallbackCategory = "Miscellaneous"

// Server represents one directory-listed MCP server
type Server struct {
	ID            string     `json:"id"`
	Name          string     `json:"name" minLength:"1" maxLength:"255"`
	Slug          string     `json:"slug"`
	ShortDesc     string     `json:"shortDesc" maxLength:"160"`
	LongDesc      string     `json:"longDesc,omitempty"`
	HomepageURL   string     `json:"homepageUrl,omitempty"`
	RepoURL       string     `json:"repoUrl,omitempty"`
	DocsURL       string     `json:"docsUrl,omitempty"`
	LogoURL       string     `json:"logoUrl,omitempty"`
	Stars         int        `json:"stars"`
	LastCommit    *time.Time `json:"lastCommit,omitempty"`
	License       string     `json:"license,omitempty"`
	ReadmeContent string     `json:"readmeContent,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Category is a user-visible functional tag assignable to servers.
// Name is the natural key: categorization matches or creates by name.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name" minLength:"1" maxLength:"100"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sortOrder"`
}

// Submission is an end-user-proposed server pending administrative review
type Submission struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	ServerName  string           `json:"serverName"`
	RepoURL     string           `json:"repoUrl"`
	Description string           `json:"description,omitempty"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// RepoStats holds repository metadata fetched from the code host
type RepoStats struct {
	Stars      int        `json:"stars"`
	Forks      int        `json:"forks"`
	LastCommit *time.Time `json:"lastCommit,omitempty"`
	License    string     `json:"license"`
}
