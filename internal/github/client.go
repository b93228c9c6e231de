// Package github fetches repository metadata from the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogithub "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"

	"github.com/mcpserverslist/registry/pkg/model"
)

// ErrInvalidRepoURL is returned when a URL cannot be parsed as owner/name
var ErrInvalidRepoURL = errors.New("invalid repository URL")

// Client wraps the GitHub API for the stats and README fetches
type Client struct {
	gh *gogithub.Client
}

// NewClient creates a GitHub client. An empty token yields an unauthenticated
// client subject to much lower rate limits.
func NewClient(ctx context.Context, token string) *Client {
	if token == "" {
		return &Client{gh: gogithub.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{gh: gogithub.NewClient(oauth2.NewClient(ctx, ts))}
}

// NewClientWithBaseURL points the client at an alternate API host (tests)
func NewClientWithBaseURL(baseURL string) (*Client, error) {
	gh, err := gogithub.NewClient(nil).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to set GitHub base URL: %w", err)
	}
	return &Client{gh: gh}, nil
}

// IsRepoURL reports whether a URL points at the supported code host
func IsRepoURL(url string) bool {
	return strings.Contains(url, "github.com")
}

// ParseRepoURL extracts owner and name from a repository URL like
// https://github.com/acme/test or acme/test.git
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSuffix(repoURL, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")
	if idx := strings.Index(trimmed, "github.com/"); idx >= 0 {
		trimmed = trimmed[idx+len("github.com/"):]
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRepoURL, repoURL)
	}
	return parts[0], parts[1], nil
}

// GetRepoStats fetches star/fork counts, last push time and license
func (c *Client) GetRepoStats(ctx context.Context, repoURL string) (*model.RepoStats, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	repository, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, repo, err)
	}

	stats := &model.RepoStats{
		Stars:   repository.GetStargazersCount(),
		Forks:   repository.GetForksCount(),
		License: model.UnknownLicense,
	}
	if pushedAt := repository.GetPushedAt(); !pushedAt.IsZero() {
		t := pushedAt.Time
		stats.LastCommit = &t
	}
	if license := repository.GetLicense(); license.GetKey() != "" {
		stats.License = license.GetKey()
	}
	return stats, nil
}

// GetReadme fetches and decodes the repository README. Returns an empty
// string without error when the repository has no README.
func (c *Client) GetReadme(ctx context.Context, repoURL string) (string, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return "", err
	}

	readme, resp, err := c.gh.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return "", nil
		}
		return "", fmt.Errorf("failed to fetch README for %s/%s: %w", owner, repo, err)
	}

	content, err := readme.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode README for %s/%s: %w", owner, repo, err)
	}
	return content, nil
}
