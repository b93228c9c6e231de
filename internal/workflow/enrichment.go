// Package workflow implements the server enrichment pipeline that runs after
// a new directory entry is requested: create the row, fetch repository stats,
// generate a summary, categorize, and report the aggregate result.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mcpserverslist/registry/internal/ai"
	"github.com/mcpserverslist/registry/internal/database"
	ghclient "github.com/mcpserverslist/registry/internal/github"
	"github.com/mcpserverslist/registry/internal/telemetry"
	"github.com/mcpserverslist/registry/pkg/model"
	"github.com/mcpserverslist/registry/pkg/slug"
)

// EventServerCreated is the job event name this workflow handles
const EventServerCreated = "server/created"

// slugAttempts bounds the collision-suffix search; in practice a handful of
// suffixes suffices.
const slugAttempts = 10000

// ErrMissingFields is the only fatal validation error: without a name and
// homepage there is no entry to attach later steps to.
var ErrMissingFields = errors.New("missing required fields: name and homepageUrl")

// ErrSlugExhausted is returned when no unique slug could be derived
var ErrSlugExhausted = errors.New("could not derive a unique slug")

// CreateServerData is the creation event payload
type CreateServerData struct {
	Name         string `json:"name"`
	HomepageURL  string `json:"homepageUrl"`
	RepoURL      string `json:"repoUrl,omitempty"`
	DocsURL      string `json:"docsUrl,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	AIContext    string `json:"aiContext,omitempty"`
	SubmissionID string `json:"submissionId,omitempty"`
}

// Result aggregates every step's output for observability
type Result struct {
	ServerID           string          `json:"serverId"`
	Slug               string          `json:"slug"`
	Name               string          `json:"name"`
	ShortDesc          string          `json:"shortDesc"`
	LongDesc           string          `json:"longDesc"`
	RepoStats          model.RepoStats `json:"repoStats"`
	LogoURL            string          `json:"logoUrl,omitempty"`
	Categories         []string        `json:"categories"`
	ProcessingComplete bool            `json:"processingComplete"`
}

// RepoHost fetches repository metadata; both calls can fail independently
type RepoHost interface {
	GetRepoStats(ctx context.Context, repoURL string) (*model.RepoStats, error)
	GetReadme(ctx context.Context, repoURL string) (string, error)
}

// ContentGenerator runs the two structured prompts
type ContentGenerator interface {
	GenerateSummary(ctx context.Context, variables map[string]any) (string, ai.Usage, error)
	Categorize(ctx context.Context, variables map[string]any) (*ai.CategorizeServerResponse, ai.Usage, error)
}

// Enrichment executes the workflow. Steps run strictly in sequence; every
// step after creation traps its own failures and substitutes safe defaults.
type Enrichment struct {
	db        database.Database
	repoHost  RepoHost
	generator ContentGenerator
	logger    zerolog.Logger
	metrics   *telemetry.Metrics
}

func NewEnrichment(db database.Database, repoHost RepoHost, generator ContentGenerator, logger zerolog.Logger, metrics *telemetry.Metrics) *Enrichment {
	return &Enrichment{
		db:        db,
		repoHost:  repoHost,
		generator: generator,
		logger:    logger,
		metrics:   metrics,
	}
}

// HandleEvent adapts Handle to the job runner's handler signature
func (e *Enrichment) HandleEvent(ctx context.Context, payload json.RawMessage) error {
	var data CreateServerData
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("invalid %s payload: %w", EventServerCreated, err)
	}
	_, err := e.Handle(ctx, data)
	return err
}

// Handle runs the workflow for one creation event
func (e *Enrichment) Handle(ctx context.Context, data CreateServerData) (*Result, error) {
	logger := e.logger.With().Str("event", EventServerCreated).Str("name", data.Name).Logger()
	logger.Info().Str("homepageUrl", data.HomepageURL).Bool("hasRepoUrl", data.RepoURL != "").Msg("task started")

	// Step 1: create. The only fatal step.
	server, err := e.createServer(ctx, data)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Str("serverId", server.ID).Str("slug", server.Slug).Logger()
	logger.Info().Msg("server created in database")

	// Step 2: repository stats
	stats, targetRepoURL := e.fetchRepoStats(ctx, logger, server.ID, data)

	// Step 3: generated content
	shortDesc := e.generateContent(ctx, logger, server.ID, data, targetRepoURL)

	// Step 4: categorization
	categories := e.categorize(ctx, logger, server.ID, data, shortDesc)

	logger.Info().
		Int("categoriesAssigned", len(categories)).
		Int("repoStars", stats.Stars).
		Msg("server processing completed")

	return &Result{
		ServerID:           server.ID,
		Slug:               server.Slug,
		Name:               server.Name,
		ShortDesc:          shortDesc,
		LongDesc:           server.LongDesc,
		RepoStats:          stats,
		LogoURL:            data.LogoURL,
		Categories:         categories,
		ProcessingComplete: true,
	}, nil
}

// createServer validates the payload and inserts the entry. The job runner
// re-runs the whole handler on failure, so creation is made idempotent by
// reusing an existing entry with the same repository (or homepage) URL.
func (e *Enrichment) createServer(ctx context.Context, data CreateServerData) (*model.Server, error) {
	if data.Name == "" || data.HomepageURL == "" {
		return nil, ErrMissingFields
	}

	naturalKey := data.RepoURL
	if naturalKey == "" {
		naturalKey = data.HomepageURL
	}
	existing, err := e.db.GetServerByRepoURL(ctx, naturalKey)
	if err == nil {
		e.logger.Info().Str("serverId", existing.ID).Msg("reusing existing server for retried creation")
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing server: %w", err)
	}

	uniqueSlug, err := e.uniqueSlug(ctx, data.Name)
	if err != nil {
		return nil, err
	}

	return e.db.CreateServer(ctx, &model.Server{
		Name:        data.Name,
		Slug:        uniqueSlug,
		ShortDesc:   model.PlaceholderDescription,
		HomepageURL: data.HomepageURL,
		RepoURL:     data.RepoURL,
		DocsURL:     data.DocsURL,
		LogoURL:     data.LogoURL,
		Stars:       0,
		License:     model.UnknownLicense,
	})
}

// uniqueSlug appends a strictly-incrementing numeric suffix until the slug is free
func (e *Enrichment) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	for suffix := 0; suffix < slugAttempts; suffix++ {
		candidate := slug.WithSuffix(base, suffix)
		exists, err := e.db.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSlugExhausted, base)
}

// fetchRepoStats resolves the target repository and fetches stats and README
// concurrently. Never aborts the workflow; failures keep the zero defaults
// established at creation.
func (e *Enrichment) fetchRepoStats(ctx context.Context, logger zerolog.Logger, serverID string, data CreateServerData) (model.RepoStats, string) {
	defaults := model.RepoStats{Stars: 0, License: model.UnknownLicense}

	targetRepoURL := data.RepoURL
	if targetRepoURL == "" && ghclient.IsRepoURL(data.HomepageURL) {
		targetRepoURL = data.HomepageURL
		logger.Info().Str("homepageUrl", data.HomepageURL).Msg("using homepage URL as repo URL")
	}
	if targetRepoURL == "" {
		logger.Info().Msg("no repo URL found, skipping repository stats")
		return defaults, ""
	}

	var (
		stats     *model.RepoStats
		statsErr  error
		readme    string
		readmeErr error
	)
	g, fetchCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, statsErr = e.repoHost.GetRepoStats(fetchCtx, targetRepoURL)
		return nil
	})
	g.Go(func() error {
		readme, readmeErr = e.repoHost.GetReadme(fetchCtx, targetRepoURL)
		return nil
	})
	_ = g.Wait()

	if readmeErr != nil {
		logger.Error().Err(readmeErr).Str("repoUrl", targetRepoURL).Msg("failed to fetch README")
		readme = ""
	}
	if statsErr != nil {
		logger.Error().Err(statsErr).Str("repoUrl", targetRepoURL).Msg("failed to fetch repository stats")
		return defaults, targetRepoURL
	}

	if err := e.db.UpdateServerStats(ctx, serverID, *stats, readme); err != nil {
		logger.Error().Err(err).Msg("failed to persist repository stats")
		return defaults, targetRepoURL
	}

	logger.Info().Int("stars", stats.Stars).Str("license", stats.License).Msg("repository stats updated")
	return *stats, targetRepoURL
}

// generateContent calls the LLM for a bounded summary; on failure the
// placeholder description set at creation is retained.
func (e *Enrichment) generateContent(ctx context.Context, logger zerolog.Logger, serverID string, data CreateServerData, targetRepoURL string) string {
	logger.Info().Bool("hasAiContext", data.AIContext != "").Msg("generating content")

	variables := map[string]any{
		"serverName":  data.Name,
		"homepageUrl": data.HomepageURL,
		"repoUrl":     targetRepoURL,
		"repoReadme":  "", // omitted to keep token usage down
	}

	summary, usage, err := e.generator.GenerateSummary(ctx, variables)
	e.recordUsage(ctx, usage)
	if err != nil {
		logger.Error().Err(err).Msg("failed to generate content")
		return model.PlaceholderDescription
	}

	if err := e.db.UpdateServerContent(ctx, serverID, summary, ""); err != nil {
		logger.Error().Err(err).Msg("failed to persist generated content")
		return model.PlaceholderDescription
	}

	logger.Info().Int("shortDescLength", len(summary)).Msg("content generated and updated")
	return summary
}

// categorize matches or creates categories via the LLM and replaces the
// entry's associations. Every failure path still ends with at least the
// fallback category assigned.
func (e *Enrichment) categorize(ctx context.Context, logger zerolog.Logger, serverID string, data CreateServerData, shortDesc string) []string {
	assigned, err := e.runCategorization(ctx, logger, serverID, data, shortDesc)
	if err == nil {
		logger.Info().Strs("categories", assigned).Msg("categories assigned")
		return assigned
	}
	logger.Error().Err(err).Msg("failed to categorize server, assigning fallback")

	fallback, fbErr := e.assignNames(ctx, serverID, []string{model.FallbackCategory})
	if fbErr != nil {
		logger.Error().Err(fbErr).Msg("failed to assign fallback category")
		return nil
	}
	return fallback
}

func (e *Enrichment) runCategorization(ctx context.Context, logger zerolog.Logger, serverID string, data CreateServerData, shortDesc string) ([]string, error) {
	existing, err := e.db.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	names := make([]string, len(existing))
	for i, c := range existing {
		names[i] = c.Name
	}

	logger.Info().Int("existingCategoriesCount", len(names)).Msg("categorizing server")

	variables := map[string]any{
		"serverName":        data.Name,
		"categories":        strings.Join(names, ","),
		"additionalContext": data.AIContext,
		"shortDescription":  shortDesc,
		"longDescription":   "",
	}
	categorization, usage, err := e.generator.Categorize(ctx, variables)
	e.recordUsage(ctx, usage)
	if err != nil {
		return nil, err
	}

	if len(categorization.CategoriesToAdd) > 0 {
		if _, err := e.db.CreateCategories(ctx, categorization.CategoriesToAdd); err != nil {
			return nil, fmt.Errorf("failed to create categories: %w", err)
		}
		logger.Info().Strs("categories", categorization.CategoriesToAdd).Msg("created new categories")
	}

	merged := append(append([]string{}, categorization.Categories...), categorization.CategoriesToAdd...)
	if len(merged) == 0 {
		if _, err := e.db.CreateCategories(ctx, []string{model.FallbackCategory}); err != nil {
			return nil, fmt.Errorf("failed to create fallback category: %w", err)
		}
		merged = []string{model.FallbackCategory}
		logger.Info().Msg("added fallback category")
	}

	return e.assignNames(ctx, serverID, merged)
}

// assignNames resolves category names to rows (creating missing ones) and
// atomically replaces the server's associations with that set.
func (e *Enrichment) assignNames(ctx context.Context, serverID string, names []string) ([]string, error) {
	if _, err := e.db.CreateCategories(ctx, names); err != nil {
		return nil, fmt.Errorf("failed to ensure categories exist: %w", err)
	}
	records, err := e.db.GetCategoriesByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve categories: %w", err)
	}

	ids := make([]string, len(records))
	assigned := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.ID
		assigned[i] = record.Name
	}
	if err := e.db.ReplaceServerCategories(ctx, serverID, ids); err != nil {
		return nil, fmt.Errorf("failed to replace category links: %w", err)
	}
	return assigned, nil
}

func (e *Enrichment) recordUsage(ctx context.Context, usage ai.Usage) {
	if e.metrics == nil {
		return
	}
	e.metrics.LLMCalls.Add(ctx, 1)
	e.metrics.LLMTokens.Add(ctx, int64(usage.InputTokens+usage.OutputTokens))
}
