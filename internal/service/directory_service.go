package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mcpserverslist/registry/internal/cache"
	"github.com/mcpserverslist/registry/internal/database"
	"github.com/mcpserverslist/registry/internal/ratelimit"
	"github.com/mcpserverslist/registry/internal/telemetry"
	"github.com/mcpserverslist/registry/internal/workflow"
	apiv0 "github.com/mcpserverslist/registry/pkg/api/v0"
	"github.com/mcpserverslist/registry/pkg/model"
)

// Listing defaults applied when the request leaves parameters unset
const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// Submission outcome messages surfaced directly to end users
const (
	MsgSubmissionAccepted  = "MCP server submitted successfully! We'll review it shortly."
	MsgServerAlreadyListed = "This MCP server already exists in our directory."
	MsgAlreadySubmitted    = "This MCP server has already been submitted and is pending review."
	MsgSubmissionFailed    = "An error occurred while submitting your MCP server."
)

// EventSender dispatches named events to the background job runner
type EventSender interface {
	Send(name string, payload any) error
}

type registryService struct {
	db      database.Database
	cache   *cache.Cache
	limiter *ratelimit.KeyedLimiter
	events  EventSender
	metrics *telemetry.Metrics
	logger  zerolog.Logger
}

// NewDirectoryService returns the production DirectoryService backed by the
// given database. cache, limiter and metrics may be nil; the corresponding
// behavior is then skipped.
func NewDirectoryService(db database.Database, c *cache.Cache, limiter *ratelimit.KeyedLimiter, events EventSender, metrics *telemetry.Metrics, logger zerolog.Logger) DirectoryService {
	return &registryService{
		db:      db,
		cache:   c,
		limiter: limiter,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// normalize fills listing defaults and clamps out-of-range values
func normalize(params ListServersParams) ListServersParams {
	if params.Page < 1 {
		params.Page = DefaultPage
	}
	if params.Limit < 1 {
		params.Limit = DefaultLimit
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}
	switch params.SortField {
	case database.SortCreatedAt, database.SortName, database.SortStars, database.SortLastCommit:
	default:
		params.SortField = database.SortCreatedAt
	}
	switch params.SortDirection {
	case database.DirectionAsc, database.DirectionDesc:
	default:
		params.SortDirection = database.DirectionDesc
	}
	return params
}

// listingKey identifies one listing result; equal parameter tuples share one
// cache entry.
func listingKey(params ListServersParams) string {
	return fmt.Sprintf("list|q=%s|p=%d|l=%d|s=%s|d=%s",
		params.SearchQuery, params.Page, params.Limit, params.SortField, params.SortDirection)
}

func (s *registryService) ListServers(ctx context.Context, params ListServersParams) (*ListServersResult, error) {
	params = normalize(params)
	key := listingKey(params)

	if s.cache != nil {
		if cached, ok := s.cache.Get(cache.TagServers, key); ok {
			if result, ok := cached.(*ListServersResult); ok {
				if s.metrics != nil {
					s.metrics.CacheHits.Add(ctx, 1)
				}
				return copyListResult(result), nil
			}
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Add(ctx, 1)
		}
	}

	query := database.ServerQuery{
		Search:        params.SearchQuery,
		SortField:     params.SortField,
		SortDirection: params.SortDirection,
		Limit:         params.Limit,
		Offset:        (params.Page - 1) * params.Limit,
	}

	var (
		servers []model.Server
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		servers, err = s.db.ListServers(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.db.CountServers(gctx, params.SearchQuery)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	totalPages := (total + params.Limit - 1) / params.Limit

	result := &ListServersResult{
		Servers: servers,
		Pagination: apiv0.Pagination{
			Total:       total,
			TotalPages:  totalPages,
			CurrentPage: params.Page,
			Limit:       params.Limit,
		},
		Sorting: apiv0.Sorting{
			Field:     params.SortField,
			Direction: params.SortDirection,
		},
	}

	if s.cache != nil {
		s.cache.Set(cache.TagServers, key, result)
		result = copyListResult(result)
	}
	return result, nil
}

// copyListResult detaches a result from the cached entry so callers cannot
// mutate state shared across cache hits.
func copyListResult(result *ListServersResult) *ListServersResult {
	out := *result
	out.Servers = append([]model.Server(nil), result.Servers...)
	return &out
}

func (s *registryService) GetServerBySlug(ctx context.Context, slug string) (*apiv0.ServerWithCategories, error) {
	server, err := s.db.GetServerBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	categories, err := s.db.GetServerCategories(ctx, server.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load server categories: %w", err)
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return &apiv0.ServerWithCategories{Server: *server, Categories: names}, nil
}

func (s *registryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.db.ListCategories(ctx)
}

func (s *registryService) SubmitServer(ctx context.Context, req apiv0.SubmitServerRequest, clientIP string) (*apiv0.SubmitServerResult, error) {
	if s.limiter != nil {
		check := s.limiter.Check(clientIP)
		if !check.Allowed {
			return &apiv0.SubmitServerResult{
				Success: false,
				Message: fmt.Sprintf("Rate limit exceeded. You can submit %d servers per hour. Try again at %s.",
					check.Limit, check.ResetAt.UTC().Format(time.RFC3339)),
			}, nil
		}
	}

	// A server that already made it into the directory is not resubmittable
	if _, err := s.db.GetServerByRepoURL(ctx, req.RepoURL); err == nil {
		return &apiv0.SubmitServerResult{Success: false, Message: MsgServerAlreadyListed}, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		s.logger.Error().Err(err).Msg("failed to check existing servers for submission")
		return &apiv0.SubmitServerResult{Success: false, Message: MsgSubmissionFailed}, nil
	}

	exists, err := s.db.SubmissionExistsByRepoURL(ctx, req.RepoURL)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check existing submissions")
		return &apiv0.SubmitServerResult{Success: false, Message: MsgSubmissionFailed}, nil
	}
	if exists {
		return &apiv0.SubmitServerResult{Success: false, Message: MsgAlreadySubmitted}, nil
	}

	submission, err := s.db.CreateSubmission(ctx, &model.Submission{
		Name:        req.Name,
		Email:       req.Email,
		ServerName:  req.ServerName,
		RepoURL:     req.RepoURL,
		Description: req.Description,
		Status:      model.SubmissionStatusPending,
	})
	if err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return &apiv0.SubmitServerResult{Success: false, Message: MsgAlreadySubmitted}, nil
		}
		s.logger.Error().Err(err).Msg("failed to create submission")
		return &apiv0.SubmitServerResult{Success: false, Message: MsgSubmissionFailed}, nil
	}

	if s.metrics != nil {
		s.metrics.SubmissionsTotal.Add(ctx, 1)
	}
	s.logger.Info().Str("submissionId", submission.ID).Str("repoUrl", submission.RepoURL).Msg("submission received")

	return &apiv0.SubmitServerResult{
		Success:    true,
		Message:    MsgSubmissionAccepted,
		Submission: submission,
	}, nil
}

func (s *registryService) ListSubmissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	return s.db.ListSubmissions(ctx, status)
}

func (s *registryService) ReviewSubmission(ctx context.Context, id string, approve bool) (*model.Submission, error) {
	submission, err := s.db.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Status != model.SubmissionStatusPending {
		return nil, fmt.Errorf("%w: submission %s is already %s", database.ErrInvalidInput, id, submission.Status)
	}

	status := model.SubmissionStatusRejected
	if approve {
		status = model.SubmissionStatusApproved

		// Dispatch before flipping the status: a queue failure must leave
		// the submission pending so the review can be retried.
		payload := workflow.CreateServerData{
			Name:         submission.ServerName,
			HomepageURL:  submission.RepoURL,
			RepoURL:      submission.RepoURL,
			AIContext:    submission.Description,
			SubmissionID: submission.ID,
		}
		if err := s.events.Send(workflow.EventServerCreated, payload); err != nil {
			s.logger.Error().Err(err).Str("submissionId", id).Msg("failed to dispatch creation event for submission approval")
			return nil, fmt.Errorf("failed to queue server creation for submission %s: %w", id, err)
		}
	}
	updated, err := s.db.UpdateSubmissionStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if approve {
		s.InvalidateListings()
	}

	s.logger.Info().Str("submissionId", id).Str("status", string(status)).Msg("submission reviewed")
	return updated, nil
}

func (s *registryService) TriggerServerCreation(ctx context.Context, req apiv0.CreateServerRequest) *apiv0.CreateServerResult {
	payload := workflow.CreateServerData{
		Name:        req.Name,
		HomepageURL: req.HomepageURL,
		RepoURL:     req.RepoURL,
		DocsURL:     req.DocsURL,
		LogoURL:     req.LogoURL,
		AIContext:   req.AIContext,
	}
	if err := s.events.Send(workflow.EventServerCreated, payload); err != nil {
		s.logger.Error().Err(err).Str("name", req.Name).Msg("failed to dispatch creation event")
		return &apiv0.CreateServerResult{Success: false, Message: "Failed to queue server creation."}
	}

	s.InvalidateListings()
	s.logger.Info().Str("name", req.Name).Msg("server creation queued")
	return &apiv0.CreateServerResult{Success: true, Message: "Server creation started."}
}

func (s *registryService) UpdateServer(ctx context.Context, id string, req apiv0.UpdateServerRequest) (*model.Server, error) {
	server, err := s.db.GetServerByID(ctx, id)
	if err != nil {
		return nil, err
	}

	server.Name = req.Name
	server.ShortDesc = req.ShortDesc
	server.LongDesc = req.LongDesc
	server.HomepageURL = req.HomepageURL
	server.RepoURL = req.RepoURL
	server.DocsURL = req.DocsURL
	server.LogoURL = req.LogoURL
	if req.License != "" {
		server.License = req.License
	}

	updated, err := s.db.UpdateServer(ctx, server)
	if err != nil {
		return nil, err
	}
	s.InvalidateListings()
	return updated, nil
}

func (s *registryService) DeleteServer(ctx context.Context, id string) error {
	if err := s.db.DeleteServer(ctx, id); err != nil {
		return err
	}
	s.InvalidateListings()
	return nil
}

func (s *registryService) InvalidateListings() {
	if s.cache != nil {
		s.cache.Purge(cache.TagServers)
	}
}
