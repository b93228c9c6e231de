package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpserverslist/registry/internal/cache"
	"github.com/mcpserverslist/registry/internal/database"
	"github.com/mcpserverslist/registry/internal/ratelimit"
	"github.com/mcpserverslist/registry/internal/service"
	"github.com/mcpserverslist/registry/internal/workflow"
	apiv0 "github.com/mcpserverslist/registry/pkg/api/v0"
	"github.com/mcpserverslist/registry/pkg/model"
)

type sentEvent struct {
	Name    string
	Payload any
}

type eventRecorder struct {
	mu   sync.Mutex
	sent []sentEvent
	err  error
}

func (r *eventRecorder) Send(name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentEvent{Name: name, Payload: payload})
	return nil
}

func (r *eventRecorder) events() []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentEvent(nil), r.sent...)
}

func newService(t *testing.T, db database.Database, c *cache.Cache, limiter *ratelimit.KeyedLimiter, events service.EventSender) service.DirectoryService {
	t.Helper()
	if events == nil {
		events = &eventRecorder{}
	}
	return service.NewDirectoryService(db, c, limiter, events, nil, zerolog.Nop())
}

func seedServers(t *testing.T, db database.Database, count int) []model.Server {
	t.Helper()
	ctx := context.Background()
	servers := make([]model.Server, 0, count)
	for i := 0; i < count; i++ {
		created, err := db.CreateServer(ctx, &model.Server{
			Name:      fmt.Sprintf("Server %02d", i),
			Slug:      fmt.Sprintf("server-%02d", i),
			ShortDesc: fmt.Sprintf("Test server number %d", i),
			RepoURL:   fmt.Sprintf("https://github.com/example/server-%02d", i),
			Stars:     i * 10,
		})
		require.NoError(t, err)
		servers = append(servers, *created)
	}
	return servers
}

func TestListServersPagination(t *testing.T) {
	db := database.NewMemoryDB()
	seedServers(t, db, 25)
	svc := newService(t, db, nil, nil, nil)

	result, err := svc.ListServers(context.Background(), service.ListServersParams{
		Page:          2,
		Limit:         12,
		SortField:     database.SortStars,
		SortDirection: database.DirectionDesc,
	})
	require.NoError(t, err)

	assert.Len(t, result.Servers, 12)
	assert.Equal(t, apiv0.Pagination{Total: 25, TotalPages: 3, CurrentPage: 2, Limit: 12}, result.Pagination)
	assert.Equal(t, apiv0.Sorting{Field: database.SortStars, Direction: database.DirectionDesc}, result.Sorting)

	// Page 2 of stars-descending over 0..240: 120 down to 10
	assert.Equal(t, 120, result.Servers[0].Stars)
	assert.Equal(t, 10, result.Servers[11].Stars)
	for i := 1; i < len(result.Servers); i++ {
		assert.GreaterOrEqual(t, result.Servers[i-1].Stars, result.Servers[i].Stars)
	}
}

func TestListServersDefaults(t *testing.T) {
	db := database.NewMemoryDB()
	seedServers(t, db, 3)
	svc := newService(t, db, nil, nil, nil)

	result, err := svc.ListServers(context.Background(), service.ListServersParams{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Pagination.CurrentPage)
	assert.Equal(t, 12, result.Pagination.Limit)
	assert.Equal(t, database.SortCreatedAt, result.Sorting.Field)
	assert.Equal(t, database.DirectionDesc, result.Sorting.Direction)
	assert.Len(t, result.Servers, 3)
}

func TestListServersRejectsUnknownSort(t *testing.T) {
	db := database.NewMemoryDB()
	seedServers(t, db, 2)
	svc := newService(t, db, nil, nil, nil)

	result, err := svc.ListServers(context.Background(), service.ListServersParams{
		SortField:     "readmeContent",
		SortDirection: "sideways",
	})
	require.NoError(t, err)
	assert.Equal(t, database.SortCreatedAt, result.Sorting.Field)
	assert.Equal(t, database.DirectionDesc, result.Sorting.Direction)
}

func TestListServersSearch(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := context.Background()
	_, err := db.CreateServer(ctx, &model.Server{Name: "Postgres Tools", Slug: "postgres-tools", ShortDesc: "SQL helpers"})
	require.NoError(t, err)
	_, err = db.CreateServer(ctx, &model.Server{Name: "Weather", Slug: "weather", ShortDesc: "Forecasts via postgres storage"})
	require.NoError(t, err)
	_, err = db.CreateServer(ctx, &model.Server{Name: "Unrelated", Slug: "unrelated", ShortDesc: "Nothing here"})
	require.NoError(t, err)

	svc := newService(t, db, nil, nil, nil)

	result, err := svc.ListServers(ctx, service.ListServersParams{SearchQuery: "postgres"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Pagination.Total)
	require.Len(t, result.Servers, 2)
	for _, server := range result.Servers {
		matches := containsFold(server.Name, "postgres") ||
			containsFold(server.ShortDesc, "postgres") ||
			containsFold(server.LongDesc, "postgres")
		assert.True(t, matches, "server %s does not match the query", server.Name)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func TestListServersUsesCache(t *testing.T) {
	db := database.NewMemoryDB()
	seedServers(t, db, 5)
	c := cache.New(time.Minute)
	svc := newService(t, db, c, nil, nil)
	ctx := context.Background()

	first, err := svc.ListServers(ctx, service.ListServersParams{})
	require.NoError(t, err)
	assert.Equal(t, 5, first.Pagination.Total)

	// A write that bypasses the service is invisible until the tag is purged
	_, err = db.CreateServer(ctx, &model.Server{Name: "Late", Slug: "late"})
	require.NoError(t, err)

	cached, err := svc.ListServers(ctx, service.ListServersParams{})
	require.NoError(t, err)
	assert.Equal(t, 5, cached.Pagination.Total)

	svc.InvalidateListings()

	fresh, err := svc.ListServers(ctx, service.ListServersParams{})
	require.NoError(t, err)
	assert.Equal(t, 6, fresh.Pagination.Total)
}

func TestListServersCachedResultIsIsolated(t *testing.T) {
	db := database.NewMemoryDB()
	seedServers(t, db, 3)
	c := cache.New(time.Minute)
	svc := newService(t, db, c, nil, nil)
	ctx := context.Background()

	first, err := svc.ListServers(ctx, service.ListServersParams{})
	require.NoError(t, err)
	require.Len(t, first.Servers, 3)

	// Mutating one returned page must not leak into later cache hits
	first.Servers[0].Name = "mangled"
	first.Servers = first.Servers[:1]

	second, err := svc.ListServers(ctx, service.ListServersParams{})
	require.NoError(t, err)
	require.Len(t, second.Servers, 3)
	assert.NotEqual(t, "mangled", second.Servers[0].Name)
}

func TestGetServerBySlug(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := context.Background()
	created, err := db.CreateServer(ctx, &model.Server{Name: "Filesystem", Slug: "filesystem"})
	require.NoError(t, err)
	cats, err := db.CreateCategories(ctx, []string{"Storage"})
	require.NoError(t, err)
	require.NoError(t, db.ReplaceServerCategories(ctx, created.ID, []string{cats[0].ID}))

	svc := newService(t, db, nil, nil, nil)

	got, err := svc.GetServerBySlug(ctx, "filesystem")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, []string{"Storage"}, got.Categories)

	_, err = svc.GetServerBySlug(ctx, "missing")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSubmitServer(t *testing.T) {
	db := database.NewMemoryDB()
	svc := newService(t, db, nil, nil, nil)
	ctx := context.Background()

	req := apiv0.SubmitServerRequest{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		ServerName: "Analytical Engine",
		RepoURL:    "https://github.com/example/engine",
	}

	result, err := svc.SubmitServer(ctx, req, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "MCP server submitted successfully! We'll review it shortly.", result.Message)
	require.NotNil(t, result.Submission)
	assert.Equal(t, model.SubmissionStatusPending, result.Submission.Status)

	// Same repo URL again: reported as a duplicate, not an error
	dup, err := svc.SubmitServer(ctx, req, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, dup.Success)
	assert.Equal(t, "This MCP server has already been submitted and is pending review.", dup.Message)
}

func TestSubmitServerAlreadyListed(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := context.Background()
	_, err := db.CreateServer(ctx, &model.Server{
		Name:    "Engine",
		Slug:    "engine",
		RepoURL: "https://github.com/example/engine",
	})
	require.NoError(t, err)

	svc := newService(t, db, nil, nil, nil)

	result, err := svc.SubmitServer(ctx, apiv0.SubmitServerRequest{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		ServerName: "Engine",
		RepoURL:    "https://github.com/example/engine",
	}, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "This MCP server already exists in our directory.", result.Message)
}

func TestSubmitServerRateLimited(t *testing.T) {
	db := database.NewMemoryDB()
	limiter := ratelimit.New(2, time.Hour)
	svc := newService(t, db, nil, limiter, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := svc.SubmitServer(ctx, apiv0.SubmitServerRequest{
			Name:       "Ada Lovelace",
			Email:      "ada@example.com",
			ServerName: fmt.Sprintf("Server %d", i),
			RepoURL:    fmt.Sprintf("https://github.com/example/repo-%d", i),
		}, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, result.Success)
	}

	denied, err := svc.SubmitServer(ctx, apiv0.SubmitServerRequest{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		ServerName: "Server 3",
		RepoURL:    "https://github.com/example/repo-3",
	}, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, denied.Success)
	assert.Contains(t, denied.Message, "Rate limit exceeded. You can submit 2 servers per hour.")

	// A different client address is unaffected
	other, err := svc.SubmitServer(ctx, apiv0.SubmitServerRequest{
		Name:       "Grace Hopper",
		Email:      "grace@example.com",
		ServerName: "Compiler",
		RepoURL:    "https://github.com/example/compiler",
	}, "198.51.100.9")
	require.NoError(t, err)
	assert.True(t, other.Success)
}

func TestReviewSubmissionApprove(t *testing.T) {
	db := database.NewMemoryDB()
	recorder := &eventRecorder{}
	svc := newService(t, db, nil, nil, recorder)
	ctx := context.Background()

	submission, err := db.CreateSubmission(ctx, &model.Submission{
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		ServerName:  "Analytical Engine",
		RepoURL:     "https://github.com/example/engine",
		Description: "Computes Bernoulli numbers",
	})
	require.NoError(t, err)

	updated, err := svc.ReviewSubmission(ctx, submission.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusApproved, updated.Status)

	events := recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, workflow.EventServerCreated, events[0].Name)
	payload, ok := events[0].Payload.(workflow.CreateServerData)
	require.True(t, ok)
	assert.Equal(t, "Analytical Engine", payload.Name)
	assert.Equal(t, "https://github.com/example/engine", payload.RepoURL)
	assert.Equal(t, "Computes Bernoulli numbers", payload.AIContext)
	assert.Equal(t, submission.ID, payload.SubmissionID)

	// Approving twice is invalid
	_, err = svc.ReviewSubmission(ctx, submission.ID, true)
	assert.ErrorIs(t, err, database.ErrInvalidInput)
}

func TestReviewSubmissionDispatchFailureKeepsPending(t *testing.T) {
	db := database.NewMemoryDB()
	broken := &eventRecorder{err: errors.New("queue closed")}
	svc := newService(t, db, nil, nil, broken)
	ctx := context.Background()

	submission, err := db.CreateSubmission(ctx, &model.Submission{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		ServerName: "Engine",
		RepoURL:    "https://github.com/example/engine",
	})
	require.NoError(t, err)

	_, err = svc.ReviewSubmission(ctx, submission.ID, true)
	require.Error(t, err)

	// The failed dispatch must not have consumed the review
	stored, err := db.GetSubmissionByID(ctx, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusPending, stored.Status)

	// Once the queue recovers, the same submission approves cleanly
	recovered := &eventRecorder{}
	retrySvc := newService(t, db, nil, nil, recovered)
	updated, err := retrySvc.ReviewSubmission(ctx, submission.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusApproved, updated.Status)
	require.Len(t, recovered.events(), 1)
	assert.Equal(t, workflow.EventServerCreated, recovered.events()[0].Name)
}

func TestReviewSubmissionReject(t *testing.T) {
	db := database.NewMemoryDB()
	recorder := &eventRecorder{}
	svc := newService(t, db, nil, nil, recorder)
	ctx := context.Background()

	submission, err := db.CreateSubmission(ctx, &model.Submission{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		ServerName: "Engine",
		RepoURL:    "https://github.com/example/engine",
	})
	require.NoError(t, err)

	updated, err := svc.ReviewSubmission(ctx, submission.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusRejected, updated.Status)
	assert.Empty(t, recorder.events())
}

func TestTriggerServerCreation(t *testing.T) {
	db := database.NewMemoryDB()
	recorder := &eventRecorder{}
	svc := newService(t, db, nil, nil, recorder)

	result := svc.TriggerServerCreation(context.Background(), apiv0.CreateServerRequest{
		Name:        "Filesystem",
		HomepageURL: "https://github.com/example/filesystem",
	})
	assert.True(t, result.Success)

	events := recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, workflow.EventServerCreated, events[0].Name)
}

func TestTriggerServerCreationDispatchFailure(t *testing.T) {
	db := database.NewMemoryDB()
	recorder := &eventRecorder{err: errors.New("queue closed")}
	svc := newService(t, db, nil, nil, recorder)

	result := svc.TriggerServerCreation(context.Background(), apiv0.CreateServerRequest{
		Name:        "Filesystem",
		HomepageURL: "https://github.com/example/filesystem",
	})
	assert.False(t, result.Success)
}

func TestUpdateAndDeleteServerPurgeCache(t *testing.T) {
	db := database.NewMemoryDB()
	c := cache.New(time.Minute)
	svc := newService(t, db, c, nil, nil)
	ctx := context.Background()

	created, err := db.CreateServer(ctx, &model.Server{Name: "Old Name", Slug: "old-name", ShortDesc: "old"})
	require.NoError(t, err)

	before, err := svc.ListServers(ctx, service.ListServersParams{})
	require.NoError(t, err)
	assert.Equal(t, "Old Name", before.Servers[0].Name)

	updated, err := svc.UpdateServer(ctx, created.ID, apiv0.UpdateServerRequest{
		Name:      "New Name",
		ShortDesc: "new",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	after, err := svc.ListServers(ctx, service.ListServersParams{})
	require.NoError(t, err)
	assert.Equal(t, "New Name", after.Servers[0].Name)

	require.NoError(t, svc.DeleteServer(ctx, created.ID))

	empty, err := svc.ListServers(ctx, service.ListServersParams{})
	require.NoError(t, err)
	assert.Empty(t, empty.Servers)
	assert.Equal(t, 0, empty.Pagination.Total)
}
