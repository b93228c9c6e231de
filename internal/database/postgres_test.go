package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpserverslist/registry/pkg/model"
)

func seedServer(t *testing.T, db Database, name, slugVal, shortDesc string, stars int) *model.Server {
	t.Helper()
	created, err := db.CreateServer(context.Background(), &model.Server{
		Name:      name,
		Slug:      slugVal,
		ShortDesc: shortDesc,
		License:   model.UnknownLicense,
	})
	require.NoError(t, err)
	if stars != 0 {
		now := time.Now()
		require.NoError(t, db.UpdateServerStats(context.Background(), created.ID, model.RepoStats{
			Stars:      stars,
			LastCommit: &now,
			License:    "mit",
		}, ""))
	}
	return created
}

func TestPostgreSQLCreateServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := NewTestDB(t)
	ctx := context.Background()

	created, err := db.CreateServer(ctx, &model.Server{
		Name:        "Weather Server",
		Slug:        "weather-server",
		ShortDesc:   model.PlaceholderDescription,
		HomepageURL: "https://github.com/acme/weather",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "weather-server", created.Slug)
	assert.Equal(t, model.PlaceholderDescription, created.ShortDesc)
	assert.False(t, created.CreatedAt.IsZero())

	// Slug is globally unique
	_, err = db.CreateServer(ctx, &model.Server{
		Name:      "Weather Server Again",
		Slug:      "weather-server",
		ShortDesc: model.PlaceholderDescription,
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// Lookup by repo or homepage URL
	bySlug, err := db.GetServerBySlug(ctx, "weather-server")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	byURL, err := db.GetServerByRepoURL(ctx, "https://github.com/acme/weather")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byURL.ID)
}

func TestPostgreSQLListServersSearchAndSort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := NewTestDB(t)
	ctx := context.Background()

	seedServer(t, db, "Postgres Toolkit", "postgres-toolkit", "Query and inspect databases", 50)
	seedServer(t, db, "Weather Data", "weather-data", "Provides weather forecasts", 10)
	seedServer(t, db, "File Manager", "file-manager", "Manages local files and databases", 30)

	// Search matches name and descriptions
	results, err := db.ListServers(ctx, ServerQuery{Search: "databases", SortField: SortStars, SortDirection: DirectionDesc, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Postgres Toolkit", results[0].Name)
	assert.Equal(t, "File Manager", results[1].Name)

	count, err := db.CountServers(ctx, "databases")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Whitespace query applies no filtering
	all, err := db.ListServers(ctx, ServerQuery{Search: "   ", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Unknown sort field falls back to created_at
	fallback, err := db.ListServers(ctx, ServerQuery{SortField: "bogus", SortDirection: DirectionAsc, Limit: 10})
	require.NoError(t, err)
	require.Len(t, fallback, 3)
	assert.Equal(t, "Postgres Toolkit", fallback[0].Name)
}

func TestPostgreSQLListServersPagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := NewTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedServer(t, db, string(rune('a'+i))+"-server", string(rune('a'+i))+"-server", "desc", i)
	}

	page1, err := db.ListServers(ctx, ServerQuery{SortField: SortStars, SortDirection: DirectionDesc, Limit: 2, Offset: 0})
	require.NoError(t, err)
	page2, err := db.ListServers(ctx, ServerQuery{SortField: SortStars, SortDirection: DirectionDesc, Limit: 2, Offset: 2})
	require.NoError(t, err)

	require.Len(t, page1, 2)
	require.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
	assert.GreaterOrEqual(t, page1[1].Stars, page2[0].Stars)
}

func TestPostgreSQLCategories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := NewTestDB(t)
	ctx := context.Background()

	created, err := db.CreateCategories(ctx, []string{"API Tools", "Database"})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "api-tools", created[0].Slug)

	// Name is the natural key: re-creating must not duplicate
	again, err := db.CreateCategories(ctx, []string{"API Tools"})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, created[0].ID, again[0].ID)

	all, err := db.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	server := seedServer(t, db, "Cat Test", "cat-test", "desc", 0)

	// Clear-then-insert assignment is idempotent
	ids := []string{created[0].ID, created[1].ID}
	require.NoError(t, db.ReplaceServerCategories(ctx, server.ID, ids))
	require.NoError(t, db.ReplaceServerCategories(ctx, server.ID, ids))

	linked, err := db.GetServerCategories(ctx, server.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	// Reassignment leaves no residual links
	require.NoError(t, db.ReplaceServerCategories(ctx, server.ID, []string{created[1].ID}))
	linked, err = db.GetServerCategories(ctx, server.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "Database", linked[0].Name)
}

func TestPostgreSQLSubmissions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := NewTestDB(t)
	ctx := context.Background()

	submission, err := db.CreateSubmission(ctx, &model.Submission{
		Name:       "Jane",
		Email:      "jane@example.com",
		ServerName: "Test Server",
		RepoURL:    "https://github.com/acme/test",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusPending, submission.Status)

	exists, err := db.SubmissionExistsByRepoURL(ctx, "https://github.com/acme/test")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.SubmissionExistsByRepoURL(ctx, "https://github.com/acme/other")
	require.NoError(t, err)
	assert.False(t, exists)

	updated, err := db.UpdateSubmissionStatus(ctx, submission.ID, model.SubmissionStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusApproved, updated.Status)

	pending, err := db.ListSubmissions(ctx, model.SubmissionStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
