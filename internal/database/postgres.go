package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcpserverslist/registry/pkg/model"
	"github.com/mcpserverslist/registry/pkg/slug"
)

// PostgreSQL is an implementation of the Database interface using PostgreSQL
type PostgreSQL struct {
	pool *pgxpool.Pool
}

// NewPostgreSQL creates a new instance of the PostgreSQL database
func NewPostgreSQL(ctx context.Context, connectionURI string) (*PostgreSQL, error) {
	// Parse connection config for pool settings
	config, err := pgxpool.ParseConfig(connectionURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	// Configure pool for stability-focused defaults
	config.MaxConns = 30                      // Handle good concurrent load
	config.MinConns = 5                       // Keep connections warm for fast response
	config.MaxConnIdleTime = 30 * time.Minute // Keep connections available for bursts
	config.MaxConnLifetime = 2 * time.Hour    // Refresh connections regularly for stability

	// Create connection pool with configured settings
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	// Test the connection
	if err = pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// Run migrations using a single connection from the pool
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for migrations: %w", err)
	}
	defer conn.Release()

	migrator := NewMigrator(conn.Conn())
	if err := migrator.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return &PostgreSQL{
		pool: pool,
	}, nil
}

const serverColumns = `id, name, slug, short_desc, COALESCE(long_desc, ''),
	COALESCE(homepage_url, ''), COALESCE(repo_url, ''), COALESCE(docs_url, ''), COALESCE(logo_url, ''),
	COALESCE(stars, 0), last_commit, COALESCE(license, ''), COALESCE(readme_content, ''),
	created_at, updated_at`

func scanServer(row pgx.Row) (*model.Server, error) {
	var s model.Server
	err := row.Scan(
		&s.ID, &s.Name, &s.Slug, &s.ShortDesc, &s.LongDesc,
		&s.HomepageURL, &s.RepoURL, &s.DocsURL, &s.LogoURL,
		&s.Stars, &s.LastCommit, &s.License, &s.ReadmeContent,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan server row: %w", err)
	}
	return &s, nil
}

// nullable converts empty strings to NULL on the way into the database
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateServer inserts a new server row
func (db *PostgreSQL) CreateServer(ctx context.Context, server *model.Server) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `
		INSERT INTO servers (name, slug, short_desc, long_desc, homepage_url, repo_url, docs_url, logo_url, stars, last_commit, license, readme_content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + serverColumns

	row := db.pool.QueryRow(ctx, query,
		server.Name, server.Slug, server.ShortDesc, nullable(server.LongDesc),
		nullable(server.HomepageURL), nullable(server.RepoURL), nullable(server.DocsURL), nullable(server.LogoURL),
		server.Stars, server.LastCommit, nullable(server.License), nullable(server.ReadmeContent),
	)

	created, err := scanServer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert server: %w", err)
	}
	return created, nil
}

// UpdateServer replaces the user-editable fields of an existing server
func (db *PostgreSQL) UpdateServer(ctx context.Context, server *model.Server) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `
		UPDATE servers
		SET name = $2, short_desc = $3, long_desc = $4, homepage_url = $5, repo_url = $6,
			docs_url = $7, logo_url = $8, license = $9, updated_at = now()
		WHERE id = $1
		RETURNING ` + serverColumns

	row := db.pool.QueryRow(ctx, query,
		server.ID, server.Name, server.ShortDesc, nullable(server.LongDesc),
		nullable(server.HomepageURL), nullable(server.RepoURL), nullable(server.DocsURL),
		nullable(server.LogoURL), nullable(server.License),
	)
	return scanServer(row)
}

// UpdateServerStats persists repository stats (and README when non-empty)
func (db *PostgreSQL) UpdateServerStats(ctx context.Context, serverID string, stats model.RepoStats, readme string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	query := `
		UPDATE servers
		SET stars = $2, last_commit = $3, license = $4,
			readme_content = COALESCE($5, readme_content), updated_at = now()
		WHERE id = $1
	`
	tag, err := db.pool.Exec(ctx, query, serverID, stats.Stars, stats.LastCommit, stats.License, nullable(readme))
	if err != nil {
		return fmt.Errorf("failed to update server stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateServerContent persists generated descriptions
func (db *PostgreSQL) UpdateServerContent(ctx context.Context, serverID, shortDesc, longDesc string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	query := `
		UPDATE servers
		SET short_desc = $2, long_desc = $3, updated_at = now()
		WHERE id = $1
	`
	tag, err := db.pool.Exec(ctx, query, serverID, shortDesc, nullable(longDesc))
	if err != nil {
		return fmt.Errorf("failed to update server content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteServer removes a server; category links cascade
func (db *PostgreSQL) DeleteServer(ctx context.Context, serverID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	tag, err := db.pool.Exec(ctx, "DELETE FROM servers WHERE id = $1", serverID)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetServerByID retrieves a single server by id
func (db *PostgreSQL) GetServerByID(ctx context.Context, serverID string) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	query := "SELECT " + serverColumns + " FROM servers WHERE id = $1"
	return scanServer(db.pool.QueryRow(ctx, query, serverID))
}

// GetServerBySlug retrieves a single server by slug
func (db *PostgreSQL) GetServerBySlug(ctx context.Context, s string) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	query := "SELECT " + serverColumns + " FROM servers WHERE slug = $1"
	return scanServer(db.pool.QueryRow(ctx, query, s))
}

// GetServerByRepoURL retrieves a server whose repository or homepage URL matches
func (db *PostgreSQL) GetServerByRepoURL(ctx context.Context, repoURL string) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	query := "SELECT " + serverColumns + " FROM servers WHERE repo_url = $1 OR homepage_url = $1 LIMIT 1"
	return scanServer(db.pool.QueryRow(ctx, query, repoURL))
}

// SlugExists reports whether a slug is already taken
func (db *PostgreSQL) SlugExists(ctx context.Context, s string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	var exists bool
	err := db.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM servers WHERE slug = $1)", s).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// searchPredicate is the shared filter: a ranked full-text match on the
// precomputed search vector, unioned with a case-insensitive substring
// fallback over name and both descriptions.
const searchPredicate = `(
	search_vector @@ websearch_to_tsquery('english', $1)
	OR name ILIKE '%' || $1 || '%'
	OR short_desc ILIKE '%' || $1 || '%'
	OR COALESCE(long_desc, '') ILIKE '%' || $1 || '%'
)`

// orderByClause maps a requested sort to a deterministic ORDER BY. The id
// tie-break guarantees total ordering so pagination stays stable.
func orderByClause(query ServerQuery) string {
	column := "created_at"
	switch query.SortField {
	case SortName:
		column = "name"
	case SortStars:
		column = "stars"
	case SortLastCommit:
		column = "last_commit"
	case SortCreatedAt:
		column = "created_at"
	}

	direction := "DESC"
	if strings.EqualFold(query.SortDirection, DirectionAsc) {
		direction = "ASC"
	}

	clause := fmt.Sprintf("%s %s NULLS LAST", column, direction)
	if query.Search != "" {
		// Relevance only breaks ties within the requested sort
		clause += ", ts_rank(search_vector, websearch_to_tsquery('english', $1)) DESC"
	}
	return clause + ", id ASC"
}

// ListServers returns one page of servers matching the query
func (db *PostgreSQL) ListServers(ctx context.Context, query ServerQuery) ([]model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 12
	}

	var sql string
	var args []any
	if search := strings.TrimSpace(query.Search); search != "" {
		query.Search = search
		sql = fmt.Sprintf(
			"SELECT %s FROM servers WHERE %s ORDER BY %s LIMIT $2 OFFSET $3",
			serverColumns, searchPredicate, orderByClause(query),
		)
		args = []any{search, limit, query.Offset}
	} else {
		query.Search = ""
		sql = fmt.Sprintf(
			"SELECT %s FROM servers ORDER BY %s LIMIT $1 OFFSET $2",
			serverColumns, orderByClause(query),
		)
		args = []any{limit, query.Offset}
	}

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	var results []model.Server
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *server)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// CountServers counts servers matching the same filter predicate as ListServers
func (db *PostgreSQL) CountServers(ctx context.Context, search string) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	var count int
	var err error
	if search = strings.TrimSpace(search); search != "" {
		err = db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM servers WHERE "+searchPredicate, search).Scan(&count)
	} else {
		err = db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM servers").Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count servers: %w", err)
	}
	return count, nil
}

// ListCategories returns all categories ordered by sort order then name
func (db *PostgreSQL) ListCategories(ctx context.Context) ([]model.Category, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	rows, err := db.pool.Query(ctx,
		"SELECT id, name, slug, COALESCE(sort_order, 0) FROM categories ORDER BY sort_order, name")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var results []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// CreateCategories inserts categories by name, skipping names that already
// exist. Name is the natural key, so duplicates must never be created.
func (db *PostgreSQL) CreateCategories(ctx context.Context, names []string) ([]model.Category, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(names) == 0 {
		return nil, nil
	}

	var results []model.Category
	for _, name := range names {
		var c model.Category
		err := db.pool.QueryRow(ctx, `
			INSERT INTO categories (name, slug, sort_order)
			VALUES ($1, $2, 0)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name, slug, COALESCE(sort_order, 0)
		`, name, slug.Make(name)).Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to insert category %q: %w", name, err)
		}
		results = append(results, c)
	}
	return results, nil
}

// GetCategoriesByNames resolves category rows for the given names
func (db *PostgreSQL) GetCategoriesByNames(ctx context.Context, names []string) ([]model.Category, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(names) == 0 {
		return nil, nil
	}

	rows, err := db.pool.Query(ctx,
		"SELECT id, name, slug, COALESCE(sort_order, 0) FROM categories WHERE name = ANY($1)", names)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories by name: %w", err)
	}
	defer rows.Close()

	var results []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// ReplaceServerCategories clears all links for the server then inserts the new
// set in one transaction, so reassignment is idempotent and leaves no
// residual associations.
func (db *PostgreSQL) ReplaceServerCategories(ctx context.Context, serverID string, categoryIDs []string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		rollbackCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		_ = tx.Rollback(rollbackCtx)
	}()

	if _, err := tx.Exec(ctx, "DELETE FROM servers_to_categories WHERE server_id = $1", serverID); err != nil {
		return fmt.Errorf("failed to clear category links: %w", err)
	}

	for _, categoryID := range categoryIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO servers_to_categories (server_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, serverID, categoryID)
		if err != nil {
			return fmt.Errorf("failed to link category %s: %w", categoryID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit category links: %w", err)
	}
	return nil
}

// GetServerCategories returns the categories linked to a server
func (db *PostgreSQL) GetServerCategories(ctx context.Context, serverID string) ([]model.Category, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	rows, err := db.pool.Query(ctx, `
		SELECT c.id, c.name, c.slug, COALESCE(c.sort_order, 0)
		FROM categories c
		JOIN servers_to_categories sc ON sc.category_id = c.id
		WHERE sc.server_id = $1
		ORDER BY c.sort_order, c.name
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query server categories: %w", err)
	}
	defer rows.Close()

	var results []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// CreateSubmission inserts a pending submission
func (db *PostgreSQL) CreateSubmission(ctx context.Context, submission *model.Submission) (*model.Submission, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	status := submission.Status
	if status == "" {
		status = model.SubmissionStatusPending
	}

	var s model.Submission
	err := db.pool.QueryRow(ctx, `
		INSERT INTO submissions (name, email, server_name, repo_url, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, email, server_name, repo_url, COALESCE(description, ''), status, created_at
	`, submission.Name, submission.Email, submission.ServerName, submission.RepoURL,
		nullable(submission.Description), status,
	).Scan(&s.ID, &s.Name, &s.Email, &s.ServerName, &s.RepoURL, &s.Description, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert submission: %w", err)
	}
	return &s, nil
}

// SubmissionExistsByRepoURL reports whether a submission with this repo URL exists
func (db *PostgreSQL) SubmissionExistsByRepoURL(ctx context.Context, repoURL string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	var exists bool
	err := db.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM submissions WHERE repo_url = $1)", repoURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check submission: %w", err)
	}
	return exists, nil
}

// ListSubmissions returns submissions, optionally filtered by status
func (db *PostgreSQL) ListSubmissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `SELECT id, name, email, server_name, repo_url, COALESCE(description, ''), status, created_at
		FROM submissions`
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var results []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.ServerName, &s.RepoURL, &s.Description, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// GetSubmissionByID retrieves a single submission
func (db *PostgreSQL) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var s model.Submission
	err := db.pool.QueryRow(ctx, `
		SELECT id, name, email, server_name, repo_url, COALESCE(description, ''), status, created_at
		FROM submissions WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Email, &s.ServerName, &s.RepoURL, &s.Description, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &s, nil
}

// UpdateSubmissionStatus transitions a submission's review status
func (db *PostgreSQL) UpdateSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) (*model.Submission, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var s model.Submission
	err := db.pool.QueryRow(ctx, `
		UPDATE submissions SET status = $2 WHERE id = $1
		RETURNING id, name, email, server_name, repo_url, COALESCE(description, ''), status, created_at
	`, id, status).Scan(&s.ID, &s.Name, &s.Email, &s.ServerName, &s.RepoURL, &s.Description, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update submission status: %w", err)
	}
	return &s, nil
}

// Close closes the database connection
func (db *PostgreSQL) Close() error {
	db.pool.Close()
	return nil
}
