package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpserverslist/registry/pkg/model"
	"github.com/mcpserverslist/registry/pkg/slug"
)

// MemoryDB is an in-memory implementation of the Database interface.
// Search matching approximates the SQL predicate with a case-insensitive
// substring match over name and both descriptions.
type MemoryDB struct {
	mu          sync.RWMutex
	servers     map[string]*model.Server
	categories  map[string]*model.Category  // keyed by id
	links       map[string]map[string]bool  // server id -> category id set
	submissions map[string]*model.Submission
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		servers:     make(map[string]*model.Server),
		categories:  make(map[string]*model.Category),
		links:       make(map[string]map[string]bool),
		submissions: make(map[string]*model.Submission),
	}
}

func (db *MemoryDB) CreateServer(ctx context.Context, server *model.Server) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.servers {
		if existing.Slug == server.Slug {
			return nil, ErrAlreadyExists
		}
	}

	created := *server
	created.ID = uuid.New().String()
	now := time.Now()
	created.CreatedAt = now
	created.UpdatedAt = now
	db.servers[created.ID] = &created

	result := created
	return &result, nil
}

func (db *MemoryDB) UpdateServer(ctx context.Context, server *model.Server) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.servers[server.ID]
	if !ok {
		return nil, ErrNotFound
	}

	existing.Name = server.Name
	existing.ShortDesc = server.ShortDesc
	existing.LongDesc = server.LongDesc
	existing.HomepageURL = server.HomepageURL
	existing.RepoURL = server.RepoURL
	existing.DocsURL = server.DocsURL
	existing.LogoURL = server.LogoURL
	existing.License = server.License
	existing.UpdatedAt = time.Now()

	result := *existing
	return &result, nil
}

func (db *MemoryDB) UpdateServerStats(ctx context.Context, serverID string, stats model.RepoStats, readme string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	server, ok := db.servers[serverID]
	if !ok {
		return ErrNotFound
	}

	server.Stars = stats.Stars
	server.LastCommit = stats.LastCommit
	server.License = stats.License
	if readme != "" {
		server.ReadmeContent = readme
	}
	server.UpdatedAt = time.Now()
	return nil
}

func (db *MemoryDB) UpdateServerContent(ctx context.Context, serverID, shortDesc, longDesc string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	server, ok := db.servers[serverID]
	if !ok {
		return ErrNotFound
	}

	server.ShortDesc = shortDesc
	server.LongDesc = longDesc
	server.UpdatedAt = time.Now()
	return nil
}

func (db *MemoryDB) DeleteServer(ctx context.Context, serverID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.servers[serverID]; !ok {
		return ErrNotFound
	}
	delete(db.servers, serverID)
	delete(db.links, serverID)
	return nil
}

func (db *MemoryDB) GetServerByID(ctx context.Context, serverID string) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	server, ok := db.servers[serverID]
	if !ok {
		return nil, ErrNotFound
	}
	result := *server
	return &result, nil
}

func (db *MemoryDB) GetServerBySlug(ctx context.Context, s string) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, server := range db.servers {
		if server.Slug == s {
			result := *server
			return &result, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDB) GetServerByRepoURL(ctx context.Context, repoURL string) (*model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, server := range db.servers {
		if server.RepoURL == repoURL || server.HomepageURL == repoURL {
			result := *server
			return &result, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDB) SlugExists(ctx context.Context, s string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, server := range db.servers {
		if server.Slug == s {
			return true, nil
		}
	}
	return false, nil
}

func matchesSearch(server *model.Server, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(server.Name), search) ||
		strings.Contains(strings.ToLower(server.ShortDesc), search) ||
		strings.Contains(strings.ToLower(server.LongDesc), search)
}

func (db *MemoryDB) filterAndSort(query ServerQuery) []*model.Server {
	var matched []*model.Server
	search := strings.TrimSpace(query.Search)
	for _, server := range db.servers {
		if search == "" || matchesSearch(server, search) {
			matched = append(matched, server)
		}
	}

	desc := !strings.EqualFold(query.SortDirection, DirectionAsc)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch query.SortField {
		case SortName:
			less, equal = a.Name < b.Name, a.Name == b.Name
		case SortStars:
			less, equal = a.Stars < b.Stars, a.Stars == b.Stars
		case SortLastCommit:
			at, bt := timeOrZero(a.LastCommit), timeOrZero(b.LastCommit)
			less, equal = at.Before(bt), at.Equal(bt)
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			// Deterministic tie-break matching the SQL implementation
			return a.ID < b.ID
		}
		if desc {
			return !less
		}
		return less
	})

	return matched
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (db *MemoryDB) ListServers(ctx context.Context, query ServerQuery) ([]model.Server, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if query.Limit <= 0 {
		query.Limit = 12
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	matched := db.filterAndSort(query)

	start := query.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+query.Limit, len(matched))

	results := make([]model.Server, 0, end-start)
	for _, server := range matched[start:end] {
		results = append(results, *server)
	}
	return results, nil
}

func (db *MemoryDB) CountServers(ctx context.Context, search string) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	search = strings.TrimSpace(search)
	for _, server := range db.servers {
		if search == "" || matchesSearch(server, search) {
			count++
		}
	}
	return count, nil
}

func (db *MemoryDB) ListCategories(ctx context.Context) ([]model.Category, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	results := make([]model.Category, 0, len(db.categories))
	for _, c := range db.categories {
		results = append(results, *c)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].SortOrder != results[j].SortOrder {
			return results[i].SortOrder < results[j].SortOrder
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

func (db *MemoryDB) CreateCategories(ctx context.Context, names []string) ([]model.Category, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	var results []model.Category
	for _, name := range names {
		if existing := db.findCategoryByName(name); existing != nil {
			results = append(results, *existing)
			continue
		}
		c := &model.Category{
			ID:        uuid.New().String(),
			Name:      name,
			Slug:      slug.Make(name),
			SortOrder: 0,
		}
		db.categories[c.ID] = c
		results = append(results, *c)
	}
	return results, nil
}

// findCategoryByName must be called with the lock held
func (db *MemoryDB) findCategoryByName(name string) *model.Category {
	for _, c := range db.categories {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (db *MemoryDB) GetCategoriesByNames(ctx context.Context, names []string) ([]model.Category, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var results []model.Category
	for _, name := range names {
		if c := db.findCategoryByName(name); c != nil {
			results = append(results, *c)
		}
	}
	return results, nil
}

func (db *MemoryDB) ReplaceServerCategories(ctx context.Context, serverID string, categoryIDs []string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	linkSet := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		linkSet[id] = true
	}
	db.links[serverID] = linkSet
	return nil
}

func (db *MemoryDB) GetServerCategories(ctx context.Context, serverID string) ([]model.Category, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var results []model.Category
	for categoryID := range db.links[serverID] {
		if c, ok := db.categories[categoryID]; ok {
			results = append(results, *c)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].SortOrder != results[j].SortOrder {
			return results[i].SortOrder < results[j].SortOrder
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

func (db *MemoryDB) CreateSubmission(ctx context.Context, submission *model.Submission) (*model.Submission, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	created := *submission
	created.ID = uuid.New().String()
	if created.Status == "" {
		created.Status = model.SubmissionStatusPending
	}
	created.CreatedAt = time.Now()
	db.submissions[created.ID] = &created

	result := created
	return &result, nil
}

func (db *MemoryDB) SubmissionExistsByRepoURL(ctx context.Context, repoURL string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, s := range db.submissions {
		if s.RepoURL == repoURL {
			return true, nil
		}
	}
	return false, nil
}

func (db *MemoryDB) ListSubmissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var results []model.Submission
	for _, s := range db.submissions {
		if status == "" || s.Status == status {
			results = append(results, *s)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

func (db *MemoryDB) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	s, ok := db.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *s
	return &result, nil
}

func (db *MemoryDB) UpdateSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) (*model.Submission, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = status
	result := *s
	return &result, nil
}

func (db *MemoryDB) Close() error {
	return nil
}
