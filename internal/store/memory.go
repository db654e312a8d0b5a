package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nitesh/news_service/pkg/models"
)

// MemoryStore keeps articles and sources in process memory. It honours the
// same contract as PgStore and is used for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]models.Article
	sources  map[string]models.Source
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]models.Article),
		sources:  make(map[string]models.Source),
		now:      time.Now,
	}
}

// UpsertArticles applies the batch under one lock, so readers see all of it
// or none of it.
func (m *MemoryStore) UpsertArticles(_ context.Context, articles []models.Article) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range articles {
		m.articles[a.ID] = a
	}
	return len(articles), nil
}

func (m *MemoryStore) Latest(_ context.Context, limit int) ([]models.Article, error) {
	return m.filter(func(models.Article) bool { return true }, limit), nil
}

func (m *MemoryStore) FindByCategory(_ context.Context, category string, limit int) ([]models.Article, error) {
	return m.filter(func(a models.Article) bool { return a.Category == category }, limit), nil
}

func (m *MemoryStore) Search(_ context.Context, q string, limit int) ([]models.Article, error) {
	q = strings.ToLower(q)
	return m.filter(func(a models.Article) bool {
		return strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Summary), q)
	}, limit), nil
}

func (m *MemoryStore) GetArticle(_ context.Context, id string) (models.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.articles[id]
	if !ok {
		return models.Article{}, ErrNotFound
	}
	return a, nil
}

// ArticleCount returns the number of stored articles.
func (m *MemoryStore) ArticleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.articles)
}

func (m *MemoryStore) filter(keep func(models.Article) bool, limit int) []models.Article {
	m.mu.RLock()
	out := []models.Article{}
	for _, a := range m.articles {
		if keep(a) {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishedAt != out[j].PublishedAt {
			return out[i].PublishedAt > out[j].PublishedAt
		}
		return out[i].ID < out[j].ID
	})
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out
}

func (m *MemoryStore) ListSources(_ context.Context) ([]models.Source, error) {
	m.mu.RLock()
	out := make([]models.Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetSource(_ context.Context, id string) (models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[id]
	if !ok {
		return models.Source{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) AddSource(_ context.Context, name, url, category string) (models.Source, error) {
	s := models.Source{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       url,
		Category:  category,
		CreatedAt: m.now().UTC(),
	}
	m.mu.Lock()
	m.sources[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// PutSource stores a source with a caller-chosen id, replacing any existing one.
func (m *MemoryStore) PutSource(s models.Source) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now().UTC()
	}
	m.mu.Lock()
	m.sources[s.ID] = s
	m.mu.Unlock()
}

func (m *MemoryStore) UpdateSourceCategory(_ context.Context, id, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[id]
	if !ok {
		return ErrNotFound
	}
	s.Category = category
	m.sources[id] = s
	return nil
}

func (m *MemoryStore) DeleteSource(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return ErrNotFound
	}
	delete(m.sources, id)
	return nil
}
