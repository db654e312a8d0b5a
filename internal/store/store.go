package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nitesh/news_service/pkg/models"
)

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 50
	maxLimit     = 200
)

type PgStore struct {
	db *sqlx.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres")}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS sources(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  url TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT 'General',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- no foreign key to sources: deleting a source keeps its articles
CREATE TABLE IF NOT EXISTS articles(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  summary TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  source_id TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  source_name TEXT NOT NULL DEFAULT '',
  published_at TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id);
`
	_, err := db.ExecContext(ctx, initSQL)
	return err
}

const upsertArticleSQL = `
INSERT INTO articles (id, title, summary, content, url, source_id, source, source_name, published_at, category)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
 title=EXCLUDED.title,
 summary=EXCLUDED.summary,
 content=EXCLUDED.content,
 url=EXCLUDED.url,
 source_id=EXCLUDED.source_id,
 source=EXCLUDED.source,
 source_name=EXCLUDED.source_name,
 published_at=EXCLUDED.published_at,
 category=EXCLUDED.category,
 updated_at=now();
`

const articleColumns = `id,title,summary,content,url,source_id,source_name,published_at,category`

// UpsertArticles merges the batch in one transaction. Rows are written in
// order, so a repeated id inside the batch ends with the last value.
func (p *PgStore) UpsertArticles(ctx context.Context, articles []models.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}

	for _, a := range articles {
		_, err := tx.ExecContext(ctx, upsertArticleSQL,
			a.ID,
			a.Title,
			a.Summary,
			a.Content,
			a.URL,
			a.SourceID,
			a.SourceName, // source
			a.SourceName, // source_name
			a.PublishedAt,
			a.Category,
		)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert article id=%s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return len(articles), nil
}

func (p *PgStore) Latest(ctx context.Context, limit int) ([]models.Article, error) {
	rows := []models.Article{}
	query := `SELECT ` + articleColumns + `
FROM articles
ORDER BY published_at DESC, id
LIMIT $1`
	err := p.db.SelectContext(ctx, &rows, query, clampLimit(limit))
	return rows, err
}

func (p *PgStore) FindByCategory(ctx context.Context, category string, limit int) ([]models.Article, error) {
	rows := []models.Article{}
	query := `SELECT ` + articleColumns + `
FROM articles
WHERE category = $1
ORDER BY published_at DESC, id
LIMIT $2`
	err := p.db.SelectContext(ctx, &rows, query, category, clampLimit(limit))
	return rows, err
}

// likeEscaper makes the query match literally; backslash is the default
// ILIKE escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches q as a literal substring of title or summary.
func (p *PgStore) Search(ctx context.Context, q string, limit int) ([]models.Article, error) {
	like := "%" + likeEscaper.Replace(q) + "%"
	rows := []models.Article{}
	query := `SELECT ` + articleColumns + `
FROM articles
WHERE title ILIKE $1 OR summary ILIKE $1
ORDER BY published_at DESC, id
LIMIT $2`
	err := p.db.SelectContext(ctx, &rows, query, like, clampLimit(limit))
	return rows, err
}

func (p *PgStore) GetArticle(ctx context.Context, id string) (models.Article, error) {
	var a models.Article
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	if err := p.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Article{}, ErrNotFound
		}
		return models.Article{}, err
	}
	return a, nil
}

func (p *PgStore) ListSources(ctx context.Context) ([]models.Source, error) {
	rows := []models.Source{}
	err := p.db.SelectContext(ctx, &rows, `SELECT id,name,url,category,created_at FROM sources ORDER BY created_at, id`)
	return rows, err
}

func (p *PgStore) GetSource(ctx context.Context, id string) (models.Source, error) {
	var s models.Source
	err := p.db.GetContext(ctx, &s, `SELECT id,name,url,category,created_at FROM sources WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Source{}, ErrNotFound
	}
	return s, err
}

func (p *PgStore) AddSource(ctx context.Context, name, url, category string) (models.Source, error) {
	s := models.Source{ID: uuid.NewString(), Name: name, URL: url, Category: category}
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO sources (id, name, url, category) VALUES ($1,$2,$3,$4) RETURNING created_at`,
		s.ID, s.Name, s.URL, s.Category,
	).Scan(&s.CreatedAt)
	if err != nil {
		return models.Source{}, fmt.Errorf("insert source: %w", err)
	}
	return s, nil
}

func (p *PgStore) UpdateSourceCategory(ctx context.Context, id, category string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE sources SET category = $1 WHERE id = $2`, category, id)
	return affectedOne(res, err)
}

func (p *PgStore) DeleteSource(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
