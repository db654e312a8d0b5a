package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nitesh/news_service/internal/metrics"
	"github.com/nitesh/news_service/pkg/models"
)

// ArticleStore persists articles. UpsertArticles must apply the whole batch
// or nothing, merging into existing records with the same id.
type ArticleStore interface {
	UpsertArticles(ctx context.Context, articles []models.Article) (int, error)
	Latest(ctx context.Context, limit int) ([]models.Article, error)
	FindByCategory(ctx context.Context, category string, limit int) ([]models.Article, error)
	Search(ctx context.Context, q string, limit int) ([]models.Article, error)
	GetArticle(ctx context.Context, id string) (models.Article, error)
}

// SourceRegistry holds the user-registered feeds.
type SourceRegistry interface {
	ListSources(ctx context.Context) ([]models.Source, error)
	GetSource(ctx context.Context, id string) (models.Source, error)
	AddSource(ctx context.Context, name, url, category string) (models.Source, error)
	UpdateSourceCategory(ctx context.Context, id, category string) error
	DeleteSource(ctx context.Context, id string) error
}

type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]models.RawItem, error)
}

// ReportStore keeps sweep reports for later inspection.
type ReportStore interface {
	SaveReport(ctx context.Context, r models.SweepReport) error
	LatestReport(ctx context.Context) (models.SweepReport, error)
	Recent(ctx context.Context, limit int) ([]models.SweepReport, error)
}

type Service struct {
	articles ArticleStore
	sources  SourceRegistry
	fetcher  FeedFetcher
	reports  ReportStore
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithReports enables saving sweep reports.
func WithReports(r ReportStore) Option {
	return func(s *Service) { s.reports = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the wall clock used for default publish times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(articles ArticleStore, sources SourceRegistry, fetcher FeedFetcher, opts ...Option) *Service {
	s := &Service{
		articles: articles,
		sources:  sources,
		fetcher:  fetcher,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FetchRequest identifies the source a feed is ingested for.
type FetchRequest struct {
	URL      string
	Name     string
	Category string
	SourceID string
}

// FetchAndStore runs fetch, normalize and one batch upsert for a single feed.
func (s *Service) FetchAndStore(ctx context.Context, req FetchRequest) ([]models.Article, error) {
	items, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	src := models.Source{ID: req.SourceID, Name: req.Name, URL: req.URL, Category: req.Category}
	articles := NormalizeAll(items, src, s.now())

	if _, err := s.articles.UpsertArticles(ctx, articles); err != nil {
		return nil, &WriteError{Count: len(articles), Err: err}
	}
	return articles, nil
}

// FetchRSS is the on-demand entry. Empty optional inputs take their defaults.
func (s *Service) FetchRSS(ctx context.Context, feedURL, name, category, sourceID string) (int, error) {
	if feedURL == "" {
		return 0, &ValidationError{Field: "url", Message: "missing url"}
	}
	req := FetchRequest{
		URL:      feedURL,
		Name:     orDefault(name, DefaultSourceName),
		Category: orDefault(category, DefaultCategory),
		SourceID: orDefault(sourceID, DeriveID(feedURL)),
	}
	return s.run(ctx, "http", req)
}

// CallableRequest is the payload of the callable entry.
type CallableRequest struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Category string `json:"category"`
	SourceID string `json:"sourceId"`
}

// FetchCallable is the RPC entry. It rejects a missing url before any I/O.
func (s *Service) FetchCallable(ctx context.Context, in CallableRequest) (int, error) {
	if in.URL == "" {
		return 0, &ValidationError{Field: "url", Message: "Missing URL"}
	}
	req := FetchRequest{
		URL:      in.URL,
		Name:     orDefault(in.Name, DefaultCallableSourceName),
		Category: orDefault(in.Category, DefaultCategory),
		SourceID: orDefault(in.SourceID, DeriveID(in.URL)),
	}
	return s.run(ctx, "callable", req)
}

func (s *Service) run(ctx context.Context, entry string, req FetchRequest) (int, error) {
	articles, err := s.FetchAndStore(ctx, req)
	metrics.RecordIngest(entry, len(articles), err)
	if err != nil {
		metrics.RecordError(errorType(err))
		s.logger.ErrorContext(ctx, "fetch rss failed",
			"entry", entry, "url", req.URL, "source_id", req.SourceID, "error", err)
		return 0, err
	}
	s.logger.InfoContext(ctx, "fetch rss completed",
		"entry", entry, "url", req.URL, "source_id", req.SourceID, "count", len(articles))
	return len(articles), nil
}

// Latest returns the newest articles first.
func (s *Service) Latest(ctx context.Context, limit int) ([]models.Article, error) {
	return s.articles.Latest(ctx, limit)
}

func (s *Service) Category(ctx context.Context, category string, limit int) ([]models.Article, error) {
	if category == "" {
		return nil, &ValidationError{Field: "category", Message: "missing category parameter"}
	}
	return s.articles.FindByCategory(ctx, category, limit)
}

func (s *Service) Search(ctx context.Context, q string, limit int) ([]models.Article, error) {
	return s.articles.Search(ctx, q, limit)
}

func (s *Service) Article(ctx context.Context, id string) (models.Article, error) {
	return s.articles.GetArticle(ctx, id)
}

func (s *Service) Sources(ctx context.Context) ([]models.Source, error) {
	return s.sources.ListSources(ctx)
}

// AddSource registers a feed and immediately ingests it once. A failed
// initial fetch is logged only; the next sweep picks the source up.
func (s *Service) AddSource(ctx context.Context, name, feedURL, category string) (models.Source, error) {
	name = strings.TrimSpace(name)
	feedURL = strings.TrimSpace(feedURL)
	if name == "" {
		return models.Source{}, &ValidationError{Field: "name", Message: "name is required"}
	}
	if err := validateSourceURL(feedURL); err != nil {
		return models.Source{}, err
	}
	category = orDefault(strings.TrimSpace(category), DefaultCategory)

	src, err := s.sources.AddSource(ctx, name, feedURL, category)
	if err != nil {
		return models.Source{}, err
	}
	s.logger.InfoContext(ctx, "source added", "source_id", src.ID, "name", src.Name, "url", src.URL)

	if _, err := s.run(ctx, "initial", FetchRequest{
		URL:      src.URL,
		Name:     src.Name,
		Category: src.Category,
		SourceID: src.ID,
	}); err != nil {
		s.logger.WarnContext(ctx, "initial fetch failed, source will be refreshed by the next sweep",
			"source_id", src.ID, "error", err)
	}
	return src, nil
}

// UpdateSourceCategory changes the category used for future ingestion only.
func (s *Service) UpdateSourceCategory(ctx context.Context, id, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return &ValidationError{Field: "category", Message: "category is required"}
	}
	return s.sources.UpdateSourceCategory(ctx, id, category)
}

// DeleteSource removes the source. Its articles stay in the store.
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	if err := s.sources.DeleteSource(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "source deleted", "source_id", id)
	return nil
}

// LatestReport returns the most recent sweep report, if reports are enabled.
func (s *Service) LatestReport(ctx context.Context) (models.SweepReport, error) {
	if s.reports == nil {
		return models.SweepReport{}, ErrNotFound
	}
	return s.reports.LatestReport(ctx)
}

// RecentReports lists saved sweep reports, newest first.
func (s *Service) RecentReports(ctx context.Context, limit int) ([]models.SweepReport, error) {
	if s.reports == nil {
		return []models.SweepReport{}, nil
	}
	return s.reports.Recent(ctx, limit)
}

func validateSourceURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "url", Message: "url must be an absolute http(s) URL"}
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
