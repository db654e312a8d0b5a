package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nitesh/news_service/internal/metrics"
	"github.com/nitesh/news_service/pkg/models"
)

// Sweep refreshes every registered source once, running at most workers
// sources at a time. Each source runs in its own task that always reports a
// result and never returns an error, so one failure cannot stop or cancel the
// others. A failed registry read yields a report with Error set.
func (s *Service) Sweep(ctx context.Context, workers int) models.SweepReport {
	if workers <= 0 {
		workers = 1
	}
	report := models.SweepReport{ID: uuid.NewString(), StartedAt: s.now()}
	start := time.Now()

	sources, err := s.sources.ListSources(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep could not list sources", "error", err)
		report.Error = err.Error()
		return s.finishSweep(ctx, report, start)
	}

	results := make([]models.SourceResult, len(sources))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = s.refreshSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	report.Results = results
	for _, r := range results {
		report.Attempted++
		if r.OK() {
			report.Succeeded++
			report.Articles += r.Count
		} else {
			report.Failed++
		}
	}
	return s.finishSweep(ctx, report, start)
}

func (s *Service) refreshSource(ctx context.Context, src models.Source) (res models.SourceResult) {
	res = models.SourceResult{SourceID: src.ID, SourceName: src.Name, URL: src.URL}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Error = fmt.Sprintf("panic: %v", p)
			s.logger.ErrorContext(ctx, "source refresh panicked", "source_id", src.ID, "panic", p)
		}
		res.DurationMs = time.Since(start).Milliseconds()
	}()

	articles, err := s.FetchAndStore(ctx, FetchRequest{
		URL:      src.URL,
		Name:     src.Name,
		Category: src.Category,
		SourceID: src.ID,
	})
	metrics.RecordIngest("sweep", len(articles), err)
	if err != nil {
		metrics.RecordError(errorType(err))
		s.logger.ErrorContext(ctx, "failed to refresh source",
			"source_id", src.ID, "name", src.Name, "url", src.URL, "error", err)
		res.Error = err.Error()
		return res
	}

	res.Count = len(articles)
	s.logger.InfoContext(ctx, "refreshed source",
		"source_id", src.ID, "name", src.Name, "count", res.Count)
	return res
}

func (s *Service) finishSweep(ctx context.Context, report models.SweepReport, start time.Time) models.SweepReport {
	report.FinishedAt = s.now()
	elapsed := time.Since(start)
	metrics.RecordSweep(elapsed.Seconds(), report.Succeeded, report.Failed)

	s.logger.InfoContext(ctx, "sweep finished",
		"sweep_id", report.ID,
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"articles", report.Articles,
		"duration_ms", elapsed.Milliseconds(),
	)

	if s.reports != nil {
		if err := s.reports.SaveReport(ctx, report); err != nil {
			s.logger.WarnContext(ctx, "could not save sweep report", "sweep_id", report.ID, "error", err)
		}
	}
	return report
}
