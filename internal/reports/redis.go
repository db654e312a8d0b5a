package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nitesh/news_service/internal/store"
	"github.com/nitesh/news_service/pkg/models"
)

const (
	keyPrefix  = "news:sweeps:"
	latestKey  = keyPrefix + "latest"
	historyKey = keyPrefix + "history"
	historyLen = 50
)

// RedisStore keeps recent sweep reports in Redis with an expiry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func reportKey(id string) string { return keyPrefix + id }

func (s *RedisStore) SaveReport(ctx context.Context, r models.SweepReport) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, reportKey(r.ID), b, s.ttl)
	pipe.Set(ctx, latestKey, r.ID, s.ttl)
	pipe.LPush(ctx, historyKey, r.ID)
	pipe.LTrim(ctx, historyKey, 0, historyLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisStore) LatestReport(ctx context.Context) (models.SweepReport, error) {
	id, err := s.rdb.Get(ctx, latestKey).Result()
	if errors.Is(err, redis.Nil) {
		return models.SweepReport{}, store.ErrNotFound
	}
	if err != nil {
		return models.SweepReport{}, err
	}
	return s.Report(ctx, id)
}

func (s *RedisStore) Report(ctx context.Context, id string) (models.SweepReport, error) {
	raw, err := s.rdb.Get(ctx, reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.SweepReport{}, store.ErrNotFound
	}
	if err != nil {
		return models.SweepReport{}, err
	}
	var r models.SweepReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.SweepReport{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return r, nil
}

// Recent returns up to limit reports, newest first, skipping expired ones.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]models.SweepReport, error) {
	if limit <= 0 || limit > historyLen {
		limit = historyLen
	}
	ids, err := s.rdb.LRange(ctx, historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.SweepReport, 0, len(ids))
	for _, id := range ids {
		r, err := s.Report(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
