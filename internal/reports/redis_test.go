package reports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/news_service/internal/store"
	"github.com/nitesh/news_service/pkg/models"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

func report(id string, failed int) models.SweepReport {
	return models.SweepReport{
		ID:        id,
		StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Attempted: 2,
		Succeeded: 2 - failed,
		Failed:    failed,
		Results: []models.SourceResult{
			{SourceID: "s1", SourceName: "A", Count: 3},
			{SourceID: "s2", SourceName: "B", Error: "fetch feed: boom"},
		},
	}
}

func TestLatestReportEmpty(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	_, err := s.LatestReport(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveAndLoadLatest(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.SaveReport(ctx, report("r1", 0)))
	require.NoError(t, s.SaveReport(ctx, report("r2", 1)))

	got, err := s.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", got.ID)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Results, 2)
	assert.False(t, got.Results[1].OK())

	assert.Equal(t, time.Hour, mr.TTL(reportKey("r1")))
	assert.Equal(t, time.Hour, mr.TTL(latestKey))
}

func TestRecent(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveReport(ctx, report(id, 0)))
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestRecentClampsToHistory(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	for i := 0; i < historyLen+5; i++ {
		require.NoError(t, s.SaveReport(ctx, report(fmt.Sprintf("r%d", i), 0)))
	}

	for _, limit := range []int{0, historyLen, historyLen + 1, 200} {
		got, err := s.Recent(ctx, limit)
		require.NoError(t, err)
		assert.Len(t, got, historyLen, "limit=%d", limit)
	}

	got, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, fmt.Sprintf("r%d", historyLen+4), got[0].ID)
}

func TestReportsExpire(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, s.SaveReport(ctx, report("old", 0)))

	mr.FastForward(2 * time.Minute)

	_, err := s.LatestReport(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveReportRedisDown(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	mr.Close()
	assert.Error(t, s.SaveReport(context.Background(), report("x", 0)))
}
