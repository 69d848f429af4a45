package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenderwatch-engine/internal/crawl"
	"tenderwatch-engine/internal/domain"
	"tenderwatch-engine/internal/events"
	"tenderwatch-engine/internal/progress"
	"tenderwatch-engine/internal/store"
)

func newCronTestManager(t *testing.T) (*CronManager, *store.Service) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "cron.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	log := zap.NewNop().Sugar()
	svc := &store.Service{DB: db.Pool, Log: log}

	fetcher := crawl.NewFetcher(crawl.FetcherConfig{
		UserAgent:      "test",
		SiteBudget:     time.Second,
		RequestTimeout: 500 * time.Millisecond,
	}, log)
	runner := crawl.NewRunner(crawl.RunnerConfig{Concurrency: 1},
		fetcher, svc, svc, progress.NewStore(), events.NewHub(), log)

	return NewCronManager(db.Pool, runner, log), svc
}

func TestReloadSchedulesOnlyActiveTasks(t *testing.T) {
	t.Parallel()
	m, svc := newCronTestManager(t)
	ctx := context.Background()

	activeID, err := store.CreateCrawlTask(ctx, svc.DB, domain.CrawlTask{
		Name: "active", Query: "公告", Status: "active", IntervalSec: 3600,
	})
	require.NoError(t, err)
	_, err = store.CreateCrawlTask(ctx, svc.DB, domain.CrawlTask{
		Name: "stopped", Query: "公告",
	})
	require.NoError(t, err)

	require.NoError(t, m.Reload(ctx))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.entries, 1)
	_, ok := m.entries[activeID]
	assert.True(t, ok)
}

func TestReloadDropsDeactivatedTasks(t *testing.T) {
	t.Parallel()
	m, svc := newCronTestManager(t)
	ctx := context.Background()

	id, err := store.CreateCrawlTask(ctx, svc.DB, domain.CrawlTask{
		Name: "t", Query: "公告", Status: "active", IntervalSec: 3600,
	})
	require.NoError(t, err)

	require.NoError(t, m.Reload(ctx))
	require.NoError(t, store.SetCrawlTaskStatus(ctx, svc.DB, id, "stopped"))
	require.NoError(t, m.Reload(ctx))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.entries)
}

func TestScheduledRunRecordsHistory(t *testing.T) {
	t.Parallel()
	m, svc := newCronTestManager(t)
	ctx := context.Background()

	// No active websites, so the run completes quickly with zero items.
	id, err := store.CreateCrawlTask(ctx, svc.DB, domain.CrawlTask{
		Name: "t", Query: "公告", Status: "active", IntervalSec: 1,
	})
	require.NoError(t, err)

	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	require.Eventually(t, func() bool {
		runs, rerr := store.ListCrawlRuns(ctx, svc.DB, id, 10)
		return rerr == nil && len(runs) >= 1
	}, 5*time.Second, 50*time.Millisecond)

	runs, err := store.ListCrawlRuns(ctx, svc.DB, id, 10)
	require.NoError(t, err)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 0, runs[0].ItemsFound)
	assert.NotNil(t, runs[0].EndedAt)
}
