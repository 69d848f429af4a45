package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tenderwatch-engine/internal/crawl"
	"tenderwatch-engine/internal/domain"
	"tenderwatch-engine/internal/store"
)

// CronManager keeps one cron entry per active crawl task. Scheduled runs
// use the sequential crawl variant: one site at a time with an inter-site
// delay, results persisted and a crawl_runs row written per execution.
type CronManager struct {
	db     *sql.DB
	runner *crawl.Runner
	log    *zap.SugaredLogger
	cron   *cron.Cron

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

func NewCronManager(db *sql.DB, runner *crawl.Runner, log *zap.SugaredLogger) *CronManager {
	return &CronManager{
		db:      db,
		runner:  runner,
		log:     log,
		cron:    cron.New(),
		entries: make(map[int64]cron.EntryID),
	}
}

// Start loads active tasks and begins dispatching.
func (m *CronManager) Start(ctx context.Context) error {
	if err := m.Reload(ctx); err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

func (m *CronManager) Stop() {
	<-m.cron.Stop().Done()
}

// Reload re-reads the crawl_tasks table and reconciles cron entries with it.
func (m *CronManager) Reload(ctx context.Context) error {
	tasks, err := store.ListCrawlTasks(ctx, m.db)
	if err != nil {
		return fmt.Errorf("list crawl tasks: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, entryID := range m.entries {
		m.cron.Remove(entryID)
		delete(m.entries, id)
	}

	for _, t := range tasks {
		if t.Status != "active" {
			continue
		}
		if err := m.scheduleLocked(t); err != nil {
			m.log.Errorf("[scheduler] schedule task id=%d err=%v", t.ID, err)
		}
	}
	return nil
}

func (m *CronManager) scheduleLocked(t domain.CrawlTask) error {
	spec := fmt.Sprintf("@every %ds", t.IntervalSec)
	entryID, err := m.cron.AddFunc(spec, func() { m.runTask(t) })
	if err != nil {
		return err
	}
	m.entries[t.ID] = entryID
	m.log.Infof("[scheduler] task scheduled id=%d name=%q every=%ds", t.ID, t.Name, t.IntervalSec)
	return nil
}

func (m *CronManager) runTask(t domain.CrawlTask) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	m.log.Infof("[scheduler] task run id=%d query=%q", t.ID, t.Query)

	found, saved, skipped, err := m.runner.CrawlSequential(ctx, t.Query, t.Category)
	ended := time.Now()

	run := domain.CrawlRun{
		TaskID:       t.ID,
		Status:       "completed",
		StartedAt:    started,
		EndedAt:      &ended,
		ItemsFound:   found,
		ItemsAdded:   saved,
		ItemsSkipped: skipped,
	}
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		m.log.Warnf("[scheduler] task failed id=%d err=%v", t.ID, err)
	}

	if rerr := store.RecordCrawlRun(ctx, m.db, run); rerr != nil {
		m.log.Errorf("[scheduler] record run id=%d err=%v", t.ID, rerr)
	}
}
