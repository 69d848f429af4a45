package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tenderwatch-engine/internal/domain"
	"tenderwatch-engine/internal/events"
	"tenderwatch-engine/internal/progress"
)

// defaultSecondsPerSite seeds the ETA before the first site completes.
const defaultSecondsPerSite = 3

// SiteLister provides the active crawl targets. The registry itself is
// owned by the persistence layer.
type SiteLister interface {
	ListActiveWebsites(ctx context.Context) ([]domain.Website, error)
}

// TenderSaver performs fingerprint dedup and persists new items. One item's
// failure must not abort the rest; the error return is for store-level
// unavailability only.
type TenderSaver interface {
	SaveTenders(ctx context.Context, items []domain.CandidateItem) (saved, skipped int, err error)
}

// Runner executes crawl batches: concurrently for interactive searches,
// sequentially with an inter-site delay for scheduled tasks.
type Runner struct {
	fetcher  *Fetcher
	sites    SiteLister
	saver    TenderSaver
	progress *progress.Store
	hub      *events.Hub
	log      *zap.SugaredLogger

	concurrency    int
	interSiteDelay time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

type RunnerConfig struct {
	Concurrency    int
	InterSiteDelay time.Duration
}

func NewRunner(cfg RunnerConfig, fetcher *Fetcher, sites SiteLister, saver TenderSaver,
	prog *progress.Store, hub *events.Hub, log *zap.SugaredLogger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Runner{
		fetcher:        fetcher,
		sites:          sites,
		saver:          saver,
		progress:       prog,
		hub:            hub,
		log:            log,
		concurrency:    cfg.Concurrency,
		interSiteDelay: cfg.InterSiteDelay,
		cancels:        make(map[string]context.CancelFunc),
	}
}

// StartBatch launches a batch in the background and returns immediately.
// The caller supplies the task identifier and polls the progress store.
// onDone, if non-nil, is invoked once with the aggregate item count after
// the batch reaches a terminal state.
func (r *Runner) StartBatch(taskID, query, category string, onDone func(found int)) {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.cancels[taskID] = cancel
	r.mu.Unlock()

	r.progress.Put(taskID, progress.Record{
		Status:    progress.StatusPending,
		Query:     query,
		Category:  category,
		Message:   "starting crawl",
		StartTime: time.Now(),
		Results:   []domain.CandidateItem{},
	})

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.cancels, taskID)
			r.mu.Unlock()
		}()
		found := r.runBatch(ctx, taskID, query, category)
		if onDone != nil {
			onDone(found)
		}
	}()
}

// Cancel marks a running task for cancellation. In-flight site fetches
// observe it at their next per-URL attempt. Returns false for unknown or
// already-terminal tasks.
func (r *Runner) Cancel(taskID string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[taskID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (r *Runner) runBatch(ctx context.Context, taskID, query, category string) (found int) {
	websites, err := r.sites.ListActiveWebsites(ctx)
	if err != nil {
		r.fail(taskID, fmt.Errorf("list active websites: %w", err))
		return 0
	}

	if len(websites) == 0 {
		// absence of targets is a valid empty result, not a failure
		r.progress.Update(taskID, func(rec *progress.Record) {
			rec.Status = progress.StatusCompleted
			rec.Message = "no active websites to crawl"
			rec.Percentage = 100
		})
		return 0
	}

	start := time.Now()
	sitesProgress := make([]progress.SiteProgress, len(websites))
	for i, w := range websites {
		sitesProgress[i] = progress.SiteProgress{
			Name:   w.Name,
			URL:    w.BaseURL,
			Status: progress.StatusPending,
		}
	}

	r.progress.Update(taskID, func(rec *progress.Record) {
		rec.Status = progress.StatusRunning
		rec.Total = len(websites)
		rec.Websites = sitesProgress
		rec.Message = fmt.Sprintf("crawling %d websites", len(websites))
		rec.EstimatedRemaining = len(websites) * defaultSecondsPerSite
	})
	r.hub.Publish(events.MakeEvent("", "crawl_started", 1, map[string]any{"task_id": taskID}))

	var (
		aggMu   sync.Mutex
		results []domain.CandidateItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for idx, site := range websites {
		idx, site := idx, site
		g.Go(func() error {
			siteStart := time.Now()
			r.progress.Update(taskID, func(rec *progress.Record) {
				rec.Websites[idx].Status = progress.StatusRunning
				rec.Websites[idx].StartedAt = siteStart.Format(time.RFC3339)
				rec.CurrentWebsite = &rec.Websites[idx]
			})

			items, siteErr := r.fetchSiteSafe(gctx, site, query, category)

			aggMu.Lock()
			results = append(results, items...)
			aggMu.Unlock()

			r.progress.Update(taskID, func(rec *progress.Record) {
				sp := &rec.Websites[idx]
				sp.CompletedAt = time.Now().Format(time.RFC3339)
				sp.DurationSec = round1(time.Since(siteStart).Seconds())
				if siteErr != nil {
					sp.Status = progress.StatusFailed
					sp.Error = truncate(siteErr.Error(), 100)
				} else {
					sp.Status = progress.StatusCompleted
					sp.Found = len(items)
				}
				rec.Results = append(rec.Results, items...)
				rec.Completed++
				advanceEstimates(rec, start)
			})
			return nil
		})
	}
	_ = g.Wait()

	successes, failures := 0, 0
	r.progress.Update(taskID, func(rec *progress.Record) {
		for _, sp := range rec.Websites {
			if sp.Status == progress.StatusFailed {
				failures++
			} else {
				successes++
			}
		}
		rec.Status = progress.StatusCompleted
		rec.CurrentWebsite = nil
		rec.Percentage = 100
		rec.ElapsedSeconds = int(time.Since(start).Seconds())
		rec.EstimatedRemaining = 0
		rec.Message = fmt.Sprintf("crawl finished: %d items from %d websites (%d ok, %d failed)",
			len(results), len(websites), successes, failures)
	})

	// Dedup against the persistent fingerprint set happens once, over the
	// whole batch, so cross-site duplicates collapse too.
	saved, skipped, err := r.saver.SaveTenders(context.Background(), results)
	if err != nil {
		r.fail(taskID, fmt.Errorf("save tenders: %w", err))
		return len(results)
	}

	r.progress.Update(taskID, func(rec *progress.Record) {
		rec.SavedCount = saved
		rec.SkippedCount = skipped
		rec.Message = fmt.Sprintf("crawl finished: %d items found, %d saved, %d duplicates skipped (%d ok, %d failed)",
			len(results), saved, skipped, successes, failures)
	})
	r.hub.Publish(events.MakeEvent("", "crawl_completed", 1, map[string]any{
		"task_id": taskID, "found": len(results), "saved": saved, "skipped": skipped,
	}))
	r.log.Infof("[crawl] batch done task=%s found=%d saved=%d skipped=%d", taskID, len(results), saved, skipped)
	return len(results)
}

// CrawlSequential is the unattended variant used by scheduled tasks: one
// site at a time with a small delay in between, no progress record.
func (r *Runner) CrawlSequential(ctx context.Context, query, category string) (found, saved, skipped int, err error) {
	websites, err := r.sites.ListActiveWebsites(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("list active websites: %w", err)
	}

	var results []domain.CandidateItem
	for i, site := range websites {
		if ctx.Err() != nil {
			break
		}
		items, siteErr := r.fetchSiteSafe(ctx, site, query, category)
		if siteErr != nil {
			r.log.Warnf("[crawl] site failed site=%s err=%v", site.Name, siteErr)
		}
		results = append(results, items...)

		if i < len(websites)-1 && r.interSiteDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.interSiteDelay):
			}
		}
	}

	saved, skipped, err = r.saver.SaveTenders(ctx, results)
	if err != nil {
		return len(results), 0, 0, fmt.Errorf("save tenders: %w", err)
	}
	return len(results), saved, skipped, nil
}

// fetchSiteSafe guards against a panicking fetcher; FetchSite shouldn't
// leak, but one bad site must never take the batch down.
func (r *Runner) fetchSiteSafe(ctx context.Context, site domain.Website, query, category string) (items []domain.CandidateItem, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			items = nil
			err = fmt.Errorf("site fetch panic: %v", rec)
		}
	}()
	return r.fetcher.FetchSite(ctx, site, query, category)
}

func (r *Runner) fail(taskID string, err error) {
	r.log.Errorf("[crawl] batch failed task=%s err=%v", taskID, err)
	r.progress.Update(taskID, func(rec *progress.Record) {
		rec.Status = progress.StatusFailed
		rec.CurrentWebsite = nil
		rec.Message = err.Error()
	})
	r.hub.Publish(events.MakeEvent("", "crawl_failed", 1, map[string]any{"task_id": taskID}))
}

// advanceEstimates recomputes elapsed, percentage and the average-so-far
// ETA after one more site finished. Caller holds the progress store lock.
func advanceEstimates(rec *progress.Record, start time.Time) {
	elapsed := time.Since(start)
	rec.ElapsedSeconds = int(elapsed.Seconds())

	remaining := rec.Total - rec.Completed
	if remaining > 0 {
		// 100% is reserved for the terminal transition so pollers never see
		// a full bar on a still-running task
		rec.Percentage = round1(float64(rec.Completed) / float64(rec.Total) * 100)
	}
	avg := elapsed.Seconds() / float64(rec.Completed)
	rec.EstimatedRemaining = int(float64(remaining) * avg)
	rec.Message = fmt.Sprintf("completed %d/%d websites", rec.Completed, rec.Total)
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
