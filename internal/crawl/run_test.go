package crawl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenderwatch-engine/internal/domain"
	"tenderwatch-engine/internal/events"
	"tenderwatch-engine/internal/fingerprint"
	"tenderwatch-engine/internal/progress"
)

type fakeLister struct {
	sites []domain.Website
	err   error
}

func (f *fakeLister) ListActiveWebsites(context.Context) ([]domain.Website, error) {
	return f.sites, f.err
}

// fakeSaver mirrors the store's dedup contract: one fingerprint, one save.
type fakeSaver struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeSaver(seeds ...string) *fakeSaver {
	s := &fakeSaver{seen: make(map[string]bool)}
	for _, fp := range seeds {
		s.seen[fp] = true
	}
	return s
}

func (f *fakeSaver) SaveTenders(_ context.Context, items []domain.CandidateItem) (int, int, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	saved, skipped := 0, 0
	for _, item := range items {
		fp := fingerprint.Compute(item.Title, item.Organization, item.PublishDate)
		if f.seen[fp] {
			skipped++
			continue
		}
		f.seen[fp] = true
		saved++
	}
	return saved, skipped, nil
}

func newTestRunner(lister *fakeLister, saver *fakeSaver) (*Runner, *progress.Store) {
	prog := progress.NewStore()
	fetcher := newTestFetcher(2*time.Second, 500*time.Millisecond)
	r := NewRunner(RunnerConfig{Concurrency: 2}, fetcher, lister, saver, prog, events.NewHub(), zap.NewNop().Sugar())
	return r, prog
}

func waitForStatus(t *testing.T, prog *progress.Store, taskID, status string) progress.Record {
	t.Helper()
	var rec progress.Record
	require.Eventually(t, func() bool {
		r, ok := prog.Get(taskID)
		if !ok {
			return false
		}
		rec = r
		return r.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return rec
}

const singleItemPage = `<html><body><div class="news-list"><ul>
<li><a href="/n/1.html">设备维保服务项目招标公告</a><span class="date">2024-03-20</span></li>
</ul></div></body></html>`

func TestRunBatchEndToEnd(t *testing.T) {
	t.Parallel()

	srv1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(newsListPage))
	}))
	defer srv1.Close()

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv2.URL
	srv2.Close() // site 2 is unreachable

	srv3 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(singleItemPage))
	}))
	defer srv3.Close()

	lister := &fakeLister{sites: []domain.Website{
		{ID: 1, Name: "一号站", BaseURL: srv1.URL},
		{ID: 2, Name: "二号站", BaseURL: deadURL},
		{ID: 3, Name: "三号站", BaseURL: srv3.URL},
	}}

	// One of site 1's items is already known to the store.
	dup := fingerprint.Compute("市政道路改造工程招标公告", "", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	saver := newFakeSaver(dup)

	r, prog := newTestRunner(lister, saver)
	r.StartBatch("task-1", "公告", "", nil)

	rec := waitForStatus(t, prog, "task-1", progress.StatusCompleted)
	require.Eventually(t, func() bool {
		rec, _ = prog.Get("task-1")
		return rec.SavedCount+rec.SkippedCount == 3
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, rec.Total)
	assert.Equal(t, 3, rec.Completed)
	assert.Len(t, rec.Results, 3)
	assert.Equal(t, 2, rec.SavedCount)
	assert.Equal(t, 1, rec.SkippedCount)
	assert.Equal(t, float64(100), rec.Percentage)
	assert.Equal(t, 0, rec.EstimatedRemaining)
	assert.Nil(t, rec.CurrentWebsite)

	byName := map[string]progress.SiteProgress{}
	for _, sp := range rec.Websites {
		byName[sp.Name] = sp
	}
	assert.Equal(t, progress.StatusCompleted, byName["一号站"].Status)
	assert.Equal(t, 2, byName["一号站"].Found)
	assert.Equal(t, progress.StatusFailed, byName["二号站"].Status)
	assert.NotEmpty(t, byName["二号站"].Error)
	assert.LessOrEqual(t, len(byName["二号站"].Error), 100)
	assert.Equal(t, progress.StatusCompleted, byName["三号站"].Status)
	assert.Equal(t, 1, byName["三号站"].Found)
}

func TestRunBatchNoActiveWebsites(t *testing.T) {
	t.Parallel()

	r, prog := newTestRunner(&fakeLister{}, newFakeSaver())
	r.StartBatch("task-1", "公告", "", nil)

	rec := waitForStatus(t, prog, "task-1", progress.StatusCompleted)
	assert.Equal(t, float64(100), rec.Percentage)
	assert.Equal(t, "no active websites to crawl", rec.Message)
	assert.Empty(t, rec.Results)
}

func TestRunBatchListerFailure(t *testing.T) {
	t.Parallel()

	r, prog := newTestRunner(&fakeLister{err: errors.New("db locked")}, newFakeSaver())
	r.StartBatch("task-1", "公告", "", nil)

	rec := waitForStatus(t, prog, "task-1", progress.StatusFailed)
	assert.Contains(t, rec.Message, "db locked")
}

func TestRunBatchSaverFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(singleItemPage))
	}))
	defer srv.Close()

	saver := newFakeSaver()
	saver.err = errors.New("disk full")

	r, prog := newTestRunner(&fakeLister{sites: []domain.Website{{Name: "s", BaseURL: srv.URL}}}, saver)
	r.StartBatch("task-1", "公告", "", nil)

	rec := waitForStatus(t, prog, "task-1", progress.StatusFailed)
	assert.Contains(t, rec.Message, "disk full")
}

func TestPercentageNotFullWhileRunning(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(singleItemPage))
	}))
	defer srv.Close()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(newsListPage))
	}))
	defer fast.Close()

	lister := &fakeLister{sites: []domain.Website{
		{Name: "快站", BaseURL: fast.URL},
		{Name: "慢站", BaseURL: srv.URL},
	}}

	prog := progress.NewStore()
	fetcher := newTestFetcher(5*time.Second, 5*time.Second)
	r := NewRunner(RunnerConfig{Concurrency: 2}, fetcher, lister, newFakeSaver(), prog, events.NewHub(), zap.NewNop().Sugar())
	r.StartBatch("task-1", "公告", "", nil)

	// The fast site finishes while the slow one is held open; the bar must
	// not read 100 until the batch is terminal.
	require.Eventually(t, func() bool {
		rec, ok := prog.Get("task-1")
		return ok && rec.Completed == 1
	}, 5*time.Second, 10*time.Millisecond)

	rec, _ := prog.Get("task-1")
	assert.Equal(t, progress.StatusRunning, rec.Status)
	assert.Less(t, rec.Percentage, float64(100))

	close(release)
	rec = waitForStatus(t, prog, "task-1", progress.StatusCompleted)
	assert.Equal(t, float64(100), rec.Percentage)
}

func TestStartBatchCompletionHook(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(singleItemPage))
	}))
	defer srv.Close()

	r, _ := newTestRunner(&fakeLister{sites: []domain.Website{{Name: "s", BaseURL: srv.URL}}}, newFakeSaver())

	done := make(chan int, 1)
	r.StartBatch("task-1", "公告", "", func(found int) { done <- found })

	select {
	case found := <-done:
		assert.Equal(t, 1, found)
	case <-time.After(5 * time.Second):
		t.Fatal("completion hook never fired")
	}
}

func TestCancelUnknownTask(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(&fakeLister{}, newFakeSaver())
	assert.False(t, r.Cancel("ghost"))
}

func TestCancelRunningTask(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(singleItemPage))
	}))
	defer srv.Close()
	defer close(release)

	lister := &fakeLister{sites: []domain.Website{{Name: "s", BaseURL: srv.URL}}}
	prog := progress.NewStore()
	fetcher := newTestFetcher(10*time.Second, 10*time.Second)
	r := NewRunner(RunnerConfig{Concurrency: 1}, fetcher, lister, newFakeSaver(), prog, events.NewHub(), zap.NewNop().Sugar())
	r.StartBatch("task-1", "公告", "", nil)

	require.Eventually(t, func() bool {
		rec, ok := prog.Get("task-1")
		return ok && rec.Status == progress.StatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, r.Cancel("task-1"))

	// The batch still drains to a terminal state after cancellation.
	require.Eventually(t, func() bool {
		rec, _ := prog.Get("task-1")
		return rec.Status == progress.StatusCompleted || rec.Status == progress.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCrawlSequential(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(singleItemPage))
	}))
	defer srv.Close()

	lister := &fakeLister{sites: []domain.Website{
		{Name: "一号站", BaseURL: srv.URL},
		{Name: "二号站", BaseURL: srv.URL},
	}}

	prog := progress.NewStore()
	fetcher := newTestFetcher(2*time.Second, time.Second)
	r := NewRunner(RunnerConfig{Concurrency: 1, InterSiteDelay: 10 * time.Millisecond},
		fetcher, lister, newFakeSaver(), prog, events.NewHub(), zap.NewNop().Sugar())

	found, saved, skipped, err := r.CrawlSequential(context.Background(), "公告", "")
	require.NoError(t, err)
	assert.Equal(t, 2, found)
	// Both sites serve the same announcement, so the second copy dedups.
	assert.Equal(t, 1, saved)
	assert.Equal(t, 1, skipped)
}
