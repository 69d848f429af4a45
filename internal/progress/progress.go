// Package progress holds the in-process map of crawl task identifiers to
// their live progress records. The orchestrator writes from a background
// goroutine while HTTP pollers read concurrently; every mutation goes
// through Update so a reader never observes a half-applied record.
package progress

import (
	"sync"
	"time"

	"tenderwatch-engine/internal/domain"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SiteProgress tracks one website within a batch.
type SiteProgress struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Status      string  `json:"status"`
	Found       int     `json:"found,omitempty"`
	DurationSec float64 `json:"duration_seconds,omitempty"`
	Error       string  `json:"error,omitempty"`
	StartedAt   string  `json:"started_at,omitempty"`
	CompletedAt string  `json:"completed_at,omitempty"`
}

// Record is the full progress state for one task identifier.
type Record struct {
	Status             string                 `json:"status"`
	Query              string                 `json:"query"`
	Category           string                 `json:"category,omitempty"`
	Total              int                    `json:"total"`
	Completed          int                    `json:"completed"`
	Message            string                 `json:"message"`
	Websites           []SiteProgress         `json:"websites"`
	CurrentWebsite     *SiteProgress          `json:"current_website,omitempty"`
	Results            []domain.CandidateItem `json:"results"`
	StartTime          time.Time              `json:"start_time"`
	ElapsedSeconds     int                    `json:"elapsed_seconds"`
	EstimatedRemaining int                    `json:"estimated_remaining_seconds"`
	Percentage         float64                `json:"progress_percentage"`
	SavedCount         int                    `json:"saved_count"`
	SkippedCount       int                    `json:"skipped_count"`
	UpdatedAt          time.Time              `json:"-"`
}

// Summary is the lightweight per-task view used by list endpoints.
type Summary struct {
	TaskID             string    `json:"task_id"`
	Status             string    `json:"status"`
	Query              string    `json:"query"`
	Total              int       `json:"total"`
	Completed          int       `json:"completed"`
	Message            string    `json:"message"`
	StartTime          time.Time `json:"start_time"`
	ElapsedSeconds     int       `json:"elapsed_seconds"`
	EstimatedRemaining int       `json:"estimated_remaining_seconds"`
	Percentage         float64   `json:"progress_percentage"`
	ResultsCount       int       `json:"results_count"`
}

type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Put installs a fresh record for a new task identifier.
func (s *Store) Put(taskID string, rec Record) {
	rec.UpdatedAt = time.Now()
	s.mu.Lock()
	s.records[taskID] = &rec
	s.mu.Unlock()
}

// Get returns a copy of the record, or false for unknown identifiers.
func (s *Store) Get(taskID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[taskID]
	if !ok {
		return Record{}, false
	}
	return snapshot(rec), true
}

// Update applies fn to the record under the store lock. Unknown identifiers
// are a no-op; the orchestrator always Puts before it Updates.
func (s *Store) Update(taskID string, fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return
	}
	fn(rec)
	rec.UpdatedAt = time.Now()
}

func (s *Store) Remove(taskID string) {
	s.mu.Lock()
	delete(s.records, taskID)
	s.mu.Unlock()
}

// List returns summaries for every known task.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.records))
	for id, rec := range s.records {
		out = append(out, Summary{
			TaskID:             id,
			Status:             rec.Status,
			Query:              rec.Query,
			Total:              rec.Total,
			Completed:          rec.Completed,
			Message:            rec.Message,
			StartTime:          rec.StartTime,
			ElapsedSeconds:     rec.ElapsedSeconds,
			EstimatedRemaining: rec.EstimatedRemaining,
			Percentage:         rec.Percentage,
			ResultsCount:       len(rec.Results),
		})
	}
	return out
}

// Sweep evicts terminal records not touched within ttl and returns how many
// were removed. Running tasks are never evicted.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if rec.Status != StatusCompleted && rec.Status != StatusFailed {
			continue
		}
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// snapshot deep-copies the slices a poller could otherwise race on.
func snapshot(rec *Record) Record {
	out := *rec
	out.Websites = append([]SiteProgress(nil), rec.Websites...)
	out.Results = append([]domain.CandidateItem(nil), rec.Results...)
	if rec.CurrentWebsite != nil {
		cw := *rec.CurrentWebsite
		out.CurrentWebsite = &cw
	}
	return out
}
