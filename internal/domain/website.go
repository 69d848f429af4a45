package domain

import "time"

// Website is one crawl target. The registry is managed externally; only
// status=active rows are eligible for a batch.
type Website struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status"`
}

// CrawlTask is a recurring, unattended crawl definition.
type CrawlTask struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Query        string     `json:"query"`
	Category     string     `json:"category,omitempty"`
	IntervalSec  int        `json:"interval_seconds"`
	Status       string     `json:"status"` // active | stopped
	TotalCrawled int        `json:"total_crawled"`
	SuccessCount int        `json:"success_count"`
	ErrorCount   int        `json:"error_count"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CrawlRun is one execution of a CrawlTask.
type CrawlRun struct {
	ID           int64      `json:"id"`
	TaskID       int64      `json:"task_id"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ItemsFound   int        `json:"items_found"`
	ItemsAdded   int        `json:"items_added"`
	ItemsSkipped int        `json:"items_skipped"`
	Error        string     `json:"error,omitempty"`
}
