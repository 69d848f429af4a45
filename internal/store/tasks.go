package store

import (
	"context"
	"database/sql"
	"time"

	"tenderwatch-engine/internal/domain"
)

// CreateCrawlTask registers a recurring crawl definition.
func CreateCrawlTask(ctx context.Context, db *sql.DB, t domain.CrawlTask) (int64, error) {
	if t.IntervalSec <= 0 {
		t.IntervalSec = 3600
	}
	if t.Status == "" {
		t.Status = "stopped"
	}
	res, err := db.ExecContext(ctx, `
INSERT INTO crawl_tasks(name, query, category, interval_seconds, status, created_at)
VALUES(?,?,?,?,?,?);`,
		t.Name, t.Query, t.Category, t.IntervalSec, t.Status, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func ListCrawlTasks(ctx context.Context, db *sql.DB) ([]domain.CrawlTask, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, query, category, interval_seconds, status, total_crawled, success_count, error_count, last_run_at, created_at
FROM crawl_tasks
ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CrawlTask
	for rows.Next() {
		var (
			t         domain.CrawlTask
			lastRun   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Query, &t.Category, &t.IntervalSec,
			&t.Status, &t.TotalCrawled, &t.SuccessCount, &t.ErrorCount, &lastRun, &createdAt); err != nil {
			return nil, err
		}
		if lastRun.Valid {
			if ts, perr := time.Parse(time.RFC3339, lastRun.String); perr == nil {
				t.LastRunAt = &ts
			}
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetCrawlTaskStatus flips a task between active and stopped.
func SetCrawlTaskStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	_, err := db.ExecContext(ctx, `UPDATE crawl_tasks SET status = ? WHERE id = ?;`, status, id)
	return err
}

func DeleteCrawlTask(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM crawl_tasks WHERE id = ?;`, id)
	return err
}

// RecordCrawlRun writes one execution's outcome and rolls the counters up
// into the task row.
func RecordCrawlRun(ctx context.Context, db *sql.DB, run domain.CrawlRun) error {
	ended := sql.NullString{}
	if run.EndedAt != nil {
		ended = sql.NullString{String: run.EndedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO crawl_runs(task_id, status, started_at, ended_at, items_found, items_added, items_skipped, error)
VALUES(?,?,?,?,?,?,?,?);`,
		run.TaskID, run.Status, run.StartedAt.UTC().Format(time.RFC3339), ended,
		run.ItemsFound, run.ItemsAdded, run.ItemsSkipped, run.Error,
	); err != nil {
		return err
	}

	errInc := 0
	if run.Status == "failed" {
		errInc = 1
	}
	_, err := db.ExecContext(ctx, `
UPDATE crawl_tasks
SET total_crawled = total_crawled + ?,
    success_count = success_count + ?,
    error_count = error_count + ?,
    last_run_at = ?
WHERE id = ?;`,
		run.ItemsFound, run.ItemsAdded, errInc,
		time.Now().UTC().Format(time.RFC3339), run.TaskID,
	)
	return err
}

func ListCrawlRuns(ctx context.Context, db *sql.DB, taskID int64, limit int) ([]domain.CrawlRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, task_id, status, started_at, ended_at, items_found, items_added, items_skipped, error
FROM crawl_runs
WHERE task_id = ?
ORDER BY started_at DESC
LIMIT ?;`, taskID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CrawlRun
	for rows.Next() {
		var (
			r       domain.CrawlRun
			started string
			ended   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Status, &started, &ended,
			&r.ItemsFound, &r.ItemsAdded, &r.ItemsSkipped, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if ended.Valid {
			if ts, perr := time.Parse(time.RFC3339, ended.String); perr == nil {
				r.EndedAt = &ts
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
