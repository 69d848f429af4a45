package store

import (
	"context"
	"database/sql"
	"time"
)

type SearchRecord struct {
	ID          int64  `json:"id"`
	Query       string `json:"query"`
	Category    string `json:"category,omitempty"`
	ResultCount int    `json:"result_count"`
	CreatedAt   string `json:"created_at"`
}

// SaveSearchHistory records a search; the result count is filled in later,
// once the crawl batch knows it.
func SaveSearchHistory(ctx context.Context, db *sql.DB, query, category string) (int64, error) {
	res, err := db.ExecContext(ctx, `
INSERT INTO search_history(query, category, created_at)
VALUES(?,?,?);`,
		query, category, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func UpdateSearchHistoryCount(ctx context.Context, db *sql.DB, id int64, count int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE search_history SET result_count = ? WHERE id = ?;`, count, id)
	return err
}

func ListSearchHistory(ctx context.Context, db *sql.DB, limit int) ([]SearchRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, query, category, result_count, created_at
FROM search_history
ORDER BY created_at DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchRecord
	for rows.Next() {
		var r SearchRecord
		if err := rows.Scan(&r.ID, &r.Query, &r.Category, &r.ResultCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
