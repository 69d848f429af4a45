package store

import (
	"context"
	"time"

	"tenderwatch-engine/internal/config"
	"tenderwatch-engine/internal/domain"
)

// ListActiveWebsites returns the crawl targets eligible for a batch, in
// registry order.
func (s *Service) ListActiveWebsites(ctx context.Context) ([]domain.Website, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, name, url, category, status
FROM websites
WHERE status = 'active'
ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Website
	for rows.Next() {
		var w domain.Website
		if err := rows.Scan(&w.ID, &w.Name, &w.BaseURL, &w.Category, &w.Status); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListWebsites returns the whole registry, active or not.
func (s *Service) ListWebsites(ctx context.Context) ([]domain.Website, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, name, url, category, status
FROM websites
ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Website
	for rows.Next() {
		var w domain.Website
		if err := rows.Scan(&w.ID, &w.Name, &w.BaseURL, &w.Category, &w.Status); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// SyncWebsites upserts the seed registry from config at startup. Rows the
// admin tooling added or edited are left alone apart from the seeded
// fields; URL is the identity.
func (s *Service) SyncWebsites(ctx context.Context, seeds []config.Website) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, w := range seeds {
		if w.URL == "" {
			continue
		}
		status := w.Status
		if status == "" {
			status = "active"
		}
		if _, err := s.DB.ExecContext(ctx, `
INSERT INTO websites(name, url, category, status, created_at)
VALUES(?,?,?,?,?)
ON CONFLICT(url) DO UPDATE SET name = excluded.name, category = excluded.category;`,
			w.Name, w.URL, w.Category, status, now,
		); err != nil {
			return err
		}
	}
	return nil
}
