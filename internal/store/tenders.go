package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"tenderwatch-engine/internal/domain"
	"tenderwatch-engine/internal/fingerprint"
)

const minTitleLen = 5

// Service wires the sqlite pool to the crawl pipeline's collaborator
// contracts (site listing and dedup-then-save).
type Service struct {
	DB  *sql.DB
	Log *zap.SugaredLogger
}

// SaveTenders runs every candidate through the fingerprint gate and inserts
// the new ones. Each item gets its own transaction so one failure never
// aborts the rest; tender and fingerprint rows land atomically or not at
// all. Duplicates are expected, successful-path behavior.
func (s *Service) SaveTenders(ctx context.Context, items []domain.CandidateItem) (saved, skipped int, err error) {
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if len([]rune(title)) < minTitleLen {
			continue
		}

		inserted, ierr := s.insertIfNew(ctx, item, title)
		if ierr != nil {
			if errors.Is(ierr, errDuplicate) {
				skipped++
				continue
			}
			s.Log.Warnf("[store] save tender failed title=%q err=%v", title, ierr)
			continue
		}
		if inserted {
			saved++
		}
	}
	return saved, skipped, nil
}

var errDuplicate = errors.New("duplicate fingerprint")

func (s *Service) insertIfNew(ctx context.Context, item domain.CandidateItem, title string) (bool, error) {
	fp := fingerprint.Compute(title, item.Organization, item.PublishDate)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM tender_fingerprints WHERE fingerprint = ? LIMIT 1;`, fp).Scan(&one)
	if err == nil {
		return false, errDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	publishDate := item.PublishDate
	if publishDate.IsZero() {
		publishDate = time.Now().UTC()
	}

	category := item.Category
	if category == "" {
		category = "other"
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx, `
INSERT INTO tenders(title, publish_date, organization, location, summary, source_url, source_website, category, status, view_count, created_at)
VALUES(?,?,?,?,?,?,?,?,'active',0,?);`,
		title,
		publishDate.Format("2006-01-02"),
		item.Organization,
		item.Location,
		clampSummary(item.Summary),
		item.SourceURL,
		item.SourceWebsite,
		category,
		now,
	)
	if err != nil {
		return false, err
	}
	tenderID, err := res.LastInsertId()
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO tender_fingerprints(tender_id, fingerprint, created_at)
VALUES(?,?,?);`,
		tenderID, fp, now,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return false, errDuplicate
		}
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Persisted summaries keep the original 500-char ceiling even though the
// extractor already caps at 200; the interactive create path can hand us
// longer text.
func clampSummary(s string) string {
	r := []rune(s)
	if len(r) <= 500 {
		return s
	}
	return string(r[:500])
}

type SearchTendersOpts struct {
	Query    string
	Category string
	DateFrom string // YYYY-MM-DD
	DateTo   string // YYYY-MM-DD
	Limit    int
	Offset   int
}

// SearchTenders filters active tenders by LIKE match over title, summary
// and organization, optional category and date range, newest first.
func SearchTenders(ctx context.Context, db *sql.DB, opts SearchTendersOpts) ([]domain.Tender, error) {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 20
	}

	where := []string{`status = 'active'`}
	var args []any

	if opts.Query != "" {
		pattern := "%" + opts.Query + "%"
		where = append(where, `(title LIKE ? OR summary LIKE ? OR organization LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}
	if opts.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, opts.Category)
	}
	if opts.DateFrom != "" {
		where = append(where, `publish_date >= ?`)
		args = append(args, opts.DateFrom)
	}
	if opts.DateTo != "" {
		where = append(where, `publish_date <= ?`)
		args = append(args, opts.DateTo)
	}

	query := `
SELECT id, title, publish_date, organization, location, summary, source_url, source_website, category, status, view_count, created_at
FROM tenders
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY publish_date DESC, id DESC
LIMIT ? OFFSET ?;`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tender
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTender fetches one tender and bumps its view counter.
func GetTender(ctx context.Context, db *sql.DB, id int64) (domain.Tender, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, title, publish_date, organization, location, summary, source_url, source_website, category, status, view_count, created_at
FROM tenders
WHERE id = ?;`, id)

	t, err := scanTender(row)
	if err != nil {
		return domain.Tender{}, err
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE tenders SET view_count = view_count + 1 WHERE id = ?;`, id); err == nil {
		t.ViewCount++
	}
	return t, nil
}

func DeleteTender(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM tenders WHERE id = ?;`, id)
	return err
}

func CountTenders(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenders;`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTender(row rowScanner) (domain.Tender, error) {
	var (
		t           domain.Tender
		publishDate string
		createdAt   string
	)
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&publishDate,
		&t.Organization,
		&t.Location,
		&t.Summary,
		&t.SourceURL,
		&t.SourceWebsite,
		&t.Category,
		&t.Status,
		&t.ViewCount,
		&createdAt,
	); err != nil {
		return domain.Tender{}, err
	}
	t.PublishDate, _ = time.Parse("2006-01-02", publishDate)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return t, nil
}
