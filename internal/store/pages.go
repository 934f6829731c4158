package store

import (
	"context"
	"database/sql"
	"time"

	"profreach-engine/pkg/domain"
)

// InsertSourcePage appends a fetch record. History is never pruned; re-running
// an ingest for the same URL produces a new row.
func InsertSourcePage(ctx context.Context, db *sql.DB, pg domain.SourcePage) (domain.SourcePage, error) {
	if pg.FetchedAt.IsZero() {
		pg.FetchedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx, `
INSERT INTO source_pages(professor_id, source_url, fetch_status, raw_text, error_msg, fetched_at)
VALUES(?,?,?,?,?,?);`,
		pg.ProfessorID, pg.SourceURL, pg.FetchStatus, pg.RawText, pg.ErrorMsg,
		pg.FetchedAt.Format(time.RFC3339))
	if err != nil {
		return domain.SourcePage{}, err
	}
	pg.ID, _ = res.LastInsertId()
	return pg, nil
}

// ListSourcePages returns fetches newest-first, so index 0 is the latest.
func ListSourcePages(ctx context.Context, db *sql.DB, professorID int64) ([]domain.SourcePage, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, professor_id, source_url, fetch_status, raw_text, error_msg, fetched_at
FROM source_pages
WHERE professor_id = ?
ORDER BY fetched_at DESC, id DESC;`, professorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SourcePage{}
	for rows.Next() {
		var pg domain.SourcePage
		var fetchedAt string
		if err := rows.Scan(&pg.ID, &pg.ProfessorID, &pg.SourceURL, &pg.FetchStatus, &pg.RawText, &pg.ErrorMsg, &fetchedAt); err != nil {
			return nil, err
		}
		pg.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
		out = append(out, pg)
	}
	return out, rows.Err()
}

// LatestSourceText returns the most recent successfully extracted text,
// or "" when none exists.
func LatestSourceText(ctx context.Context, db *sql.DB, professorID int64) (string, error) {
	var text string
	err := db.QueryRowContext(ctx, `
SELECT raw_text FROM source_pages
WHERE professor_id = ? AND fetch_status = 'success' AND raw_text != ''
ORDER BY fetched_at DESC, id DESC
LIMIT 1;`, professorID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return text, err
}
