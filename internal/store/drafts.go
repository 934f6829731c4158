package store

import (
	"context"
	"database/sql"
	"time"

	"profreach-engine/pkg/domain"
)

// InsertDraft appends one email draft; drafts are never edited in place.
func InsertDraft(ctx context.Context, db *sql.DB, d domain.EmailDraft) (domain.EmailDraft, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx, `
INSERT INTO email_drafts(professor_id, template, tone, length, subject, body, created_at)
VALUES(?,?,?,?,?,?,?);`,
		d.ProfessorID, d.Template, d.Tone, d.Length, d.Subject, d.Body,
		d.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return domain.EmailDraft{}, err
	}
	d.ID, _ = res.LastInsertId()
	return d, nil
}

// ListDrafts returns drafts in append order.
func ListDrafts(ctx context.Context, db *sql.DB, professorID int64) ([]domain.EmailDraft, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, professor_id, template, tone, length, subject, body, created_at
FROM email_drafts
WHERE professor_id = ?
ORDER BY created_at ASC, id ASC;`, professorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.EmailDraft{}
	for rows.Next() {
		var d domain.EmailDraft
		var createdAt string
		if err := rows.Scan(&d.ID, &d.ProfessorID, &d.Template, &d.Tone, &d.Length, &d.Subject, &d.Body, &createdAt); err != nil {
			return nil, err
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}
