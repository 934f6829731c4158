package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"profreach-engine/pkg/domain"
)

var ErrNotFound = errors.New("not found")

type NewProfessor struct {
	Name        string
	Affiliation string
	WebsiteURL  string
	AvatarURL   string
	TargetRole  domain.TargetRole
}

// CreateProfessor inserts the professor and its default pipeline status row
// in one transaction.
func CreateProfessor(ctx context.Context, db *sql.DB, userID int64, p NewProfessor) (int64, error) {
	if strings.TrimSpace(p.Name) == "" {
		return 0, errors.New("name is required")
	}
	if !p.TargetRole.Valid() {
		p.TargetRole = domain.RoleSummerIntern
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx, `
INSERT INTO professors(user_id, name, affiliation, website_url, avatar_url, target_role, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?);`,
		userID, strings.TrimSpace(p.Name), strings.TrimSpace(p.Affiliation),
		strings.TrimSpace(p.WebsiteURL), strings.TrimSpace(p.AvatarURL), string(p.TargetRole), now, now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO pipeline_status(professor_id, status) VALUES(?, ?);`, id, string(domain.StatusDraft)); err != nil {
		return 0, err
	}

	return id, tx.Commit()
}

type ProfessorPatch struct {
	TargetRole *domain.TargetRole
	AvatarURL  *string
}

func UpdateProfessor(ctx context.Context, db *sql.DB, userID, id int64, patch ProfessorPatch) error {
	if patch.TargetRole != nil && !patch.TargetRole.Valid() {
		return errors.New("invalid target_role")
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}
	if patch.TargetRole != nil {
		sets = append(sets, "target_role = ?")
		args = append(args, string(*patch.TargetRole))
	}
	if patch.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, strings.TrimSpace(*patch.AvatarURL))
	}
	args = append(args, id, userID)

	res, err := db.ExecContext(ctx, `
UPDATE professors SET `+strings.Join(sets, ", ")+`
WHERE id = ? AND user_id = ?;`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// BackfillAvatar sets avatar_url only when it is still empty.
func BackfillAvatar(ctx context.Context, db *sql.DB, id int64, avatarURL string) error {
	_, err := db.ExecContext(ctx, `
UPDATE professors SET avatar_url = ?, updated_at = ?
WHERE id = ? AND avatar_url = '';`,
		strings.TrimSpace(avatarURL), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// DeleteProfessor removes the professor; nested rows cascade.
func DeleteProfessor(ctx context.Context, db *sql.DB, userID, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM professors WHERE id = ? AND user_id = ?;`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProfessors returns the professors owned by userID with pipeline status
// attached; nested collections are left empty (the detail view loads them).
func ListProfessors(ctx context.Context, db *sql.DB, userID int64) ([]domain.Professor, error) {
	rows, err := db.QueryContext(ctx, `
SELECT p.id, p.name, p.affiliation, p.website_url, p.avatar_url, p.target_role, p.created_at, p.updated_at,
       s.id, s.status, s.last_touch_at, s.next_action_at, s.followup_recommended, s.notes
FROM professors p
JOIN pipeline_status s ON s.professor_id = p.id
WHERE p.user_id = ?
ORDER BY p.created_at DESC, p.id DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Professor{}
	for rows.Next() {
		p, err := scanProfessor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProfessor loads one professor with every nested collection.
func GetProfessor(ctx context.Context, db *sql.DB, userID, id int64) (*domain.Professor, error) {
	row := db.QueryRowContext(ctx, `
SELECT p.id, p.name, p.affiliation, p.website_url, p.avatar_url, p.target_role, p.created_at, p.updated_at,
       s.id, s.status, s.last_touch_at, s.next_action_at, s.followup_recommended, s.notes
FROM professors p
JOIN pipeline_status s ON s.professor_id = p.id
WHERE p.id = ? AND p.user_id = ?;`, id, userID)

	p, err := scanProfessor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.SourcePages, err = ListSourcePages(ctx, db, id); err != nil {
		return nil, err
	}
	if p.ProfessorCards, err = ListCards(ctx, db, id); err != nil {
		return nil, err
	}
	if p.EmailDrafts, err = ListDrafts(ctx, db, id); err != nil {
		return nil, err
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfessor(r rowScanner) (domain.Professor, error) {
	var p domain.Professor
	var st domain.PipelineStatus
	var createdAt, updatedAt, role, status string
	var lastTouch, nextAction sql.NullString
	var followup int

	err := r.Scan(&p.ID, &p.Name, &p.Affiliation, &p.WebsiteURL, &p.AvatarURL, &role, &createdAt, &updatedAt,
		&st.ID, &status, &lastTouch, &nextAction, &followup, &st.Notes)
	if err != nil {
		return p, err
	}

	p.TargetRole = domain.TargetRole(role)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	st.ProfessorID = p.ID
	st.Status = domain.Status(status)
	st.FollowupRecommended = followup != 0
	st.LastTouchAt = parseNullTime(lastTouch)
	st.NextActionAt = parseNullTime(nextAction)
	p.PipelineStatus = &st

	p.SourcePages = []domain.SourcePage{}
	p.ProfessorCards = []domain.ProfessorCard{}
	p.EmailDrafts = []domain.EmailDraft{}
	return p, nil
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// AwaitingReply lists professors currently in the Sent stage, across all
// users. The reply poller matches inbound mail against this set.
func AwaitingReply(ctx context.Context, db *sql.DB) ([]domain.Professor, error) {
	rows, err := db.QueryContext(ctx, `
SELECT p.id, p.name, p.affiliation, p.website_url, p.avatar_url, p.target_role, p.created_at, p.updated_at,
       s.id, s.status, s.last_touch_at, s.next_action_at, s.followup_recommended, s.notes
FROM professors p
JOIN pipeline_status s ON s.professor_id = p.id
WHERE s.status = ?;`, string(domain.StatusSent))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Professor{}
	for rows.Next() {
		p, err := scanProfessor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// OwnsProfessor reports whether the professor exists and belongs to userID.
func OwnsProfessor(ctx context.Context, db *sql.DB, userID, id int64) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM professors WHERE id = ? AND user_id = ? LIMIT 1;`, id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
