package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"profreach-engine/pkg/domain"
)

// UpdateStatus sets the funnel stage. Transitions are unrestricted; moving to
// Sent or Replied bumps last_touch_at. followup_recommended is recomputed by
// the followup package, never set here from client input.
func UpdateStatus(ctx context.Context, db *sql.DB, professorID int64, status domain.Status) (*domain.PipelineStatus, error) {
	if !status.Valid() {
		return nil, errors.New("unknown status value")
	}

	if status == domain.StatusSent || status == domain.StatusReplied {
		now := time.Now().UTC().Format(time.RFC3339)
		_, err := db.ExecContext(ctx, `
UPDATE pipeline_status SET status = ?, last_touch_at = ? WHERE professor_id = ?;`,
			string(status), now, professorID)
		if err != nil {
			return nil, err
		}
	} else {
		_, err := db.ExecContext(ctx, `
UPDATE pipeline_status SET status = ? WHERE professor_id = ?;`, string(status), professorID)
		if err != nil {
			return nil, err
		}
	}

	return GetStatus(ctx, db, professorID)
}

func GetStatus(ctx context.Context, db *sql.DB, professorID int64) (*domain.PipelineStatus, error) {
	var st domain.PipelineStatus
	var status string
	var lastTouch, nextAction sql.NullString
	var followup int

	err := db.QueryRowContext(ctx, `
SELECT id, professor_id, status, last_touch_at, next_action_at, followup_recommended, notes
FROM pipeline_status WHERE professor_id = ?;`, professorID).
		Scan(&st.ID, &st.ProfessorID, &status, &lastTouch, &nextAction, &followup, &st.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	st.Status = domain.Status(status)
	st.FollowupRecommended = followup != 0
	st.LastTouchAt = parseNullTime(lastTouch)
	st.NextActionAt = parseNullTime(nextAction)
	return &st, nil
}

// SetFollowup records the derived flag.
func SetFollowup(ctx context.Context, db *sql.DB, professorID int64, recommended bool) error {
	v := 0
	if recommended {
		v = 1
	}
	_, err := db.ExecContext(ctx, `
UPDATE pipeline_status SET followup_recommended = ? WHERE professor_id = ?;`, v, professorID)
	return err
}

// ListAllStatuses returns every pipeline status row, for the followup
// recompute sweep.
func ListAllStatuses(ctx context.Context, db *sql.DB) ([]domain.PipelineStatus, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, professor_id, status, last_touch_at, next_action_at, followup_recommended, notes
FROM pipeline_status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PipelineStatus
	for rows.Next() {
		var st domain.PipelineStatus
		var status string
		var lastTouch, nextAction sql.NullString
		var followup int
		if err := rows.Scan(&st.ID, &st.ProfessorID, &status, &lastTouch, &nextAction, &followup, &st.Notes); err != nil {
			return nil, err
		}
		st.Status = domain.Status(status)
		st.FollowupRecommended = followup != 0
		st.LastTouchAt = parseNullTime(lastTouch)
		st.NextActionAt = parseNullTime(nextAction)
		out = append(out, st)
	}
	return out, rows.Err()
}
