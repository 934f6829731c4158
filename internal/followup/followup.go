package followup

import (
	"context"
	"database/sql"
	"log"
	"time"

	"profreach-engine/internal/store"
	"profreach-engine/pkg/domain"
)

// Recommended reports whether a followup nudge applies to the given status
// row. Only professors stuck in Sent qualify; terminal stages never do.
func Recommended(st domain.PipelineStatus, afterDays int, now time.Time) bool {
	if st.Status != domain.StatusSent {
		return false
	}
	if st.LastTouchAt == nil {
		return false
	}
	return now.Sub(*st.LastTouchAt) > time.Duration(afterDays)*24*time.Hour
}

// Recompute sweeps every pipeline row and persists the derived flag where it
// changed. Runs on a schedule and once at startup.
func Recompute(ctx context.Context, db *sql.DB, afterDays int) error {
	statuses, err := store.ListAllStatuses(ctx, db)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	changed := 0
	for _, st := range statuses {
		want := Recommended(st, afterDays, now)
		if want == st.FollowupRecommended {
			continue
		}
		if err := store.SetFollowup(ctx, db, st.ProfessorID, want); err != nil {
			return err
		}
		changed++
	}
	if changed > 0 {
		log.Printf("[followup] recompute updated %d rows", changed)
	}
	return nil
}
