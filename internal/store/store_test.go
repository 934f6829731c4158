package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"profreach-engine/pkg/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db.Pool); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return db.Pool
}

func seedUser(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	u, err := CreateUser(context.Background(), db, "me@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	return u.ID
}

func seedProfessor(t *testing.T, db *sql.DB, userID int64) int64 {
	t.Helper()
	id, err := CreateProfessor(context.Background(), db, userID, NewProfessor{
		Name:        "Jane Doe",
		Affiliation: "MIT",
		WebsiteURL:  "https://example.edu/~jdoe",
		TargetRole:  domain.RolePhD,
	})
	if err != nil {
		t.Fatalf("CreateProfessor() error: %v", err)
	}
	return id
}

func TestCreateProfessorDefaultStatus(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	prof, err := GetProfessor(context.Background(), db, userID, id)
	if err != nil {
		t.Fatalf("GetProfessor() error: %v", err)
	}
	if prof.PipelineStatus == nil {
		t.Fatal("expected pipeline status row")
	}
	if prof.PipelineStatus.Status != domain.StatusDraft {
		t.Errorf("status = %q, want Draft", prof.PipelineStatus.Status)
	}
	if prof.PipelineStatus.FollowupRecommended {
		t.Error("new professor should not have followup recommended")
	}
	if len(prof.SourcePages) != 0 || len(prof.ProfessorCards) != 0 || len(prof.EmailDrafts) != 0 {
		t.Error("new professor should have empty collections, not nil-skipped ones")
	}
}

func TestCardVersionsAppendOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	for i := 1; i <= 3; i++ {
		c, err := InsertCard(ctx, db, id, "# md", `{"summary":"s"}`)
		if err != nil {
			t.Fatalf("InsertCard() error: %v", err)
		}
		if c.Version != i {
			t.Errorf("version = %d, want %d", c.Version, i)
		}
	}

	cards, err := ListCards(ctx, db, id)
	if err != nil {
		t.Fatalf("ListCards() error: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(cards))
	}
	for i, c := range cards {
		if c.Version != i+1 {
			t.Errorf("cards[%d].Version = %d, want %d", i, c.Version, i+1)
		}
	}

	latest, err := LatestCard(ctx, db, id)
	if err != nil {
		t.Fatalf("LatestCard() error: %v", err)
	}
	if latest.Version != 3 {
		t.Errorf("latest version = %d, want 3", latest.Version)
	}
}

func TestSourcePagesNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := InsertSourcePage(ctx, db, domain.SourcePage{
			ProfessorID: id,
			SourceURL:   "https://example.edu/p",
			FetchStatus: domain.FetchSuccess,
			RawText:     "text",
			FetchedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("InsertSourcePage() error: %v", err)
		}
	}

	pages, err := ListSourcePages(ctx, db, id)
	if err != nil {
		t.Fatalf("ListSourcePages() error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	for i := 1; i < len(pages); i++ {
		if pages[i].FetchedAt.After(pages[i-1].FetchedAt) {
			t.Errorf("pages not newest-first at index %d", i)
		}
	}
}

func TestLatestSourceTextSkipsFailures(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	now := time.Now().UTC()
	_, err := InsertSourcePage(ctx, db, domain.SourcePage{
		ProfessorID: id, SourceURL: "https://a", FetchStatus: domain.FetchSuccess,
		RawText: "older text", FetchedAt: now.Add(-time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = InsertSourcePage(ctx, db, domain.SourcePage{
		ProfessorID: id, SourceURL: "https://b", FetchStatus: domain.FetchFailed,
		ErrorMsg: "timeout", FetchedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}

	text, err := LatestSourceText(ctx, db, id)
	if err != nil {
		t.Fatalf("LatestSourceText() error: %v", err)
	}
	if text != "older text" {
		t.Errorf("text = %q, want the latest successful fetch", text)
	}
}

func TestLatestSourceTextEmpty(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	text, err := LatestSourceText(ctx, db, id)
	if err != nil {
		t.Fatalf("LatestSourceText() error: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestUpdateStatusUnrestrictedTransitions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	// no funnel ordering: straight to a terminal state and back out
	st, err := UpdateStatus(ctx, db, id, domain.StatusOffer)
	if err != nil {
		t.Fatalf("UpdateStatus(Offer) error: %v", err)
	}
	if st.Status != domain.StatusOffer {
		t.Errorf("status = %q, want Offer", st.Status)
	}

	st, err = UpdateStatus(ctx, db, id, domain.StatusSent)
	if err != nil {
		t.Fatalf("UpdateStatus(Sent) after Offer error: %v", err)
	}
	if st.Status != domain.StatusSent {
		t.Errorf("status = %q, want Sent", st.Status)
	}
}

func TestUpdateStatusBumpsLastTouch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	st, err := UpdateStatus(ctx, db, id, domain.StatusSent)
	if err != nil {
		t.Fatalf("UpdateStatus(Sent) error: %v", err)
	}
	if st.Status != domain.StatusSent {
		t.Errorf("status = %q, want Sent", st.Status)
	}
	if st.LastTouchAt == nil {
		t.Fatal("Sent should set last_touch_at")
	}

	st, err = UpdateStatus(ctx, db, id, domain.StatusMeeting)
	if err != nil {
		t.Fatalf("UpdateStatus(Meeting) error: %v", err)
	}
	if st.Status != domain.StatusMeeting {
		t.Errorf("status = %q, want Meeting", st.Status)
	}

	if _, err := UpdateStatus(ctx, db, id, domain.Status("Ghosted")); err == nil {
		t.Error("unknown status should be rejected")
	}
}

func TestDeleteProfessorCascades(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	if _, err := InsertCard(ctx, db, id, "md", "{}"); err != nil {
		t.Fatal(err)
	}
	if _, err := InsertSourcePage(ctx, db, domain.SourcePage{
		ProfessorID: id, SourceURL: "https://a", FetchStatus: domain.FetchSuccess, RawText: "t",
	}); err != nil {
		t.Fatal(err)
	}

	if err := DeleteProfessor(ctx, db, userID, id); err != nil {
		t.Fatalf("DeleteProfessor() error: %v", err)
	}

	if _, err := GetProfessor(ctx, db, userID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProfessor after delete = %v, want ErrNotFound", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM professor_cards WHERE professor_id = ?;`, id).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("cards remaining after delete = %d, want 0", n)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM source_pages WHERE professor_id = ?;`, id).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("source pages remaining after delete = %d, want 0", n)
	}

	if err := DeleteProfessor(ctx, db, userID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestProfessorsAreUserScoped(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	id := seedProfessor(t, db, userID)

	other, err := CreateUser(ctx, db, "other@example.com", "hash")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := GetProfessor(ctx, db, other.ID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user GetProfessor = %v, want ErrNotFound", err)
	}
	ok, err := OwnsProfessor(ctx, db, other.ID, id)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("professor should not be visible to another user")
	}
}

func TestSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)

	if err := InsertSession(ctx, db, "tok-live", userID, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := InsertSession(ctx, db, "tok-dead", userID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := SessionUser(ctx, db, "tok-live")
	if err != nil {
		t.Fatalf("SessionUser(live) error: %v", err)
	}
	if got != userID {
		t.Errorf("user = %d, want %d", got, userID)
	}

	if _, err := SessionUser(ctx, db, "tok-dead"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired token = %v, want ErrNotFound", err)
	}
	if _, err := SessionUser(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown token = %v, want ErrNotFound", err)
	}

	n, err := PurgeExpiredSessions(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
}

func TestDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedUser(t, db)

	if _, err := CreateUser(ctx, db, "ME@example.com", "hash2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email = %v, want ErrEmailTaken", err)
	}
}

func TestAwaitingReply(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db)
	sent := seedProfessor(t, db, userID)
	draft := seedProfessor(t, db, userID)

	if _, err := UpdateStatus(ctx, db, sent, domain.StatusSent); err != nil {
		t.Fatal(err)
	}

	waiting, err := AwaitingReply(ctx, db)
	if err != nil {
		t.Fatalf("AwaitingReply() error: %v", err)
	}
	if len(waiting) != 1 {
		t.Fatalf("got %d waiting, want 1", len(waiting))
	}
	if waiting[0].ID != sent {
		t.Errorf("waiting id = %d, want %d (not %d)", waiting[0].ID, sent, draft)
	}
}
