package auth

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"profreach-engine/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db.Pool); err != nil {
		t.Fatalf("store.Migrate() error: %v", err)
	}
	return db.Pool
}

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if hashed == "hunter22" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword(hashed, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hashed, "hunter23") {
		t.Error("wrong password accepted")
	}
}

func TestLoginFlow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hashed, err := HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	u, err := store.CreateUser(ctx, db, "me@example.com", hashed)
	if err != nil {
		t.Fatal(err)
	}

	token, err := Login(ctx, db, "me@example.com", "hunter22", time.Hour)
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	userID, err := UserFromToken(ctx, db, token)
	if err != nil {
		t.Fatalf("UserFromToken() error: %v", err)
	}
	if userID != u.ID {
		t.Errorf("user = %d, want %d", userID, u.ID)
	}

	if err := Logout(ctx, db, token); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := UserFromToken(ctx, db, token); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("token after logout = %v, want ErrNotFound", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hashed, _ := HashPassword("hunter22")
	if _, err := store.CreateUser(ctx, db, "me@example.com", hashed); err != nil {
		t.Fatal(err)
	}

	if _, err := Login(ctx, db, "me@example.com", "wrong", time.Hour); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password = %v, want ErrBadCredentials", err)
	}
	if _, err := Login(ctx, db, "nobody@example.com", "hunter22", time.Hour); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown email = %v, want ErrBadCredentials", err)
	}
}
