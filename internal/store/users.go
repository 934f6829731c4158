package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"profreach-engine/pkg/domain"
)

var ErrEmailTaken = errors.New("email already registered")

func CreateUser(ctx context.Context, db *sql.DB, email, hashedPassword string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, errors.New("email is required")
	}

	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
INSERT INTO users(email, hashed_password, created_at) VALUES(?,?,?);`,
		email, hashedPassword, now.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	u := domain.User{Email: email, CreatedAt: now}
	u.ID, _ = res.LastInsertId()
	return u, nil
}

// GetUserCredentials returns the user id and bcrypt hash for a login attempt.
func GetUserCredentials(ctx context.Context, db *sql.DB, email string) (int64, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var id int64
	var hash string
	err := db.QueryRowContext(ctx, `
SELECT id, hashed_password FROM users WHERE email = ?;`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	return id, hash, err
}

func InsertSession(ctx context.Context, db *sql.DB, token string, userID int64, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO sessions(token, user_id, expires_at) VALUES(?,?,?);`,
		token, userID, expiresAt.UTC().Format(time.RFC3339))
	return err
}

// SessionUser resolves a bearer token to the owning user id, rejecting
// unknown and expired tokens alike.
func SessionUser(ctx context.Context, db *sql.DB, token string) (int64, error) {
	var userID int64
	var expiresAt string
	err := db.QueryRowContext(ctx, `
SELECT user_id, expires_at FROM sessions WHERE token = ?;`, token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	exp, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || time.Now().UTC().After(exp) {
		return 0, ErrNotFound
	}
	return userID, nil
}

func DeleteSession(ctx context.Context, db *sql.DB, token string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?;`, token)
	return err
}

// PurgeExpiredSessions drops sessions past their expiry.
func PurgeExpiredSessions(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?;`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
