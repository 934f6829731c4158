package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"profreach-engine/internal/store"
)

var ErrBadCredentials = errors.New("incorrect email or password")

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func CheckPassword(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// Login verifies the credentials and mints an opaque session token.
func Login(ctx context.Context, db *sql.DB, email, password string, ttl time.Duration) (string, error) {
	userID, hashed, err := store.GetUserCredentials(ctx, db, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}
	if !CheckPassword(hashed, password) {
		return "", ErrBadCredentials
	}

	token := uuid.NewString()
	if err := store.InsertSession(ctx, db, token, userID, time.Now().UTC().Add(ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// UserFromToken resolves a bearer token to a user id. Expired or unknown
// tokens come back as store.ErrNotFound.
func UserFromToken(ctx context.Context, db *sql.DB, token string) (int64, error) {
	return store.SessionUser(ctx, db, token)
}

func Logout(ctx context.Context, db *sql.DB, token string) error {
	return store.DeleteSession(ctx, db, token)
}
