package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Avatar verification runs vision-model calls, so results are cached per
// website for a day to avoid repeated AI work on the same page.
const avatarCacheTTL = 24 * time.Hour

// CachedAvatar returns (url, found). found is true for negative results too:
// an empty url means "checked recently, no photo there".
func CachedAvatar(ctx context.Context, db *sql.DB, websiteURL string) (string, bool, error) {
	var avatarURL, checkedAt string
	err := db.QueryRowContext(ctx, `
SELECT avatar_url, checked_at FROM avatar_cache WHERE website_url = ?;`, websiteURL).
		Scan(&avatarURL, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	at, err := time.Parse(time.RFC3339, checkedAt)
	if err != nil || time.Since(at) > avatarCacheTTL {
		return "", false, nil
	}
	return avatarURL, true, nil
}

func CacheAvatar(ctx context.Context, db *sql.DB, websiteURL, avatarURL string) error {
	_, err := db.ExecContext(ctx, `
INSERT OR REPLACE INTO avatar_cache(website_url, avatar_url, checked_at)
VALUES(?,?,?);`, websiteURL, avatarURL, time.Now().UTC().Format(time.RFC3339))
	return err
}
