package store

import (
	"database/sql"
)

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  hashed_password TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  expires_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS professors (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  affiliation TEXT NOT NULL DEFAULT '',
  website_url TEXT NOT NULL DEFAULT '',
  avatar_url TEXT NOT NULL DEFAULT '',
  target_role TEXT NOT NULL DEFAULT 'summer_intern',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS pipeline_status (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  professor_id INTEGER NOT NULL UNIQUE REFERENCES professors(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'Draft',
  last_touch_at TEXT,
  next_action_at TEXT,
  followup_recommended INTEGER NOT NULL DEFAULT 0,
  notes TEXT NOT NULL DEFAULT ''
);`,
		`
CREATE TABLE IF NOT EXISTS source_pages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  professor_id INTEGER NOT NULL REFERENCES professors(id) ON DELETE CASCADE,
  source_url TEXT NOT NULL,
  fetch_status TEXT NOT NULL,
  raw_text TEXT NOT NULL DEFAULT '',
  error_msg TEXT NOT NULL DEFAULT '',
  fetched_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS professor_cards (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  professor_id INTEGER NOT NULL REFERENCES professors(id) ON DELETE CASCADE,
  version INTEGER NOT NULL,
  card_md TEXT NOT NULL,
  card_json TEXT NOT NULL,
  generated_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS email_drafts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  professor_id INTEGER NOT NULL REFERENCES professors(id) ON DELETE CASCADE,
  template TEXT NOT NULL,
  tone TEXT NOT NULL,
  length TEXT NOT NULL,
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS avatar_cache (
  website_url TEXT PRIMARY KEY,
  avatar_url TEXT NOT NULL DEFAULT '',
  checked_at TEXT NOT NULL
);`,

		// ---- Schema v1: indexes ----

		`CREATE INDEX IF NOT EXISTS idx_professors_user ON professors(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_source_pages_prof ON source_pages(professor_id, fetched_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_prof ON professor_cards(professor_id, version);`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_prof ON email_drafts(professor_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expires_at);`,

		`PRAGMA user_version = 1;`,
	}

	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}

	return tx.Commit()
}
