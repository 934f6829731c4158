package store

import (
	"context"
	"database/sql"
	"time"

	"profreach-engine/pkg/domain"
)

// InsertCard appends a new card with the next per-professor version. Prior
// cards are never touched.
func InsertCard(ctx context.Context, db *sql.DB, professorID int64, cardMD, cardJSON string) (domain.ProfessorCard, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProfessorCard{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var maxVersion int
	if err := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(version), 0) FROM professor_cards WHERE professor_id = ?;`, professorID).Scan(&maxVersion); err != nil {
		return domain.ProfessorCard{}, err
	}

	card := domain.ProfessorCard{
		ProfessorID: professorID,
		Version:     maxVersion + 1,
		CardMD:      cardMD,
		CardJSON:    cardJSON,
		GeneratedAt: time.Now().UTC(),
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO professor_cards(professor_id, version, card_md, card_json, generated_at)
VALUES(?,?,?,?,?);`,
		card.ProfessorID, card.Version, card.CardMD, card.CardJSON,
		card.GeneratedAt.Format(time.RFC3339))
	if err != nil {
		return domain.ProfessorCard{}, err
	}
	card.ID, _ = res.LastInsertId()
	return card, tx.Commit()
}

// ListCards returns cards in append order; the last one is the latest.
func ListCards(ctx context.Context, db *sql.DB, professorID int64) ([]domain.ProfessorCard, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, professor_id, version, card_md, card_json, generated_at
FROM professor_cards
WHERE professor_id = ?
ORDER BY version ASC;`, professorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ProfessorCard{}
	for rows.Next() {
		var c domain.ProfessorCard
		var generatedAt string
		if err := rows.Scan(&c.ID, &c.ProfessorID, &c.Version, &c.CardMD, &c.CardJSON, &generatedAt); err != nil {
			return nil, err
		}
		c.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestCard returns the newest card, or nil when none exist.
func LatestCard(ctx context.Context, db *sql.DB, professorID int64) (*domain.ProfessorCard, error) {
	cards, err := ListCards(ctx, db, professorID)
	if err != nil || len(cards) == 0 {
		return nil, err
	}
	return &cards[len(cards)-1], nil
}
