// ABOUTME: Card read operations on the SQLite store
// ABOUTME: Paginated listing joined with the owning group summary

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ListCards returns a page of cards joined with their group summary plus the
// total card count. Cards are ordered by id ascending.
func (s *SQLiteStore) ListCards(ctx context.Context, params ListCardsParams) ([]*CardWithGroup, int, error) {
	page, pageSize := clampPage(params.Page, params.PageSize)
	offset := (page - 1) * pageSize

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting cards: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.group_id, c.term, c.definition, c.example, c.image, c.created_at,
		       g.id, g.title
		FROM cards c
		JOIN groups g ON g.id = c.group_id
		ORDER BY c.id ASC
		LIMIT ? OFFSET ?
	`, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*CardWithGroup
	for rows.Next() {
		card, err := s.scanCardWithGroup(rows)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating card rows: %w", err)
	}

	return cards, total, nil
}

// GetCard retrieves a single card with its group summary.
// Returns ErrNotFound if the card doesn't exist.
func (s *SQLiteStore) GetCard(ctx context.Context, id int64) (*CardWithGroup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.group_id, c.term, c.definition, c.example, c.image, c.created_at,
		       g.id, g.title
		FROM cards c
		JOIN groups g ON g.id = c.group_id
		WHERE c.id = ?
	`, id)

	card, err := s.scanCardWithGroup(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s *SQLiteStore) scanCardWithGroup(row rowScanner) (*CardWithGroup, error) {
	var card CardWithGroup
	var example, image sql.NullString
	var createdAt string

	err := row.Scan(
		&card.ID,
		&card.GroupID,
		&card.Term,
		&card.Definition,
		&example,
		&image,
		&createdAt,
		&card.Group.ID,
		&card.Group.Title,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning card row: %w", err)
	}

	card.Example = ptrFromNull(example)
	card.Image = ptrFromNull(image)
	card.CreatedAt = parseStoredTime(createdAt, "cards.created_at", fmt.Sprint(card.ID), s.logger)

	return &card, nil
}
