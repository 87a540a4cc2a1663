// ABOUTME: Group persistence on the SQLite store
// ABOUTME: Paginated listing with card counts and atomic card replacement

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ListGroups returns a page of groups with card counts plus the total count
// matching the filter. Groups are ordered by id ascending.
func (s *SQLiteStore) ListGroups(ctx context.Context, params ListGroupsParams) ([]*Group, int, error) {
	page, pageSize := clampPage(params.Page, params.PageSize)
	offset := (page - 1) * pageSize

	where := ""
	args := []any{}
	if params.OwnerID != nil {
		where = "WHERE g.owner_id = ?"
		args = append(args, *params.OwnerID)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM groups g %s`, where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting groups: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT g.id, g.title, g.description, g.owner_id, g.created_at, g.updated_at,
		       (SELECT COUNT(*) FROM cards c WHERE c.group_id = g.id) AS cards_count
		FROM groups g
		%s
		ORDER BY g.id ASC
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, pageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []*Group
	for rows.Next() {
		group, err := s.scanGroup(rows)
		if err != nil {
			return nil, 0, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating group rows: %w", err)
	}

	return groups, total, nil
}

// GetGroup retrieves a group with its cards ordered by id.
// Returns ErrNotFound if the group doesn't exist.
func (s *SQLiteStore) GetGroup(ctx context.Context, id int64) (*Group, error) {
	query := `
		SELECT g.id, g.title, g.description, g.owner_id, g.created_at, g.updated_at,
		       (SELECT COUNT(*) FROM cards c WHERE c.group_id = g.id) AS cards_count
		FROM groups g
		WHERE g.id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	group, err := s.scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cards, err := s.groupCards(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Cards = cards

	return group, nil
}

// CreateGroup inserts a new group and fills in its assigned id.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *Group) error {
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (title, description, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		group.Title,
		nullPtr(group.Description),
		nullPtr(group.OwnerID),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading group id: %w", err)
	}
	group.ID = id

	s.logger.Debug("created group", "id", id, "title", group.Title)
	return nil
}

// UpdateGroup rewrites a group's title and description.
// Returns ErrNotFound if the group doesn't exist.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *Group) error {
	group.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE groups
		SET title = ?, description = ?, updated_at = ?
		WHERE id = ?
	`,
		group.Title,
		nullPtr(group.Description),
		group.UpdatedAt.Format(time.RFC3339),
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("updating group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteGroup removes a group; its cards cascade away with it.
// Returns ErrNotFound if the group doesn't exist.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted group", "id", id)
	return nil
}

// ReplaceGroupCards atomically replaces all cards of a group inside a
// transaction and returns the refreshed group.
// Returns ErrNotFound if the group doesn't exist.
func (s *SQLiteStore) ReplaceGroupCards(ctx context.Context, groupID int64, cards []*Card) (*Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups WHERE id = ?`, groupID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking group: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE group_id = ?`, groupID); err != nil {
		return nil, fmt.Errorf("clearing cards: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, card := range cards {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cards (group_id, term, definition, example, image, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			groupID,
			card.Term,
			card.Definition,
			nullPtr(card.Example),
			nullPtr(card.Image),
			now,
		); err != nil {
			return nil, fmt.Errorf("inserting card: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE groups SET updated_at = ? WHERE id = ?`, now, groupID); err != nil {
		return nil, fmt.Errorf("touching group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing card replacement: %w", err)
	}

	s.logger.Debug("replaced group cards", "group_id", groupID, "cards", len(cards))
	return s.GetGroup(ctx, groupID)
}

// groupCards loads all cards of a group ordered by id.
func (s *SQLiteStore) groupCards(ctx context.Context, groupID int64) ([]*Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, term, definition, example, image, created_at
		FROM cards
		WHERE group_id = ?
		ORDER BY id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*Card
	for rows.Next() {
		var card Card
		var example, image sql.NullString
		var createdAt string
		if err := rows.Scan(
			&card.ID,
			&card.GroupID,
			&card.Term,
			&card.Definition,
			&example,
			&image,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning card row: %w", err)
		}
		card.Example = ptrFromNull(example)
		card.Image = ptrFromNull(image)
		card.CreatedAt = parseStoredTime(createdAt, "cards.created_at", fmt.Sprint(card.ID), s.logger)
		cards = append(cards, &card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating card rows: %w", err)
	}

	return cards, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanGroup(row rowScanner) (*Group, error) {
	var group Group
	var description, ownerID sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&group.ID,
		&group.Title,
		&description,
		&ownerID,
		&createdAt,
		&updatedAt,
		&group.CardsCount,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning group row: %w", err)
	}

	group.Description = ptrFromNull(description)
	group.OwnerID = ptrFromNull(ownerID)
	group.CreatedAt = parseStoredTime(createdAt, "groups.created_at", fmt.Sprint(group.ID), s.logger)
	group.UpdatedAt = parseStoredTime(updatedAt, "groups.updated_at", fmt.Sprint(group.ID), s.logger)

	return &group, nil
}

// clampPage normalizes pagination inputs: page >= 1, 1 <= pageSize <= 200
// with a default of 10.
func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
