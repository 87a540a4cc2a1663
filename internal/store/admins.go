// ABOUTME: Admin identity persistence on the SQLite store
// ABOUTME: Create-or-fail semantics on the id resolve concurrent first logins

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateAdmin inserts a new admin identity row.
// Returns ErrAdminExists when the id is already present; callers rely on this
// to resolve two concurrent first logins racing to create the same identity.
func (s *SQLiteStore) CreateAdmin(ctx context.Context, admin *Admin) error {
	now := time.Now().UTC()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	admin.UpdatedAt = now

	query := `
		INSERT INTO admins (id, secret_hash, claim_token_hash, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		admin.ID,
		nullPtr(admin.SecretHash),
		nullPtr(admin.ClaimTokenHash),
		nullPtr(admin.DisplayName),
		admin.CreatedAt.Format(time.RFC3339),
		admin.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrAdminExists
		}
		return fmt.Errorf("inserting admin: %w", err)
	}

	s.logger.Debug("created admin identity", "id", admin.ID)
	return nil
}

// GetAdmin retrieves an admin identity by id.
// Returns ErrNotFound if the identity doesn't exist.
func (s *SQLiteStore) GetAdmin(ctx context.Context, id string) (*Admin, error) {
	query := `
		SELECT id, secret_hash, claim_token_hash, display_name, created_at, updated_at
		FROM admins
		WHERE id = ?
	`

	var admin Admin
	var secretHash, claimHash, displayName sql.NullString
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&admin.ID,
		&secretHash,
		&claimHash,
		&displayName,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying admin: %w", err)
	}

	admin.SecretHash = ptrFromNull(secretHash)
	admin.ClaimTokenHash = ptrFromNull(claimHash)
	admin.DisplayName = ptrFromNull(displayName)
	admin.CreatedAt = parseStoredTime(createdAt, "admins.created_at", admin.ID, s.logger)
	admin.UpdatedAt = parseStoredTime(updatedAt, "admins.updated_at", admin.ID, s.logger)

	return &admin, nil
}

// UpdateAdmin rewrites the mutable columns of an existing identity row.
// Returns ErrNotFound if the identity doesn't exist. The write is a single
// statement: a failed update leaves the row untouched.
func (s *SQLiteStore) UpdateAdmin(ctx context.Context, admin *Admin) error {
	admin.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE admins
		SET secret_hash = ?, claim_token_hash = ?, display_name = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		nullPtr(admin.SecretHash),
		nullPtr(admin.ClaimTokenHash),
		nullPtr(admin.DisplayName),
		admin.UpdatedAt.Format(time.RFC3339),
		admin.ID,
	)
	if err != nil {
		return fmt.Errorf("updating admin: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated admin identity", "id", admin.ID)
	return nil
}

// CountGroupsOwnedBy reports how many groups reference the owner id.
func (s *SQLiteStore) CountGroupsOwnedBy(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM groups WHERE owner_id = ?`, ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting owned groups: %w", err)
	}
	return count, nil
}
