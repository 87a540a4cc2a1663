// ABOUTME: Tests for admin identity persistence
// ABOUTME: Covers create-or-fail semantics, updates and ownership counting

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestCreateAdmin_AndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &Admin{
		ID:             "42",
		SecretHash:     strPtr("secret-hash"),
		ClaimTokenHash: strPtr("claim-hash"),
		DisplayName:    strPtr("Ada"),
	}
	require.NoError(t, s.CreateAdmin(ctx, admin))
	assert.False(t, admin.CreatedAt.IsZero())

	got, err := s.GetAdmin(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", got.ID)
	require.NotNil(t, got.SecretHash)
	assert.Equal(t, "secret-hash", *got.SecretHash)
	require.NotNil(t, got.DisplayName)
	assert.Equal(t, "Ada", *got.DisplayName)
}

func TestCreateAdmin_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateAdmin(ctx, &Admin{ID: "42"}))

	err := s.CreateAdmin(ctx, &Admin{ID: "42"})
	assert.ErrorIs(t, err, ErrAdminExists)
}

func TestCreateAdmin_NullableColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A row created by an externally verified login carries no hashes.
	require.NoError(t, s.CreateAdmin(ctx, &Admin{ID: "42"}))

	got, err := s.GetAdmin(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, got.SecretHash)
	assert.Nil(t, got.ClaimTokenHash)
	assert.Nil(t, got.DisplayName)
}

func TestGetAdmin_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAdmin(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &Admin{ID: "42", SecretHash: strPtr("old-hash")}
	require.NoError(t, s.CreateAdmin(ctx, admin))

	admin.SecretHash = strPtr("new-hash")
	admin.ClaimTokenHash = strPtr("new-claim")
	admin.DisplayName = strPtr("Ada Lovelace")
	require.NoError(t, s.UpdateAdmin(ctx, admin))

	got, err := s.GetAdmin(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", *got.SecretHash)
	assert.Equal(t, "new-claim", *got.ClaimTokenHash)
	assert.Equal(t, "Ada Lovelace", *got.DisplayName)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

func TestUpdateAdmin_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateAdmin(context.Background(), &Admin{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountGroupsOwnedBy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.CountGroupsOwnedBy(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.CreateGroup(ctx, &Group{Title: "First", OwnerID: strPtr("42")}))
	require.NoError(t, s.CreateGroup(ctx, &Group{Title: "Second", OwnerID: strPtr("42")}))
	require.NoError(t, s.CreateGroup(ctx, &Group{Title: "Someone else's", OwnerID: strPtr("7")}))
	require.NoError(t, s.CreateGroup(ctx, &Group{Title: "Ownerless"}))

	count, err = s.CountGroupsOwnedBy(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
