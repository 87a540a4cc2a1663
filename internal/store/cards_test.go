// ABOUTME: Tests for card reads
// ABOUTME: Covers listing with group joins, pagination and single lookups

package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &Group{Title: "First deck"}
	require.NoError(t, s.CreateGroup(ctx, first))
	second := &Group{Title: "Second deck"}
	require.NoError(t, s.CreateGroup(ctx, second))

	_, err := s.ReplaceGroupCards(ctx, first.ID, []*Card{
		{Term: "alpha", Definition: "альфа"},
		{Term: "beta", Definition: "бета"},
	})
	require.NoError(t, err)
	_, err = s.ReplaceGroupCards(ctx, second.ID, []*Card{
		{Term: "gamma", Definition: "гамма"},
	})
	require.NoError(t, err)

	cards, total, err := s.ListCards(ctx, ListCardsParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, cards, 3)

	assert.Equal(t, "alpha", cards[0].Term)
	assert.Equal(t, first.ID, cards[0].Group.ID)
	assert.Equal(t, "First deck", cards[0].Group.Title)
	assert.Equal(t, "gamma", cards[2].Term)
	assert.Equal(t, "Second deck", cards[2].Group.Title)
}

func TestListCards_Pagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	group := &Group{Title: "Big deck"}
	require.NoError(t, s.CreateGroup(ctx, group))

	many := make([]*Card, 0, 15)
	for i := 1; i <= 15; i++ {
		many = append(many, &Card{
			Term:       fmt.Sprintf("term %02d", i),
			Definition: fmt.Sprintf("definition %02d", i),
		})
	}
	_, err := s.ReplaceGroupCards(ctx, group.ID, many)
	require.NoError(t, err)

	cards, total, err := s.ListCards(ctx, ListCardsParams{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	require.Len(t, cards, 5)
	assert.Equal(t, "term 11", cards[0].Term)
}

func TestGetCard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	group := &Group{Title: "Deck"}
	require.NoError(t, s.CreateGroup(ctx, group))
	updated, err := s.ReplaceGroupCards(ctx, group.ID, []*Card{
		{Term: "solo", Definition: "соло", Image: strPtr("https://example.com/img.png")},
	})
	require.NoError(t, err)
	require.Len(t, updated.Cards, 1)

	got, err := s.GetCard(ctx, updated.Cards[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "solo", got.Term)
	assert.Equal(t, group.ID, got.GroupID)
	assert.Equal(t, "Deck", got.Group.Title)
	require.NotNil(t, got.Image)
	assert.Equal(t, "https://example.com/img.png", *got.Image)
}

func TestGetCard_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCard(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
