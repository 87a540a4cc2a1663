// ABOUTME: Store interfaces and data types for kartos persistence
// ABOUTME: Defines Admin, Group, Card structs and the narrow store interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAdminExists is returned when creating an admin whose id is already taken.
var ErrAdminExists = errors.New("admin identity already exists")

// Admin is a persisted admin identity. The nullable hashes encode the claim
// state machine: no secret hash means the id is not yet claimed by a secret;
// the claim-token hash gates binding one.
type Admin struct {
	ID             string
	SecretHash     *string
	ClaimTokenHash *string
	DisplayName    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Group is a flashcard deck. OwnerID references Admin.ID; a nil owner marks a
// legacy group created before ownership existed. CardsCount is populated on
// list reads, Cards on single-group reads.
type Group struct {
	ID          int64
	Title       string
	Description *string
	OwnerID     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CardsCount  int
	Cards       []*Card
}

// Card is a term/definition pair within a group.
type Card struct {
	ID         int64
	GroupID    int64
	Term       string
	Definition string
	Example    *string
	Image      *string
	CreatedAt  time.Time
}

// CardGroupRef is the group summary attached to cards on list reads.
type CardGroupRef struct {
	ID    int64
	Title string
}

// CardWithGroup is a card joined with its group summary.
type CardWithGroup struct {
	Card
	Group CardGroupRef
}

// ListGroupsParams controls group listing. A non-nil OwnerID restricts the
// listing to groups owned by that id (visibility mode "owned").
type ListGroupsParams struct {
	Page     int
	PageSize int
	OwnerID  *string
}

// ListCardsParams controls card listing.
type ListCardsParams struct {
	Page     int
	PageSize int
}

// AdminStore defines admin identity persistence.
type AdminStore interface {
	// CreateAdmin inserts a new identity row, failing with ErrAdminExists
	// when the id is already present.
	CreateAdmin(ctx context.Context, admin *Admin) error
	GetAdmin(ctx context.Context, id string) (*Admin, error)
	// UpdateAdmin rewrites the mutable columns of an existing row.
	UpdateAdmin(ctx context.Context, admin *Admin) error
	// CountGroupsOwnedBy reports how many groups reference the owner id.
	CountGroupsOwnedBy(ctx context.Context, ownerID string) (int, error)
}

// GroupStore defines group persistence.
type GroupStore interface {
	ListGroups(ctx context.Context, params ListGroupsParams) ([]*Group, int, error)
	GetGroup(ctx context.Context, id int64) (*Group, error)
	CreateGroup(ctx context.Context, group *Group) error
	UpdateGroup(ctx context.Context, group *Group) error
	DeleteGroup(ctx context.Context, id int64) error
	// ReplaceGroupCards atomically replaces all cards of a group and returns
	// the refreshed group with its new cards.
	ReplaceGroupCards(ctx context.Context, groupID int64, cards []*Card) (*Group, error)
}

// CardStore defines card reads.
type CardStore interface {
	ListCards(ctx context.Context, params ListCardsParams) ([]*CardWithGroup, int, error)
	GetCard(ctx context.Context, id int64) (*CardWithGroup, error)
}

// Store combines all persistence surfaces plus lifecycle.
type Store interface {
	AdminStore
	GroupStore
	CardStore
	Close() error
}
