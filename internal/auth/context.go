// ABOUTME: Identity type and context plumbing for request handlers
// ABOUTME: Provides WithIdentity/FromContext for propagating the admin identity

package auth

import (
	"context"
	"strings"
)

// Identity is the authenticated admin principal attached to a request.
// ID is the externally supplied identifier (e.g. a Telegram user id rendered
// as a string); the rest is display metadata.
type Identity struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty"`
}

// DisplayName returns a human-readable name for the identity, preferring the
// full name, then the username, then the bare id.
func (id *Identity) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(id.FirstName) + " " + strings.TrimSpace(id.LastName))
	if name != "" {
		return name
	}
	if id.Username != "" {
		return id.Username
	}
	return id.ID
}

// identityContextKey is the key type for storing an Identity in context.Context.
type identityContextKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityContextKey{})
	if val == nil {
		return nil
	}
	id, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return id
}

// MustFromContext retrieves the Identity from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Identity {
	id := FromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
