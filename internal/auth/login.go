// ABOUTME: Identity-mode login service implementing the claim-token state machine
// ABOUTME: Binds secrets to admin ids and gates contested ids behind claim tokens

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kartos-app/kartos/internal/store"
)

// IdentityStore is the persistence surface the login service depends on.
// CreateAdmin must fail with store.ErrAdminExists when the id is already
// present; that uniqueness constraint is what resolves concurrent first
// logins for the same id.
type IdentityStore interface {
	GetAdmin(ctx context.Context, id string) (*store.Admin, error)
	CreateAdmin(ctx context.Context, admin *store.Admin) error
	UpdateAdmin(ctx context.Context, admin *store.Admin) error
	CountGroupsOwnedBy(ctx context.Context, ownerID string) (int, error)
}

// SecretLogin is an identity-mode login attempt.
type SecretLogin struct {
	ID          string
	Secret      string
	ClaimToken  string
	DisplayName string
}

// LoginResult is a successful login. ClaimToken carries the plaintext of a
// freshly generated claim token and is empty when none was generated; a
// matched existing token is consumed silently, never echoed.
type LoginResult struct {
	Identity   *Identity
	ClaimToken string
}

// LoginService implements identity-mode login and claim-token management.
type LoginService struct {
	admins IdentityStore
	logger *slog.Logger
}

// NewLoginService creates a login service over the given identity store.
func NewLoginService(admins IdentityStore) *LoginService {
	return &LoginService{
		admins: admins,
		logger: slog.Default().With("component", "auth"),
	}
}

// Login runs the identity-mode state machine:
//
//   - unseen id owning nothing: create the identity, bind the secret, issue a
//     fresh claim token for future recovery
//   - unseen id that already owns groups: demand a claim token (which, with no
//     row to match against, can only have been issued out-of-band)
//   - existing row without a secret: demand the matching claim token, then bind
//   - existing row with a secret: the secret must match; a missing or stale
//     claim token triggers a passive rotation, and a stale one is answered
//     with the replacement plaintext
//
// Row updates are all-or-nothing: nothing is persisted on any failure path.
func (s *LoginService) Login(ctx context.Context, req SecretLogin) (*LoginResult, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, ErrIdentityNotDetermined
	}
	if req.Secret == "" {
		return nil, ErrMissingSecret
	}

	admin, err := s.admins.GetAdmin(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.loginUnseen(ctx, id, req)
	case err != nil:
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	return s.loginExisting(ctx, admin, req)
}

// loginUnseen handles an id with no identity row yet.
func (s *LoginService) loginUnseen(ctx context.Context, id string, req SecretLogin) (*LoginResult, error) {
	owned, err := s.admins.CountGroupsOwnedBy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("counting owned groups: %w", err)
	}
	if owned > 0 {
		// Legacy ownership: groups exist for this id but no credential was
		// ever bound. Binding requires a server-issued claim token, and with
		// no row there is no token on record to match.
		if req.ClaimToken == "" {
			return nil, ErrMissingClaimToken
		}
		s.logger.Warn("claim token presented for id with no issued token", "id", id)
		return nil, ErrClaimTokenMismatch
	}

	claimToken, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	secretHash := HashSecret(req.Secret)
	claimHash := HashSecret(claimToken)
	admin := &store.Admin{
		ID:             id,
		SecretHash:     &secretHash,
		ClaimTokenHash: &claimHash,
	}
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		admin.DisplayName = &name
	}

	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrAdminExists) {
			// Lost a race with a concurrent first login; re-read and proceed
			// as a returning admin.
			existing, getErr := s.admins.GetAdmin(ctx, id)
			if getErr != nil {
				return nil, fmt.Errorf("reloading identity after create race: %w", getErr)
			}
			return s.loginExisting(ctx, existing, req)
		}
		return nil, fmt.Errorf("creating identity: %w", err)
	}

	s.logger.Info("admin identity created", "id", id)
	return &LoginResult{
		Identity:   s.identityFor(admin),
		ClaimToken: claimToken,
	}, nil
}

// loginExisting handles an id whose identity row is present.
func (s *LoginService) loginExisting(ctx context.Context, admin *store.Admin, req SecretLogin) (*LoginResult, error) {
	if admin.SecretHash == nil {
		// Row exists (e.g. from a rotate-only operation) but no secret is
		// bound yet: binding requires the matching claim token.
		if req.ClaimToken == "" {
			return nil, ErrMissingClaimToken
		}
		if admin.ClaimTokenHash == nil || !ConstantTimeEqual(HashSecret(req.ClaimToken), *admin.ClaimTokenHash) {
			return nil, ErrClaimTokenMismatch
		}

		secretHash := HashSecret(req.Secret)
		admin.SecretHash = &secretHash
		if name := strings.TrimSpace(req.DisplayName); name != "" {
			admin.DisplayName = &name
		}
		if err := s.admins.UpdateAdmin(ctx, admin); err != nil {
			return nil, fmt.Errorf("binding secret: %w", err)
		}

		s.logger.Info("secret bound via claim token", "id", admin.ID)
		return &LoginResult{Identity: s.identityFor(admin)}, nil
	}

	if !ConstantTimeEqual(HashSecret(req.Secret), *admin.SecretHash) {
		return nil, ErrSecretMismatch
	}

	matched := req.ClaimToken != "" &&
		admin.ClaimTokenHash != nil &&
		ConstantTimeEqual(HashSecret(req.ClaimToken), *admin.ClaimTokenHash)

	changed := false
	freshToken := ""
	if !matched {
		// Passive rotation: any login without the current claim token
		// invalidates whatever token was previously issued. The fresh
		// plaintext is echoed only when the client presented a stale token;
		// a client that sent none gets nothing to replace.
		token, err := NewOpaqueToken()
		if err != nil {
			return nil, err
		}
		if req.ClaimToken != "" {
			freshToken = token
		}
		claimHash := HashSecret(token)
		admin.ClaimTokenHash = &claimHash
		changed = true
	}

	if name := strings.TrimSpace(req.DisplayName); name != "" {
		if admin.DisplayName == nil || *admin.DisplayName != name {
			admin.DisplayName = &name
			changed = true
		}
	}

	if changed {
		if err := s.admins.UpdateAdmin(ctx, admin); err != nil {
			return nil, fmt.Errorf("updating identity: %w", err)
		}
	}

	return &LoginResult{
		Identity:   s.identityFor(admin),
		ClaimToken: freshToken,
	}, nil
}

// EnsureIdentity makes sure an externally verified identity (Telegram, SSH)
// has an identity row, creating one without secret or claim hashes when
// absent and refreshing the stored display name when it changed. Losing a
// creation race is fine: the row exists either way.
func (s *LoginService) EnsureIdentity(ctx context.Context, identity *Identity) error {
	admin, err := s.admins.GetAdmin(ctx, identity.ID)
	if errors.Is(err, store.ErrNotFound) {
		row := &store.Admin{ID: identity.ID}
		if name := identity.DisplayName(); name != identity.ID {
			row.DisplayName = &name
		}
		if err := s.admins.CreateAdmin(ctx, row); err != nil && !errors.Is(err, store.ErrAdminExists) {
			return fmt.Errorf("creating identity: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}

	if name := identity.DisplayName(); name != identity.ID {
		if admin.DisplayName == nil || *admin.DisplayName != name {
			admin.DisplayName = &name
			if err := s.admins.UpdateAdmin(ctx, admin); err != nil {
				return fmt.Errorf("refreshing display name: %w", err)
			}
		}
	}
	return nil
}

// RotateClaimToken issues a fresh claim token for an authenticated identity,
// invalidating any previously issued one. The row is created when absent so
// an admin authenticated via Telegram can mint a recovery token before any
// secret is bound.
func (s *LoginService) RotateClaimToken(ctx context.Context, id string) (string, error) {
	token, err := NewOpaqueToken()
	if err != nil {
		return "", err
	}
	claimHash := HashSecret(token)

	admin, err := s.admins.GetAdmin(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		row := &store.Admin{ID: id, ClaimTokenHash: &claimHash}
		if err := s.admins.CreateAdmin(ctx, row); err != nil {
			if !errors.Is(err, store.ErrAdminExists) {
				return "", fmt.Errorf("creating identity: %w", err)
			}
			admin, err = s.admins.GetAdmin(ctx, id)
			if err != nil {
				return "", fmt.Errorf("reloading identity: %w", err)
			}
			admin.ClaimTokenHash = &claimHash
			if err := s.admins.UpdateAdmin(ctx, admin); err != nil {
				return "", fmt.Errorf("rotating claim token: %w", err)
			}
		}
	case err != nil:
		return "", fmt.Errorf("loading identity: %w", err)
	default:
		admin.ClaimTokenHash = &claimHash
		if err := s.admins.UpdateAdmin(ctx, admin); err != nil {
			return "", fmt.Errorf("rotating claim token: %w", err)
		}
	}

	s.logger.Info("claim token rotated", "id", id)
	return token, nil
}

// identityFor builds the request identity for an admin row.
func (s *LoginService) identityFor(admin *store.Admin) *Identity {
	identity := &Identity{ID: admin.ID}
	if admin.DisplayName != nil {
		identity.FirstName = *admin.DisplayName
	}
	return identity
}
