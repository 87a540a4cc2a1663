// ABOUTME: HTTP middleware and credential extraction for API endpoints
// ABOUTME: Bearer/header token transport and cookie session transport

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// AdminTokenHeader is the custom header fallback for the raw token.
const AdminTokenHeader = "X-Admin-Token"

// Authenticator resolves a request credential to an identity and its expiry.
// Session-mode implementations may write cookies (renewal, clearing) while
// authenticating, hence the ResponseWriter.
type Authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (*Identity, time.Time, error)
}

// ExtractToken pulls the raw token from a request. The Authorization bearer
// header takes precedence; X-Admin-Token is the fallback. A malformed
// Authorization header yields nothing rather than falling through.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(AdminTokenHeader))
}

// BearerAuthenticator authenticates stateless-mode requests with HS256 tokens.
type BearerAuthenticator struct {
	issuer *TokenIssuer
}

// NewBearerAuthenticator creates an authenticator over the token issuer.
func NewBearerAuthenticator(issuer *TokenIssuer) *BearerAuthenticator {
	return &BearerAuthenticator{issuer: issuer}
}

// Authenticate verifies the bearer or header token.
func (a *BearerAuthenticator) Authenticate(_ http.ResponseWriter, r *http.Request) (*Identity, time.Time, error) {
	token := ExtractToken(r)
	if token == "" {
		return nil, time.Time{}, ErrNoCredential
	}
	return a.issuer.Verify(token)
}

// SessionAuthenticator authenticates stateful-mode requests with an HTTP-only
// session cookie, sliding the expiry on every authorized request.
type SessionAuthenticator struct {
	store  SessionStore
	ttl    time.Duration
	secure bool
}

// NewSessionAuthenticator creates an authenticator over the session store.
// secure controls the cookie's Secure flag (on in production deployments).
func NewSessionAuthenticator(store SessionStore, ttl time.Duration, secure bool) *SessionAuthenticator {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionAuthenticator{store: store, ttl: ttl, secure: secure}
}

// TTL returns the configured session lifetime.
func (a *SessionAuthenticator) TTL() time.Duration {
	return a.ttl
}

// Authenticate looks up the session cookie, renews the expiry by the full TTL
// and re-issues the cookie. Absent or expired sessions clear the cookie.
func (a *SessionAuthenticator) Authenticate(w http.ResponseWriter, r *http.Request) (*Identity, time.Time, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, time.Time{}, ErrNoCredential
	}

	session, ok := a.store.Touch(cookie.Value, a.ttl)
	if !ok {
		a.clearCookie(w)
		return nil, time.Time{}, ErrExpiredToken
	}

	a.setCookie(w, session)
	return session.Identity, session.ExpiresAt, nil
}

// Establish mints a fresh session for the identity and sets the cookie.
func (a *SessionAuthenticator) Establish(w http.ResponseWriter, identity *Identity) (*Session, error) {
	token, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		Token:     token,
		Identity:  identity,
		ExpiresAt: time.Now().Add(a.ttl),
	}
	a.store.Put(session)
	a.setCookie(w, session)
	return session, nil
}

// Logout drops the presented session, idempotently, and clears the cookie.
func (a *SessionAuthenticator) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		a.store.Delete(cookie.Value)
	}
	a.clearCookie(w)
}

func (a *SessionAuthenticator) setCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *SessionAuthenticator) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireAuth wraps a handler to require a verified credential, attaching the
// identity to the request context.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _, err := authn.Authenticate(w, r)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches an identity when a valid credential is present and
// continues anonymously otherwise. Useful for endpoints whose visibility
// depends on who is asking.
func OptionalAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _, err := authn.Authenticate(w, r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// writeAuthError writes the middleware rejection. The body stays generic so
// responses never reveal whether an id or token was close to valid.
func writeAuthError(w http.ResponseWriter, err error) {
	msg := "invalid credential"
	switch {
	case errors.Is(err, ErrNoCredential):
		msg = "missing credential"
	case errors.Is(err, ErrExpiredToken):
		msg = "credential expired"
	}
	http.Error(w, `{"error":"`+msg+`"}`, http.StatusUnauthorized)
}
