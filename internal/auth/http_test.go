// ABOUTME: Unit tests for credential extraction and HTTP middleware
// ABOUTME: Covers header precedence, cookie sessions and the auth wrappers

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		adminToken    string
		want          string
	}{
		{"bearer only", "Bearer abc123", "", "abc123"},
		{"custom header only", "", "xyz789", "xyz789"},
		{"bearer wins", "Bearer abc123", "xyz789", "abc123"},
		{"malformed authorization does not fall through", "Basic dXNlcg==", "xyz789", ""},
		{"bearer with padding", "Bearer   abc123  ", "", "abc123"},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authorization != "" {
				r.Header.Set("Authorization", tt.authorization)
			}
			if tt.adminToken != "" {
				r.Header.Set(AdminTokenHeader, tt.adminToken)
			}
			if got := ExtractToken(r); got != tt.want {
				t.Errorf("ExtractToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBearerAuthenticator(t *testing.T) {
	issuer := NewTokenIssuer([]byte("http-test-secret-32-bytes-long!!"), time.Hour)
	authn := NewBearerAuthenticator(issuer)

	token, _, err := issuer.Issue(&Identity{ID: "42", FirstName: "Ada"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	identity, _, err := authn.Authenticate(httptest.NewRecorder(), r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if identity.ID != "42" {
		t.Errorf("identity.ID = %q", identity.ID)
	}

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, _, err := authn.Authenticate(httptest.NewRecorder(), bare); err != ErrNoCredential {
		t.Errorf("Authenticate() without credential error = %v, want ErrNoCredential", err)
	}
}

func TestSessionAuthenticator_Lifecycle(t *testing.T) {
	store := NewMemorySessionStore()
	authn := NewSessionAuthenticator(store, time.Hour, false)

	// Establish sets the cookie.
	w := httptest.NewRecorder()
	session, err := authn.Establish(w, &Identity{ID: "42"})
	if err != nil {
		t.Fatalf("Establish() error = %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName {
		t.Fatalf("cookies = %v", cookies)
	}
	cookie := cookies[0]
	if cookie.Value != session.Token {
		t.Error("cookie value does not carry the session token")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}

	// Authenticate renews the expiry and re-issues the cookie.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	identity, expiresAt, err := authn.Authenticate(w2, r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if identity.ID != "42" {
		t.Errorf("identity.ID = %q", identity.ID)
	}
	if expiresAt.Before(session.ExpiresAt) {
		t.Error("expiry did not slide forward")
	}
	if len(w2.Result().Cookies()) != 1 {
		t.Error("Authenticate() should re-issue the cookie")
	}

	// Logout drops the session and clears the cookie, idempotently.
	w3 := httptest.NewRecorder()
	authn.Logout(w3, r)
	cleared := w3.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Errorf("logout cookies = %v", cleared)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after logout, want 0", store.Len())
	}
	authn.Logout(httptest.NewRecorder(), r)

	// The dropped session no longer authenticates, and the stale cookie is
	// cleared on the way out.
	w4 := httptest.NewRecorder()
	if _, _, err := authn.Authenticate(w4, r); err != ErrExpiredToken {
		t.Errorf("Authenticate() after logout error = %v, want ErrExpiredToken", err)
	}
	if c := w4.Result().Cookies(); len(c) != 1 || c[0].MaxAge != -1 {
		t.Error("stale cookie was not cleared")
	}
}

func TestRequireAuth(t *testing.T) {
	issuer := NewTokenIssuer([]byte("http-test-secret-32-bytes-long!!"), time.Hour)
	authn := NewBearerAuthenticator(issuer)

	var seen *Identity
	handler := RequireAuth(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = MustFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Without a credential the handler never runs.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if seen != nil {
		t.Error("handler ran without a credential")
	}

	token, _, err := issuer.Issue(&Identity{ID: "42"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if seen == nil || seen.ID != "42" {
		t.Errorf("context identity = %+v", seen)
	}
}

func TestOptionalAuth(t *testing.T) {
	issuer := NewTokenIssuer([]byte("http-test-secret-32-bytes-long!!"), time.Hour)
	authn := NewBearerAuthenticator(issuer)

	handler := OptionalAuth(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) != nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	// Anonymous requests pass through.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusAccepted {
		t.Errorf("anonymous status = %d, want 202", w.Code)
	}

	// A bad token is treated as anonymous rather than rejected.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusAccepted {
		t.Errorf("bad-token status = %d, want 202", w.Code)
	}

	token, _, err := issuer.Issue(&Identity{ID: "42"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", w.Code)
	}
}
