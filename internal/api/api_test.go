// ABOUTME: Shared test setup for the API server
// ABOUTME: Builds a handler over a throwaway SQLite store in token mode

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartos-app/kartos/internal/auth"
	"github.com/kartos-app/kartos/internal/store"
)

const testSigningSecret = "test-signing-secret"

// newTestServer assembles a token-mode server over a fresh database. modify
// tweaks the options before assembly; pass nil for the defaults.
func newTestServer(t *testing.T, modify func(*Options)) (http.Handler, *store.SQLiteStore) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	opts := Options{
		Store:  st,
		Login:  auth.NewLoginService(st),
		Issuer: auth.NewTokenIssuer([]byte(testSigningSecret), time.Hour),
	}
	if modify != nil {
		modify(&opts)
	}

	return NewServer(opts).Handler(), st
}

// doJSON performs a request against the handler, encoding body as JSON and
// attaching token as a bearer credential when non-empty.
func doJSON(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeResponse unmarshals the recorded JSON body into dst.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// loginAs logs in with an id/secret pair and returns the issued token.
func loginAs(t *testing.T, h http.Handler, id, secret string) string {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"id":     id,
		"secret": secret,
	})
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decodeResponse(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]string
	decodeResponse(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
}

func TestCORS_DefaultAllowsAnyOrigin(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ConfiguredOrigin(t *testing.T) {
	h, _ := newTestServer(t, func(o *Options) {
		o.CORSOrigins = []string{"https://app.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/groups", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	// An origin outside the list gets no CORS grant.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPaginationDefaultsAndClamping(t *testing.T) {
	h, st := newTestServer(t, nil)

	for i := 0; i < 12; i++ {
		require.NoError(t, st.CreateGroup(context.Background(), &store.Group{Title: "G"}))
	}

	var resp struct {
		Data       []json.RawMessage `json:"data"`
		Pagination pagination        `json:"pagination"`
	}

	rec := doJSON(t, h, http.MethodGet, "/groups", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResponse(t, rec, &resp)
	assert.Len(t, resp.Data, 10)
	assert.Equal(t, pagination{Total: 12, Page: 1, PageSize: 10, TotalPages: 2}, resp.Pagination)

	// Nonsense values fall back to defaults; oversized pageSize is clamped.
	rec = doJSON(t, h, http.MethodGet, "/groups?page=banana&pageSize=9001", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResponse(t, rec, &resp)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 200, resp.Pagination.PageSize)
	assert.Equal(t, 1, resp.Pagination.TotalPages)
}

func TestUnknownRouteIs404(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
