// ABOUTME: HTTP server assembly for the flashcard API
// ABOUTME: Wires routes, auth middleware and shared JSON helpers

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kartos-app/kartos/internal/auth"
	"github.com/kartos-app/kartos/internal/store"
)

// Options configures the API server. Exactly one of Issuer (token mode) or
// Sessions (session mode) must be set; that choice is the deployment's
// credential strategy.
type Options struct {
	Store    store.Store
	Login    *auth.LoginService
	Telegram *auth.TelegramVerifier
	SSHKeys  *auth.SSHKeyVerifier
	// SSHAdminID is the admin identity an SSH key login resolves to.
	SSHAdminID string
	Issuer     *auth.TokenIssuer
	Sessions   *auth.SessionAuthenticator
	// Visibility is "all" (default) or "owned"; owned scopes an authenticated
	// admin's group listing to their own groups.
	Visibility  string
	CORSOrigins []string
}

// Server carries the handler dependencies.
type Server struct {
	store       store.Store
	login       *auth.LoginService
	telegram    *auth.TelegramVerifier
	sshKeys     *auth.SSHKeyVerifier
	sshAdminID  string
	issuer      *auth.TokenIssuer
	sessions    *auth.SessionAuthenticator
	authn       auth.Authenticator
	visibility  string
	corsOrigins []string
	logger      *slog.Logger
}

// NewServer creates the API server from its wired dependencies.
func NewServer(opts Options) *Server {
	s := &Server{
		store:       opts.Store,
		login:       opts.Login,
		telegram:    opts.Telegram,
		sshKeys:     opts.SSHKeys,
		sshAdminID:  opts.SSHAdminID,
		issuer:      opts.Issuer,
		sessions:    opts.Sessions,
		visibility:  opts.Visibility,
		corsOrigins: opts.CORSOrigins,
		logger:      slog.Default().With("component", "api"),
	}
	if opts.Sessions != nil {
		s.authn = opts.Sessions
	} else {
		s.authn = auth.NewBearerAuthenticator(opts.Issuer)
	}
	return s
}

// Handler builds the complete HTTP handler: routes wrapped in request logging
// and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// RegisterRoutes attaches all API routes to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	requireAuth := auth.RequireAuth(s.authn)
	optionalAuth := auth.OptionalAuth(s.authn)

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/session", s.handleSession)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.Handle("POST /auth/claim-token", requireAuth(http.HandlerFunc(s.handleClaimToken)))

	mux.Handle("GET /groups", optionalAuth(http.HandlerFunc(s.handleListGroups)))
	mux.HandleFunc("GET /groups/{id}", s.handleGetGroup)
	mux.Handle("POST /groups", requireAuth(http.HandlerFunc(s.handleCreateGroup)))
	mux.Handle("PUT /groups/{id}", requireAuth(http.HandlerFunc(s.handleUpdateGroup)))
	mux.Handle("PUT /groups/{id}/cards", requireAuth(http.HandlerFunc(s.handleReplaceCards)))
	mux.Handle("DELETE /groups/{id}", requireAuth(http.HandlerFunc(s.handleDeleteGroup)))

	mux.HandleFunc("GET /cards", s.handleListCards)
	mux.HandleFunc("GET /cards/{id}", s.handleGetCard)

	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// handleHealth handles GET /healthz requests.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pagination is the shared list-response metadata block.
type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

func paginationFor(total, page, pageSize int) pagination {
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return pagination{Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}

// parsePagination reads page/pageSize query parameters, clamping page to >=1
// and pageSize to 1..200 with a default of 10.
func parsePagination(r *http.Request) (page, pageSize int) {
	page = intQuery(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = intQuery(r, "pageSize", 10)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

func intQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
