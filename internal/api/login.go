// ABOUTME: Authentication endpoints: login, session introspection, logout
// ABOUTME: Dispatches initData, id+secret and SSH key credentials to one flow

package api

import (
	"net/http"
	"time"

	"github.com/kartos-app/kartos/internal/auth"
)

// loginRequest is the JSON request body for POST /auth/login. Exactly one
// credential kind is consulted, in order: InitData, Key, then ID+Secret.
type loginRequest struct {
	InitData    string `json:"initData,omitempty"`
	Key         string `json:"key,omitempty"`
	ID          string `json:"id,omitempty"`
	Secret      string `json:"secret,omitempty"`
	ClaimToken  string `json:"claimToken,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// loginResponse is the JSON response for POST /auth/login. Token is present
// only in token mode; ClaimToken only when a fresh claim token was minted.
type loginResponse struct {
	Token      string         `json:"token,omitempty"`
	ExpiresAt  string         `json:"expiresAt"`
	User       *auth.Identity `json:"user"`
	ClaimToken string         `json:"claimToken,omitempty"`
}

// sessionResponse is the JSON response for GET /auth/session.
type sessionResponse struct {
	User      *auth.Identity `json:"user"`
	ExpiresAt string         `json:"expiresAt"`
}

// claimTokenResponse is the JSON response for POST /auth/claim-token.
type claimTokenResponse struct {
	ClaimToken string `json:"claimToken"`
}

// handleLogin handles POST /auth/login requests.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var identity *auth.Identity
	var claimToken string

	switch {
	case req.InitData != "":
		if s.telegram == nil {
			s.logger.Error("telegram login attempted without a configured bot token")
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}
		verified, _, err := s.telegram.Verify(req.InitData)
		if err != nil {
			s.logger.Warn("telegram login rejected", "error", err)
			writeError(w, auth.StatusFor(err), "telegram verification failed")
			return
		}
		if err := s.login.EnsureIdentity(r.Context(), verified); err != nil {
			s.logger.Error("failed to persist identity", "id", verified.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}
		identity = verified

	case req.Key != "":
		if s.sshKeys == nil {
			writeError(w, http.StatusForbidden, "key login is not enabled")
			return
		}
		if !s.sshKeys.Verify(req.Key) {
			s.logger.Warn("ssh key login rejected")
			writeError(w, http.StatusForbidden, "key not authorized")
			return
		}
		identity = &auth.Identity{ID: s.sshAdminID}
		if err := s.login.EnsureIdentity(r.Context(), identity); err != nil {
			s.logger.Error("failed to persist identity", "id", identity.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}

	case req.ID != "":
		result, err := s.login.Login(r.Context(), auth.SecretLogin{
			ID:          req.ID,
			Secret:      req.Secret,
			ClaimToken:  req.ClaimToken,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			status := auth.StatusFor(err)
			if status >= http.StatusInternalServerError {
				s.logger.Error("login failed", "id", req.ID, "error", err)
				writeError(w, status, "login failed")
				return
			}
			s.logger.Warn("login rejected", "id", req.ID, "error", err)
			writeError(w, status, err.Error())
			return
		}
		identity = result.Identity
		claimToken = result.ClaimToken

	default:
		writeError(w, http.StatusBadRequest, auth.ErrIdentityNotDetermined.Error())
		return
	}

	token, expiresAt, err := s.issueCredential(w, identity)
	if err != nil {
		s.logger.Error("failed to issue credential", "id", identity.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.logger.Info("admin logged in", "id", identity.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:      token,
		ExpiresAt:  formatTime(expiresAt),
		User:       identity,
		ClaimToken: claimToken,
	})
}

// issueCredential mints the deployment's credential: a signed token in token
// mode, a cookie-backed session in session mode.
func (s *Server) issueCredential(w http.ResponseWriter, identity *auth.Identity) (string, time.Time, error) {
	if s.sessions != nil {
		session, err := s.sessions.Establish(w, identity)
		if err != nil {
			return "", time.Time{}, err
		}
		return "", session.ExpiresAt, nil
	}
	return s.issuer.Issue(identity)
}

// handleSession handles GET /auth/session requests: it reports the identity
// and expiry behind the presented credential.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	identity, expiresAt, err := s.authn.Authenticate(w, r)
	if err != nil {
		writeError(w, auth.StatusFor(err), "unauthenticated")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		User:      identity,
		ExpiresAt: formatTime(expiresAt),
	})
}

// handleLogout handles POST /auth/logout requests. Logout is idempotent and
// always succeeds: token-mode credentials simply age out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.sessions != nil {
		s.sessions.Logout(w, r)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClaimToken handles POST /auth/claim-token requests, rotating the
// caller's claim token and returning the fresh plaintext once.
func (s *Server) handleClaimToken(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	token, err := s.login.RotateClaimToken(r.Context(), identity.ID)
	if err != nil {
		s.logger.Error("failed to rotate claim token", "id", identity.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rotate claim token")
		return
	}

	writeJSON(w, http.StatusOK, claimTokenResponse{ClaimToken: token})
}
