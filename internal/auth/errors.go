// ABOUTME: Sentinel errors for the authentication subsystem
// ABOUTME: Maps each auth failure class to an HTTP status code

package auth

import (
	"errors"
	"net/http"
)

// Login flow errors. Secret and claim-token mismatches deliberately share the
// 403 status so responses never reveal whether an id is known.
var (
	ErrMissingSecret         = errors.New("secret is required")
	ErrMissingClaimToken     = errors.New("claim token required for this identity")
	ErrClaimTokenMismatch    = errors.New("claim token mismatch")
	ErrSecretMismatch        = errors.New("secret mismatch")
	ErrIdentityNotDetermined = errors.New("identity could not be determined")
)

// Credential verification errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Telegram initData verification errors.
var (
	ErrInitDataMalformed = errors.New("init data could not be parsed")
	ErrInitDataNoHash    = errors.New("init data is missing the hash field")
	ErrInitDataBadHash   = errors.New("init data hash verification failed")
	ErrInitDataNoUser    = errors.New("init data carries no user identity")
	ErrInitDataExpired   = errors.New("init data auth_date is too old")
	ErrInitDataBadDate   = errors.New("init data auth_date is not a valid timestamp")
	ErrNotAllowed        = errors.New("user is not in the admin allow list")
)

// ErrNoCredential is returned when a request carries no recognizable credential.
var ErrNoCredential = errors.New("no credential presented")

// StatusFor maps an auth error to its HTTP status code. Unknown errors map to
// 500 so misconfiguration never silently passes as a client fault.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingSecret),
		errors.Is(err, ErrIdentityNotDetermined),
		errors.Is(err, ErrInitDataMalformed),
		errors.Is(err, ErrInitDataNoHash),
		errors.Is(err, ErrInitDataBadDate),
		errors.Is(err, ErrInitDataNoUser):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoCredential),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrMissingClaim),
		errors.Is(err, ErrInitDataBadHash),
		errors.Is(err, ErrInitDataExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrMissingClaimToken),
		errors.Is(err, ErrClaimTokenMismatch),
		errors.Is(err, ErrSecretMismatch),
		errors.Is(err, ErrNotAllowed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
