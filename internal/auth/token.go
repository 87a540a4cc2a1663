// ABOUTME: HS256 token issuance and verification for stateless credential mode
// ABOUTME: Pins the algorithm to HS256 and carries the identity as a user claim

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the fixed iss claim stamped on every token.
const Issuer = "kartos"

// DefaultTokenTTL applies when no TTL is configured.
const DefaultTokenTTL = 12 * time.Hour

// TokenIssuer mints and verifies self-contained HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer with the given signing secret and TTL.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// TTL returns the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a token for the identity and returns it with its expiry.
func (i *TokenIssuer) Issue(identity *Identity) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := jwt.MapClaims{
		"sub":  identity.ID,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  Issuer,
		"user": identity,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates the token and returns the embedded identity and expiry.
// Only HS256 is accepted; a token whose header claims any other algorithm is
// rejected outright.
func (i *TokenIssuer) Verify(tokenString string) (*Identity, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, time.Time{}, ErrExpiredToken
		}
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, time.Time{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, time.Time{}, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, time.Time{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	identity := decodeUserClaim(claims["user"])
	identity.ID = sub // sub is authoritative over the user claim

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return identity, expiresAt, nil
}

// decodeUserClaim rebuilds the Identity from the user claim, tolerating a
// missing or malformed claim (the sub claim fills in the id either way).
func decodeUserClaim(raw any) *Identity {
	identity := &Identity{}
	if raw == nil {
		return identity
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return identity
	}
	_ = json.Unmarshal(encoded, identity)
	return identity
}
