// ABOUTME: Package documentation for the kartos authentication subsystem
// ABOUTME: Describes credential modes, the identity claim flow, and session handling

// Package auth provides authentication and authorization for the kartos API.
//
// # Credential Modes
//
// Admins can prove who they are in three ways, all funneled through the
// single POST /auth/login endpoint:
//
//   - Telegram initData: the signed payload Telegram hands to a WebApp or
//     Login Widget session. Verified with HMAC-SHA256 against the bot token
//     (WebApp and Widget derive the secret key differently).
//
//   - Identity secret: an admin id plus a secret previously bound to that id.
//     First-time binding for an id that already owns groups is gated by a
//     claim token issued out-of-band.
//
//   - SSH key (legacy): a private key whose derived public key matches the
//     configured authorized key.
//
// # Credential Transport
//
// Depending on the configured mode, a successful login yields either a
// self-contained HS256 token (carried as "Authorization: Bearer <token>" or
// the X-Admin-Token header) or an opaque session token stored server-side
// and carried in an HTTP-only cookie. Sessions slide: every authorized
// request extends the expiry by the full TTL.
//
// The session store is process-local. Restarting the server or running more
// than one instance invalidates stateful sessions; this is a documented
// deployment constraint, not a bug.
//
// # Claim Tokens
//
// A claim token proves the bearer may bind a login secret to an identity id
// that already has standing (owns groups) before any secret existed for it.
// Only the SHA-256 hash is persisted; the plaintext is returned to the
// client exactly once per issuance or rotation. When a login supplies a
// stale or missing claim token alongside a correct secret, the stored token
// is rotated. This is intentional hygiene (it bounds claim-token lifetime)
// even though it can mask a client holding an outdated token.
//
// # Ownership
//
// Mutating group operations require the authenticated identity's id to equal
// the group's owner id exactly. The rejection message never reveals the true
// owner.
package auth
