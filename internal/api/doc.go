// ABOUTME: Package documentation for the HTTP API surface
// ABOUTME: Routes, middleware and JSON codecs for the flashcard backend

// Package api exposes the flashcard backend over HTTP.
//
// Reads (group and card listings, single lookups) are public. Writes require
// an authenticated admin identity, and group mutations additionally require
// ownership of the group. Authentication is pluggable between stateless
// bearer tokens and cookie-backed server sessions; the login endpoint accepts
// Telegram initData, an id/secret pair, or an SSH private key.
package api
