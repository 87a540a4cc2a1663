// ABOUTME: Package documentation for kartos persistence
// ABOUTME: Describes the SQLite store, entities, and the admin uniqueness contract

// Package store provides SQLite-backed persistence for kartos.
//
// # Entities
//
//   - Admin: an identity row keyed by the externally supplied admin id, with
//     nullable secret and claim-token hashes. The primary key on the id is
//     load-bearing: CreateAdmin fails with ErrAdminExists on a duplicate,
//     which is how two concurrent first logins for the same id are resolved
//     without application-level locking.
//
//   - Group: a flashcard deck with an optional owner id referencing Admin.ID.
//     Mutations are authorized against the owner id upstream.
//
//   - Card: a term/definition pair belonging to a group. Deleting a group
//     cascades to its cards.
//
// # Implementation
//
// SQLiteStore uses modernc.org/sqlite (no cgo) with WAL mode and foreign
// keys enabled. The schema is created automatically on open. Handlers depend
// on the narrow AdminStore/GroupStore/CardStore interfaces rather than the
// concrete type.
package store
