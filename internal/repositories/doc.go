// Package repositories implements SQLite persistence behind the application's storage interfaces.
//
// Key Implementations:
//   - [SessionRepository] : session.Store over the auth_sessions table
//
// The schema comes from the embedded migrations in the shared package. The default DSN is ":memory:" on a single
// pooled connection, so stored sessions never outlive the process.
package repositories
