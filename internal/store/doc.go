// Package store persists Gmail tokens and user records.
//
// Four backends implement the same Store interface: an in-memory map for
// tests and one-shot CLI runs, SQLite for a local install, PostgreSQL for a
// shared deployment and Redis for a token cache with expiry. Open picks one
// from Options.
package store
