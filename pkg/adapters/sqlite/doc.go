// Package sqlite provides a hit cache backed by an embedded SQLite database.
//
// It uses the pure-Go modernc.org/sqlite driver, so no CGO is required.
// The database runs in WAL mode and the schema is migrated on open.
package sqlite
