// Package store persists tracked files, plans, and the rollback log in a
// local SQLite database. The filesystem is the source of truth for file
// contents; the store is the source of truth for identity, lifecycle state,
// and move history.
package store
