package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"docket/internal/config"
	"docket/internal/lifecycle"
)

// Store manages engine persistence backed by SQLite: tracked files, plans,
// and the rollback log. It is the single shared mutable resource; callers
// serialize mutating stages (the executor additionally holds a file lock).
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Stats summarizes the tracked-file population and stored plans.
type Stats struct {
	TrackedFiles   int
	ByState        map[lifecycle.State]int
	Plans          int
	RollbackGroups int
}

// Summary returns aggregate counts for diagnostics and the status command.
func (s *Store) Summary(ctx context.Context) (Stats, error) {
	stats := Stats{ByState: make(map[lifecycle.State]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT lifecycle_state, COUNT(1) FROM tracked_files GROUP BY lifecycle_state`)
	if err != nil {
		return Stats{}, fmt.Errorf("tracked file stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return Stats{}, err
		}
		stats.ByState[lifecycle.State(state)] = count
		stats.TrackedFiles += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM plans`).Scan(&stats.Plans); err != nil {
		return Stats{}, fmt.Errorf("plan count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM rollback_groups`).Scan(&stats.RollbackGroups); err != nil {
		return Stats{}, fmt.Errorf("rollback group count: %w", err)
	}
	return stats, nil
}
