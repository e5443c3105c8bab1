package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docket/internal/lifecycle"
	"docket/internal/services"
)

// MoveCommit records one executed move: the tracked-file update and the
// rollback-log entry that makes it reversible.
type MoveCommit struct {
	FileID     string
	FromPath   string
	ToPath     string
	NewState   lifecycle.State
	PriorState lifecycle.State
	PlanID     string
	BackupID   string
	Seq        int
}

// RollbackEntry is one reversible move in a rollback group, ordered by Seq.
type RollbackEntry struct {
	BackupID   string
	Seq        int
	FileID     string
	FromPath   string
	ToPath     string
	PriorState lifecycle.State
	MovedAt    time.Time
}

// CommitMove applies a completed filesystem move to the store in a single
// transaction: the tracked file's path and state change together with the
// rollback entry that undoes them. The rollback group row is created lazily
// with the first entry for its backup id.
func (s *Store) CommitMove(ctx context.Context, commit MoveCommit) error {
	newState, err := lifecycle.Apply(commit.PriorState, commit.NewState)
	if err != nil {
		return services.Wrap(services.ErrValidation, "store", "commit move", "Move targets an illegal lifecycle transition", err)
	}
	commit.NewState = newState

	now := formatTime(time.Now().UTC())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE tracked_files SET current_path = ?, lifecycle_state = ?, last_modified_at = ? WHERE file_id = ?`,
		commit.ToPath, string(commit.NewState), now, commit.FileID,
	)
	if err != nil {
		return fmt.Errorf("update tracked file: %w", err)
	}
	if err := requireRow(result, "tracked file", commit.FileID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO rollback_groups (backup_id, plan_id, created_at) VALUES (?, ?, ?)`,
		commit.BackupID, commit.PlanID, now,
	); err != nil {
		return fmt.Errorf("insert rollback group: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rollback_entries (backup_id, seq, file_id, from_path, to_path, prior_state, moved_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		commit.BackupID, commit.Seq, commit.FileID, commit.FromPath, commit.ToPath, string(commit.PriorState), now,
	); err != nil {
		return fmt.Errorf("insert rollback entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit move: %w", err)
	}
	return nil
}

// RollbackGroupEntries returns a group's entries in ascending Seq order.
func (s *Store) RollbackGroupEntries(ctx context.Context, backupID string) ([]RollbackEntry, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM rollback_groups WHERE backup_id = ?`, backupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "rollback group", fmt.Sprintf("unknown backup %s", backupID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("check rollback group: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT backup_id, seq, file_id, from_path, to_path, prior_state, moved_at
         FROM rollback_entries WHERE backup_id = ? ORDER BY seq`, backupID)
	if err != nil {
		return nil, fmt.Errorf("list rollback entries: %w", err)
	}
	defer rows.Close()

	var entries []RollbackEntry
	for rows.Next() {
		var (
			entry   RollbackEntry
			state   string
			movedAt string
		)
		if err := rows.Scan(&entry.BackupID, &entry.Seq, &entry.FileID, &entry.FromPath, &entry.ToPath, &state, &movedAt); err != nil {
			return nil, err
		}
		entry.PriorState = lifecycle.State(state)
		if parsed, parseErr := parseTimeString(movedAt); parseErr == nil {
			entry.MovedAt = parsed
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RollbackGroupSummary is the listing row for rollback groups.
type RollbackGroupSummary struct {
	BackupID  string
	PlanID    string
	CreatedAt string
	UndoneAt  string
	Entries   int
}

// RollbackGroups lists rollback groups, newest first.
func (s *Store) RollbackGroups(ctx context.Context) ([]RollbackGroupSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.backup_id, g.plan_id, g.created_at, COALESCE(g.undone_at, ''), COUNT(e.seq)
         FROM rollback_groups g
         LEFT JOIN rollback_entries e ON e.backup_id = g.backup_id
         GROUP BY g.backup_id
         ORDER BY g.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rollback groups: %w", err)
	}
	defer rows.Close()

	var summaries []RollbackGroupSummary
	for rows.Next() {
		var summary RollbackGroupSummary
		if err := rows.Scan(&summary.BackupID, &summary.PlanID, &summary.CreatedAt, &summary.UndoneAt, &summary.Entries); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// RestoreAfterUndo reverts one entry's tracked-file record to its pre-move
// path and state. Like CommitMove, the caller performs the filesystem move
// first and commits the record change after.
func (s *Store) RestoreAfterUndo(ctx context.Context, entry RollbackEntry) error {
	now := formatTime(time.Now().UTC())
	result, err := s.db.ExecContext(ctx,
		`UPDATE tracked_files SET current_path = ?, lifecycle_state = ?, last_modified_at = ? WHERE file_id = ?`,
		entry.FromPath, string(entry.PriorState), now, entry.FileID,
	)
	if err != nil {
		return fmt.Errorf("restore tracked file: %w", err)
	}
	return requireRow(result, "tracked file", entry.FileID)
}

// MarkUndone stamps a rollback group as undone.
func (s *Store) MarkUndone(ctx context.Context, backupID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE rollback_groups SET undone_at = ? WHERE backup_id = ?`,
		formatTime(time.Now().UTC()), backupID,
	)
	if err != nil {
		return fmt.Errorf("mark rollback group undone: %w", err)
	}
	return requireRow(result, "rollback group", backupID)
}
