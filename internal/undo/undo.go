package undo

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"docket/internal/fileutil"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/store"
)

// MismatchError reports a rollback entry whose on-disk reality no longer
// matches the recorded move, such as a file renamed or deleted after
// execution.
type MismatchError struct {
	FileID string
	Path   string
	Reason string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("rollback mismatch for %s at %s: %s", e.FileID, e.Path, e.Reason)
}

// EntryResult records the outcome of reverting one move.
type EntryResult struct {
	FileID   string `json:"file_id"`
	Seq      int    `json:"seq"`
	Restored bool   `json:"restored"`
	Detail   string `json:"detail,omitempty"`
}

// Report summarizes one undo run.
type Report struct {
	BackupID string        `json:"backup_id"`
	Total    int           `json:"total"`
	Restored int           `json:"restored"`
	Failed   int           `json:"failed"`
	Complete bool          `json:"complete"`
	Entries  []EntryResult `json:"entries"`
}

// Manager reverts executed rollback groups.
type Manager struct {
	store  *store.Store
	logger *slog.Logger
}

// New builds an undo manager over the given store.
func New(st *store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{store: st, logger: logging.NewComponentLogger(logger, "undo")}
}

// Undo replays a rollback group in reverse order, moving each file from its
// recorded destination back to its recorded origin and restoring its prior
// lifecycle state. Entries whose destination no longer holds the file are
// reported as mismatches and left alone; the rest are still reverted. The
// group is stamped undone only when every entry restores, so a partial undo
// can be retried.
func (m *Manager) Undo(ctx context.Context, backupID string) (*Report, error) {
	entries, err := m.store.RollbackGroupEntries(ctx, backupID)
	if err != nil {
		return nil, err
	}

	report := &Report{BackupID: backupID, Total: len(entries)}
	ctx = services.WithBackupID(ctx, backupID)
	log := logging.WithContext(ctx, m.logger)
	log.Info("undoing rollback group", logging.Int("entries", len(entries)))

	for i := len(entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("undo interrupted: %w", err)
		}
		entry := entries[i]
		result := EntryResult{FileID: entry.FileID, Seq: entry.Seq}

		if err := m.revertEntry(ctx, entry); err != nil {
			result.Detail = err.Error()
			report.Failed++
			log.Warn("entry not reverted", logging.String("file_id", entry.FileID), logging.Error(err))
		} else {
			result.Restored = true
			report.Restored++
		}
		report.Entries = append(report.Entries, result)
	}

	report.Complete = report.Failed == 0
	if report.Complete && report.Total > 0 {
		if err := m.store.MarkUndone(ctx, backupID); err != nil {
			return report, err
		}
	}

	log.Info("undo finished",
		logging.Int("restored", report.Restored),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}

func (m *Manager) revertEntry(ctx context.Context, entry store.RollbackEntry) error {
	if _, err := os.Stat(entry.ToPath); err != nil {
		if os.IsNotExist(err) {
			return &MismatchError{FileID: entry.FileID, Path: entry.ToPath, Reason: "file no longer at recorded destination"}
		}
		return err
	}
	if _, err := os.Stat(entry.FromPath); err == nil {
		return &MismatchError{FileID: entry.FileID, Path: entry.FromPath, Reason: "original location occupied"}
	}

	if err := fileutil.MoveFile(entry.ToPath, entry.FromPath); err != nil {
		return err
	}
	return m.store.RestoreAfterUndo(ctx, entry)
}
