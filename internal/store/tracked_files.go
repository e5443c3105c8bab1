package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docket/internal/fileutil"
	"docket/internal/lifecycle"
	"docket/internal/services"
)

// TrackedFile is the persisted identity for a file under management.
type TrackedFile struct {
	FileID         string
	ContentHash    string
	CurrentPath    string
	State          lifecycle.State
	CaseBinding    string
	Confidence     float64
	FirstSeenAt    time.Time
	LastModifiedAt time.Time
}

// EnsureTracked returns the tracked file for a path, registering it with a
// fresh id and content hash on first discovery. file_id is immutable once
// assigned; re-discovering a known path never reassigns it.
func (s *Store) EnsureTracked(ctx context.Context, path string) (*TrackedFile, error) {
	existing, err := s.getByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	hash, err := fileutil.HashFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "store", "hash file", "File unreadable during discovery", err)
	}

	now := time.Now().UTC()
	file := &TrackedFile{
		FileID:         uuid.NewString(),
		ContentHash:    hash,
		CurrentPath:    path,
		State:          lifecycle.StateUnclassified,
		FirstSeenAt:    now,
		LastModifiedAt: now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tracked_files (
            file_id, content_hash, current_path, lifecycle_state,
            case_binding, confidence, first_seen_at, last_modified_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		file.FileID,
		file.ContentHash,
		file.CurrentPath,
		string(file.State),
		nullableString(file.CaseBinding),
		file.Confidence,
		formatTime(file.FirstSeenAt),
		formatTime(file.LastModifiedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert tracked file: %w", err)
	}
	return file, nil
}

// GetTrackedFile fetches a tracked file by identifier.
func (s *Store) GetTrackedFile(ctx context.Context, fileID string) (*TrackedFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackedFileColumns+` FROM tracked_files WHERE file_id = ?`, fileID)
	file, err := scanTrackedFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get tracked file", fmt.Sprintf("unknown file %s", fileID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get tracked file: %w", err)
	}
	return file, nil
}

// GetState implements the plan builder's state lookup.
func (s *Store) GetState(ctx context.Context, fileID string) (lifecycle.State, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT lifecycle_state FROM tracked_files WHERE file_id = ?`, fileID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", services.Wrap(services.ErrNotFound, "store", "get state", fmt.Sprintf("unknown file %s", fileID), nil)
	}
	if err != nil {
		return "", fmt.Errorf("get state: %w", err)
	}
	parsed, ok := lifecycle.Parse(state)
	if !ok {
		return "", fmt.Errorf("tracked file %s has invalid state %q", fileID, state)
	}
	return parsed, nil
}

// UpdateClassification records the grouping key and confidence the extractor
// produced, and promotes unclassified files to active.
func (s *Store) UpdateClassification(ctx context.Context, fileID, caseBinding string, confidence float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tracked_files
         SET case_binding = ?, confidence = ?, last_modified_at = ?,
             lifecycle_state = CASE WHEN lifecycle_state = ? THEN ? ELSE lifecycle_state END
         WHERE file_id = ?`,
		nullableString(caseBinding),
		confidence,
		formatTime(time.Now().UTC()),
		string(lifecycle.StateUnclassified),
		string(lifecycle.StateActive),
		fileID,
	)
	if err != nil {
		return fmt.Errorf("update classification: %w", err)
	}
	return requireRow(res, "update classification", fileID)
}

// ListTrackedFiles returns every tracked file ordered by first discovery.
func (s *Store) ListTrackedFiles(ctx context.Context) ([]*TrackedFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trackedFileColumns+` FROM tracked_files ORDER BY first_seen_at, file_id`)
	if err != nil {
		return nil, fmt.Errorf("list tracked files: %w", err)
	}
	defer rows.Close()

	var files []*TrackedFile
	for rows.Next() {
		file, err := scanTrackedFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *Store) getByPath(ctx context.Context, path string) (*TrackedFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackedFileColumns+` FROM tracked_files WHERE current_path = ?`, path)
	file, err := scanTrackedFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracked file by path: %w", err)
	}
	return file, nil
}

const trackedFileColumns = "file_id, content_hash, current_path, lifecycle_state, case_binding, confidence, first_seen_at, last_modified_at"

func scanTrackedFile(scanner interface{ Scan(dest ...any) error }) (*TrackedFile, error) {
	var (
		fileID      string
		contentHash string
		currentPath string
		state       string
		caseBinding sql.NullString
		confidence  float64
		firstSeen   string
		lastMod     string
	)
	if err := scanner.Scan(&fileID, &contentHash, &currentPath, &state, &caseBinding, &confidence, &firstSeen, &lastMod); err != nil {
		return nil, err
	}
	file := &TrackedFile{
		FileID:      fileID,
		ContentHash: contentHash,
		CurrentPath: currentPath,
		State:       lifecycle.State(state),
		CaseBinding: caseBinding.String,
		Confidence:  confidence,
	}
	if parsed, err := parseTimeString(firstSeen); err == nil {
		file.FirstSeenAt = parsed
	}
	if parsed, err := parseTimeString(lastMod); err == nil {
		file.LastModifiedAt = parsed
	}
	return file, nil
}
