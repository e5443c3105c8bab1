package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"docket/internal/config"
	"docket/internal/fileutil"
	"docket/internal/logging"
	"docket/internal/plan"
	"docket/internal/services"
	"docket/internal/store"
)

// Options control a single plan execution.
type Options struct {
	// DryRun walks the plan and reports what would happen without touching
	// the filesystem or the store.
	DryRun bool
	// SkipConflicts skips items whose destination is occupied instead of
	// renaming them out of the way.
	SkipConflicts bool
	// OnProgress, when set, receives a message and a completion percentage
	// after each item.
	OnProgress func(message string, percent float64)
}

// Outcome classifies what happened to one plan item.
type Outcome string

const (
	OutcomeMoved     Outcome = "moved"
	OutcomeWouldMove Outcome = "would_move"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// ItemResult is the per-item record in an execution report.
type ItemResult struct {
	FileID   string  `json:"file_id"`
	Outcome  Outcome `json:"outcome"`
	FromPath string  `json:"from_path,omitempty"`
	ToPath   string  `json:"to_path,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// Report summarizes a plan execution. It is JSON-serializable for the CLI's
// machine-readable output.
type Report struct {
	PlanID     string        `json:"plan_id"`
	DryRun     bool          `json:"dry_run"`
	Success    bool          `json:"success"`
	TotalItems int           `json:"total_items"`
	Successful int           `json:"successful"`
	WouldMove  int           `json:"would_move,omitempty"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	BackupID   string        `json:"backup_id,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	Items      []ItemResult  `json:"items"`
}

// Executor applies stored plans to the filesystem. Executions are serialized
// across processes by a lock file; within one execution items run strictly in
// plan order.
type Executor struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New builds an executor over the given store and configuration.
func New(st *store.Store, cfg *config.Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{store: st, cfg: cfg, logger: logging.NewComponentLogger(logger, "executor")}
}

// Execute applies the identified plan item by item. Blocked items are
// reported as skipped, item failures do not abort the remaining items, and
// every real move is committed to the store together with a rollback entry
// before the next item starts. Re-executing a completed plan is harmless:
// items whose source no longer exists are skipped.
func (e *Executor) Execute(ctx context.Context, planID string, opts Options) (*Report, error) {
	p, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		lock := flock.New(e.cfg.LockPath())
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire executor lock: %w", err)
		}
		if !ok {
			return nil, services.Wrap(services.ErrConflict, "executor", "execute plan", "Another execution is already in progress", nil)
		}
		defer func() { _ = lock.Unlock() }()
	}

	start := time.Now()
	report := &Report{
		PlanID:     p.ID,
		DryRun:     opts.DryRun,
		TotalItems: len(p.Items),
	}
	backupID := uuid.NewString()
	seq := 0

	ctx = services.WithPlanID(ctx, p.ID)
	log := logging.WithContext(ctx, e.logger)
	log.Info("executing plan", logging.Int("items", len(p.Items)), logging.Bool("dry_run", opts.DryRun))

	for i, item := range p.Items {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("execution interrupted: %w", err)
		}

		result := e.executeItem(ctx, p.ID, item, opts, backupID, &seq)
		report.Items = append(report.Items, result)
		switch result.Outcome {
		case OutcomeMoved:
			report.Successful++
		case OutcomeWouldMove:
			report.WouldMove++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
			log.Warn("item failed", logging.String("file_id", item.FileID), logging.String("detail", result.Detail))
		}

		if opts.OnProgress != nil {
			percent := float64(i+1) / float64(len(p.Items)) * 100
			opts.OnProgress(progressMessage(item, result), percent)
		}
	}

	if seq > 0 {
		report.BackupID = backupID
	}
	report.Success = report.Failed == 0
	report.Duration = time.Since(start)

	log.Info("plan execution finished",
		logging.Int("moved", report.Successful),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}

func (e *Executor) executeItem(ctx context.Context, planID string, item plan.Item, opts Options, backupID string, seq *int) ItemResult {
	result := ItemResult{FileID: item.FileID, FromPath: item.FromPath}

	if item.Status == plan.StatusBlocked {
		result.Outcome = OutcomeSkipped
		result.Detail = "blocked: " + string(item.BlockedReason)
		return result
	}

	if _, err := os.Stat(item.FromPath); err != nil {
		result.Outcome = OutcomeSkipped
		result.Detail = "source missing"
		return result
	}

	dest, skip, err := resolveConflict(item.ToPath, opts.SkipConflicts)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Detail = err.Error()
		return result
	}
	if skip {
		result.Outcome = OutcomeSkipped
		result.Detail = "destination occupied"
		return result
	}
	result.ToPath = dest

	// Nothing is applied in a dry run: the item is reported as a would-be
	// move with its resolved destination and the success count stays zero.
	if opts.DryRun {
		result.Outcome = OutcomeWouldMove
		return result
	}

	tracked, err := e.store.GetTrackedFile(ctx, item.FileID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Detail = err.Error()
		return result
	}

	if err := fileutil.MoveFile(item.FromPath, dest); err != nil {
		result.Outcome = OutcomeFailed
		result.Detail = err.Error()
		return result
	}

	commit := store.MoveCommit{
		FileID:     item.FileID,
		FromPath:   item.FromPath,
		ToPath:     dest,
		NewState:   item.TargetState,
		PriorState: tracked.State,
		PlanID:     planID,
		BackupID:   backupID,
		Seq:        *seq,
	}
	if err := e.store.CommitMove(ctx, commit); err != nil {
		// The file moved but the record did not. Put the file back so the
		// store and the filesystem stay in agreement.
		if revertErr := fileutil.MoveFile(dest, item.FromPath); revertErr != nil {
			e.logger.Error("revert after failed commit",
				logging.String("file_id", item.FileID),
				logging.Error(revertErr))
		}
		result.Outcome = OutcomeFailed
		result.Detail = err.Error()
		return result
	}
	*seq++

	result.Outcome = OutcomeMoved
	return result
}

func progressMessage(item plan.Item, result ItemResult) string {
	switch result.Outcome {
	case OutcomeMoved:
		return fmt.Sprintf("moved %s", item.FromPath)
	case OutcomeWouldMove:
		return fmt.Sprintf("would move %s to %s", item.FromPath, result.ToPath)
	case OutcomeSkipped:
		return fmt.Sprintf("skipped %s (%s)", item.FromPath, result.Detail)
	default:
		return fmt.Sprintf("failed %s: %s", item.FromPath, result.Detail)
	}
}
