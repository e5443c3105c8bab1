package plan

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"docket/internal/lifecycle"
	"docket/internal/logging"
	"docket/internal/routing"
	"docket/internal/services"
)

// StateLookup resolves the current lifecycle state for a tracked file.
type StateLookup interface {
	GetState(ctx context.Context, fileID string) (lifecycle.State, error)
}

// Builder turns classification results into a stored plan shape. It is
// single-threaded by design: workers feed it a completed result set and it
// re-imposes a canonical order, so plan contents never depend on worker
// scheduling.
type Builder struct {
	engine    *routing.Engine
	states    StateLookup
	mode      string
	createdBy string
	logger    *slog.Logger
}

// NewBuilder constructs a plan builder.
func NewBuilder(engine *routing.Engine, states StateLookup, mode, createdBy string, logger *slog.Logger) *Builder {
	return &Builder{
		engine:    engine,
		states:    states,
		mode:      mode,
		createdBy: createdBy,
		logger:    logging.NewComponentLogger(logger, "builder"),
	}
}

// BuildPlan produces a fully-formed plan from the collected classification
// results. Inputs are sorted by file id before processing; duplicate file ids
// are a programming error and fail the whole build rather than being deduped.
func (b *Builder) BuildPlan(ctx context.Context, results []Classification, basePath string) (*Plan, error) {
	sorted := make([]Classification, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FileID < sorted[j].FileID })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].FileID == sorted[i-1].FileID {
			return nil, services.Wrap(services.ErrValidation, "builder", "build plan",
				fmt.Sprintf("duplicate classification for file %s", sorted[i].FileID), nil)
		}
	}

	p := &Plan{
		ID:        uuid.NewString(),
		CreatedBy: b.createdBy,
		Mode:      b.mode,
		CreatedAt: time.Now().UTC(),
		Items:     make([]Item, 0, len(sorted)),
	}

	for _, result := range sorted {
		item, err := b.buildItem(ctx, result, basePath)
		if err != nil {
			return nil, err
		}
		p.Items = append(p.Items, item)
	}

	if err := p.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "builder", "validate plan", "Built plan violates structural invariants", err)
	}

	allowed, blocked := p.CountByStatus()
	b.logger.Info("plan built",
		logging.String(logging.FieldPlanID, p.ID),
		logging.Int("allowed", allowed),
		logging.Int("blocked", blocked),
	)
	return p, nil
}

func (b *Builder) buildItem(ctx context.Context, c Classification, basePath string) (Item, error) {
	item := Item{
		FileID:   c.FileID,
		Action:   ActionMove,
		FromPath: c.Path,
	}

	current, err := b.states.GetState(ctx, c.FileID)
	if err != nil {
		return Item{}, services.Wrap(services.ErrNotFound, "builder", "lookup state",
			fmt.Sprintf("no lifecycle state for file %s", c.FileID), err)
	}

	if c.Failed() {
		item.Status = StatusBlocked
		item.BlockedReason = BlockedExtractionFailed
		item.RuleTrace = []string{"extraction failed: " + c.Err.Error()}
		return item, nil
	}

	// Immutable states never reach routing; the block is decided here so the
	// routing engine stays pure.
	if current.Immutable() {
		item.Status = StatusBlocked
		item.BlockedReason = BlockedImmutable
		item.RuleTrace = []string{fmt.Sprintf("lifecycle state %s forbids automatic moves", current)}
		return item, nil
	}

	decision := b.engine.Route(c.Result, c.Path, current)
	item.RuleTrace = decision.Reasoning
	item.ToPath = filepath.Join(basePath, filepath.FromSlash(decision.TargetPath), filepath.Base(c.Path))

	if decision.RequiresConfirmation {
		item.Status = StatusBlocked
		item.BlockedReason = BlockedRequiresConfirmation
		return item, nil
	}

	item.Status = StatusAllowed
	item.TargetState = decision.TargetState
	return item, nil
}
