package plan

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"docket/internal/extract"
	"docket/internal/lifecycle"
	"docket/internal/logging"
	"docket/internal/routing"
	"docket/internal/services"
)

type stateMap map[string]lifecycle.State

func (m stateMap) GetState(_ context.Context, fileID string) (lifecycle.State, error) {
	state, ok := m[fileID]
	if !ok {
		return "", errors.New("unknown file")
	}
	return state, nil
}

func newTestBuilder(states stateMap) *Builder {
	engine := routing.NewEngine(routing.LegalRules(), 0.6, "Review")
	return NewBuilder(engine, states, "LEGAL", "test", logging.NewNop())
}

func motionResult() extract.Result {
	return extract.Result{DocType: "motion", GroupingKey: "Case-2024-001", Confidence: 0.9}
}

func TestBuildPlanAllowedItem(t *testing.T) {
	builder := newTestBuilder(stateMap{"f-1": lifecycle.StateActive})
	built, err := builder.BuildPlan(context.Background(), []Classification{
		Classified("f-1", "/inbox/Case-2024-001_motion.pdf", motionResult()),
	}, "/library")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(built.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(built.Items))
	}
	item := built.Items[0]
	if item.Status != StatusAllowed {
		t.Fatalf("status = %s (%v)", item.Status, item.RuleTrace)
	}
	want := filepath.Join("/library", "Cases", "Case-2024-001", "Court_Filings", "Motion", "Case-2024-001_motion.pdf")
	if item.ToPath != want {
		t.Fatalf("to path = %q, want %q", item.ToPath, want)
	}
	if item.TargetState != lifecycle.StateFiled {
		t.Fatalf("target state = %s", item.TargetState)
	}
	if built.Mode != "LEGAL" || built.CreatedBy != "test" {
		t.Fatalf("plan metadata wrong: %+v", built)
	}
}

func TestBuildPlanImmutableStateBlocks(t *testing.T) {
	for _, state := range []lifecycle.State{lifecycle.StateFiled, lifecycle.StateLocked} {
		builder := newTestBuilder(stateMap{"f-1": state})
		built, err := builder.BuildPlan(context.Background(), []Classification{
			Classified("f-1", "/inbox/doc.pdf", motionResult()),
		}, "/library")
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		item := built.Items[0]
		if item.Status != StatusBlocked || item.BlockedReason != BlockedImmutable {
			t.Fatalf("state %s: expected immutable block, got %s/%s", state, item.Status, item.BlockedReason)
		}
		if item.ToPath != "" {
			t.Fatalf("immutable items must skip routing, got to_path %q", item.ToPath)
		}
	}
}

func TestBuildPlanConfirmationBlocks(t *testing.T) {
	builder := newTestBuilder(stateMap{"f-1": lifecycle.StateActive})
	low := extract.Result{DocType: "motion", GroupingKey: "Case-2024-001", Confidence: 0.2}
	built, err := builder.BuildPlan(context.Background(), []Classification{
		Classified("f-1", "/inbox/doc.pdf", low),
	}, "/library")
	if err != nil {
		t.Fatal(err)
	}
	item := built.Items[0]
	if item.Status != StatusBlocked || item.BlockedReason != BlockedRequiresConfirmation {
		t.Fatalf("expected confirmation block, got %s/%s", item.Status, item.BlockedReason)
	}
	if len(item.RuleTrace) == 0 {
		t.Fatal("confirmation block must carry a rule trace")
	}
}

func TestBuildPlanExtractionFailureSurfaced(t *testing.T) {
	builder := newTestBuilder(stateMap{"f-1": lifecycle.StateActive})
	built, err := builder.BuildPlan(context.Background(), []Classification{
		ClassificationFailed("f-1", "/inbox/doc.pdf", errors.New("unreadable pdf")),
	}, "/library")
	if err != nil {
		t.Fatal(err)
	}
	item := built.Items[0]
	if item.Status != StatusBlocked || item.BlockedReason != BlockedExtractionFailed {
		t.Fatalf("expected extraction block, got %s/%s", item.Status, item.BlockedReason)
	}
}

func TestBuildPlanDuplicateFileIDFails(t *testing.T) {
	builder := newTestBuilder(stateMap{"f-1": lifecycle.StateActive})
	_, err := builder.BuildPlan(context.Background(), []Classification{
		Classified("f-1", "/inbox/a.pdf", motionResult()),
		Classified("f-1", "/inbox/b.pdf", motionResult()),
	}, "/library")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for duplicate file id, got %v", err)
	}
}

func TestBuildPlanCanonicalOrder(t *testing.T) {
	states := stateMap{"a": lifecycle.StateActive, "b": lifecycle.StateActive, "c": lifecycle.StateActive}
	inputs := []Classification{
		Classified("c", "/inbox/c.pdf", motionResult()),
		Classified("a", "/inbox/a.pdf", motionResult()),
		Classified("b", "/inbox/b.pdf", motionResult()),
	}
	built, err := newTestBuilder(states).BuildPlan(context.Background(), inputs, "/library")
	if err != nil {
		t.Fatal(err)
	}
	got := []string{built.Items[0].FileID, built.Items[1].FileID, built.Items[2].FileID}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("items not in canonical order: %v", got)
	}
}

func TestBuildPlanUnknownFileFails(t *testing.T) {
	builder := newTestBuilder(stateMap{})
	_, err := builder.BuildPlan(context.Background(), []Classification{
		Classified("ghost", "/inbox/x.pdf", motionResult()),
	}, "/library")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPlanValidateRejectsInconsistentItem(t *testing.T) {
	p := &Plan{ID: "p", Items: []Item{{FileID: "f", Status: StatusBlocked}}}
	if err := p.Validate(); err == nil {
		t.Fatal("blocked item without reason must fail validation")
	}
	p = &Plan{ID: "p", Items: []Item{{FileID: "f", Status: StatusAllowed, BlockedReason: BlockedImmutable}}}
	if err := p.Validate(); err == nil {
		t.Fatal("allowed item with reason must fail validation")
	}
}
