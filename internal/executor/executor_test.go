package executor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docket/internal/executor"
	"docket/internal/lifecycle"
	"docket/internal/plan"
	"docket/internal/store"
	"docket/internal/testsupport"
	"docket/internal/undo"
)

func savePlan(t *testing.T, st *store.Store, items []plan.Item) string {
	t.Helper()
	p := &plan.Plan{
		ID:        "plan-" + t.Name(),
		CreatedBy: "test",
		Mode:      "LEGAL",
		CreatedAt: time.Now().UTC(),
		Items:     items,
	}
	if err := st.SavePlan(context.Background(), p); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	return p.ID
}

func moveItem(tracked *store.TrackedFile, to string, target lifecycle.State) plan.Item {
	return plan.Item{
		FileID:      tracked.FileID,
		Action:      plan.ActionMove,
		FromPath:    tracked.CurrentPath,
		ToPath:      to,
		Status:      plan.StatusAllowed,
		TargetState: target,
	}
}

func TestExecuteMovesFileAndUpdatesState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	src := filepath.Join(cfg.Paths.InboxDir, "Case-2024-001_Motion.pdf")
	testsupport.WriteFile(t, src, "motion to dismiss")
	tracked := testsupport.TrackFile(t, st, src)

	dest := filepath.Join(cfg.Paths.LibraryDir, "Cases", "Case-2024-001", "Court_Filings", "Motion", "Case-2024-001_Motion.pdf")
	planID := savePlan(t, st, []plan.Item{moveItem(tracked, dest, lifecycle.StateFiled)})

	exec := executor.New(st, cfg, nil)
	report, err := exec.Execute(ctx, planID, executor.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !report.Success || report.Successful != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.BackupID == "" {
		t.Fatal("expected backup id after a live move")
	}

	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}

	updated, err := st.GetTrackedFile(ctx, tracked.FileID)
	if err != nil {
		t.Fatalf("GetTrackedFile: %v", err)
	}
	if updated.CurrentPath != dest || updated.State != lifecycle.StateFiled {
		t.Fatalf("record not committed: %+v", updated)
	}
}

func TestDryRunTouchesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	src := filepath.Join(cfg.Paths.InboxDir, "invoice_55.pdf")
	testsupport.WriteFile(t, src, "invoice")
	tracked := testsupport.TrackFile(t, st, src)

	dest := filepath.Join(cfg.Paths.LibraryDir, "Finance", "Invoices", "invoice_55.pdf")
	planID := savePlan(t, st, []plan.Item{moveItem(tracked, dest, lifecycle.StateFiled)})

	exec := executor.New(st, cfg, nil)
	report, err := exec.Execute(ctx, planID, executor.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Successful != 0 || report.WouldMove != 1 || report.BackupID != "" {
		t.Fatalf("unexpected dry-run report: %+v", report)
	}
	if report.Items[0].Outcome != executor.OutcomeWouldMove {
		t.Fatalf("expected would-move outcome, got %s", report.Items[0].Outcome)
	}
	if report.Items[0].ToPath != dest {
		t.Fatalf("dry run should report the resolved destination, got %s", report.Items[0].ToPath)
	}

	if _, err := os.Stat(src); err != nil {
		t.Fatalf("dry run moved the source: %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("dry run created the destination: %v", err)
	}

	unchanged, err := st.GetTrackedFile(ctx, tracked.FileID)
	if err != nil {
		t.Fatalf("GetTrackedFile: %v", err)
	}
	if unchanged.CurrentPath != src || unchanged.State != lifecycle.StateUnclassified {
		t.Fatalf("dry run changed the record: %+v", unchanged)
	}
	groups, err := st.RollbackGroups(ctx)
	if err != nil {
		t.Fatalf("RollbackGroups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("dry run recorded rollback groups: %+v", groups)
	}
}

func TestReExecutionSkipsCompletedItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	src := filepath.Join(cfg.Paths.InboxDir, "Case-2024-002_Order.pdf")
	testsupport.WriteFile(t, src, "order")
	tracked := testsupport.TrackFile(t, st, src)

	dest := filepath.Join(cfg.Paths.LibraryDir, "Cases", "Case-2024-002", "Court_Filings", "Order", "Case-2024-002_Order.pdf")
	planID := savePlan(t, st, []plan.Item{moveItem(tracked, dest, lifecycle.StateFiled)})

	exec := executor.New(st, cfg, nil)
	if _, err := exec.Execute(ctx, planID, executor.Options{}); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	report, err := exec.Execute(ctx, planID, executor.Options{})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !report.Success || report.Skipped != 1 || report.Successful != 0 {
		t.Fatalf("re-execution not idempotent: %+v", report)
	}
	if report.BackupID != "" {
		t.Fatal("re-execution with no moves should not produce a backup id")
	}
}

func TestConflictRenamesDeterministically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	dest := filepath.Join(cfg.Paths.LibraryDir, "Finance", "Invoices", "report.pdf")
	testsupport.WriteFile(t, dest, "already filed")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.LibraryDir, "Finance", "Invoices", "report_1.pdf"), "also filed")

	src := filepath.Join(cfg.Paths.InboxDir, "report.pdf")
	testsupport.WriteFile(t, src, "new report")
	tracked := testsupport.TrackFile(t, st, src)

	planID := savePlan(t, st, []plan.Item{moveItem(tracked, dest, lifecycle.StateFiled)})

	exec := executor.New(st, cfg, nil)
	report, err := exec.Execute(ctx, planID, executor.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Successful != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "Finance", "Invoices", "report_2.pdf")
	if report.Items[0].ToPath != want {
		t.Fatalf("expected rename to %s, got %s", want, report.Items[0].ToPath)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("renamed destination missing: %v", err)
	}
}

func TestConflictSkippedWhenRequested(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	dest := filepath.Join(cfg.Paths.LibraryDir, "Finance", "Invoices", "report.pdf")
	testsupport.WriteFile(t, dest, "already filed")

	src := filepath.Join(cfg.Paths.InboxDir, "report.pdf")
	testsupport.WriteFile(t, src, "new report")
	tracked := testsupport.TrackFile(t, st, src)

	planID := savePlan(t, st, []plan.Item{moveItem(tracked, dest, lifecycle.StateFiled)})

	exec := executor.New(st, cfg, nil)
	report, err := exec.Execute(ctx, planID, executor.Options{SkipConflicts: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Skipped != 1 || report.Successful != 0 {
		t.Fatalf("expected skip on conflict: %+v", report)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should be untouched: %v", err)
	}
}

func TestBlockedItemsReportedSkipped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	src := filepath.Join(cfg.Paths.InboxDir, "locked.pdf")
	testsupport.WriteFile(t, src, "locked contents")
	tracked := testsupport.TrackFile(t, st, src)

	planID := savePlan(t, st, []plan.Item{{
		FileID:        tracked.FileID,
		Action:        plan.ActionMove,
		FromPath:      src,
		Status:        plan.StatusBlocked,
		BlockedReason: plan.BlockedImmutable,
	}})

	exec := executor.New(st, cfg, nil)
	report, err := exec.Execute(ctx, planID, executor.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !report.Success || report.Skipped != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.BackupID != "" {
		t.Fatal("blocked-only plan should not produce a backup id")
	}
}

func TestDanglingItemFailsWithoutStoppingPlan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	orphan := filepath.Join(cfg.Paths.InboxDir, "orphan.pdf")
	testsupport.WriteFile(t, orphan, "orphan")

	src := filepath.Join(cfg.Paths.InboxDir, "Case-2024-003_Brief.pdf")
	testsupport.WriteFile(t, src, "brief")
	tracked := testsupport.TrackFile(t, st, src)

	dest := filepath.Join(cfg.Paths.LibraryDir, "Cases", "Case-2024-003", "Court_Filings", "Brief", "Case-2024-003_Brief.pdf")
	planID := savePlan(t, st, []plan.Item{
		{
			FileID:      "ghost",
			Action:      plan.ActionMove,
			FromPath:    orphan,
			ToPath:      filepath.Join(cfg.Paths.LibraryDir, "Unsorted", "orphan.pdf"),
			Status:      plan.StatusAllowed,
			TargetState: lifecycle.StateActive,
		},
		moveItem(tracked, dest, lifecycle.StateFiled),
	})

	exec := executor.New(st, cfg, nil)
	report, err := exec.Execute(ctx, planID, executor.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Failed != 1 || report.Successful != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Items[0].Outcome != executor.OutcomeFailed || report.Items[0].Detail == "" {
		t.Fatalf("dangling item should fail with a detail: %+v", report.Items[0])
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Fatalf("file with no record should stay put: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("healthy item should still move: %v", err)
	}
}

func TestDestinationUnderRegularFileFailsInDryRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// The destination's would-be parent directory is occupied by a file.
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.LibraryDir, "Finance"), "not a directory")

	src := filepath.Join(cfg.Paths.InboxDir, "invoice_7.pdf")
	testsupport.WriteFile(t, src, "invoice")
	tracked := testsupport.TrackFile(t, st, src)

	dest := filepath.Join(cfg.Paths.LibraryDir, "Finance", "Invoices", "invoice_7.pdf")
	planID := savePlan(t, st, []plan.Item{moveItem(tracked, dest, lifecycle.StateFiled)})

	exec := executor.New(st, cfg, nil)
	report, err := exec.Execute(ctx, planID, executor.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Failed != 1 || report.WouldMove != 0 {
		t.Fatalf("unexpected dry-run report: %+v", report)
	}
	if report.Items[0].Outcome != executor.OutcomeFailed || report.Items[0].Detail == "" {
		t.Fatalf("expected failure with a detail: %+v", report.Items[0])
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("dry run moved the source: %v", err)
	}
}

func TestMixedPlanDryRunThenExecuteThenUndo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	movable := filepath.Join(cfg.Paths.InboxDir, "Case-2024-001_Motion.pdf")
	testsupport.WriteFile(t, movable, "motion")
	trackedX := testsupport.TrackFile(t, st, movable)

	lockedSrc := filepath.Join(cfg.Paths.InboxDir, "sealed.pdf")
	testsupport.WriteFile(t, lockedSrc, "sealed")
	trackedY := testsupport.TrackFile(t, st, lockedSrc)

	dest := filepath.Join(cfg.Paths.LibraryDir, "Cases", "Case-2024-001", "Court_Filings", "Motion", "Case-2024-001_Motion.pdf")
	planID := savePlan(t, st, []plan.Item{
		moveItem(trackedX, dest, lifecycle.StateFiled),
		{
			FileID:        trackedY.FileID,
			Action:        plan.ActionMove,
			FromPath:      lockedSrc,
			Status:        plan.StatusBlocked,
			BlockedReason: plan.BlockedImmutable,
		},
	})

	exec := executor.New(st, cfg, nil)

	dry, err := exec.Execute(ctx, planID, executor.Options{DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if dry.TotalItems != 2 || dry.Successful != 0 || dry.WouldMove != 1 || dry.BackupID != "" {
		t.Fatalf("unexpected dry-run report: %+v", dry)
	}
	for _, src := range []string{movable, lockedSrc} {
		if _, err := os.Stat(src); err != nil {
			t.Fatalf("dry run touched %s: %v", src, err)
		}
	}

	live, err := exec.Execute(ctx, planID, executor.Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if live.Successful != 1 || live.Skipped != 1 || live.BackupID == "" {
		t.Fatalf("unexpected report: %+v", live)
	}
	if _, err := os.Stat(lockedSrc); err != nil {
		t.Fatalf("blocked file moved: %v", err)
	}

	undoReport, err := undo.New(st, nil).Undo(ctx, live.BackupID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !undoReport.Complete || undoReport.Restored != 1 {
		t.Fatalf("unexpected undo report: %+v", undoReport)
	}
	if _, err := os.Stat(movable); err != nil {
		t.Fatalf("file not returned to origin: %v", err)
	}
	if _, err := os.Stat(lockedSrc); err != nil {
		t.Fatalf("blocked file disturbed by undo: %v", err)
	}
}

func TestProgressCallbackCoversAllItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var items []plan.Item
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		src := filepath.Join(cfg.Paths.InboxDir, name)
		testsupport.WriteFile(t, src, name)
		tracked := testsupport.TrackFile(t, st, src)
		items = append(items, moveItem(tracked, filepath.Join(cfg.Paths.LibraryDir, "Unsorted", name), lifecycle.StateActive))
	}
	planID := savePlan(t, st, items)

	var percents []float64
	exec := executor.New(st, cfg, nil)
	_, err := exec.Execute(ctx, planID, executor.Options{
		OnProgress: func(message string, percent float64) {
			percents = append(percents, percent)
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(percents) != 3 {
		t.Fatalf("expected 3 progress calls, got %d", len(percents))
	}
	if percents[2] != 100 {
		t.Fatalf("final progress should be 100, got %f", percents[2])
	}
}
