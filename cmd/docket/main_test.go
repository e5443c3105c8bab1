package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"docket/internal/config"
	"docket/internal/executor"
	"docket/internal/plan"
	"docket/internal/testsupport"
)

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func setupCLITest(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(cfg.Paths.DataDir, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
}

func TestPlanBuildExecuteUndoRoundTrip(t *testing.T) {
	cfg, configPath := setupCLITest(t)

	src := filepath.Join(cfg.Paths.InboxDir, "Case-2024-001_Motion.pdf")
	testsupport.WriteFile(t, src, "motion to dismiss")

	out, stderr, err := runCLI(t, configPath, "plan", "build", "--json")
	if err != nil {
		t.Fatalf("plan build: %v (stderr: %s)", err, stderr)
	}
	var built plan.Plan
	if err := json.Unmarshal([]byte(out), &built); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(built.Items) != 1 || built.Items[0].Status != plan.StatusAllowed {
		t.Fatalf("unexpected plan: %+v", built)
	}
	wantDest := filepath.Join(cfg.Paths.LibraryDir, "Cases", "Case-2024-001", "Court_Filings", "Motion", "Case-2024-001_Motion.pdf")
	if built.Items[0].ToPath != wantDest {
		t.Fatalf("routed to %s, want %s", built.Items[0].ToPath, wantDest)
	}

	out, stderr, err = runCLI(t, configPath, "plan", "execute", built.ID, "--json")
	if err != nil {
		t.Fatalf("plan execute: %v (stderr: %s)", err, stderr)
	}
	var report executor.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Success || report.Successful != 1 || report.BackupID == "" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, err := os.Stat(wantDest); err != nil {
		t.Fatalf("file not moved: %v", err)
	}

	out, _, err = runCLI(t, configPath, "undo", report.BackupID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !strings.Contains(out, "1 restored") {
		t.Fatalf("unexpected undo output: %s", out)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("file not restored: %v", err)
	}
}

func TestPlanExecuteDryRunLeavesFilesAlone(t *testing.T) {
	cfg, configPath := setupCLITest(t)

	src := filepath.Join(cfg.Paths.InboxDir, "invoice_42.pdf")
	testsupport.WriteFile(t, src, "invoice")

	out, _, err := runCLI(t, configPath, "plan", "build", "--json")
	if err != nil {
		t.Fatalf("plan build: %v", err)
	}
	var built plan.Plan
	if err := json.Unmarshal([]byte(out), &built); err != nil {
		t.Fatalf("decode plan: %v", err)
	}

	out, _, err = runCLI(t, configPath, "plan", "execute", built.ID, "--dry-run", "--json")
	if err != nil {
		t.Fatalf("plan execute --dry-run: %v", err)
	}
	var report executor.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.DryRun || report.Successful != 0 || report.WouldMove != 1 || report.BackupID != "" {
		t.Fatalf("unexpected dry-run report: %+v", report)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("dry run moved the file: %v", err)
	}
}

func TestStatusCommand(t *testing.T) {
	cfg, configPath := setupCLITest(t)

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InboxDir, "notes.txt"), "notes")
	if _, _, err := runCLI(t, configPath, "plan", "build", "--json"); err != nil {
		t.Fatalf("plan build: %v", err)
	}

	out, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Tracked files: 1") {
		t.Fatalf("unexpected status output: %s", out)
	}
}

func TestUndoListEmpty(t *testing.T) {
	_, configPath := setupCLITest(t)

	out, _, err := runCLI(t, configPath, "undo", "--list")
	if err != nil {
		t.Fatalf("undo --list: %v", err)
	}
	if !strings.Contains(out, "No rollback groups") {
		t.Fatalf("unexpected output: %s", out)
	}
}
