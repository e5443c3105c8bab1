package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"docket/internal/classify"
	"docket/internal/config"
	"docket/internal/executor"
	"docket/internal/extract"
	"docket/internal/plan"
	"docket/internal/routing"
	"docket/internal/store"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Build, inspect, and execute organization plans",
	}

	planCmd.AddCommand(newPlanBuildCommand(ctx))
	planCmd.AddCommand(newPlanListCommand(ctx))
	planCmd.AddCommand(newPlanShowCommand(ctx))
	planCmd.AddCommand(newPlanExecuteCommand(ctx))

	return planCmd
}

func newPlanBuildCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "build [paths...]",
		Short: "Classify files and build an organization plan",
		Long: "Classifies the given files (or everything under the inbox when no paths " +
			"are supplied), routes each one against the configured rule set, and saves " +
			"the resulting plan for review. Nothing is moved until the plan is executed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				paths, err := collectPaths(cfg, args)
				if err != nil {
					return err
				}
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to classify.")
					return nil
				}

				logger := ctx.ensureLogger()
				orc := classify.New(st, extract.FilenameExtractor{}, cfg, logger)
				results, err := orc.ClassifyBatch(cmd.Context(), paths)
				if err != nil {
					return fmt.Errorf("classify batch: %w", err)
				}

				engine := routing.NewEngine(routing.RulesForMode(cfg.Routing.Mode), cfg.Routing.ConfidenceThreshold, cfg.Routing.ReviewFolder)
				builder := plan.NewBuilder(engine, st, cfg.Routing.Mode, "docket", logger)
				p, err := builder.BuildPlan(cmd.Context(), results, cfg.Paths.LibraryDir)
				if err != nil {
					return fmt.Errorf("build plan: %w", err)
				}
				if err := st.SavePlan(cmd.Context(), p); err != nil {
					return fmt.Errorf("save plan: %w", err)
				}

				out := cmd.OutOrStdout()
				if jsonOut {
					return writeJSON(out, p)
				}
				renderPlan(out, p)
				fmt.Fprintf(out, "\nPlan %s saved. Execute it with `docket plan execute %s`.\n", p.ID, p.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the plan as JSON")
	return cmd
}

func newPlanListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				summaries, err := st.Plans(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No plans stored.")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{
						s.ID,
						s.CreatedAt,
						s.Mode,
						strconv.Itoa(s.Total),
						strconv.Itoa(s.Allowed),
						strconv.Itoa(s.Blocked),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Plan", "Created", "Mode", "Items", "Allowed", "Blocked"},
					rows, 3, 4, 5,
				))
				return nil
			})
		},
	}
}

func newPlanShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a stored plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				p, err := st.GetPlan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					return writeJSON(out, p)
				}
				renderPlan(out, p)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the plan as JSON")
	return cmd
}

func newPlanExecuteCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun        bool
		skipConflicts bool
		jsonOut       bool
	)

	cmd := &cobra.Command{
		Use:   "execute <plan-id>",
		Short: "Execute a stored plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()
				opts := executor.Options{
					DryRun:        dryRun,
					SkipConflicts: skipConflicts,
				}
				if !jsonOut && isTerminal(out) {
					opts.OnProgress = func(message string, percent float64) {
						fmt.Fprintf(out, "[%3.0f%%] %s\n", percent, message)
					}
				}

				exec := executor.New(st, cfg, ctx.ensureLogger())
				report, err := exec.Execute(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(out, report)
				}
				renderExecutionReport(out, report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would happen without moving anything")
	cmd.Flags().BoolVar(&skipConflicts, "skip-conflicts", false, "Skip items whose destination is occupied instead of renaming")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the execution report as JSON")
	return cmd
}

func collectPaths(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		paths := make([]string, 0, len(args))
		for _, arg := range args {
			expanded, err := config.ExpandPath(arg)
			if err != nil {
				return nil, err
			}
			info, err := os.Stat(expanded)
			if err != nil {
				return nil, fmt.Errorf("inspect path %q: %w", arg, err)
			}
			if info.IsDir() {
				nested, err := filesUnder(expanded)
				if err != nil {
					return nil, err
				}
				paths = append(paths, nested...)
				continue
			}
			paths = append(paths, expanded)
		}
		return paths, nil
	}

	if _, err := os.Stat(cfg.Paths.InboxDir); os.IsNotExist(err) {
		return nil, nil
	}
	return filesUnder(cfg.Paths.InboxDir)
}

func filesUnder(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func renderPlan(out io.Writer, p *plan.Plan) {
	rows := make([][]string, 0, len(p.Items))
	for _, item := range p.Items {
		status := string(item.Status)
		if item.Status == plan.StatusBlocked {
			status = fmt.Sprintf("blocked (%s)", item.BlockedReason)
		}
		rows = append(rows, []string{
			filepath.Base(item.FromPath),
			status,
			item.ToPath,
			string(item.TargetState),
		})
	}
	fmt.Fprintf(out, "Plan %s (%s, %d items)\n", p.ID, p.Mode, len(p.Items))
	fmt.Fprintln(out, renderTable([]string{"File", "Status", "Destination", "State"}, rows))
}

func renderExecutionReport(out io.Writer, report *executor.Report) {
	if report.DryRun {
		fmt.Fprintf(out, "Simulated plan %s: %d would move, %d skipped, %d failed (%.2fs)\n",
			report.PlanID, report.WouldMove, report.Skipped, report.Failed, report.Duration.Seconds())
	} else {
		fmt.Fprintf(out, "Executed plan %s: %d moved, %d skipped, %d failed (%.2fs)\n",
			report.PlanID, report.Successful, report.Skipped, report.Failed, report.Duration.Seconds())
	}
	if report.BackupID != "" {
		fmt.Fprintf(out, "Undo with `docket undo %s`.\n", report.BackupID)
	}
	for _, item := range report.Items {
		if item.Outcome == executor.OutcomeFailed {
			fmt.Fprintf(out, "  failed %s: %s\n", item.FromPath, item.Detail)
		}
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
