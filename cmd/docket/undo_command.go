package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docket/internal/config"
	"docket/internal/store"
	"docket/internal/undo"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var (
		list    bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "undo [backup-id]",
		Short: "Revert an executed plan",
		Long: "Replays a rollback group in reverse, returning every moved file to where " +
			"it came from. Files that changed since execution are reported and left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()

				if list {
					groups, err := st.RollbackGroups(cmd.Context())
					if err != nil {
						return err
					}
					if len(groups) == 0 {
						fmt.Fprintln(out, "No rollback groups recorded.")
						return nil
					}
					rows := make([][]string, 0, len(groups))
					for _, g := range groups {
						undone := g.UndoneAt
						if undone == "" {
							undone = "-"
						}
						rows = append(rows, []string{g.BackupID, g.PlanID, g.CreatedAt, strconv.Itoa(g.Entries), undone})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Backup", "Plan", "Created", "Moves", "Undone"},
						rows, 3,
					))
					return nil
				}

				if len(args) != 1 {
					return errors.New("a backup id is required (see `docket undo --list`)")
				}

				mgr := undo.New(st, ctx.ensureLogger())
				report, err := mgr.Undo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(out, report)
				}

				fmt.Fprintf(out, "Undid backup %s: %d restored, %d failed\n", report.BackupID, report.Restored, report.Failed)
				for _, entry := range report.Entries {
					if !entry.Restored {
						fmt.Fprintf(out, "  not restored (%s): %s\n", entry.FileID, entry.Detail)
					}
				}
				if !report.Complete {
					fmt.Fprintln(out, "Some files were not restored; fix the conflicts and run the undo again.")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List rollback groups instead of undoing")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the undo report as JSON")
	return cmd
}
