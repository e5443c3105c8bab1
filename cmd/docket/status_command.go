package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"docket/internal/config"
	"docket/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show tracked files, plans, and rollback groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stats, err := st.Summary(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					return writeJSON(out, statusPayload{
						Database:       st.Path(),
						TrackedFiles:   stats.TrackedFiles,
						ByState:        stateCounts(stats),
						Plans:          stats.Plans,
						RollbackGroups: stats.RollbackGroups,
					})
				}

				fmt.Fprintf(out, "Database: %s\n", st.Path())
				fmt.Fprintf(out, "Tracked files: %d  Plans: %d  Rollback groups: %d\n\n",
					stats.TrackedFiles, stats.Plans, stats.RollbackGroups)

				if stats.TrackedFiles == 0 {
					return nil
				}
				counts := stateCounts(stats)
				states := make([]string, 0, len(counts))
				for state := range counts {
					states = append(states, state)
				}
				sort.Strings(states)
				rows := make([][]string, 0, len(states))
				for _, state := range states {
					rows = append(rows, []string{state, strconv.Itoa(counts[state])})
				}
				fmt.Fprintln(out, renderTable([]string{"State", "Files"}, rows, 1))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

type statusPayload struct {
	Database       string         `json:"database"`
	TrackedFiles   int            `json:"tracked_files"`
	ByState        map[string]int `json:"by_state"`
	Plans          int            `json:"plans"`
	RollbackGroups int            `json:"rollback_groups"`
}

func stateCounts(stats store.Stats) map[string]int {
	counts := make(map[string]int, len(stats.ByState))
	for state, count := range stats.ByState {
		counts[string(state)] = count
	}
	return counts
}
