package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pulpit/internal/preflight"
	"pulpit/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system readiness and queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n\n", ctx.configPath)

			depRows := make([][]string, 0, 2)
			for _, status := range preflight.CheckSystemDeps(cfg) {
				state := status.Command
				if !status.Available {
					state = status.Detail
				}
				depRows = append(depRows, []string{status.Name, state, status.Description})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Location", "Purpose"},
				depRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			checkRows := make([][]string, 0, 5)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				state := "FAIL"
				if result.Passed {
					state = "ok"
				}
				checkRows = append(checkRows, []string{result.Name, state, result.Detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Result", "Detail"},
				checkRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Queue", "Count"},
				[][]string{
					{string(queue.StatusPending), strconv.Itoa(health.Pending)},
					{"processing", strconv.Itoa(health.Processing)},
					{string(queue.StatusCompleted), strconv.Itoa(health.Completed)},
					{string(queue.StatusFailed), strconv.Itoa(health.Failed)},
					{string(queue.StatusReview), strconv.Itoa(health.Review)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
