package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pulpit/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue management",
	}
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			total := 0
			rows := make([][]string, 0, len(stats))
			for _, status := range queue.AllStatuses() {
				count, ok := stats[status]
				if !ok || count == 0 {
					continue
				}
				total += count
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
			}
			rows = append(rows, []string{"total", strconv.Itoa(total)})

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
				status, ok := queue.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q", trimmed)
				}
				statuses = append(statuses, status)
			}

			items, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				progress := ""
				if queue.IsProcessingStatus(item.Status) {
					progress = fmt.Sprintf("%.0f%%", item.ProgressPercent)
				}
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					item.Title,
					string(item.Status),
					progress,
					filepath.Base(item.SourcePath),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Status", "Progress", "Source"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only list items with this status")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Move failed items back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			retried, err := store.RetryFailed(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d item(s)\n", retried)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context(), completedOnly)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed items")
	return cmd
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.ClearFailed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed item(s)\n", removed)
			return nil
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset stuck processing items to the start of their stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			reset, err := store.ResetStuckProcessing(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d item(s)\n", reset)
			return nil
		},
	}
}
