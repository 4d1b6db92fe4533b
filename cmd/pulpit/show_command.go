package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			item, err := store.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("no queue item with id %d", id)
			}

			rows := [][]string{
				{"ID", strconv.FormatInt(item.ID, 10)},
				{"Title", item.Title},
				{"Status", string(item.Status)},
				{"Source", item.SourcePath},
				{"Created", item.CreatedAt.Format("2006-01-02 15:04:05")},
				{"Updated", item.UpdatedAt.Format("2006-01-02 15:04:05")},
			}
			if item.ProgressStage != "" {
				rows = append(rows, []string{"Progress", fmt.Sprintf("%s (%.0f%%) %s", item.ProgressStage, item.ProgressPercent, item.ProgressMessage)})
			}
			if item.ProjectDir != "" {
				rows = append(rows, []string{"Project", item.ProjectDir})
			}
			if item.AudioFile != "" {
				rows = append(rows, []string{"Audio", item.AudioFile})
			}
			if item.SegmentCount > 0 {
				rows = append(rows, []string{"Segments", strconv.Itoa(item.SegmentCount)})
			}
			if item.TranscriptText != "" {
				rows = append(rows, []string{"Transcript", item.TranscriptText})
			}
			if item.CorrectedFile != "" {
				rows = append(rows, []string{"Corrected", item.CorrectedFile})
			}
			if item.IdeasFile != "" {
				rows = append(rows, []string{"Ideas", item.IdeasFile})
			}
			if item.NeedsReview {
				rows = append(rows, []string{"Needs review", yesNo(item.NeedsReview)})
				if reason := strings.TrimSpace(item.ReviewReason); reason != "" {
					rows = append(rows, []string{"Review reason", reason})
				}
			}
			if msg := strings.TrimSpace(item.ErrorMessage); msg != "" {
				rows = append(rows, []string{"Error", msg})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
