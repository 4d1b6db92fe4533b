package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file> [file...]",
		Short: "Queue recordings for processing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			for _, arg := range args {
				path, err := filepath.Abs(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				if !cfg.AcceptsFormat(path) {
					return fmt.Errorf("unsupported format: %s (accepted: %s)",
						filepath.Ext(path), strings.Join(cfg.Transcription.Formats, ", "))
				}

				existing, err := store.FindBySourcePath(cmd.Context(), path)
				if err != nil {
					return err
				}
				if existing != nil {
					fmt.Fprintf(out, "Already queued as item %d: %s\n", existing.ID, filepath.Base(path))
					continue
				}

				item, err := store.NewFile(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queued item %d: %s (%s)\n", item.ID, item.Title, filepath.Base(path))
			}
			return nil
		},
	}
}
