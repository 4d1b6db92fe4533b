package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pulpit/internal/correct"
)

func newCorrectCommand(ctx *commandContext) *cobra.Command {
	var inputPath string
	var outputPath string
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Correct a transcript file outside the queue pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}

			if strings.TrimSpace(inputPath) == "" {
				return fmt.Errorf("--input is required")
			}
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			text := strings.TrimSpace(string(data))
			if text == "" {
				return fmt.Errorf("input file is empty: %s", inputPath)
			}

			if mode := strings.TrimSpace(modeFlag); mode != "" {
				if mode != correct.ModeDocument && mode != correct.ModeUnits {
					return fmt.Errorf("invalid mode %q (expected %s or %s)", mode, correct.ModeDocument, correct.ModeUnits)
				}
				cfg.Correction.Mode = mode
			}
			cfg.Correction.Enabled = true

			corrector := correct.NewCorrector(cfg, nil, logger)

			out := cmd.OutOrStdout()
			corrected, err := corrector.CorrectText(cmd.Context(), text, func(done, total int) {
				fmt.Fprintf(out, "Corrected unit %d of %d\n", done, total)
			})
			if err != nil {
				return err
			}

			if target := strings.TrimSpace(outputPath); target != "" {
				if err := os.WriteFile(target, []byte(corrected+"\n"), 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(out, "Wrote corrected text to %s\n", target)
				return nil
			}
			fmt.Fprintln(out, corrected)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Transcript text file to correct")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (stdout when omitted)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Correction mode: document or units")
	return cmd
}
