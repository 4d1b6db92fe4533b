package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pulpit/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigShowCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if err := config.WriteSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set openai api_key (or export OPENAI_API_KEY) before running pulpit.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, resolvedPath, exists, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Configuration at %s is valid.\n", resolvedPath)
			} else {
				fmt.Fprintf(out, "No configuration file found; defaults are valid. Run 'pulpit config init' to create %s.\n", resolvedPath)
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(out, "Notifications are disabled (no ntfy_topic).")
			}
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, resolvedPath, exists, err := config.Load(path)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Config file", resolvedPath},
				{"File exists", yesNo(exists)},
				{"Intake dir", cfg.Paths.IntakeDir},
				{"Projects dir", cfg.Paths.ProjectsDir},
				{"Staging dir", cfg.Paths.StagingDir},
				{"Log dir", cfg.Paths.LogDir},
				{"API key set", yesNo(strings.TrimSpace(cfg.OpenAI.APIKey) != "")},
				{"Transcribe model", cfg.OpenAI.TranscribeModel},
				{"Chat model", cfg.OpenAI.ChatModel},
				{"Language", cfg.OpenAI.Language},
				{"Segment seconds", fmt.Sprintf("%d", cfg.Transcription.SegmentSeconds)},
				{"Workers", fmt.Sprintf("%d", cfg.Transcription.Workers)},
				{"Correction", yesNo(cfg.Correction.Enabled)},
				{"Correction mode", cfg.Correction.Mode},
				{"Ideas", yesNo(cfg.Ideas.Enabled)},
				{"Idea count", fmt.Sprintf("%d (%d/%d/%d)", cfg.Ideas.Count, cfg.Ideas.ActOne, cfg.Ideas.ActTwo, cfg.Ideas.ActThree)},
				{"Notifications", yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != "")},
				{"Log format", cfg.Logging.Format},
				{"Log level", cfg.Logging.Level},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
