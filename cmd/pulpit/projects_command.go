package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pulpit/internal/project"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List processed projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			manager := project.NewManager(cfg.Paths.ProjectsDir)
			entries, err := manager.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.ID,
					entry.Title,
					entry.Status,
					entry.CreatedAt.Format("2006-01-02 15:04"),
					entry.Dir,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Status", "Created", "Directory"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
