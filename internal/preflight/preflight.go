package preflight

import (
	"context"

	"pulpit/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Intake directory", cfg.Paths.IntakeDir))
	results = append(results, CheckDirectoryAccess("Projects directory", cfg.Paths.ProjectsDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir))
	results = append(results, CheckOpenAI(ctx, cfg))
	return results
}
