package workflow

import (
	"context"

	"pulpit/internal/queue"
	"pulpit/internal/stage"
)

// HealthReport aggregates queue counts and per-stage readiness.
type HealthReport struct {
	Queue  queue.HealthSummary
	Stages []stage.Health
}

// Ready reports whether every registered stage passed its health check.
func (r HealthReport) Ready() bool {
	for _, s := range r.Stages {
		if !s.Ready {
			return false
		}
	}
	return true
}

// Health runs every stage health check and collects queue statistics.
func (m *Manager) Health(ctx context.Context) (HealthReport, error) {
	var report HealthReport

	summary, err := m.store.Health(ctx)
	if err != nil {
		return report, err
	}
	report.Queue = summary

	m.mu.RLock()
	stages := make([]pipelineStage, len(m.stages))
	copy(stages, m.stages)
	m.mu.RUnlock()

	for _, pipeline := range stages {
		report.Stages = append(report.Stages, pipeline.handler.HealthCheck(ctx))
	}
	return report, nil
}
