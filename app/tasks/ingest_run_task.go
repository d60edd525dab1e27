package tasks

import (
	"context"
	"log/slog"

	"github.com/pierrevano/whatson-api/app/ingest"
)

// IngestRunTask executes one full ingestion run. The scheduler guarantees a
// single run at a time; titles are reconciled sequentially inside.
type IngestRunTask struct {
	Task
	runner *ingest.Runner
}

func NewIngestRunTask(runner *ingest.Runner) *IngestRunTask {
	return &IngestRunTask{
		Task:   NewTask(TaskTypeIngestRun),
		runner: runner,
	}
}

func (t *IngestRunTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.runner.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration())

	return nil
}
