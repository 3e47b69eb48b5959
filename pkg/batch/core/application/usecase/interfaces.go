package usecase

import (
	"context"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
)

// JobLauncher launches a registered Job by name.
type JobLauncher interface {
	// Launch runs the named Job to completion and returns its JobExecution.
	// The returned error describes a failure of the launch itself; a job that ran and failed
	// is reported through the JobExecution status.
	Launch(ctx context.Context, jobName string) (*model.JobExecution, error)
}

// JobExplorer queries persisted batch metadata.
type JobExplorer interface {
	// GetJobExecution retrieves a JobExecution by its ID.
	GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error)

	// GetJobExecutions retrieves every JobExecution of jobName, most recent first.
	GetJobExecutions(ctx context.Context, jobName string) ([]*model.JobExecution, error)

	// GetLastJobExecution retrieves the most recent JobExecution of jobName, or nil.
	GetLastJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error)
}
