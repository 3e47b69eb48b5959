package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/datalake/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// SimpleJobExplorer is a simple implementation of the JobExplorer interface.
// It queries batch metadata using a JobRepository.
type SimpleJobExplorer struct {
	jobRepository repository.JobRepository
}

// Verify that SimpleJobExplorer implements the JobExplorer interface.
var _ JobExplorer = (*SimpleJobExplorer)(nil)

// NewSimpleJobExplorer creates a new instance of SimpleJobExplorer.
func NewSimpleJobExplorer(jobRepository repository.JobRepository) *SimpleJobExplorer {
	return &SimpleJobExplorer{jobRepository: jobRepository}
}

// GetJobExecution retrieves a JobExecution by its ID.
func (e *SimpleJobExplorer) GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error) {
	jobExecution, err := e.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobExecution (ID: %s)", executionID), err, false, false)
	}
	return jobExecution, nil
}

// GetJobExecutions retrieves every JobExecution of jobName.
func (e *SimpleJobExplorer) GetJobExecutions(ctx context.Context, jobName string) ([]*model.JobExecution, error) {
	jobExecutions, err := e.jobRepository.FindJobExecutionsByJobName(ctx, jobName)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobExecutions of job '%s'", jobName), err, false, false)
	}
	logger.Debugf("Retrieved %d JobExecutions of job '%s'.", len(jobExecutions), jobName)
	return jobExecutions, nil
}

// GetLastJobExecution retrieves the most recent JobExecution of jobName.
func (e *SimpleJobExplorer) GetLastJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error) {
	jobExecutions, err := e.GetJobExecutions(ctx, jobName)
	if err != nil {
		return nil, err
	}
	if len(jobExecutions) == 0 {
		return nil, nil
	}
	return jobExecutions[0], nil
}
