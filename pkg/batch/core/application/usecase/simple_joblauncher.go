package usecase

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/datalake/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// SimpleJobLauncher implements JobLauncher for local, synchronous execution.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobRunner     port.JobRunner
	jobs          map[string]port.Job
}

// SimpleJobLauncherParams defines the dependencies of SimpleJobLauncher.
type SimpleJobLauncherParams struct {
	fx.In
	JobRepository repository.JobRepository
	JobRunner     port.JobRunner
	Jobs          []port.Job `group:"jobs"`
}

// NewSimpleJobLauncher creates a new SimpleJobLauncher from the registered jobs.
func NewSimpleJobLauncher(p SimpleJobLauncherParams) *SimpleJobLauncher {
	jobs := make(map[string]port.Job, len(p.Jobs))
	for _, j := range p.Jobs {
		jobs[j.JobName()] = j
	}
	return &SimpleJobLauncher{
		jobRepository: p.JobRepository,
		jobRunner:     p.JobRunner,
		jobs:          jobs,
	}
}

// Launch creates and persists a JobExecution for jobName, then runs the job to completion.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string) (*model.JobExecution, error) {
	const op = "SimpleJobLauncher.Launch"
	logger.Infof("Launching Job '%s' using JobLauncher.", jobName)

	job, ok := l.jobs[jobName]
	if !ok {
		return nil, exception.NewBatchError(op, fmt.Sprintf("no job registered under the name '%s'", jobName), nil, false, false)
	}

	jobExecution := model.NewJobExecution(jobName)
	if err := l.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return jobExecution, exception.NewBatchError(op, "failed to save JobExecution initially", err, false, false)
	}
	logger.Debugf("Initially saved JobExecution (ID: %s) to JobRepository (Status: %s).", jobExecution.ID, jobExecution.Status)

	l.jobRunner.Run(ctx, job, jobExecution)
	return jobExecution, nil
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)
