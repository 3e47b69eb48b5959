package runner

import (
	"context"
	"errors"
	"time"

	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/datalake/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/datalake/pkg/batch/core/metrics"
	exception "github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// SimpleJob is an implementation of port.Job that runs its steps one after another.
// The first failing step fails the job and the remaining steps are not run.
type SimpleJob struct {
	id            string
	name          string
	steps         []port.Step
	jobRepository repository.JobRepository
	jobListeners  []port.JobExecutionListener
	tracer        metrics.Tracer
}

// Verify that SimpleJob implements the port.Job interface.
var _ port.Job = (*SimpleJob)(nil)

// NewSimpleJob creates a new instance of SimpleJob.
func NewSimpleJob(
	id string,
	name string,
	steps []port.Step,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	tracer metrics.Tracer,
) *SimpleJob {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleJob{
		id:            id,
		name:          name,
		steps:         steps,
		jobRepository: jobRepository,
		jobListeners:  jobListeners,
		tracer:        tracer,
	}
}

// ID returns the job ID.
func (j *SimpleJob) ID() string {
	return j.id
}

// JobName returns the job name.
func (j *SimpleJob) JobName() string {
	return j.name
}

// Steps returns the steps of the job in execution order.
func (j *SimpleJob) Steps() []port.Step {
	return j.steps
}

func (j *SimpleJob) notifyBeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *SimpleJob) notifyAfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run executes the steps in order. The returned error is the one that failed the job, if any.
func (j *SimpleJob) Run(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	logger.Infof("Starting Job '%s' (Execution ID: %s).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	j.notifyBeforeJob(ctx, jobExecution)

	defer func() {
		if jobExecution.EndTime == nil {
			now := time.Now()
			jobExecution.EndTime = &now
		}
		j.notifyAfterJob(ctx, jobExecution)
		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	}()

	for _, step := range j.steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, ctxErr)
			jobExecution.AddFailureException(ctxErr)
			jobExecution.MarkAsStopped()
			j.tracer.RecordError(ctx, "job_runner", ctxErr)
			return ctxErr
		}

		stepName := step.StepName()
		jobExecution.CurrentStepName = stepName

		stepExecution := model.NewStepExecution(model.NewID(), jobExecution, stepName)
		jobExecution.AddStepExecution(stepExecution)
		if saveErr := j.jobRepository.SaveStepExecution(ctx, stepExecution); saveErr != nil {
			err = exception.NewBatchError(j.name, "Error saving new StepExecution", saveErr, false, false)
			jobExecution.MarkAsFailed(err)
			j.tracer.RecordError(ctx, "job_runner", err)
			return err
		}

		stepCtx := port.GetContextWithStepExecution(ctx, stepExecution)
		if stepErr := step.Execute(stepCtx, jobExecution, stepExecution); stepErr != nil {
			logger.Errorf("Job '%s': Error occurred during execution of step '%s': %v", j.name, stepName, stepErr)
			j.tracer.RecordError(ctx, "job_runner", stepErr)
			if errors.Is(stepErr, context.Canceled) {
				jobExecution.AddFailureException(stepErr)
				jobExecution.MarkAsStopped()
			} else {
				jobExecution.MarkAsFailed(stepErr)
			}
			return stepErr
		}
		logger.Infof("Job '%s': Step '%s' completed successfully. ExitStatus: %s", j.name, stepName, stepExecution.ExitStatus)
	}

	jobExecution.MarkAsCompleted()
	return nil
}
