// Package port defines the core interfaces (ports) for the batch application.
// These interfaces abstract the application's capabilities and dependencies,
// allowing for flexible implementation and testing.
package port

import (
	"context"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/datalake/pkg/batch/core/metrics"
)

// JobRunner is responsible for driving a Job through its lifecycle and persisting the outcome.
type JobRunner interface {
	// Run executes job against jobExecution and blocks until it finishes.
	Run(ctx context.Context, job Job, jobExecution *model.JobExecution)
}

// Job is the interface for an executable batch job.
type Job interface {
	// Run executes the job's steps in order.
	Run(ctx context.Context, jobExecution *model.JobExecution) error
	// JobName returns the logical name of the job.
	JobName() string
	// ID returns the unique ID of the job definition.
	ID() string
}

// Step is the interface for a single step executed within a job.
type Step interface {
	// Execute executes the business logic of the step.
	// An error means the step failed and the job must not continue.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// StepName returns the logical name of the step.
	StepName() string
	// ID returns the unique ID of the step definition.
	ID() string
	// SetMetricRecorder sets the MetricRecorder.
	SetMetricRecorder(recorder metrics.MetricRecorder)
	// SetTracer sets the Tracer.
	SetTracer(tracer metrics.Tracer)
}

// Tasklet is a single unit of work run once by a TaskletStep.
type Tasklet interface {
	// Execute runs the work and returns the exit status of the step.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources held by the tasklet.
	Close(ctx context.Context) error
	// SetExecutionContext hands the step's ExecutionContext to the tasklet before Execute.
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	// GetExecutionContext returns the tasklet's ExecutionContext after Execute.
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// StepExecutionListener is notified before and after each step.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is notified before and after the job.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

type contextKey string

const stepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution returns a copy of ctx carrying stepExecution.
func GetContextWithStepExecution(ctx context.Context, stepExecution *model.StepExecution) context.Context {
	return context.WithValue(ctx, stepExecutionKey, stepExecution)
}

// GetStepExecutionFromContext returns the StepExecution carried by ctx, if any.
func GetStepExecutionFromContext(ctx context.Context) (*model.StepExecution, bool) {
	se, ok := ctx.Value(stepExecutionKey).(*model.StepExecution)
	return se, ok
}
