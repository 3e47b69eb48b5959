package logging

import (
	"context"
	"fmt"
	"sort"
	"strings"

	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

// LoggingJobListener logs the start and the outcome of every job execution.
type LoggingJobListener struct{}

func NewLoggingJobListener() port.JobExecutionListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s", jobExecution.JobName, jobExecution.ID)
}

// AfterJob logs the final status and one line per executed step.
func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	logf := logger.Infof
	if jobExecution.Status != model.BatchStatusCompleted {
		logf = logger.Warnf
	}
	logf("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s, Duration: %s, Steps: %d, Failures: %d",
		jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus,
		jobExecution.Duration(), len(jobExecution.StepExecutions), len(jobExecution.Failures))
	for _, se := range jobExecution.StepExecutions {
		logf("  step %s: %s (read: %d, filtered: %d, skipped: %d, written: %d)",
			se.StepName, se.Status, se.ReadCount, se.FilterCount, se.SkipReadCount, se.WriteCount)
	}
	for _, f := range jobExecution.Failures {
		logger.Errorf("  failure: %s", f)
	}
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

// LoggingStepListener logs step boundaries together with the step's counters and execution context.
type LoggingStepListener struct{}

func NewLoggingStepListener() port.StepExecutionListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, ExitStatus: %s, Read: %d, Filtered: %d, Skipped: %d, Written: %d, Context: {%s}",
		stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus,
		stepExecution.ReadCount, stepExecution.FilterCount, stepExecution.SkipReadCount, stepExecution.WriteCount,
		formatContext(stepExecution.ExecutionContext))
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)

// formatContext renders ec as "k=v" pairs in key order.
func formatContext(ec model.ExecutionContext) string {
	keys := make([]string, 0, len(ec))
	for k := range ec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, ec[k]))
	}
	return strings.Join(pairs, ", ")
}
