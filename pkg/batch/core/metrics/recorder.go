package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics related to batch execution.
// Implementations must be safe for concurrent use; tasklets record from worker goroutines.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)

	// RecordJobEnd records the end of a JobExecution, including its final status and duration.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)

	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)

	// RecordStepEnd records the end of a StepExecution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordItemRead records count raw records read by stepName from source.
	RecordItemRead(ctx context.Context, stepName, source string, count int)

	// RecordItemWrite records count rows written by stepName into table.
	RecordItemWrite(ctx context.Context, stepName, table string, count int)

	// RecordItemSkip records count tolerated input problems (e.g., reason "malformed_line").
	RecordItemSkip(ctx context.Context, stepName, reason string, count int)

	// RecordJoinFanout records count events that matched more than one song.
	RecordJoinFanout(ctx context.Context, stepName string, count int)

	// RecordDuration records the execution time of a specific operation.
	//
	// tags: additional labels, e.g. `{"table": "songs"}`.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

// Skip reasons reported through RecordItemSkip.
const (
	// SkipReasonMalformedLine is a source line that is not a JSON object.
	SkipReasonMalformedLine = "malformed_line"
	// SkipReasonMalformedField is a field whose JSON type does not fit its column.
	SkipReasonMalformedField = "malformed_field"
)
