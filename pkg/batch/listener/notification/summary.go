package notification

import (
	"time"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
)

// StepSummary is the per-step part of a RunSummary.
type StepSummary struct {
	StepName    string                 `json:"step_name"`
	Status      string                 `json:"status"`
	ExitStatus  string                 `json:"exit_status"`
	ReadCount   int                    `json:"read_count"`
	FilterCount int                    `json:"filter_count"`
	SkipCount   int                    `json:"skip_count"`
	WriteCount  int                    `json:"write_count"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// RunSummary is the message published when a job execution finishes.
type RunSummary struct {
	JobExecutionID string        `json:"job_execution_id"`
	JobName        string        `json:"job_name"`
	Status         string        `json:"status"`
	ExitStatus     string        `json:"exit_status"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	DurationMillis int64         `json:"duration_ms"`
	Steps          []StepSummary `json:"steps"`
	Failures       []string      `json:"failures,omitempty"`
}

// NewRunSummary builds the summary of execution.
func NewRunSummary(execution *model.JobExecution) RunSummary {
	s := RunSummary{
		JobExecutionID: execution.ID,
		JobName:        execution.JobName,
		Status:         execution.Status.String(),
		ExitStatus:     execution.ExitStatus.String(),
		StartTime:      execution.StartTime,
		EndTime:        execution.EndTime,
		DurationMillis: execution.Duration().Milliseconds(),
		Steps:          make([]StepSummary, 0, len(execution.StepExecutions)),
		Failures:       append([]string(nil), execution.Failures...),
	}
	for _, se := range execution.StepExecutions {
		s.Steps = append(s.Steps, StepSummary{
			StepName:    se.StepName,
			Status:      se.Status.String(),
			ExitStatus:  se.ExitStatus.String(),
			ReadCount:   se.ReadCount,
			FilterCount: se.FilterCount,
			SkipCount:   se.SkipReadCount,
			WriteCount:  se.WriteCount,
			Context:     se.ExecutionContext.Copy(),
		})
	}
	return s
}
