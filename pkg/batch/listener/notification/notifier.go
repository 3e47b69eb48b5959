package notification

import (
	"context"
	"fmt"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/core/ports"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// Notifier types accepted in notification.type.
const (
	TypeLog  = "log"
	TypeAMQP = "amqp"
	TypeNone = "none"
)

// LogNotifier writes the run summary to the log.
type LogNotifier struct{}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyJobCompletion logs one line for the job, at WARN level unless it completed.
func (n *LogNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) error {
	s := NewRunSummary(execution)
	message := fmt.Sprintf(
		"Job Notification: Job '%s' (ID: %s) finished with Status: %s, ExitStatus: %s. Duration: %dms, Steps: %d, Failures: %d",
		s.JobName, s.JobExecutionID, s.Status, s.ExitStatus, s.DurationMillis, len(s.Steps), len(s.Failures),
	)
	if execution.Status == model.BatchStatusCompleted {
		logger.Infof("%s", message)
	} else {
		logger.Warnf("%s", message)
	}
	return nil
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NoOpNotifier discards notifications.
type NoOpNotifier struct{}

func (NoOpNotifier) NotifyJobCompletion(context.Context, *model.JobExecution) error { return nil }

var _ ports.Notifier = NoOpNotifier{}
