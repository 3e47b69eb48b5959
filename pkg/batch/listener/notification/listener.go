package notification

import (
	"context"
	"time"

	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/core/ports"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

const notifyTimeout = 10 * time.Second

// NotificationListener sends the run summary through a Notifier when a job finishes.
// Delivery failures are logged and never change the job outcome.
type NotificationListener struct {
	notifier ports.Notifier
}

func NewNotificationListener(notifier ports.Notifier) port.JobExecutionListener {
	return &NotificationListener{notifier: notifier}
}

func (l *NotificationListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

func (l *NotificationListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	// Runs on cancellation too, so the summary of a stopped job still goes out.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := l.notifier.NotifyJobCompletion(notifyCtx, jobExecution); err != nil {
		logger.Warnf("Notification for Job '%s' (ID: %s) failed: %v", jobExecution.JobName, jobExecution.ID, err)
	}
}

var _ port.JobExecutionListener = (*NotificationListener)(nil)
