package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	config "github.com/tigerroll/datalake/pkg/batch/core/config"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/listener/notification"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func finishedExecution() *model.JobExecution {
	je := model.NewJobExecution("datalakeJob")
	je.MarkAsStarted()
	se := model.NewStepExecution(model.NewID(), je, "logDataStep")
	se.ReadCount = 8
	se.FilterCount = 2
	se.WriteCount = 12
	se.ExecutionContext.Put("songplay.fanoutEvents", 1)
	se.Status = model.BatchStatusCompleted
	se.ExitStatus = model.ExitStatusCompleted
	je.AddStepExecution(se)
	je.MarkAsCompleted()
	return je
}

func TestAMQPNotifier_PublishesRunSummary(t *testing.T) {
	pub := new(mockPublisher)
	var published amqp.Publishing
	pub.On("PublishWithContext", mock.Anything, "batch", "datalake.completed", false, false, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil).Once()

	je := finishedExecution()
	n := notification.NewAMQPNotifierWithPublisher(pub, "batch", "datalake.completed")
	require.NoError(t, n.NotifyJobCompletion(context.Background(), je))
	pub.AssertExpectations(t)

	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, je.ID, published.MessageId)

	var summary notification.RunSummary
	require.NoError(t, json.Unmarshal(published.Body, &summary))
	assert.Equal(t, "datalakeJob", summary.JobName)
	assert.Equal(t, "COMPLETED", summary.Status)
	require.Len(t, summary.Steps, 1)
	assert.Equal(t, "logDataStep", summary.Steps[0].StepName)
	assert.Equal(t, 8, summary.Steps[0].ReadCount)
	assert.Equal(t, 2, summary.Steps[0].FilterCount)
	assert.Equal(t, 12, summary.Steps[0].WriteCount)
	assert.EqualValues(t, 1, summary.Steps[0].Context["songplay.fanoutEvents"])
	assert.NoError(t, n.Close())
}

func TestAMQPNotifier_PublishError(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("PublishWithContext", mock.Anything, "", "runs", false, false, mock.Anything).
		Return(errors.New("channel closed"))

	n := notification.NewAMQPNotifierWithPublisher(pub, "", "runs")
	err := n.NotifyJobCompletion(context.Background(), finishedExecution())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestNewAMQPNotifier_RequiresURLAndRoutingKey(t *testing.T) {
	_, err := notification.NewAMQPNotifier(config.AMQPConfig{RoutingKey: "runs"})
	assert.Error(t, err)
	_, err = notification.NewAMQPNotifier(config.AMQPConfig{URL: "amqp://localhost:5672/"})
	assert.Error(t, err)
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) error {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	return errors.New("broker down")
}

func TestNotificationListener_LogsFailureWithoutPanicking(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))

	n := &failingNotifier{}
	l := notification.NewNotificationListener(n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	je := finishedExecution()
	l.BeforeJob(ctx, je)
	l.AfterJob(ctx, je)

	assert.Equal(t, 1, n.calls)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "broker down")
}

func TestLogNotifier_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))

	n := notification.NewLogNotifier()
	ok := finishedExecution()
	require.NoError(t, n.NotifyJobCompletion(context.Background(), ok))

	failed := model.NewJobExecution("datalakeJob")
	failed.MarkAsStarted()
	failed.MarkAsFailed(errors.New("write songs: access denied"))
	require.NoError(t, n.NotifyJobCompletion(context.Background(), failed))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Contains(t, entries[1].Message, "Failures: 1")
}

func TestNewRunSummary_Duration(t *testing.T) {
	je := finishedExecution()
	start := time.Date(2018, 11, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	je.StartTime = start
	je.EndTime = &end

	s := notification.NewRunSummary(je)
	assert.Equal(t, int64(1500), s.DurationMillis)
	assert.Equal(t, je.ID, s.JobExecutionID)
}
