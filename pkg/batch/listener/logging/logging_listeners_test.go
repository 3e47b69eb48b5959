package logging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/listener/logging"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

func TestLoggingStepListener_IncludesCountersAndContext(t *testing.T) {
	je := model.NewJobExecution("datalakeJob")
	se := model.NewStepExecution(model.NewID(), je, "logDataStep")
	se.ReadCount = 10
	se.FilterCount = 3
	se.SkipReadCount = 1
	se.WriteCount = 9
	se.ExecutionContext.Put("songplay.fanoutEvents", 2)
	se.ExecutionContext.Put("malformedLines", 1)

	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))

	l := logging.NewLoggingStepListener()
	l.BeforeStep(context.Background(), se)
	l.AfterStep(context.Background(), se)

	entries := logs.All()
	require.Len(t, entries, 2)
	msg := entries[1].Message
	assert.Contains(t, msg, "Read: 10, Filtered: 3, Skipped: 1, Written: 9")
	assert.Contains(t, msg, "Context: {malformedLines=1, songplay.fanoutEvents=2}")
}

func TestLoggingJobListener_FailedJobLogsAtWarn(t *testing.T) {
	je := model.NewJobExecution("datalakeJob")
	je.MarkAsStarted()
	se := model.NewStepExecution(model.NewID(), je, "songDataStep")
	je.AddStepExecution(se)

	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))

	je.MarkAsFailed(errors.New("upload songs: permission denied"))
	logging.NewLoggingJobListener().AfterJob(context.Background(), je)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Message, "Status: FAILED")
	assert.Contains(t, warnings[1].Message, "step songDataStep")
	errorsLogged := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorsLogged, 1)
	assert.Contains(t, errorsLogged[0].Message, "permission denied")
}
