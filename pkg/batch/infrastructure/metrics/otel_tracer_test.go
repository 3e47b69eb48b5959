package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/infrastructure/metrics"
)

func TestOpenTelemetryTracer_JobAndStepSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := metrics.NewOpenTelemetryTracer(tp)

	je := model.NewJobExecution("datalakeJob")
	se := model.NewStepExecution(model.NewID(), je, "songDataStep")

	ctx, endJob := tracer.StartJobSpan(context.Background(), je)
	stepCtx, endStep := tracer.StartStepSpan(ctx, se)
	writeCtx, endWrite := tracer.StartSpan(stepCtx, "write songs", map[string]interface{}{"table": "songs", "rows": 71})
	tracer.RecordEvent(writeCtx, "partition written", map[string]interface{}{"partition": "year=2018"})
	endWrite()
	tracer.RecordError(stepCtx, "writer", errors.New("upload failed"))
	se.MarkAsStarted()
	se.MarkAsFailed(errors.New("upload failed"))
	endStep()
	je.MarkAsStarted()
	je.MarkAsFailed(errors.New("upload failed"))
	endJob()

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "write songs", spans[0].Name())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "partition written", spans[0].Events()[0].Name)

	assert.Equal(t, "step songDataStep", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, spans[2].SpanContext().SpanID(), spans[1].Parent().SpanID())

	assert.Equal(t, "job datalakeJob", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}
