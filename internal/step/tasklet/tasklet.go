// Package tasklet holds the two steps of the datalake job: the song pipeline and the
// event pipeline. Each tasklet reads raw JSON, derives its tables and writes them as
// Parquet, recording counts on the StepExecution and through the MetricRecorder.
package tasklet

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/datalake/internal/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	"github.com/tigerroll/datalake/pkg/batch/component/step/reader"
	"github.com/tigerroll/datalake/pkg/batch/component/step/writer"
	config "github.com/tigerroll/datalake/pkg/batch/core/config"
	batchmodel "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/datalake/pkg/batch/core/metrics"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// Execution context keys written by the tasklets.
const (
	ECKeyInputObjects    = "inputObjects"
	ECKeyMalformedLines  = "malformedLines"
	ECKeyMalformedFields = "malformedFields"
	ECKeyFanoutEvents    = "songplay.fanoutEvents"
	ECKeyUnmatchedEvents = "songplay.unmatchedEvents"
	// ECKeyRowsPrefix is followed by the table name, e.g. "rows.songs".
	ECKeyRowsPrefix = "rows."
)

// Sources reported through RecordItemRead.
const (
	SourceSongData = "song_data"
	SourceLogData  = "log_data"
)

// Dependencies are the collaborators shared by both tasklets.
type Dependencies struct {
	Config   *config.Config
	Resolver storage.StorageConnectionResolver
	Engine   *dataset.Engine
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// baseTasklet carries the execution context handling and the read/write helpers.
type baseTasklet struct {
	name     string
	cfg      config.DatalakeConfig
	resolver storage.StorageConnectionResolver
	engine   *dataset.Engine
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
	ec       batchmodel.ExecutionContext
}

func newBaseTasklet(name string, deps Dependencies) (baseTasklet, error) {
	if deps.Config == nil {
		return baseTasklet{}, exception.NewBatchError(name, "config is required", nil, false, false)
	}
	if deps.Resolver == nil {
		return baseTasklet{}, exception.NewBatchError(name, "storage connection resolver is required", nil, false, false)
	}
	engine := deps.Engine
	if engine == nil {
		engine = dataset.NewEngine(deps.Config.EffectiveParallelism())
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return baseTasklet{
		name:     name,
		cfg:      deps.Config.Datalake,
		resolver: deps.Resolver,
		engine:   engine,
		recorder: recorder,
		tracer:   tracer,
		ec:       batchmodel.NewExecutionContext(),
	}, nil
}

// Close implements port.Tasklet. The tasklets hold no resources between executions.
func (t *baseTasklet) Close(ctx context.Context) error {
	return nil
}

// SetExecutionContext implements port.Tasklet.
func (t *baseTasklet) SetExecutionContext(ctx context.Context, ec batchmodel.ExecutionContext) error {
	if ec == nil {
		ec = batchmodel.NewExecutionContext()
	}
	t.ec = ec
	return nil
}

// GetExecutionContext implements port.Tasklet.
func (t *baseTasklet) GetExecutionContext(ctx context.Context) (batchmodel.ExecutionContext, error) {
	return t.ec, nil
}

func (t *baseTasklet) addInt(key string, n int) {
	current, _ := t.ec.GetInt(key)
	t.ec.Put(key, current+n)
}

// readSongData reads every song metadata object.
func (t *baseTasklet) readSongData(ctx context.Context, se *batchmodel.StepExecution) (*dataset.Dataset[model.RawSongRecord], error) {
	r, err := reader.NewJSONLinesReader[model.RawSongRecord](t.name+".songData", reader.JSONLinesReaderConfig{
		StorageRef: t.cfg.InputRef,
		Root:       t.cfg.InputRoot,
		Glob:       t.cfg.SongGlob,
	}, t.resolver, t.engine, model.DecodeRawSong)
	if err != nil {
		return nil, err
	}
	ds, stats, err := r.Read(ctx)
	if err != nil {
		return nil, err
	}
	t.recordRead(ctx, se, SourceSongData, stats)
	return ds, nil
}

// readLogData reads every play event object.
func (t *baseTasklet) readLogData(ctx context.Context, se *batchmodel.StepExecution) (*dataset.Dataset[model.RawEventRecord], error) {
	r, err := reader.NewJSONLinesReader[model.RawEventRecord](t.name+".logData", reader.JSONLinesReaderConfig{
		StorageRef: t.cfg.InputRef,
		Root:       t.cfg.InputRoot,
		Glob:       t.cfg.LogGlob,
	}, t.resolver, t.engine, model.DecodeRawEvent)
	if err != nil {
		return nil, err
	}
	ds, stats, err := r.Read(ctx)
	if err != nil {
		return nil, err
	}
	t.recordRead(ctx, se, SourceLogData, stats)
	return ds, nil
}

func (t *baseTasklet) recordRead(ctx context.Context, se *batchmodel.StepExecution, source string, stats reader.ReadStats) {
	se.ReadCount += stats.Lines
	se.SkipReadCount += stats.MalformedLines
	t.addInt(ECKeyInputObjects, stats.Objects)
	t.addInt(ECKeyMalformedLines, stats.MalformedLines)
	t.addInt(ECKeyMalformedFields, stats.MalformedFields)

	t.recorder.RecordItemRead(ctx, se.StepName, source, stats.Lines)
	if stats.MalformedLines > 0 {
		logger.Warnf("%s: %d malformed lines in %s were read as empty records.", t.name, stats.MalformedLines, source)
		t.recorder.RecordItemSkip(ctx, se.StepName, metrics.SkipReasonMalformedLine, stats.MalformedLines)
	}
	if stats.MalformedFields > 0 {
		logger.Warnf("%s: %d malformed fields in %s were read as null.", t.name, stats.MalformedFields, source)
		t.recorder.RecordItemSkip(ctx, se.StepName, metrics.SkipReasonMalformedField, stats.MalformedFields)
	}
}

// writeTable writes d as table in overwrite mode and records the written rows.
func writeTable[T any](
	ctx context.Context,
	t *baseTasklet,
	se *batchmodel.StepExecution,
	table string,
	partitionBy []string,
	partitionFunc writer.PartitionFunc[T],
	d *dataset.Dataset[T],
) error {
	ctx, finish := t.tracer.StartSpan(ctx, "write "+table, map[string]interface{}{
		"table": table,
		"rows":  d.Count(),
	})
	defer finish()

	w, err := writer.NewParquetWriter[T](fmt.Sprintf("%s.%s", t.name, table), writer.ParquetWriterConfig{
		StorageRef:      t.cfg.OutputRef,
		OutputRoot:      t.cfg.OutputRoot,
		Table:           table,
		PartitionBy:     partitionBy,
		CompressionType: t.cfg.Compression,
		RunID:           se.JobExecutionID,
	}, t.resolver, t.engine, new(T), partitionFunc)
	if err != nil {
		return err
	}

	start := time.Now()
	stats, err := w.Write(ctx, d)
	t.recorder.RecordDuration(ctx, "write_table", time.Since(start), map[string]string{"table": table})
	if err != nil {
		t.tracer.RecordError(ctx, t.name, err)
		return exception.NewBatchError(t.name, fmt.Sprintf("failed to write table '%s'", table), err, false, false)
	}

	se.WriteCount += stats.Rows
	t.ec.Put(ECKeyRowsPrefix+table, stats.Rows)
	t.recorder.RecordItemWrite(ctx, se.StepName, table, stats.Rows)
	return nil
}
