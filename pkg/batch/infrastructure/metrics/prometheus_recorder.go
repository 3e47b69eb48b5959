package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/datalake/pkg/batch/core/metrics"
	logger "github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

const unknownJob = "unknown"

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Job Metrics
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	// Step Metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepReadCount       *prometheus.CounterVec
	stepWriteCount      *prometheus.CounterVec

	// Source and join quality
	itemSkipCounter   *prometheus.CounterVec
	malformedCounter  *prometheus.CounterVec
	joinFanoutCounter *prometheus.CounterVec

	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Duration of batch job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_job_status_total",
			Help: "Total number of batch job executions by status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_step_duration_seconds",
			Help:    "Duration of batch step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_status_total",
			Help: "Total number of batch step executions by status.",
		}, []string{"job_name", "step_name", "status"}),
		stepReadCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_read_total",
			Help: "Total raw records read by step and source.",
		}, []string{"job_name", "step_name", "source"}),
		stepWriteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_write_total",
			Help: "Total rows written by step and table.",
		}, []string{"job_name", "step_name", "table"}),
		itemSkipCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_item_skip_total",
			Help: "Total items skipped by step and reason.",
		}, []string{"job_name", "step_name", "reason"}),
		malformedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_source_malformed_total",
			Help: "Total malformed source lines or fields tolerated.",
		}, []string{"job_name", "step_name", "kind"}),
		joinFanoutCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_join_fanout_events_total",
			Help: "Total events that matched more than one song.",
		}, []string{"job_name", "step_name"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_operation_duration_seconds",
			Help:    "Duration of named operations such as table writes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name", "table"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.jobStatusCounter,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.stepReadCount,
		r.stepWriteCount,
		r.itemSkipCounter,
		r.malformedCounter,
		r.joinFanoutCounter,
		r.operationDurationSeconds,
	)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func jobNameFrom(ctx context.Context) string {
	if se, ok := port.GetStepExecutionFromContext(ctx); ok && se.JobExecution != nil {
		return se.JobExecution.JobName
	}
	return unknownJob
}

// RecordJobStart records the start of a JobExecution.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

// RecordJobEnd records the end of a JobExecution.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)

	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

// RecordStepStart records the start of a StepExecution.
func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.stepStatusCounter.WithLabelValues(stepJobName(execution), execution.StepName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

// RecordStepEnd records the end of a StepExecution.
// Read and write totals are recorded by the tasklets as they happen, not here.
func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	jobName := stepJobName(execution)
	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.stepDurationSeconds.WithLabelValues(
		jobName,
		execution.StepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)

	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

func stepJobName(execution *model.StepExecution) string {
	if execution.JobExecution != nil {
		return execution.JobExecution.JobName
	}
	return unknownJob
}

// RecordItemRead records raw records read from source.
func (r *PrometheusRecorder) RecordItemRead(ctx context.Context, stepName, source string, count int) {
	r.stepReadCount.WithLabelValues(jobNameFrom(ctx), stepName, source).Add(float64(count))
}

// RecordItemWrite records rows written into table.
func (r *PrometheusRecorder) RecordItemWrite(ctx context.Context, stepName, table string, count int) {
	r.stepWriteCount.WithLabelValues(jobNameFrom(ctx), stepName, table).Add(float64(count))
}

// RecordItemSkip records tolerated input problems. Malformed lines and fields also feed
// batch_source_malformed_total.
func (r *PrometheusRecorder) RecordItemSkip(ctx context.Context, stepName, reason string, count int) {
	jobName := jobNameFrom(ctx)
	r.itemSkipCounter.WithLabelValues(jobName, stepName, reason).Add(float64(count))
	switch reason {
	case metrics.SkipReasonMalformedLine, metrics.SkipReasonMalformedField:
		r.malformedCounter.WithLabelValues(jobName, stepName, reason).Add(float64(count))
	}
}

// RecordJoinFanout records events that matched more than one song.
func (r *PrometheusRecorder) RecordJoinFanout(ctx context.Context, stepName string, count int) {
	r.joinFanoutCounter.WithLabelValues(jobNameFrom(ctx), stepName).Add(float64(count))
}

// RecordDuration records the execution time of a named operation. Only the "table" tag is kept.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name, tags["table"]).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
