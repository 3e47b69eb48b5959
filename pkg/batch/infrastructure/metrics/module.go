package metrics

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/datalake/pkg/batch/core/config"
	metrics "github.com/tigerroll/datalake/pkg/batch/core/metrics"
	logger "github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

const pushTimeout = 5 * time.Second

// NewMetricRecorder provides the Prometheus recorder when metrics are enabled and a no-op otherwise.
// With a Pushgateway configured, the registry is pushed when the application stops.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config) metrics.MetricRecorder {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpMetricRecorder()
	}
	recorder := NewPrometheusRecorder()
	if cfg.Metrics.PushGatewayURL != "" {
		pusher := NewPushgatewayPusher(cfg.Metrics.PushGatewayURL, cfg.Metrics.JobLabel, map[string]string{
			"batch_job": cfg.Surfin.Batch.JobName,
		})
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
				defer cancel()
				if err := pusher.Push(pushCtx, recorder.GetRegistry()); err != nil {
					// Metrics delivery must not change the job outcome.
					logger.Warnf("Failed to push metrics to %s: %v", cfg.Metrics.PushGatewayURL, err)
				}
				return nil
			},
		})
	}
	logger.Infof("Prometheus metrics enabled.")
	return recorder
}

// NewTracer provides the OpenTelemetry tracer when tracing is enabled and a no-op otherwise.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	if !cfg.Tracing.Enabled {
		return metrics.NewNoOpTracer(), nil
	}
	exporter, err := newExporterWithTimeout(cfg.Tracing)
	if err != nil {
		return nil, err
	}
	tp, err := NewTracerProvider(cfg.Tracing, exporter)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debugf("Shutting down tracer provider.")
			return tp.Shutdown(ctx)
		},
	})
	logger.Infof("OpenTelemetry tracing enabled (exporter: %s).", cfg.Tracing.Exporter)
	return NewOpenTelemetryTracer(tp), nil
}

// Module provides metrics.MetricRecorder and metrics.Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
