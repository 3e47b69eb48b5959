package metrics

import "go.uber.org/fx"

// Module registers the metrics listeners into the job and step listener groups.
// The MetricRecorder itself is provided by infrastructure/metrics.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewMetricsJobListener, fx.ResultTags(`group:"job_listeners"`))),
	fx.Provide(fx.Annotate(NewMetricsStepListener, fx.ResultTags(`group:"step_listeners"`))),
)
