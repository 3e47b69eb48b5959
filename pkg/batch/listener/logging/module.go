package logging

import "go.uber.org/fx"

// Module registers the logging listeners into the job and step listener groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewLoggingJobListener, fx.ResultTags(`group:"job_listeners"`))),
	fx.Provide(fx.Annotate(NewLoggingStepListener, fx.ResultTags(`group:"step_listeners"`))),
)
