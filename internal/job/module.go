package job

import "go.uber.org/fx"

// Module registers datalakeJob into the "jobs" group read by the JobLauncher.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewDatalakeJob,
		fx.ResultTags(`group:"jobs"`),
	)),
)
