package logger

import "go.uber.org/fx"

// Module installs the FxLoggerAdapter as the container's event logger.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
