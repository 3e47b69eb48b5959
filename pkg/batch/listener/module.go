package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/datalake/pkg/batch/listener/logging"
	"github.com/tigerroll/datalake/pkg/batch/listener/metrics"
	"github.com/tigerroll/datalake/pkg/batch/listener/notification"
)

// Module aggregates all listener modules of the batch framework.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	notification.Module,
)
