package notification

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"

	config "github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/core/ports"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// NewNotifier selects the Notifier named by notification.type. An empty type means "log".
func NewNotifier(lc fx.Lifecycle, cfg *config.Config) (ports.Notifier, error) {
	switch strings.ToLower(cfg.Notification.Type) {
	case "", TypeLog:
		return NewLogNotifier(), nil
	case TypeNone:
		return NoOpNotifier{}, nil
	case TypeAMQP:
		n, err := NewAMQPNotifier(cfg.Notification.AMQP)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				logger.Debugf("Closing AMQP notifier.")
				return n.Close()
			},
		})
		logger.Infof("AMQP notification enabled (exchange: '%s', routing key: '%s').", cfg.Notification.AMQP.Exchange, cfg.Notification.AMQP.RoutingKey)
		return n, nil
	default:
		return nil, exception.NewBatchError("notification", fmt.Sprintf("unknown notification type '%s'", cfg.Notification.Type), nil, false, false)
	}
}

// Module provides the Notifier and registers NotificationListener into the job listener group.
var Module = fx.Options(
	fx.Provide(NewNotifier),
	fx.Provide(fx.Annotate(NewNotificationListener, fx.ResultTags(`group:"job_listeners"`))),
)
