package notification

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	config "github.com/tigerroll/datalake/pkg/batch/core/config"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/core/ports"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
)

const amqpModule = "notification.amqp"

// Publisher is the part of *amqp.Channel the notifier needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes a JSON RunSummary to a RabbitMQ exchange.
type AMQPNotifier struct {
	publisher  Publisher
	exchange   string
	routingKey string
	closeFn    func() error
}

// NewAMQPNotifier dials cfg.URL and opens the channel used for publishing.
// With an empty exchange the message goes to the default exchange, so the routing key names the queue,
// which is then declared durable.
func NewAMQPNotifier(cfg config.AMQPConfig) (*AMQPNotifier, error) {
	if cfg.URL == "" {
		return nil, exception.NewBatchError(amqpModule, "notification.amqp.url is required", nil, false, false)
	}
	if cfg.RoutingKey == "" {
		return nil, exception.NewBatchError(amqpModule, "notification.amqp.routing_key is required", nil, false, false)
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, exception.NewBatchError(amqpModule, "failed to connect to AMQP broker", err, false, true)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, exception.NewBatchError(amqpModule, "failed to open AMQP channel", err, false, true)
	}
	if cfg.Exchange == "" {
		if _, err := ch.QueueDeclare(cfg.RoutingKey, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, exception.NewBatchError(amqpModule, "failed to declare queue "+cfg.RoutingKey, err, false, false)
		}
	}
	n := NewAMQPNotifierWithPublisher(ch, cfg.Exchange, cfg.RoutingKey)
	n.closeFn = func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return n, nil
}

// NewAMQPNotifierWithPublisher creates a notifier on an already open publisher.
func NewAMQPNotifierWithPublisher(publisher Publisher, exchange, routingKey string) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher, exchange: exchange, routingKey: routingKey}
}

// NotifyJobCompletion publishes the run summary as a persistent JSON message.
func (n *AMQPNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) error {
	body, err := json.Marshal(NewRunSummary(execution))
	if err != nil {
		return exception.NewBatchError(amqpModule, "failed to encode run summary", err, false, false)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    execution.ID,
		Type:         "job_completion",
		Timestamp:    time.Now(),
		Body:         body,
	}
	if err := n.publisher.PublishWithContext(ctx, n.exchange, n.routingKey, false, false, msg); err != nil {
		return exception.NewBatchError(amqpModule, "failed to publish run summary", err, false, true)
	}
	return nil
}

// Close releases the channel and the connection.
func (n *AMQPNotifier) Close() error {
	if n.closeFn == nil {
		return nil
	}
	return n.closeFn()
}

var _ ports.Notifier = (*AMQPNotifier)(nil)
