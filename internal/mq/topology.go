package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeRuns   Exchange = "cascade.runs"
	ExchangeEvents Exchange = "cascade.events"
	ExchangeDLQ    Exchange = "cascade.dlq"
)

// Queues.
const (
	QueueRunsRequested Queue = "runs.requested"
	QueueEventsAudit   Queue = "events.audit"
	QueueDLQRuns       Queue = "dlq.runs"
)

// Routing keys. Ключи событий узлов совпадают с orchestrator.EventKind.
const (
	RoutingKeyRequested RoutingKey = "requested"
	RoutingKeyDLQRuns   RoutingKey = "runs"
	RoutingKeyAllEvents RoutingKey = "#"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue    Queue
	key      RoutingKey
	exchange Exchange
}

var (
	exchanges = []exchangeDecl{
		{ExchangeRuns, amqp.ExchangeDirect},
		{ExchangeEvents, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	queues = []queueDecl{
		// Отклонённые без requeue запросы уходят в dlq.runs
		{QueueRunsRequested, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQRuns),
		}},
		{QueueEventsAudit, nil},
		{QueueDLQRuns, nil},
	}

	bindings = []bindingDecl{
		{QueueRunsRequested, RoutingKeyRequested, ExchangeRuns},
		{QueueEventsAudit, RoutingKeyAllEvents, ExchangeEvents},
		{QueueDLQRuns, RoutingKeyDLQRuns, ExchangeDLQ},
	}
)

// SetupTopology объявляет exchanges, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			if err := ch.QueueBind(string(b.queue), string(b.key), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  cascade.runs (direct)
  └── runs.requested [requested] → worker, DLQ: dlq.runs

  cascade.events (topic)
  └── events.audit [#] → node.*, workflow.finalized, run.settled

  cascade.dlq (direct)
  └── dlq.runs [runs]
`
}
