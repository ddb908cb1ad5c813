package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно сообщение. Ошибка возвращает его в
// очередь, ошибка из Permanent отправляет в DLQ без повтора.
type Handler func(ctx context.Context, msg *Message) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку, повтор которой ничего не изменит.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — доставки без ack на канал, минимум 1.
	Prefetch int
}

// Consumer читает Queue с ручным ack и переподписывается после
// каждого переподключения Connection.
type Consumer struct {
	conn   *Connection
	cfg    ConsumerConfig
	logger *slog.Logger
}

func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Prefetch = max(cfg.Prefetch, 1)
	return &Consumer{conn: conn, cfg: cfg, logger: logger.With("queue", cfg.Queue)}
}

// Start блокируется до отмены ctx.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		if deliveries, err := c.subscribe(); err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started", "prefetch", c.cfg.Prefetch)
			c.consume(ctx, deliveries)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.Warn("deliveries interrupted, waiting for reconnect")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(string(c.cfg.Queue), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	return deliveries, nil
}

func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := c.handle(ctx, d.Body).apply(d); err != nil {
				c.logger.Warn("failed to settle delivery", "delivery_tag", d.DeliveryTag, "error", err)
			}
		}
	}
}

// disposition — судьба доставки после обработчика.
type disposition int

const (
	ack disposition = iota
	requeue
	deadLetter
)

func (d disposition) apply(delivery amqp.Delivery) error {
	switch d {
	case requeue:
		return delivery.Nack(false, true)
	case deadLetter:
		// requeue=false отправляет сообщение в DLX очереди
		return delivery.Nack(false, false)
	}
	return delivery.Ack(false)
}

func (c *Consumer) handle(ctx context.Context, body []byte) disposition {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "error", err)
		return deadLetter
	}

	logger := c.logger.With("message_id", msg.ID, "type", msg.Type)
	logger.Debug("received message")

	err := c.cfg.Handler(ctx, &msg)
	switch {
	case err == nil:
		return ack
	case IsPermanent(err):
		logger.Error("message rejected", "error", err)
		return deadLetter
	}
	logger.Warn("handler failed, requeueing", "error", err)
	return requeue
}
