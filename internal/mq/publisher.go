package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/orchestrator"
)

// ErrNotConfirmed — брокер ответил basic.nack на публикацию.
var ErrNotConfirmed = errors.New("publish not confirmed by broker")

// Publisher отправляет конверты Message persistent-сообщениями и
// ждёт подтверждения брокера (publisher confirms) в пределах ctx.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger.With("component", "publisher")}
}

func (p *Publisher) Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	}

	err = p.conn.WithPublishChannel(ctx, func(ch *amqp.Channel) error {
		confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, string(exchange), string(key), false, false, publishing)
		if err != nil {
			return err
		}
		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return err
		}
		if !acked {
			return ErrNotConfirmed
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s/%s: %w", msg.Type, exchange, key, err)
	}

	p.logger.Debug("message published", "exchange", exchange, "routing_key", key, "message_id", msg.ID, "type", msg.Type)
	return nil
}

func (p *Publisher) publish(ctx context.Context, exchange Exchange, key RoutingKey, t MessageType, payload any) (*Message, error) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return nil, err
	}
	return msg, p.Publish(ctx, exchange, key, msg)
}

// PublishRunRequested ставит pipeline в runs.requested для worker'ов.
// Возвращённый Message.ID служит ссылкой на запрос.
func (p *Publisher) PublishRunRequested(ctx context.Context, req RunRequestedPayload) (*Message, error) {
	msg, err := p.publish(ctx, ExchangeRuns, RoutingKeyRequested, MessageTypeRunRequested, req)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// PublishNodeEvent — routing key равен виду события (node.finished, ...).
func (p *Publisher) PublishNodeEvent(ctx context.Context, e orchestrator.Event) error {
	_, err := p.publish(ctx, ExchangeEvents, RoutingKey(e.Kind), MessageType(e.Kind), e)
	return err
}

func (p *Publisher) PublishRunSettled(ctx context.Context, run *domain.Run) error {
	_, err := p.publish(ctx, ExchangeEvents, RoutingKey(MessageTypeRunSettled), MessageTypeRunSettled, RunSettledFrom(run))
	return err
}
