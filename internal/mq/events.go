package mq

import (
	"context"
	"log/slog"

	"github.com/shaiso/Cascade/internal/orchestrator"
)

// nodeEventPublisher — часть Publisher, нужная EventSink.
type nodeEventPublisher interface {
	PublishNodeEvent(ctx context.Context, e orchestrator.Event) error
}

// EventSink публикует события orchestrator'а в cascade.events.
//
// Emit вызывается из горутины-координатора, поэтому ошибка публикации
// только логируется: выполнение pipeline от брокера не зависит.
type EventSink struct {
	publisher nodeEventPublisher
	logger    *slog.Logger
}

// NewEventSink создаёт EventSink поверх publisher.
func NewEventSink(publisher nodeEventPublisher, logger *slog.Logger) *EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSink{publisher: publisher, logger: logger}
}

// Emit реализует orchestrator.EventSink.
func (s *EventSink) Emit(ctx context.Context, e orchestrator.Event) {
	if err := s.publisher.PublishNodeEvent(ctx, e); err != nil {
		s.logger.Warn("failed to publish event",
			"kind", e.Kind,
			"run_id", e.RunID,
			"action", e.Action,
			"error", err,
		)
	}
}

var _ orchestrator.EventSink = (*EventSink)(nil)
