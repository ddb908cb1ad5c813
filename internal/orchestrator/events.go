package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
)

// EventKind — тип события выполнения.
type EventKind string

const (
	EventNodeStarted         EventKind = "node.started"
	EventNodeFinished        EventKind = "node.finished"
	EventNodeSkipped         EventKind = "node.skipped"
	EventNodeConditionFailed EventKind = "node.condition_failed"
	EventWorkflowFinalized   EventKind = "workflow.finalized"
)

// Event — событие выполнения pipeline.
type Event struct {
	Kind           EventKind             `json:"kind"`
	RunID          uuid.UUID             `json:"run_id"`
	Pipeline       string                `json:"pipeline"`
	Action         string                `json:"action,omitempty"`
	Status         domain.ActionStatus   `json:"status,omitempty"`
	WorkflowStatus domain.WorkflowStatus `json:"workflow_status,omitempty"`
	At             time.Time             `json:"at"`
}

// EventSink получает события выполнения.
//
// Emit вызывается из горутины-координатора, поэтому должен
// возвращаться быстро. Ошибки доставки — забота реализации.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

// EventSinkFunc адаптирует функцию к EventSink.
type EventSinkFunc func(ctx context.Context, e Event)

// Emit реализует EventSink.
func (f EventSinkFunc) Emit(ctx context.Context, e Event) {
	f(ctx, e)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}
