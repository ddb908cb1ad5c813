package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений. События узлов используют orchestrator.EventKind.
const (
	MessageTypeRunRequested MessageType = "run.requested"
	MessageTypeRunSettled   MessageType = "run.settled"
)

// Message — JSON-конверт всех сообщений.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage упаковывает payload в конверт с новым ID.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ParsePayload декодирует payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("unmarshal %s payload: %w", msg.Type, err)
	}
	return result, nil
}

// RunRequestedPayload — запрос на выполнение pipeline.
type RunRequestedPayload struct {
	Pipeline       *domain.PipelineSpec `json:"pipeline"`
	Params         map[string]any       `json:"params,omitempty"`
	Trigger        domain.Trigger       `json:"trigger,omitempty"`
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
}

// RunSettledPayload — итог run.
type RunSettledPayload struct {
	RunID          uuid.UUID             `json:"run_id"`
	Pipeline       string                `json:"pipeline"`
	Status         domain.RunStatus      `json:"status"`
	WorkflowStatus domain.WorkflowStatus `json:"workflow_status,omitempty"`
	Error          string                `json:"error,omitempty"`
	DurationMs     int64                 `json:"duration_ms"`
}

// RunSettledFrom строит payload из завершённого run.
func RunSettledFrom(run *domain.Run) RunSettledPayload {
	return RunSettledPayload{
		RunID:          run.ID,
		Pipeline:       run.Pipeline,
		Status:         run.Status,
		WorkflowStatus: run.WorkflowStatus,
		Error:          run.Error,
		DurationMs:     run.Duration().Milliseconds(),
	}
}
