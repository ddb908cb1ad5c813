package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/Cascade/internal/domain"
)

const (
	// StepTypeEcho — тип шага echo.
	StepTypeEcho = "echo"

	// Ключи конфигурации.
	configValue          = "value"
	configStatus         = "status"
	configWorkflowStatus = "workflow_status"
)

// EchoStep возвращает значение из конфигурации как есть.
//
// Конфигурация:
//
//	config:
//	  value:
//	    version: "{{ .Params.version }}"
//	  status: failure            # итог action, по умолчанию success
//	  workflow_status: success   # сообщить итог workflow
//
// Если value — mapping, он становится outputs целиком,
// иначе outputs = {value: ...}.
type EchoStep struct{}

// NewEchoStep создаёт новый EchoStep.
func NewEchoStep() *EchoStep {
	return &EchoStep{}
}

// Type возвращает тип шага.
func (s *EchoStep) Type() string {
	return StepTypeEcho
}

// Execute возвращает value и сообщает статусы из конфигурации.
func (s *EchoStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	default:
	}

	var outputs map[string]any
	switch v := req.Config[configValue].(type) {
	case nil:
	case map[string]any:
		outputs = v
	default:
		outputs = map[string]any{configValue: v}
	}
	resp := NewResponse(outputs)

	if raw := GetConfigString(req.Config, configStatus); raw != "" {
		status, err := domain.ParseActionStatus(raw)
		if err != nil || !status.IsOutcome() {
			return nil, fmt.Errorf("%w: echo: status %q", ErrInvalidConfig, raw)
		}
		resp.WithStatus(status)
	}

	if raw := GetConfigString(req.Config, configWorkflowStatus); raw != "" {
		status, err := domain.ParseWorkflowStatus(raw)
		if err != nil || !status.IsOutcome() {
			return nil, fmt.Errorf("%w: echo: workflow_status %q", ErrInvalidConfig, raw)
		}
		resp.WorkflowStatus = status
	}

	return resp, nil
}
