package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
)

// Run DTOs

// CreateRunRequest — запрос на создание run.
// Тело принимается в JSON или YAML.
type CreateRunRequest struct {
	Pipeline       *domain.PipelineSpec `yaml:"pipeline" json:"pipeline"`
	Params         map[string]any       `yaml:"params,omitempty" json:"params,omitempty"`
	IdempotencyKey string               `yaml:"idempotency_key,omitempty" json:"idempotency_key,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID             uuid.UUID             `json:"id"`
	Pipeline       string                `json:"pipeline"`
	Status         domain.RunStatus      `json:"status"`
	WorkflowStatus domain.WorkflowStatus `json:"workflow_status,omitempty"`
	Params         map[string]any        `json:"params,omitempty"`
	Trigger        domain.Trigger        `json:"trigger,omitempty"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	StartedAt      *time.Time            `json:"started_at,omitempty"`
	FinishedAt     *time.Time            `json:"finished_at,omitempty"`
	Error          string                `json:"error,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:             r.ID,
		Pipeline:       r.Pipeline,
		Status:         r.Status,
		WorkflowStatus: r.WorkflowStatus,
		Params:         r.Params,
		Trigger:        r.Trigger,
		IdempotencyKey: r.IdempotencyKey,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Error:          r.Error,
		CreatedAt:      r.CreatedAt,
	}
}

// Node DTOs

// NodeResponse — ответ с итогом узла.
type NodeResponse struct {
	Action     string              `json:"action"`
	Type       string              `json:"type,omitempty"`
	State      domain.NodeState    `json:"state"`
	Status     domain.ActionStatus `json:"status,omitempty"`
	Output     any                 `json:"output,omitempty"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	DurationMs int64               `json:"duration_ms,omitempty"`
}

// NodeFromDomain конвертирует domain.NodeResult в NodeResponse.
func NodeFromDomain(n domain.NodeResult) NodeResponse {
	return NodeResponse{
		Action:     n.Action,
		Type:       n.Type,
		State:      n.State,
		Status:     n.Status,
		Output:     n.Output,
		StartedAt:  n.StartedAt,
		FinishedAt: n.FinishedAt,
		DurationMs: n.Duration().Milliseconds(),
	}
}

// Pipeline DTOs

// PipelineResponse — pipeline из каталога.
type PipelineResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version,omitempty"`
	Description string         `json:"description,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Actions     []string       `json:"actions"`
}

// PipelineFromDomain конвертирует domain.PipelineSpec в PipelineResponse.
func PipelineFromDomain(p *domain.PipelineSpec) PipelineResponse {
	actions := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		actions[i] = a.Name
	}
	return PipelineResponse{
		Name:        p.Name,
		Version:     p.Version,
		Description: p.Description,
		Params:      p.Params,
		Actions:     actions,
	}
}

// RunPipelineRequest — запуск pipeline из каталога.
type RunPipelineRequest struct {
	Params         map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	IdempotencyKey string         `yaml:"idempotency_key,omitempty" json:"idempotency_key,omitempty"`
}
