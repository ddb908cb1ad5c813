package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trigger — источник запуска run.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerAPI      Trigger = "api"
	TriggerQueue    Trigger = "queue"
	TriggerSchedule Trigger = "schedule"
)

// Run — один запуск pipeline: PENDING -> RUNNING -> SUCCEEDED или FAILED.
//
// SUCCEEDED значит, что обход графа дошёл до конца; итог самого
// workflow лежит в WorkflowStatus и может быть failure. FAILED
// означает ошибку вне графа (невалидный pipeline, отмена, сбой
// хранилища), текст в Error.
type Run struct {
	ID             uuid.UUID      `json:"id"`
	Pipeline       string         `json:"pipeline"`
	Status         RunStatus      `json:"status"`
	WorkflowStatus WorkflowStatus `json:"workflow_status,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	Trigger        Trigger        `json:"trigger,omitempty"`

	// IdempotencyKey уникален среди runs; повтор запуска с тем же
	// ключом возвращает существующий run.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewRun(pipeline string, params map[string]any, trigger Trigger) *Run {
	return &Run{
		ID:        uuid.New(),
		Pipeline:  pipeline,
		Status:    RunStatusPending,
		Params:    params,
		Trigger:   trigger,
		CreatedAt: time.Now(),
	}
}

// Duration — 0, пока run не начат или не завершён.
func (r *Run) Duration() time.Duration {
	return span(r.StartedAt, r.FinishedAt)
}

func (r *Run) IsFinished() bool { return r.Status.IsTerminal() }

func (r *Run) MarkRunning() {
	r.Status = RunStatusRunning
	r.StartedAt = stamp()
}

func (r *Run) MarkSucceeded(workflow WorkflowStatus) {
	r.Status = RunStatusSucceeded
	r.WorkflowStatus = workflow
	r.FinishedAt = stamp()
}

func (r *Run) MarkFailed(reason string) {
	r.Status = RunStatusFailed
	r.Error = reason
	r.FinishedAt = stamp()
}

// NodeResult — итог узла завершённого run. Status пуст у узлов
// в condition_failed, если условие не превращено в skipped.
type NodeResult struct {
	RunID      uuid.UUID    `json:"run_id"`
	Action     string       `json:"action"`
	Type       string       `json:"type,omitempty"`
	State      NodeState    `json:"state"`
	Status     ActionStatus `json:"status,omitempty"`
	Output     any          `json:"output,omitempty"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

func (n *NodeResult) Duration() time.Duration {
	return span(n.StartedAt, n.FinishedAt)
}

func stamp() *time.Time {
	now := time.Now()
	return &now
}

func span(from, to *time.Time) time.Duration {
	if from == nil || to == nil {
		return 0
	}
	return to.Sub(*from)
}
