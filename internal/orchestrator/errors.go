package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrActionPanicked — runner или guard запаниковал.
	ErrActionPanicked = errors.New("action panicked")

	// ErrStalled — ни один узел не выполняется и ни один не может продвинуться.
	ErrStalled = errors.New("settlement stalled")

	// ErrWorkflowReportInScope — узел внутри workflow-scope сообщил статус workflow.
	ErrWorkflowReportInScope = errors.New("workflow status reported by workflow-scoped action")

	// ErrInvalidActionStatus — runner сообщил статус, который не может быть итогом.
	ErrInvalidActionStatus = errors.New("invalid action status reported")

	// ErrNilPipeline — Execute вызван без pipeline.
	ErrNilPipeline = errors.New("pipeline is nil")
)

// Phase — фаза выполнения узла, в которой произошла ошибка.
type Phase string

const (
	PhaseGuard  Phase = "guard"
	PhaseRunner Phase = "runner"
)

// ActionError — ошибка, прервавшая выполнение pipeline.
type ActionError struct {
	Action string // имя action
	Phase  Phase  // guard или runner
	Err    error  // исходная ошибка
}

// Error реализует интерфейс error.
func (e *ActionError) Error() string {
	return "action " + e.Action + " (" + string(e.Phase) + "): " + e.Err.Error()
}

// Unwrap возвращает исходную ошибку.
func (e *ActionError) Unwrap() error {
	return e.Err
}
