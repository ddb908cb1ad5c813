package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStatus — строка не соответствует ни одному известному статусу.
var ErrInvalidStatus = errors.New("invalid status")

// ActionStatus — итог выполнения action.
//
// Закрытое множество: success, failure, cancelled, skipped.
// ActionStatusAny допустим только как требование зависимости,
// фактическим итогом он не бывает.
type ActionStatus string

const (
	// ActionStatusSuccess — action завершился успешно (значение по умолчанию).
	ActionStatusSuccess ActionStatus = "success"

	// ActionStatusFailure — action сообщил о неудаче.
	ActionStatusFailure ActionStatus = "failure"

	// ActionStatusCancelled — action сообщил об отмене.
	ActionStatusCancelled ActionStatus = "cancelled"

	// ActionStatusSkipped — action пропущен каскадом несовпавших зависимостей.
	ActionStatusSkipped ActionStatus = "skipped"

	// ActionStatusAny — wildcard для требований: подходит любой итог.
	ActionStatusAny ActionStatus = "any"
)

// IsOutcome возвращает true для статусов, которые могут быть фактическим итогом.
func (s ActionStatus) IsOutcome() bool {
	switch s {
	case ActionStatusSuccess, ActionStatusFailure, ActionStatusCancelled, ActionStatusSkipped:
		return true
	default:
		return false
	}
}

// Matches проверяет, удовлетворяет ли фактический итог требованию s.
func (s ActionStatus) Matches(actual ActionStatus) bool {
	return s == ActionStatusAny || s == actual
}

// ParseActionStatus парсит строку в ActionStatus.
// Принимает также короткие алиасы: ok, fail, cancel, skip.
func ParseActionStatus(s string) (ActionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "ok":
		return ActionStatusSuccess, nil
	case "failure", "fail", "failed":
		return ActionStatusFailure, nil
	case "cancelled", "canceled", "cancel":
		return ActionStatusCancelled, nil
	case "skipped", "skip":
		return ActionStatusSkipped, nil
	case "any", "*":
		return ActionStatusAny, nil
	default:
		return "", fmt.Errorf("%w: action status %q", ErrInvalidStatus, s)
	}
}

// WorkflowStatus — агрегированный итог всего pipeline.
type WorkflowStatus string

const (
	// WorkflowStatusSuccess — итог по умолчанию, если никто не сообщил другого.
	WorkflowStatusSuccess WorkflowStatus = "success"

	// WorkflowStatusFailure — workflow завершился неудачей.
	WorkflowStatusFailure WorkflowStatus = "failure"

	// WorkflowStatusAny — wildcard для needsWorkflow.
	WorkflowStatusAny WorkflowStatus = "any"
)

// IsOutcome возвращает true для статусов, которые может принять workflow.
func (s WorkflowStatus) IsOutcome() bool {
	return s == WorkflowStatusSuccess || s == WorkflowStatusFailure
}

// Matches проверяет, удовлетворяет ли итог workflow требованию s.
func (s WorkflowStatus) Matches(actual WorkflowStatus) bool {
	return s == WorkflowStatusAny || s == actual
}

// ParseWorkflowStatus парсит строку в WorkflowStatus.
func ParseWorkflowStatus(s string) (WorkflowStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "ok":
		return WorkflowStatusSuccess, nil
	case "failure", "fail", "failed":
		return WorkflowStatusFailure, nil
	case "any", "*":
		return WorkflowStatusAny, nil
	default:
		return "", fmt.Errorf("%w: workflow status %q", ErrInvalidStatus, s)
	}
}

// NodeStatus — статус узла для планировщика.
// Вычисляется заново на каждом тике и не кэшируется.
type NodeStatus int

const (
	// NodeNotReady — узел ждёт хотя бы одну зависимость.
	NodeNotReady NodeStatus = iota

	// NodeReady — требования удовлетворены, узел можно запускать.
	NodeReady

	// NodeRunning — узел выполняется (guard или runner).
	NodeRunning

	// NodeFinished — итог узла уже записан.
	NodeFinished

	// NodeSkipped — узел не будет выполнен.
	NodeSkipped
)

// String возвращает строковое представление NodeStatus.
func (s NodeStatus) String() string {
	switch s {
	case NodeNotReady:
		return "not_ready"
	case NodeReady:
		return "ready"
	case NodeRunning:
		return "running"
	case NodeFinished:
		return "finished"
	case NodeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("node_status(%d)", int(s))
	}
}

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все узлы достигли терминального состояния.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — выполнение прервано ошибкой runner'а или сборки графа.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed:
		return true
	default:
		return false
	}
}

// NodeState — терминальное состояние узла в сохранённом результате run.
type NodeState string

const (
	// NodeStatePending — узел не достиг терминального состояния (run прерван).
	NodeStatePending NodeState = "pending"

	// NodeStateFinished — runner отработал, итог в ActionStatus.
	NodeStateFinished NodeState = "finished"

	// NodeStateSkipped — узел пропущен каскадом зависимостей.
	NodeStateSkipped NodeState = "skipped"

	// NodeStateConditionFailed — guard вернул false.
	NodeStateConditionFailed NodeState = "condition_failed"
)
