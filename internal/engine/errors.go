package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки графа. Конкретные ошибки (ValidationError,
// UnknownDependencyError, CycleError) разворачиваются в них через
// errors.Is.
var (
	ErrEmptyActions       = errors.New("pipeline has no actions")
	ErrEmptyActionName    = errors.New("action has empty name")
	ErrDuplicateAction    = errors.New("duplicate action name")
	ErrUnknownStepType    = errors.New("unknown step type")
	ErrUnknownDependency  = errors.New("action depends on unknown action")
	ErrCyclicDependency   = errors.New("cyclic dependency detected")
	ErrInvalidRequirement = errors.New("invalid dependency requirement")
)

var (
	ErrTemplateParse  = errors.New("template parse failed")
	ErrTemplateRender = errors.New("template render failed")
)

// ValidationError привязывает ошибку к action и полю описания.
// Action пуст, если имя самого action отсутствует.
type ValidationError struct {
	Action  string
	Field   string
	Message string
	Err     error
}

func NewValidationError(action, field, message string, err error) *ValidationError {
	return &ValidationError{Action: action, Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Action == "" {
		return e.Message
	}
	return fmt.Sprintf("action %s: %s", e.Action, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UnknownDependencyError — Field (deps, needs, needsAnyOf) у Action
// ссылается на Dependency, которого нет в pipeline.
type UnknownDependencyError struct {
	Action     string
	Field      string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("action %s: %s references unknown action %s", e.Action, e.Field, e.Dependency)
}

func (e *UnknownDependencyError) Unwrap() error { return ErrUnknownDependency }

// CycleError — цикл по рёбрам AllIn/AnyOf. Path замкнут: первый
// и последний элементы совпадают ([a b c a]), и при одном и том же
// pipeline путь всегда один и тот же.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }
