package engine

import (
	"fmt"

	"github.com/shaiso/Cascade/internal/domain"
)

// ValidateWith выполняет полную валидацию PipelineSpec.
//
// Проверяет:
// - Наличие actions
// - Уникальность имён
// - Тип шага по knownType (обычно Registry.Has; nil проверяет только непустоту)
// - Синтаксис шаблонов if и config
// - Валидность ссылок deps/needs/needsAnyOf
// - Отсутствие циклов (делегируется Build)
func ValidateWith(spec *domain.PipelineSpec, knownType func(string) bool) error {
	if spec == nil || len(spec.Actions) == 0 {
		return ErrEmptyActions
	}

	names := make(map[string]bool, len(spec.Actions))
	for i := range spec.Actions {
		if err := ValidateAction(&spec.Actions[i], names, knownType); err != nil {
			return err
		}
	}

	for i := range spec.Actions {
		if err := validateReferences(&spec.Actions[i], names); err != nil {
			return err
		}
	}

	_, err := Build(Declarations(spec))
	return err
}

// ValidateAction валидирует один action.
// names — уже встреченные имена (для проверки уникальности).
func ValidateAction(action *domain.ActionDef, names map[string]bool, knownType func(string) bool) error {
	if action.Name == "" {
		return NewValidationError("", "name", "action has empty name", ErrEmptyActionName)
	}

	if names[action.Name] {
		return NewValidationError(action.Name, "name",
			fmt.Sprintf("duplicate action name: %s", action.Name), ErrDuplicateAction)
	}
	names[action.Name] = true

	if action.Type == "" {
		return NewValidationError(action.Name, "type",
			"action has empty type", ErrUnknownStepType)
	}
	if knownType != nil && !knownType(action.Type) {
		return NewValidationError(action.Name, "type",
			fmt.Sprintf("unknown step type: %s", action.Type), ErrUnknownStepType)
	}

	if err := ParseCondition(action.If); err != nil {
		return NewValidationError(action.Name, "if", err.Error(), ErrTemplateParse)
	}
	if err := ParseValue(action.Config); err != nil {
		return NewValidationError(action.Name, "config", err.Error(), ErrTemplateParse)
	}

	return nil
}

// validateReferences проверяет, что все зависимости ссылаются на объявленные actions.
func validateReferences(action *domain.ActionDef, names map[string]bool) error {
	check := func(field, dep string) error {
		if dep == "" {
			return NewValidationError(action.Name, field,
				"dependency has empty action name", ErrEmptyActionName)
		}
		if dep == action.Name {
			return NewValidationError(action.Name, field,
				"action depends on itself", ErrCyclicDependency)
		}
		if !names[dep] {
			return &UnknownDependencyError{Action: action.Name, Field: field, Dependency: dep}
		}
		return nil
	}

	for _, dep := range action.Deps {
		if err := check("deps", dep); err != nil {
			return err
		}
	}
	for _, dep := range action.Needs {
		if err := check("needs", dep.Action); err != nil {
			return err
		}
	}
	for _, dep := range action.NeedsAnyOf {
		if err := check("needsAnyOf", dep.Action); err != nil {
			return err
		}
	}

	return nil
}

// Declarations преобразует actions в объявления для Build.
func Declarations(spec *domain.PipelineSpec) []Declaration {
	decls := make([]Declaration, len(spec.Actions))
	for i, a := range spec.Actions {
		decls[i] = Declaration{
			Name:          a.Name,
			Deps:          a.Deps,
			Needs:         a.Needs,
			NeedsAnyOf:    a.NeedsAnyOf,
			NeedsWorkflow: a.NeedsWorkflow,
		}
	}
	return decls
}
