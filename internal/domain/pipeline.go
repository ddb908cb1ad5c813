package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PipelineSpec — декларативное описание pipeline.
//
// Это "программа" для Cascade: набор именованных actions
// и ограничений на итоги других actions и всего workflow.
type PipelineSpec struct {
	// Version — версия формата спецификации.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Name — имя pipeline (например, "release", "nightly-report").
	Name string `yaml:"name" json:"name"`

	// Description — описание назначения pipeline.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Params — параметры по умолчанию, доступны в шаблонах как {{ .Params.x }}.
	// Переопределяются параметрами конкретного запуска.
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`

	// Actions — actions в порядке объявления.
	Actions ActionList `yaml:"actions" json:"actions"`
}

// Action возвращает action по имени.
func (p *PipelineSpec) Action(name string) (*ActionDef, bool) {
	for i := range p.Actions {
		if p.Actions[i].Name == name {
			return &p.Actions[i], true
		}
	}
	return nil, false
}

// ActionDef — определение одного action.
type ActionDef struct {
	// Name — уникальное имя action в рамках pipeline.
	// В YAML-форме берётся из ключа mapping'а.
	Name string `yaml:"name,omitempty" json:"name"`

	// Type — тип шага: "http", "delay", "transform", "echo".
	Type string `yaml:"type" json:"type"`

	// Description — человекочитаемое описание.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Deps — actions, чьи результаты передаются на вход.
	// Каждое имя — также AllIn-зависимость со статусом success.
	Deps []string `yaml:"deps,omitempty" json:"deps,omitempty"`

	// Needs — AllIn-зависимости: должны совпасть все.
	Needs []Dependency `yaml:"needs,omitempty" json:"needs,omitempty"`

	// NeedsAnyOf — AnyOf-зависимости: достаточно одной совпавшей.
	NeedsAnyOf []Dependency `yaml:"needsAnyOf,omitempty" json:"needsAnyOf,omitempty"`

	// NeedsWorkflow — требуемый итог workflow.
	// Action с этим полем ждёт финализации workflow.
	NeedsWorkflow *WorkflowStatus `yaml:"needsWorkflow,omitempty" json:"needsWorkflow,omitempty"`

	// If — guard: выражение Go template над входами, например
	// `eq .Inputs.build.branch "main"`. Пустая строка — guard отсутствует.
	If string `yaml:"if,omitempty" json:"if,omitempty"`

	// Config — конфигурация шага (зависит от типа).
	// Строковые значения рендерятся как Go templates перед запуском.
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// ActionList — упорядоченный список actions.
//
// В YAML допускаются две формы: mapping (ключ — имя action)
// и sequence (имя в поле name). Порядок объявления сохраняется.
type ActionList []ActionDef

// UnmarshalYAML реализует yaml.Unmarshaler.
func (l *ActionList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		list := make(ActionList, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, body := value.Content[i], value.Content[i+1]

			var def ActionDef
			if err := body.Decode(&def); err != nil {
				return fmt.Errorf("action %s: %w", key.Value, err)
			}
			if def.Name != "" && def.Name != key.Value {
				return fmt.Errorf("line %d: action %s declares conflicting name %q", key.Line, key.Value, def.Name)
			}
			def.Name = key.Value
			list = append(list, def)
		}
		*l = list
		return nil

	case yaml.SequenceNode:
		var defs []ActionDef
		if err := value.Decode(&defs); err != nil {
			return err
		}
		*l = defs
		return nil

	default:
		return fmt.Errorf("line %d: actions must be a mapping or a sequence", value.Line)
	}
}

// Dependency — запись needs/needsAnyOf.
//
// Голое имя означает требование success; форма {action, with}
// задаёт требуемый статус явно (в том числе any).
type Dependency struct {
	Action string       `yaml:"action" json:"action"`
	With   ActionStatus `yaml:"with" json:"with"`
}

// Needs создаёт зависимость с требованием success.
func Needs(action string) Dependency {
	return Dependency{Action: action, With: ActionStatusSuccess}
}

// NeedsWith создаёт зависимость с явным статусом.
func NeedsWith(action string, status ActionStatus) Dependency {
	return Dependency{Action: action, With: status}
}

// UnmarshalYAML реализует yaml.Unmarshaler.
func (d *Dependency) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*d = Needs(value.Value)
		return nil

	case yaml.MappingNode:
		var raw struct {
			Action string `yaml:"action"`
			With   string `yaml:"with"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		status := ActionStatusSuccess
		if raw.With != "" {
			parsed, err := ParseActionStatus(raw.With)
			if err != nil {
				return fmt.Errorf("line %d: %w", value.Line, err)
			}
			status = parsed
		}
		*d = NeedsWith(raw.Action, status)
		return nil

	default:
		return fmt.Errorf("line %d: dependency must be a name or {action, with}", value.Line)
	}
}

// MarshalJSON сворачивает зависимость со статусом success в голое имя.
func (d Dependency) MarshalJSON() ([]byte, error) {
	if d.With == ActionStatusSuccess || d.With == "" {
		return json.Marshal(d.Action)
	}
	return json.Marshal(struct {
		Action string       `json:"action"`
		With   ActionStatus `json:"with"`
	}{d.Action, d.With})
}

// UnmarshalJSON принимает обе формы, которые выдаёт MarshalJSON.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*d = Needs(name)
		return nil
	}

	var raw struct {
		Action string `json:"action"`
		With   string `json:"with"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dependency must be a name or {action, with}: %w", err)
	}
	status := ActionStatusSuccess
	if raw.With != "" {
		parsed, err := ParseActionStatus(raw.With)
		if err != nil {
			return err
		}
		status = parsed
	}
	*d = NeedsWith(raw.Action, status)
	return nil
}

// UnmarshalYAML реализует yaml.Unmarshaler с поддержкой алиасов.
func (s *ActionStatus) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseActionStatus(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = parsed
	return nil
}

// UnmarshalYAML реализует yaml.Unmarshaler с поддержкой алиасов.
func (s *WorkflowStatus) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseWorkflowStatus(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = parsed
	return nil
}
