package pipeline

import (
	"context"
	"fmt"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/engine"
	"github.com/shaiso/Cascade/internal/orchestrator"
	"github.com/shaiso/Cascade/internal/steps"
)

// Validate проверяет spec против типов шагов реестра.
func Validate(spec *domain.PipelineSpec, registry *steps.Registry) error {
	return engine.ValidateWith(spec, registry.Has)
}

// Compile превращает PipelineSpec в исполняемые actions.
//
// params накладываются поверх spec.Params. Guard и config
// рендерятся в момент запуска action, когда значения deps уже известны.
func Compile(spec *domain.PipelineSpec, registry *steps.Registry, params map[string]any) ([]orchestrator.Action, error) {
	if err := Validate(spec, registry); err != nil {
		return nil, err
	}

	merged := MergeParams(spec.Params, params)

	actions := make([]orchestrator.Action, len(spec.Actions))
	for i := range spec.Actions {
		def := spec.Actions[i]

		step, err := registry.Get(def.Type)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", def.Name, err)
		}

		actions[i] = orchestrator.Action{
			Name:          def.Name,
			Type:          def.Type,
			Deps:          def.Deps,
			Needs:         def.Needs,
			NeedsAnyOf:    def.NeedsAnyOf,
			NeedsWorkflow: def.NeedsWorkflow,
			If:            guard(def, merged),
			Run:           runner(step, def, merged),
		}
	}

	return actions, nil
}

// Build компилирует spec и строит orchestrator.Pipeline с именем spec.
func Build(spec *domain.PipelineSpec, registry *steps.Registry, params map[string]any) (*orchestrator.Pipeline, error) {
	actions, err := Compile(spec, registry, params)
	if err != nil {
		return nil, err
	}

	p, err := orchestrator.Compile(actions)
	if err != nil {
		return nil, err
	}
	p.Name = spec.Name
	return p, nil
}

// MergeParams накладывает override поверх defaults в новой map.
func MergeParams(defaults, override map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(override))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func guard(def domain.ActionDef, params map[string]any) orchestrator.Guard {
	if def.If == "" {
		return nil
	}
	return func(ctx context.Context, inputs map[string]any) (bool, error) {
		ok, err := engine.RenderCondition(def.If, templateContext(def.Name, inputs, params))
		if err != nil {
			return false, fmt.Errorf("if: %w", err)
		}
		return ok, nil
	}
}

func runner(step steps.Step, def domain.ActionDef, params map[string]any) orchestrator.Runner {
	return func(ctx context.Context, inputs map[string]any, r orchestrator.Reporter) (any, error) {
		tmplCtx := templateContext(def.Name, inputs, params)

		config, err := engine.RenderConfig(def.Config, tmplCtx)
		if err != nil {
			return nil, fmt.Errorf("render config: %w", err)
		}

		resp, err := step.Execute(ctx, steps.NewRequest(def.Name, config, tmplCtx, 0))
		if err != nil {
			return nil, err
		}

		if resp.Status != "" {
			r.SetStatus(resp.Status)
		}
		if resp.WorkflowStatus != "" {
			r.SetWorkflowStatus(resp.WorkflowStatus)
		}
		return resp.Outputs, nil
	}
}

// templateContext собирает контекст шаблонов одного запуска action.
func templateContext(action string, inputs, params map[string]any) *engine.Context {
	tmplCtx := engine.NewContext(params)
	tmplCtx.Action = action
	for dep, value := range inputs {
		tmplCtx.AddInput(dep, value)
	}
	return tmplCtx
}
