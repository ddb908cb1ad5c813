package pipeline

import (
	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/engine"
	"github.com/shaiso/Cascade/internal/steps"
)

// ExecutionPlan — статическое описание графа pipeline.
type ExecutionPlan struct {
	Pipeline string `json:"pipeline"`

	// Seeds — узлы, готовые к запуску сразу.
	Seeds []string `json:"seeds"`

	// Order — топологический порядок, в котором scheduler просматривает узлы.
	Order []string `json:"order"`

	// WorkflowScope — узлы, ждущие финализации workflow.
	WorkflowScope []string `json:"workflow_scope"`

	// Nodes — узлы в порядке объявления.
	Nodes []PlanNode `json:"nodes"`
}

// PlanNode — требования одного узла.
type PlanNode struct {
	Action          string                `json:"action"`
	Type            string                `json:"type"`
	Inputs          []string              `json:"inputs,omitempty"`
	AllIn           []Requirement         `json:"all_in,omitempty"`
	AnyOf           []Requirement         `json:"any_of,omitempty"`
	NeedsWorkflow   domain.WorkflowStatus `json:"needs_workflow,omitempty"`
	InWorkflowScope bool                  `json:"in_workflow_scope"`
	HasGuard        bool                  `json:"has_guard"`
}

// Requirement — требование к итогу другого узла.
type Requirement struct {
	Action string              `json:"action"`
	Status domain.ActionStatus `json:"status"`
}

// String возвращает требование в виде "action:status".
func (r Requirement) String() string {
	return r.Action + ":" + string(r.Status)
}

// Plan валидирует spec со встроенными типами шагов и описывает его граф.
func Plan(spec *domain.PipelineSpec) (*ExecutionPlan, error) {
	return PlanWith(spec, steps.DefaultRegistry())
}

// PlanWith валидирует spec по registry и описывает его граф.
func PlanWith(spec *domain.PipelineSpec, registry *steps.Registry) (*ExecutionPlan, error) {
	if err := Validate(spec, registry); err != nil {
		return nil, err
	}
	return describe(spec)
}

func describe(spec *domain.PipelineSpec) (*ExecutionPlan, error) {
	g, err := engine.Build(engine.Declarations(spec))
	if err != nil {
		return nil, err
	}

	scope := g.WorkflowScope()
	plan := &ExecutionPlan{
		Pipeline:      spec.Name,
		Seeds:         names(g, g.Seeds()),
		Order:         names(g, g.Order()),
		WorkflowScope: names(g, scope.Sorted()),
		Nodes:         make([]PlanNode, g.Size()),
	}

	for i := range spec.Actions {
		def := &spec.Actions[i]
		node := PlanNode{
			Action:          def.Name,
			Type:            def.Type,
			Inputs:          g.Inputs(i),
			InWorkflowScope: scope.Has(i),
			HasGuard:        def.If != "",
		}
		for _, e := range g.EdgesIn(i) {
			req := Requirement{Action: g.Name(e.From), Status: e.Status}
			if e.Kind == engine.AnyOf {
				node.AnyOf = append(node.AnyOf, req)
			} else {
				node.AllIn = append(node.AllIn, req)
			}
		}
		if status, ok := g.RequiredWorkflowStatus(i); ok {
			node.NeedsWorkflow = status
		}
		plan.Nodes[i] = node
	}

	return plan, nil
}

func names(g *engine.Graph, nodes []int) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = g.Name(n)
	}
	return out
}
