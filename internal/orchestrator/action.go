package orchestrator

import (
	"context"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/engine"
)

// Runner — тело action.
//
// inputs — значения deps (имя → значение), копия для каждого запуска.
// Возвращённое значение передаётся потомкам, которые перечислили
// action в deps. Ошибка прерывает выполнение всего pipeline.
type Runner func(ctx context.Context, inputs map[string]any, r Reporter) (any, error)

// Guard — условие запуска action. false переводит узел в
// condition_failed, runner не вызывается.
type Guard func(ctx context.Context, inputs map[string]any) (bool, error)

// Reporter — узкий интерфейс, через который runner сообщает итоги.
type Reporter interface {
	// SetStatus задаёт итог узла. По умолчанию success.
	SetStatus(status domain.ActionStatus)

	// SetWorkflowStatus задаёт итог workflow.
	// Побеждает сообщение узла, завершившегося последним.
	SetWorkflowStatus(status domain.WorkflowStatus)
}

// Action — исполняемый узел pipeline.
type Action struct {
	Name          string
	Type          string // тип шага для метрик и логов, может быть пустым
	Deps          []string
	Needs         []domain.Dependency
	NeedsAnyOf    []domain.Dependency
	NeedsWorkflow *domain.WorkflowStatus
	If            Guard
	Run           Runner
}

// Pipeline — скомпилированный набор actions, готовый к выполнению.
// Pipeline неизменяем и может выполняться многократно.
type Pipeline struct {
	// Name — имя pipeline для логов и событий.
	Name string

	graph   *engine.Graph
	actions []Action
	scope   engine.NodeSet
}

// Compile строит граф и workflow-scope для набора actions.
// Action без Run выполняется как no-op со значением nil.
func Compile(actions []Action) (*Pipeline, error) {
	decls := make([]engine.Declaration, len(actions))
	for i, a := range actions {
		decls[i] = engine.Declaration{
			Name:          a.Name,
			Deps:          a.Deps,
			Needs:         a.Needs,
			NeedsAnyOf:    a.NeedsAnyOf,
			NeedsWorkflow: a.NeedsWorkflow,
		}
	}

	g, err := engine.Build(decls)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		graph:   g,
		actions: append([]Action(nil), actions...),
		scope:   g.WorkflowScope(),
	}, nil
}

// Graph возвращает граф зависимостей.
func (p *Pipeline) Graph() *engine.Graph {
	return p.graph
}

// InWorkflowScope проверяет, зависит ли action от финализации workflow.
func (p *Pipeline) InWorkflowScope(name string) bool {
	i, ok := p.graph.Index(name)
	return ok && p.scope.Has(i)
}
