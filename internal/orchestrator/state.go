package orchestrator

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/engine"
)

// runState — состояние одного выполнения pipeline.
//
// Принадлежит горутине-координатору: runners его не видят
// и общаются с координатором только через канал completions.
type runState struct {
	runID    uuid.UUID
	pipeline *Pipeline
	state    *engine.State

	// pendingWorkflow — статус, который получит workflow при финализации.
	pendingWorkflow domain.WorkflowStatus

	startedAt  []time.Time
	finishedAt []time.Time

	// pending — ещё не запущенные узлы в топологическом порядке,
	// tick сжимает его после каждого прохода.
	pending []int
	// outsideOpen — нетерминальные узлы вне workflow-scope.
	outsideOpen int

	inFlight int
}

func newRunState(runID uuid.UUID, p *Pipeline) *runState {
	n := p.graph.Size()
	return &runState{
		runID:           runID,
		pipeline:        p,
		state:           engine.NewState(),
		pendingWorkflow: domain.WorkflowStatusSuccess,
		startedAt:       make([]time.Time, n),
		finishedAt:      make([]time.Time, n),
		pending:         slices.Clone(p.graph.Order()),
		outsideOpen:     n - len(p.scope),
	}
}

// unresolved проверяет, что узел ещё не запущен и не терминален.
func (s *runState) unresolved(node int) bool {
	return !s.state.Running.Has(node) && !s.state.IsTerminal(node)
}

// allTerminal проверяет, все ли узлы достигли терминального состояния.
func (s *runState) allTerminal() bool {
	return s.state.Terminal() == s.pipeline.graph.Size()
}

// terminated учитывает переход узла в терминальное состояние.
// Вызывается ровно один раз на узел.
func (s *runState) terminated(node int) {
	if !s.pipeline.scope.Has(node) {
		s.outsideOpen--
	}
}

func (s *runState) outsideScopeTerminal() bool {
	return s.outsideOpen == 0
}

// compact убирает из pending запущенные и терминальные узлы.
func (s *runState) compact() {
	s.pending = slices.DeleteFunc(s.pending, func(node int) bool {
		return !s.unresolved(node)
	})
}

// inputs собирает значения deps узла.
func (s *runState) inputs(node int) map[string]any {
	g := s.pipeline.graph
	deps := g.Inputs(node)
	inputs := make(map[string]any, len(deps))
	for _, name := range deps {
		dep, _ := g.Index(name)
		inputs[name] = s.state.Finished[dep].Value
	}
	return inputs
}

// result строит снимок Result по текущему состоянию.
func (s *runState) result() *Result {
	g := s.pipeline.graph
	res := &Result{
		RunID:             s.runID,
		Pipeline:          s.pipeline.Name,
		WorkflowFinalized: s.state.Workflow.Finalized,
		WorkflowStatus:    s.state.Workflow.Status,
		Nodes:             make([]NodeResult, g.Size()),
		index:             make(map[string]int, g.Size()),
	}

	for node := 0; node < g.Size(); node++ {
		nr := NodeResult{
			Action:     g.Name(node),
			Type:       s.pipeline.actions[node].Type,
			State:      domain.NodeStatePending,
			StartedAt:  s.startedAt[node],
			FinishedAt: s.finishedAt[node],
		}
		if s.state.ConditionFailed.Has(node) {
			nr.State = domain.NodeStateConditionFailed
		} else if out, ok := s.state.Finished[node]; ok {
			// Каскадно пропущенный узел никогда не запускался
			nr.State = domain.NodeStateFinished
			if out.Status == domain.ActionStatusSkipped && s.startedAt[node].IsZero() {
				nr.State = domain.NodeStateSkipped
			}
			nr.Status = out.Status
			nr.Value = out.Value
		}
		res.Nodes[node] = nr
		res.index[nr.Action] = node
	}

	return res
}

// Result — итог выполнения pipeline.
type Result struct {
	RunID    uuid.UUID
	Pipeline string

	// WorkflowFinalized — false только если выполнение прервано
	// до финализации workflow.
	WorkflowFinalized bool
	WorkflowStatus    domain.WorkflowStatus

	// Nodes — итоги узлов в порядке объявления.
	Nodes []NodeResult

	index map[string]int
}

// NodeResult — итог одного узла.
type NodeResult struct {
	Action     string
	Type       string
	State      domain.NodeState
	Status     domain.ActionStatus
	Value      any
	StartedAt  time.Time
	FinishedAt time.Time
}

// Node возвращает итог узла по имени.
func (r *Result) Node(name string) (NodeResult, bool) {
	i, ok := r.index[name]
	if !ok {
		return NodeResult{}, false
	}
	return r.Nodes[i], true
}

// Value возвращает значение, которое вернул runner узла.
func (r *Result) Value(name string) any {
	n, _ := r.Node(name)
	return n.Value
}

// Status возвращает итог узла. Пустая строка — узел не завершён
// или guard вернул false.
func (r *Result) Status(name string) domain.ActionStatus {
	n, _ := r.Node(name)
	return n.Status
}

// Ran проверяет, был ли вызван runner узла.
func (r *Result) Ran(name string) bool {
	n, ok := r.Node(name)
	return ok && n.State == domain.NodeStateFinished
}
