package engine

import "github.com/shaiso/Cascade/internal/domain"

// Outcome — записанный итог узла.
type Outcome struct {
	Status domain.ActionStatus
	Value  any
}

// WorkflowState — состояние workflow в рамках run.
type WorkflowState struct {
	// Finalized — true, когда все узлы вне workflow-scope терминальны.
	Finalized bool

	// Status — итог workflow, имеет смысл только при Finalized.
	Status domain.WorkflowStatus
}

// State — изменяемое состояние выполнения, которым владеет планировщик.
//
// Узел находится не более чем в одном из Finished, Running, ConditionFailed.
type State struct {
	Finished        map[int]Outcome
	Running         NodeSet
	ConditionFailed NodeSet
	Workflow        WorkflowState
}

// NewState создаёт пустое состояние.
func NewState() *State {
	return &State{
		Finished:        make(map[int]Outcome),
		Running:         make(NodeSet),
		ConditionFailed: make(NodeSet),
	}
}

// IsTerminal проверяет, достиг ли узел терминального состояния.
func (s *State) IsTerminal(node int) bool {
	if _, ok := s.Finished[node]; ok {
		return true
	}
	return s.ConditionFailed.Has(node)
}

// Terminal возвращает количество терминальных узлов.
func (s *State) Terminal() int {
	return len(s.Finished) + len(s.ConditionFailed)
}

// ConditionPolicy определяет, как зависимые узлы видят узел,
// чей guard вернул false.
type ConditionPolicy int

const (
	// ConditionAsSkip — узел считается завершённым с итогом skipped.
	ConditionAsSkip ConditionPolicy = iota

	// ConditionDistinct — узел считается завершённым, но совпадает
	// только с требованием any.
	ConditionDistinct
)

// String возвращает строковое представление ConditionPolicy.
func (p ConditionPolicy) String() string {
	if p == ConditionDistinct {
		return "distinct"
	}
	return "skip"
}

type tally struct {
	total    int
	finished int
	met      int
	notMet   int
}

// Resolve вычисляет статус узла по текущему состоянию.
//
// Порядок правил:
//  1. Running, Finished, ConditionFailed (как Skipped) узла
//  2. needsWorkflow: до финализации — NotReady, иначе синтетическое AllIn-ребро
//  3. несовпавшее AllIn-ребро — Skipped
//  4. незавершённый AllIn-источник — NotReady
//  5. AnyOf: нет рёбер или совпало хотя бы одно — Ready;
//     все завершены и ни одно не совпало — Skipped; иначе NotReady
func Resolve(g *Graph, node int, st *State, policy ConditionPolicy) domain.NodeStatus {
	if st.Running.Has(node) {
		return domain.NodeRunning
	}
	if _, ok := st.Finished[node]; ok {
		return domain.NodeFinished
	}
	if st.ConditionFailed.Has(node) {
		return domain.NodeSkipped
	}

	var allIn, anyOf tally

	if required, ok := g.RequiredWorkflowStatus(node); ok {
		if !st.Workflow.Finalized {
			return domain.NodeNotReady
		}
		allIn.total++
		allIn.finished++
		if required.Matches(st.Workflow.Status) {
			allIn.met++
		} else {
			allIn.notMet++
		}
	}

	for _, e := range g.EdgesIn(node) {
		t := &allIn
		if e.Kind == AnyOf {
			t = &anyOf
		}
		t.total++

		actual, finished := st.sourceOutcome(e.From, policy)
		if !finished {
			continue
		}
		t.finished++
		if e.Status.Matches(actual) {
			t.met++
		} else {
			t.notMet++
		}
	}

	switch {
	case allIn.notMet > 0:
		return domain.NodeSkipped
	case allIn.finished < allIn.total:
		return domain.NodeNotReady
	case anyOf.total == 0:
		return domain.NodeReady
	case anyOf.met > 0:
		return domain.NodeReady
	case anyOf.finished == anyOf.total:
		return domain.NodeSkipped
	default:
		return domain.NodeNotReady
	}
}

// sourceOutcome возвращает итог источника ребра так, как его видит
// зависимый узел. finished == false, пока источник выполняется или ждёт.
//
// При ConditionDistinct возвращается статус, которому соответствует
// только требование any.
func (s *State) sourceOutcome(node int, policy ConditionPolicy) (domain.ActionStatus, bool) {
	if s.Running.Has(node) {
		return "", false
	}
	if out, ok := s.Finished[node]; ok {
		return out.Status, true
	}
	if s.ConditionFailed.Has(node) {
		if policy == ConditionDistinct {
			return conditionFailedStatus, true
		}
		return domain.ActionStatusSkipped, true
	}
	return "", false
}

// conditionFailedStatus не совпадает ни с одним фактическим итогом.
const conditionFailedStatus domain.ActionStatus = "condition_failed"
