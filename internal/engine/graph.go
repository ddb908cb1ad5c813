package engine

import (
	"fmt"

	"github.com/shaiso/Cascade/internal/domain"
)

// EdgeKind — политика удовлетворения входящих рёбер.
type EdgeKind int

const (
	// AllIn — должны совпасть все такие рёбра узла.
	AllIn EdgeKind = iota

	// AnyOf — достаточно одного совпавшего ребра.
	AnyOf
)

// String возвращает строковое представление EdgeKind.
func (k EdgeKind) String() string {
	if k == AnyOf {
		return "any_of"
	}
	return "all_in"
}

// Edge — ребро from → to: "to зависит от итога from".
type Edge struct {
	From   int
	To     int
	Kind   EdgeKind
	Status domain.ActionStatus // требуемый итог from, может быть any
}

// Declaration — объявление одного узла для Build.
type Declaration struct {
	// Name — имя action, уникальное в pipeline.
	Name string

	// Deps — имена, чьи значения передаются на вход (AllIn, success).
	Deps []string

	// Needs — AllIn-требования.
	Needs []domain.Dependency

	// NeedsAnyOf — AnyOf-требования.
	NeedsAnyOf []domain.Dependency

	// NeedsWorkflow — требуемый итог workflow, nil если узел от него не зависит.
	NeedsWorkflow *domain.WorkflowStatus
}

// Graph — неизменяемый граф зависимостей.
//
// Узлы адресуются индексами (порядок объявления), таблица
// имя → индекс строится один раз в Build.
type Graph struct {
	names    []string
	index    map[string]int
	edgesIn  [][]Edge
	edgesOut [][]Edge
	succ     [][]int
	inputs   [][]string
	workflow map[int]domain.WorkflowStatus
	seeds    []int
	order    []int
}

// Build строит Graph из объявлений.
//
// Ошибки:
//   - *ValidationError — пустое или повторяющееся имя, недопустимый статус
//   - *UnknownDependencyError — ребро ссылается на необъявленный узел
//   - *CycleError — AllIn/AnyOf подграф содержит цикл
func Build(decls []Declaration) (*Graph, error) {
	n := len(decls)
	g := &Graph{
		names:    make([]string, n),
		index:    make(map[string]int, n),
		edgesIn:  make([][]Edge, n),
		edgesOut: make([][]Edge, n),
		succ:     make([][]int, n),
		inputs:   make([][]string, n),
		workflow: make(map[int]domain.WorkflowStatus),
	}

	// Первый проход: регистрируем имена
	for i, d := range decls {
		if d.Name == "" {
			return nil, NewValidationError("", "name",
				fmt.Sprintf("action #%d has empty name", i), ErrEmptyActionName)
		}
		if _, exists := g.index[d.Name]; exists {
			return nil, NewValidationError(d.Name, "name",
				fmt.Sprintf("duplicate action name: %s", d.Name), ErrDuplicateAction)
		}
		g.names[i] = d.Name
		g.index[d.Name] = i
	}

	// Второй проход: рёбра и аннотации workflow
	for i := range decls {
		if err := g.link(i, &decls[i]); err != nil {
			return nil, err
		}
	}

	for i := range g.names {
		if len(g.edgesIn[i]) == 0 && !g.DependsOnWorkflow(i) {
			g.seeds = append(g.seeds, i)
		}
	}

	order, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// link превращает объявление узла в рёбра.
func (g *Graph) link(to int, d *Declaration) error {
	seenInput := make(map[string]bool, len(d.Deps))
	for _, name := range d.Deps {
		from, err := g.resolve(d.Name, "deps", name)
		if err != nil {
			return err
		}
		g.addEdge(from, to, AllIn, domain.ActionStatusSuccess)
		if !seenInput[name] {
			seenInput[name] = true
			g.inputs[to] = append(g.inputs[to], name)
		}
	}

	groups := []struct {
		field string
		kind  EdgeKind
		deps  []domain.Dependency
	}{
		{"needs", AllIn, d.Needs},
		{"needsAnyOf", AnyOf, d.NeedsAnyOf},
	}
	for _, group := range groups {
		for _, dep := range group.deps {
			from, err := g.resolve(d.Name, group.field, dep.Action)
			if err != nil {
				return err
			}
			status := dep.With
			if status == "" {
				status = domain.ActionStatusSuccess
			}
			if status != domain.ActionStatusAny && !status.IsOutcome() {
				return NewValidationError(d.Name, group.field,
					fmt.Sprintf("unsupported status %q for %s", status, dep.Action), ErrInvalidRequirement)
			}
			g.addEdge(from, to, group.kind, status)
		}
	}

	if d.NeedsWorkflow != nil {
		status := *d.NeedsWorkflow
		if status != domain.WorkflowStatusAny && !status.IsOutcome() {
			return NewValidationError(d.Name, "needsWorkflow",
				fmt.Sprintf("unsupported workflow status %q", status), ErrInvalidRequirement)
		}
		g.workflow[to] = status
	}

	return nil
}

// resolve находит индекс зависимости.
func (g *Graph) resolve(action, field, dep string) (int, error) {
	from, ok := g.index[dep]
	if !ok {
		return 0, &UnknownDependencyError{Action: action, Field: field, Dependency: dep}
	}
	if dep == action {
		return 0, &CycleError{Path: []string{action, action}}
	}
	return from, nil
}

// addEdge добавляет ребро. Повторные рёбра сохраняются: каждое
// учитывается резолвером отдельно.
func (g *Graph) addEdge(from, to int, kind EdgeKind, status domain.ActionStatus) {
	e := Edge{From: from, To: to, Kind: kind, Status: status}
	g.edgesIn[to] = append(g.edgesIn[to], e)
	g.edgesOut[from] = append(g.edgesOut[from], e)

	for _, s := range g.succ[from] {
		if s == to {
			return
		}
	}
	g.succ[from] = append(g.succ[from], to)
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// При равенстве раньше идёт узел, объявленный раньше.
func (g *Graph) topologicalSort() ([]int, error) {
	inDegree := make([]int, len(g.names))
	for i := range g.names {
		inDegree[i] = len(g.predecessors(i))
	}

	queue := make([]int, 0, len(g.names))
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(g.names))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, next := range g.succ[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.names) {
		return nil, &CycleError{Path: g.findCycle(inDegree)}
	}
	return order, nil
}

// predecessors возвращает различных предшественников узла.
func (g *Graph) predecessors(node int) []int {
	var preds []int
	seen := make(map[int]bool, len(g.edgesIn[node]))
	for _, e := range g.edgesIn[node] {
		if !seen[e.From] {
			seen[e.From] = true
			preds = append(preds, e.From)
		}
	}
	return preds
}

// findCycle ищет цикл среди узлов, не попавших в топологический порядок
// (inDegree > 0). Обход начинается с узла с наименьшим индексом.
func (g *Graph) findCycle(inDegree []int) []string {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.names))

	type frame struct {
		node int
		pos  int
	}

	for start := range g.names {
		if inDegree[start] == 0 || color[start] != white {
			continue
		}

		stack := []frame{{node: start}}
		color[start] = grey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succ := g.succ[top.node]
			if top.pos >= len(succ) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}

			next := succ[top.pos]
			top.pos++
			if inDegree[next] == 0 {
				continue
			}

			switch color[next] {
			case grey:
				// Восстанавливаем путь от next до вершины стека
				path := []string{}
				for i := range stack {
					if stack[i].node == next {
						for _, f := range stack[i:] {
							path = append(path, g.names[f.node])
						}
						break
					}
				}
				return append(path, g.names[next])
			case white:
				color[next] = grey
				stack = append(stack, frame{node: next})
			}
		}
	}

	// Недостижимо при len(order) != len(names)
	return nil
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.names)
}

// Name возвращает имя узла по индексу.
func (g *Graph) Name(node int) string {
	return g.names[node]
}

// Names возвращает имена узлов в порядке объявления.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Index возвращает индекс узла по имени.
func (g *Graph) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// EdgesIn возвращает входящие рёбра узла.
func (g *Graph) EdgesIn(node int) []Edge {
	return g.edgesIn[node]
}

// EdgesOut возвращает исходящие рёбра узла.
func (g *Graph) EdgesOut(node int) []Edge {
	return g.edgesOut[node]
}

// Successors возвращает различных потомков узла (цели исходящих рёбер).
func (g *Graph) Successors(node int) []int {
	return g.succ[node]
}

// Inputs возвращает имена deps, чьи значения передаются узлу.
func (g *Graph) Inputs(node int) []string {
	return g.inputs[node]
}

// DependsOnWorkflow проверяет, объявлен ли у узла needsWorkflow.
func (g *Graph) DependsOnWorkflow(node int) bool {
	_, ok := g.workflow[node]
	return ok
}

// RequiredWorkflowStatus возвращает требуемый итог workflow.
func (g *Graph) RequiredWorkflowStatus(node int) (domain.WorkflowStatus, bool) {
	s, ok := g.workflow[node]
	return s, ok
}

// WorkflowNodes возвращает множество узлов с needsWorkflow.
func (g *Graph) WorkflowNodes() NodeSet {
	set := make(NodeSet, len(g.workflow))
	for node := range g.workflow {
		set.Add(node)
	}
	return set
}

// Seeds возвращает узлы без входящих рёбер и без needsWorkflow.
func (g *Graph) Seeds() []int {
	return g.seeds
}

// Order возвращает топологический порядок узлов.
func (g *Graph) Order() []int {
	return g.order
}

// ReverseOrder возвращает обратный топологический порядок.
func (g *Graph) ReverseOrder() []int {
	rev := make([]int, len(g.order))
	for i, node := range g.order {
		rev[len(g.order)-1-i] = node
	}
	return rev
}

// WorkflowScope вычисляет узлы, чья готовность зависит от финализации workflow.
func (g *Graph) WorkflowScope() NodeSet {
	return OutOfWorkflowNodes(g.ReverseOrder(), g.Successors, g.WorkflowNodes())
}
