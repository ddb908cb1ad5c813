package engine

import "sort"

// NodeSet — множество индексов узлов.
type NodeSet map[int]struct{}

// NewNodeSet создаёт множество из перечисленных узлов.
func NewNodeSet(nodes ...int) NodeSet {
	s := make(NodeSet, len(nodes))
	for _, n := range nodes {
		s.Add(n)
	}
	return s
}

// Add добавляет узел.
func (s NodeSet) Add(node int) {
	s[node] = struct{}{}
}

// Remove удаляет узел.
func (s NodeSet) Remove(node int) {
	delete(s, node)
}

// Has проверяет наличие узла.
func (s NodeSet) Has(node int) bool {
	_, ok := s[node]
	return ok
}

// Sorted возвращает узлы по возрастанию индекса.
func (s NodeSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// scopeState — состояние обхода классификатора.
type scopeState struct {
	workflow NodeSet
	scope    NodeSet
	trigger  int
	inside   bool
}

// OutOfWorkflowNodes возвращает множество узлов, которые не могут
// стать готовыми до финализации workflow: сами узлы с needsWorkflow
// и все узлы, достижимые из них по исходящим рёбрам.
//
// ordered — узлы в обратном топологическом порядке (источники в конце).
// Узлы с needsWorkflow обходятся первыми, иначе узел, достигнутый
// раньше по пути без флага, не попал бы в множество.
func OutOfWorkflowNodes(ordered []int, next func(node int) []int, workflowNodes NodeSet) NodeSet {
	roots := make([]int, 0, len(ordered))
	for _, n := range ordered {
		if !workflowNodes.Has(n) {
			roots = append(roots, n)
		}
	}
	for _, n := range ordered {
		if workflowNodes.Has(n) {
			roots = append(roots, n)
		}
	}

	return Walk(roots, next, Visitor[*scopeState, NodeSet]{
		State: &scopeState{workflow: workflowNodes, scope: make(NodeSet)},
		OnEnter: func(node int, st *scopeState) {
			if !st.inside && st.workflow.Has(node) {
				st.inside = true
				st.trigger = node
			}
			if st.inside {
				st.scope.Add(node)
			}
		},
		OnLeave: func(node int, st *scopeState) {
			if st.inside && node == st.trigger {
				st.inside = false
			}
		},
		Result: func(st *scopeState) NodeSet {
			return st.scope
		},
	})
}
