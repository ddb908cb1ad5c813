package engine

// Visitor — набор хуков обхода в глубину.
//
// State передаётся в каждый хук и в Result. Nil-хуки пропускаются.
type Visitor[S, R any] struct {
	State   S
	OnEnter func(node int, state S)
	OnLeave func(node int, state S)
	Result  func(state S) R
}

// Walk выполняет обход в глубину с явным стеком.
//
// Корни берутся из nodes с конца: последний элемент обходится первым.
// Множество посещённых узлов общее для всех корней, поэтому каждый
// узел входит и выходит ровно один раз. Для каждого узла OnEnter
// вызывается раньше, чем OnEnter любого узла, впервые достигнутого
// из него, а OnLeave — после OnLeave всех таких узлов.
//
// Глубина графа ограничена только памятью.
func Walk[S, R any](nodes []int, next func(node int) []int, v Visitor[S, R]) R {
	type frame struct {
		node     int
		children []int
		pos      int
	}

	visited := make(map[int]bool, len(nodes))
	var stack []frame

	enter := func(node int) {
		visited[node] = true
		if v.OnEnter != nil {
			v.OnEnter(node, v.State)
		}
		stack = append(stack, frame{node: node, children: next(node)})
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		if visited[nodes[i]] {
			continue
		}
		enter(nodes[i])

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.pos < len(top.children) {
				child := top.children[top.pos]
				top.pos++
				if !visited[child] {
					enter(child)
				}
				continue
			}

			node := top.node
			stack = stack[:len(stack)-1]
			if v.OnLeave != nil {
				v.OnLeave(node, v.State)
			}
		}
	}

	var zero R
	if v.Result == nil {
		return zero
	}
	return v.Result(v.State)
}
