package engine

import (
	"reflect"
	"testing"

	"github.com/shaiso/Cascade/internal/domain"
)

func scopeNames(g *Graph) []string {
	var names []string
	for _, n := range g.WorkflowScope().Sorted() {
		names = append(names, g.Name(n))
	}
	return names
}

func TestWorkflowScope(t *testing.T) {
	tests := []struct {
		name  string
		decls []Declaration
		want  []string
	}{
		{
			name:  "no workflow nodes",
			decls: []Declaration{{Name: "a"}, {Name: "b", Deps: []string{"a"}}},
			want:  nil,
		},
		{
			name: "workflow node and descendants",
			decls: []Declaration{
				{Name: "a"},
				{Name: "w", NeedsWorkflow: wf(domain.WorkflowStatusAny)},
				{Name: "x", Deps: []string{"w"}},
				{Name: "y", NeedsAnyOf: []domain.Dependency{domain.Needs("x"), domain.Needs("a")}},
			},
			want: []string{"w", "x", "y"},
		},
		{
			name: "node reachable from unflagged source first",
			// a → x, w → x: x в scope, a нет
			decls: []Declaration{
				{Name: "a"},
				{Name: "x", Deps: []string{"a", "w"}},
				{Name: "w", NeedsWorkflow: wf(domain.WorkflowStatusSuccess)},
			},
			want: []string{"x", "w"},
		},
		{
			name: "workflow node downstream of regular nodes",
			decls: []Declaration{
				{Name: "a"},
				{Name: "w", Deps: []string{"a"}, NeedsWorkflow: wf(domain.WorkflowStatusFailure)},
				{Name: "b", Deps: []string{"a"}},
			},
			want: []string{"w"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustBuild(t, tt.decls)
			got := scopeNames(g)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestOutOfWorkflowNodes_ClosedUnderSuccessors(t *testing.T) {
	// 0 → 1 → 2, 3 → 1; флаг на 3
	adj := map[int][]int{0: {1}, 1: {2}, 3: {1}}
	next := func(n int) []int { return adj[n] }

	// Обратный топологический порядок: источники в конце
	got := OutOfWorkflowNodes([]int{2, 1, 3, 0}, next, NewNodeSet(3))

	for _, n := range []int{1, 2, 3} {
		if !got.Has(n) {
			t.Errorf("node %d should be in scope", n)
		}
	}
	if got.Has(0) {
		t.Error("node 0 should not be in scope")
	}
}
