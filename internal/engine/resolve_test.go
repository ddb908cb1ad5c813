package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cascade/internal/domain"
)

func finish(st *State, node int, status domain.ActionStatus) {
	st.Finished[node] = Outcome{Status: status}
}

func TestResolve_OwnState(t *testing.T) {
	g := mustBuild(t, []Declaration{{Name: "a"}})
	st := NewState()

	assert.Equal(t, domain.NodeReady, Resolve(g, 0, st, ConditionAsSkip))

	st.Running.Add(0)
	assert.Equal(t, domain.NodeRunning, Resolve(g, 0, st, ConditionAsSkip))

	st.Running.Remove(0)
	finish(st, 0, domain.ActionStatusFailure)
	assert.Equal(t, domain.NodeFinished, Resolve(g, 0, st, ConditionAsSkip))

	st = NewState()
	st.ConditionFailed.Add(0)
	assert.Equal(t, domain.NodeSkipped, Resolve(g, 0, st, ConditionAsSkip))
}

func TestResolve_AllIn(t *testing.T) {
	g := mustBuild(t, []Declaration{
		{Name: "a"},
		{Name: "b"},
		{Name: "c", Deps: []string{"a"}, Needs: []domain.Dependency{domain.NeedsWith("b", domain.ActionStatusFailure)}},
	})
	a, b, c := idx(t, g, "a"), idx(t, g, "b"), idx(t, g, "c")

	st := NewState()
	assert.Equal(t, domain.NodeNotReady, Resolve(g, c, st, ConditionAsSkip))

	// Выполняющийся источник считается только в total
	st.Running.Add(a)
	assert.Equal(t, domain.NodeNotReady, Resolve(g, c, st, ConditionAsSkip))

	st.Running.Remove(a)
	finish(st, a, domain.ActionStatusSuccess)
	assert.Equal(t, domain.NodeNotReady, Resolve(g, c, st, ConditionAsSkip))

	finish(st, b, domain.ActionStatusFailure)
	assert.Equal(t, domain.NodeReady, Resolve(g, c, st, ConditionAsSkip))

	finish(st, b, domain.ActionStatusSuccess)
	assert.Equal(t, domain.NodeSkipped, Resolve(g, c, st, ConditionAsSkip))
}

func TestResolve_AllInMismatchSkipsEarly(t *testing.T) {
	g := mustBuild(t, []Declaration{
		{Name: "a"},
		{Name: "b"},
		{Name: "c", Deps: []string{"a", "b"}},
	})
	st := NewState()
	finish(st, idx(t, g, "a"), domain.ActionStatusCancelled)

	// b ещё не завершён, но несовпадение уже решает
	assert.Equal(t, domain.NodeSkipped, Resolve(g, idx(t, g, "c"), st, ConditionAsSkip))
}

func TestResolve_AnyOf(t *testing.T) {
	g := mustBuild(t, []Declaration{
		{Name: "a"},
		{Name: "b"},
		{Name: "c", NeedsAnyOf: []domain.Dependency{
			domain.Needs("a"),
			domain.NeedsWith("b", domain.ActionStatusCancelled),
		}},
	})
	a, b, c := idx(t, g, "a"), idx(t, g, "b"), idx(t, g, "c")

	tests := []struct {
		name string
		a, b domain.ActionStatus
		want domain.NodeStatus
	}{
		{"nothing finished", "", "", domain.NodeNotReady},
		{"one met", domain.ActionStatusSuccess, "", domain.NodeReady},
		{"one unmet, other pending", domain.ActionStatusFailure, "", domain.NodeNotReady},
		{"second met", domain.ActionStatusFailure, domain.ActionStatusCancelled, domain.NodeReady},
		{"all unmet", domain.ActionStatusFailure, domain.ActionStatusSuccess, domain.NodeSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewState()
			if tt.a != "" {
				finish(st, a, tt.a)
			}
			if tt.b != "" {
				finish(st, b, tt.b)
			}
			assert.Equal(t, tt.want, Resolve(g, c, st, ConditionAsSkip))
		})
	}
}

func TestResolve_AllInGatesAnyOf(t *testing.T) {
	g := mustBuild(t, []Declaration{
		{Name: "a"},
		{Name: "b"},
		{Name: "c", Deps: []string{"a"}, NeedsAnyOf: []domain.Dependency{domain.Needs("b")}},
	})
	st := NewState()
	finish(st, idx(t, g, "b"), domain.ActionStatusSuccess)

	assert.Equal(t, domain.NodeNotReady, Resolve(g, idx(t, g, "c"), st, ConditionAsSkip))
}

func TestResolve_Workflow(t *testing.T) {
	g := mustBuild(t, []Declaration{
		{Name: "a"},
		{Name: "report", Deps: []string{"a"}, NeedsWorkflow: wf(domain.WorkflowStatusFailure)},
		{Name: "always", NeedsWorkflow: wf(domain.WorkflowStatusAny)},
	})
	a, report, always := idx(t, g, "a"), idx(t, g, "report"), idx(t, g, "always")

	st := NewState()
	finish(st, a, domain.ActionStatusSuccess)
	assert.Equal(t, domain.NodeNotReady, Resolve(g, report, st, ConditionAsSkip))
	assert.Equal(t, domain.NodeNotReady, Resolve(g, always, st, ConditionAsSkip))

	st.Workflow = WorkflowState{Finalized: true, Status: domain.WorkflowStatusSuccess}
	assert.Equal(t, domain.NodeSkipped, Resolve(g, report, st, ConditionAsSkip))
	assert.Equal(t, domain.NodeReady, Resolve(g, always, st, ConditionAsSkip))

	st.Workflow.Status = domain.WorkflowStatusFailure
	assert.Equal(t, domain.NodeReady, Resolve(g, report, st, ConditionAsSkip))
}

func TestResolve_ConditionPolicy(t *testing.T) {
	g := mustBuild(t, []Declaration{
		{Name: "guarded"},
		{Name: "plain", Deps: []string{"guarded"}},
		{Name: "onSkip", Needs: []domain.Dependency{domain.NeedsWith("guarded", domain.ActionStatusSkipped)}},
		{Name: "onAny", Needs: []domain.Dependency{domain.NeedsWith("guarded", domain.ActionStatusAny)}},
	})
	guarded := idx(t, g, "guarded")

	st := NewState()
	st.ConditionFailed.Add(guarded)

	tests := []struct {
		node   string
		policy ConditionPolicy
		want   domain.NodeStatus
	}{
		{"plain", ConditionAsSkip, domain.NodeSkipped},
		{"onSkip", ConditionAsSkip, domain.NodeReady},
		{"onAny", ConditionAsSkip, domain.NodeReady},
		{"plain", ConditionDistinct, domain.NodeSkipped},
		{"onSkip", ConditionDistinct, domain.NodeSkipped},
		{"onAny", ConditionDistinct, domain.NodeReady},
	}

	for _, tt := range tests {
		t.Run(tt.node+"/"+tt.policy.String(), func(t *testing.T) {
			require.True(t, st.IsTerminal(guarded))
			assert.Equal(t, tt.want, Resolve(g, idx(t, g, tt.node), st, tt.policy))
		})
	}
}
