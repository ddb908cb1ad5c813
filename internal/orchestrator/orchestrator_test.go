package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/engine"
	"github.com/shaiso/Cascade/internal/telemetry"
)

// harness записывает порядок запусков и вызовы runners.
//
// Порядок берётся из событий node.started: их отправляет координатор,
// поэтому он совпадает с порядком запуска узлов.
type harness struct {
	mu      sync.Mutex
	started []string
	ran     []string
	events  []Event
}

func (h *harness) Emit(_ context.Context, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	if e.Kind == EventNodeStarted {
		h.started = append(h.started, e.Action)
	}
}

func (h *harness) record(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ran = append(h.ran, name)
}

func (h *harness) fn(name string) Runner {
	return h.fnStatus(name, "")
}

func (h *harness) fnStatus(name string, status domain.ActionStatus) Runner {
	return func(_ context.Context, _ map[string]any, r Reporter) (any, error) {
		h.record(name)
		if status != "" {
			r.SetStatus(status)
		}
		return name, nil
	}
}

func (h *harness) fnWorkflow(name string, status domain.WorkflowStatus) Runner {
	return func(_ context.Context, _ map[string]any, r Reporter) (any, error) {
		h.record(name)
		r.SetWorkflowStatus(status)
		return name, nil
	}
}

func (h *harness) fnDeps(t *testing.T, name string, deps ...string) Runner {
	return func(_ context.Context, inputs map[string]any, _ Reporter) (any, error) {
		for _, dep := range deps {
			assert.Equal(t, dep, inputs[dep], "action %s should receive %s", name, dep)
		}
		h.record(name)
		return name, nil
	}
}

func (h *harness) async(name string, d time.Duration, status domain.ActionStatus) Runner {
	return func(ctx context.Context, _ map[string]any, r Reporter) (any, error) {
		h.record(name)
		if status != "" {
			r.SetStatus(status)
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return name, nil
	}
}

func (h *harness) execute(t *testing.T, cfg Config, actions ...Action) *Result {
	t.Helper()

	p, err := Compile(actions)
	require.NoError(t, err)

	cfg.Logger = telemetry.Discard()
	cfg.Events = h

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := New(cfg).Execute(ctx, p)
	require.NoError(t, err)
	return res
}

func (h *harness) index(name string) int {
	return slices.Index(h.started, name)
}

func (h *harness) order(t *testing.T, a, b string) {
	t.Helper()
	ia, ib := h.index(a), h.index(b)
	require.NotEqual(t, -1, ia, "%s was not started", a)
	require.NotEqual(t, -1, ib, "%s was not started", b)
	assert.Less(t, ia, ib, "%s should start before %s (sequence %v)", a, b, h.started)
}

func (h *harness) orderSome(t *testing.T, nodes []string, b string) {
	t.Helper()
	ib := h.index(b)
	require.NotEqual(t, -1, ib, "%s was not started", b)
	for _, n := range nodes {
		if i := h.index(n); i != -1 && i < ib {
			return
		}
	}
	t.Errorf("none of %v started before %s (sequence %v)", nodes, b, h.started)
}

func (h *harness) orderEvery(t *testing.T, nodes []string, b string) {
	t.Helper()
	for _, n := range nodes {
		h.order(t, n, b)
	}
}

func (h *harness) assertRan(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		assert.Contains(t, h.ran, n)
	}
}

func (h *harness) assertNotRan(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		assert.NotContains(t, h.ran, n)
	}
}

func needs(names ...string) []domain.Dependency {
	deps := make([]domain.Dependency, len(names))
	for i, n := range names {
		deps[i] = domain.Needs(n)
	}
	return deps
}

func with(name string, status domain.ActionStatus) domain.Dependency {
	return domain.NeedsWith(name, status)
}

func workflow(s domain.WorkflowStatus) *domain.WorkflowStatus { return &s }

func TestExecute_Deps(t *testing.T) {
	h := &harness{}
	res := h.execute(t, Config{},
		Action{Name: "4", Deps: []string{"3"}, Run: h.fnDeps(t, "4", "3")},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Run: h.fn("2")},
		Action{Name: "3", Deps: []string{"1"}, Run: h.fnDeps(t, "3", "1")},
		Action{Name: "5", Deps: []string{"1", "2"}, Run: h.fnDeps(t, "5", "1", "2")},
		Action{Name: "6", Deps: []string{"4", "5"}, Run: h.fnDeps(t, "6", "4", "5")},
	)

	h.order(t, "1", "3")
	h.order(t, "1", "5")
	h.order(t, "2", "5")
	h.order(t, "3", "4")
	h.order(t, "4", "6")
	h.order(t, "5", "6")

	assert.Equal(t, "6", res.Value("6"))
	assert.Equal(t, domain.WorkflowStatusSuccess, res.WorkflowStatus)
}

func TestExecute_Needs(t *testing.T) {
	h := &harness{}
	h.execute(t, Config{},
		Action{Name: "4", Needs: needs("3"), Run: h.fn("4")},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Run: h.fn("2")},
		Action{Name: "3", Needs: needs("1"), Run: h.fn("3")},
		Action{Name: "5", Needs: needs("1", "2"), Run: h.fn("5")},
		Action{Name: "6", Needs: needs("4", "5"), Run: h.fn("6")},
	)

	h.order(t, "1", "3")
	h.order(t, "1", "5")
	h.order(t, "2", "5")
	h.order(t, "3", "4")
	h.order(t, "4", "6")
	h.order(t, "5", "6")
}

func TestExecute_NeedsDoNotForwardValues(t *testing.T) {
	var got map[string]any
	_, err := Run(context.Background(), []Action{
		{Name: "a", Run: func(context.Context, map[string]any, Reporter) (any, error) { return 1, nil }},
		{Name: "b", Needs: needs("a"), Run: func(_ context.Context, in map[string]any, _ Reporter) (any, error) {
			got = in
			return nil, nil
		}},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExecute_NeedsAnyOf(t *testing.T) {
	h := &harness{}
	h.execute(t, Config{},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Run: h.fn("2")},
		Action{Name: "3", NeedsAnyOf: needs("1", "2"), Run: h.fn("3")},
		Action{Name: "4", NeedsAnyOf: needs("3", "1"), Run: h.fn("4")},
		Action{Name: "5", NeedsAnyOf: needs("2"), Run: h.fn("5")},
		Action{Name: "6", NeedsAnyOf: needs("5", "4"), Run: h.fn("6")},
	)

	h.orderSome(t, []string{"1", "2"}, "3")
	h.orderSome(t, []string{"3", "1"}, "4")
	h.order(t, "2", "5")
	h.orderSome(t, []string{"5", "4"}, "6")
	h.assertRan(t, "1", "2", "3", "4", "5", "6")
}

func TestExecute_NeedsWorkflow(t *testing.T) {
	h := &harness{}
	h.execute(t, Config{},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Run: h.fn("2")},
		Action{Name: "3", NeedsAnyOf: needs("1", "2"), Run: h.fn("3")},
		Action{Name: "4", NeedsAnyOf: needs("3", "1"), Run: h.fn("4")},
		Action{Name: "5", NeedsWorkflow: workflow(domain.WorkflowStatusSuccess), Run: h.fn("5")},
		Action{Name: "6", Needs: needs("5"), Run: h.fn("6")},
		Action{Name: "7", NeedsAnyOf: needs("5"), Run: h.fn("7")},
	)

	h.orderSome(t, []string{"1", "2"}, "3")
	h.orderSome(t, []string{"3", "1"}, "4")
	h.orderEvery(t, []string{"1", "2", "3", "4"}, "5")
	h.order(t, "5", "6")
	h.order(t, "5", "7")
}

func TestExecute_Combined(t *testing.T) {
	h := &harness{}
	ok := workflow(domain.WorkflowStatusSuccess)
	h.execute(t, Config{},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Needs: needs("1"), Run: h.fn("2")},
		Action{Name: "3", Run: h.fn("3")},
		Action{Name: "4", Needs: needs("3"), Run: h.fn("4")},
		Action{Name: "5", Needs: needs("1"), NeedsAnyOf: needs("2", "4"), Run: h.fn("5")},
		Action{Name: "6", Needs: needs("4"), NeedsAnyOf: needs("1", "3"), Run: h.fn("6")},
		Action{Name: "7", NeedsWorkflow: ok, Run: h.fn("7")},
		Action{Name: "8", NeedsWorkflow: ok, Run: h.fn("8")},
		Action{Name: "9", NeedsAnyOf: needs("7", "8"), Run: h.fn("9")},
		Action{Name: "10", Needs: needs("9"), Run: h.fn("10")},
	)

	h.order(t, "1", "2")
	h.order(t, "3", "4")
	h.order(t, "1", "5")
	h.orderSome(t, []string{"2", "4"}, "5")
	h.order(t, "4", "6")
	h.orderSome(t, []string{"1", "3"}, "6")
	h.orderEvery(t, []string{"1", "2", "3", "4", "5", "6"}, "7")
	h.orderEvery(t, []string{"1", "2", "3", "4", "5", "6"}, "8")
	h.orderSome(t, []string{"7", "8"}, "9")
	h.order(t, "9", "10")
}

func TestExecute_NeedsWithStatuses(t *testing.T) {
	h := &harness{}
	res := h.execute(t, Config{},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Run: h.fnStatus("2", domain.ActionStatusFailure)},
		Action{Name: "3", Needs: needs("1"), Run: h.fn("3")},
		Action{Name: "4", Needs: needs("3"), Run: h.fnStatus("4", domain.ActionStatusCancelled)},
		Action{Name: "5", Needs: []domain.Dependency{domain.Needs("1"), with("2", domain.ActionStatusFailure)}, Run: h.fn("5")},
		Action{Name: "6", Needs: []domain.Dependency{with("4", domain.ActionStatusCancelled), domain.Needs("5")}, Run: h.fn("6")},
		Action{Name: "7", Needs: needs("2"), Run: h.fn("7")},
		Action{Name: "8", Needs: needs("7"), NeedsAnyOf: []domain.Dependency{domain.Needs("1"), with("4", domain.ActionStatusCancelled)}, Run: h.fn("8")},
	)

	h.order(t, "1", "3")
	h.order(t, "3", "4")
	h.order(t, "1", "5")
	h.order(t, "2", "5")
	h.order(t, "4", "6")
	h.order(t, "5", "6")
	h.assertNotRan(t, "7", "8")

	assert.Equal(t, domain.ActionStatusSkipped, res.Status("7"))
	assert.Equal(t, domain.ActionStatusSkipped, res.Status("8"))
	n7, _ := res.Node("7")
	assert.Equal(t, domain.NodeStateSkipped, n7.State)
}

func TestExecute_NeedsAnyOfWithStatuses(t *testing.T) {
	h := &harness{}
	h.execute(t, Config{},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Run: h.fnStatus("2", domain.ActionStatusFailure)},
		Action{Name: "3", Needs: needs("1"), Run: h.fn("3")},
		Action{Name: "4", Needs: needs("3"), Run: h.fnStatus("4", domain.ActionStatusCancelled)},
		Action{Name: "5", NeedsAnyOf: []domain.Dependency{with("4", domain.ActionStatusCancelled), with("2", domain.ActionStatusFailure)}, Run: h.fn("5")},
		Action{Name: "6", Needs: []domain.Dependency{with("4", domain.ActionStatusCancelled), domain.Needs("5")}, Run: h.fn("6")},
		Action{Name: "7", NeedsAnyOf: []domain.Dependency{with("2", domain.ActionStatusCancelled)}, Run: h.fn("7")},
		Action{Name: "8", Needs: needs("7"), NeedsAnyOf: []domain.Dependency{domain.Needs("1"), with("4", domain.ActionStatusCancelled)}, Run: h.fn("8")},
	)

	h.order(t, "1", "3")
	h.order(t, "3", "4")
	h.orderSome(t, []string{"4", "2"}, "5")
	h.order(t, "4", "6")
	h.order(t, "5", "6")
	h.assertNotRan(t, "7", "8")
}

func TestExecute_NeedsWorkflowWithCustomStatus(t *testing.T) {
	h := &harness{}
	res := h.execute(t, Config{},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Run: h.fn("2")},
		Action{Name: "3", NeedsAnyOf: needs("1", "2"), Run: h.fnWorkflow("3", domain.WorkflowStatusFailure)},
		Action{Name: "4", NeedsAnyOf: needs("3", "1"), Run: h.fn("4")},
		Action{Name: "5", NeedsWorkflow: workflow(domain.WorkflowStatusSuccess), Run: h.fn("5")},
		Action{Name: "6", Needs: needs("5"), Run: h.fn("6")},
		Action{Name: "7", NeedsAnyOf: needs("5"), Run: h.fn("7")},
		Action{Name: "8", NeedsWorkflow: workflow(domain.WorkflowStatusFailure), Run: h.fn("8")},
		Action{Name: "9", Needs: needs("8"), Run: h.fn("9")},
	)

	h.orderSome(t, []string{"1", "2"}, "3")
	h.order(t, "1", "4")
	h.assertNotRan(t, "5", "6", "7")
	h.order(t, "3", "8")
	h.order(t, "8", "9")

	assert.True(t, res.WorkflowFinalized)
	assert.Equal(t, domain.WorkflowStatusFailure, res.WorkflowStatus)
	// Собственный итог узла не меняется сообщением о workflow
	assert.Equal(t, domain.ActionStatusSuccess, res.Status("3"))
}

func TestExecute_AsyncComplex(t *testing.T) {
	h := &harness{}
	ms := time.Millisecond

	// 3 ждёт запуска 13: так 13 гарантированно стартует раньше 10,
	// который зависит от финализации workflow, а значит и от 3
	started13 := make(chan struct{})
	run13 := h.fn("13")

	h.execute(t, Config{},
		Action{Name: "1", Run: h.fn("1")},
		Action{Name: "2", Run: h.async("2", 5*ms, "")},
		Action{Name: "3", Run: func(ctx context.Context, in map[string]any, r Reporter) (any, error) {
			h.record("3")
			select {
			case <-started13:
			case <-time.After(2 * time.Second):
				t.Error("13 was not started while 3 was running")
			}
			return "3", nil
		}},
		Action{Name: "9", NeedsWorkflow: workflow(domain.WorkflowStatusAny), Run: h.async("9", 5*ms, "")},
		Action{Name: "11", Run: h.async("11", 10*ms, domain.ActionStatusFailure)},
		Action{Name: "4", Needs: needs("1", "2"), Run: h.async("4", 5*ms, "")},
		Action{Name: "13", NeedsAnyOf: []domain.Dependency{with("12", domain.ActionStatusSkipped)}, Run: func(ctx context.Context, in map[string]any, r Reporter) (any, error) {
			close(started13)
			return run13(ctx, in, r)
		}},
		Action{Name: "5", Needs: needs("3", "4"), Run: h.async("5", 5*ms, "")},
		Action{Name: "6", NeedsAnyOf: needs("2", "3"), Run: h.async("6", 5*ms, "")},
		Action{Name: "14", NeedsWorkflow: workflow(domain.WorkflowStatusFailure), Run: h.fn("14")},
		Action{Name: "7", NeedsAnyOf: needs("6", "3"), Run: h.async("7", 5*ms, "")},
		Action{Name: "12", Needs: needs("10", "11"), Run: h.async("12", 5*ms, "")},
		Action{Name: "10", Needs: needs("9"), Run: h.async("10", 5*ms, "")},
		Action{Name: "8", Needs: needs("5", "7"), NeedsAnyOf: needs("1", "6"), Run: h.async("8", 10*ms, "")},
	)

	seeds := []string{"1", "2", "3", "11"}
	for _, n := range []string{"4", "5", "6", "7", "8", "9", "10", "13"} {
		h.orderEvery(t, seeds, n)
	}

	h.order(t, "4", "5")
	h.order(t, "5", "8")
	h.order(t, "7", "8")
	h.orderSome(t, []string{"6"}, "8")
	h.orderEvery(t, []string{"4", "5", "6", "7", "8"}, "9")
	h.order(t, "9", "10")
	h.assertNotRan(t, "12", "14")
	h.assertRan(t, "13")
	h.order(t, "13", "10")
}

func TestExecute_If(t *testing.T) {
	for _, policy := range []engine.ConditionPolicy{engine.ConditionAsSkip, engine.ConditionDistinct} {
		t.Run(policy.String(), func(t *testing.T) {
			h := &harness{}
			yes := func(context.Context, map[string]any) (bool, error) { return true, nil }
			no := func(context.Context, map[string]any) (bool, error) { return false, nil }

			res := h.execute(t, Config{ConditionPolicy: policy},
				Action{Name: "1", If: yes, Run: h.fn("1")},
				Action{Name: "2", Run: h.async("2", 5*time.Millisecond, "")},
				Action{Name: "3", Deps: []string{"1"}, If: no, Run: h.fn("3")},
				Action{Name: "4", Deps: []string{"2"}, If: no, Run: h.async("4", 5*time.Millisecond, "")},
				Action{Name: "5", Deps: []string{"2"}, If: no, Run: h.fn("5")},
				Action{Name: "6", Deps: []string{"1"}, If: no, Run: h.async("6", 5*time.Millisecond, "")},
				Action{Name: "7", Deps: []string{"6"}, Run: h.fn("7")},
				Action{Name: "8", Deps: []string{"1"}, If: yes, Run: h.fn("8")},
			)

			h.assertRan(t, "1", "2", "8")
			h.assertNotRan(t, "3", "4", "5", "6", "7")

			n6, _ := res.Node("6")
			assert.Equal(t, domain.NodeStateConditionFailed, n6.State)
			n7, _ := res.Node("7")
			assert.Equal(t, domain.NodeStateSkipped, n7.State)
		})
	}
}

func TestExecute_GuardSeesInputs(t *testing.T) {
	var seen any
	_, err := Run(context.Background(), []Action{
		{Name: "build", Run: func(context.Context, map[string]any, Reporter) (any, error) {
			return map[string]any{"branch": "main"}, nil
		}},
		{Name: "deploy", Deps: []string{"build"},
			If: func(_ context.Context, in map[string]any) (bool, error) {
				seen = in["build"]
				return true, nil
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"branch": "main"}, seen)
}

func TestExecute_ConditionPolicyOnExplicitSkip(t *testing.T) {
	no := func(context.Context, map[string]any) (bool, error) { return false, nil }

	tests := []struct {
		policy engine.ConditionPolicy
		ran    bool
	}{
		{engine.ConditionAsSkip, true},
		{engine.ConditionDistinct, false},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			h := &harness{}
			h.execute(t, Config{ConditionPolicy: tt.policy},
				Action{Name: "guarded", If: no, Run: h.fn("guarded")},
				Action{Name: "cleanup", Needs: []domain.Dependency{with("guarded", domain.ActionStatusSkipped)}, Run: h.fn("cleanup")},
				Action{Name: "always", Needs: []domain.Dependency{with("guarded", domain.ActionStatusAny)}, Run: h.fn("always")},
			)

			assert.Equal(t, tt.ran, slices.Contains(h.ran, "cleanup"))
			h.assertRan(t, "always")
		})
	}
}

func TestExecute_WorkflowOnlyNodes(t *testing.T) {
	// Все узлы в scope: workflow финализируется сразу со статусом success
	h := &harness{}
	res := h.execute(t, Config{},
		Action{Name: "a", NeedsWorkflow: workflow(domain.WorkflowStatusSuccess), Run: h.fn("a")},
		Action{Name: "b", NeedsWorkflow: workflow(domain.WorkflowStatusFailure), Run: h.fn("b")},
	)

	h.assertRan(t, "a")
	h.assertNotRan(t, "b")
	assert.True(t, res.WorkflowFinalized)
	assert.Equal(t, domain.WorkflowStatusSuccess, res.WorkflowStatus)
}

func TestExecute_LastWorkflowReportWins(t *testing.T) {
	h := &harness{}
	res := h.execute(t, Config{},
		Action{Name: "first", Run: h.fnWorkflow("first", domain.WorkflowStatusFailure)},
		Action{Name: "second", Needs: needs("first"), Run: h.fnWorkflow("second", domain.WorkflowStatusSuccess)},
		Action{Name: "onFail", NeedsWorkflow: workflow(domain.WorkflowStatusFailure), Run: h.fn("onFail")},
	)

	assert.Equal(t, domain.WorkflowStatusSuccess, res.WorkflowStatus)
	h.assertNotRan(t, "onFail")
}

func TestExecute_WorkflowReportInScope(t *testing.T) {
	actions := func(h *harness) []Action {
		return []Action{
			{Name: "a", Run: h.fn("a")},
			{Name: "report", NeedsWorkflow: workflow(domain.WorkflowStatusAny), Run: h.fnWorkflow("report", domain.WorkflowStatusFailure)},
		}
	}

	t.Run("ignore", func(t *testing.T) {
		h := &harness{}
		res := h.execute(t, Config{WorkflowReports: WorkflowReportIgnore}, actions(h)...)
		assert.Equal(t, domain.WorkflowStatusSuccess, res.WorkflowStatus)
		assert.Equal(t, domain.ActionStatusSuccess, res.Status("report"))
	})

	t.Run("reject", func(t *testing.T) {
		h := &harness{}
		p, err := Compile(actions(h))
		require.NoError(t, err)
		assert.True(t, p.InWorkflowScope("report"))

		_, err = New(Config{Logger: telemetry.Discard(), WorkflowReports: WorkflowReportReject}).Execute(context.Background(), p)
		require.ErrorIs(t, err, ErrWorkflowReportInScope)

		var actionErr *ActionError
		require.ErrorAs(t, err, &actionErr)
		assert.Equal(t, "report", actionErr.Action)
	})
}

func TestExecute_RunnerError(t *testing.T) {
	boom := errors.New("boom")
	h := &harness{}

	res, err := Run(context.Background(), []Action{
		{Name: "a", Run: func(context.Context, map[string]any, Reporter) (any, error) { return nil, boom }},
		{Name: "b", Deps: []string{"a"}, Run: h.fn("b")},
	})

	require.ErrorIs(t, err, boom)
	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "a", actionErr.Action)
	assert.Equal(t, PhaseRunner, actionErr.Phase)
	h.assertNotRan(t, "b")

	// Снимок на момент прерывания
	require.NotNil(t, res)
	n, _ := res.Node("b")
	assert.Equal(t, domain.NodeStatePending, n.State)
}

func TestExecute_RunnerPanic(t *testing.T) {
	_, err := Run(context.Background(), []Action{
		{Name: "a", Run: func(context.Context, map[string]any, Reporter) (any, error) { panic("kaboom") }},
	})

	require.ErrorIs(t, err, ErrActionPanicked)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestExecute_GuardError(t *testing.T) {
	bad := errors.New("bad guard")
	_, err := Run(context.Background(), []Action{
		{Name: "a", If: func(context.Context, map[string]any) (bool, error) { return false, bad }},
	})

	require.ErrorIs(t, err, bad)
	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, PhaseGuard, actionErr.Phase)
}

func TestExecute_InvalidReportedStatus(t *testing.T) {
	_, err := Run(context.Background(), []Action{
		{Name: "a", Run: func(_ context.Context, _ map[string]any, r Reporter) (any, error) {
			r.SetStatus(domain.ActionStatusAny)
			return nil, nil
		}},
	})
	require.ErrorIs(t, err, ErrInvalidActionStatus)
}

func TestExecute_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	p, err := Compile([]Action{
		{Name: "slow", Run: func(context.Context, map[string]any, Reporter) (any, error) {
			<-release
			return nil, nil
		}},
	})
	require.NoError(t, err)

	_, err = New(Config{Logger: telemetry.Discard()}).Execute(ctx, p)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecute_RunsEachActionOnce(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	count := func(name string) Runner {
		return func(context.Context, map[string]any, Reporter) (any, error) {
			mu.Lock()
			calls[name]++
			mu.Unlock()
			return nil, nil
		}
	}

	_, err := Run(context.Background(), []Action{
		{Name: "a", Run: count("a")},
		{Name: "b", Run: count("b")},
		{Name: "c", NeedsAnyOf: needs("a", "b"), Run: count("c")},
		{Name: "d", Needs: needs("a", "b", "c"), Run: count("d")},
	})
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, 1, calls[name], name)
	}
}

func TestExecute_Events(t *testing.T) {
	h := &harness{}
	h.execute(t, Config{},
		Action{Name: "a", Run: h.fnStatus("a", domain.ActionStatusFailure)},
		Action{Name: "b", Deps: []string{"a"}, Run: h.fn("b")},
	)

	kinds := make([]EventKind, 0, len(h.events))
	for _, e := range h.events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{
		EventNodeStarted,
		EventNodeFinished,
		EventNodeSkipped,
		EventWorkflowFinalized,
	}, kinds)
	assert.Equal(t, domain.ActionStatusFailure, h.events[1].Status)
}

func TestReporter_IgnoresCallsAfterSeal(t *testing.T) {
	rec := newRecorder()
	rec.SetStatus(domain.ActionStatusCancelled)

	status, wf := rec.seal()
	assert.Equal(t, domain.ActionStatusCancelled, status)
	assert.Nil(t, wf)

	rec.SetStatus(domain.ActionStatusFailure)
	rec.SetWorkflowStatus(domain.WorkflowStatusFailure)
	status, wf = rec.seal()
	assert.Equal(t, domain.ActionStatusCancelled, status)
	assert.Nil(t, wf)
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile([]Action{{Name: "a", Deps: []string{"ghost"}}})
	require.ErrorIs(t, err, engine.ErrUnknownDependency)

	_, err = Compile([]Action{
		{Name: "a", NeedsAnyOf: needs("b")},
		{Name: "b", Needs: needs("a")},
	})
	var cycleErr *engine.CycleError
	require.ErrorAs(t, err, &cycleErr)

	_, err = New(Config{}).Execute(context.Background(), nil)
	require.ErrorIs(t, err, ErrNilPipeline)
}

func TestExecute_LongChainSettles(t *testing.T) {
	const n = 5000
	h := &harness{}
	actions := make([]Action, n)
	for i := range actions {
		actions[i] = Action{Name: fmt.Sprintf("n%04d", i), Run: h.fn(fmt.Sprintf("n%04d", i))}
		if i > 0 {
			actions[i].Deps = []string{actions[i-1].Name}
		}
	}
	actions = append(actions, Action{Name: "report", NeedsWorkflow: workflow(domain.WorkflowStatusSuccess), Run: h.fn("report")})

	res := h.execute(t, Config{}, actions...)

	assert.Len(t, h.ran, n+1)
	assert.True(t, res.WorkflowFinalized)
	assert.Equal(t, "report", h.started[len(h.started)-1])
	assert.Equal(t, fmt.Sprintf("n%04d", n-1), h.started[n-1])
}

func TestRunState_TracksOpenNodes(t *testing.T) {
	p, err := Compile([]Action{
		{Name: "build"},
		{Name: "test", Deps: []string{"build"}},
		{Name: "notify", NeedsWorkflow: workflow(domain.WorkflowStatusAny)},
	})
	require.NoError(t, err)

	s := newRunState(uuid.New(), p)
	assert.Equal(t, 2, s.outsideOpen)
	assert.Len(t, s.pending, 3)

	build, _ := p.graph.Index("build")
	test, _ := p.graph.Index("test")
	notify, _ := p.graph.Index("notify")

	s.state.Finished[build] = engine.Outcome{Status: domain.ActionStatusSuccess}
	s.terminated(build)
	s.state.Running.Add(test)
	s.compact()
	assert.Equal(t, []int{notify}, s.pending)
	assert.False(t, s.outsideScopeTerminal())

	s.state.Running.Remove(test)
	s.state.ConditionFailed.Add(test)
	s.terminated(test)
	assert.True(t, s.outsideScopeTerminal())
}
