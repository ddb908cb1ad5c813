package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/engine"
	"github.com/shaiso/Cascade/internal/telemetry"
)

// completion — сообщение runner'а координатору.
type completion struct {
	node            int
	phase           Phase
	value           any
	err             error
	status          domain.ActionStatus
	workflow        *domain.WorkflowStatus
	conditionFailed bool
	startedAt       time.Time
	finishedAt      time.Time
}

// coordinator — единственный писатель runState.
type coordinator struct {
	o           *Orchestrator
	s           *runState
	logger      *slog.Logger
	completions chan completion
}

// settle крутит цикл тиков до терминального состояния всех узлов.
func (c *coordinator) settle(ctx context.Context) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return c.s.result(), err
		}

		c.tick(ctx)

		if c.s.allTerminal() {
			return c.s.result(), nil
		}
		if c.s.inFlight == 0 {
			return c.s.result(), ErrStalled
		}

		select {
		case <-ctx.Done():
			return c.s.result(), ctx.Err()
		case done := <-c.completions:
			if err := c.complete(ctx, done); err != nil {
				return c.s.result(), err
			}
		}
	}
}

// tick повторяет проходы резолвера, пока они что-то меняют.
// Узлы обходятся в топологическом порядке, поэтому каскад
// пропусков обычно сворачивается за один проход.
func (c *coordinator) tick(ctx context.Context) {
	g := c.s.pipeline.graph
	for {
		changed := false

		for _, node := range c.s.pending {
			if !c.s.unresolved(node) {
				continue
			}

			switch engine.Resolve(g, node, c.s.state, c.o.conditionPolicy) {
			case domain.NodeSkipped:
				c.skip(ctx, node)
				changed = true
			case domain.NodeReady:
				c.launch(ctx, node)
				changed = true
			}
		}
		if changed {
			c.s.compact()
		}

		if c.finalize(ctx) {
			changed = true
		}

		if !changed {
			return
		}
	}
}

// skip записывает каскадный пропуск узла.
func (c *coordinator) skip(ctx context.Context, node int) {
	now := time.Now()
	c.s.state.Finished[node] = engine.Outcome{Status: domain.ActionStatusSkipped}
	c.s.finishedAt[node] = now
	c.s.terminated(node)

	name := c.s.pipeline.graph.Name(node)
	c.logger.Debug("action skipped", "action", name)
	telemetry.NodesTotal.WithLabelValues(string(domain.ActionStatusSkipped)).Inc()
	c.emit(ctx, Event{Kind: EventNodeSkipped, Action: name, Status: domain.ActionStatusSkipped, At: now})
}

// launch помечает узел выполняющимся и запускает его горутину.
func (c *coordinator) launch(ctx context.Context, node int) {
	action := c.s.pipeline.actions[node]
	inputs := c.s.inputs(node)
	started := time.Now()

	c.s.state.Running.Add(node)
	c.s.startedAt[node] = started
	c.s.inFlight++
	telemetry.NodesRunning.Inc()

	c.logger.Debug("action started", "action", action.Name, "type", action.Type)
	c.emit(ctx, Event{Kind: EventNodeStarted, Action: action.Name, At: started})

	go c.execute(ctx, node, action, inputs, started)
}

// execute выполняет guard и runner узла в отдельной горутине.
func (c *coordinator) execute(ctx context.Context, node int, action Action, inputs map[string]any, started time.Time) {
	done := completion{node: node, phase: PhaseGuard, startedAt: started}
	defer func() {
		if r := recover(); r != nil {
			done.err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
		done.finishedAt = time.Now()
		c.completions <- done
	}()

	if action.If != nil {
		ok, err := action.If(ctx, inputs)
		if err != nil {
			done.err = err
			return
		}
		if !ok {
			done.conditionFailed = true
			return
		}
	}

	done.phase = PhaseRunner
	done.status = domain.ActionStatusSuccess
	if action.Run == nil {
		return
	}

	rec := newRecorder()
	value, err := action.Run(ctx, inputs, rec)
	done.status, done.workflow = rec.seal()
	done.value, done.err = value, err
}

// complete применяет сообщение runner'а к состоянию.
func (c *coordinator) complete(ctx context.Context, done completion) error {
	s := c.s
	node := done.node
	action := s.pipeline.actions[node]

	s.state.Running.Remove(node)
	s.inFlight--
	s.finishedAt[node] = done.finishedAt
	telemetry.NodesRunning.Dec()
	telemetry.NodeDuration.WithLabelValues(stepType(action.Type)).
		Observe(done.finishedAt.Sub(done.startedAt).Seconds())

	if done.err != nil {
		return &ActionError{Action: action.Name, Phase: done.phase, Err: done.err}
	}

	if done.conditionFailed {
		s.state.ConditionFailed.Add(node)
		s.terminated(node)
		c.logger.Debug("action condition failed", "action", action.Name)
		telemetry.NodesTotal.WithLabelValues(string(domain.NodeStateConditionFailed)).Inc()
		c.emit(ctx, Event{Kind: EventNodeConditionFailed, Action: action.Name, At: done.finishedAt})
		return nil
	}

	if !done.status.IsOutcome() {
		return &ActionError{
			Action: action.Name,
			Phase:  PhaseRunner,
			Err:    fmt.Errorf("%w: %q", ErrInvalidActionStatus, done.status),
		}
	}

	if done.workflow != nil {
		if err := c.reportWorkflow(node, *done.workflow); err != nil {
			return err
		}
	}

	s.state.Finished[node] = engine.Outcome{Status: done.status, Value: done.value}
	s.terminated(node)

	c.logger.Debug("action finished",
		"action", action.Name,
		"status", done.status,
		"duration", done.finishedAt.Sub(done.startedAt),
	)
	telemetry.NodesTotal.WithLabelValues(string(done.status)).Inc()
	c.emit(ctx, Event{Kind: EventNodeFinished, Action: action.Name, Status: done.status, At: done.finishedAt})

	return nil
}

// reportWorkflow применяет сообщённый runner'ом статус workflow.
func (c *coordinator) reportWorkflow(node int, status domain.WorkflowStatus) error {
	name := c.s.pipeline.graph.Name(node)

	if !status.IsOutcome() {
		return &ActionError{
			Action: name,
			Phase:  PhaseRunner,
			Err:    fmt.Errorf("%w: workflow status %q", ErrInvalidActionStatus, status),
		}
	}

	if c.s.pipeline.scope.Has(node) {
		if c.o.workflowReports == WorkflowReportReject {
			return &ActionError{Action: name, Phase: PhaseRunner, Err: ErrWorkflowReportInScope}
		}
		c.logger.Warn("workflow status report ignored",
			"action", name,
			"status", status,
		)
		telemetry.WorkflowReportsIgnored.Inc()
		return nil
	}

	c.s.pendingWorkflow = status
	return nil
}

// finalize финализирует workflow, когда все узлы вне scope терминальны.
func (c *coordinator) finalize(ctx context.Context) bool {
	s := c.s
	if s.state.Workflow.Finalized || !s.outsideScopeTerminal() {
		return false
	}

	s.state.Workflow = engine.WorkflowState{Finalized: true, Status: s.pendingWorkflow}

	c.logger.Debug("workflow finalized", "status", s.pendingWorkflow)
	telemetry.WorkflowFinalized.WithLabelValues(string(s.pendingWorkflow)).Inc()
	c.emit(ctx, Event{Kind: EventWorkflowFinalized, WorkflowStatus: s.pendingWorkflow, At: time.Now()})

	return true
}

func (c *coordinator) emit(ctx context.Context, e Event) {
	e.RunID = c.s.runID
	e.Pipeline = c.s.pipeline.Name
	c.o.events.Emit(ctx, e)
}

func stepType(t string) string {
	if t == "" {
		return "custom"
	}
	return t
}
