package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/orchestrator"
	"github.com/shaiso/Cascade/internal/pipeline"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/telemetry"
)

// RunRequest — запрос на выполнение pipeline.
type RunRequest struct {
	Pipeline *domain.PipelineSpec
	Params   map[string]any
	Trigger  domain.Trigger

	// IdempotencyKey — повторный запрос с тем же ключом не создаёт run.
	IdempotencyKey string
}

// Execute создаёт run, выполняет pipeline и сохраняет итоги.
//
// Ошибки:
//   - ErrDuplicateRun — run с таким ключом уже есть, возвращается он
//   - ErrInvalidPipeline — run сохранён в FAILED, выполнения не было
//   - ошибка orchestrator'а — run сохранён в FAILED с частичными итогами
//   - ошибка хранилища
func (w *Worker) Execute(ctx context.Context, req RunRequest) (*domain.Run, error) {
	run, p, err := w.prepare(ctx, req)
	if err != nil {
		return run, err
	}
	return run, w.execute(ctx, run, p)
}

// Submit создаёт run и выполняет его в фоне.
// Возвращает run в статусе PENDING (или FAILED для невалидного pipeline).
func (w *Worker) Submit(ctx context.Context, req RunRequest) (*domain.Run, error) {
	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return nil, ErrWorkerStopped
	}
	w.wg.Add(1)
	w.mu.RUnlock()

	run, p, err := w.prepare(ctx, req)
	if err != nil {
		w.wg.Done()
		return run, err
	}

	snapshot := *run
	go func() {
		defer w.wg.Done()

		w.slots <- struct{}{}
		defer func() { <-w.slots }()

		_ = w.execute(w.runCtx, run, p)
	}()

	return &snapshot, nil
}

// prepare проверяет идемпотентность, создаёт run и компилирует pipeline.
func (w *Worker) prepare(ctx context.Context, req RunRequest) (*domain.Run, *orchestrator.Pipeline, error) {
	if req.IdempotencyKey != "" {
		existing, err := w.store.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			return existing, nil, ErrDuplicateRun
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, nil, fmt.Errorf("check idempotency: %w", err)
		}
	}

	name := ""
	if req.Pipeline != nil {
		name = req.Pipeline.Name
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = domain.TriggerManual
	}

	run := domain.NewRun(name, req.Params, trigger)
	run.IdempotencyKey = req.IdempotencyKey

	if err := w.store.Create(ctx, run); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			if existing, getErr := w.store.GetByIdempotencyKey(ctx, req.IdempotencyKey); getErr == nil {
				return existing, nil, ErrDuplicateRun
			}
		}
		return nil, nil, fmt.Errorf("create run: %w", err)
	}

	var p *orchestrator.Pipeline
	err := ErrInvalidPipeline
	if req.Pipeline != nil {
		p, err = pipeline.Build(req.Pipeline, w.registry, req.Params)
	}
	if err != nil {
		if !errors.Is(err, ErrInvalidPipeline) {
			err = fmt.Errorf("%w: %w", ErrInvalidPipeline, err)
		}
		run.MarkFailed(err.Error())
		w.record(ctx, run, nil)
		return run, nil, err
	}

	return run, p, nil
}

// execute выполняет скомпилированный pipeline для созданного run.
func (w *Worker) execute(ctx context.Context, run *domain.Run, p *orchestrator.Pipeline) error {
	logger := telemetry.WithPipeline(telemetry.WithRunID(w.logger, run.ID.String()), run.Pipeline)

	run.MarkRunning()
	if err := w.store.Update(ctx, run); err != nil {
		logger.Warn("failed to mark run running", "error", err)
	}
	logger.Info("run started", "trigger", run.Trigger)

	res, err := w.orchestrator.Execute(ctx, p, orchestrator.WithRunID(run.ID))
	if err != nil {
		run.MarkFailed(err.Error())
		logger.Warn("run failed", "error", err, "duration", run.Duration())
	} else {
		run.MarkSucceeded(res.WorkflowStatus)
		logger.Info("run settled",
			"workflow_status", res.WorkflowStatus,
			"duration", run.Duration(),
		)
	}

	w.record(ctx, run, res)
	return err
}

// record сохраняет итог run, учитывает метрики и публикует run.settled.
// Итог сохраняется и после отмены ctx.
func (w *Worker) record(ctx context.Context, run *domain.Run, res *orchestrator.Result) {
	ctx = context.WithoutCancel(ctx)
	logger := telemetry.WithRunID(w.logger, run.ID.String())

	if err := w.store.Update(ctx, run); err != nil {
		logger.Error("failed to store run", "error", err)
	}
	if res != nil {
		if err := w.store.SaveNodes(ctx, run.ID, nodeResults(run.ID, res)); err != nil {
			logger.Error("failed to store run nodes", "error", err)
		}
	}

	telemetry.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	if d := run.Duration(); d > 0 {
		telemetry.RunDuration.Observe(d.Seconds())
	}

	if w.publisher != nil {
		if err := w.publisher.PublishRunSettled(ctx, run); err != nil {
			logger.Warn("failed to publish run.settled", "error", err)
		}
	}
}

// handleRunRequested обрабатывает сообщение из runs.requested.
func (w *Worker) handleRunRequested(ctx context.Context, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.RunRequestedPayload](msg)
	if err != nil {
		return mq.Permanent(err)
	}

	trigger := payload.Trigger
	if trigger == "" {
		trigger = domain.TriggerQueue
	}

	w.slots <- struct{}{}
	defer func() { <-w.slots }()

	// Остановка consumer'а не прерывает уже начатый run
	run, err := w.Execute(w.runCtx, RunRequest{
		Pipeline:       payload.Pipeline,
		Params:         payload.Params,
		Trigger:        trigger,
		IdempotencyKey: payload.IdempotencyKey,
	})

	switch {
	case errors.Is(err, ErrDuplicateRun):
		w.logger.Info("duplicate run request", "message_id", msg.ID, "run_id", run.ID)
		return nil
	case errors.Is(err, ErrInvalidPipeline):
		return mq.Permanent(err)
	case run != nil && run.IsFinished():
		// Ошибка выполнения уже записана в run, повтор не нужен
		return nil
	default:
		return err
	}
}

// nodeResults переводит итоги orchestrator'а в записи истории.
func nodeResults(runID uuid.UUID, res *orchestrator.Result) []domain.NodeResult {
	nodes := make([]domain.NodeResult, len(res.Nodes))
	for i, n := range res.Nodes {
		nodes[i] = domain.NodeResult{
			RunID:      runID,
			Action:     n.Action,
			Type:       n.Type,
			State:      n.State,
			Status:     n.Status,
			Output:     n.Value,
			StartedAt:  timePtr(n.StartedAt),
			FinishedAt: timePtr(n.FinishedAt),
		}
	}
	return nodes
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
