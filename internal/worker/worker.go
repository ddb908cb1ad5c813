package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/orchestrator"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/steps"
)

// Default configuration values.
const (
	defaultMaxConcurrent = 4
	defaultPrefetch      = 4
)

// SettledPublisher — получатель итогов runs (обычно mq.Publisher).
type SettledPublisher interface {
	PublishRunSettled(ctx context.Context, run *domain.Run) error
}

// Worker выполняет pipelines целиком.
//
// Worker:
//   - Создаёт domain.Run и хранит его историю в RunStore
//   - Компилирует PipelineSpec через pipeline.Build
//   - Выполняет его через orchestrator.Orchestrator
//   - Публикует итог run (если задан Publisher)
//
// Запросы приходят напрямую (Execute/Submit) или из очереди
// runs.requested (Start).
type Worker struct {
	store        repo.RunStore
	registry     *steps.Registry
	orchestrator *orchestrator.Orchestrator
	publisher    SettledPublisher
	conn         *mq.Connection
	logger       *slog.Logger

	// Submit ограничивает число одновременных runs
	slots chan struct{}

	// Lifecycle
	runCtx    context.Context
	cancelRun context.CancelFunc
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	consumers sync.WaitGroup
	mu        sync.RWMutex
	stopped   bool
}

// Config — конфигурация Worker.
type Config struct {
	// Store — хранилище runs. По умолчанию repo.NewMemoryRunRepo().
	Store repo.RunStore

	// Registry — типы шагов. По умолчанию steps.DefaultRegistry().
	Registry *steps.Registry

	// Orchestrator — по умолчанию создаётся с Logger и Events.
	Orchestrator *orchestrator.Orchestrator

	// Events — получатель событий для orchestrator по умолчанию.
	Events orchestrator.EventSink

	// Publisher — получатель итогов runs, может быть nil.
	Publisher SettledPublisher

	// Conn — соединение с брокером, нужно только для Start.
	Conn *mq.Connection

	// MaxConcurrent — лимит одновременных runs для Submit и очереди.
	MaxConcurrent int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := cfg.Store
	if store == nil {
		store = repo.NewMemoryRunRepo()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = steps.DefaultRegistry()
	}

	orch := cfg.Orchestrator
	if orch == nil {
		orch = orchestrator.New(orchestrator.Config{Logger: logger, Events: cfg.Events})
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	// Runs переживают отмену контекста запроса и останавливаются
	// только через Stop.
	runCtx, cancelRun := context.WithCancel(context.Background())

	return &Worker{
		store:        store,
		registry:     registry,
		orchestrator: orch,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		logger:       logger,
		slots:        make(chan struct{}, maxConcurrent),
		runCtx:       runCtx,
		cancelRun:    cancelRun,
	}
}

// Store возвращает хранилище runs.
func (w *Worker) Store() repo.RunStore {
	return w.store
}

// Registry возвращает реестр типов шагов.
func (w *Worker) Registry() *steps.Registry {
	return w.registry
}

// Start запускает потребление очереди runs.requested.
func (w *Worker) Start(ctx context.Context) error {
	if w.conn == nil {
		return ErrNoConnection
	}
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    mq.QueueRunsRequested,
		Handler:  w.handleRunRequested,
		Prefetch: min(defaultPrefetch, cap(w.slots)),
	})

	w.consumers.Add(1)
	go func() {
		defer w.consumers.Done()
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("run consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started", "queue", mq.QueueRunsRequested, "max_concurrent", cap(w.slots))
	return nil
}

// Stop перестаёт принимать runs и ждёт выполняющиеся.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	cancel := w.cancel
	w.mu.Unlock()

	w.logger.Info("stopping worker...")

	if cancel != nil {
		cancel()
	}
	w.consumers.Wait()
	w.wg.Wait()
	w.cancelRun()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopped
}
