package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/engine"
	"github.com/shaiso/Cascade/internal/telemetry"
)

// WorkflowReportPolicy определяет реакцию на SetWorkflowStatus
// от узла внутри workflow-scope. Такой узел завершается уже после
// финализации, поэтому его сообщение не может повлиять на итог.
type WorkflowReportPolicy int

const (
	// WorkflowReportIgnore — сообщение отбрасывается с предупреждением.
	WorkflowReportIgnore WorkflowReportPolicy = iota

	// WorkflowReportReject — выполнение прерывается с ErrWorkflowReportInScope.
	WorkflowReportReject
)

// Orchestrator выполняет скомпилированные pipelines.
//
// Orchestrator не хранит состояние между вызовами Execute и может
// использоваться конкурентно: каждое выполнение получает свою
// горутину-координатор.
type Orchestrator struct {
	logger          *slog.Logger
	events          EventSink
	conditionPolicy engine.ConditionPolicy
	workflowReports WorkflowReportPolicy
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Logger — по умолчанию slog.Default().
	Logger *slog.Logger

	// Events — получатель событий выполнения, может быть nil.
	Events EventSink

	// ConditionPolicy — как потомки видят узел с ложным guard.
	ConditionPolicy engine.ConditionPolicy

	// WorkflowReports — реакция на сообщения о workflow из workflow-scope.
	WorkflowReports WorkflowReportPolicy
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var events EventSink = nopSink{}
	if cfg.Events != nil {
		events = cfg.Events
	}

	return &Orchestrator{
		logger:          logger,
		events:          events,
		conditionPolicy: cfg.ConditionPolicy,
		workflowReports: cfg.WorkflowReports,
	}
}

// ExecuteOption — опция одного выполнения.
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	runID uuid.UUID
}

// WithRunID задаёт ID выполнения для логов и событий.
// По умолчанию генерируется новый.
func WithRunID(id uuid.UUID) ExecuteOption {
	return func(o *executeOptions) {
		o.runID = id
	}
}

// Execute выполняет pipeline до терминального состояния всех узлов.
//
// Ошибки runner'а, guard'а, паника или отмена ctx прерывают выполнение:
// возвращается снимок Result на момент прерывания и ошибка
// (*ActionError или ctx.Err()). Уже запущенные runners не отменяются,
// их поздние результаты отбрасываются.
func (o *Orchestrator) Execute(ctx context.Context, p *Pipeline, opts ...ExecuteOption) (*Result, error) {
	if p == nil {
		return nil, ErrNilPipeline
	}

	options := executeOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.runID == uuid.Nil {
		options.runID = uuid.New()
	}

	s := newRunState(options.runID, p)
	logger := telemetry.WithPipeline(telemetry.WithRunID(o.logger, s.runID.String()), p.Name)

	c := &coordinator{
		o:      o,
		s:      s,
		logger: logger,
		// Каждый узел отправляет не больше одного сообщения,
		// поэтому runners никогда не блокируются на отправке.
		completions: make(chan completion, p.graph.Size()),
	}

	logger.Debug("settlement started", "actions", p.graph.Size())
	start := time.Now()

	res, err := c.settle(ctx)
	if err != nil {
		logger.Warn("settlement aborted", "error", err, "duration", time.Since(start))
		return res, err
	}

	logger.Debug("settlement finished",
		"workflow_status", res.WorkflowStatus,
		"duration", time.Since(start),
	)
	return res, nil
}

// Run компилирует и выполняет actions с конфигурацией по умолчанию.
func Run(ctx context.Context, actions []Action) (*Result, error) {
	p, err := Compile(actions)
	if err != nil {
		return nil, err
	}
	return New(Config{}).Execute(ctx, p)
}
