package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/telemetry"
)

// Ошибки регистрации расписаний.
var (
	ErrEmptyScheduleName = errors.New("schedule has empty name")
	ErrDuplicateSchedule = errors.New("duplicate schedule name")
	ErrNoPipeline        = errors.New("schedule has no pipeline")
)

// defaultInterval — период тиков Run по умолчанию.
const defaultInterval = time.Second

// Leader решает, выполняет ли этот экземпляр тики.
// repo.LeaderLock реализует Leader через pg_try_advisory_lock.
type Leader interface {
	TryAcquire(ctx context.Context) (bool, error)
}

// Scheduler — планировщик, запускающий pipelines по расписаниям.
//
// Состояние расписаний (NextDueAt, LastRun*) живёт в памяти.
// Повторная отправка одного и того же срока отсеивается ключом
// идемпотентности "{schedule}_{due_unix}".
type Scheduler struct {
	submitter Submitter
	leader    Leader
	logger    *slog.Logger
	interval  time.Duration

	mu      sync.Mutex
	entries []*Entry
	names   map[string]bool
}

// Config — конфигурация Scheduler.
type Config struct {
	Submitter Submitter

	// Leader — если задан, Run выполняет тики только при лидерстве.
	Leader Leader

	// Interval — период тиков Run (default: 1s).
	Interval time.Duration

	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Scheduler{
		submitter: cfg.Submitter,
		leader:    cfg.Leader,
		logger:    logger,
		interval:  interval,
		names:     make(map[string]bool),
	}
}

// Add регистрирует расписание и вычисляет первый срок от now.
func (s *Scheduler) Add(sched domain.Schedule, spec *domain.PipelineSpec, now time.Time) error {
	if sched.Name == "" {
		return ErrEmptyScheduleName
	}
	if spec == nil {
		return fmt.Errorf("schedule %q: %w", sched.Name, ErrNoPipeline)
	}
	if sched.IsCron() {
		if err := ValidateCronExpr(sched.CronExpr); err != nil {
			return fmt.Errorf("schedule %q: %w", sched.Name, err)
		}
	}

	nextDue, err := CalculateNextDue(&sched, now)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", sched.Name, err)
	}
	sched.NextDueAt = &nextDue

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.names[sched.Name] {
		return fmt.Errorf("%w: %s", ErrDuplicateSchedule, sched.Name)
	}
	s.names[sched.Name] = true

	s.entries = append(s.entries, &Entry{Schedule: sched, Spec: spec})
	sort.Slice(s.entries, func(i, j int) bool {
		return s.entries[i].Schedule.Name < s.entries[j].Schedule.Name
	})

	s.logger.Info("schedule registered",
		"schedule", sched.Name,
		"pipeline", spec.Name,
		"next_due_at", nextDue,
		"disabled", sched.Disabled,
	)
	return nil
}

// Schedules возвращает копии расписаний, отсортированные по имени.
func (s *Scheduler) Schedules() []domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Schedule, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Schedule
	}
	return out
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due расписания (не disabled, next_due_at <= now)
// 2. Для каждого отправляет запуск через Submitter
// 3. Сдвигает next_due_at
//
// Ошибки одного расписания не блокируют обработку остальных:
// его срок не сдвигается, и отправка повторится на следующем тике.
// Возвращает количество отправленных запусков.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due, submitted int
	for _, entry := range s.entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.Schedule.IsDue(now) {
			continue
		}
		due++

		if s.process(ctx, entry, now) {
			submitted++
		}
	}

	if due > 0 {
		s.logger.Info("scheduler tick completed",
			"due", due,
			"submitted", submitted,
		)
	}
	return submitted
}

// process отправляет один due запуск.
// Возвращает true, если запуск принят.
func (s *Scheduler) process(ctx context.Context, entry *Entry, now time.Time) bool {
	sched := &entry.Schedule
	logger := s.logger.With("schedule", sched.Name)

	// Для одного расписания и конкретного срока создаётся только один run
	key := fmt.Sprintf("%s_%d", sched.Name, sched.NextDueAt.Unix())

	id, err := s.submitter.Submit(ctx, Request{
		Schedule:       sched.Name,
		Pipeline:       entry.Spec,
		Params:         sched.Params,
		IdempotencyKey: key,
	})
	if id == "" {
		telemetry.ScheduledRunsTotal.WithLabelValues("failed").Inc()
		logger.Error("failed to submit scheduled run", "idempotency_key", key, "error", err)
		return false
	}
	if err != nil {
		logger.Warn("scheduled run failed", "request", id, "error", err)
	}

	nextDue, calcErr := CalculateNextDue(sched, now)
	if calcErr != nil {
		// Триггер проверен в Add
		logger.Error("failed to calculate next due, disabling schedule", "error", calcErr)
		sched.Disabled = true
		nextDue = now
	}
	sched.RecordRun(id, now, nextDue)

	telemetry.ScheduledRunsTotal.WithLabelValues("submitted").Inc()
	logger.Info("scheduled run submitted",
		"request", id,
		"idempotency_key", key,
		"next_due_at", nextDue,
	)
	return true
}

// Run выполняет тики с периодом Interval до отмены ctx.
// Если задан Leader, тик пропускается, пока лидерство не получено.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !s.isLeader(ctx) {
				continue
			}
			s.Tick(ctx, now)
		}
	}
}

func (s *Scheduler) isLeader(ctx context.Context) bool {
	if s.leader == nil {
		return true
	}
	ok, err := s.leader.TryAcquire(ctx)
	if err != nil {
		s.logger.Warn("leader lock failed", "error", err)
		return false
	}
	return ok
}
