// Cascade Scheduler — запускает pipelines по расписаниям.
//
// Расписания читаются из SCHEDULES_FILE. Запуски публикуются в
// очередь runs.requested (RABBITMQ_URL) или, без брокера, выполняются
// во встроенном worker.
//
// С DB_URL тики выполняет только владелец pg_try_advisory_lock,
// остальные экземпляры ждут.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/scheduler"
	"github.com/shaiso/Cascade/internal/service"
	"github.com/shaiso/Cascade/internal/telemetry"
	"github.com/shaiso/Cascade/internal/worker"
)

const schedLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting cascade-scheduler")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("cascade-scheduler failed", "error", err)
		cancel()
		os.Exit(1)
	}
	logger.Info("cascade-scheduler stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	path := service.Env("SCHEDULES_FILE", "schedules.yaml")
	entries, err := scheduler.LoadFile(path)
	if err != nil {
		return err
	}

	cfg := scheduler.Config{Logger: logger}

	if os.Getenv("DB_URL") != "" {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		lock := repo.NewLeaderLock(pool, schedLockKey)
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to release leader lock", "error", err)
			}
		}()
		cfg.Leader = lock
		logger.Info("leader election enabled", "lock_key", schedLockKey)
	}

	if os.Getenv("RABBITMQ_URL") != "" {
		conn, err := service.ConnectBroker(ctx, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		cfg.Submitter = scheduler.QueueSubmitter(mq.NewPublisher(conn, logger))
		logger.Info("RabbitMQ connected, runs go to the queue")
	} else {
		w := worker.New(worker.Config{Logger: logger})
		defer w.Stop()
		cfg.Submitter = scheduler.WorkerSubmitter(w)
		logger.Warn("RABBITMQ_URL is not set, runs are executed in process")
	}

	sched := scheduler.New(cfg)
	now := time.Now()
	for _, e := range entries {
		if err := sched.Add(e.Schedule, e.Spec, now); err != nil {
			return err
		}
	}
	logger.Info("scheduler started", "path", path, "schedules", len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return service.Serve(gctx, logger, service.Addr("SCHED_PORT", "8081"), service.OpsMux(nil))
	})
	return g.Wait()
}
