// Cascade Worker — выполняет runs из очереди.
//
// Worker:
//   - Получает запросы run.requested из RabbitMQ
//   - Выполняет pipeline целиком
//   - Сохраняет историю runs (PostgreSQL или память)
//   - Публикует события узлов и итоги runs в cascade.events
//
// Workers масштабируются горизонтально: повторы отсеиваются
// по ключу идемпотентности.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/service"
	"github.com/shaiso/Cascade/internal/telemetry"
	"github.com/shaiso/Cascade/internal/worker"
)

var errBrokerDown = errors.New("broker disconnected")

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting cascade-worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("cascade-worker failed", "error", err)
		cancel()
		os.Exit(1)
	}
	logger.Info("cascade-worker stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	store, err := service.OpenStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Брокер обязателен: из него приходят runs
	conn, err := service.ConnectBroker(ctx, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("RabbitMQ connected")

	publisher := mq.NewPublisher(conn, logger)
	w := worker.New(worker.Config{
		Store:         store.RunStore,
		Events:        mq.NewEventSink(publisher, logger),
		Publisher:     publisher,
		Conn:          conn,
		MaxConcurrent: service.EnvInt(logger, "WORKER_CONCURRENCY", 0),
		Logger:        logger,
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	ops := service.OpsMux(func() error {
		if !conn.IsConnected() {
			return errBrokerDown
		}
		return nil
	})
	return service.Serve(ctx, logger, service.Addr("WORKER_PORT", "8082"), ops)
}
