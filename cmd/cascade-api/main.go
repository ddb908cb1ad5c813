// Cascade API — HTTP API и встроенный worker.
//
// API:
//   - Принимает pipelines на выполнение (POST /api/v1/runs)
//   - Выполняет их во встроенном worker
//   - Отдаёт историю runs и итоги узлов
//
// Без DB_URL история хранится в памяти процесса. С RABBITMQ_URL
// события узлов и итоги runs публикуются в cascade.events.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Cascade/internal/api"
	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/pipeline"
	"github.com/shaiso/Cascade/internal/service"
	"github.com/shaiso/Cascade/internal/telemetry"
	"github.com/shaiso/Cascade/internal/worker"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting cascade-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("cascade-api failed", "error", err)
		cancel()
		os.Exit(1)
	}
	logger.Info("cascade-api stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	store, err := service.OpenStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := worker.Config{
		Store:         store.RunStore,
		MaxConcurrent: service.EnvInt(logger, "WORKER_CONCURRENCY", 0),
		Logger:        logger,
	}

	// Брокер здесь не обязателен: без него события просто не уходят
	if os.Getenv("RABBITMQ_URL") != "" {
		conn, err := service.ConnectBroker(ctx, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, events are not published", "error", err)
		} else {
			defer conn.Close()
			publisher := mq.NewPublisher(conn, logger)
			cfg.Events = mq.NewEventSink(publisher, logger)
			cfg.Publisher = publisher
			logger.Info("RabbitMQ connected")
		}
	}

	catalog, err := loadCatalog(logger, os.Getenv("PIPELINES_DIR"))
	if err != nil {
		return err
	}

	w := worker.New(cfg)
	// Runs, принятые до остановки, доводятся до конца
	defer w.Stop()

	mux := service.OpsMux(nil)
	api.NewHandler(api.Config{Worker: w, Catalog: catalog, Logger: logger}).RegisterRoutes(mux)

	return service.Serve(ctx, logger, service.Addr("API_PORT", "8080"), mux)
}

func loadCatalog(logger *slog.Logger, dir string) ([]*domain.PipelineSpec, error) {
	if dir == "" {
		return nil, nil
	}
	specs, err := pipeline.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("pipelines loaded", "dir", dir, "count", len(specs))
	return specs, nil
}
