// Package service — общая обвязка процессов cascade-api, cascade-worker
// и cascade-scheduler: переменные окружения, хранилище, брокер и
// служебный HTTP (/healthz, /metrics).
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/repo"
)

func Env(key, fallback string) string {
	return cmp.Or(os.Getenv(key), fallback)
}

// EnvInt — целое из окружения. Нечисловое значение даёт fallback
// и предупреждение в лог.
func EnvInt(logger *slog.Logger, key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("invalid integer in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return n
}

// Addr превращает порт из окружения в адрес для net/http.
func Addr(key, port string) string {
	return ":" + Env(key, port)
}

// Store — история runs процесса. Pool nil, если DB_URL не задан и
// история живёт в памяти.
type Store struct {
	repo.RunStore
	Pool *pgxpool.Pool
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenStore подключается к Postgres по DB_URL и создаёт схему.
// Без DB_URL возвращает хранилище в памяти.
func OpenStore(ctx context.Context, logger *slog.Logger) (*Store, error) {
	if os.Getenv("DB_URL") == "" {
		logger.Warn("DB_URL is not set, run history is kept in memory")
		return &Store{RunStore: repo.NewMemoryRunRepo()}, nil
	}

	pool, err := repo.NewPool(ctx)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("database connected")
	return &Store{RunStore: repo.NewRunRepo(pool), Pool: pool}, nil
}

// ConnectBroker подключается к RabbitMQ и объявляет топологию.
func ConnectBroker(ctx context.Context, logger *slog.Logger) (*mq.Connection, error) {
	conn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		return nil, err
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("setup topology: %w", err)
	}
	logger.Debug("amqp topology declared", "layout", mq.TopologyInfo())
	return conn, nil
}

// OpsMux — mux со /metrics и /healthz. healthy == nil значит "всегда
// здоров", ошибка healthy отдаётся как 503.
func OpsMux(healthy func() error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if healthy != nil {
			if err := healthy(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

const shutdownTimeout = 10 * time.Second

// Serve обслуживает handler на addr до отмены ctx, затем даёт
// активным запросам shutdownTimeout на завершение.
func Serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	failed := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", addr, err)
	}
	return nil
}
