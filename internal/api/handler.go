package api

import (
	"log/slog"
	"net/http"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/steps"
	"github.com/shaiso/Cascade/internal/telemetry"
	"github.com/shaiso/Cascade/internal/worker"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	worker   *worker.Worker
	store    repo.RunStore
	registry *steps.Registry
	catalog  map[string]*domain.PipelineSpec
	names    []string
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Worker выполняет runs, созданные через POST /api/v1/runs.
	Worker *worker.Worker

	// Store — история runs. По умолчанию Worker.Store().
	Store repo.RunStore

	// Registry — типы шагов для валидации. По умолчанию Worker.Registry().
	Registry *steps.Registry

	// Catalog — pipelines, доступные по имени (обычно pipeline.LoadDir).
	Catalog []*domain.PipelineSpec

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		worker:   cfg.Worker,
		store:    cfg.Store,
		registry: cfg.Registry,
		catalog:  make(map[string]*domain.PipelineSpec, len(cfg.Catalog)),
		logger:   cfg.Logger,
	}
	for _, spec := range cfg.Catalog {
		if _, exists := h.catalog[spec.Name]; !exists {
			h.names = append(h.names, spec.Name)
		}
		h.catalog[spec.Name] = spec
	}
	if h.store == nil && h.worker != nil {
		h.store = h.worker.Store()
	}
	if h.registry == nil {
		if h.worker != nil {
			h.registry = h.worker.Registry()
		} else {
			h.registry = steps.DefaultRegistry()
		}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// log — логгер запроса с request_id, если он прошёл через Logging.
func (h *Handler) log(r *http.Request) *slog.Logger {
	return telemetry.LoggerFrom(r.Context(), h.logger)
}
