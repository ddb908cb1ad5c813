package api

import (
	"errors"
	"net/http"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/pipeline"
	"github.com/shaiso/Cascade/internal/worker"
)

// ListPipelines возвращает pipelines каталога.
// GET /api/v1/pipelines
func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	result := make([]PipelineResponse, len(h.names))
	for i, name := range h.names {
		result[i] = PipelineFromDomain(h.catalog[name])
	}
	List(w, result, len(result))
}

// RunPipeline запускает pipeline из каталога по имени.
// POST /api/v1/pipelines/{name}/runs
//
// Тело необязательно: {params, idempotency_key}.
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil {
		Unavailable(w, "runs are not accepted by this instance")
		return
	}

	spec, ok := h.catalog[r.PathValue("name")]
	if !ok {
		NotFound(w, "pipeline not found")
		return
	}

	var req RunPipelineRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		BadRequest(w, err.Error())
		return
	}

	h.submit(w, r, worker.RunRequest{
		Pipeline:       spec,
		Params:         req.Params,
		Trigger:        domain.TriggerAPI,
		IdempotencyKey: req.IdempotencyKey,
	})
}

// ValidatePipeline валидирует pipeline и возвращает план выполнения.
// POST /api/v1/pipelines/validate
//
// Тело — PipelineSpec в JSON или YAML. Типы шагов проверяются
// по реестру Handler'а.
func (h *Handler) ValidatePipeline(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxBodySize {
		BadRequest(w, "request body is too large")
		return
	}

	spec, err := readPipeline(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	plan, err := pipeline.PlanWith(spec, h.registry)
	if err != nil {
		InvalidPipeline(w, err)
		return
	}

	Success(w, plan)
}

func readPipeline(r *http.Request) (*domain.PipelineSpec, error) {
	var spec domain.PipelineSpec
	if err := decodeBody(r, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}
