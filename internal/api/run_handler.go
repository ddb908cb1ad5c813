package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/worker"
)

// maxBodySize — предел размера тела запроса.
const maxBodySize = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?pipeline=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repo.RunFilter{
		Pipeline: query.Get("pipeline"),
		Status:   domain.RunStatus(query.Get("status")),
	}

	var err error
	if filter.Limit, err = intParam(query.Get("limit"), repo.DefaultListLimit); err != nil {
		BadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(query.Get("offset"), 0); err != nil {
		BadRequest(w, "invalid offset")
		return
	}

	runs, err := h.store.List(r.Context(), filter)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// CreateRun создаёт run и запускает его в фоне.
// POST /api/v1/runs
//
// Повторный запрос с тем же idempotency_key возвращает существующий run (200).
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil {
		Unavailable(w, "runs are not accepted by this instance")
		return
	}

	var req CreateRunRequest
	if err := decodeBody(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if req.Pipeline == nil {
		BadRequest(w, "pipeline is required")
		return
	}

	h.submit(w, r, worker.RunRequest{
		Pipeline:       req.Pipeline,
		Params:         req.Params,
		Trigger:        domain.TriggerAPI,
		IdempotencyKey: req.IdempotencyKey,
	})
}

// submit запускает run и пишет ответ: 202 для нового run,
// 200 для повтора по idempotency_key.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, req worker.RunRequest) {
	run, err := h.worker.Submit(r.Context(), req)
	if errors.Is(err, worker.ErrDuplicateRun) {
		Success(w, RunFromDomain(*run))
		return
	}
	if HandleRunError(w, h.log(r), err) {
		return
	}

	Accepted(w, RunFromDomain(*run))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.store.GetByID(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunNodes возвращает итоги узлов run.
// GET /api/v1/runs/{id}/nodes
func (h *Handler) ListRunNodes(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	// Проверяем, что run существует
	_, err = h.store.GetByID(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "run not found") {
		return
	}

	nodes, err := h.store.ListNodes(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	result := make([]NodeResponse, len(nodes))
	for i, n := range nodes {
		result[i] = NodeFromDomain(n)
	}

	List(w, result, len(result))
}

// decodeBody декодирует тело запроса (JSON или YAML) в v.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return errEmptyBody
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// intParam парсит неотрицательный query параметр.
func intParam(s string, defaultVal int) (int, error) {
	if s == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}
