package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/pipeline"
)

// RunResponse и NodeResponse повторяют JSON cascade-api. Время
// оставлено строками: CLI только печатает его.
type RunResponse struct {
	ID             string         `json:"id"`
	Pipeline       string         `json:"pipeline"`
	Status         string         `json:"status"`
	WorkflowStatus string         `json:"workflow_status,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	Trigger        string         `json:"trigger,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	StartedAt      string         `json:"started_at,omitempty"`
	FinishedAt     string         `json:"finished_at,omitempty"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

type NodeResponse struct {
	Action     string `json:"action"`
	Type       string `json:"type,omitempty"`
	State      string `json:"state"`
	Status     string `json:"status,omitempty"`
	Output     any    `json:"output,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

type CreateRunRequest struct {
	Pipeline       *domain.PipelineSpec `json:"pipeline"`
	Params         map[string]any       `json:"params,omitempty"`
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
}

type ListRunsOpts struct {
	Pipeline string
	Status   string
	Limit    int
	Offset   int
}

func (o ListRunsOpts) query() url.Values {
	q := url.Values{}
	for key, v := range map[string]string{"pipeline": o.Pipeline, "status": o.Status} {
		if v != "" {
			q.Set(key, v)
		}
	}
	for key, v := range map[string]int{"limit": o.Limit, "offset": o.Offset} {
		if v > 0 {
			q.Set(key, strconv.Itoa(v))
		}
	}
	return q
}

// APIError — ответ {"error": {...}} с HTTP статусом.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code + ": " + e.Message }

// Client вызывает cascade-api.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) ListRuns(ctx context.Context, opts ListRunsOpts) ([]RunResponse, error) {
	path := "/api/v1/runs"
	if q := opts.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	return call[[]RunResponse](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) CreateRun(ctx context.Context, req CreateRunRequest) (*RunResponse, error) {
	run, err := call[RunResponse](ctx, c, http.MethodPost, "/api/v1/runs", req)
	return &run, err
}

func (c *Client) GetRun(ctx context.Context, id string) (*RunResponse, error) {
	run, err := call[RunResponse](ctx, c, http.MethodGet, "/api/v1/runs/"+url.PathEscape(id), nil)
	return &run, err
}

func (c *Client) ListNodes(ctx context.Context, runID string) ([]NodeResponse, error) {
	return call[[]NodeResponse](ctx, c, http.MethodGet, "/api/v1/runs/"+url.PathEscape(runID)+"/nodes", nil)
}

// ValidatePipeline проверяет pipeline на сервере (его реестр шагов
// может отличаться от локального) и возвращает план.
func (c *Client) ValidatePipeline(ctx context.Context, spec *domain.PipelineSpec) (*pipeline.ExecutionPlan, error) {
	plan, err := call[pipeline.ExecutionPlan](ctx, c, http.MethodPost, "/api/v1/pipelines/validate", spec)
	return &plan, err
}

// call отправляет body как JSON и достаёт data из {"data": ...}.
func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var envelope struct {
		Data  T         `json:"data"`
		Error *APIError `json:"error"`
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return envelope.Data, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return envelope.Data, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope.Data, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return envelope.Data, &APIError{Status: resp.StatusCode, Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: resp.Status}
		}
		return envelope.Data, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if envelope.Error == nil {
			envelope.Error = &APIError{Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: resp.Status}
		}
		envelope.Error.Status = resp.StatusCode
		return envelope.Data, envelope.Error
	}
	return envelope.Data, nil
}
