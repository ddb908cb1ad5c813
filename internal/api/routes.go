package api

import "net/http"

// RegisterRoutes вешает API на mux. Каждый маршрут проходит
// Logging -> Metrics -> Recovery.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	wrapped := Chain(Logging(h.logger), Metrics(), Recovery(h.logger))

	for pattern, fn := range map[string]http.HandlerFunc{
		"GET /api/v1/runs":                   h.ListRuns,
		"POST /api/v1/runs":                  h.CreateRun,
		"GET /api/v1/runs/{id}":              h.GetRun,
		"GET /api/v1/runs/{id}/nodes":        h.ListRunNodes,
		"GET /api/v1/pipelines":              h.ListPipelines,
		"POST /api/v1/pipelines/validate":    h.ValidatePipeline,
		"POST /api/v1/pipelines/{name}/runs": h.RunPipeline,
	} {
		mux.Handle(pattern, wrapped(fn))
	}
}
