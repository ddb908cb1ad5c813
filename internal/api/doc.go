// Package api — HTTP API cascade-api поверх worker.Worker и repo.RunStore.
//
//	GET  /api/v1/runs                      история (pipeline, status, limit, offset)
//	POST /api/v1/runs                      {pipeline, params, idempotency_key} -> 202
//	GET  /api/v1/runs/{id}                 run
//	GET  /api/v1/runs/{id}/nodes           итоги узлов
//	GET  /api/v1/pipelines                 каталог из PIPELINES_DIR
//	POST /api/v1/pipelines/validate        план или 400 INVALID_PIPELINE
//	POST /api/v1/pipelines/{name}/runs     запуск pipeline из каталога
//
// Тело запроса читается как YAML, поэтому JSON тоже подходит. Ответы
// всегда JSON: {"data": ...}, {"data": [...], "total": n} или
// {"error": {"code", "message"}}. Повтор idempotency_key отвечает 200
// с уже существующим run.
package api
