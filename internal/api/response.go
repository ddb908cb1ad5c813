package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Cascade/internal/engine"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/worker"
)

// ErrorCode — машиночитаемый код в {"error": {"code": ...}}.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeInvalidSpec   ErrorCode = "INVALID_PIPELINE"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type DataResponse struct {
	Data any `json:"data"`
}

type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func Success(w http.ResponseWriter, data any)  { JSON(w, http.StatusOK, DataResponse{Data: data}) }
func Accepted(w http.ResponseWriter, data any) { JSON(w, http.StatusAccepted, DataResponse{Data: data}) }

func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func Unavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

func InvalidPipeline(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, ErrCodeInvalidSpec, err.Error())
}

// InternalError пишет ошибку в лог, а клиенту отдаёт только код.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleRepoError отвечает на ошибку хранилища и сообщает, был ли
// ответ записан. notFound — сообщение для repo.ErrNotFound.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFound string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repo.ErrNotFound):
		NotFound(w, notFound)
	case errors.Is(err, repo.ErrAlreadyExists):
		Error(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}

// HandleRunError — HandleRepoError для ошибок Worker.Submit.
// worker.ErrDuplicateRun сюда не попадает: это успешный ответ 200.
func HandleRunError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	var invalid *engine.ValidationError
	switch {
	case errors.Is(err, worker.ErrInvalidPipeline), errors.As(err, &invalid):
		InvalidPipeline(w, err)
	case errors.Is(err, worker.ErrWorkerStopped):
		Unavailable(w, "worker is stopped")
	default:
		return HandleRepoError(w, logger, err, "run not found")
	}
	return true
}
