package worker

import "errors"

// Ошибки воркера.
var (
	// ErrInvalidPipeline — pipeline не прошёл валидацию или компиляцию.
	ErrInvalidPipeline = errors.New("invalid pipeline")

	// ErrDuplicateRun — run с таким IdempotencyKey уже создан.
	ErrDuplicateRun = errors.New("duplicate run")

	// ErrWorkerStopped — воркер остановлен и не принимает runs.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrNoConnection — Start вызван без соединения с брокером.
	ErrNoConnection = errors.New("worker has no broker connection")
)
