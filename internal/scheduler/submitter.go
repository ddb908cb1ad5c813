package scheduler

import (
	"context"
	"errors"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/mq"
	"github.com/shaiso/Cascade/internal/worker"
)

// Request — запуск pipeline по расписанию.
type Request struct {
	Schedule       string
	Pipeline       *domain.PipelineSpec
	Params         map[string]any
	IdempotencyKey string
}

// Submitter передаёт запуск на выполнение и возвращает его ID
// (ID run или сообщения run.requested).
//
// Непустой ID вместе с ошибкой означает, что запуск создан и
// завершился неудачей: повторять его не нужно.
type Submitter interface {
	Submit(ctx context.Context, req Request) (string, error)
}

// SubmitterFunc — адаптер функции к Submitter.
type SubmitterFunc func(ctx context.Context, req Request) (string, error)

// Submit вызывает f.
func (f SubmitterFunc) Submit(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// WorkerSubmitter выполняет запуски в локальном worker.
// Повтор с тем же ключом идемпотентности возвращает существующий run.
func WorkerSubmitter(w *worker.Worker) Submitter {
	return SubmitterFunc(func(ctx context.Context, req Request) (string, error) {
		run, err := w.Submit(ctx, worker.RunRequest{
			Pipeline:       req.Pipeline,
			Params:         req.Params,
			Trigger:        domain.TriggerSchedule,
			IdempotencyKey: req.IdempotencyKey,
		})
		switch {
		case errors.Is(err, worker.ErrDuplicateRun):
			return run.ID.String(), nil
		case run != nil:
			return run.ID.String(), err
		default:
			return "", err
		}
	})
}

// runRequestPublisher — часть mq.Publisher, которая нужна QueueSubmitter.
type runRequestPublisher interface {
	PublishRunRequested(ctx context.Context, req mq.RunRequestedPayload) (*mq.Message, error)
}

// QueueSubmitter публикует запуски в очередь runs.requested.
// Дубликаты отсеивает worker по ключу идемпотентности.
func QueueSubmitter(p runRequestPublisher) Submitter {
	return SubmitterFunc(func(ctx context.Context, req Request) (string, error) {
		msg, err := p.PublishRunRequested(ctx, mq.RunRequestedPayload{
			Pipeline:       req.Pipeline,
			Params:         req.Params,
			Trigger:        domain.TriggerSchedule,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return "", err
		}
		return msg.ID, nil
	})
}
