package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
)

// RunStore — хранилище истории runs.
// Реализации: RunRepo (PostgreSQL) и MemoryRunRepo.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Run, error)
	List(ctx context.Context, filter RunFilter) ([]domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
	SaveNodes(ctx context.Context, runID uuid.UUID, nodes []domain.NodeResult) error
	ListNodes(ctx context.Context, runID uuid.UUID) ([]domain.NodeResult, error)
}

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	Pipeline string
	Status   domain.RunStatus
	Limit    int
	Offset   int
}

// DefaultListLimit — лимит List, если filter.Limit не задан.
const DefaultListLimit = 50

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
