package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Cascade/internal/domain"
)

// MemoryRunRepo — RunStore в памяти процесса.
// Используется в тестах и когда DB_URL не задан.
type MemoryRunRepo struct {
	mu    sync.RWMutex
	runs  map[uuid.UUID]domain.Run
	keys  map[string]uuid.UUID
	nodes map[uuid.UUID][]domain.NodeResult
}

// NewMemoryRunRepo создаёт пустой MemoryRunRepo.
func NewMemoryRunRepo() *MemoryRunRepo {
	return &MemoryRunRepo{
		runs:  make(map[uuid.UUID]domain.Run),
		keys:  make(map[string]uuid.UUID),
		nodes: make(map[uuid.UUID][]domain.NodeResult),
	}
}

// Create сохраняет копию run.
func (m *MemoryRunRepo) Create(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return ErrAlreadyExists
	}
	if run.IdempotencyKey != "" {
		if _, exists := m.keys[run.IdempotencyKey]; exists {
			return ErrAlreadyExists
		}
		m.keys[run.IdempotencyKey] = run.ID
	}
	m.runs[run.ID] = *run
	return nil
}

// GetByID возвращает копию run.
func (m *MemoryRunRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &run, nil
}

// GetByIdempotencyKey возвращает run по ключу идемпотентности.
func (m *MemoryRunRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Run, error) {
	m.mu.RLock()
	id, ok := m.keys[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return m.GetByID(ctx, id)
}

// List возвращает runs по фильтру, новые первыми.
func (m *MemoryRunRepo) List(_ context.Context, filter RunFilter) ([]domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var runs []domain.Run
	for _, run := range m.runs {
		if filter.Pipeline != "" && run.Pipeline != filter.Pipeline {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID.String() < runs[j].ID.String()
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if filter.Offset >= len(runs) {
		return nil, nil
	}
	runs = runs[filter.Offset:]
	if limit := filter.limit(); len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Update заменяет сохранённый run.
func (m *MemoryRunRepo) Update(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; !ok {
		return ErrNotFound
	}
	m.runs[run.ID] = *run
	return nil
}

// SaveNodes заменяет итоги узлов run.
func (m *MemoryRunRepo) SaveNodes(_ context.Context, runID uuid.UUID, nodes []domain.NodeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID]; !ok {
		return ErrNotFound
	}
	m.nodes[runID] = append([]domain.NodeResult(nil), nodes...)
	return nil
}

// ListNodes возвращает итоги узлов run в порядке сохранения.
func (m *MemoryRunRepo) ListNodes(_ context.Context, runID uuid.UUID) ([]domain.NodeResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.runs[runID]; !ok {
		return nil, ErrNotFound
	}
	return append([]domain.NodeResult(nil), m.nodes[runID]...), nil
}

var (
	_ RunStore = (*MemoryRunRepo)(nil)
	_ RunStore = (*RunRepo)(nil)
)
