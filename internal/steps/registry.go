package steps

import (
	"fmt"
	"slices"
	"sync"
)

// Registry сопоставляет имя типа из PipelineSpec (actions[].type)
// с реализацией Step. Безопасен для конкурентного использования.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Step
}

// NewRegistry создаёт реестр и сразу регистрирует переданные шаги.
func NewRegistry(steps ...Step) *Registry {
	r := &Registry{byType: make(map[string]Step, len(steps))}
	r.Register(steps...)
	return r
}

// Builtins возвращает новые экземпляры встроенных шагов.
func Builtins() []Step {
	return []Step{
		NewDelayStep(),
		NewEchoStep(),
		NewHTTPStep(),
		NewTransformStep(),
	}
}

// DefaultRegistry — реестр со встроенными шагами.
func DefaultRegistry() *Registry {
	return NewRegistry(Builtins()...)
}

// Register добавляет шаги. Более поздняя регистрация того же типа
// заменяет предыдущую: так тесты подменяют http на заглушку.
func (r *Registry) Register(steps ...Step) {
	r.mu.Lock()
	for _, s := range steps {
		r.byType[s.Type()] = s
	}
	r.mu.Unlock()
}

// Extend возвращает копию реестра с дополнительными шагами.
// Исходный реестр не меняется.
func (r *Registry) Extend(steps ...Step) *Registry {
	r.mu.RLock()
	clone := make(map[string]Step, len(r.byType)+len(steps))
	for name, s := range r.byType {
		clone[name] = s
	}
	r.mu.RUnlock()

	ext := &Registry{byType: clone}
	ext.Register(steps...)
	return ext
}

// Lookup ищет шаг без построения ошибки.
func (r *Registry) Lookup(stepType string) (Step, bool) {
	r.mu.RLock()
	s, ok := r.byType[stepType]
	r.mu.RUnlock()
	return s, ok
}

// Get — как Lookup, но отсутствие типа оборачивает ErrStepNotFound.
func (r *Registry) Get(stepType string) (Step, error) {
	if s, ok := r.Lookup(stepType); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrStepNotFound, stepType)
}

// Has сообщает, известен ли тип. Подходит как предикат для engine.ValidateWith.
func (r *Registry) Has(stepType string) bool {
	_, ok := r.Lookup(stepType)
	return ok
}

// Types возвращает известные типы по алфавиту.
func (r *Registry) Types() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byType))
	for name := range r.byType {
		names = append(names, name)
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Count — число известных типов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType)
}
