package action

import (
	"fmt"
	"sort"
)

// Factory создает новый, еще не инициализированный экземпляр действия.
type Factory func() Action

// Registry - таблица "имя класса -> фабрика".
// Живет в горутине симуляции; горячая перезагрузка каталога меняет
// содержимое через Replace, указатель у компонентов остается тем же.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register добавляет или перезаписывает класс.
func (r *Registry) Register(class string, f Factory) {
	r.factories[class] = f
}

// Has - зарегистрирован ли класс.
func (r *Registry) Has(class string) bool {
	_, ok := r.factories[class]
	return ok
}

// New создает экземпляр класса.
func (r *Registry) New(class string) (Action, error) {
	f, ok := r.factories[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	a := f()
	if a == nil {
		return nil, fmt.Errorf("%w: factory for %q returned nil", ErrConfiguration, class)
	}
	return a, nil
}

// Replace атомарно (в рамках горутины симуляции) заменяет все классы.
// Уже созданные экземпляры не трогаются.
func (r *Registry) Replace(other *Registry) {
	r.factories = make(map[string]Factory, len(other.factories))
	for k, v := range other.factories {
		r.factories[k] = v
	}
}

// Classes - отсортированный список классов.
func (r *Registry) Classes() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
