package ai

import "ability-server/internal/domain"

// KeyTargetActor - ключ текущей цели на доске.
const KeyTargetActor = "TargetActor"

// Blackboard - память бота (и текущая цель игрока).
// Не потокобезопасна: живет в горутине симуляции.
type Blackboard struct {
	values map[string]any
}

func NewBlackboard() *Blackboard {
	return &Blackboard{values: make(map[string]any)}
}

func (b *Blackboard) Set(key string, v any) {
	b.values[key] = v
}

func (b *Blackboard) Get(key string) (any, bool) {
	v, ok := b.values[key]
	return v, ok
}

func (b *Blackboard) Clear(key string) {
	delete(b.values, key)
}

// SetTarget записывает цель. NoActor очищает ключ.
func (b *Blackboard) SetTarget(id domain.ActorID) {
	if !id.IsValid() {
		b.Clear(KeyTargetActor)
		return
	}
	b.Set(KeyTargetActor, id)
}

// Target - текущая цель или NoActor.
func (b *Blackboard) Target() domain.ActorID {
	v, ok := b.values[KeyTargetActor]
	if !ok {
		return domain.NoActor
	}
	id, _ := v.(domain.ActorID)
	return id
}
