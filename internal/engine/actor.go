package engine

import (
	"ability-server/internal/action"
	"ability-server/internal/ai"
	"ability-server/internal/attribute"
	"ability-server/internal/domain"
	"ability-server/pkg/api"
)

// Interactable - то, с чем игрок может взаимодействовать (пауэрапы, сундуки).
// Возвращает текст для лога.
type Interactable interface {
	Interact(w *World, self, instigator *Actor) string
}

// Saveable - актор, чье состояние переживает перезапуск сервера.
type Saveable interface {
	SaveState() []byte
	OnActorLoaded(data []byte)
}

// Actor - сущность мира. Реализует action.Actor.
type Actor struct {
	id    domain.ActorID
	Name  string
	Kind  domain.ActorKind
	Class string // Имя монстра/пауэрапа из каталога

	pos domain.Vec

	attrs      *attribute.Attribute // nil у пауэрапов и сундуков
	actions    *action.Component
	Blackboard *ai.Blackboard
	Profile    ai.Profile

	credits int
	active  bool

	// Поведение пауэрапа/сундука
	behavior Interactable

	// Флаги для репликации
	dirty     bool
	attrDirty bool
}

func newActor(id domain.ActorID, name string, kind domain.ActorKind) *Actor {
	return &Actor{
		id:         id,
		Name:       name,
		Kind:       kind,
		Blackboard: ai.NewBlackboard(),
		active:     true,
		dirty:      true,
		attrDirty:  true,
	}
}

func (a *Actor) ID() domain.ActorID                { return a.id }
func (a *Actor) Attributes() *attribute.Attribute  { return a.attrs }
func (a *Actor) Actions() *action.Component        { return a.actions }
func (a *Actor) CurrentTarget() domain.ActorID     { return a.Blackboard.Target() }
func (a *Actor) Position() domain.Vec              { return a.pos }
func (a *Actor) Credits() int                      { return a.credits }
func (a *Actor) IsActive() bool                    { return a.active }
func (a *Actor) Behavior() Interactable            { return a.behavior }

// IsAlive - у акторов без атрибутов (пауэрапы) всегда true.
func (a *Actor) IsAlive() bool {
	return a.attrs == nil || a.attrs.IsAlive()
}

func (a *Actor) SetPosition(p domain.Vec) {
	if p != a.pos {
		a.pos = p
		a.dirty = true
	}
}

func (a *Actor) SetTarget(id domain.ActorID) {
	if a.Blackboard.Target() != id {
		a.Blackboard.SetTarget(id)
		a.dirty = true
	}
}

func (a *Actor) SetActive(v bool) {
	if a.active != v {
		a.active = v
		a.dirty = true
	}
}

// AddCredits меняет кредиты игрока (PlayerState).
func (a *Actor) AddCredits(delta int) {
	if delta == 0 {
		return
	}
	a.credits += delta
	a.dirty = true
}

// RemoveCredits списывает кредиты, если их хватает.
func (a *Actor) RemoveCredits(amount int) bool {
	if amount < 0 || a.credits < amount {
		return false
	}
	a.AddCredits(-amount)
	return true
}

// View - DTO для клиента.
func (a *Actor) View() api.ActorView {
	v := api.ActorView{
		ID:      string(a.id),
		Kind:    a.Kind.String(),
		Name:    a.Name,
		Class:   a.Class,
		Active:  a.active,
		Credits: a.credits,
		Target:  string(a.CurrentTarget()),
	}
	v.Pos.X = a.pos.X
	v.Pos.Y = a.pos.Y
	return v
}

// AttributeView - DTO ресурсов. ok=false для акторов без атрибутов.
func (a *Actor) AttributeView() (api.AttributeView, bool) {
	if a.attrs == nil {
		return api.AttributeView{}, false
	}
	return api.AttributeView{
		ActorID:   string(a.id),
		Health:    a.attrs.Health(),
		HealthMax: a.attrs.HealthMax(),
		Rage:      a.attrs.Rage(),
		RageMax:   a.attrs.RageMax(),
	}, true
}
