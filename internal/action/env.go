package action

import (
	"ability-server/internal/attribute"
	"ability-server/internal/config"
	"ability-server/internal/domain"
	"ability-server/internal/timer"
)

// Actor - то, чем владеет компонент. Реализуется сущностями движка.
type Actor interface {
	ID() domain.ActorID
	Attributes() *attribute.Attribute // может быть nil (сундук, пауэрап)
	Actions() *Component
	CurrentTarget() domain.ActorID
}

// Env - сервисы мира, доступные действиям.
type Env interface {
	Timers() *timer.Manager
	HasAuthority() bool
	// Find разрешает слабую ссылку. nil, если актор уже удален.
	Find(id domain.ActorID) Actor
	Tunables() *config.Tunables
}

// Forwarder отправляет запросы клиента авторитету.
type Forwarder interface {
	ServerStartAction(owner, instigator domain.ActorID, name string)
	ServerStopAction(owner, instigator domain.ActorID, name string)
}
