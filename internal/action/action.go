package action

import (
	"ability-server/internal/domain"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Action - одна способность или эффект.
// Состояния: Stopped -> Running -> Stopped. Других нет.
//
// Конкретные действия встраивают Base и при необходимости переопределяют
// CanStart, а дополнительное поведение подключают через StartHook/PreStopHook/StopHook.
type Action interface {
	Name() string
	Class() string
	NetID() uint32
	IsRunning() bool
	AutoStart() bool
	Instigator() domain.ActorID
	StartTime() float64
	Component() *Component

	CanStart(instigator domain.ActorID) bool
	Start(instigator domain.ActorID)
	Stop(instigator domain.ActorID)

	base() *Base
}

// StartHook вызывается после базовой логики Start (теги уже выданы).
type StartHook interface {
	OnStart(instigator domain.ActorID)
}

// PreStopHook вызывается до снятия тегов.
type PreStopHook interface {
	BeforeStop(instigator domain.ActorID)
}

// StopHook вызывается после базовой логики Stop.
type StopHook interface {
	OnStop(instigator domain.ActorID)
}

// Definition - статическое описание действия (из каталога).
type Definition struct {
	Class     string
	Name      string
	Grants    []domain.Tag // Выдаются владельцу на время работы
	Blocked   []domain.Tag // Нельзя стартовать, пока у владельца есть любой из них
	AutoStart bool
}

// RepState - реплицируемая запись. Передается и применяется только целиком,
// чтобы клиент не увидел running=true со старым инстигатором.
type RepState struct {
	Running    bool
	Instigator domain.ActorID
	StartTime  float64
}

// Base - общее состояние и логика всех действий.
type Base struct {
	def Definition

	// self - внешнее значение (например *Effect), через него вызываются
	// переопределенные методы. Задается один раз в initialize.
	self  Action
	comp  *Component
	netID uint32

	running    bool
	instigator domain.ActorID
	startTime  float64

	// stopping - идет deactivate. Повторный Stop из хуков (смерть владельца
	// от должного тика) ничего не делает.
	stopping bool
}

// NewBase создает базу из описания.
func NewBase(def Definition) Base {
	return Base{def: def}
}

// Simple - действие без дополнительного поведения (спринт и т.п.).
type Simple struct {
	Base
}

func NewSimple(def Definition) *Simple {
	return &Simple{Base: NewBase(def)}
}

func (b *Base) base() *Base { return b }

// initialize устанавливает обратную ссылку на компонент. Вызывается компонентом ровно один раз.
func (b *Base) initialize(c *Component, netID uint32, self Action) {
	b.comp = c
	b.netID = netID
	b.self = self
}

func (b *Base) Name() string               { return b.def.Name }
func (b *Base) Class() string              { return b.def.Class }
func (b *Base) NetID() uint32              { return b.netID }
func (b *Base) IsRunning() bool            { return b.running }
func (b *Base) AutoStart() bool            { return b.def.AutoStart }
func (b *Base) Instigator() domain.ActorID { return b.instigator }
func (b *Base) StartTime() float64         { return b.startTime }
func (b *Base) Component() *Component      { return b.comp }

// CanStart - чистая проверка без побочных эффектов.
func (b *Base) CanStart(instigator domain.ActorID) bool {
	if b.running || b.stopping || b.comp == nil {
		return false
	}
	return !b.comp.activeTags.HasAny(b.def.Blocked)
}

// Start запускает действие. Вызывающий обязан проверить CanStart;
// здесь проверка повторяется, и при провале действие просто не стартует.
func (b *Base) Start(instigator domain.ActorID) {
	if b.comp == nil {
		domain.Ensure(false, "action %q started before initialize", b.def.Name)
		return
	}
	if !b.self.CanStart(instigator) {
		b.log().WithField("instigator", instigator).Error("Start called while CanStart fails, ignoring")
		return
	}
	b.activate(instigator, b.comp.Now())
}

// Stop останавливает действие. Повторная остановка на клиенте - норма
// (дубли от репликации), на сервере - логическая ошибка.
func (b *Base) Stop(instigator domain.ActorID) {
	if b.stopping {
		return
	}
	if !b.running {
		if b.comp != nil && b.comp.HasAuthority() {
			b.log().WithField("instigator", instigator).Error("Stop called on a stopped action")
		}
		return
	}
	b.deactivate(instigator)
}

// RepState - текущая реплицируемая запись.
func (b *Base) RepState() RepState {
	return RepState{Running: b.running, Instigator: b.instigator, StartTime: b.startTime}
}

// applyRepState - единственная точка применения авторитетного состояния.
// Если состояние уже совпадает, только перезаписываем инстигатора и время:
// повторный Start/Stop здесь замкнул бы цикл запросов к серверу.
func (b *Base) applyRepState(rs RepState) {
	if rs.Running == b.running {
		b.instigator = rs.Instigator
		b.startTime = rs.StartTime
		return
	}
	if rs.Running {
		b.activate(rs.Instigator, rs.StartTime)
	} else {
		b.deactivate(rs.Instigator)
	}
}

func (b *Base) activate(instigator domain.ActorID, startTime float64) {
	b.comp.activeTags.AppendTags(b.def.Grants)
	b.running = true
	b.instigator = instigator
	b.startTime = startTime

	b.log().WithField("instigator", instigator).Debug("Running")
	b.comp.notifyStarted(b.self)

	if h, ok := b.self.(StartHook); ok {
		h.OnStart(instigator)
	}
}

func (b *Base) deactivate(instigator domain.ActorID) {
	if b.stopping {
		return
	}
	b.stopping = true
	defer func() { b.stopping = false }()

	// running еще true: BeforeStop эффекта проверяет должный тик по живым таймерам
	if h, ok := b.self.(PreStopHook); ok {
		h.BeforeStop(instigator)
	}

	b.comp.activeTags.RemoveTags(b.def.Grants)
	b.running = false
	b.instigator = instigator

	b.log().WithField("instigator", instigator).Debug("Stopped")
	b.comp.notifyStopped(b.self)

	if h, ok := b.self.(StopHook); ok {
		h.OnStop(instigator)
	}
}

func (b *Base) log() *logrus.Entry {
	entry := logger.Log.WithFields(logrus.Fields{
		"component": "action",
		"action":    b.def.Name,
		"net_id":    b.netID,
	})
	if b.comp != nil {
		entry = entry.WithField("owner", b.comp.OwnerID())
	}
	return entry
}
