package action

import (
	"fmt"

	"ability-server/internal/domain"
	"ability-server/internal/timer"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// ActionFunc - подписчик на старт/остановку действия.
type ActionFunc func(c *Component, a Action)

// RejectFunc - подписчик на отклоненный запрос (имя действия).
type RejectFunc func(c *Component, name string)

// Component - список действий актора и его активные теги.
// Инвариант: activeTags равен объединению (мультимножеству) grantsTags
// всех запущенных действий.
type Component struct {
	owner     Actor
	env       Env
	registry  *Registry
	forwarder Forwarder

	actions    []Action // Порядок вставки: первое совпадение по имени побеждает
	activeTags *domain.TagContainer
	defaults   []string
	nextNetID  uint32

	onStarted  []ActionFunc
	onStopped  []ActionFunc
	onRejected []RejectFunc

	// Состояние репликации (только авторитет)
	pendingAdded   []Action
	pendingRemoved []uint32
	lastSent       map[uint32]RepState
	forced         map[uint32]bool
}

// NewComponent создает пустой компонент. defaults - классы, которые
// создаются в InitDefaults (на авторитете).
func NewComponent(owner Actor, env Env, registry *Registry, defaults []string) *Component {
	return &Component{
		owner:      owner,
		env:        env,
		registry:   registry,
		activeTags: domain.NewTagContainer(),
		defaults:   append([]string(nil), defaults...),
		lastSent:   make(map[uint32]RepState),
		forced:     make(map[uint32]bool),
	}
}

// SetForwarder подключает отправку запросов на сервер (только клиент).
func (c *Component) SetForwarder(f Forwarder) { c.forwarder = f }

func (c *Component) Owner() Actor { return c.owner }

func (c *Component) OwnerID() domain.ActorID {
	if c.owner == nil {
		return domain.NoActor
	}
	return c.owner.ID()
}

func (c *Component) Env() Env { return c.env }

func (c *Component) HasAuthority() bool { return c.env != nil && c.env.HasAuthority() }

// Now - мировое время. На клиенте это часы, синхронизированные с сервером.
func (c *Component) Now() float64 { return c.env.Timers().Now() }

func (c *Component) timers() *timer.Manager { return c.env.Timers() }

// OnActionStarted / OnActionStopped / OnRejected регистрируют подписчиков.
func (c *Component) OnActionStarted(fn ActionFunc) { c.onStarted = append(c.onStarted, fn) }
func (c *Component) OnActionStopped(fn ActionFunc) { c.onStopped = append(c.onStopped, fn) }
func (c *Component) OnRejected(fn RejectFunc)      { c.onRejected = append(c.onRejected, fn) }

// InitDefaults создает действия по умолчанию (аналог BeginPlay).
// Ошибки отдельных классов логируются и не мешают остальным.
func (c *Component) InitDefaults() {
	if !c.HasAuthority() {
		return
	}
	for _, class := range c.defaults {
		if _, err := c.AddAction(c.OwnerID(), class); err != nil {
			c.log().WithError(err).WithField("class", class).Error("Failed to add default action")
		}
	}
}

// AddAction создает экземпляр класса и добавляет его в компонент.
// Только авторитет. Автостартующее действие запускается сразу от имени instigator.
func (c *Component) AddAction(instigator domain.ActorID, class string) (Action, error) {
	// 1. Авторитет
	if !c.HasAuthority() {
		c.log().WithField("class", class).Warn("Client attempting to AddAction")
		return nil, fmt.Errorf("add %q: %w", class, ErrNotAuthority)
	}

	// 2. Класс
	if class == "" {
		domain.Ensure(false, "AddAction with empty class on %s", c.OwnerID())
		return nil, fmt.Errorf("%w: empty action class", ErrConfiguration)
	}
	a, err := c.registry.New(class)
	if err != nil {
		domain.Ensure(false, "AddAction on %s: %v", c.OwnerID(), err)
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	// 3. Инициализация до проверки CanStart: блокировки читаются с компонента
	c.nextNetID++
	a.base().initialize(c, c.nextNetID, a)

	// 4. Автостарт. Если стартовать нельзя - это ошибка контента,
	// действие не добавляется вовсе, чтобы не оставить его наполовину.
	if a.AutoStart() && !a.CanStart(instigator) {
		domain.Ensure(false, "auto-start action %q cannot start on %s", a.Name(), c.OwnerID())
		return nil, fmt.Errorf("%w: auto-start action %q cannot start", ErrConfiguration, a.Name())
	}

	c.attach(a)
	if a.AutoStart() {
		a.Start(instigator)
	}
	return a, nil
}

// RemoveAction убирает остановленное действие. Отсутствующее - no-op.
func (c *Component) RemoveAction(a Action) error {
	if a == nil {
		domain.Ensure(false, "RemoveAction(nil) on %s", c.OwnerID())
		return fmt.Errorf("%w: nil action", ErrConfiguration)
	}
	if a.IsRunning() {
		c.log().WithField("action", a.Name()).Warn("Cannot remove running action")
		return fmt.Errorf("remove %q: %w", a.Name(), ErrStillRunning)
	}
	c.detach(a)
	return nil
}

// StartActionByName запускает первое действие с таким именем, которое может стартовать.
// Отклоненные кандидаты репортятся, поиск продолжается.
// На клиенте запрос уходит на сервер, а действие стартует локально (предсказание).
func (c *Component) StartActionByName(instigator domain.ActorID, name string) bool {
	for _, a := range c.actions {
		if a.Name() != name {
			continue
		}
		if !a.CanStart(instigator) {
			c.reject(name)
			continue
		}

		if !c.HasAuthority() && c.forwarder != nil {
			c.forwarder.ServerStartAction(c.OwnerID(), instigator, name)
		}

		a.Start(instigator)
		return true
	}
	return false
}

// StopActionByName останавливает первое запущенное действие с таким именем.
func (c *Component) StopActionByName(instigator domain.ActorID, name string) bool {
	for _, a := range c.actions {
		if a.Name() != name || !a.IsRunning() {
			continue
		}

		if !c.HasAuthority() && c.forwarder != nil {
			c.forwarder.ServerStopAction(c.OwnerID(), instigator, name)
		}

		a.Stop(instigator)
		return true
	}
	return false
}

// ServerStartAction - вход для пересланных запросов.
// Все действия с этим именем получают принудительную запись в следующей дельте:
// если оптимистичный старт клиента был отклонен, клиент вернется к истине.
func (c *Component) ServerStartAction(instigator domain.ActorID, name string) bool {
	if !c.HasAuthority() {
		return false
	}
	ok := c.StartActionByName(instigator, name)
	c.forceSync(name)
	return ok
}

// ServerStopAction - то же для остановки.
func (c *Component) ServerStopAction(instigator domain.ActorID, name string) bool {
	if !c.HasAuthority() {
		return false
	}
	ok := c.StopActionByName(instigator, name)
	c.forceSync(name)
	return ok
}

// StopAll останавливает все запущенные действия (смерть, выход игрока).
func (c *Component) StopAll(instigator domain.ActorID) {
	for _, a := range c.Actions() {
		if a.IsRunning() {
			a.Stop(instigator)
		}
	}
}

// GetAction - первое действие данного класса.
func (c *Component) GetAction(class string) Action {
	for _, a := range c.actions {
		if a.Class() == class {
			return a
		}
	}
	return nil
}

// GetActionByName - первое действие с таким именем.
func (c *Component) GetActionByName(name string) Action {
	for _, a := range c.actions {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Actions - копия списка (безопасно итерировать, пока действия удаляются).
func (c *Component) Actions() []Action {
	out := make([]Action, len(c.actions))
	copy(out, c.actions)
	return out
}

func (c *Component) HasTag(t domain.Tag) bool { return c.activeTags.HasTag(t) }

func (c *Component) HasAny(tags []domain.Tag) bool { return c.activeTags.HasAny(tags) }

func (c *Component) Tags() []domain.Tag { return c.activeTags.Tags() }

// --- Debug ---

// DebugAction - строка отладочного вывода.
type DebugAction struct {
	NetID      uint32  `json:"net_id"`
	Name       string  `json:"name"`
	Class      string  `json:"class"`
	Running    bool    `json:"running"`
	Instigator string  `json:"instigator,omitempty"`
	StartTime  float64 `json:"start_time"`
}

// DebugInfo - снимок компонента для /debug/actions.
type DebugInfo struct {
	Owner   string        `json:"owner"`
	Tags    string        `json:"tags"`
	Actions []DebugAction `json:"actions"`
}

func (c *Component) Debug() DebugInfo {
	info := DebugInfo{
		Owner:   c.OwnerID().String(),
		Tags:    c.activeTags.String(),
		Actions: make([]DebugAction, 0, len(c.actions)),
	}
	for _, a := range c.actions {
		info.Actions = append(info.Actions, DebugAction{
			NetID:      a.NetID(),
			Name:       a.Name(),
			Class:      a.Class(),
			Running:    a.IsRunning(),
			Instigator: a.Instigator().String(),
			StartTime:  a.StartTime(),
		})
	}
	return info
}

// --- внутреннее ---

func (c *Component) attach(a Action) {
	c.actions = append(c.actions, a)
	if c.HasAuthority() {
		c.pendingAdded = append(c.pendingAdded, a)
	}
}

func (c *Component) detach(a Action) {
	idx := -1
	for i, other := range c.actions {
		if other == a {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	c.actions = append(c.actions[:idx], c.actions[idx+1:]...)

	if c.HasAuthority() {
		id := a.NetID()
		c.pendingRemoved = append(c.pendingRemoved, id)
		delete(c.lastSent, id)
		delete(c.forced, id)
	}
}

func (c *Component) findNetID(id uint32) Action {
	for _, a := range c.actions {
		if a.NetID() == id {
			return a
		}
	}
	return nil
}

func (c *Component) forceSync(name string) {
	for _, a := range c.actions {
		if a.Name() == name {
			c.forced[a.NetID()] = true
		}
	}
}

func (c *Component) reject(name string) {
	c.log().WithField("action", name).Debug("Failed to run")
	for _, fn := range c.onRejected {
		fn(c, name)
	}
}

func (c *Component) notifyStarted(a Action) {
	for _, fn := range c.onStarted {
		fn(c, a)
	}
}

func (c *Component) notifyStopped(a Action) {
	for _, fn := range c.onStopped {
		fn(c, a)
	}
}

func (c *Component) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{
		"component": "action_component",
		"owner":     c.OwnerID(),
	})
}
