package engine

import (
	"math"

	"ability-server/internal/action"
	"ability-server/internal/attribute"
	"ability-server/internal/catalog"
	"ability-server/internal/config"
	"ability-server/internal/domain"
	"ability-server/internal/timer"
	"ability-server/pkg/api"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	// maxProxyLogs - сколько последних записей лога держит клиент.
	maxProxyLogs = 50
	// maxExtrapolation - дальше этого от последнего кадра часы сами не уходят.
	maxExtrapolation = 1.0
)

// Proxy - клиентское зеркало мира. Не авторитет: действия только предсказываются
// и сводятся к состоянию сервера через кадры репликации.
// Не потокобезопасен: живет в горутине сессии.
type Proxy struct {
	self      domain.ActorID
	timers    *timer.Manager
	tun       *config.Tunables
	registry  *action.Registry
	forwarder action.Forwarder

	actors map[domain.ActorID]*Actor
	order  []domain.ActorID
	logs   []api.LogEntry

	// Часы: время последнего кадра плюс локальная экстраполяция
	frameTime  float64
	sinceFrame float64

	// Колбэки для UI/агента
	onLog func(api.LogEntry)
}

// NewProxy - зеркало с тем же каталогом, что у сервера (классы нужны для создания действий).
func NewProxy(cat *catalog.Catalog, fwd action.Forwarder) *Proxy {
	return &Proxy{
		timers:    timer.NewManager(),
		tun:       config.DefaultTunables(),
		registry:  cat.Registry(),
		forwarder: fwd,
		actors:    make(map[domain.ActorID]*Actor),
	}
}

// --- action.Env ---

func (p *Proxy) Timers() *timer.Manager     { return p.timers }
func (p *Proxy) HasAuthority() bool         { return false }
func (p *Proxy) Tunables() *config.Tunables { return p.tun }

func (p *Proxy) Find(id domain.ActorID) action.Actor {
	a, ok := p.actors[id]
	if !ok {
		return nil
	}
	return a
}

// --- Доступ ---

func (p *Proxy) Self() *Actor                  { return p.actors[p.self] }
func (p *Proxy) SelfID() domain.ActorID        { return p.self }
func (p *Proxy) Actor(id domain.ActorID) *Actor { return p.actors[id] }
func (p *Proxy) Now() float64                  { return p.timers.Now() }
func (p *Proxy) Logs() []api.LogEntry          { return p.logs }

// OnLog подписывает на новые записи лога.
func (p *Proxy) OnLog(fn func(api.LogEntry)) { p.onLog = fn }

// Actors - в порядке появления.
func (p *Proxy) Actors() []*Actor {
	out := make([]*Actor, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.actors[id])
	}
	return out
}

// StartAction - ввод игрока: запрос уходит на сервер, действие стартует локально.
func (p *Proxy) StartAction(name string) bool {
	self := p.Self()
	if self == nil || self.actions == nil {
		return false
	}
	return self.actions.StartActionByName(p.self, name)
}

// StopAction - то же для остановки.
func (p *Proxy) StopAction(name string) bool {
	self := p.Self()
	if self == nil || self.actions == nil {
		return false
	}
	return self.actions.StopActionByName(p.self, name)
}

// Advance экстраполирует часы от последнего кадра (не дальше maxExtrapolation).
// Следующий кадр ставит их обратно на время сервера.
func (p *Proxy) Advance(dt float64) {
	p.sinceFrame = math.Min(p.sinceFrame+dt, maxExtrapolation)
	p.timers.SetTo(p.frameTime + p.sinceFrame)
}

// Apply применяет сообщение сервера. Повторное применение ничего не меняет.
func (p *Proxy) Apply(msg api.ServerMessage) {
	if msg.Type == api.MsgError {
		p.log().WithField("error", msg.Error).Warn("Server rejected command")
		return
	}

	// 1. Часы: авторитетное время кадра, опережение сбрасывается
	p.frameTime = msg.ServerTime
	p.sinceFrame = 0
	p.timers.SetTo(msg.ServerTime)

	// 2. Снимок: кто не попал в него, того больше нет
	if msg.Type == api.MsgWelcome {
		if msg.YourID != "" {
			p.self = domain.ActorID(msg.YourID)
		}
		present := make(map[domain.ActorID]bool, len(msg.Actors))
		for _, v := range msg.Actors {
			present[domain.ActorID(v.ID)] = true
		}
		for _, id := range append([]domain.ActorID(nil), p.order...) {
			if !present[id] {
				p.remove(id)
			}
		}
	}

	// 3. Акторы
	for _, v := range msg.Actors {
		p.upsert(v)
	}

	// 4. Действия
	for _, s := range msg.Actions {
		a := p.actors[domain.ActorID(s.Owner)]
		if a == nil || a.actions == nil {
			continue
		}
		a.actions.ApplyDelta(FromActionSync(s))
	}

	// 5. Атрибуты
	for _, v := range msg.Attributes {
		a := p.actors[domain.ActorID(v.ActorID)]
		if a == nil || a.attrs == nil {
			continue
		}
		a.attrs.ApplyReplicated(v.Health, v.HealthMax, v.Rage, v.RageMax)
	}

	// 6. Удаления
	for _, id := range msg.Despawned {
		p.remove(domain.ActorID(id))
	}

	// 7. Лог
	for _, e := range msg.Logs {
		p.logs = append(p.logs, e)
		if p.onLog != nil {
			p.onLog(e)
		}
	}
	if over := len(p.logs) - maxProxyLogs; over > 0 {
		p.logs = append([]api.LogEntry(nil), p.logs[over:]...)
	}
}

func (p *Proxy) upsert(v api.ActorView) {
	id := domain.ActorID(v.ID)
	a, ok := p.actors[id]
	if !ok {
		kind := domain.ParseKind(v.Kind)
		a = newActor(id, v.Name, kind)
		if kind == domain.KindPlayer || kind == domain.KindBot {
			a.attrs = attribute.New(id, 0, 0, p.tun)
			a.actions = action.NewComponent(a, p, p.registry, nil)
		}
		p.actors[id] = a
		p.order = append(p.order, id)
	}

	a.Name = v.Name
	a.Class = v.Class
	a.pos = domain.Vec{X: v.Pos.X, Y: v.Pos.Y}
	a.active = v.Active
	a.credits = v.Credits
	a.Blackboard.SetTarget(domain.ActorID(v.Target))

	if id == p.self && a.actions != nil {
		a.actions.SetForwarder(p.forwarder)
	}
}

// remove сводит запущенные действия к остановке (теги снимаются ровно раз) и забывает актора.
func (p *Proxy) remove(id domain.ActorID) {
	a, ok := p.actors[id]
	if !ok {
		return
	}
	if a.actions != nil {
		d := action.Delta{Owner: id}
		for _, act := range a.actions.Actions() {
			d.Removed = append(d.Removed, act.NetID())
		}
		a.actions.ApplyDelta(d)
	}
	delete(p.actors, id)
	for i, other := range p.order {
		if other == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *Proxy) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"component": "proxy", "self": p.self})
}
