package action

import (
	"ability-server/internal/domain"
	"ability-server/internal/timer"
)

// Ticker - периодическое поведение эффекта (композиция вместо наследования).
type Ticker interface {
	Tick(e *Effect, instigator domain.ActorID)
}

// Effect - действие с длительностью и/или периодом.
// Duration = 0 - бесконечно, Period = 0 - без тиков.
// По окончании эффект удаляет себя из компонента.
type Effect struct {
	Base
	Duration float64
	Period   float64
	Ticker   Ticker

	ticks          int
	durationHandle timer.Handle
	periodHandle   timer.Handle
}

func NewEffect(def Definition, duration, period float64, ticker Ticker) *Effect {
	return &Effect{
		Base:     NewBase(def),
		Duration: duration,
		Period:   period,
		Ticker:   ticker,
	}
}

// OnStart планирует таймеры. Клиент таймеры не ставит, он следует за репликацией.
func (e *Effect) OnStart(instigator domain.ActorID) {
	if !e.comp.HasAuthority() {
		return
	}
	timers := e.comp.timers()

	if e.Duration > 0 {
		e.durationHandle = timers.SetTimer(e.Duration, false, func() {
			e.self.Stop(instigator)
		})
	}

	if e.Period > 0 {
		e.periodHandle = timers.SetTimer(e.Period, true, func() {
			e.ExecutePeriodicEffect(instigator)
		})
	}
}

// BeforeStop выполняет "должный" тик, если он совпал с окончанием
// (duration=3, period=1 дает 3 тика, а не 2), и снимает оба таймера.
func (e *Effect) BeforeStop(instigator domain.ActorID) {
	timers := e.comp.timers()

	if e.Period > 0 && e.periodHandle.IsValid() && timers.IsActive(e.periodHandle) {
		eps := e.comp.env.Tunables().OwedTickEpsilon()
		if timers.Remaining(e.periodHandle) < eps {
			e.ExecutePeriodicEffect(instigator)
		}
	}

	timers.Clear(e.periodHandle)
	timers.Clear(e.durationHandle)
	e.periodHandle = 0
	e.durationHandle = 0
}

// OnStop удаляет эффект из компонента (на клиенте удаление придет репликацией).
func (e *Effect) OnStop(instigator domain.ActorID) {
	if !e.comp.HasAuthority() {
		return
	}
	if err := e.comp.RemoveAction(e.self); err != nil {
		e.log().WithError(err).Error("Effect failed to remove itself")
	}
}

// ExecutePeriodicEffect - один тик.
func (e *Effect) ExecutePeriodicEffect(instigator domain.ActorID) {
	e.ticks++
	if e.Ticker != nil {
		e.Ticker.Tick(e, instigator)
	}
}

// TickCount - сколько тиков выполнено с создания.
func (e *Effect) TickCount() int { return e.ticks }

// GetTimeRemaining - сколько осталось по мировым часам.
// Для бесконечного эффекта возвращает -1.
func (e *Effect) GetTimeRemaining() float64 {
	if e.Duration <= 0 {
		return -1
	}
	if !e.running || e.comp == nil {
		return 0
	}
	left := e.startTime + e.Duration - e.comp.Now()
	if left < 0 {
		return 0
	}
	return left
}
