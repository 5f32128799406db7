package action

import (
	"ability-server/internal/domain"
	"ability-server/internal/timer"
)

// TimedAction - переключаемое действие (рывок, парирование), которое само
// останавливается через Duration, но остается в компоненте.
type TimedAction struct {
	Base
	Duration float64

	handle timer.Handle
}

func NewTimedAction(def Definition, duration float64) *TimedAction {
	return &TimedAction{Base: NewBase(def), Duration: duration}
}

func (t *TimedAction) OnStart(instigator domain.ActorID) {
	if !t.comp.HasAuthority() || t.Duration <= 0 {
		return
	}
	t.handle = t.comp.timers().SetTimer(t.Duration, false, func() {
		t.self.Stop(instigator)
	})
}

func (t *TimedAction) BeforeStop(domain.ActorID) {
	t.comp.timers().Clear(t.handle)
	t.handle = 0
}
