package attribute

import (
	"math"

	"ability-server/internal/config"
	"ability-server/internal/domain"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Resource - какой ресурс изменился
type Resource uint8

const (
	Health Resource = iota
	Rage
)

func (r Resource) String() string {
	if r == Rage {
		return "rage"
	}
	return "health"
}

// Change - уведомление об изменении ресурса
type Change struct {
	Owner      domain.ActorID
	Instigator domain.ActorID
	Resource   Resource
	NewValue   float64
	Delta      float64 // Фактическое изменение (после множителя и клэмпа)
}

// ChangeFunc - подписчик на изменения (UI, реакция ИИ, детектор смерти)
type ChangeFunc func(Change)

// DeathFunc вызывается ровно один раз на переход здоровья из >0 в 0.
type DeathFunc func(victim, killer domain.ActorID)

// Attribute - ресурсы актора: здоровье и ярость.
// Инвариант: 0 <= value <= max для каждого ресурса, меняются только через Apply*.
type Attribute struct {
	owner domain.ActorID
	tun   *config.Tunables

	health    float64
	healthMax float64
	rage      float64
	rageMax   float64

	// Режим бога: отрицательные изменения здоровья отклоняются
	undamageable bool

	onChanged []ChangeFunc
	onDeath   []DeathFunc
}

// New создает атрибуты с полным здоровьем и нулевой яростью.
func New(owner domain.ActorID, healthMax, rageMax float64, tun *config.Tunables) *Attribute {
	if tun == nil {
		tun = config.DefaultTunables()
	}
	return &Attribute{
		owner:     owner,
		tun:       tun,
		health:    healthMax,
		healthMax: healthMax,
		rageMax:   rageMax,
	}
}

func (a *Attribute) Health() float64    { return a.health }
func (a *Attribute) HealthMax() float64 { return a.healthMax }
func (a *Attribute) Rage() float64      { return a.rage }
func (a *Attribute) RageMax() float64   { return a.rageMax }

// IsAlive - здоровье больше нуля.
func (a *Attribute) IsAlive() bool {
	return a.health > 0
}

// IsFullHealth - здоровье на максимуме.
func (a *Attribute) IsFullHealth() bool {
	return a.health == a.healthMax
}

// SetUndamageable включает/выключает режим бога.
func (a *Attribute) SetUndamageable(v bool) {
	a.undamageable = v
}

// OnChanged подписывает на изменения любого ресурса.
func (a *Attribute) OnChanged(fn ChangeFunc) {
	a.onChanged = append(a.onChanged, fn)
}

// OnDeath подписывает на смерть.
func (a *Attribute) OnDeath(fn DeathFunc) {
	a.onDeath = append(a.onDeath, fn)
}

// ApplyHealthChange меняет здоровье на delta.
// Возвращает true, если значение действительно изменилось.
func (a *Attribute) ApplyHealthChange(instigator domain.ActorID, delta float64) bool {
	if delta < 0 {
		if a.undamageable {
			return false
		}
		delta *= a.tun.DamageMultiplier()
	}
	return a.applyHealth(instigator, delta)
}

// Kill гарантированно убивает: -max без множителя урона.
func (a *Attribute) Kill(instigator domain.ActorID) bool {
	if a.undamageable {
		return false
	}
	return a.applyHealth(instigator, -a.healthMax)
}

// ApplyRageChange меняет ярость. Множитель урона не применяется.
func (a *Attribute) ApplyRageChange(instigator domain.ActorID, delta float64) bool {
	if math.IsNaN(delta) {
		return false
	}

	old := a.rage
	a.rage = clamp(a.rage+delta, 0, a.rageMax)
	actual := a.rage - old
	if actual == 0 {
		return false
	}
	a.notify(Change{Owner: a.owner, Instigator: instigator, Resource: Rage, NewValue: a.rage, Delta: actual})
	return true
}

func (a *Attribute) applyHealth(instigator domain.ActorID, delta float64) bool {
	if math.IsNaN(delta) {
		return false
	}

	old := a.health
	a.health = clamp(a.health+delta, 0, a.healthMax)
	actual := a.health - old
	if actual == 0 {
		return false
	}

	a.notify(Change{Owner: a.owner, Instigator: instigator, Resource: Health, NewValue: a.health, Delta: actual})

	// Полученный урон копит ярость
	if actual < 0 && a.rageMax > 0 {
		a.ApplyRageChange(instigator, -actual*a.tun.RageGainRatio())
	}

	// Край смерти: только то изменение, что перевело >0 в 0
	if old > 0 && a.health == 0 {
		logger.Log.WithFields(logrus.Fields{
			"component":  "attribute",
			"victim":     a.owner,
			"instigator": instigator,
		}).Info("Actor died")
		for _, fn := range a.onDeath {
			fn(a.owner, instigator)
		}
	}
	return true
}

// ApplyReplicated перезаписывает значения авторитетными (клиентская сторона).
// Наблюдатели изменений уведомляются, край смерти - нет: им владеет сервер.
func (a *Attribute) ApplyReplicated(health, healthMax, rage, rageMax float64) {
	a.healthMax = math.Max(0, healthMax)
	a.rageMax = math.Max(0, rageMax)

	oldHealth, oldRage := a.health, a.rage
	a.health = clamp(health, 0, a.healthMax)
	a.rage = clamp(rage, 0, a.rageMax)

	if d := a.health - oldHealth; d != 0 {
		a.notify(Change{Owner: a.owner, Resource: Health, NewValue: a.health, Delta: d})
	}
	if d := a.rage - oldRage; d != 0 {
		a.notify(Change{Owner: a.owner, Resource: Rage, NewValue: a.rage, Delta: d})
	}
}

// Revive восстанавливает полное здоровье без уведомления о смерти (респаун).
func (a *Attribute) Revive(instigator domain.ActorID) {
	a.applyHealth(instigator, a.healthMax)
}

func (a *Attribute) notify(c Change) {
	for _, fn := range a.onChanged {
		fn(c)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
