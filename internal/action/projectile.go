package action

import (
	"ability-server/internal/domain"
	"ability-server/internal/timer"
)

// ProjectileAttack - атака с задержкой замаха.
// Через WindUp берет текущую цель владельца, наносит урон и вешает эффект.
// Если цель парирует (ParryTag), урон отражается в атакующего.
type ProjectileAttack struct {
	Base
	Damage      float64 // Положительное число
	WindUp      float64
	RageCost    float64
	OnHitEffect string     // Класс эффекта для цели ("" - нет)
	ParryTag    domain.Tag // "" - парирование не проверяется

	handle timer.Handle
}

func NewProjectileAttack(def Definition, damage, windUp float64) *ProjectileAttack {
	return &ProjectileAttack{Base: NewBase(def), Damage: damage, WindUp: windUp}
}

// CanStart дополнительно требует ярость.
func (p *ProjectileAttack) CanStart(instigator domain.ActorID) bool {
	if !p.Base.CanStart(instigator) {
		return false
	}
	if p.RageCost <= 0 {
		return true
	}
	attrs := p.comp.Owner().Attributes()
	return attrs != nil && attrs.Rage() >= p.RageCost
}

func (p *ProjectileAttack) OnStart(instigator domain.ActorID) {
	if !p.comp.HasAuthority() {
		return
	}
	if p.RageCost > 0 {
		p.comp.Owner().Attributes().ApplyRageChange(instigator, -p.RageCost)
	}
	p.handle = p.comp.timers().SetTimer(p.WindUp, false, func() {
		p.fire(instigator)
	})
}

func (p *ProjectileAttack) BeforeStop(domain.ActorID) {
	p.comp.timers().Clear(p.handle)
	p.handle = 0
}

func (p *ProjectileAttack) fire(instigator domain.ActorID) {
	p.handle = 0
	owner := p.comp.Owner()
	entry := p.log()

	// 1. Цель
	target := p.comp.env.Find(owner.CurrentTarget())
	if target == nil || target.Attributes() == nil || !target.Attributes().IsAlive() {
		entry.Debug("No target at release")
		p.finish(instigator)
		return
	}

	// 2. Парирование
	if p.ParryTag != "" && target.Actions() != nil && target.Actions().HasTag(p.ParryTag) {
		entry.WithField("target", target.ID()).Info("Attack parried")
		if attrs := owner.Attributes(); attrs != nil {
			attrs.ApplyHealthChange(target.ID(), -p.Damage)
		}
		p.finish(instigator)
		return
	}

	// 3. Урон и эффект при попадании
	targetAttrs := target.Attributes()
	if targetAttrs.ApplyHealthChange(owner.ID(), -p.Damage) && p.OnHitEffect != "" && targetAttrs.IsAlive() && target.Actions() != nil {
		if _, err := target.Actions().AddAction(owner.ID(), p.OnHitEffect); err != nil {
			entry.WithError(err).Warn("On-hit effect not applied")
		}
	}

	p.finish(instigator)
}

// finish останавливает атаку, если ее еще не остановили (отраженный урон мог убить владельца).
func (p *ProjectileAttack) finish(instigator domain.ActorID) {
	if p.running {
		p.self.Stop(instigator)
	}
}
