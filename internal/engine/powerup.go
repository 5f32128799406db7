package engine

import (
	"fmt"

	"ability-server/internal/catalog"
)

// Powerup - подбираемый предмет. После использования прячется на Cooldown секунд.
type Powerup struct {
	def catalog.PowerupDef
}

func (p *Powerup) Def() catalog.PowerupDef { return p.def }

func (p *Powerup) Interact(w *World, self, instigator *Actor) string {
	if !self.active {
		return fmt.Sprintf("%s пока недоступен", self.Name)
	}

	switch p.def.Kind {
	case catalog.PowerupHealth:
		attrs := instigator.attrs
		if attrs == nil || attrs.IsFullHealth() {
			return "Здоровье уже полное"
		}
		if !instigator.RemoveCredits(p.def.CreditCost) {
			return fmt.Sprintf("Не хватает кредитов: %s стоит %d", self.Name, p.def.CreditCost)
		}
		attrs.ApplyHealthChange(self.id, attrs.HealthMax())

	case catalog.PowerupCoin:
		instigator.AddCredits(p.def.Credits)

	case catalog.PowerupAction:
		comp := instigator.actions
		if comp == nil {
			return fmt.Sprintf("%s не может выучить %s", instigator.Name, p.def.GrantClass)
		}
		// Один раз на игрока
		if comp.GetAction(p.def.GrantClass) != nil {
			return fmt.Sprintf("%s уже знает %s", instigator.Name, p.def.GrantClass)
		}
		if _, err := comp.AddAction(instigator.id, p.def.GrantClass); err != nil {
			w.log().WithError(err).WithField("powerup", self.Name).Error("Grant action failed")
			return fmt.Sprintf("%s сломан", self.Name)
		}

	default:
		return fmt.Sprintf("%s ничего не делает", self.Name)
	}

	p.hide(w, self)
	return fmt.Sprintf("%s использует %s", instigator.Name, self.Name)
}

// hide прячет пауэрап и ставит одноразовый таймер на возвращение.
func (p *Powerup) hide(w *World, self *Actor) {
	self.SetActive(false)
	id := self.id
	w.timers.SetTimer(p.def.Cooldown, false, func() {
		if a := w.actors[id]; a != nil {
			a.SetActive(true)
		}
	})
}
