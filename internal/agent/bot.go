package agent

import (
	"context"

	"ability-server/internal/ai"
	"ability-server/internal/catalog"
	"ability-server/internal/client"
	"ability-server/internal/domain"
	"ability-server/internal/engine"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	// decisionInterval - как часто агент пересматривает план (секунды мирового времени).
	decisionInterval = 0.1
	// lowHealthRatio - ниже этой доли здоровья агент ищет зелье.
	lowHealthRatio = 0.5
	attackAction   = "PrimaryAttack"
)

// Plan - решение агента на один шаг.
type Plan struct {
	Target   domain.ActorID // Кого держать в цели (NoActor - никого)
	Attack   bool
	MoveTo   *domain.Vec
	Interact domain.ActorID
}

// Bot представляет собой "Игрока-компьютера" (Headless Agent).
// Подключается к серверу так же, как обычный игрок, видит мир через прокси
// и на каждом шаге решает, что делать: драться, лечиться или собирать монеты.
type Bot struct {
	session *client.Session
	cat     *catalog.Catalog
	profile ai.Profile

	lastDecision float64
	target       domain.ActorID
}

func NewBot(session *client.Session, cat *catalog.Catalog, profile ai.Profile) *Bot {
	return &Bot{
		session:      session,
		cat:          cat,
		profile:      profile,
		lastDecision: -decisionInterval,
	}
}

// Run запускает цикл жизни бота. Возвращается при отмене ctx или обрыве соединения.
func (b *Bot) Run(ctx context.Context) error {
	b.log().Info("Agent started")
	defer b.log().Info("Agent shut down")
	return b.session.Run(ctx, b.onFrame)
}

// onFrame вызывается в горутине сессии, прокси можно читать напрямую.
func (b *Bot) onFrame(p *engine.Proxy) {
	if p.Now()-b.lastDecision < decisionInterval {
		return
	}
	b.lastDecision = p.Now()

	plan := Decide(p, b.cat, b.profile)
	b.execute(p, plan)
}

func (b *Bot) execute(p *engine.Proxy, plan Plan) {
	// 1. Цель
	if plan.Target != b.target {
		if err := b.session.SetTarget(plan.Target); err != nil {
			b.log().WithError(err).Debug("set target failed")
			return
		}
		b.target = plan.Target
	}

	// 2. Атака (предсказывается локально, сервер подтвердит или откатит)
	if plan.Attack {
		self := p.Self()
		if a := self.Actions().GetActionByName(attackAction); a != nil && !a.IsRunning() {
			p.StartAction(attackAction)
		}
	}

	// 3. Движение и взаимодействие
	if plan.Interact.IsValid() {
		if err := b.session.Interact(plan.Interact); err != nil {
			b.log().WithError(err).Debug("interact failed")
		}
	}
	if plan.MoveTo != nil {
		if err := b.session.Move(*plan.MoveTo); err != nil {
			b.log().WithError(err).Debug("move failed")
		}
	}
}

// Decide - мозг агента. Чистая функция от состояния прокси.
func Decide(p *engine.Proxy, cat *catalog.Catalog, profile ai.Profile) Plan {
	self := p.Self()
	if self == nil || !self.IsAlive() || self.Actions() == nil {
		return Plan{} // Мертвые не ходят
	}
	pos := self.Position()

	// 1. Враг в радиусе обзора
	var enemies []ai.Candidate
	for _, a := range p.Actors() {
		if a.Kind == domain.KindBot && a.IsAlive() {
			enemies = append(enemies, ai.Candidate{ID: a.ID(), Pos: a.Position()})
		}
	}
	enemy, hasEnemy := ai.SenseTarget(pos, enemies, profile.SightRadius)

	// 2. Мало здоровья - к зелью, если хватает кредитов
	if attrs := self.Attributes(); attrs != nil && attrs.HealthMax() > 0 &&
		attrs.Health()/attrs.HealthMax() < lowHealthRatio {
		if potion, ok := nearestPowerup(p, cat, pos, func(def catalog.PowerupDef) bool {
			return def.Kind == catalog.PowerupHealth && def.CreditCost <= self.Credits()
		}); ok {
			return approach(pos, potion, enemy.ID)
		}
	}

	// 3. Бой
	if hasEnemy {
		decision, _ := ai.ComputeBotAction(pos, enemy.Pos, true, profile, decisionInterval)
		plan := Plan{Target: enemy.ID}
		switch decision {
		case ai.DecisionAttack:
			plan.Attack = true
		case ai.DecisionMove:
			to := enemy.Pos
			plan.MoveTo = &to
		}
		return plan
	}

	// 4. Монеты и книги
	if loot, ok := nearestPowerup(p, cat, pos, func(def catalog.PowerupDef) bool {
		return def.Kind != catalog.PowerupHealth
	}); ok {
		return approach(pos, loot, domain.NoActor)
	}
	return Plan{}
}

// approach идет к актору и взаимодействует с ним, когда дошел.
func approach(pos domain.Vec, target *engine.Actor, keepTarget domain.ActorID) Plan {
	plan := Plan{Target: keepTarget}
	if pos.DistanceTo(target.Position()) <= engine.InteractRange {
		plan.Interact = target.ID()
		return plan
	}
	to := target.Position()
	plan.MoveTo = &to
	return plan
}

func nearestPowerup(p *engine.Proxy, cat *catalog.Catalog, pos domain.Vec, accept func(catalog.PowerupDef) bool) (*engine.Actor, bool) {
	var best *engine.Actor
	bestDist := 0.0
	for _, a := range p.Actors() {
		if a.Kind != domain.KindPowerup || !a.IsActive() {
			continue
		}
		def, ok := cat.Powerup(a.Class)
		if !ok || !accept(def) {
			continue
		}
		d := pos.DistanceSquaredTo(a.Position())
		if best == nil || d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, best != nil
}

func (b *Bot) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"component": "agent", "actor": b.session.SelfID()})
}
