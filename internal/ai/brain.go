package ai

import (
	"ability-server/internal/domain"
)

// Decision - что бот делает в этом тике
type Decision uint8

const (
	DecisionIdle Decision = iota
	DecisionMove
	DecisionAttack
)

func (d Decision) String() string {
	switch d {
	case DecisionMove:
		return "MOVE"
	case DecisionAttack:
		return "ATTACK"
	default:
		return "IDLE"
	}
}

// Candidate - видимый игрок.
type Candidate struct {
	ID  domain.ActorID
	Pos domain.Vec
}

// Profile - параметры поведения бота.
type Profile struct {
	SightRadius float64 // Радиус обнаружения
	AttackRange float64 // С какой дистанции бот атакует
	Speed       float64 // Метров в секунду
}

// DefaultProfile - для ботов без настроек.
func DefaultProfile(sight float64) Profile {
	return Profile{SightRadius: sight, AttackRange: 15, Speed: 4}
}

// SenseTarget выбирает ближайшего кандидата в радиусе обзора.
func SenseTarget(self domain.Vec, candidates []Candidate, radius float64) (Candidate, bool) {
	var best Candidate
	found := false
	bestDist := radius * radius

	for _, c := range candidates {
		d := self.DistanceSquaredTo(c.Pos)
		if d <= bestDist {
			bestDist = d
			best = c
			found = true
		}
	}
	return best, found
}

// ComputeBotAction решает, что делать боту.
// Возвращает решение и, для MOVE, новую позицию.
func ComputeBotAction(self, target domain.Vec, hasTarget bool, p Profile, dt float64) (Decision, domain.Vec) {
	if !hasTarget {
		return DecisionIdle, self
	}

	dist := self.DistanceTo(target)

	// 1. Цель ушла за радиус обзора
	if dist > p.SightRadius {
		return DecisionIdle, self
	}

	// 2. В радиусе атаки
	if dist <= p.AttackRange {
		return DecisionAttack, self
	}

	// 3. Преследование: останавливаемся на границе радиуса атаки
	step := p.Speed * dt
	if step <= 0 {
		return DecisionIdle, self
	}
	if remaining := dist - p.AttackRange; step > remaining {
		step = remaining
	}
	return DecisionMove, self.StepTowards(target, step)
}
