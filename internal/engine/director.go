package engine

import (
	"fmt"

	"ability-server/internal/catalog"
	"ability-server/internal/domain"
	"ability-server/internal/timer"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Имена сундуков на карте. Имя - ключ в сохранении.
var chestNames = []string{"Chest_1", "Chest_2"}

// Director управляет населением мира: спавн ботов по бюджету и кривой сложности,
// пауэрапы, награды за убийства и респавн игроков.
type Director struct {
	w *World

	budget      float64
	spawnHandle timer.Handle
}

func NewDirector(w *World) *Director {
	return &Director{w: w}
}

// Budget - накопленный бюджет спавна.
func (d *Director) Budget() float64 { return d.budget }

// Start раскладывает пауэрапы и сундуки и включает таймер спавна.
func (d *Director) Start() {
	d.spawnPowerups()
	d.spawnChests()

	if d.w.cfg.SpawnInterval > 0 {
		d.spawnHandle = d.w.timers.SetTimer(d.w.cfg.SpawnInterval, true, d.spawnTick)
	}
}

// Stop выключает таймер спавна.
func (d *Director) Stop() {
	d.w.timers.Clear(d.spawnHandle)
	d.spawnHandle = 0
}

// spawnTick - одно срабатывание таймера спавна.
func (d *Director) spawnTick() {
	// 1. Выключатель
	if !d.w.tun.SpawnBots() {
		return
	}

	// 2. Бюджет растет всегда, даже когда лимит достигнут
	d.budget += d.w.cat.SpawnBudgetRate * d.w.cfg.SpawnInterval

	// 3. Лимит живых ботов по кривой сложности
	alive := 0
	for _, bot := range d.w.ActorsOfKind(domain.KindBot) {
		if bot.IsAlive() {
			alive++
		}
	}
	maxBots := d.w.cat.MaxBotsAt(d.w.Now())
	if float64(alive) >= maxBots {
		return
	}

	// 4. Выбор монстра, которого можем себе позволить
	def, ok := d.pickMonster()
	if !ok {
		return
	}

	// 5. Точка
	pts, err := d.w.spawner.Candidates(1, 0, nil)
	if err != nil || len(pts) == 0 {
		d.log().WithError(err).Warn("Spawn bot failed: no location")
		return
	}

	d.budget -= def.SpawnCost
	bot := d.w.SpawnBot(def, pts[0])
	d.log().WithFields(logrus.Fields{
		"bot":      bot.ID(),
		"class":    def.Name,
		"alive":    alive + 1,
		"max_bots": maxBots,
		"budget":   d.budget,
	}).Info("Spawned bot")
}

// pickMonster - взвешенный случайный выбор среди монстров по карману.
func (d *Director) pickMonster() (catalog.MonsterDef, bool) {
	var affordable []catalog.MonsterDef
	total := 0.0
	for _, m := range d.w.cat.Monsters {
		if m.SpawnCost <= d.budget && m.Weight > 0 {
			affordable = append(affordable, m)
			total += m.Weight
		}
	}
	if len(affordable) == 0 {
		return catalog.MonsterDef{}, false
	}

	roll := d.w.rng.Float64() * total
	for _, m := range affordable {
		roll -= m.Weight
		if roll < 0 {
			return m, true
		}
	}
	return affordable[len(affordable)-1], true
}

// spawnPowerups раскладывает пауэрапы с минимальной дистанцией друг от друга.
func (d *Director) spawnPowerups() {
	if len(d.w.cat.Powerups) == 0 || d.w.cfg.DesiredPowerupCount <= 0 {
		return
	}

	pts, err := d.w.spawner.Candidates(d.w.cfg.DesiredPowerupCount, d.w.cfg.RequiredPowerupDistance, nil)
	if err != nil {
		d.log().WithError(err).Warn("Powerups not spawned")
		return
	}

	total := 0.0
	for _, p := range d.w.cat.Powerups {
		total += p.Weight
	}
	for _, pos := range pts {
		d.w.SpawnPowerup(d.pickPowerup(total), pos)
	}
	d.log().WithField("count", len(pts)).Info("Powerups spawned")
}

func (d *Director) pickPowerup(total float64) catalog.PowerupDef {
	if total <= 0 {
		return d.w.cat.Powerups[d.w.rng.Intn(len(d.w.cat.Powerups))]
	}
	roll := d.w.rng.Float64() * total
	for _, p := range d.w.cat.Powerups {
		roll -= p.Weight
		if roll < 0 {
			return p
		}
	}
	return d.w.cat.Powerups[len(d.w.cat.Powerups)-1]
}

func (d *Director) spawnChests() {
	used := make([]domain.Vec, 0, len(d.w.order))
	for _, a := range d.w.Actors() {
		used = append(used, a.pos)
	}
	pts, err := d.w.spawner.Candidates(len(chestNames), d.w.cfg.RequiredPowerupDistance, used)
	if err != nil {
		d.log().WithError(err).Warn("Chests not spawned")
		return
	}
	for i, pos := range pts {
		d.w.SpawnChest(chestNames[i], pos)
	}
}

// OnActorKilled - реакция на смерть: награда убийце, респавн или уборка трупа.
func (d *Director) OnActorKilled(victimID, killerID domain.ActorID) {
	victim := d.w.actors[victimID]
	if victim == nil {
		return
	}

	// 1. Мертвые ничего не делают
	if victim.actions != nil {
		victim.actions.StopAll(killerID)
	}

	// 2. Награда
	killerName := "мир"
	if killer := d.w.actors[killerID]; killer != nil {
		killerName = killer.Name
		if killerID != victimID && killer.Kind == domain.KindPlayer {
			reward := d.w.cfg.CreditsPerKill
			if victim.Kind == domain.KindBot {
				if def, ok := d.w.cat.Monster(victim.Class); ok && def.KillReward > 0 {
					reward = def.KillReward
				}
			}
			killer.AddCredits(reward)
		}
	}
	d.w.AddLog(fmt.Sprintf("%s погибает, убийца: %s", victim.Name, killerName), LogCombat)

	// 3. Игрок возрождается, бот исчезает. Хендлы локальные: у каждой смерти свой таймер.
	switch victim.Kind {
	case domain.KindPlayer:
		d.w.timers.SetTimer(d.w.cfg.RespawnDelay, false, func() {
			d.respawn(victimID)
		})
	case domain.KindBot:
		d.w.timers.SetTimer(d.w.cfg.CorpseLifetime, false, func() {
			d.w.Despawn(victimID)
		})
	}
}

func (d *Director) respawn(id domain.ActorID) {
	p := d.w.actors[id]
	if p == nil || p.IsAlive() {
		return
	}
	p.attrs.Revive(domain.NoActor)
	p.SetPosition(d.w.pickPosition())
	d.w.AddLog(fmt.Sprintf("%s возрождается", p.Name), LogInfo)
}

func (d *Director) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"component": "director"})
}
