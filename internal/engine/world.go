package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"ability-server/internal/action"
	"ability-server/internal/ai"
	"ability-server/internal/attribute"
	"ability-server/internal/catalog"
	"ability-server/internal/config"
	"ability-server/internal/domain"
	"ability-server/internal/engine/handlers"
	"ability-server/internal/infrastructure/storage"
	"ability-server/internal/timer"
	"ability-server/pkg/api"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	// PlayerSpeed - метров в секунду для команды MOVE.
	PlayerSpeed = 8.0
	// InteractRange - максимальная дистанция до пауэрапа/сундука.
	InteractRange = 5.0
	// attackActionName - имя, которым боты атакуют.
	attackActionName = "PrimaryAttack"
)

var (
	ErrActorNotFound    = errors.New("actor not found")
	ErrNotInteractable  = errors.New("actor is not interactable")
	ErrTooFar           = errors.New("target is too far")
	ErrStorageDisabled  = errors.New("save storage is not configured")
	ErrInstigatorIsDead = errors.New("instigator is dead")
)

// World - авторитетная симуляция: акторы, таймеры, директор.
// Живет в одной горутине (Instance.Run), поэтому без мьютексов.
type World struct {
	cfg      config.Config
	cat      *catalog.Catalog
	registry *action.Registry
	tun      *config.Tunables
	timers   *timer.Manager
	rng      *rand.Rand
	spawner  SpawnSelector
	store    storage.Store
	director *Director

	actors map[domain.ActorID]*Actor
	order  []domain.ActorID // Порядок появления (детерминированные обходы)

	// Накопленное между кадрами
	despawned []domain.ActorID
	logs      []api.LogEntry
	logSeq    int

	// Кредиты из сохранения для игроков, которые еще не зашли
	savedCredits map[domain.ActorID]int
}

// NewWorld собирает мир. store может быть nil (без сохранений).
func NewWorld(cfg config.Config, cat *catalog.Catalog, tun *config.Tunables, store storage.Store) *World {
	rng := rand.New(rand.NewSource(cfg.Seed))
	w := &World{
		cfg:          cfg,
		cat:          cat,
		registry:     cat.Registry(),
		tun:          tun,
		timers:       timer.NewManager(),
		rng:          rng,
		spawner:      NewUniformSelector(rng, cfg.WorldSize),
		store:        store,
		actors:       make(map[domain.ActorID]*Actor),
		savedCredits: make(map[domain.ActorID]int),
	}
	w.director = NewDirector(w)
	return w
}

// --- action.Env ---

func (w *World) Timers() *timer.Manager     { return w.timers }
func (w *World) HasAuthority() bool         { return true }
func (w *World) Tunables() *config.Tunables { return w.tun }

// Find возвращает nil-интерфейс, если актора нет.
func (w *World) Find(id domain.ActorID) action.Actor {
	a, ok := w.actors[id]
	if !ok {
		return nil
	}
	return a
}

// --- handlers.World ---

// Lookup - то же, что Find, для хендлеров команд.
func (w *World) Lookup(id domain.ActorID) (handlers.Actor, bool) {
	a, ok := w.actors[id]
	if !ok {
		return nil, false
	}
	return a, true
}

func (w *World) Size() float64 { return w.cfg.WorldSize }

// MoveStep - максимальное смещение игрока за одну команду MOVE.
func (w *World) MoveStep() float64 {
	return PlayerSpeed * w.cfg.TickInterval().Seconds()
}

// --- Доступ ---

func (w *World) Now() float64               { return w.timers.Now() }
func (w *World) Catalog() *catalog.Catalog  { return w.cat }
func (w *World) Director() *Director        { return w.director }
func (w *World) Actor(id domain.ActorID) *Actor { return w.actors[id] }

// SetSpawner подменяет выбор точек спавна (тесты, кастомные карты).
func (w *World) SetSpawner(s SpawnSelector) { w.spawner = s }

// Actors - все акторы в порядке появления.
func (w *World) Actors() []*Actor {
	out := make([]*Actor, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.actors[id])
	}
	return out
}

// ActorsOfKind - живые и мертвые акторы одного вида.
func (w *World) ActorsOfKind(kind domain.ActorKind) []*Actor {
	var out []*Actor
	for _, id := range w.order {
		if a := w.actors[id]; a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Start запускает директора: пауэрапы, сундуки, таймер спавна.
func (w *World) Start() {
	w.director.Start()
}

// ReloadCatalog подменяет контент на лету.
// Уже созданные действия не трогаются, новые берутся из нового реестра.
func (w *World) ReloadCatalog(cat *catalog.Catalog) {
	w.cat = cat
	cat.Install(w.registry)
	w.log().WithField("classes", len(w.registry.Classes())).Info("Catalog reloaded")
}

// Step - один тик симуляции.
func (w *World) Step(dt float64) {
	// 1. Таймеры (эффекты, замахи, спавн, респавн)
	w.timers.Advance(dt)

	// 2. Боты
	w.thinkBots(dt)
}

// --- Спавн ---

// SpawnPlayer создает игрока. Пустой id - новый игрок.
// Если игрок с таким id уже в мире, возвращается он же (переподключение).
func (w *World) SpawnPlayer(id domain.ActorID, name string) *Actor {
	if existing, ok := w.actors[id]; ok && existing.Kind == domain.KindPlayer {
		return existing
	}
	if !id.IsValid() {
		id = domain.NewActorID()
	}
	if name == "" {
		name = "Player"
	}

	a := newActor(id, name, domain.KindPlayer)
	a.pos = w.pickPosition()
	a.credits = w.savedCredits[id]
	delete(w.savedCredits, id)

	w.attachAttributes(a, w.cat.Player.Health, w.cat.Player.Rage)
	w.attachActions(a, w.cat.Player.Actions)
	w.add(a)

	a.actions.OnRejected(func(_ *action.Component, name string) {
		w.AddLog(fmt.Sprintf("%s: %s сейчас недоступно", a.Name, name), LogReject)
	})
	a.actions.InitDefaults()

	w.AddLog(fmt.Sprintf("%s входит в игру", a.Name), LogInfo)
	return a
}

// SpawnBot создает монстра из каталога.
func (w *World) SpawnBot(def catalog.MonsterDef, pos domain.Vec) *Actor {
	a := newActor(domain.NewActorID(), def.Name, domain.KindBot)
	a.Class = def.Name
	a.pos = pos
	a.Profile = ai.DefaultProfile(w.cfg.SightRadius)

	w.attachAttributes(a, def.Health, 0)
	w.attachActions(a, def.Actions)
	w.add(a)
	a.actions.InitDefaults()

	w.log().WithFields(logrus.Fields{"bot": a.id, "class": def.Name}).Debug("Bot spawned")
	return a
}

// SpawnPowerup создает пауэрап.
func (w *World) SpawnPowerup(def catalog.PowerupDef, pos domain.Vec) *Actor {
	a := newActor(domain.NewActorID(), def.Name, domain.KindPowerup)
	a.Class = def.Name
	a.pos = pos
	a.behavior = &Powerup{def: def}
	w.add(a)
	return a
}

// SpawnChest создает сундук. Имя - ключ в сохранении.
func (w *World) SpawnChest(name string, pos domain.Vec) *Actor {
	a := newActor(domain.NewActorID(), name, domain.KindChest)
	a.pos = pos
	a.active = false
	a.behavior = &Chest{actor: a}
	w.add(a)
	return a
}

// Despawn убирает актора из мира.
func (w *World) Despawn(id domain.ActorID) {
	a, ok := w.actors[id]
	if !ok {
		return
	}
	if a.actions != nil {
		a.actions.StopAll(domain.NoActor)
	}
	delete(w.actors, id)
	for i, other := range w.order {
		if other == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.despawned = append(w.despawned, id)
}

func (w *World) add(a *Actor) {
	w.actors[a.id] = a
	w.order = append(w.order, a.id)
}

func (w *World) attachAttributes(a *Actor, health, rage float64) {
	a.attrs = attribute.New(a.id, health, rage, w.tun)
	a.attrs.OnChanged(func(attribute.Change) {
		a.attrDirty = true
	})
	a.attrs.OnDeath(func(victim, killer domain.ActorID) {
		w.director.OnActorKilled(victim, killer)
	})
}

func (w *World) attachActions(a *Actor, defaults []string) {
	a.actions = action.NewComponent(a, w, w.registry, defaults)
}

func (w *World) pickPosition() domain.Vec {
	pts, err := w.spawner.Candidates(1, 0, nil)
	if err != nil || len(pts) == 0 {
		return domain.Vec{X: w.cfg.WorldSize / 2, Y: w.cfg.WorldSize / 2}
	}
	return pts[0]
}

// --- ИИ ---

func (w *World) thinkBots(dt float64) {
	// 1. Кандидаты: живые игроки
	var players []ai.Candidate
	for _, id := range w.order {
		a := w.actors[id]
		if a.Kind == domain.KindPlayer && a.IsAlive() {
			players = append(players, ai.Candidate{ID: a.id, Pos: a.pos})
		}
	}

	for _, id := range w.order {
		bot := w.actors[id]
		if bot == nil || bot.Kind != domain.KindBot || !bot.IsAlive() {
			continue
		}

		// 2. Восприятие
		target, found := ai.SenseTarget(bot.pos, players, bot.Profile.SightRadius)
		if found {
			bot.SetTarget(target.ID)
		} else {
			bot.SetTarget(domain.NoActor)
		}

		// 3. Решение
		decision, next := ai.ComputeBotAction(bot.pos, target.Pos, found, bot.Profile, dt)
		switch decision {
		case ai.DecisionMove:
			bot.SetPosition(next)
		case ai.DecisionAttack:
			if attack := bot.actions.GetActionByName(attackActionName); attack != nil && !attack.IsRunning() {
				bot.actions.StartActionByName(bot.id, attackActionName)
			}
		}
	}
}

// --- Команды ---

// Interact - игрок использует пауэрап или сундук.
func (w *World) Interact(instigator, target domain.ActorID) (string, error) {
	inst, ok := w.actors[instigator]
	if !ok {
		return "", fmt.Errorf("instigator %s: %w", instigator, ErrActorNotFound)
	}
	t, ok := w.actors[target]
	if !ok {
		return "", fmt.Errorf("target %s: %w", target, ErrActorNotFound)
	}
	if !inst.IsAlive() {
		return "", ErrInstigatorIsDead
	}
	if t.behavior == nil {
		return "", fmt.Errorf("%s: %w", t.Name, ErrNotInteractable)
	}
	if inst.pos.DistanceTo(t.pos) > InteractRange {
		return "", fmt.Errorf("%s: %w", t.Name, ErrTooFar)
	}
	return t.behavior.Interact(w, t, inst), nil
}

// KillAll убивает всех живых ботов от имени instigator. Возвращает число убитых.
func (w *World) KillAll(instigator domain.ActorID) int {
	killed := 0
	for _, bot := range w.ActorsOfKind(domain.KindBot) {
		if bot.IsAlive() && bot.attrs.Kill(instigator) {
			killed++
		}
	}
	return killed
}

// --- Сохранения ---

// BuildSave собирает слот: кредиты игроков и блобы Saveable-акторов.
func (w *World) BuildSave(slot string, timestamp int64) *domain.SaveGame {
	sg := &domain.SaveGame{Slot: slot, Timestamp: timestamp}

	// Игроки, которые сейчас в мире, и те, что ушли, но есть в сохранении
	for _, a := range w.ActorsOfKind(domain.KindPlayer) {
		sg.Players = append(sg.Players, domain.PlayerSave{ID: a.id, Credits: a.credits})
	}
	for id, credits := range w.savedCredits {
		sg.Players = append(sg.Players, domain.PlayerSave{ID: id, Credits: credits})
	}
	sort.Slice(sg.Players, func(i, j int) bool { return sg.Players[i].ID < sg.Players[j].ID })

	for _, id := range w.order {
		a := w.actors[id]
		s, ok := a.behavior.(Saveable)
		if !ok {
			continue
		}
		sg.Actors = append(sg.Actors, domain.ActorSave{Name: a.Name, Pos: a.pos, Data: s.SaveState()})
	}
	return sg
}

// ApplySave восстанавливает состояние из слота.
func (w *World) ApplySave(sg *domain.SaveGame) {
	for _, p := range sg.Players {
		if a, ok := w.actors[p.ID]; ok {
			a.credits = p.Credits
			a.dirty = true
			continue
		}
		w.savedCredits[p.ID] = p.Credits
	}

	for _, id := range w.order {
		a := w.actors[id]
		s, ok := a.behavior.(Saveable)
		if !ok {
			continue
		}
		rec, found := sg.FindActor(a.Name)
		if !found {
			continue
		}
		a.SetPosition(rec.Pos)
		s.OnActorLoaded(rec.Data)
	}

	w.log().WithFields(logrus.Fields{
		"slot":    sg.Slot,
		"players": len(sg.Players),
		"actors":  len(sg.Actors),
	}).Info("Save game applied")
}

// Save пишет текущее состояние в хранилище.
func (w *World) Save(ctx context.Context, slot string) error {
	if w.store == nil {
		return ErrStorageDisabled
	}
	if slot == "" {
		slot = w.cfg.SaveSlot
	}
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	sg := w.BuildSave(slot, wallClockMillis())
	if err := w.store.Save(ctx, sg); err != nil {
		return fmt.Errorf("save slot %q: %w", slot, err)
	}
	w.log().WithField("slot", slot).Info("Game saved")
	return nil
}

// Load читает слот и применяет его. Отсутствующий слот - не ошибка.
func (w *World) Load(ctx context.Context, slot string) error {
	if w.store == nil {
		return nil
	}
	if slot == "" {
		slot = w.cfg.SaveSlot
	}
	sg, err := w.store.Load(ctx, slot)
	if errors.Is(err, storage.ErrNotFound) {
		w.log().WithField("slot", slot).Info("No save game, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load slot %q: %w", slot, err)
	}
	w.ApplySave(sg)
	return nil
}

func (w *World) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"component": "world"})
}
