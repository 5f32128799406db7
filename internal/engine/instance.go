package engine

import (
	"context"
	"errors"
	"time"

	"ability-server/internal/catalog"
	"ability-server/internal/config"
	"ability-server/internal/domain"
	"ability-server/internal/engine/handlers"
	"ability-server/internal/engine/handlers/actions"
	"ability-server/internal/engine/handlers/admin"
	"ability-server/internal/infrastructure/storage"
	"ability-server/internal/network"
	"ability-server/pkg/api"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	// timeSyncInterval - как часто уходит пустой кадр, чтобы клиентские часы не отставали.
	timeSyncInterval = 0.5
	// debugDumpInterval - как часто компоненты действий пишутся в лог (debug).
	debugDumpInterval = 5.0
	// shutdownSaveTimeout - сколько ждем финального сохранения.
	shutdownSaveTimeout = 5 * time.Second
)

// InstanceCommand - команда, уже привязанная к актору.
type InstanceCommand struct {
	Cmd domain.InternalCommand
}

// JoinRequest - вход игрока. Ответ приходит в Reply из горутины симуляции,
// поэтому Reply должен быть буферизованным.
type JoinRequest struct {
	Token string // ID из прошлой сессии ("" - новый игрок)
	Name  string
	Reply chan JoinResult
}

// JoinResult - ID игрока и его канал кадров. Первым в канале лежит WELCOME.
type JoinResult struct {
	ID      domain.ActorID
	Updates chan api.ServerMessage
	Err     error
}

// LeaveRequest - отключение. Ch нужен, чтобы старое соединение не закрыло новое.
type LeaveRequest struct {
	ID domain.ActorID
	Ch chan api.ServerMessage
}

type query struct {
	fn   func(w *World)
	done chan struct{}
}

// Instance - авторитетный игровой мир и его цикл.
// Все изменения мира происходят в горутине Run, внешний мир общается каналами.
type Instance struct {
	World *World
	Hub   *network.Broadcaster

	cfg config.Config

	// Каналы коммуникации
	CommandChan chan InstanceCommand // Команды от игроков
	JoinChan    chan JoinRequest     // Вход новых игроков
	LeaveChan   chan LeaveRequest    // Выход игроков
	reloadChan  chan *catalog.Catalog
	queryChan   chan query

	handlers map[domain.CommandType]handlers.HandlerFunc

	sinceSync  float64
	sinceDebug float64
	ticks      int
}

func NewInstance(cfg config.Config, cat *catalog.Catalog, tun *config.Tunables, store storage.Store, hub *network.Broadcaster) *Instance {
	i := &Instance{
		World:       NewWorld(cfg, cat, tun, store),
		Hub:         hub,
		cfg:         cfg,
		CommandChan: make(chan InstanceCommand, 256),
		JoinChan:    make(chan JoinRequest, 16),
		LeaveChan:   make(chan LeaveRequest, 16),
		reloadChan:  make(chan *catalog.Catalog, 1),
		queryChan:   make(chan query),
		handlers:    make(map[domain.CommandType]handlers.HandlerFunc),
	}
	i.registerHandlers()
	return i
}

func (i *Instance) registerHandlers() {
	i.handlers[domain.CommandStartAction] = handlers.WithPayload(actions.HandleStartAction)
	i.handlers[domain.CommandStopAction] = handlers.WithPayload(actions.HandleStopAction)
	i.handlers[domain.CommandMove] = handlers.WithPayload(actions.HandleMove)
	i.handlers[domain.CommandInteract] = handlers.WithPayload(actions.HandleInteract)
	i.handlers[domain.CommandSetTarget] = handlers.WithPayload(actions.HandleSetTarget)
	i.handlers[domain.CommandSave] = handlers.WithPayload(actions.HandleSave)
	i.handlers[domain.CommandKillAll] = handlers.WithEmptyPayload(admin.HandleKillAll)
}

// ProcessCommand принимает команду от внешнего мира (WebSocket).
// Token уже проверен транспортом: это ID актора этого соединения.
func (i *Instance) ProcessCommand(externalCmd api.ClientCommand) {
	cmdType := domain.ParseCommand(externalCmd.Action)
	if cmdType == domain.CommandUnknown || cmdType == domain.CommandLogin {
		i.log().WithField("action", externalCmd.Action).Warn("Unknown command")
		return
	}

	cmd := InstanceCommand{Cmd: domain.InternalCommand{
		Type:    cmdType,
		Actor:   domain.ActorID(externalCmd.Token),
		Payload: externalCmd.Payload,
	}}
	select {
	case i.CommandChan <- cmd:
	default:
		i.log().WithField("actor", externalCmd.Token).Warn("Command queue full, command dropped")
	}
}

// ReloadCatalog передает новый каталог в горутину симуляции. Старый непримененный отбрасывается.
func (i *Instance) ReloadCatalog(cat *catalog.Catalog) {
	select {
	case <-i.reloadChan:
	default:
	}
	i.reloadChan <- cat
}

// Query выполняет fn в горутине симуляции и ждет завершения (отладочные эндпоинты).
func (i *Instance) Query(ctx context.Context, fn func(w *World)) error {
	q := query{fn: fn, done: make(chan struct{})}
	select {
	case i.queryChan <- q:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Prepare раскладывает мир и поднимает сохранение. Вызывается до Run.
func (i *Instance) Prepare(ctx context.Context) error {
	i.World.Start()
	return i.World.Load(ctx, "")
}

// Run запускает игровой цикл. При отмене ctx мир сохраняется.
func (i *Instance) Run(ctx context.Context) {
	interval := i.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i.log().WithField("tick_rate", i.cfg.TickRate).Info("Instance loop started")

	for {
		select {
		case <-ctx.Done():
			i.shutdown()
			return

		case req := <-i.JoinChan:
			i.join(req)

		case req := <-i.LeaveChan:
			i.leave(req)

		case wrapper := <-i.CommandChan:
			i.executeCommand(ctx, wrapper.Cmd)

		case cat := <-i.reloadChan:
			i.World.ReloadCatalog(cat)

		case q := <-i.queryChan:
			q.fn(i.World)
			close(q.done)

		case <-ticker.C:
			// Фиксированный шаг: симуляция не зависит от дрожания тикера
			i.Tick(interval.Seconds())
		}
	}
}

// Tick - шаг симуляции и рассылка кадра.
func (i *Instance) Tick(dt float64) {
	i.ticks++
	i.World.Step(dt)
	i.flush(dt)
	i.dumpDebug(dt)
}

// flush рассылает кадр всем подписчикам и полные снимки отставшим.
func (i *Instance) flush(dt float64) {
	// 1. Кадр собирается всегда: он сбрасывает флаги изменений
	msg := i.World.CollectFrame()

	// 2. Пустые кадры только для синхронизации времени
	i.sinceSync += dt
	if !msg.IsEmpty() || i.sinceSync >= timeSyncInterval {
		i.Hub.Broadcast(msg)
		i.sinceSync = 0
	}

	// 3. Потерявшим кадры - новый WELCOME. Применение снимка идемпотентно.
	for _, id := range i.Hub.TakeLagging() {
		i.log().WithField("subscriber", id).Info("Resync lagging subscriber")
		i.Hub.SendTo(id, i.World.Snapshot(id))
	}
}

func (i *Instance) join(req JoinRequest) {
	id, err := domain.ParseActorID(req.Token)
	if err != nil {
		req.Reply <- JoinResult{Err: err}
		return
	}

	player := i.World.SpawnPlayer(id, req.Name)

	// Подписка и снимок в одной горутине с рассылкой: клиент не пропустит ни кадра
	updates := i.Hub.Register(player.ID())
	i.Hub.SendTo(player.ID(), i.World.Snapshot(player.ID()))

	i.log().WithFields(logrus.Fields{
		"actor": player.ID(),
		"name":  player.Name,
	}).Info("Client logged in")

	req.Reply <- JoinResult{ID: player.ID(), Updates: updates}
}

func (i *Instance) leave(req LeaveRequest) {
	i.Hub.UnregisterChan(req.ID, req.Ch)

	// Переподключился - актор остается
	if i.Hub.HasSubscriber(req.ID) {
		return
	}

	player := i.World.Actor(req.ID)
	if player == nil || player.Kind != domain.KindPlayer {
		return
	}
	i.World.savedCredits[player.ID()] = player.Credits()
	i.World.Despawn(player.ID())
	i.World.AddLog(player.Name+" покидает игру", LogInfo)
	i.log().WithField("actor", req.ID).Info("Client disconnected")
}

// executeCommand выполняет команду в контексте мира
func (i *Instance) executeCommand(ctx context.Context, cmd domain.InternalCommand) {
	actor := i.World.Actor(cmd.Actor)
	if actor == nil {
		i.log().WithField("actor", cmd.Actor).Warn("Command from unknown actor")
		return
	}

	handler, ok := i.handlers[cmd.Type]
	if !ok {
		return
	}

	result, err := handler(handlers.Context{Ctx: ctx, World: i.World, Actor: actor}, cmd.Payload)
	if err != nil {
		i.log().WithError(err).WithFields(logrus.Fields{
			"actor":   cmd.Actor,
			"command": cmd.Type.String(),
		}).Warn("Command rejected")
		i.Hub.SendTo(cmd.Actor, api.ServerMessage{
			Type:       api.MsgError,
			ServerTime: i.World.Now(),
			Error:      err.Error(),
		})
		return
	}

	if result.Msg != "" {
		i.World.AddLog(result.Msg, result.MsgType)
	}
}

func (i *Instance) dumpDebug(dt float64) {
	i.sinceDebug += dt
	if i.sinceDebug < debugDumpInterval {
		return
	}
	i.sinceDebug = 0

	entry := i.log()
	if !entry.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	for _, a := range i.World.Actors() {
		if a.actions == nil {
			continue
		}
		info := a.actions.Debug()
		entry.WithFields(logrus.Fields{
			"owner":   info.Owner,
			"tags":    info.Tags,
			"actions": len(info.Actions),
		}).Debug("Action component")
	}
}

func (i *Instance) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownSaveTimeout)
	defer cancel()

	if err := i.World.Save(ctx, ""); err != nil && !errors.Is(err, ErrStorageDisabled) {
		i.log().WithError(err).Error("Final save failed")
	}
	i.log().WithField("ticks", i.ticks).Info("Instance loop stopped")
}

func (i *Instance) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"component": "instance"})
}
