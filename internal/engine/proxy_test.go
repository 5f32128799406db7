package engine

import (
	"encoding/json"
	"testing"

	"ability-server/internal/action"
	"ability-server/internal/domain"
	"ability-server/pkg/api"
)

// pendingRequest - запрос клиента, еще не доставленный серверу.
type pendingRequest struct {
	start      bool
	owner      domain.ActorID
	instigator domain.ActorID
	name       string
}

// queueForwarder копит запросы, тест доставляет их вручную.
type queueForwarder struct {
	queue []pendingRequest
}

func (f *queueForwarder) ServerStartAction(owner, instigator domain.ActorID, name string) {
	f.queue = append(f.queue, pendingRequest{start: true, owner: owner, instigator: instigator, name: name})
}

func (f *queueForwarder) ServerStopAction(owner, instigator domain.ActorID, name string) {
	f.queue = append(f.queue, pendingRequest{owner: owner, instigator: instigator, name: name})
}

func (f *queueForwarder) deliver(w *World) {
	for _, r := range f.queue {
		comp := w.Actor(r.owner).Actions()
		if r.start {
			comp.ServerStartAction(r.instigator, r.name)
		} else {
			comp.ServerStopAction(r.instigator, r.name)
		}
	}
	f.queue = nil
}

// wire прогоняет сообщение через JSON, как по сети.
func wire(t *testing.T, msg api.ServerMessage) api.ServerMessage {
	t.Helper()
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out api.ServerMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

type loopback struct {
	w     *World
	proxy *Proxy
	fwd   *queueForwarder
	self  *Actor
}

func newLoopback(t *testing.T) *loopback {
	t.Helper()
	w := newTestWorld(t)
	self := w.SpawnPlayer(domain.NoActor, "Hero")
	fwd := &queueForwarder{}
	p := NewProxy(w.Catalog(), fwd)
	p.Apply(wire(t, w.Snapshot(self.ID())))
	w.CollectFrame() // Все уже в снимке
	return &loopback{w: w, proxy: p, fwd: fwd, self: self}
}

// sync доставляет запросы, делает шаг и применяет кадр на клиенте.
func (l *loopback) sync(t *testing.T, dt float64) api.ServerMessage {
	t.Helper()
	l.fwd.deliver(l.w)
	l.w.Step(dt)
	frame := wire(t, l.w.CollectFrame())
	l.proxy.Apply(frame)
	return frame
}

func TestProxy_WelcomeMirrorsWorld(t *testing.T) {
	l := newLoopback(t)

	if l.proxy.SelfID() != l.self.ID() {
		t.Fatalf("SelfID = %s, want %s", l.proxy.SelfID(), l.self.ID())
	}
	mirror := l.proxy.Self()
	if mirror == nil {
		t.Fatal("Self not mirrored")
	}
	if got, want := len(mirror.Actions().Actions()), len(l.self.Actions().Actions()); got != want {
		t.Errorf("Mirrored %d actions, want %d", got, want)
	}
	if mirror.Attributes().Health() != l.self.Attributes().Health() {
		t.Errorf("Health = %.1f, want %.1f", mirror.Attributes().Health(), l.self.Attributes().Health())
	}
}

func TestProxy_OptimisticStartConfirmed(t *testing.T) {
	l := newLoopback(t)

	if !l.proxy.StartAction("Sprint") {
		t.Fatal("Prediction should start Sprint")
	}
	if !l.proxy.Self().Actions().HasTag(tagSprinting) {
		t.Fatal("Predicted tag missing")
	}
	if len(l.fwd.queue) != 1 {
		t.Fatalf("Forwarded %d requests, want 1", len(l.fwd.queue))
	}

	frame := l.sync(t, 0.1)
	frame2 := l.sync(t, 0.1)

	if !l.self.Actions().HasTag(tagSprinting) {
		t.Error("Server should run Sprint")
	}
	if n := l.proxy.Self().Actions().Tags(); len(n) != 1 {
		t.Errorf("Proxy tags = %v, want exactly Sprinting once", n)
	}
	if len(l.fwd.queue) != 0 {
		t.Error("Reconciliation must not forward requests again")
	}

	// Тот же кадр второй раз ничего не меняет
	l.proxy.Apply(frame)
	l.proxy.Apply(frame2)
	if got := l.proxy.Self().Actions().Tags(); len(got) != 1 || got[0] != tagSprinting {
		t.Errorf("Tags after replay = %v", got)
	}
}

func TestProxy_RejectedStartRolledBack(t *testing.T) {
	l := newLoopback(t)

	// Сервер уже бежит, клиент еще не знает
	l.self.Actions().StartActionByName(l.self.ID(), "Sprint")

	if !l.proxy.StartAction("PrimaryAttack") {
		t.Fatal("Client should predict PrimaryAttack")
	}
	l.sync(t, 0.01)

	mirror := l.proxy.Self().Actions()
	if mirror.HasTag(tagAttacking) {
		t.Error("Rejected attack must be rolled back on the client")
	}
	if !mirror.HasTag(tagSprinting) {
		t.Error("Client should learn about Sprint")
	}
	if a := mirror.GetActionByName("PrimaryAttack"); a == nil || a.IsRunning() {
		t.Error("PrimaryAttack should be stopped on the client")
	}
}

func TestProxy_EffectLifecycle(t *testing.T) {
	l := newLoopback(t)
	bot := l.w.SpawnBot(mustMonster(t, l.w, "Minion"), domain.Vec{X: 99, Y: 99})
	l.sync(t, 0)

	if _, err := l.self.Actions().AddAction(bot.ID(), "Burning"); err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	l.sync(t, 0.1)

	mirror := l.proxy.Self().Actions()
	burning := mirror.GetAction("Burning")
	if burning == nil || !burning.IsRunning() || !mirror.HasTag(tagBurning) {
		t.Fatal("Client should mirror the running effect")
	}
	if burning.Instigator() != bot.ID() {
		t.Errorf("Instigator = %s, want %s", burning.Instigator(), bot.ID())
	}

	for i := 0; i < 40; i++ {
		l.sync(t, 0.1)
	}

	if mirror.GetAction("Burning") != nil || mirror.HasTag(tagBurning) {
		t.Error("Expired effect should be removed on the client")
	}
	if got, want := l.proxy.Self().Attributes().Health(), l.self.Attributes().Health(); got != want {
		t.Errorf("Client health = %.1f, server %.1f", got, want)
	}
	if l.self.Attributes().Health() != 85 {
		t.Errorf("Server health = %.1f, want 85 (three owed ticks of 5)", l.self.Attributes().Health())
	}
}

func TestProxy_DespawnAndResync(t *testing.T) {
	l := newLoopback(t)
	bot := l.w.SpawnBot(mustMonster(t, l.w, "Minion"), domain.Vec{X: 99, Y: 99})
	l.sync(t, 0)
	if l.proxy.Actor(bot.ID()) == nil {
		t.Fatal("Bot should be mirrored")
	}

	l.w.Despawn(bot.ID())
	l.sync(t, 0)
	if l.proxy.Actor(bot.ID()) != nil {
		t.Error("Despawned bot still mirrored")
	}

	// Пропущенный кадр: клиент не знает об удалении, WELCOME чинит
	bot2 := l.w.SpawnBot(mustMonster(t, l.w, "Minion"), domain.Vec{X: 99, Y: 99})
	l.sync(t, 0)
	l.w.Despawn(bot2.ID())
	l.w.Step(0)
	l.w.CollectFrame() // Потерян

	l.proxy.Apply(wire(t, l.w.Snapshot(l.self.ID())))
	if l.proxy.Actor(bot2.ID()) != nil {
		t.Error("WELCOME should drop actors missing from the snapshot")
	}
}

func TestProxy_WelcomeDropsExpiredEffects(t *testing.T) {
	l := newLoopback(t)
	if _, err := l.self.Actions().AddAction(domain.NoActor, "Stunned"); err != nil {
		t.Fatal(err)
	}
	l.sync(t, 0)

	mirror := l.proxy.Self().Actions()
	if !mirror.HasTag(tagStunned) {
		t.Fatal("Stun should be mirrored")
	}

	// Оглушение кончилось, но все кадры потерялись
	l.w.Step(2)
	l.w.CollectFrame()
	if l.self.Actions().HasTag(tagStunned) {
		t.Fatal("Stun should expire on the server")
	}

	l.proxy.Apply(wire(t, l.w.Snapshot(l.self.ID())))

	if mirror.HasTag(tagStunned) {
		t.Errorf("Stale tags after WELCOME: %v", mirror.Tags())
	}
	if mirror.GetAction("Stunned") != nil {
		t.Error("Expired effect should be dropped by WELCOME")
	}
	if got, want := len(mirror.Actions()), len(l.self.Actions().Actions()); got != want {
		t.Errorf("Mirrored %d actions, want %d", got, want)
	}
	if !l.proxy.StartAction("PrimaryAttack") {
		t.Error("Attack should be predicted once the stun is gone")
	}
	if len(l.fwd.queue) != 1 {
		t.Errorf("Forwarded %d requests, want 1", len(l.fwd.queue))
	}
}

func TestProxy_ClockFollowsServer(t *testing.T) {
	l := newLoopback(t)
	bot := l.w.SpawnBot(mustMonster(t, l.w, "Minion"), domain.Vec{X: 99, Y: 99})
	if _, err := l.self.Actions().AddAction(bot.ID(), "Burning"); err != nil {
		t.Fatal(err)
	}
	l.sync(t, 1)
	if l.proxy.Now() != l.w.Now() {
		t.Fatalf("Now = %v, want %v", l.proxy.Now(), l.w.Now())
	}

	// Между кадрами часы экстраполируются, но не дальше предела
	l.proxy.Advance(0.25)
	if got := l.proxy.Now(); got != l.w.Now()+0.25 {
		t.Errorf("Extrapolated Now = %v, want %v", got, l.w.Now()+0.25)
	}
	l.proxy.Advance(10)
	if got := l.proxy.Now(); got != l.w.Now()+maxExtrapolation {
		t.Errorf("Extrapolation not capped: %v", got)
	}

	// Сервер потерял тики: кадр возвращает часы к его времени
	l.proxy.Apply(wire(t, l.w.CollectFrame()))
	if l.proxy.Now() != l.w.Now() {
		t.Errorf("Now after frame = %v, want %v", l.proxy.Now(), l.w.Now())
	}

	server := l.self.Actions().GetAction("Burning").(*action.Effect)
	mirror := l.proxy.Self().Actions().GetAction("Burning").(*action.Effect)
	if mirror.GetTimeRemaining() != server.GetTimeRemaining() {
		t.Errorf("Remaining = %v, want %v", mirror.GetTimeRemaining(), server.GetTimeRemaining())
	}
}
