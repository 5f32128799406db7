package action

import (
	"os"
	"testing"

	"ability-server/internal/attribute"
	"ability-server/internal/config"
	"ability-server/internal/domain"
	"ability-server/internal/timer"
	"ability-server/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize the global logger before running any tests
	logger.Init("warn", "text")

	os.Exit(m.Run())
}

const (
	tagSprinting domain.Tag = "Status.Sprinting"
	tagStunned   domain.Tag = "Status.Stunned"
	tagBurning   domain.Tag = "Status.Burning"
	tagParrying  domain.Tag = "Status.Parrying"
	tagAttacking domain.Tag = "Action.Attacking"
)

// testWorld - минимальный мир для тестов компонента.
type testWorld struct {
	timers    *timer.Manager
	authority bool
	tun       *config.Tunables
	registry  *Registry
	actors    map[domain.ActorID]*testActor
}

func newTestWorld(authority bool) *testWorld {
	return &testWorld{
		timers:    timer.NewManager(),
		authority: authority,
		tun:       config.DefaultTunables(),
		registry:  newTestRegistry(),
		actors:    make(map[domain.ActorID]*testActor),
	}
}

func (w *testWorld) Timers() *timer.Manager     { return w.timers }
func (w *testWorld) HasAuthority() bool         { return w.authority }
func (w *testWorld) Tunables() *config.Tunables { return w.tun }

func (w *testWorld) Find(id domain.ActorID) Actor {
	if a, ok := w.actors[id]; ok {
		return a
	}
	return nil
}

func (w *testWorld) spawn(defaults ...string) *testActor {
	return w.spawnWithID(domain.NewActorID(), defaults...)
}

func (w *testWorld) spawnWithID(id domain.ActorID, defaults ...string) *testActor {
	a := &testActor{id: id}
	a.attrs = attribute.New(id, 100, 100, w.tun)
	a.comp = NewComponent(a, w, w.registry, defaults)
	w.actors[id] = a
	a.comp.InitDefaults()
	return a
}

type testActor struct {
	id     domain.ActorID
	attrs  *attribute.Attribute
	comp   *Component
	target domain.ActorID
}

func (a *testActor) ID() domain.ActorID               { return a.id }
func (a *testActor) Attributes() *attribute.Attribute { return a.attrs }
func (a *testActor) Actions() *Component              { return a.comp }
func (a *testActor) CurrentTarget() domain.ActorID    { return a.target }

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register("Sprint", func() Action {
		return NewSimple(Definition{Class: "Sprint", Name: "Sprint", Grants: []domain.Tag{tagSprinting}})
	})
	r.Register("Attack", func() Action {
		return NewSimple(Definition{
			Class:   "Attack",
			Name:    "Attack",
			Grants:  []domain.Tag{tagAttacking},
			Blocked: []domain.Tag{tagSprinting, tagStunned},
		})
	})
	r.Register("Stun", func() Action {
		return NewSimple(Definition{Class: "Stun", Name: "Stun", Grants: []domain.Tag{tagStunned}})
	})
	r.Register("Burning", func() Action {
		return NewEffect(Definition{Class: "Burning", Name: "Burning", Grants: []domain.Tag{tagBurning}, AutoStart: true},
			3, 1, DamageTicker{Amount: -1})
	})
	r.Register("Parry", func() Action {
		return NewTimedAction(Definition{Class: "Parry", Name: "Parry", Grants: []domain.Tag{tagParrying}}, 1)
	})
	r.Register("MagicProjectile", func() Action {
		p := NewProjectileAttack(Definition{
			Class:   "MagicProjectile",
			Name:    "PrimaryAttack",
			Blocked: []domain.Tag{tagSprinting},
		}, 10, 0.2)
		p.OnHitEffect = "Burning"
		p.ParryTag = tagParrying
		return p
	})
	r.Register("Blackhole", func() Action {
		p := NewProjectileAttack(Definition{Class: "Blackhole", Name: "Blackhole"}, 30, 0.5)
		p.RageCost = 50
		return p
	})
	r.Register("SprintLocked", func() Action {
		return NewSimple(Definition{
			Class:     "SprintLocked",
			Name:      "SprintLocked",
			Blocked:   []domain.Tag{tagSprinting},
			AutoStart: true,
		})
	})
	return r
}

// loopback пересылает запросы клиента напрямую в серверный компонент.
type loopback struct {
	server *testWorld
	starts int
	stops  int
}

func (l *loopback) ServerStartAction(owner, instigator domain.ActorID, name string) {
	l.starts++
	l.server.actors[owner].comp.ServerStartAction(instigator, name)
}

func (l *loopback) ServerStopAction(owner, instigator domain.ActorID, name string) {
	l.stops++
	l.server.actors[owner].comp.ServerStopAction(instigator, name)
}

// mirror создает клиентскую копию серверного актора через Snapshot.
func mirror(client *testWorld, src *testActor) *testActor {
	a := client.spawnWithID(src.id)
	a.comp.ApplyDelta(src.comp.Snapshot())
	return a
}
