package engine

import (
	"math"
	"testing"

	"ability-server/internal/domain"
)

func TestDirector_KillCredit(t *testing.T) {
	tests := []struct {
		name        string
		monster     string
		selfKill    bool
		wantCredits int
	}{
		{name: "Brute gives its kill reward", monster: "Brute", wantCredits: 50},
		{name: "Minion gives its kill reward", monster: "Minion", wantCredits: 20},
		{name: "Suicide gives nothing", selfKill: true, wantCredits: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t)
			player := w.SpawnPlayer(domain.NoActor, "Hero")

			if tt.selfKill {
				player.Attributes().Kill(player.ID())
			} else {
				bot := w.SpawnBot(mustMonster(t, w, tt.monster), domain.Vec{X: 1, Y: 1})
				bot.Attributes().Kill(player.ID())
			}

			if player.Credits() != tt.wantCredits {
				t.Errorf("Credits = %d, want %d", player.Credits(), tt.wantCredits)
			}
		})
	}
}

func TestDirector_CreditsPerKillFallback(t *testing.T) {
	w := newTestWorld(t)
	killer := w.SpawnPlayer(domain.NoActor, "Killer")
	victim := w.SpawnPlayer(domain.NoActor, "Victim")

	victim.Attributes().Kill(killer.ID())

	if killer.Credits() != w.cfg.CreditsPerKill {
		t.Errorf("Credits = %d, want CreditsPerKill %d", killer.Credits(), w.cfg.CreditsPerKill)
	}
}

func TestDirector_PlayerRespawn(t *testing.T) {
	w := newTestWorld(t)
	player := w.SpawnPlayer(domain.NoActor, "Hero")
	bot := w.SpawnBot(mustMonster(t, w, "Minion"), domain.Vec{X: 90, Y: 90})

	player.Attributes().Kill(bot.ID())
	if player.IsAlive() {
		t.Fatal("Player should be dead")
	}

	// Чуть раньше задержки - все еще мертв
	stepFor(w, w.cfg.RespawnDelay-0.2, 0.1)
	if player.IsAlive() {
		t.Fatal("Player revived before RespawnDelay")
	}

	stepFor(w, 0.3, 0.1)
	if !player.IsAlive() || !player.Attributes().IsFullHealth() {
		t.Errorf("Player should be revived at full health, got %.1f", player.Attributes().Health())
	}
}

func TestDirector_DeathStopsActions(t *testing.T) {
	w := newTestWorld(t)
	player := w.SpawnPlayer(domain.NoActor, "Hero")

	if !player.Actions().StartActionByName(player.ID(), "Sprint") {
		t.Fatal("Sprint should start")
	}
	player.Attributes().Kill(domain.NoActor)

	if player.Actions().HasTag(tagSprinting) {
		t.Error("Dead player must not keep granted tags")
	}
}

func TestDirector_CorpseCleanup(t *testing.T) {
	w := newTestWorld(t)
	bot := w.SpawnBot(mustMonster(t, w, "Minion"), domain.Vec{X: 1, Y: 1})
	w.CollectFrame()

	bot.Attributes().Kill(domain.NoActor)
	stepFor(w, w.cfg.CorpseLifetime+0.2, 0.1)

	if w.Actor(bot.ID()) != nil {
		t.Fatal("Corpse should be despawned")
	}
	frame := w.CollectFrame()
	if len(frame.Despawned) != 1 || frame.Despawned[0] != string(bot.ID()) {
		t.Errorf("Despawned = %v, want [%s]", frame.Despawned, bot.ID())
	}
}

func TestDirector_SpawnFollowsCurve(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.DesiredPowerupCount = 0
	w.Start()

	stepFor(w, 20, 0.1)

	bots := w.ActorsOfKind(domain.KindBot)
	if len(bots) == 0 {
		t.Fatal("Director should have spawned bots")
	}
	limit := int(math.Ceil(w.Catalog().MaxBotsAt(w.Now())))
	if len(bots) > limit {
		t.Errorf("Spawned %d bots, curve allows %d", len(bots), limit)
	}
}

func TestDirector_SpawnToggle(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.DesiredPowerupCount = 0
	w.tun.SetSpawnBots(false)
	w.Start()

	stepFor(w, 20, 0.1)

	if n := len(w.ActorsOfKind(domain.KindBot)); n != 0 {
		t.Errorf("Spawning disabled, got %d bots", n)
	}
	if w.Director().Budget() != 0 {
		t.Errorf("Budget should not grow while spawning is disabled, got %.1f", w.Director().Budget())
	}
}

func TestDirector_PowerupsAndChests(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.DesiredPowerupCount = 4
	w.Start()

	if n := len(w.ActorsOfKind(domain.KindPowerup)); n != 4 {
		t.Errorf("Powerups = %d, want 4", n)
	}
	if n := len(w.ActorsOfKind(domain.KindChest)); n != len(chestNames) {
		t.Errorf("Chests = %d, want %d", n, len(chestNames))
	}
}
