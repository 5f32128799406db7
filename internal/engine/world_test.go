package engine

import (
	"context"
	"errors"
	"testing"

	"ability-server/internal/domain"
	"ability-server/internal/infrastructure/storage"
)

func TestPowerup_HealthPotion(t *testing.T) {
	w := newTestWorld(t)
	player := w.SpawnPlayer(domain.NoActor, "Hero")
	potion := w.SpawnPowerup(mustPowerup(t, w, "HealthPotion"), player.Position())

	// 1. Полное здоровье - зелье не тратится
	w.Interact(player.ID(), potion.ID())
	if !potion.IsActive() {
		t.Fatal("Potion must not be used at full health")
	}

	// 2. Ранен, но нет кредитов
	player.Attributes().ApplyHealthChange(domain.NoActor, -40)
	w.Interact(player.ID(), potion.ID())
	if !potion.IsActive() || player.Attributes().IsFullHealth() {
		t.Fatal("Potion must not be used without credits")
	}

	// 3. Хватает кредитов
	player.AddCredits(60)
	if _, err := w.Interact(player.ID(), potion.ID()); err != nil {
		t.Fatalf("Interact: %v", err)
	}
	if !player.Attributes().IsFullHealth() {
		t.Errorf("Health = %.1f, want full", player.Attributes().Health())
	}
	if player.Credits() != 10 {
		t.Errorf("Credits = %d, want 10", player.Credits())
	}
	if potion.IsActive() {
		t.Error("Used potion should hide")
	}

	// 4. Возвращается после перезарядки
	stepFor(w, mustPowerup(t, w, "HealthPotion").Cooldown+0.2, 0.1)
	if !potion.IsActive() {
		t.Error("Potion should reappear after cooldown")
	}
}

func TestPowerup_Coin(t *testing.T) {
	w := newTestWorld(t)
	player := w.SpawnPlayer(domain.NoActor, "Hero")
	coin := w.SpawnPowerup(mustPowerup(t, w, "Coin"), player.Position())

	w.Interact(player.ID(), coin.ID())
	w.Interact(player.ID(), coin.ID()) // Спрятана - второй раз не дает

	if player.Credits() != 80 {
		t.Errorf("Credits = %d, want 80", player.Credits())
	}
}

func TestPowerup_GrantsActionOnce(t *testing.T) {
	w := newTestWorld(t)
	player := w.SpawnPlayer(domain.NoActor, "Hero")
	def := mustPowerup(t, w, "BlackholeTome")
	tome := w.SpawnPowerup(def, player.Position())

	w.Interact(player.ID(), tome.ID())
	stepFor(w, def.Cooldown+0.2, 0.1)
	w.Interact(player.ID(), tome.ID())

	count := 0
	for _, a := range player.Actions().Actions() {
		if a.Class() == def.GrantClass {
			count++
		}
	}
	if count != 1 {
		t.Errorf("%s granted %d times, want 1", def.GrantClass, count)
	}
	if !tome.IsActive() {
		t.Error("Tome should stay available when nothing was granted")
	}
}

func TestWorld_InteractErrors(t *testing.T) {
	w := newTestWorld(t)
	player := w.SpawnPlayer(domain.NoActor, "Hero")
	bot := w.SpawnBot(mustMonster(t, w, "Minion"), player.Position())
	far := w.SpawnChest("Chest_far", domain.Vec{X: 0, Y: 0})

	tests := []struct {
		name    string
		target  domain.ActorID
		wantErr error
	}{
		{"Missing target", domain.NewActorID(), ErrActorNotFound},
		{"Bot is not interactable", bot.ID(), ErrNotInteractable},
		{"Chest is too far", far.ID(), ErrTooFar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Interact(player.ID(), tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWorld_KillAll(t *testing.T) {
	w := newTestWorld(t)
	player := w.SpawnPlayer(domain.NoActor, "Hero")
	for i := 0; i < 3; i++ {
		w.SpawnBot(mustMonster(t, w, "Minion"), domain.Vec{X: 1, Y: 1})
	}

	if n := w.KillAll(player.ID()); n != 3 {
		t.Errorf("KillAll = %d, want 3", n)
	}
	if n := w.KillAll(player.ID()); n != 0 {
		t.Errorf("Second KillAll = %d, want 0", n)
	}
	if player.Credits() != 3*mustMonster(t, w, "Minion").KillReward {
		t.Errorf("Credits = %d", player.Credits())
	}
}

func TestBots_ChaseAndAttack(t *testing.T) {
	w := newTestWorld(t)
	player := w.SpawnPlayer(domain.NoActor, "Hero")
	player.SetPosition(domain.Vec{X: 50, Y: 50})
	bot := w.SpawnBot(mustMonster(t, w, "Minion"), domain.Vec{X: 50, Y: 75})

	stepFor(w, 5, 0.1)

	if bot.CurrentTarget() != player.ID() {
		t.Fatalf("Bot target = %s, want %s", bot.CurrentTarget(), player.ID())
	}
	if bot.Position().DistanceTo(player.Position()) > bot.Profile.AttackRange+0.01 {
		t.Errorf("Bot should close in to attack range, distance %.2f", bot.Position().DistanceTo(player.Position()))
	}
	if player.Attributes().IsFullHealth() {
		t.Error("Bot attacks should have damaged the player")
	}
}

func TestChest_SaveRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.DesiredPowerupCount = 0
	w.Start()
	player := w.SpawnPlayer(domain.NoActor, "Hero")
	player.AddCredits(120)

	chest := findByName(w, "Chest_1")
	if chest == nil {
		t.Fatal("Chest_1 not spawned")
	}
	if _, err := w.Interact(player.ID(), chest.ID()); err != nil {
		t.Fatalf("Interact: %v", err)
	}

	sg := w.BuildSave("slot", 1)

	// Новый мир: сундук закрыт, пока не применено сохранение
	w2 := newTestWorld(t)
	w2.cfg.DesiredPowerupCount = 0
	w2.Start()
	w2.ApplySave(sg)

	if !findByName(w2, "Chest_1").IsActive() {
		t.Error("Chest_1 should be restored open")
	}
	if findByName(w2, "Chest_2").IsActive() {
		t.Error("Chest_2 should stay closed")
	}

	// Кредиты возвращаются, когда игрок заходит
	again := w2.SpawnPlayer(player.ID(), "Hero")
	if again.Credits() != 120 {
		t.Errorf("Credits after load = %d, want 120", again.Credits())
	}
}

func TestWorld_SaveLoad(t *testing.T) {
	for _, backend := range []string{storage.BackendFile, storage.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			store, err := storage.Open(backend, t.TempDir())
			if err != nil {
				t.Fatalf("open %s: %v", backend, err)
			}
			defer store.Close()

			ctx := context.Background()
			w := newTestWorld(t)
			w.store = store
			player := w.SpawnPlayer(domain.NoActor, "Hero")
			player.AddCredits(33)

			if err := w.Save(ctx, "run1"); err != nil {
				t.Fatalf("Save: %v", err)
			}

			w2 := newTestWorld(t)
			w2.store = store
			if err := w2.Load(ctx, "run1"); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := w2.SpawnPlayer(player.ID(), "Hero").Credits(); got != 33 {
				t.Errorf("Credits = %d, want 33", got)
			}

			// Нет слота - не ошибка
			if err := w2.Load(ctx, "missing"); err != nil {
				t.Errorf("Load missing slot: %v", err)
			}
		})
	}
}

func TestWorld_SaveWithoutStore(t *testing.T) {
	w := newTestWorld(t)
	if err := w.Save(context.Background(), ""); !errors.Is(err, ErrStorageDisabled) {
		t.Errorf("err = %v, want ErrStorageDisabled", err)
	}
}

func findByName(w *World, name string) *Actor {
	for _, a := range w.Actors() {
		if a.Name == name {
			return a
		}
	}
	return nil
}
