package action

import (
	"errors"
	"reflect"
	"testing"

	"ability-server/internal/domain"
)

func TestTagSymmetry(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn("Sprint", "Stun")

	before := hero.comp.Tags()

	if !hero.comp.StartActionByName(hero.id, "Sprint") {
		t.Fatal("Sprint should start")
	}
	if !hero.comp.HasTag(tagSprinting) {
		t.Fatal("Sprinting tag expected while running")
	}
	hero.comp.StopActionByName(hero.id, "Sprint")

	if after := hero.comp.Tags(); !reflect.DeepEqual(before, after) {
		t.Errorf("Tags changed after start/stop: before %v, after %v", before, after)
	}
}

func TestStackedGrants(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn()

	// Два горящих эффекта дают тег дважды
	if _, err := hero.comp.AddAction(hero.id, "Burning"); err != nil {
		t.Fatal(err)
	}
	second, err := hero.comp.AddAction(hero.id, "Burning")
	if err != nil {
		t.Fatal(err)
	}
	if got := hero.comp.activeTags.Count(tagBurning); got != 2 {
		t.Fatalf("Expected 2 stacked grants, got %d", got)
	}

	second.Stop(hero.id)
	if !hero.comp.HasTag(tagBurning) {
		t.Error("One grant should remain after stopping the second effect")
	}
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn("Sprint")

	started := 0
	hero.comp.OnActionStarted(func(*Component, Action) { started++ })

	sprint := hero.comp.GetActionByName("Sprint")
	sprint.Start(hero.id)
	sprint.Start(hero.id)

	if started != 1 {
		t.Errorf("Expected 1 start notification, got %d", started)
	}
	if got := hero.comp.activeTags.Count(tagSprinting); got != 1 {
		t.Errorf("Expected tag granted once, got %d", got)
	}
	if hero.comp.StartActionByName(hero.id, "Sprint") {
		t.Error("StartActionByName must fail for a running action")
	}
}

func TestSprintBlocksAttack(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn("Sprint", "Attack")

	var rejected []string
	hero.comp.OnRejected(func(_ *Component, name string) { rejected = append(rejected, name) })

	if !hero.comp.StartActionByName(hero.id, "Sprint") {
		t.Fatal("Sprint should start")
	}
	if hero.comp.StartActionByName(hero.id, "Attack") {
		t.Fatal("Attack must be blocked while sprinting")
	}
	if len(rejected) != 1 || rejected[0] != "Attack" {
		t.Errorf("Expected rejection for Attack, got %v", rejected)
	}

	hero.comp.StopActionByName(hero.id, "Sprint")
	if !hero.comp.StartActionByName(hero.id, "Attack") {
		t.Fatal("Attack should start after sprint stopped")
	}
	if !hero.comp.HasTag(tagAttacking) {
		t.Error("Attacking tag expected")
	}
}

func TestFirstStartableNameMatchWins(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn("Sprint", "Sprint")

	first := hero.comp.Actions()[0]
	second := hero.comp.Actions()[1]

	hero.comp.StartActionByName(hero.id, "Sprint")
	if !first.IsRunning() || second.IsRunning() {
		t.Fatal("First match should start")
	}

	// Первый уже запущен, стартует следующий с тем же именем
	hero.comp.StartActionByName(hero.id, "Sprint")
	if !second.IsRunning() {
		t.Error("Second match should start when the first is running")
	}
	if got := hero.comp.activeTags.Count(tagSprinting); got != 2 {
		t.Errorf("Expected 2 grants, got %d", got)
	}
}

func TestAutoStartConfigurationFault(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn("Sprint")
	hero.comp.StartActionByName(hero.id, "Sprint")

	a, err := hero.comp.AddAction(hero.id, "SprintLocked")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Expected ErrConfiguration, got %v", err)
	}
	if a != nil {
		t.Error("No action should be returned")
	}
	if hero.comp.GetAction("SprintLocked") != nil {
		t.Error("Failed auto-start must not leave the action in the component")
	}
}

func TestAddActionErrors(t *testing.T) {
	tests := []struct {
		name      string
		authority bool
		class     string
		want      error
	}{
		{"proxy", false, "Sprint", ErrNotAuthority},
		{"empty class", true, "", ErrConfiguration},
		{"unknown class", true, "Meteor", ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(tt.authority)
			hero := w.spawn()
			_, err := hero.comp.AddAction(hero.id, tt.class)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if len(hero.comp.Actions()) != 0 {
				t.Error("Nothing should be added")
			}
		})
	}
}

func TestRemoveRunningAction(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn("Sprint")
	sprint := hero.comp.GetAction("Sprint")
	hero.comp.StartActionByName(hero.id, "Sprint")

	if err := hero.comp.RemoveAction(sprint); !errors.Is(err, ErrStillRunning) {
		t.Fatalf("Expected ErrStillRunning, got %v", err)
	}

	hero.comp.StopActionByName(hero.id, "Sprint")
	if err := hero.comp.RemoveAction(sprint); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if hero.comp.GetAction("Sprint") != nil {
		t.Error("Sprint should be removed")
	}
	// Повторное удаление - no-op
	if err := hero.comp.RemoveAction(sprint); err != nil {
		t.Errorf("Second remove should be a no-op, got %v", err)
	}
}

func TestStopAll(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn("Sprint", "Stun")
	hero.comp.StartActionByName(hero.id, "Sprint")
	hero.comp.StartActionByName(hero.id, "Stun")
	hero.comp.AddAction(hero.id, "Burning")

	hero.comp.StopAll(hero.id)

	if hero.comp.activeTags.Len() != 0 {
		t.Errorf("Expected no tags, got %s", hero.comp.activeTags)
	}
	if hero.comp.GetAction("Burning") != nil {
		t.Error("Stopped effect should remove itself")
	}
	if len(hero.comp.Actions()) != 2 {
		t.Errorf("Expected 2 actions left, got %d", len(hero.comp.Actions()))
	}
}

func TestDebug(t *testing.T) {
	w := newTestWorld(true)
	hero := w.spawn("Sprint")
	hero.comp.StartActionByName(hero.id, "Sprint")

	info := hero.comp.Debug()
	if info.Owner != hero.id.String() {
		t.Errorf("Owner mismatch: %s", info.Owner)
	}
	if info.Tags != string(tagSprinting) {
		t.Errorf("Unexpected tags %q", info.Tags)
	}
	if len(info.Actions) != 1 || !info.Actions[0].Running {
		t.Errorf("Unexpected actions %+v", info.Actions)
	}
}

func TestStopOnStoppedAction(t *testing.T) {
	for _, authority := range []bool{true, false} {
		w := newTestWorld(authority)
		hero := &testActor{id: domain.NewActorID()}
		hero.comp = NewComponent(hero, w, w.registry, nil)
		w.actors[hero.id] = hero

		stopped := 0
		hero.comp.OnActionStopped(func(*Component, Action) { stopped++ })

		a := NewSimple(Definition{Class: "Sprint", Name: "Sprint"})
		a.initialize(hero.comp, 1, a)
		a.Stop(hero.id)

		if stopped != 0 {
			t.Errorf("authority=%v: stop of a stopped action must not notify", authority)
		}
	}
}
