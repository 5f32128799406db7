package action

import (
	"fmt"

	"ability-server/internal/domain"

	"github.com/d5/tengo/v2"
)

// DamageTicker меняет здоровье владельца на Amount за тик (отрицательное - урон).
type DamageTicker struct {
	Amount float64
}

func (d DamageTicker) Tick(e *Effect, instigator domain.ActorID) {
	attrs := e.Component().Owner().Attributes()
	if attrs == nil {
		return
	}
	attrs.ApplyHealthChange(instigator, d.Amount)
}

// Переменные, доступные скрипту тика.
const (
	scriptVarTick      = "tick"
	scriptVarElapsed   = "elapsed"
	scriptVarHealth    = "health"
	scriptVarHealthMax = "health_max"
	scriptVarRage      = "rage"

	// Выходы: скрипт присваивает их (delta = ..., rage_delta = ...)
	scriptOutDelta     = "delta"
	scriptOutRageDelta = "rage_delta"
)

// ScriptTicker выполняет tengo-скрипт на каждый тик.
// Скомпилированный шаблон общий; у каждого эффекта свой клон.
type ScriptTicker struct {
	compiled *tengo.Compiled
}

// CompileTickScript компилирует скрипт тика.
func CompileTickScript(src string) (*ScriptTicker, error) {
	script := tengo.NewScript([]byte(src))
	for _, name := range []string{
		scriptVarTick, scriptVarElapsed, scriptVarHealth, scriptVarHealthMax, scriptVarRage,
		scriptOutDelta, scriptOutRageDelta,
	} {
		var zero any = 0.0
		if name == scriptVarTick {
			zero = 0
		}
		if err := script.Add(name, zero); err != nil {
			return nil, fmt.Errorf("tick script: add %s: %w", name, err)
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("tick script: compile: %w", err)
	}
	return &ScriptTicker{compiled: compiled}, nil
}

// Clone возвращает независимую копию для нового экземпляра эффекта.
func (s *ScriptTicker) Clone() *ScriptTicker {
	return &ScriptTicker{compiled: s.compiled.Clone()}
}

// Eval выполняет скрипт и возвращает (delta, rageDelta).
func (s *ScriptTicker) Eval(tick int, elapsed, health, healthMax, rage float64) (float64, float64, error) {
	c := s.compiled
	sets := []struct {
		name string
		val  any
	}{
		{scriptVarTick, tick},
		{scriptVarElapsed, elapsed},
		{scriptVarHealth, health},
		{scriptVarHealthMax, healthMax},
		{scriptVarRage, rage},
		{scriptOutDelta, 0.0},
		{scriptOutRageDelta, 0.0},
	}
	for _, v := range sets {
		if err := c.Set(v.name, v.val); err != nil {
			return 0, 0, fmt.Errorf("tick script: set %s: %w", v.name, err)
		}
	}
	if err := c.Run(); err != nil {
		return 0, 0, fmt.Errorf("tick script: run: %w", err)
	}
	return c.Get(scriptOutDelta).Float(), c.Get(scriptOutRageDelta).Float(), nil
}

func (s *ScriptTicker) Tick(e *Effect, instigator domain.ActorID) {
	attrs := e.Component().Owner().Attributes()
	if attrs == nil {
		return
	}
	elapsed := e.Component().Now() - e.StartTime()
	delta, rageDelta, err := s.Eval(e.TickCount(), elapsed, attrs.Health(), attrs.HealthMax(), attrs.Rage())
	if err != nil {
		e.log().WithError(err).Error("Tick script failed")
		return
	}
	if delta != 0 {
		attrs.ApplyHealthChange(instigator, delta)
	}
	if rageDelta != 0 {
		attrs.ApplyRageChange(instigator, rageDelta)
	}
}
