package config

import "sync"

// Tunables - процессные настройки, которые можно менять на лету
// (читы, отладочные эндпоинты). Передаются в компоненты явно,
// глобальных переменных нет.
type Tunables struct {
	mu               sync.RWMutex
	damageMultiplier float64
	spawnBots        bool
	owedTickEpsilon  float64
	rageGainRatio    float64
}

func NewTunables(damageMultiplier float64, spawnBots bool, owedTickEpsilon, rageGainRatio float64) *Tunables {
	return &Tunables{
		damageMultiplier: damageMultiplier,
		spawnBots:        spawnBots,
		owedTickEpsilon:  owedTickEpsilon,
		rageGainRatio:    rageGainRatio,
	}
}

// DefaultTunables - значения для тестов и инструментов.
func DefaultTunables() *Tunables {
	return NewTunables(1, true, 1e-4, 0.5)
}

// DamageMultiplier умножает отрицательные изменения здоровья.
func (t *Tunables) DamageMultiplier() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.damageMultiplier
}

func (t *Tunables) SetDamageMultiplier(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.damageMultiplier = v
}

// SpawnBots - включен ли спавн ботов директором.
func (t *Tunables) SpawnBots() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spawnBots
}

func (t *Tunables) SetSpawnBots(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spawnBots = v
}

// OwedTickEpsilon - допуск, при котором тик эффекта считается "должным" в момент остановки.
func (t *Tunables) OwedTickEpsilon() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owedTickEpsilon
}

// RageGainRatio - доля полученного урона, превращающаяся в ярость.
func (t *Tunables) RageGainRatio() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rageGainRatio
}
