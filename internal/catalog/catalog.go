package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"ability-server/internal/action"
	"ability-server/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Виды действий
const (
	KindSimple     = "simple"
	KindEffect     = "effect"
	KindTimed      = "timed"
	KindProjectile = "projectile"
)

// Виды пауэрапов
const (
	PowerupHealth = "health"
	PowerupCoin   = "coin"
	PowerupAction = "action"
)

// DefaultMaxBots - лимит ботов, если кривая сложности не задана.
const DefaultMaxBots = 10

type ActionDef struct {
	Class     string   `yaml:"class"`
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Grants    []string `yaml:"grants"`
	Blocked   []string `yaml:"blocked"`
	AutoStart bool     `yaml:"auto_start"`

	// effect / timed
	Duration   float64 `yaml:"duration"`
	Period     float64 `yaml:"period"`
	TickDamage float64 `yaml:"tick_damage"`
	TickScript string  `yaml:"tick_script"`

	// projectile
	Damage   float64 `yaml:"damage"`
	WindUp   float64 `yaml:"wind_up"`
	RageCost float64 `yaml:"rage_cost"`
	OnHit    string  `yaml:"on_hit"`
	ParryTag string  `yaml:"parry_tag"`
}

type MonsterDef struct {
	Name       string   `yaml:"name"`
	Weight     float64  `yaml:"weight"`
	SpawnCost  float64  `yaml:"spawn_cost"`
	KillReward int      `yaml:"kill_reward"`
	Health     float64  `yaml:"health"`
	Actions    []string `yaml:"actions"`
}

type PowerupDef struct {
	Name       string  `yaml:"name"`
	Kind       string  `yaml:"kind"`
	CreditCost int     `yaml:"credit_cost"`
	Credits    int     `yaml:"credits"`
	GrantClass string  `yaml:"grant_class"`
	Cooldown   float64 `yaml:"cooldown"`
	Weight     float64 `yaml:"weight"`
}

type PlayerDef struct {
	Health  float64  `yaml:"health"`
	Rage    float64  `yaml:"rage"`
	Actions []string `yaml:"actions"`
}

type CurvePoint struct {
	Time    float64 `yaml:"time"`
	MaxBots float64 `yaml:"max_bots"`
}

// Curve - кусочно-линейная кривая по времени. Точки отсортированы по Time.
type Curve []CurvePoint

// At возвращает значение в момент t (за краями - значение крайней точки).
func (c Curve) At(t float64) float64 {
	if len(c) == 0 {
		return DefaultMaxBots
	}
	if t <= c[0].Time {
		return c[0].MaxBots
	}
	for i := 1; i < len(c); i++ {
		if t <= c[i].Time {
			a, b := c[i-1], c[i]
			span := b.Time - a.Time
			if span <= 0 {
				return b.MaxBots
			}
			return a.MaxBots + (b.MaxBots-a.MaxBots)*(t-a.Time)/span
		}
	}
	return c[len(c)-1].MaxBots
}

// Catalog - весь контент: действия, монстры, пауэрапы, сложность.
type Catalog struct {
	Player          PlayerDef    `yaml:"player"`
	SpawnBudgetRate float64      `yaml:"spawn_budget_rate"`
	Actions         []ActionDef  `yaml:"actions"`
	Monsters        []MonsterDef `yaml:"monsters"`
	Powerups        []PowerupDef `yaml:"powerups"`
	Difficulty      Curve        `yaml:"difficulty"`

	scripts map[string]*action.ScriptTicker
}

// Default - встроенный каталог.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load читает каталог с диска. Пустой путь - встроенный каталог.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// Parse разбирает YAML и проверяет связность.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal: %w", err)
	}
	sort.SliceStable(c.Difficulty, func(i, j int) bool { return c.Difficulty[i].Time < c.Difficulty[j].Time })

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate проверяет ссылки между разделами и компилирует скрипты тиков.
func (c *Catalog) Validate() error {
	classes := make(map[string]bool, len(c.Actions))
	c.scripts = make(map[string]*action.ScriptTicker)

	// 1. Действия
	for _, def := range c.Actions {
		if def.Class == "" || def.Name == "" {
			return fmt.Errorf("catalog: action with empty class or name: %+v", def)
		}
		if classes[def.Class] {
			return fmt.Errorf("catalog: duplicate action class %q", def.Class)
		}
		classes[def.Class] = true

		switch def.Kind {
		case KindSimple, KindTimed:
		case KindEffect:
			if def.TickScript != "" {
				tpl, err := action.CompileTickScript(def.TickScript)
				if err != nil {
					return fmt.Errorf("catalog: action %q: %w", def.Class, err)
				}
				c.scripts[def.Class] = tpl
			}
		case KindProjectile:
			if def.Damage < 0 {
				return fmt.Errorf("catalog: action %q: negative damage", def.Class)
			}
		default:
			return fmt.Errorf("catalog: action %q: unknown kind %q", def.Class, def.Kind)
		}
		if def.Duration < 0 || def.Period < 0 || def.WindUp < 0 {
			return fmt.Errorf("catalog: action %q: negative timing", def.Class)
		}
	}

	// 2. Ссылки на классы
	for _, def := range c.Actions {
		if def.OnHit != "" && !classes[def.OnHit] {
			return fmt.Errorf("catalog: action %q: unknown on_hit class %q", def.Class, def.OnHit)
		}
	}
	for _, cls := range c.Player.Actions {
		if !classes[cls] {
			return fmt.Errorf("catalog: player: unknown action class %q", cls)
		}
	}
	for _, m := range c.Monsters {
		if m.Name == "" || m.Weight <= 0 || m.Health <= 0 {
			return fmt.Errorf("catalog: monster %q: name, weight and health are required", m.Name)
		}
		for _, cls := range m.Actions {
			if !classes[cls] {
				return fmt.Errorf("catalog: monster %q: unknown action class %q", m.Name, cls)
			}
		}
	}

	// 3. Пауэрапы
	for _, p := range c.Powerups {
		switch p.Kind {
		case PowerupHealth, PowerupCoin:
		case PowerupAction:
			if !classes[p.GrantClass] {
				return fmt.Errorf("catalog: powerup %q: unknown grant_class %q", p.Name, p.GrantClass)
			}
		default:
			return fmt.Errorf("catalog: powerup %q: unknown kind %q", p.Name, p.Kind)
		}
		if p.Weight <= 0 {
			return fmt.Errorf("catalog: powerup %q: weight must be positive", p.Name)
		}
	}

	if c.Player.Health <= 0 {
		return fmt.Errorf("catalog: player health must be positive")
	}
	return nil
}

// Registry строит реестр фабрик по описаниям действий.
func (c *Catalog) Registry() *action.Registry {
	r := action.NewRegistry()
	c.Install(r)
	return r
}

// Install регистрирует все классы каталога в r (перезаписывая одноименные).
func (c *Catalog) Install(r *action.Registry) {
	for _, def := range c.Actions {
		r.Register(def.Class, c.factory(def))
	}
}

func (c *Catalog) factory(def ActionDef) action.Factory {
	base := action.Definition{
		Class:     def.Class,
		Name:      def.Name,
		Grants:    domain.ParseTags(def.Grants),
		Blocked:   domain.ParseTags(def.Blocked),
		AutoStart: def.AutoStart,
	}
	script := c.scripts[def.Class]

	switch def.Kind {
	case KindEffect:
		return func() action.Action {
			var ticker action.Ticker
			switch {
			case script != nil:
				ticker = script.Clone()
			case def.TickDamage != 0:
				ticker = action.DamageTicker{Amount: def.TickDamage}
			}
			return action.NewEffect(base, def.Duration, def.Period, ticker)
		}
	case KindTimed:
		return func() action.Action {
			return action.NewTimedAction(base, def.Duration)
		}
	case KindProjectile:
		return func() action.Action {
			p := action.NewProjectileAttack(base, def.Damage, def.WindUp)
			p.RageCost = def.RageCost
			p.OnHitEffect = def.OnHit
			p.ParryTag = domain.Tag(def.ParryTag)
			return p
		}
	default:
		return func() action.Action {
			return action.NewSimple(base)
		}
	}
}

// Monster ищет описание монстра по имени.
func (c *Catalog) Monster(name string) (MonsterDef, bool) {
	for _, m := range c.Monsters {
		if m.Name == name {
			return m, true
		}
	}
	return MonsterDef{}, false
}

// Powerup ищет описание пауэрапа по имени.
func (c *Catalog) Powerup(name string) (PowerupDef, bool) {
	for _, p := range c.Powerups {
		if p.Name == name {
			return p, true
		}
	}
	return PowerupDef{}, false
}

// MaxBotsAt - лимит живых ботов в момент t.
func (c *Catalog) MaxBotsAt(t float64) float64 {
	return c.Difficulty.At(t)
}
