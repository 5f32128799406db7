package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config хранит параметры запуска сервера.
// Все поля читаются из окружения с префиксом AS_ (см. Load).
type Config struct {
	// Seed - мастер-зерно для спавна ботов и паверапов. 0 - сгенерировать.
	Seed int64  `env:"SEED"`
	Port string `env:"PORT" envDefault:"8080"`

	// TickRate - частота симуляции (тиков в секунду).
	TickRate int `env:"TICK_RATE" envDefault:"30"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// CatalogPath - YAML с описанием действий/монстров. Пусто - встроенный каталог.
	CatalogPath  string `env:"CATALOG_PATH"`
	WatchCatalog bool   `env:"WATCH_CATALOG" envDefault:"false"`

	// Сохранения: "file" (бинарный формат) или "sqlite".
	SaveBackend string `env:"SAVE_BACKEND" envDefault:"file"`
	SaveDir     string `env:"SAVE_DIR" envDefault:"saves"`
	SaveSlot    string `env:"SAVE_SLOT" envDefault:"default"`

	// Director
	SpawnInterval           float64 `env:"SPAWN_INTERVAL" envDefault:"2"`
	RespawnDelay            float64 `env:"RESPAWN_DELAY" envDefault:"2"`
	CorpseLifetime          float64 `env:"CORPSE_LIFETIME" envDefault:"10"`
	CreditsPerKill          int     `env:"CREDITS_PER_KILL" envDefault:"20"`
	DesiredPowerupCount     int     `env:"POWERUP_COUNT" envDefault:"10"`
	RequiredPowerupDistance float64 `env:"POWERUP_DISTANCE" envDefault:"10"`

	// Мир
	WorldSize   float64 `env:"WORLD_SIZE" envDefault:"100"`
	SightRadius float64 `env:"SIGHT_RADIUS" envDefault:"30"`

	// Начальные значения рантайм-настроек (см. Tunables)
	DamageMultiplier float64 `env:"DAMAGE_MULTIPLIER" envDefault:"1"`
	SpawnBots        bool    `env:"SPAWN_BOTS" envDefault:"true"`
	OwedTickEpsilon  float64 `env:"OWED_TICK_EPSILON" envDefault:"0.0001"`
	RageGainRatio    float64 `env:"RAGE_GAIN_RATIO" envDefault:"0.5"`
}

// Default возвращает конфиг со значениями по умолчанию (без чтения окружения).
func Default() Config {
	var cfg Config
	// envDefault применяются и при пустом окружении
	_ = env.ParseWithOptions(&cfg, env.Options{
		Prefix:      "AS_",
		Environment: map[string]string{},
	})
	cfg.Seed = time.Now().UnixNano()
	return cfg
}

// Load читает конфигурацию из переменных окружения.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "AS_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.TickRate <= 0 {
		return Config{}, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRate)
	}
	return cfg, nil
}

// TickInterval - длительность одного тика симуляции.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Tunables строит рантайм-настройки из начальных значений конфига.
func (c Config) Tunables() *Tunables {
	return NewTunables(c.DamageMultiplier, c.SpawnBots, c.OwedTickEpsilon, c.RageGainRatio)
}
