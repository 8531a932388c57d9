package game

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/samdwyer/idlecrawl/internal/battle"
)

// Config holds game configuration options, read from IDLECRAWL_* variables.
type Config struct {
	// Seed for random number generation. Used for reproducible floors and battles.
	// A seed of 0 means a random seed will be generated.
	Seed int64 `env:"SEED"`
	// TickInterval is the wall-clock period of one battle tick.
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"100ms"`
	// Dungeon is the dungeon the terminal client starts in.
	Dungeon string `env:"DUNGEON" envDefault:"goblin_warren"`
	// DBPath is the SQLite file holding session snapshots; empty disables saving.
	DBPath string `env:"DB_PATH" envDefault:"idlecrawl.db"`
	// LogFile receives structured logs while the terminal is in use.
	LogFile string `env:"LOG_FILE" envDefault:"idlecrawl.log"`
	// TrapDamage is the percent of max HP a trap takes from each living member.
	TrapDamage int `env:"TRAP_DAMAGE" envDefault:"10"`
	// DataDir holds JSON tables that replace the embedded ones file by file.
	DataDir string `env:"DATA_DIR"`
	// TraceSample is the fraction of battles and sessions traced when an
	// OTLP endpoint is configured.
	TraceSample float64 `env:"TRACE_SAMPLE" envDefault:"1"`
	// Resume names a stored session to continue instead of starting a new one.
	Resume string `env:"RESUME"`

	Battle battle.Config `envPrefix:"BATTLE_"`
}

// DefaultConfig returns the configuration used when the environment is empty.
func DefaultConfig() Config {
	return Config{
		TickInterval: 100 * time.Millisecond,
		Dungeon:      "goblin_warren",
		DBPath:       "idlecrawl.db",
		LogFile:      "idlecrawl.log",
		TrapDamage:   10,
		TraceSample:  1,
		Battle:       battle.DefaultConfig(),
	}
}

// LoadConfig parses the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "IDLECRAWL_"})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("parse env: IDLECRAWL_TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	if cfg.TrapDamage < 0 || cfg.TrapDamage > 100 {
		return Config{}, fmt.Errorf("parse env: IDLECRAWL_TRAP_DAMAGE must be within 0..100, got %d", cfg.TrapDamage)
	}
	if cfg.TraceSample < 0 || cfg.TraceSample > 1 {
		return Config{}, fmt.Errorf("parse env: IDLECRAWL_TRACE_SAMPLE must be within 0..1, got %v", cfg.TraceSample)
	}
	return cfg, nil
}
