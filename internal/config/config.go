// Package config provides Viper-based configuration loading for the arcana server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/arcana/internal/game/affinity"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimulationConfig holds tick loop settings.
type SimulationConfig struct {
	// TickInterval is the wall-clock duration of one simulation tick.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// ManaRegenPerTick is the mana every connected player regains each tick.
	ManaRegenPerTick int `mapstructure:"mana_regen_per_tick"`
	// MaxMana is the mana pool size of a newly joined player.
	MaxMana int `mapstructure:"max_mana"`
	// AutosaveInterval is how often every tracked vector is persisted. Zero disables autosave.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

// AffinityConfig holds affinity ledger tuning.
type AffinityConfig struct {
	// GainMultiplier converts spent mana into affinity (gain = mana * multiplier / 100).
	GainMultiplier float64 `mapstructure:"gain_multiplier"`
	// OpposingPenaltyFraction is the share of each gain taken from the opposite school.
	OpposingPenaltyFraction float64 `mapstructure:"opposing_penalty_fraction"`
	// TierThresholds are the tier boundaries in percent.
	TierThresholds affinity.Thresholds `mapstructure:"tier_thresholds"`
}

// Params converts the section to ledger parameters.
func (a AffinityConfig) Params() affinity.Params {
	return affinity.Params{
		GainMultiplier:          a.GainMultiplier,
		OpposingPenaltyFraction: a.OpposingPenaltyFraction,
		Thresholds:              a.TierThresholds,
	}
}

// ContentConfig locates the data files loaded at startup.
type ContentConfig struct {
	// PerksDir holds the YAML perk catalog.
	PerksDir string `mapstructure:"perks_dir"`
	// NPCsDir holds NPC templates spawned at startup. A missing directory spawns nothing.
	NPCsDir string `mapstructure:"npcs_dir"`
	// ScriptsDir holds Lua scripts for scripted ability fields. Empty disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// ScriptInstructionLimit caps the Lua opcodes run per hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Affinity   AffinityConfig   `mapstructure:"affinity"`
	Content    ContentConfig    `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAffinity(c.Affinity); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.ManaRegenPerTick < 0 {
		errs = append(errs, fmt.Sprintf("simulation.mana_regen_per_tick must be >= 0, got %d", s.ManaRegenPerTick))
	}
	if s.MaxMana < 0 {
		errs = append(errs, fmt.Sprintf("simulation.max_mana must be >= 0, got %d", s.MaxMana))
	}
	if s.AutosaveInterval < 0 {
		errs = append(errs, "simulation.autosave_interval must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAffinity(a AffinityConfig) error {
	if err := a.Params().Validate(); err != nil {
		return fmt.Errorf("affinity: %w", err)
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.PerksDir == "" {
		errs = append(errs, "content.perks_dir must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ARCANA_ prefix
	v.SetEnvPrefix("ARCANA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arcana")
	v.SetDefault("database.password", "arcana")
	v.SetDefault("database.name", "arcana")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("simulation.tick_interval", "50ms")
	v.SetDefault("simulation.mana_regen_per_tick", 1)
	v.SetDefault("simulation.max_mana", 100)
	v.SetDefault("simulation.autosave_interval", "5m")

	th := affinity.DefaultThresholds()
	v.SetDefault("affinity.gain_multiplier", 1.0)
	v.SetDefault("affinity.opposing_penalty_fraction", 0.5)
	v.SetDefault("affinity.tier_thresholds.novice", th.Novice)
	v.SetDefault("affinity.tier_thresholds.adept", th.Adept)
	v.SetDefault("affinity.tier_thresholds.master", th.Master)

	v.SetDefault("content.perks_dir", "content/perks")
	v.SetDefault("content.npcs_dir", "content/npcs")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.script_instruction_limit", 100000)
}
