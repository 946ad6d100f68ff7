// # internal/core/config/config.go
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version       int           `toml:"version"`
	Workspace     Workspace     `toml:"workspace"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Cache         Cache         `toml:"cache"`
	Stdlib        Stdlib        `toml:"stdlib"`
	Resolution    Resolution    `toml:"resolution"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Logging       Logging       `toml:"logging"`
}

type Workspace struct {
	Root    string   `toml:"root"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// TierSettings bounds one priority tier. Zero values fall back to the
// scheduler defaults.
type TierSettings struct {
	Capacity       int `toml:"capacity"`
	MaxConcurrency int `toml:"max_concurrency"`
}

type Scheduler struct {
	Tiers                 map[string]TierSettings `toml:"tiers"`
	MaxHighPriorityStreak int                     `toml:"max_high_priority_streak"`
	IdleSleep             time.Duration           `toml:"idle_sleep"`
	YieldInterval         int                     `toml:"yield_interval"`
	YieldDelay            time.Duration           `toml:"yield_delay"`
	RetryBudget           int                     `toml:"retry_budget"`
	HistorySize           int                     `toml:"history_size"`
}

type Cache struct {
	MaxDocuments int `toml:"max_documents"`
}

type Stdlib struct {
	Path string `toml:"path"`
}

type Resolution struct {
	// NamespacePreference orders the namespaces consulted when a bare
	// name matches types in several of them.
	NamespacePreference []string `toml:"namespace_preference"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// tierNames are the accepted keys of [scheduler.tiers], highest first.
var tierNames = []string{"critical", "immediate", "high", "normal", "low", "background"}

func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a TOML config file, fills defaults, applies APEXLS_* env
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	return finalize(&cfg)
}

func finalize(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)

	if err := validateVersion(cfg); err != nil {
		return nil, err
	}
	if err := validateScheduler(cfg); err != nil {
		return nil, err
	}
	if err := validateCache(cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(cfg); err != nil {
		return nil, err
	}
	if err := validateLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.Workspace.Include) == 0 {
		cfg.Workspace.Include = []string{"**/*.cls", "**/*.trigger"}
	}
	if len(cfg.Workspace.Exclude) == 0 {
		cfg.Workspace.Exclude = []string{"**/.sfdx/**", "**/node_modules/**"}
	}

	if cfg.Scheduler.Tiers == nil {
		cfg.Scheduler.Tiers = make(map[string]TierSettings)
	}
	if cfg.Scheduler.MaxHighPriorityStreak == 0 {
		cfg.Scheduler.MaxHighPriorityStreak = 10
	}
	if cfg.Scheduler.IdleSleep == 0 {
		cfg.Scheduler.IdleSleep = 50 * time.Millisecond
	}
	if cfg.Scheduler.YieldInterval == 0 {
		cfg.Scheduler.YieldInterval = 100
	}
	if cfg.Scheduler.YieldDelay == 0 {
		cfg.Scheduler.YieldDelay = 10 * time.Millisecond
	}
	if cfg.Scheduler.RetryBudget == 0 {
		cfg.Scheduler.RetryBudget = 3
	}
	if cfg.Scheduler.HistorySize == 0 {
		cfg.Scheduler.HistorySize = 512
	}

	if cfg.Cache.MaxDocuments == 0 {
		cfg.Cache.MaxDocuments = 100
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9188
	}

	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if strings.TrimSpace(cfg.Logging.Format) == "" {
		cfg.Logging.Format = "text"
	}
}
