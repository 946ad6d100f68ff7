// # internal/core/config/validator.go
package config

import (
	"fmt"
	"strings"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; only version 1 is supported", cfg.Version)
	}
	return nil
}

func validateScheduler(cfg *Config) error {
	s := cfg.Scheduler
	known := make(map[string]bool, len(tierNames))
	for _, name := range tierNames {
		known[name] = true
	}
	for name, settings := range s.Tiers {
		if !known[strings.ToLower(name)] {
			return fmt.Errorf("scheduler.tiers: unknown tier %q; valid tiers are %s",
				name, strings.Join(tierNames, ", "))
		}
		if settings.Capacity < 0 {
			return fmt.Errorf("scheduler.tiers.%s.capacity must not be negative", name)
		}
		if settings.MaxConcurrency < 0 {
			return fmt.Errorf("scheduler.tiers.%s.max_concurrency must not be negative", name)
		}
	}
	if s.MaxHighPriorityStreak < 1 {
		return fmt.Errorf("scheduler.max_high_priority_streak must be >= 1, got %d", s.MaxHighPriorityStreak)
	}
	if s.IdleSleep < 0 {
		return fmt.Errorf("scheduler.idle_sleep must not be negative")
	}
	if s.YieldInterval < 1 {
		return fmt.Errorf("scheduler.yield_interval must be >= 1, got %d", s.YieldInterval)
	}
	if s.RetryBudget < 1 {
		return fmt.Errorf("scheduler.retry_budget must be >= 1, got %d", s.RetryBudget)
	}
	return nil
}

func validateCache(cfg *Config) error {
	if cfg.Cache.MaxDocuments < 1 {
		return fmt.Errorf("cache.max_documents must be >= 1, got %d", cfg.Cache.MaxDocuments)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Enabled && strings.TrimSpace(cfg.Workspace.Root) == "" {
		return fmt.Errorf("watch.enabled requires workspace.root to be set")
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be in 1..65535, got %d", cfg.Observability.Port)
	}
	return nil
}

func validateLogging(cfg *Config) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be one of: text, json")
	}
	return nil
}
