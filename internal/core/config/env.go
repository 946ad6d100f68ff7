// # internal/core/config/env.go
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: APEXLS_[SECTION]_[KEY], with per-tier scheduler
// settings as APEXLS_SCHEDULER_[TIER]_CAPACITY / _MAX_CONCURRENCY.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Workspace.Root, "APEXLS_WORKSPACE_ROOT")

	setEnvInt(&cfg.Scheduler.MaxHighPriorityStreak, "APEXLS_SCHEDULER_MAX_HIGH_PRIORITY_STREAK")
	setEnvDuration(&cfg.Scheduler.IdleSleep, "APEXLS_SCHEDULER_IDLE_SLEEP")
	setEnvInt(&cfg.Scheduler.YieldInterval, "APEXLS_SCHEDULER_YIELD_INTERVAL")
	setEnvDuration(&cfg.Scheduler.YieldDelay, "APEXLS_SCHEDULER_YIELD_DELAY")
	setEnvInt(&cfg.Scheduler.RetryBudget, "APEXLS_SCHEDULER_RETRY_BUDGET")
	setEnvInt(&cfg.Scheduler.HistorySize, "APEXLS_SCHEDULER_HISTORY_SIZE")
	for _, name := range tierNames {
		prefix := "APEXLS_SCHEDULER_" + strings.ToUpper(name)
		settings := cfg.Scheduler.Tiers[name]
		setEnvInt(&settings.Capacity, prefix+"_CAPACITY")
		setEnvInt(&settings.MaxConcurrency, prefix+"_MAX_CONCURRENCY")
		if settings != (TierSettings{}) {
			cfg.Scheduler.Tiers[name] = settings
		}
	}

	setEnvInt(&cfg.Cache.MaxDocuments, "APEXLS_CACHE_MAX_DOCUMENTS")
	setEnvString(&cfg.Stdlib.Path, "APEXLS_STDLIB_PATH")

	setEnvBool(&cfg.Watch.Enabled, "APEXLS_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "APEXLS_WATCH_DEBOUNCE")

	setEnvBool(&cfg.Observability.Enabled, "APEXLS_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "APEXLS_OBSERVABILITY_PORT")

	setEnvString(&cfg.Logging.Level, "APEXLS_LOGGING_LEVEL")
	setEnvString(&cfg.Logging.Format, "APEXLS_LOGGING_FORMAT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
