// # cmd/apexls/main.go
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.lsp.dev/uri"

	"apexls/internal/core/app"
	"apexls/internal/core/config"
	"apexls/internal/core/watcher"
)

var (
	configPath  = flag.String("config", "./apexls.toml", "Path to config file")
	stdlibPath  = flag.String("stdlib", "", "Path to the precompiled stdlib cache (overrides config)")
	metricsFlag = flag.Bool("metrics", false, "Serve prometheus metrics and health endpoints")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.3.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("apexls v%s\n", VERSION)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) && *configPath == "./apexls.toml" {
			cfg = config.DefaultConfig()
			config.ApplyEnvOverrides(cfg)
		} else {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *stdlibPath != "" {
		cfg.Stdlib.Path = *stdlibPath
	}
	if flag.NArg() > 0 {
		cfg.Workspace.Root = flag.Arg(0)
	}

	setupLogging(cfg, *verbose)

	service, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}
	defer service.Close()

	var obs *observabilityHandle
	if *metricsFlag || cfg.Observability.Enabled {
		obs = startObservability(cfg, service)
	}

	var w *watcher.Watcher
	if cfg.Watch.Enabled {
		w, err = startWatcher(cfg, service)
		if err != nil {
			slog.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		defer w.Close()
	}

	slog.Info("apexls ready",
		"workspace", cfg.Workspace.Root,
		"stdlib", cfg.Stdlib.Path != "",
		"watching", cfg.Watch.Enabled)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down")
	if obs != nil {
		obs.stop()
	}
}

func setupLogging(cfg *config.Config, verbose bool) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Logging.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func startWatcher(cfg *config.Config, service *app.Service) (*watcher.Watcher, error) {
	w, err := watcher.New(cfg.Watch.Debounce, cfg.Workspace.Include, cfg.Workspace.Exclude,
		func(changes []watcher.Change) {
			for _, c := range changes {
				docURI := uri.File(c.Path)
				if c.Removed {
					service.RemoveFile(docURI)
					slog.Debug("removed document", "uri", string(docURI))
					continue
				}
				// The next compile for this document repopulates the
				// state; until then stale versions must miss.
				service.InvalidateDocument(docURI)
				slog.Debug("invalidated document", "uri", string(docURI))
			}
		})
	if err != nil {
		return nil, err
	}
	return w, w.Watch(cfg.Workspace.Root)
}
