// # internal/core/app/service.go
package app

import (
	"log/slog"
	"sync"

	"go.lsp.dev/uri"

	"apexls/internal/core/config"
	apexerrors "apexls/internal/core/errors"
	"apexls/internal/data/doccache"
	"apexls/internal/data/queue"
	"apexls/internal/data/stdlib"
	"apexls/internal/engine/background"
	"apexls/internal/engine/graph"
	"apexls/internal/engine/registry"
	"apexls/internal/symbols"
)

// Service is the facade LSP-facing handlers talk to. It owns the graph,
// registry, document cache, and background manager, and is explicitly
// constructed and closed; nothing here is a process-wide singleton.
type Service struct {
	cfg *config.Config

	Graph    *graph.Graph
	Registry *registry.Registry
	Cache    *doccache.Cache

	manager *background.Manager

	mu     sync.Mutex
	closed bool
}

// New builds a service from configuration. A configured stdlib artifact
// that fails its integrity check aborts construction; a missing path just
// means no stdlib types.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	g := graph.NewGraph()
	reg := registry.NewRegistry()
	cache := doccache.NewCache(cfg.Cache.MaxDocuments)

	if cfg.Stdlib.Path != "" {
		if _, err := stdlib.LoadIntoRegistry(cfg.Stdlib.Path, reg); err != nil {
			return nil, err
		}
	}

	mgr := background.NewManager(g, reg, cache, schedulerOptions(cfg))
	if err := mgr.Initialize(); err != nil {
		return nil, err
	}

	return &Service{
		cfg:      cfg,
		Graph:    g,
		Registry: reg,
		Cache:    cache,
		manager:  mgr,
	}, nil
}

// Close drains the background manager. Safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.manager.Shutdown()
	return nil
}

func schedulerOptions(cfg *config.Config) background.Options {
	opts := background.DefaultOptions()
	opts.MaxHighPriorityStreak = cfg.Scheduler.MaxHighPriorityStreak
	opts.IdleSleep = cfg.Scheduler.IdleSleep
	opts.YieldInterval = cfg.Scheduler.YieldInterval
	opts.YieldDelay = cfg.Scheduler.YieldDelay
	opts.RetryBudget = cfg.Scheduler.RetryBudget
	opts.HistorySize = cfg.Scheduler.HistorySize
	for _, tier := range queue.Tiers() {
		settings, ok := cfg.Scheduler.Tiers[tier.String()]
		if !ok {
			continue
		}
		if settings.Capacity > 0 {
			opts.QueueCapacities[tier] = settings.Capacity
		}
		if settings.MaxConcurrency > 0 {
			opts.MaxConcurrency[tier] = settings.MaxConcurrency
		}
	}
	return opts
}

// resolveContext builds the registry lookup context for one file.
func (s *Service) resolveContext(currentNamespace string) *registry.ResolveContext {
	return &registry.ResolveContext{
		CurrentNamespace:    currentNamespace,
		NamespacePreference: s.cfg.Resolution.NamespacePreference,
	}
}

// AddSymbolTable feeds one compiled table into the semantic model. The
// table is scheduled on the CRITICAL tier; when that tier is saturated
// the work is applied on the calling goroutine instead, so a compile
// result is never dropped. The returned id is pollable via TaskStatus.
func (s *Service) AddSymbolTable(tbl *symbols.Table) (string, error) {
	if tbl == nil {
		return "", apexerrors.New(apexerrors.CodeValidationError, "symbol table must not be nil")
	}
	rctx := s.resolveContext(fileNamespace(tbl))

	id, err := s.manager.ProcessSymbolTable(tbl, rctx, queue.TierCritical)
	if err == nil {
		return id, nil
	}
	if !apexerrors.IsCode(err, apexerrors.CodeSchedulerOverflow) {
		return "", err
	}
	slog.Warn("critical tier saturated, applying table synchronously", "uri", string(tbl.URI))
	return s.manager.ApplySymbolTable(tbl, rctx)
}

// RemoveFile drops every trace of a document: graph nodes and edges,
// registry entries, and the cached state.
func (s *Service) RemoveFile(docURI uri.URI) {
	s.manager.RemoveFile(docURI)
}

// FindSymbolByName returns graph nodes matching a simple name, across all
// files.
func (s *Service) FindSymbolByName(name string) []graph.Node {
	return s.Graph.FindNodesByName(name)
}

// FindSymbolByFQN looks a type up by fully qualified name,
// case-insensitively.
func (s *Service) FindSymbolByFQN(fqn string) (registry.Entry, bool) {
	return s.Registry.GetType(fqn)
}

// FindSymbolsInFile returns every node contributed by one document.
func (s *Service) FindSymbolsInFile(docURI uri.URI) []graph.Node {
	return s.Graph.NodesInFile(docURI)
}

// FindReferencesTo returns the incoming reference edges of a symbol id.
func (s *Service) FindReferencesTo(id string) []graph.Edge {
	return s.Graph.FindReferencesTo(id)
}

// FindReferencesFrom returns the outgoing reference edges of a symbol id.
func (s *Service) FindReferencesFrom(id string) []graph.Edge {
	return s.Graph.FindReferencesFrom(id)
}

// ResolveType resolves a type name the way reference resolution does,
// honoring the configured namespace preference.
func (s *Service) ResolveType(name, currentNamespace string) (registry.Resolution, bool) {
	res, ok := s.Registry.ResolveType(name, s.resolveContext(currentNamespace))
	if ok && res.Ambiguous {
		fqns := make([]string, 0, res.Candidates)
		for _, e := range s.Registry.CandidatesFor(name) {
			fqns = append(fqns, e.FQN)
		}
		slog.Debug("ambiguous type name",
			"name", name, "picked", res.Entry.FQN, "candidates", fqns)
	}
	return res, ok
}

// Document returns the cached state for an exact document version.
func (s *Service) Document(docURI uri.URI, version int32) (doccache.State, bool) {
	return s.Cache.Get(docURI, version)
}

// MergeDocument merges a partial update into the cached state.
func (s *Service) MergeDocument(docURI uri.URI, update doccache.Update) doccache.State {
	return s.Cache.Merge(docURI, update)
}

// InvalidateDocument drops the cached state for a document.
func (s *Service) InvalidateDocument(docURI uri.URI) bool {
	return s.Cache.Invalidate(docURI)
}

// TaskStatus reports the lifecycle of a scheduled task.
func (s *Service) TaskStatus(id string) (background.Record, bool) {
	return s.manager.TaskStatus(id)
}

// QueueStats snapshots the scheduler queues.
func (s *Service) QueueStats() background.QueueStats {
	return s.manager.QueueStats()
}

// CircularDependencies reports file-level dependency cycles.
func (s *Service) CircularDependencies() [][]uri.URI {
	return s.Graph.DetectCircularDependencies()
}

// DependentFiles returns the impact set of one document.
func (s *Service) DependentFiles(docURI uri.URI) []uri.URI {
	return s.Graph.DependentFiles(docURI)
}

// fileNamespace picks the namespace of the first type declared in the
// table; files with no type declaration resolve from the default
// namespace.
func fileNamespace(tbl *symbols.Table) string {
	for _, sym := range tbl.AllSymbols() {
		if sym.Kind.IsType() && sym.Namespace != "" {
			return sym.Namespace
		}
	}
	return ""
}
