// # internal/engine/background/manager.go
package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.lsp.dev/uri"

	"apexls/internal/data/doccache"
	"apexls/internal/data/queue"
	"apexls/internal/engine/graph"
	"apexls/internal/engine/registry"
	"apexls/internal/engine/resolver"
	"apexls/internal/shared/observability"
	"apexls/internal/shared/util"
	"apexls/internal/symbols"
)

// Options tunes the scheduler. Zero fields fall back to the defaults.
type Options struct {
	QueueCapacities       [queue.NumTiers]int
	MaxConcurrency        [queue.NumTiers]int
	MaxHighPriorityStreak int
	IdleSleep             time.Duration
	YieldInterval         int
	YieldDelay            time.Duration
	RetryBudget           int
	HistorySize           int
}

func DefaultOptions() Options {
	return Options{
		QueueCapacities:       [queue.NumTiers]int{64, 64, 128, 256, 256, 512},
		MaxConcurrency:        [queue.NumTiers]int{2, 2, 2, 1, 1, 1},
		MaxHighPriorityStreak: 10,
		IdleSleep:             50 * time.Millisecond,
		YieldInterval:         100,
		YieldDelay:            10 * time.Millisecond,
		RetryBudget:           resolver.DefaultRetryBudget,
		HistorySize:           512,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	for i := range o.QueueCapacities {
		if o.QueueCapacities[i] <= 0 {
			o.QueueCapacities[i] = d.QueueCapacities[i]
		}
		if o.MaxConcurrency[i] <= 0 {
			o.MaxConcurrency[i] = d.MaxConcurrency[i]
		}
	}
	if o.MaxHighPriorityStreak <= 0 {
		o.MaxHighPriorityStreak = d.MaxHighPriorityStreak
	}
	if o.IdleSleep <= 0 {
		o.IdleSleep = d.IdleSleep
	}
	if o.YieldInterval <= 0 {
		o.YieldInterval = d.YieldInterval
	}
	if o.YieldDelay <= 0 {
		o.YieldDelay = d.YieldDelay
	}
	if o.RetryBudget <= 0 {
		o.RetryBudget = d.RetryBudget
	}
	if o.HistorySize <= 0 {
		o.HistorySize = d.HistorySize
	}
	return o
}

// QueueStats is a point-in-time snapshot of scheduler state.
type QueueStats struct {
	Running  bool
	Depths   map[queue.Tier]int
	Inflight map[queue.Tier]int
	Total    int
}

// Manager owns the six-tier queue, the dispatch loop, and the graph and
// registry mutations the tasks perform. Before Initialize (and after
// Shutdown) it degrades to synchronous registration so compile-path
// callers never lose work.
type Manager struct {
	opts  Options
	graph *graph.Graph
	reg   *registry.Registry
	cache *doccache.Cache
	res   *resolver.Resolver

	mu      sync.Mutex
	running bool
	q       *queue.PriorityQueue[*Task]
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup

	inflight [queue.NumTiers]int
	infMu    sync.Mutex

	records *util.LRUCache[string, Record]

	lockMu    sync.Mutex
	fileLocks map[uri.URI]*sync.Mutex
}

func NewManager(g *graph.Graph, reg *registry.Registry, cache *doccache.Cache, opts Options) *Manager {
	opts = opts.normalized()
	return &Manager{
		opts:      opts,
		graph:     g,
		reg:       reg,
		cache:     cache,
		res:       resolver.NewResolver(g, reg),
		records:   util.NewLRUCache[string, Record](opts.HistorySize),
		fileLocks: make(map[uri.URI]*sync.Mutex),
	}
}

// Initialize starts the dispatch loop. Calling it on a running manager is
// a no-op, and a manager that has been Shutdown can be initialized again.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.q = queue.NewPriorityQueue[*Task](m.opts.QueueCapacities)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	go m.run(ctx)
	slog.Info("background manager started",
		"max_streak", m.opts.MaxHighPriorityStreak,
		"idle_sleep", m.opts.IdleSleep)
	return nil
}

// Shutdown stops the loop and waits for in-flight tasks. Safe to call
// repeatedly; queued tasks that never ran keep their PENDING records.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.q.Close()
	m.cancel()
	done := m.done
	m.mu.Unlock()

	<-done
	m.wg.Wait()
	slog.Info("background manager stopped")
}

// Running reports whether the dispatch loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// ProcessSymbolTable schedules registration of a compiled table into the
// graph and registry, returning a task id to poll. An uninitialized
// manager registers synchronously and returns a sentinel id whose record
// is already COMPLETED; callers must treat that as a valid terminal
// state. A full tier rejects with SCHEDULER_OVERFLOW and schedules
// nothing, so the caller can apply the table itself.
func (m *Manager) ProcessSymbolTable(tbl *symbols.Table, rctx *registry.ResolveContext, tier queue.Tier) (string, error) {
	if tier < 0 || int(tier) >= queue.NumTiers {
		tier = queue.TierNormal
	}

	m.mu.Lock()
	running, q := m.running, m.q
	m.mu.Unlock()

	if !running {
		return m.applySync(tbl, rctx, tier, false)
	}

	task := &Task{
		ID:         newTaskID(),
		Type:       TaskSymbolIndexing,
		Tier:       tier,
		URI:        tbl.URI,
		Version:    tbl.Version,
		Table:      tbl,
		Ctx:        rctx,
		EnqueuedAt: time.Now(),
	}
	if err := q.Offer(tier, task); err != nil {
		return "", err
	}
	m.putRecord(Record{
		ID: task.ID, Type: task.Type, Tier: tier, URI: tbl.URI,
		State: StatePending, EnqueuedAt: task.EnqueuedAt,
	})
	return task.ID, nil
}

// ApplySymbolTable registers a table on the caller's goroutine. It is the
// overflow fallback of ProcessSymbolTable: accepted work is never dropped,
// the producer just pays for it itself. The returned id carries the
// synchronous sentinel prefix and resolves through TaskStatus like any
// other task id.
func (m *Manager) ApplySymbolTable(tbl *symbols.Table, rctx *registry.ResolveContext) (string, error) {
	return m.applySync(tbl, rctx, queue.TierCritical, m.Running())
}

// applySync registers a table on the calling goroutine and leaves a
// terminal record behind a fresh sync-prefixed id.
func (m *Manager) applySync(tbl *symbols.Table, rctx *registry.ResolveContext, tier queue.Tier, followups bool) (string, error) {
	id := SyncIDPrefix + newTaskID()
	now := time.Now()
	err := m.registerTable(tbl, rctx, followups)
	rec := Record{
		ID: id, Type: TaskSymbolIndexing, Tier: tier, URI: tbl.URI,
		State: StateCompleted, EnqueuedAt: now, StartedAt: now, FinishedAt: time.Now(),
	}
	if err != nil {
		rec.State = StateFailed
		rec.Error = err.Error()
	}
	m.putRecord(rec)
	return id, err
}

// RemoveFile drops a document's graph nodes, registry entries, and cached
// state under the per-file lock.
func (m *Manager) RemoveFile(docURI uri.URI) {
	unlock := m.lockFile(docURI)
	defer unlock()
	m.graph.RemoveFile(docURI)
	m.reg.UnregisterByFileURI(docURI)
	m.cache.Invalidate(docURI)
}

// TaskStatus returns the record for a task id, if it is still retained.
func (m *Manager) TaskStatus(id string) (Record, bool) {
	return m.records.Get(id)
}

// QueueStats snapshots per-tier depth and in-flight counts.
func (m *Manager) QueueStats() QueueStats {
	m.mu.Lock()
	running, q := m.running, m.q
	m.mu.Unlock()

	stats := QueueStats{
		Running:  running,
		Depths:   make(map[queue.Tier]int, queue.NumTiers),
		Inflight: make(map[queue.Tier]int, queue.NumTiers),
	}
	m.infMu.Lock()
	for _, t := range queue.Tiers() {
		stats.Inflight[t] = m.inflight[t]
	}
	m.infMu.Unlock()
	if q != nil {
		stats.Depths = q.Depths()
		stats.Total = q.TotalLen()
	} else {
		for _, t := range queue.Tiers() {
			stats.Depths[t] = 0
		}
	}
	return stats
}

// TableFor exposes the cached table for a document; deferred resolution
// re-checks the version against what it captured.
func (m *Manager) TableFor(docURI uri.URI) (*symbols.Table, bool) {
	state, ok := m.cache.Peek(docURI)
	if !ok || state.Table == nil {
		return nil, false
	}
	return state.Table, true
}

var _ resolver.TableSource = (*Manager)(nil)

// registerTable applies one file's compile result: whole-table swap into
// the graph, registry re-registration, then reference resolution. Holding
// the per-file lock for the full span keeps writers to one per file.
func (m *Manager) registerTable(tbl *symbols.Table, rctx *registry.ResolveContext, enqueueFollowups bool) error {
	unlock := m.lockFile(tbl.URI)
	defer unlock()

	started := time.Now()
	m.graph.AddTable(tbl)
	m.reg.UnregisterByFileURI(tbl.URI)
	m.reg.RegisterTypes(typeEntries(tbl))

	outcome := m.res.ResolveTable(tbl, rctx)

	indexed := true
	m.cache.Merge(tbl.URI, doccache.Update{
		Table:           tbl,
		DocumentVersion: &tbl.Version,
		SymbolsIndexed:  &indexed,
	})
	observability.IndexingDuration.Observe(time.Since(started).Seconds())

	if !enqueueFollowups {
		// No loop to run follow-ups, so attach comments inline.
		tbl.AssociateComments()
		return nil
	}
	for _, d := range outcome.Deferred {
		m.enqueueInternal(&Task{
			ID: newTaskID(), Type: TaskDeferredProcess, Tier: queue.TierLow,
			URI: d.URI, Version: d.Version, Deferred: d, Ctx: rctx,
			EnqueuedAt: time.Now(),
		})
	}
	if len(tbl.Comments()) > 0 {
		m.enqueueInternal(&Task{
			ID: newTaskID(), Type: TaskCommentAssociation, Tier: queue.TierBackground,
			URI: tbl.URI, Version: tbl.Version, Table: tbl, Ctx: rctx,
			EnqueuedAt: time.Now(),
		})
	}
	return nil
}

// enqueueInternal offers a follow-up task, best effort. Overflow here is
// logged and dropped rather than surfaced: the compile result is already
// applied, only enrichment is lost.
func (m *Manager) enqueueInternal(task *Task) {
	m.mu.Lock()
	q := m.q
	m.mu.Unlock()
	if q == nil {
		return
	}
	if err := q.Offer(task.Tier, task); err != nil {
		slog.Warn("follow-up task dropped",
			"type", string(task.Type), "tier", task.Tier.String(), "uri", string(task.URI), "error", err)
		return
	}
	m.putRecord(Record{
		ID: task.ID, Type: task.Type, Tier: task.Tier, URI: task.URI,
		State: StatePending, EnqueuedAt: task.EnqueuedAt,
	})
}

func (m *Manager) putRecord(rec Record) {
	m.records.Put(rec.ID, rec)
}

func (m *Manager) updateRecord(id string, mutate func(*Record)) {
	m.records.Update(id, mutate)
}

func (m *Manager) lockFile(docURI uri.URI) func() {
	m.lockMu.Lock()
	lock, ok := m.fileLocks[docURI]
	if !ok {
		lock = &sync.Mutex{}
		m.fileLocks[docURI] = lock
	}
	m.lockMu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// typeEntries extracts the registry rows for every type-level declaration
// in a table.
func typeEntries(tbl *symbols.Table) []registry.Entry {
	var entries []registry.Entry
	for _, sym := range tbl.AllSymbols() {
		if !sym.Kind.IsType() {
			continue
		}
		fqn := sym.FQN
		if fqn == "" {
			fqn = sym.Name
			if sym.Namespace != "" {
				fqn = sym.Namespace + "." + sym.Name
			}
		}
		entries = append(entries, registry.Entry{
			FQN:       fqn,
			Name:      sym.Name,
			Namespace: sym.Namespace,
			Kind:      sym.Kind,
			SymbolID:  sym.ID,
			FileURI:   tbl.URI,
		})
	}
	return entries
}
