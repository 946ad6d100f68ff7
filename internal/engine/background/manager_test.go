// # internal/engine/background/manager_test.go
package background

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	apexerrors "apexls/internal/core/errors"
	"apexls/internal/data/doccache"
	"apexls/internal/data/queue"
	"apexls/internal/engine/graph"
	"apexls/internal/engine/registry"
	"apexls/internal/engine/resolver"
	"apexls/internal/symbols"
)

func newTestManager() *Manager {
	opts := DefaultOptions()
	opts.IdleSleep = 2 * time.Millisecond
	return NewManager(graph.NewGraph(), registry.NewRegistry(), doccache.NewCache(doccache.DefaultMaxSize), opts)
}

func declRange(line uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: 0},
		End:   protocol.Position{Line: line + 10, Character: 1},
	}
}

func identRange(line, start, end uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: start},
		End:   protocol.Position{Line: line, Character: end},
	}
}

// classTable builds a table declaring one public class with one method.
func classTable(docURI uri.URI, version int32, className string) *symbols.Table {
	tbl := symbols.NewTable(docURI, version)
	cls := &symbols.Symbol{
		Name:     className,
		Kind:     symbols.KindClass,
		FQN:      className,
		Location: symbols.Location{URI: docURI, Range: declRange(2), Identifier: identRange(2, 13, 13+uint32(len(className)))},
	}
	tbl.AddSymbol(cls)
	tbl.EnterScope(className, symbols.KindClass, declRange(2))
	tbl.AddSymbol(&symbols.Symbol{
		Name:     "run",
		Kind:     symbols.KindMethod,
		Location: symbols.Location{URI: docURI, Range: declRange(4), Identifier: identRange(4, 16, 19)},
	})
	tbl.ExitScope()
	return tbl
}

func waitTerminal(t *testing.T, m *Manager, id string) Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := m.TaskStatus(id); ok && rec.Terminal() {
			return rec
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s did not reach a terminal state", id)
	return Record{}
}

func TestProcessSymbolTable_SyncFallback(t *testing.T) {
	m := newTestManager()
	fileURI := uri.File("/src/Account.cls")

	id, err := m.ProcessSymbolTable(classTable(fileURI, 1, "Account"), nil, queue.TierNormal)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, SyncIDPrefix), "expected sentinel id, got %q", id)

	// The sentinel is a valid, immediately terminal task.
	rec, ok := m.TaskStatus(id)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, rec.State)

	// Registration happened synchronously.
	assert.NotZero(t, m.graph.NodeCount())
	_, found := m.reg.GetType("Account")
	assert.True(t, found)

	state, ok := m.cache.Peek(fileURI)
	require.True(t, ok)
	assert.True(t, state.SymbolsIndexed)
	assert.Equal(t, int32(1), state.DocumentVersion)
}

func TestProcessSymbolTable_Async(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Initialize())
	defer m.Shutdown()

	fileURI := uri.File("/src/Invoice.cls")
	id, err := m.ProcessSymbolTable(classTable(fileURI, 3, "Invoice"), nil, queue.TierHigh)
	require.NoError(t, err)
	require.False(t, strings.HasPrefix(id, SyncIDPrefix))

	rec := waitTerminal(t, m, id)
	assert.Equal(t, StateCompleted, rec.State)
	assert.Equal(t, TaskSymbolIndexing, rec.Type)
	assert.False(t, rec.StartedAt.IsZero())
	assert.False(t, rec.FinishedAt.IsZero())

	_, found := m.reg.GetType("Invoice")
	assert.True(t, found)
}

func TestManager_ShutdownIdempotentAndReinitializable(t *testing.T) {
	m := newTestManager()

	// Shutdown before Initialize is a no-op.
	m.Shutdown()

	require.NoError(t, m.Initialize())
	require.NoError(t, m.Initialize()) // second call is a no-op
	assert.True(t, m.Running())

	m.Shutdown()
	m.Shutdown()
	assert.False(t, m.Running())

	// A stopped manager degrades to the synchronous path.
	id, err := m.ProcessSymbolTable(classTable(uri.File("/src/A.cls"), 1, "A"), nil, queue.TierNormal)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, SyncIDPrefix))

	// And can be brought back up.
	require.NoError(t, m.Initialize())
	defer m.Shutdown()
	id, err = m.ProcessSymbolTable(classTable(uri.File("/src/B.cls"), 1, "B"), nil, queue.TierNormal)
	require.NoError(t, err)
	rec := waitTerminal(t, m, id)
	assert.Equal(t, StateCompleted, rec.State)
}

func TestQueueStats(t *testing.T) {
	m := newTestManager()

	stats := m.QueueStats()
	assert.False(t, stats.Running)
	assert.Zero(t, stats.Total)
	assert.Len(t, stats.Depths, queue.NumTiers)

	require.NoError(t, m.Initialize())
	defer m.Shutdown()
	assert.True(t, m.QueueStats().Running)
}

func TestDeferredReference_ResolvesAfterDependencyLoads(t *testing.T) {
	m := newTestManager()
	callerURI := uri.File("/src/Caller.cls")

	// Caller references a type that does not exist yet.
	caller := classTable(callerURI, 1, "Caller")
	caller.AddReference(symbols.Reference{
		Name:    "Invoice",
		Range:   identRange(5, 8, 15),
		Context: symbols.RefTypeReference,
	})
	_, err := m.ProcessSymbolTable(caller, nil, queue.TierNormal)
	require.NoError(t, err)
	require.Len(t, caller.UnresolvedReferences(), 1)

	// The dependency arrives.
	_, err = m.ProcessSymbolTable(classTable(uri.File("/src/Invoice.cls"), 1, "Invoice"), nil, queue.TierNormal)
	require.NoError(t, err)

	// Re-running the deferred occurrence binds it to the new type.
	task := &Task{
		ID:   newTaskID(),
		Type: TaskDeferredProcess,
		URI:  callerURI,
		Deferred: resolver.Deferred{
			URI: callerURI, Version: 1, RefIndex: 0, Name: "Invoice",
		},
	}
	require.NoError(t, m.runTask(task))

	refs := caller.References()
	require.Len(t, refs, 1)
	assert.True(t, refs[0].Resolved())
	assert.Equal(t, "Invoice", refs[0].ResolvedID)
}

func TestDeferredReference_StaleVersionIsHandled(t *testing.T) {
	m := newTestManager()
	fileURI := uri.File("/src/Caller.cls")

	caller := classTable(fileURI, 2, "Caller")
	caller.AddReference(symbols.Reference{
		Name:    "Missing",
		Range:   identRange(5, 8, 15),
		Context: symbols.RefTypeReference,
	})
	_, err := m.ProcessSymbolTable(caller, nil, queue.TierNormal)
	require.NoError(t, err)

	// A deferred occurrence captured from version 1 is owned by a compile
	// that no longer exists; it must be dropped, not retried.
	task := &Task{
		ID:   newTaskID(),
		Type: TaskDeferredRetry,
		URI:  fileURI,
		Deferred: resolver.Deferred{
			URI: fileURI, Version: 1, RefIndex: 0, Name: "Missing",
		},
	}
	require.NoError(t, m.runTask(task))
	assert.False(t, caller.References()[0].Resolved())
}

func TestCommentAssociation_SyncPath(t *testing.T) {
	m := newTestManager()
	fileURI := uri.File("/src/Billed.cls")

	tbl := classTable(fileURI, 1, "Billed")
	tbl.AddComment(symbols.Comment{
		Text:  "/** Billing root. */",
		Range: identRange(1, 0, 20),
	})

	_, err := m.ProcessSymbolTable(tbl, nil, queue.TierNormal)
	require.NoError(t, err)

	sym, ok := tbl.Lookup("Billed")
	require.True(t, ok)
	assert.Equal(t, "/** Billing root. */", tbl.Documentation(sym.ID))
}

func TestRegisterTable_ReplacesPriorVersion(t *testing.T) {
	m := newTestManager()
	fileURI := uri.File("/src/Order.cls")

	_, err := m.ProcessSymbolTable(classTable(fileURI, 1, "Order"), nil, queue.TierNormal)
	require.NoError(t, err)
	_, err = m.ProcessSymbolTable(classTable(fileURI, 2, "OrderV2"), nil, queue.TierNormal)
	require.NoError(t, err)

	// The old type is gone from the registry; the graph holds only the
	// new file contribution.
	_, found := m.reg.GetType("Order")
	assert.False(t, found)
	_, found = m.reg.GetType("OrderV2")
	assert.True(t, found)

	state, ok := m.cache.Peek(fileURI)
	require.True(t, ok)
	assert.Equal(t, int32(2), state.DocumentVersion)
}

// A saturated tier rejects at offer time; the synchronous fallback must
// still leave a pollable terminal record behind.
func TestApplySymbolTable_OverflowFallbackIsPollable(t *testing.T) {
	opts := DefaultOptions()
	opts.QueueCapacities[queue.TierCritical] = 1
	m := NewManager(graph.NewGraph(), registry.NewRegistry(), doccache.NewCache(doccache.DefaultMaxSize), opts)
	m.q = queue.NewPriorityQueue[*Task](opts.QueueCapacities)
	m.running = true // queue live, dispatch loop deliberately not started

	fill := uri.File("/src/Filler.cls")
	_, err := m.ProcessSymbolTable(classTable(fill, 1, "Filler"), nil, queue.TierCritical)
	require.NoError(t, err)

	over := uri.File("/src/Overflowed.cls")
	_, err = m.ProcessSymbolTable(classTable(over, 1, "Overflowed"), nil, queue.TierCritical)
	require.Error(t, err)
	assert.True(t, apexerrors.IsCode(err, apexerrors.CodeSchedulerOverflow))

	id, err := m.ApplySymbolTable(classTable(over, 1, "Overflowed"), nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, SyncIDPrefix))

	rec, ok := m.TaskStatus(id)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, rec.State)
	assert.Equal(t, over, rec.URI)

	// Two overflow applications never share an id.
	id2, err := m.ApplySymbolTable(classTable(over, 2, "Overflowed"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)

	_, found := m.reg.GetType("Overflowed")
	assert.True(t, found)
}
