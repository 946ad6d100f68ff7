// # internal/engine/graph/graph.go
package graph

import (
	"sort"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	apexerrors "apexls/internal/core/errors"
	"apexls/internal/shared/observability"
	"apexls/internal/symbols"
)

// Node is a flat symbol summary. It carries only ids, never pointers into
// the owning table, so the graph serializes without cycles.
type Node struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Kind           symbols.SymbolKind `json:"kind"`
	URI            uri.URI            `json:"uri"`
	ParentID       string             `json:"parentId,omitempty"`
	ReferenceCount int                `json:"referenceCount"`
}

// Edge is a typed reference between two symbol ids. URI is the file the
// occurrence lives in (the from-side file).
type Edge struct {
	From  string                   `json:"from"`
	To    string                   `json:"to"`
	Type  symbols.ReferenceContext `json:"type"`
	URI   uri.URI                  `json:"uri"`
	Range protocol.Range           `json:"range"`
}

// Graph is the process-wide symbol/reference graph, shared by all files.
// Writers are funneled through the background manager or the compile path;
// readers may query concurrently.
type Graph struct {
	mu sync.RWMutex

	nodes     map[string]*Node
	fileNodes map[uri.URI]map[string]bool

	edgesFrom map[string][]*Edge
	edgesTo   map[string][]*Edge
}

func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		fileNodes: make(map[uri.URI]map[string]bool),
		edgesFrom: make(map[string][]*Edge),
		edgesTo:   make(map[string][]*Edge),
	}
}

// AddSymbol inserts or refreshes a node owned by fileURI.
func (g *Graph) AddSymbol(sym *symbols.Symbol, fileURI uri.URI) {
	if sym == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addSymbolLocked(sym, fileURI)
	g.publishGaugesLocked()
}

// AddTable inserts every symbol of a table. Used by the indexing task so a
// file's node set appears in one critical section.
func (g *Graph) AddTable(tbl *symbols.Table) {
	if tbl == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	// Replace prior contributions so re-compiles do not leave stale nodes.
	g.removeFileLocked(tbl.URI)
	for _, sym := range tbl.AllSymbols() {
		g.addSymbolLocked(sym, tbl.URI)
	}
	g.publishGaugesLocked()
}

func (g *Graph) addSymbolLocked(sym *symbols.Symbol, fileURI uri.URI) {
	g.nodes[sym.ID] = &Node{
		ID:       sym.ID,
		Name:     sym.Name,
		Kind:     sym.Kind,
		URI:      fileURI,
		ParentID: sym.ParentID,
	}
	if g.fileNodes[fileURI] == nil {
		g.fileNodes[fileURI] = make(map[string]bool)
	}
	g.fileNodes[fileURI][sym.ID] = true
}

// AddReference records a typed edge. Both endpoints must already be nodes;
// a missing endpoint is reported as NOT_FOUND so the caller can defer the
// reference instead of leaving a dangling edge.
func (g *Graph) AddReference(fromID, toID string, refType symbols.ReferenceContext, fileURI uri.URI, rng protocol.Range) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[fromID]; !ok {
		return apexerrors.AddContext(apexerrors.New(apexerrors.CodeNotFound, "unknown edge source"), apexerrors.CtxSymbol, fromID)
	}
	if _, ok := g.nodes[toID]; !ok {
		return apexerrors.AddContext(apexerrors.New(apexerrors.CodeNotFound, "unknown edge target"), apexerrors.CtxSymbol, toID)
	}

	edge := &Edge{From: fromID, To: toID, Type: refType, URI: fileURI, Range: rng}
	g.edgesFrom[fromID] = append(g.edgesFrom[fromID], edge)
	g.edgesTo[toID] = append(g.edgesTo[toID], edge)
	g.publishGaugesLocked()
	return nil
}

// RemoveFile cascades: every node owned by the file goes away, along with
// all edges that start in the file or end at a removed node.
func (g *Graph) RemoveFile(fileURI uri.URI) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeFileLocked(fileURI)
	g.publishGaugesLocked()
}

func (g *Graph) removeFileLocked(fileURI uri.URI) {
	owned := g.fileNodes[fileURI]
	if owned == nil {
		return
	}

	drop := func(list []*Edge) []*Edge {
		kept := list[:0]
		for _, e := range list {
			if e.URI == fileURI || owned[e.From] || owned[e.To] {
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			return nil
		}
		return kept
	}

	for id, list := range g.edgesFrom {
		if next := drop(list); next == nil {
			delete(g.edgesFrom, id)
		} else {
			g.edgesFrom[id] = next
		}
	}
	for id, list := range g.edgesTo {
		if next := drop(list); next == nil {
			delete(g.edgesTo, id)
		} else {
			g.edgesTo[id] = next
		}
	}

	for id := range owned {
		delete(g.nodes, id)
	}
	delete(g.fileNodes, fileURI)
}

// FindReferencesTo returns every edge ending at id. An unknown id yields an
// empty result, never an error.
func (g *Graph) FindReferencesTo(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneEdges(g.edgesTo[id])
}

// FindReferencesFrom returns every edge starting at id.
func (g *Graph) FindReferencesFrom(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneEdges(g.edgesFrom[id])
}

// Node returns a node snapshot by id.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	snapshot := *n
	snapshot.ReferenceCount = len(g.edgesTo[id])
	return snapshot, true
}

// NodesInFile returns the node snapshots owned by a file, ordered by id.
func (g *Graph) NodesInFile(fileURI uri.URI) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.fileNodes[fileURI]))
	for id := range g.fileNodes[fileURI] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		snapshot := *g.nodes[id]
		snapshot.ReferenceCount = len(g.edgesTo[id])
		nodes = append(nodes, snapshot)
	}
	return nodes
}

// FindNodesByName returns node snapshots whose symbol name matches, across
// all files, ordered by id.
func (g *Graph) FindNodesByName(name string) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var nodes []Node
	for _, n := range g.nodes {
		if n.Name == name {
			snapshot := *n
			snapshot.ReferenceCount = len(g.edgesTo[n.ID])
			nodes = append(nodes, snapshot)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeCountLocked()
}

func (g *Graph) edgeCountLocked() int {
	count := 0
	for _, list := range g.edgesFrom {
		count += len(list)
	}
	return count
}

// Files returns every file URI owning nodes, sorted.
func (g *Graph) Files() []uri.URI {
	g.mu.RLock()
	defer g.mu.RUnlock()
	files := make([]uri.URI, 0, len(g.fileNodes))
	for f := range g.fileNodes {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })
	return files
}

func (g *Graph) publishGaugesLocked() {
	observability.GraphNodes.Set(float64(len(g.nodes)))
	observability.GraphEdges.Set(float64(g.edgeCountLocked()))
}

func cloneEdges(list []*Edge) []Edge {
	edges := make([]Edge, 0, len(list))
	for _, e := range list {
		edges = append(edges, *e)
	}
	return edges
}
