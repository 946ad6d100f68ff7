package graph

// internal/engine/graph/serialize.go

import (
	"encoding/json"
	"sort"

	"go.lsp.dev/uri"

	"apexls/internal/symbols"
)

// Data is a flat node/edge list. Nodes and edges reference each other only
// by id, so json.Marshal never follows a back-reference cycle.
type Data struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// GraphData snapshots the whole graph.
func (g *Graph) GraphData() Data {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked(func(*Node) bool { return true }, func(*Edge) bool { return true })
}

// GraphDataForFile snapshots the nodes owned by one file plus every edge
// touching them.
func (g *Graph) GraphDataForFile(fileURI uri.URI) Data {
	g.mu.RLock()
	defer g.mu.RUnlock()
	owned := g.fileNodes[fileURI]
	return g.snapshotLocked(
		func(n *Node) bool { return owned[n.ID] },
		func(e *Edge) bool { return owned[e.From] || owned[e.To] },
	)
}

// GraphDataByType snapshots nodes of one symbol kind and the edges between
// surviving nodes.
func (g *Graph) GraphDataByType(kind symbols.SymbolKind) Data {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keep := make(map[string]bool)
	for id, n := range g.nodes {
		if n.Kind == kind {
			keep[id] = true
		}
	}
	return g.snapshotLocked(
		func(n *Node) bool { return keep[n.ID] },
		func(e *Edge) bool { return keep[e.From] && keep[e.To] },
	)
}

// GraphDataAsJSON encodes the full snapshot.
func (g *Graph) GraphDataAsJSON() ([]byte, error) {
	return json.Marshal(g.GraphData())
}

func (g *Graph) snapshotLocked(keepNode func(*Node) bool, keepEdge func(*Edge) bool) Data {
	data := Data{Nodes: make([]Node, 0), Edges: make([]Edge, 0)}

	for _, n := range g.nodes {
		if !keepNode(n) {
			continue
		}
		snapshot := *n
		snapshot.ReferenceCount = len(g.edgesTo[n.ID])
		data.Nodes = append(data.Nodes, snapshot)
	}
	sort.Slice(data.Nodes, func(i, j int) bool { return data.Nodes[i].ID < data.Nodes[j].ID })

	for _, list := range g.edgesFrom {
		for _, e := range list {
			if keepEdge(e) {
				data.Edges = append(data.Edges, *e)
			}
		}
	}
	sort.Slice(data.Edges, func(i, j int) bool {
		if data.Edges[i].From != data.Edges[j].From {
			return data.Edges[i].From < data.Edges[j].From
		}
		if data.Edges[i].To != data.Edges[j].To {
			return data.Edges[i].To < data.Edges[j].To
		}
		return data.Edges[i].Type < data.Edges[j].Type
	})

	return data
}
