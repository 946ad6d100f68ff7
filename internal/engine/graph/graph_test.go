// # internal/engine/graph/graph_test.go
package graph

import (
	"encoding/json"
	"testing"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	apexerrors "apexls/internal/core/errors"
	"apexls/internal/symbols"
)

func addClass(t *testing.T, g *Graph, fileURI uri.URI, name string) {
	t.Helper()
	g.AddSymbol(&symbols.Symbol{ID: name, Name: name, Kind: symbols.KindClass}, fileURI)
}

func addMethod(t *testing.T, g *Graph, fileURI uri.URI, class, name string) {
	t.Helper()
	g.AddSymbol(&symbols.Symbol{
		ID:       class + "." + name,
		Name:     name,
		Kind:     symbols.KindMethod,
		ParentID: class,
	}, fileURI)
}

func TestGraph_AddRemoveFile(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	fileB := uri.URI("file:///src/B.cls")

	addClass(t, g, fileA, "A")
	addMethod(t, g, fileA, "A", "run")
	addClass(t, g, fileB, "B")

	if err := g.AddReference("A.run", "B", symbols.RefTypeReference, fileA, protocol.Range{}); err != nil {
		t.Fatalf("AddReference failed: %v", err)
	}

	if g.NodeCount() != 3 {
		t.Errorf("Expected 3 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("Expected 1 edge, got %d", g.EdgeCount())
	}

	g.RemoveFile(fileA)
	if g.NodeCount() != 1 {
		t.Errorf("Expected 1 node after removal, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 0 {
		t.Errorf("Expected edges removed with the source file, got %d", g.EdgeCount())
	}
	if refs := g.FindReferencesTo("B"); len(refs) != 0 {
		t.Errorf("Expected no dangling references to B, got %d", len(refs))
	}

	data := g.GraphData()
	for _, n := range data.Nodes {
		if n.URI == fileA {
			t.Errorf("Node %s from removed file still present", n.ID)
		}
	}
}

func TestGraph_AddReferenceUnknownEndpoint(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	addClass(t, g, fileA, "A")

	err := g.AddReference("A", "Missing", symbols.RefTypeReference, fileA, protocol.Range{})
	if !apexerrors.IsCode(err, apexerrors.CodeNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Error("Expected no edge for unknown endpoint")
	}
}

func TestGraph_QueriesUnknownIDEmpty(t *testing.T) {
	g := NewGraph()
	if refs := g.FindReferencesTo("nope"); len(refs) != 0 {
		t.Error("Expected empty result for unknown id")
	}
	if refs := g.FindReferencesFrom("nope"); len(refs) != 0 {
		t.Error("Expected empty result for unknown id")
	}
	if m := g.ComputeMetrics("nope"); m != (Metrics{}) {
		t.Errorf("Expected zero metrics, got %+v", m)
	}
}

func TestGraph_AddTableReplacesPriorContributions(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")

	tbl := symbols.NewTable(fileA, 1)
	tbl.AddSymbol(&symbols.Symbol{Name: "A", Kind: symbols.KindClass})
	tbl.EnterScope("A", symbols.KindClass, protocol.Range{})
	tbl.AddSymbol(&symbols.Symbol{Name: "old", Kind: symbols.KindMethod})
	g.AddTable(tbl)

	if _, ok := g.Node("A.old"); !ok {
		t.Fatal("expected A.old after first index")
	}

	tbl2 := symbols.NewTable(fileA, 2)
	tbl2.AddSymbol(&symbols.Symbol{Name: "A", Kind: symbols.KindClass})
	tbl2.EnterScope("A", symbols.KindClass, protocol.Range{})
	tbl2.AddSymbol(&symbols.Symbol{Name: "renamed", Kind: symbols.KindMethod})
	g.AddTable(tbl2)

	if _, ok := g.Node("A.old"); ok {
		t.Error("stale node survived re-index")
	}
	if _, ok := g.Node("A.renamed"); !ok {
		t.Error("expected A.renamed after re-index")
	}
}

func TestGraph_ComputeMetrics(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	fileB := uri.URI("file:///src/B.cls")
	fileC := uri.URI("file:///src/C.cls")

	addClass(t, g, fileA, "A")
	addClass(t, g, fileB, "B")
	addClass(t, g, fileC, "C")

	// B and C both reference A; A references B.
	mustAdd := func(from, to string, u uri.URI) {
		t.Helper()
		if err := g.AddReference(from, to, symbols.RefMethodCall, u, protocol.Range{}); err != nil {
			t.Fatal(err)
		}
	}
	mustAdd("B", "A", fileB)
	mustAdd("C", "A", fileC)
	mustAdd("A", "B", fileA)

	m := g.ComputeMetrics("A")
	if m.ReferenceCount != 2 {
		t.Errorf("Expected 2 references, got %d", m.ReferenceCount)
	}
	if m.DependentCount != 2 {
		t.Errorf("Expected 2 dependents, got %d", m.DependentCount)
	}
	if m.DependencyCount != 1 {
		t.Errorf("Expected 1 dependency, got %d", m.DependencyCount)
	}
	if m.CouplingScore != float64(2*2)+1+0.5*2 {
		t.Errorf("Unexpected coupling score %v", m.CouplingScore)
	}
}

func TestGraph_SerializationSafety(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	fileB := uri.URI("file:///src/B.cls")

	// Parent back-references form id chains; serialization must stay flat.
	addClass(t, g, fileA, "A")
	addMethod(t, g, fileA, "A", "run")
	addClass(t, g, fileB, "B")
	if err := g.AddReference("A.run", "B", symbols.RefConstructorCall, fileA, protocol.Range{}); err != nil {
		t.Fatal(err)
	}

	raw, err := g.GraphDataAsJSON()
	if err != nil {
		t.Fatalf("GraphDataAsJSON failed: %v", err)
	}

	var decoded Data
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("round-trip failed: %v", err)
	}

	data := g.GraphData()
	if len(decoded.Nodes) != len(data.Nodes) {
		t.Errorf("node count mismatch: %d vs %d", len(decoded.Nodes), len(data.Nodes))
	}
	if len(decoded.Edges) != len(data.Edges) {
		t.Errorf("edge count mismatch: %d vs %d", len(decoded.Edges), len(data.Edges))
	}
}

func TestGraph_SnapshotFilters(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	fileB := uri.URI("file:///src/B.cls")

	addClass(t, g, fileA, "A")
	addMethod(t, g, fileA, "A", "run")
	addClass(t, g, fileB, "B")
	if err := g.AddReference("A.run", "B", symbols.RefTypeReference, fileA, protocol.Range{}); err != nil {
		t.Fatal(err)
	}

	forB := g.GraphDataForFile(fileB)
	if len(forB.Nodes) != 1 || forB.Nodes[0].ID != "B" {
		t.Errorf("Unexpected nodes for file B: %+v", forB.Nodes)
	}
	if len(forB.Edges) != 1 {
		t.Errorf("Expected the inbound edge, got %d", len(forB.Edges))
	}

	classes := g.GraphDataByType(symbols.KindClass)
	if len(classes.Nodes) != 2 {
		t.Errorf("Expected 2 class nodes, got %d", len(classes.Nodes))
	}
	if len(classes.Edges) != 0 {
		t.Errorf("Expected no class-to-class edges, got %d", len(classes.Edges))
	}
}

func TestGraph_FindNodesByName(t *testing.T) {
	g := NewGraph()
	addClass(t, g, "file:///src/A.cls", "Exception")
	g.AddSymbol(&symbols.Symbol{ID: "My.Exception", Name: "Exception", Kind: symbols.KindClass}, "file:///src/B.cls")

	nodes := g.FindNodesByName("Exception")
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(nodes))
	}
	if nodes[0].ID != "Exception" || nodes[1].ID != "My.Exception" {
		t.Errorf("Expected id-ordered results, got %+v", nodes)
	}
}
