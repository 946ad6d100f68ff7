package graph

import (
	"testing"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"apexls/internal/symbols"
)

func link(t *testing.T, g *Graph, from, to string, fileURI uri.URI) {
	t.Helper()
	if err := g.AddReference(from, to, symbols.RefTypeReference, fileURI, protocol.Range{}); err != nil {
		t.Fatal(err)
	}
}

func TestGraph_DetectCircularDependencies(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	fileB := uri.URI("file:///src/B.cls")
	fileC := uri.URI("file:///src/C.cls")

	// A -> B -> C -> A at the file level.
	addClass(t, g, fileA, "A")
	addClass(t, g, fileB, "B")
	addClass(t, g, fileC, "C")
	link(t, g, "A", "B", fileA)
	link(t, g, "B", "C", fileB)
	link(t, g, "C", "A", fileC)

	cycles := g.DetectCircularDependencies()
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %d: %v", len(cycles), cycles)
	}
	if len(cycles[0]) != 3 {
		t.Errorf("Expected cycle length 3, got %d", len(cycles[0]))
	}

	found := make(map[uri.URI]bool)
	for _, f := range cycles[0] {
		found[f] = true
	}
	if !found[fileA] || !found[fileB] || !found[fileC] {
		t.Errorf("Unexpected cycle content: %v", cycles[0])
	}
}

func TestGraph_DetectCyclesReportsEachOnce(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	fileB := uri.URI("file:///src/B.cls")

	addClass(t, g, fileA, "A")
	addClass(t, g, fileB, "B")
	addMethod(t, g, fileA, "A", "run")
	addMethod(t, g, fileB, "B", "run")

	// Multiple symbol edges collapse to one file-level cycle.
	link(t, g, "A", "B", fileA)
	link(t, g, "A.run", "B.run", fileA)
	link(t, g, "B", "A", fileB)
	link(t, g, "B.run", "A.run", fileB)

	cycles := g.DetectCircularDependencies()
	if len(cycles) != 1 {
		t.Fatalf("Expected the A<->B cycle once, got %d: %v", len(cycles), cycles)
	}
}

func TestGraph_DetectCyclesIgnoresSelfReferences(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	addClass(t, g, fileA, "A")
	addMethod(t, g, fileA, "A", "run")
	link(t, g, "A.run", "A", fileA)

	if cycles := g.DetectCircularDependencies(); len(cycles) != 0 {
		t.Errorf("Intra-file edges must not form file cycles, got %v", cycles)
	}
}

func TestGraph_DependencyChain(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	fileB := uri.URI("file:///src/B.cls")
	fileC := uri.URI("file:///src/C.cls")

	addClass(t, g, fileA, "A")
	addClass(t, g, fileB, "B")
	addClass(t, g, fileC, "C")
	link(t, g, "A", "B", fileA)
	link(t, g, "B", "C", fileB)

	chain, ok := g.DependencyChain(fileA, fileC)
	if !ok {
		t.Fatal("expected a chain from A to C")
	}
	if len(chain) != 3 || chain[0] != fileA || chain[2] != fileC {
		t.Errorf("Unexpected chain: %v", chain)
	}

	if _, ok := g.DependencyChain(fileC, fileA); ok {
		t.Error("expected no reverse chain")
	}
}

func TestGraph_DependentFiles(t *testing.T) {
	g := NewGraph()
	fileA := uri.URI("file:///src/A.cls")
	fileB := uri.URI("file:///src/B.cls")
	fileC := uri.URI("file:///src/C.cls")

	// C -> B -> A: changing A impacts B and C.
	addClass(t, g, fileA, "A")
	addClass(t, g, fileB, "B")
	addClass(t, g, fileC, "C")
	link(t, g, "B", "A", fileB)
	link(t, g, "C", "B", fileC)

	affected := g.DependentFiles(fileA)
	if len(affected) != 2 {
		t.Fatalf("Expected 2 affected files, got %d: %v", len(affected), affected)
	}
}
