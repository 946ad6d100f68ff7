// # internal/engine/graph/detect.go
package graph

import (
	"sort"
	"strings"

	"go.lsp.dev/uri"
)

// DetectCircularDependencies collapses symbol edges to file-level
// dependency edges and reports each distinct cycle once.
func (g *Graph) DetectCircularDependencies() [][]uri.URI {
	g.mu.RLock()
	deps := g.fileDependenciesLocked()
	g.mu.RUnlock()

	files := make([]uri.URI, 0, len(deps))
	for f := range deps {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })

	var cycles [][]uri.URI
	seen := make(map[string]bool)
	visited := make(map[uri.URI]bool)
	onStack := make(map[uri.URI]bool)

	var walk func(cur uri.URI, path []uri.URI)
	walk = func(cur uri.URI, path []uri.URI) {
		visited[cur] = true
		onStack[cur] = true
		path = append(path, cur)

		targets := make([]uri.URI, 0, len(deps[cur]))
		for next := range deps[cur] {
			targets = append(targets, next)
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

		for _, next := range targets {
			if onStack[next] {
				cycleStart := -1
				for i, f := range path {
					if f == next {
						cycleStart = i
						break
					}
				}
				if cycleStart != -1 {
					cycle := append([]uri.URI(nil), path[cycleStart:]...)
					key := cycleKey(cycle)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, cycle)
					}
				}
			} else if !visited[next] {
				walk(next, path)
			}
		}

		onStack[cur] = false
	}

	for _, f := range files {
		if !visited[f] {
			walk(f, nil)
		}
	}

	return cycles
}

// fileDependenciesLocked derives file-to-file edges from cross-file symbol
// edges. Caller must hold at least a read lock.
func (g *Graph) fileDependenciesLocked() map[uri.URI]map[uri.URI]bool {
	deps := make(map[uri.URI]map[uri.URI]bool, len(g.fileNodes))
	for f := range g.fileNodes {
		deps[f] = make(map[uri.URI]bool)
	}
	for _, list := range g.edgesFrom {
		for _, e := range list {
			to, ok := g.nodes[e.To]
			if !ok || e.URI == to.URI {
				continue
			}
			if deps[e.URI] == nil {
				deps[e.URI] = make(map[uri.URI]bool)
			}
			deps[e.URI][to.URI] = true
		}
	}
	return deps
}

// DependencyChain returns the shortest file-level path from one file to
// another, if any.
func (g *Graph) DependencyChain(from, to uri.URI) ([]uri.URI, bool) {
	g.mu.RLock()
	deps := g.fileDependenciesLocked()
	g.mu.RUnlock()

	if _, ok := deps[from]; !ok {
		return nil, false
	}
	if _, ok := deps[to]; !ok {
		return nil, false
	}
	if from == to {
		return []uri.URI{from}, true
	}

	queue := []uri.URI{from}
	visited := map[uri.URI]bool{from: true}
	prev := make(map[uri.URI]uri.URI)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		neighbors := make([]uri.URI, 0, len(deps[cur]))
		for next := range deps[cur] {
			neighbors = append(neighbors, next)
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

		for _, next := range neighbors {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = cur

			if next == to {
				path := []uri.URI{to}
				for node := to; node != from; {
					p, ok := prev[node]
					if !ok {
						return nil, false
					}
					path = append(path, p)
					node = p
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}

// DependentFiles returns every file that transitively depends on the given
// file, the impact set for a change.
func (g *Graph) DependentFiles(changed uri.URI) []uri.URI {
	g.mu.RLock()
	deps := g.fileDependenciesLocked()
	g.mu.RUnlock()

	reverse := make(map[uri.URI][]uri.URI)
	for from, targets := range deps {
		for to := range targets {
			reverse[to] = append(reverse[to], from)
		}
	}

	var affected []uri.URI
	seen := map[uri.URI]bool{changed: true}
	queue := []uri.URI{changed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range reverse[cur] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			affected = append(affected, dep)
			queue = append(queue, dep)
		}
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })
	return affected
}

// cycleKey canonicalizes a cycle by rotating its smallest member first so
// the same cycle discovered from different entry points dedupes.
func cycleKey(cycle []uri.URI) string {
	if len(cycle) == 0 {
		return ""
	}
	min := 0
	for i := range cycle {
		if cycle[i] < cycle[min] {
			min = i
		}
	}
	parts := make([]string, 0, len(cycle))
	for i := 0; i < len(cycle); i++ {
		parts = append(parts, string(cycle[(min+i)%len(cycle)]))
	}
	return strings.Join(parts, "->")
}
