package graph

// internal/engine/graph/metrics.go

// Metrics summarizes a symbol's position in the reference graph. The
// coupling score is a heuristic over edge counts, not a control-flow
// complexity measure.
type Metrics struct {
	ReferenceCount  int     `json:"referenceCount"`
	DependencyCount int     `json:"dependencyCount"`
	DependentCount  int     `json:"dependentCount"`
	CouplingScore   float64 `json:"couplingScore"`
}

// ComputeMetrics derives reference, dependency and dependent counts for a
// symbol id. Unknown ids yield zeroed metrics.
func (g *Graph) ComputeMetrics(id string) Metrics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return Metrics{}
	}

	out := g.edgesFrom[id]
	in := g.edgesTo[id]

	dependencies := make(map[string]bool, len(out))
	for _, e := range out {
		dependencies[e.To] = true
	}
	dependents := make(map[string]bool, len(in))
	for _, e := range in {
		dependents[e.From] = true
	}

	return Metrics{
		ReferenceCount:  len(in),
		DependencyCount: len(dependencies),
		DependentCount:  len(dependents),
		CouplingScore:   couplingScore(len(dependents), len(dependencies), len(in)),
	}
}

// couplingScore weights incoming coupling heavier than outgoing:
//
//	Score = (Dependents * 2) + (Dependencies * 1) + (References * 0.5)
func couplingScore(dependents, dependencies, references int) float64 {
	return float64(dependents*2) + float64(dependencies) + float64(references)*0.5
}
