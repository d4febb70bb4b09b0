package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// Edge is one permitted move: firing Trigger in From lands in To
type Edge struct {
	From    State
	Trigger Trigger
	To      State
}

// Graph is an immutable set of edges. It is safe for concurrent use.
type Graph struct {
	edges map[State]map[Trigger]State
}

// NewGraph validates the edges. Two edges that share a source and trigger
// must agree on the target.
func NewGraph(edges ...Edge) (*Graph, error) {
	g := &Graph{edges: make(map[State]map[Trigger]State)}
	for _, e := range edges {
		if !e.From.IsValid() || !e.To.IsValid() {
			return nil, fmt.Errorf("edge %s -%s-> %s: unknown state", e.From, e.Trigger, e.To)
		}
		out := g.edges[e.From]
		if out == nil {
			out = make(map[Trigger]State)
			g.edges[e.From] = out
		}
		if prev, ok := out[e.Trigger]; ok && prev != e.To {
			return nil, fmt.Errorf("%s from %s leads to both %s and %s", e.Trigger, e.From, prev, e.To)
		}
		out[e.Trigger] = e.To
	}
	return g, nil
}

// Next returns where trigger leads from state
func (g *Graph) Next(from State, trigger Trigger) (State, bool) {
	to, ok := g.edges[from][trigger]
	return to, ok
}

// Triggers lists the triggers leaving a state, sorted
func (g *Graph) Triggers(from State) []Trigger {
	out := make([]Trigger, 0, len(g.edges[from]))
	for t := range g.edges[from] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Start places a new machine on the graph
func (g *Graph) Start(state State) *Machine {
	return &Machine{graph: g, state: state}
}

// requestGraph is derived from the role table once
var requestGraph = sync.OnceValue(func() *Graph {
	var edges []Edge
	for _, role := range ReviewerRoles() {
		for _, rule := range transitionTable[role] {
			for _, from := range rule.From {
				edges = append(edges,
					Edge{From: from, Trigger: TriggerFor(role, DecisionApprove), To: rule.ApproveTo},
					Edge{From: from, Trigger: TriggerFor(role, DecisionReject), To: rule.RejectTo},
				)
			}
		}
	}
	g, err := NewGraph(edges...)
	if err != nil {
		panic("workflow: inconsistent role table: " + err.Error())
	}
	return g
})

// RequestGraph returns the overtime request lifecycle graph
func RequestGraph() *Graph {
	return requestGraph()
}
