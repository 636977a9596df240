// Package graph holds the per-run visited-screen graph and the three-tier
// priority queue of pending actions. Both structures are exclusively owned
// by one run context and are not safe for concurrent use.
package graph

// Edge is a directed transition between two screen signatures, labelled by
// the action that caused it.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Action string `json:"action"`
}

// VisitedGraph records which screen signatures have been seen, the
// transitions between them, and per-signature visit counts. It grows
// monotonically within a run.
type VisitedGraph struct {
	visits map[string]int
	edges  []Edge
}

// NewVisitedGraph creates an empty graph.
func NewVisitedGraph() *VisitedGraph {
	return &VisitedGraph{visits: make(map[string]int)}
}

// Observe records one observation of a signature and reports whether this
// was the first time it was seen. The visit counter is incremented on
// every observation, first or not.
func (g *VisitedGraph) Observe(signature string) bool {
	first := g.visits[signature] == 0
	g.visits[signature]++
	return first
}

// Seen reports whether the signature has been observed at least once.
func (g *VisitedGraph) Seen(signature string) bool {
	return g.visits[signature] > 0
}

// VisitCount returns how many times the signature has been observed.
func (g *VisitedGraph) VisitCount(signature string) int {
	return g.visits[signature]
}

// ScreenCount returns the number of distinct signatures observed.
func (g *VisitedGraph) ScreenCount() int {
	return len(g.visits)
}

// AddEdge records a successful transition from one signature to another.
func (g *VisitedGraph) AddEdge(from, to, action string) {
	g.edges = append(g.edges, Edge{From: from, To: to, Action: action})
}

// Edges returns all recorded transitions in insertion order.
func (g *VisitedGraph) Edges() []Edge {
	return g.edges
}

// PathTo reconstructs one action path from the given start signature to the
// target, or nil if the target was never reached from start. Breadth-first,
// so the returned path is among the shortest recorded.
func (g *VisitedGraph) PathTo(start, target string) []Edge {
	if start == target {
		return []Edge{}
	}
	type hop struct {
		sig  string
		path []Edge
	}
	out := make(map[string][]Edge)
	for _, e := range g.edges {
		out[e.From] = append(out[e.From], e)
	}

	seen := map[string]bool{start: true}
	queue := []hop{{sig: start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range out[cur.sig] {
			if seen[e.To] {
				continue
			}
			path := append(append([]Edge{}, cur.path...), e)
			if e.To == target {
				return path
			}
			seen[e.To] = true
			queue = append(queue, hop{sig: e.To, path: path})
		}
	}
	return nil
}
