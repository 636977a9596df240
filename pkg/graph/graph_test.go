package graph

import "testing"

func TestVisitedGraph_ObserveDedup(t *testing.T) {
	g := NewVisitedGraph()

	if !g.Observe("sig-a") {
		t.Error("first observation should report a new screen")
	}
	if g.Observe("sig-a") {
		t.Error("second observation should not report a new screen")
	}
	if got := g.VisitCount("sig-a"); got != 2 {
		t.Errorf("expected visit count 2, got %d", got)
	}
	if g.ScreenCount() != 1 {
		t.Errorf("expected 1 distinct screen, got %d", g.ScreenCount())
	}
	if !g.Seen("sig-a") {
		t.Error("expected sig-a to be seen")
	}
	if g.Seen("sig-b") {
		t.Error("did not expect sig-b to be seen")
	}
}

func TestVisitedGraph_VisitCountOnRevisit(t *testing.T) {
	g := NewVisitedGraph()
	for i := 0; i < 5; i++ {
		g.Observe("sig-a")
	}
	if got := g.VisitCount("sig-a"); got != 5 {
		t.Errorf("expected visit count 5, got %d", got)
	}
	if g.ScreenCount() != 1 {
		t.Errorf("expected screen count unaffected by revisits, got %d", g.ScreenCount())
	}
}

func TestVisitedGraph_Edges(t *testing.T) {
	g := NewVisitedGraph()
	g.AddEdge("a", "b", "click login")
	g.AddEdge("b", "c", "click settings")

	edges := g.Edges()
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0].From != "a" || edges[0].To != "b" || edges[0].Action != "click login" {
		t.Errorf("unexpected first edge: %+v", edges[0])
	}
}

func TestVisitedGraph_PathTo(t *testing.T) {
	g := NewVisitedGraph()
	g.AddEdge("a", "b", "one")
	g.AddEdge("b", "c", "two")
	g.AddEdge("a", "d", "side")

	path := g.PathTo("a", "c")
	if len(path) != 2 {
		t.Fatalf("expected path of 2 edges, got %d", len(path))
	}
	if path[0].Action != "one" || path[1].Action != "two" {
		t.Errorf("unexpected path actions: %+v", path)
	}

	if got := g.PathTo("a", "missing"); got != nil {
		t.Errorf("expected nil path to unreachable target, got %+v", got)
	}
	if got := g.PathTo("a", "a"); len(got) != 0 {
		t.Errorf("expected empty path to self, got %+v", got)
	}
}
