package locator

import (
	"testing"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

func screenTree() *core.UINode {
	return &core.UINode{
		Class:  "android.widget.FrameLayout",
		Bounds: core.Bounds{Width: 1080, Height: 2400},
		Children: []*core.UINode{
			{
				Class:   "android.widget.TextView",
				Text:    "Welcome",
				Enabled: true,
				Bounds:  core.Bounds{Y: 100, Width: 1080, Height: 120},
			},
			{
				Class:       "android.widget.Button",
				ResourceID:  "com.example:id/next",
				Text:        "Next",
				ContentDesc: "Go forward",
				Clickable:   true,
				Enabled:     true,
				Bounds:      core.Bounds{X: 340, Y: 2000, Width: 400, Height: 140},
			},
		},
	}
}

func TestMatch_DOMStrategies(t *testing.T) {
	root := screenTree()
	button := root.Children[1]

	tests := []struct {
		name     string
		strategy Strategy
		value    string
		want     *core.UINode
	}{
		{"id exact", StrategyID, "com.example:id/next", button},
		{"id unknown", StrategyID, "com.example:id/missing", nil},
		{"text exact", StrategyText, "Next", button},
		{"text is case sensitive", StrategyText, "next", nil},
		{"accessibility exact", StrategyAccessibility, "Go forward", button},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(root, &Candidate{Strategy: tt.strategy, Value: tt.value})
			if got != tt.want {
				t.Errorf("Match(%s %q) = %+v, want %+v", tt.strategy, tt.value, got, tt.want)
			}
		})
	}
}

func TestMatch_StructuralPathRoundTrip(t *testing.T) {
	root := screenTree()
	button := root.Children[1]

	path := PathOf(root, button)
	if path == "" {
		t.Fatal("expected a structural path for an in-tree node")
	}
	if got := Match(root, &Candidate{Strategy: StrategyXPath, Value: path}); got != button {
		t.Errorf("expected the path %q to resolve back to the button, got %+v", path, got)
	}
	if got := Match(root, &Candidate{Strategy: StrategyXPath, Value: "/bogus[0]"}); got != nil {
		t.Errorf("expected no node for a bogus path, got %+v", got)
	}
	if PathOf(root, &core.UINode{Class: "android.widget.Button"}) != "" {
		t.Error("expected an empty path for a node outside the tree")
	}
}

func TestMatch_VisionStrategies(t *testing.T) {
	root := screenTree()
	button := root.Children[1]

	if got := Match(root, &Candidate{Strategy: StrategyVisionText, Value: "next"}); got != button {
		t.Errorf("expected the recognized text to match case-insensitively, got %+v", got)
	}
	if got := Match(root, &Candidate{Strategy: StrategyVisionRegion, Value: "340,2000,400,140"}); got != button {
		t.Errorf("expected the region center to land on the button, got %+v", got)
	}
	if got := Match(root, &Candidate{Strategy: StrategyVisionRegion, Value: "garbage"}); got != nil {
		t.Errorf("expected no node for a malformed region, got %+v", got)
	}
}

func TestAttributesOf(t *testing.T) {
	root := screenTree()
	button := root.Children[1]

	attrs := AttributesOf(root, button)
	if attrs.ResourceID != "com.example:id/next" || attrs.Text != "Next" {
		t.Errorf("unexpected attributes: %+v", attrs)
	}
	if attrs.Path == "" {
		t.Error("expected the structural path to be captured")
	}
	if Match(root, &Candidate{Strategy: StrategyXPath, Value: attrs.Path}) != button {
		t.Error("expected the captured path to resolve to the same node")
	}
}
