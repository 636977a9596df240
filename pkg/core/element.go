package core

import "strings"

// Bounds represents element position and size in screen pixels.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds.
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains checks if a point is within the bounds.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// IsZero reports whether the bounds carry no area.
func (b Bounds) IsZero() bool {
	return b.Width == 0 && b.Height == 0
}

// UINode is one node of a captured UI hierarchy. Boolean attributes mirror
// the Android accessibility model; positional data lives in Bounds and is
// deliberately excluded from structural fingerprinting.
type UINode struct {
	Class         string    `json:"class,omitempty"`
	ResourceID    string    `json:"resourceId,omitempty"`
	ContentDesc   string    `json:"contentDesc,omitempty"`
	Text          string    `json:"text,omitempty"`
	Bounds        Bounds    `json:"bounds"`
	Checkable     bool      `json:"checkable,omitempty"`
	Clickable     bool      `json:"clickable,omitempty"`
	Enabled       bool      `json:"enabled,omitempty"`
	Focusable     bool      `json:"focusable,omitempty"`
	LongClickable bool      `json:"longClickable,omitempty"`
	Scrollable    bool      `json:"scrollable,omitempty"`
	Selected      bool      `json:"selected,omitempty"`
	Children      []*UINode `json:"children,omitempty"`
}

// Walk visits the node and all descendants depth-first. The visitor
// receives each node with its depth; returning false prunes the subtree.
func (n *UINode) Walk(fn func(node *UINode, depth int) bool) {
	n.walk(0, fn)
}

func (n *UINode) walk(depth int, fn func(node *UINode, depth int) bool) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(depth+1, fn)
	}
}

// FindByText returns the first node whose text, content description or
// resource id contains the target (case-insensitive), preferring clickable
// matches.
func FindByText(root *UINode, target string) *UINode {
	if root == nil || target == "" {
		return nil
	}
	lower := strings.ToLower(target)
	var clickable, any *UINode
	root.Walk(func(n *UINode, _ int) bool {
		if matchesTarget(n, lower) {
			if any == nil {
				any = n
			}
			if clickable == nil && n.Clickable {
				clickable = n
			}
		}
		return clickable == nil
	})
	if clickable != nil {
		return clickable
	}
	return any
}

func matchesTarget(n *UINode, lowerTarget string) bool {
	return strings.Contains(strings.ToLower(n.Text), lowerTarget) ||
		strings.Contains(strings.ToLower(n.ContentDesc), lowerTarget) ||
		strings.Contains(strings.ToLower(n.ResourceID), lowerTarget)
}

// ElementInfo describes a UI element as observed on the device.
type ElementInfo struct {
	ResourceID  string `json:"resourceId,omitempty"`
	Text        string `json:"text,omitempty"`
	ContentDesc string `json:"contentDesc,omitempty"`
	Class       string `json:"class,omitempty"`
	Bounds      Bounds `json:"bounds"`
	Visible     bool   `json:"visible"`
	Enabled     bool   `json:"enabled"`
	Clickable   bool   `json:"clickable,omitempty"`
}
