package locator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// Match resolves a candidate against a UI hierarchy, returning the node it
// locates or nil. DOM strategies match their attribute exactly; vision
// strategies tolerate the looser fit of recognized text and regions.
func Match(root *core.UINode, c *Candidate) *core.UINode {
	if root == nil || c == nil {
		return nil
	}
	switch c.Strategy {
	case StrategyID:
		return matchExact(root, func(n *core.UINode) bool { return n.ResourceID == c.Value })
	case StrategyText:
		return matchExact(root, func(n *core.UINode) bool { return n.Text == c.Value })
	case StrategyAccessibility:
		return matchExact(root, func(n *core.UINode) bool { return n.ContentDesc == c.Value })
	case StrategyXPath:
		return nodeAtPath(root, c.Value)
	case StrategyVisionText:
		return core.FindByText(root, c.Value)
	case StrategyVisionRegion:
		b, ok := parseRegion(c.Value)
		if !ok {
			return nil
		}
		x, y := b.Center()
		return nodeAt(root, x, y)
	}
	return nil
}

// AttributesOf captures the generation attributes of one node within its
// hierarchy, including its structural path.
func AttributesOf(root, node *core.UINode) ElementAttributes {
	if node == nil {
		return ElementAttributes{}
	}
	return ElementAttributes{
		Class:       node.Class,
		ResourceID:  node.ResourceID,
		ContentDesc: node.ContentDesc,
		Text:        node.Text,
		Path:        PathOf(root, node),
		Bounds:      node.Bounds,
	}
}

// PathOf returns the structural path of target within root, in the form
// /Class[i]/Class[j] where the index counts same-class siblings. Empty when
// target is not part of the hierarchy.
func PathOf(root, target *core.UINode) string {
	if root == nil || target == nil {
		return ""
	}
	var build func(n *core.UINode, prefix string) string
	build = func(n *core.UINode, prefix string) string {
		if n == target {
			return prefix
		}
		counts := make(map[string]int)
		for _, c := range n.Children {
			idx := counts[c.Class]
			counts[c.Class]++
			if p := build(c, fmt.Sprintf("%s/%s[%d]", prefix, c.Class, idx)); p != "" {
				return p
			}
		}
		return ""
	}
	return build(root, fmt.Sprintf("/%s[0]", root.Class))
}

// matchExact returns the first node satisfying pred, preferring clickable
// matches the same way target lookup does.
func matchExact(root *core.UINode, pred func(*core.UINode) bool) *core.UINode {
	var clickable, any *core.UINode
	root.Walk(func(n *core.UINode, _ int) bool {
		if pred(n) {
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

// nodeAtPath walks a structural path produced by PathOf.
func nodeAtPath(root *core.UINode, path string) *core.UINode {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 {
		return nil
	}
	class, idx, ok := parseSegment(segs[0])
	if !ok || class != root.Class || idx != 0 {
		return nil
	}
	cur := root
	for _, seg := range segs[1:] {
		class, idx, ok := parseSegment(seg)
		if !ok {
			return nil
		}
		var next *core.UINode
		count := 0
		for _, c := range cur.Children {
			if c.Class != class {
				continue
			}
			if count == idx {
				next = c
				break
			}
			count++
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func parseSegment(seg string) (string, int, bool) {
	open := strings.IndexByte(seg, '[')
	if open <= 0 || !strings.HasSuffix(seg, "]") {
		return "", 0, false
	}
	idx, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return seg[:open], idx, true
}

// parseRegion parses the "x,y,w,h" value of a vision-region candidate.
func parseRegion(s string) (core.Bounds, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.Bounds{}, false
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return core.Bounds{}, false
		}
		vals[i] = v
	}
	return core.Bounds{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, true
}

// nodeAt returns the deepest node whose bounds contain the point.
func nodeAt(root *core.UINode, x, y int) *core.UINode {
	var deepest *core.UINode
	best := -1
	root.Walk(func(n *core.UINode, depth int) bool {
		if n.Bounds.Contains(x, y) && depth > best {
			deepest = n
			best = depth
		}
		return true
	})
	return deepest
}
