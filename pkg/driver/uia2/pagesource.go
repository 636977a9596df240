package uia2

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// ParsePageSource parses an Android UI hierarchy XML dump into a UINode
// tree. Both the UIAutomator dump format (class name as element tag) and
// the Appium format (<node> elements with a class attribute) are supported.
func ParsePageSource(xmlData string) (*core.UINode, error) {
	decoder := xml.NewDecoder(strings.NewReader(xmlData))

	var roots []*core.UINode
	foundHierarchy := false
	var parseElement func() (*core.UINode, error)

	parseElement = func() (*core.UINode, error) {
		for {
			token, err := decoder.Token()
			if err != nil {
				return nil, err
			}

			switch t := token.(type) {
			case xml.StartElement:
				if t.Name.Local == "hierarchy" {
					foundHierarchy = true
					continue
				}

				node := &core.UINode{Class: t.Name.Local}
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "class":
						node.Class = attr.Value
					case "text":
						node.Text = attr.Value
					case "resource-id":
						node.ResourceID = attr.Value
					case "content-desc":
						node.ContentDesc = attr.Value
					case "bounds":
						node.Bounds = parseBounds(attr.Value)
					case "checkable":
						node.Checkable = attr.Value == "true"
					case "clickable":
						node.Clickable = attr.Value == "true"
					case "enabled":
						node.Enabled = attr.Value == "true"
					case "focusable":
						node.Focusable = attr.Value == "true"
					case "long-clickable":
						node.LongClickable = attr.Value == "true"
					case "scrollable":
						node.Scrollable = attr.Value == "true"
					case "selected":
						node.Selected = attr.Value == "true"
					}
				}

				for {
					child, err := parseElement()
					if err != nil || child == nil {
						break
					}
					node.Children = append(node.Children, child)
				}
				return node, nil

			case xml.EndElement:
				return nil, nil // End of current element
			}
		}
	}

	var parseErr error
	for {
		node, err := parseElement()
		if err != nil {
			if err.Error() != "EOF" {
				parseErr = err
			}
			break
		}
		if node != nil {
			roots = append(roots, node)
		}
	}

	if parseErr != nil && len(roots) == 0 {
		return nil, parseErr
	}
	if !foundHierarchy {
		return nil, fmt.Errorf("invalid page source: no hierarchy element found")
	}
	if len(roots) == 1 {
		return roots[0], nil
	}

	// Multiple windows: wrap in a synthetic root.
	root := &core.UINode{Class: "hierarchy", Children: roots}
	for _, r := range roots {
		if r.Bounds.Width > root.Bounds.Width {
			root.Bounds = r.Bounds
		}
	}
	return root, nil
}

// parseBounds parses the Android bounds string "[x1,y1][x2,y2]".
func parseBounds(s string) core.Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.Bounds{}
	}

	x1, _ := strconv.Atoi(parts[0])
	y1, _ := strconv.Atoi(parts[1])
	x2, _ := strconv.Atoi(parts[2])
	y2, _ := strconv.Atoi(parts[3])

	return core.Bounds{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}
