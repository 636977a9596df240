// Package fingerprint turns a screen capture into a stable signature used
// for deduplication. Two captures with identical screenshot bytes, a
// structurally identical normalized hierarchy and identical primary text
// always produce the same signature.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

const (
	// signatureLen is the length of the final hex signature.
	signatureLen = 32
	// primaryTextDepth bounds the hierarchy traversal for text extraction.
	primaryTextDepth = 10
	// primaryTextLimit caps the number of distinct strings joined.
	primaryTextLimit = 5
)

// Signature identifies a de-duplicated screen observation.
type Signature struct {
	Hash           string `json:"hash"`
	ScreenshotHash string `json:"screenshotHash"`
	DOMHash        string `json:"domHash"`
	PrimaryText    string `json:"primaryText"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// Fingerprint computes the signature of a (screenshot, hierarchy) capture.
func Fingerprint(screenshot []byte, dom *core.UINode) Signature {
	shot := hashBytes(screenshot)
	domHash := hashBytes([]byte(Normalize(dom)))
	text := PrimaryText(dom)

	combined := hashBytes([]byte(shot + "|" + domHash + "|" + text))

	sig := Signature{
		Hash:           combined[:signatureLen],
		ScreenshotHash: shot,
		DOMHash:        domHash,
		PrimaryText:    text,
	}
	if dom != nil {
		sig.Width = dom.Bounds.Width
		sig.Height = dom.Bounds.Height
	}
	return sig
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Normalize renders the hierarchy into a canonical string keeping only the
// structural attribute allow-list. Coordinates, timestamps and any volatile
// attributes are discarded so cosmetic or positional noise does not change
// the hash.
func Normalize(n *core.UINode) string {
	var b strings.Builder
	normalizeInto(&b, n)
	return b.String()
}

func normalizeInto(b *strings.Builder, n *core.UINode) {
	if n == nil {
		return
	}
	b.WriteByte('(')
	b.WriteString(n.Class)
	b.WriteByte(';')
	b.WriteString(n.ResourceID)
	b.WriteByte(';')
	b.WriteString(n.ContentDesc)
	b.WriteByte(';')
	b.WriteString(n.Text)
	b.WriteByte(';')
	b.WriteString(flags(n))
	for _, c := range n.Children {
		normalizeInto(b, c)
	}
	b.WriteByte(')')
}

func flags(n *core.UINode) string {
	bits := []bool{
		n.Checkable, n.Clickable, n.Enabled, n.Focusable,
		n.LongClickable, n.Scrollable, n.Selected,
	}
	var b strings.Builder
	for _, v := range bits {
		b.WriteString(strconv.FormatBool(v))
		b.WriteByte(',')
	}
	return b.String()
}

// PrimaryText extracts the screen's characteristic text: a bounded-depth
// traversal collecting non-empty text and content descriptions,
// de-duplicated, capped to the first distinct strings found.
func PrimaryText(n *core.UINode) string {
	if n == nil {
		return ""
	}
	seen := make(map[string]bool)
	var parts []string
	n.Walk(func(node *core.UINode, depth int) bool {
		if depth > primaryTextDepth || len(parts) >= primaryTextLimit {
			return false
		}
		for _, s := range []string{node.Text, node.ContentDesc} {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			parts = append(parts, s)
			if len(parts) >= primaryTextLimit {
				break
			}
		}
		return true
	})
	return strings.Join(parts, " | ")
}
