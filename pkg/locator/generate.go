package locator

import (
	"fmt"
	"sort"
	"strings"
)

// Generation score constants. Dynamic values degrade a strategy because
// the same element will carry a different value on the next run.
const (
	scoreID             = 0.95
	scoreIDDynamic      = 0.7
	scoreText           = 0.8
	scoreTextDynamic    = 0.5
	scoreDesc           = 0.85
	scoreDescDynamic    = 0.6
	scoreXPath          = 0.6
	scoreVisionText     = 0.9
	scoreVisionTextOff  = 0.75
	scoreVisionRegion   = 0.7
	scoreHistorical     = 0.85
	maxCandidates       = 5
	maxHistorical       = 2
	minHistoricalRate   = 80.0
)

// Generate produces the ranked candidate set for one element. A vision
// observation and historically successful candidates are optional; the
// result is capped at maxCandidates with the top candidate marked primary.
func Generate(attrs ElementAttributes, vision *VisionObservation, historical []*Candidate) []*Candidate {
	var out []*Candidate

	if attrs.ResourceID != "" {
		c := newCandidate(StrategyID, attrs.ResourceID, scoreID, SourceDOM)
		if c.Dynamic.Any() {
			c.Score = scoreIDDynamic
		}
		out = append(out, c)
	}

	if attrs.Text != "" {
		c := newCandidate(StrategyText, attrs.Text, scoreText, SourceDOM)
		if c.Dynamic.Any() {
			c.Score = scoreTextDynamic
		}
		out = append(out, c)
	}

	if attrs.ContentDesc != "" {
		c := newCandidate(StrategyAccessibility, attrs.ContentDesc, scoreDesc, SourceDOM)
		if c.Dynamic.Any() {
			c.Score = scoreDescDynamic
		}
		out = append(out, c)
	}

	// Structural path is the last resort, always available when known.
	if attrs.Path != "" {
		c := newCandidate(StrategyXPath, attrs.Path, scoreXPath, SourceDOM)
		c.Structural = true
		out = append(out, c)
	}

	if vision != nil {
		if vision.Text != "" {
			score := scoreVisionTextOff
			if textConsistent(vision.Text, attrs.Text) {
				score = scoreVisionText
			}
			out = append(out, newCandidate(StrategyVisionText, vision.Text, score, SourceVision))
		}
		if !vision.Bounds.IsZero() {
			value := fmt.Sprintf("%d,%d,%d,%d",
				vision.Bounds.X, vision.Bounds.Y, vision.Bounds.Width, vision.Bounds.Height)
			out = append(out, newCandidate(StrategyVisionRegion, value, scoreVisionRegion, SourceVision))
		}
	}

	kept := 0
	for _, h := range historical {
		if kept >= maxHistorical || h.SuccessRate <= minHistoricalRate {
			continue
		}
		c := newCandidate(h.Strategy, h.Value, scoreHistorical, SourceHistorical)
		c.SuccessRate = h.SuccessRate
		out = append(out, c)
		kept++
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	if len(out) > 0 {
		out[0].Primary = true
	}
	return out
}

// textConsistent reports whether the vision-recognized text agrees with
// the structural text (either containing the other, case-insensitive).
func textConsistent(visionText, structuralText string) bool {
	if structuralText == "" {
		return false
	}
	v := strings.ToLower(strings.TrimSpace(visionText))
	s := strings.ToLower(strings.TrimSpace(structuralText))
	return strings.Contains(v, s) || strings.Contains(s, v)
}
