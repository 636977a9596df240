// Package locator generates ranked strategies for re-finding a UI element,
// validates them against the live device, and tracks their reliability
// over a sliding window of attempts.
package locator

import (
	"time"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// Strategy is one way of re-locating an element.
type Strategy string

// Locator strategies, from most to least stable.
const (
	StrategyID            Strategy = "id"
	StrategyText          Strategy = "text"
	StrategyAccessibility Strategy = "accessibility"
	StrategyXPath         Strategy = "xpath"
	StrategyVisionText    Strategy = "vision-text"
	StrategyVisionRegion  Strategy = "vision-region"
)

// Source tags where a candidate came from.
type Source string

// Candidate sources.
const (
	SourceDOM        Source = "dom"
	SourceVision     Source = "vision"
	SourceHistorical Source = "historical"
)

// Candidate is one strategy+value pair for re-finding a UI element.
// The ID is derived from strategy and value, so validation history for the
// same locator accumulates no matter when it was generated. SuccessRate is
// a percentage in [0,100] recomputed over the candidate's most recent
// validation attempts.
type Candidate struct {
	ID           string       `json:"id"`
	Strategy     Strategy     `json:"strategy"`
	Value        string       `json:"value"`
	Score        float64      `json:"score"`
	Source       Source       `json:"source"`
	Primary      bool         `json:"primary"`
	Structural   bool         `json:"structural,omitempty"`
	Dynamic      DynamicFlags `json:"dynamic,omitempty"`
	SuccessRate  float64      `json:"successRate"`
	LastVerified time.Time    `json:"lastVerified,omitempty"`
}

func newCandidate(strategy Strategy, value string, score float64, source Source) *Candidate {
	return &Candidate{
		ID:       string(strategy) + ":" + value,
		Strategy: strategy,
		Value:    value,
		Score:    score,
		Source:   source,
		Dynamic:  DetectDynamic(value),
	}
}

// ElementAttributes are the structural attributes of one UI element as
// captured from the hierarchy.
type ElementAttributes struct {
	Class       string      `json:"class,omitempty"`
	ResourceID  string      `json:"resourceId,omitempty"`
	ContentDesc string      `json:"contentDesc,omitempty"`
	Text        string      `json:"text,omitempty"`
	Path        string      `json:"path,omitempty"` // structural path, e.g. an xpath
	Bounds      core.Bounds `json:"bounds"`
}

// VisionObservation is an optional vision-service observation of the element.
type VisionObservation struct {
	Text       string      `json:"text,omitempty"`
	Bounds     core.Bounds `json:"bounds"`
	Confidence float64     `json:"confidence"`
}
