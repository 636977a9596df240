package locator

import (
	"testing"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

func fullAttrs() ElementAttributes {
	return ElementAttributes{
		Class:       "android.widget.Button",
		ResourceID:  "com.example:id/login",
		ContentDesc: "Log in button",
		Text:        "Log in",
		Path:        "/hierarchy/node[2]/node[1]",
		Bounds:      core.Bounds{X: 340, Y: 2000, Width: 400, Height: 140},
	}
}

func TestGenerate_RankingAndCap(t *testing.T) {
	vision := &VisionObservation{
		Text:       "Log in",
		Bounds:     core.Bounds{X: 340, Y: 2000, Width: 400, Height: 140},
		Confidence: 0.9,
	}

	got := Generate(fullAttrs(), vision, nil)

	// id .95, vision-text .9 (consistent), accessibility .85, text .8,
	// vision-region .7, xpath .6 -- capped to five, dropping xpath.
	if len(got) != 5 {
		t.Fatalf("expected candidate cap of 5, got %d", len(got))
	}
	wantOrder := []Strategy{
		StrategyID, StrategyVisionText, StrategyAccessibility,
		StrategyText, StrategyVisionRegion,
	}
	for i, w := range wantOrder {
		if got[i].Strategy != w {
			t.Errorf("rank %d: expected %s, got %s (score %g)", i, w, got[i].Strategy, got[i].Score)
		}
	}
	for _, c := range got {
		if c.Strategy == StrategyXPath {
			t.Error("xpath should have been dropped by the cap")
		}
	}
}

func TestGenerate_SinglePrimary(t *testing.T) {
	got := Generate(fullAttrs(), nil, nil)
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}

	primaries := 0
	for _, c := range got {
		if c.Primary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Errorf("expected exactly one primary candidate, got %d", primaries)
	}
	if !got[0].Primary {
		t.Error("the top-ranked candidate must be the primary")
	}
	if got[0].Strategy != StrategyID {
		t.Errorf("expected the resource id to rank first, got %s", got[0].Strategy)
	}
}

func TestGenerate_DynamicValuesDegraded(t *testing.T) {
	attrs := ElementAttributes{
		ResourceID: "com.example:id/item_123456789",
		Text:       "2024-01-01 12:00:00",
	}

	got := Generate(attrs, nil, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	byStrategy := map[Strategy]*Candidate{}
	for _, c := range got {
		byStrategy[c.Strategy] = c
	}
	if c := byStrategy[StrategyID]; c == nil || c.Score != 0.7 {
		t.Errorf("expected dynamic id score 0.7, got %+v", c)
	}
	if c := byStrategy[StrategyText]; c == nil || c.Score != 0.5 {
		t.Errorf("expected dynamic text score 0.5, got %+v", c)
	}
}

func TestGenerate_VisionTextConsistency(t *testing.T) {
	attrs := ElementAttributes{Text: "Submit"}

	consistent := Generate(attrs, &VisionObservation{Text: "submit"}, nil)
	var visionScore float64
	for _, c := range consistent {
		if c.Strategy == StrategyVisionText {
			visionScore = c.Score
		}
	}
	if visionScore != 0.9 {
		t.Errorf("expected consistent vision text scored 0.9, got %g", visionScore)
	}

	inconsistent := Generate(attrs, &VisionObservation{Text: "Cancel"}, nil)
	for _, c := range inconsistent {
		if c.Strategy == StrategyVisionText && c.Score != 0.75 {
			t.Errorf("expected inconsistent vision text scored 0.75, got %g", c.Score)
		}
	}
}

func TestGenerate_HistoricalFiltering(t *testing.T) {
	attrs := ElementAttributes{ResourceID: "com.example:id/ok"}
	historical := []*Candidate{
		{Strategy: StrategyText, Value: "OK", SuccessRate: 95},
		{Strategy: StrategyAccessibility, Value: "confirm", SuccessRate: 50},
		{Strategy: StrategyText, Value: "Okay", SuccessRate: 90},
		{Strategy: StrategyText, Value: "Fine", SuccessRate: 85},
	}

	got := Generate(attrs, nil, historical)

	kept := 0
	for _, c := range got {
		if c.Source == SourceHistorical {
			kept++
			if c.SuccessRate <= 80 {
				t.Errorf("low-rate historical candidate leaked through: %+v", c)
			}
			if c.Score != 0.85 {
				t.Errorf("expected historical score 0.85, got %g", c.Score)
			}
		}
	}
	if kept != 2 {
		t.Errorf("expected at most 2 historical candidates, got %d", kept)
	}
}

func TestGenerate_EmptyAttributes(t *testing.T) {
	got := Generate(ElementAttributes{}, nil, nil)
	if len(got) != 0 {
		t.Errorf("expected no candidates for an attributeless element, got %d", len(got))
	}
}
