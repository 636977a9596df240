package engine

import (
	"context"
	"time"

	"github.com/pzy560117/uiexplorer/pkg/core"
	"github.com/pzy560117/uiexplorer/pkg/locator"
)

// resolveTarget re-finds the element a plan aims at through ranked locator
// candidates validated against a fresh hierarchy capture. Click-style plans
// come back converted to the resolved point; plans without an element
// target pass through untouched. Exhausting every candidate is an
// execution failure.
func (e *Engine) resolveTarget(ctx context.Context, rc *RunContext, plan *core.ActionPlan) (*core.ActionPlan, error) {
	target := planTarget(plan)
	if target == "" {
		return plan, nil
	}
	if plan.Click != nil && plan.Click.HasPoint {
		return plan, nil
	}

	node := core.FindByText(rc.CurrentDOM, target)
	if node == nil {
		// Nothing structural to anchor candidates on; the driver does its
		// own lookup.
		return plan, nil
	}

	live, err := e.drv.PageSource(ctx, rc.Session)
	if err != nil {
		return nil, err
	}

	attrs := locator.AttributesOf(rc.CurrentDOM, node)
	cands := locator.Generate(attrs, nil, rc.locatorMemory[target])
	if len(cands) == 0 {
		return plan, nil
	}

	var resolved *core.UINode
	winner, err := rc.Locators.ValidateInOrder(ctx, cands, func(_ context.Context, c *locator.Candidate) locator.AttemptResult {
		start := time.Now()
		n := locator.Match(live, c)
		res := locator.AttemptResult{Passed: n != nil, Latency: time.Since(start)}
		if n == nil {
			res.Note = "no match for " + string(c.Strategy)
			res.Screenshot = rc.CurrentScreenshot
		} else {
			resolved = n
		}
		return res
	})
	if err != nil {
		return nil, err
	}
	rc.rememberLocator(target, cands, winner)

	e.logger.Debug().
		Str("target", target).
		Str("winner", winner).
		Msg("locator resolved")

	out := *plan
	if out.Click != nil {
		x, y := resolved.Bounds.Center()
		click := *out.Click
		click.X, click.Y, click.HasPoint = x, y, true
		out.Click = &click
	}
	return &out, nil
}

// rememberLocator keeps the winning candidate for reuse as a historical
// candidate the next time the same target is resolved.
func (rc *RunContext) rememberLocator(target string, cands []*locator.Candidate, winnerID string) {
	for _, c := range cands {
		if c.ID != winnerID {
			continue
		}
		for i, h := range rc.locatorMemory[target] {
			if h.ID == c.ID {
				rc.locatorMemory[target][i] = c
				return
			}
		}
		rc.locatorMemory[target] = append(rc.locatorMemory[target], c)
		return
	}
}
