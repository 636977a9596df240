package mock

import (
	"context"
	"testing"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

func TestDriver_ScriptAdvancesOnInteraction(t *testing.T) {
	d := New(Config{Screens: []Screen{
		DefaultScreen("One"),
		DefaultScreen("Two"),
	}})
	ctx := context.Background()
	sess, err := d.CreateSession(ctx, "dev", "com.example.app")
	if err != nil {
		t.Fatal(err)
	}

	dom, _ := d.PageSource(ctx, sess)
	if dom.Children[0].Text != "One" {
		t.Fatalf("expected the first screen, got %q", dom.Children[0].Text)
	}

	if err := d.Click(ctx, sess, core.ClickParams{Target: "Next"}); err != nil {
		t.Fatal(err)
	}
	dom, _ = d.PageSource(ctx, sess)
	if dom.Children[0].Text != "Two" {
		t.Errorf("expected the click to advance the script, got %q", dom.Children[0].Text)
	}

	// The last screen repeats once the script runs out.
	_ = d.Click(ctx, sess, core.ClickParams{Target: "Next"})
	dom, _ = d.PageSource(ctx, sess)
	if dom.Children[0].Text != "Two" {
		t.Errorf("expected the last screen to repeat, got %q", dom.Children[0].Text)
	}
}

func TestDriver_BackRewinds(t *testing.T) {
	d := New(Config{Screens: []Screen{
		DefaultScreen("One"),
		DefaultScreen("Two"),
	}})
	ctx := context.Background()
	sess, _ := d.CreateSession(ctx, "dev", "com.example.app")

	_ = d.Click(ctx, sess, core.ClickParams{Target: "Next"})
	_ = d.Back(ctx, sess)

	dom, _ := d.PageSource(ctx, sess)
	if dom.Children[0].Text != "One" {
		t.Errorf("expected back to rewind, got %q", dom.Children[0].Text)
	}
	if d.Backs != 1 {
		t.Errorf("expected back counter 1, got %d", d.Backs)
	}
}

func TestDriver_FailOnAction(t *testing.T) {
	d := New(Config{FailOnAction: 2})
	ctx := context.Background()
	sess, _ := d.CreateSession(ctx, "dev", "com.example.app")

	if err := d.Click(ctx, sess, core.ClickParams{Target: "a"}); err != nil {
		t.Fatalf("first action should pass: %v", err)
	}
	if err := d.Click(ctx, sess, core.ClickParams{Target: "b"}); err == nil {
		t.Error("second action should fail")
	}
	if err := d.Click(ctx, sess, core.ClickParams{Target: "c"}); err != nil {
		t.Errorf("third action should pass again: %v", err)
	}
}

func TestDriver_FailSession(t *testing.T) {
	d := New(Config{FailSession: true})
	if _, err := d.CreateSession(context.Background(), "dev", "app"); err == nil {
		t.Error("expected session creation to fail")
	}
}

func TestDriver_ClearStateRewindsToStart(t *testing.T) {
	d := New(Config{Screens: []Screen{
		DefaultScreen("One"),
		DefaultScreen("Two"),
		DefaultScreen("Three"),
	}})
	ctx := context.Background()
	sess, _ := d.CreateSession(ctx, "dev", "app")

	_ = d.Click(ctx, sess, core.ClickParams{Target: "x"})
	_ = d.Click(ctx, sess, core.ClickParams{Target: "y"})
	_ = d.ClearState(ctx, sess, "app")

	dom, _ := d.PageSource(ctx, sess)
	if dom.Children[0].Text != "One" {
		t.Errorf("expected clear state to rewind to the first screen, got %q", dom.Children[0].Text)
	}
}
