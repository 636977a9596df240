package cli

import (
	"testing"

	"github.com/pzy560117/uiexplorer/pkg/config"
	"github.com/pzy560117/uiexplorer/pkg/core"
	"github.com/pzy560117/uiexplorer/pkg/logger"
)

func TestBuildDriver(t *testing.T) {
	log := logger.Nop()

	cfg := config.Default()
	if _, err := buildDriver(cfg, log); err != nil {
		t.Errorf("uia2 driver: %v", err)
	}

	cfg.Driver.Type = "mock"
	if _, err := buildDriver(cfg, log); err != nil {
		t.Errorf("mock driver: %v", err)
	}

	cfg.Driver.Type = "adb"
	if _, err := buildDriver(cfg, log); err == nil {
		t.Error("expected an error for an unknown driver type")
	}
}

func TestSafetyConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Safety.AllowedActions = []string{"CLICK", "INPUT"}
	cfg.Safety.MaxInputLen = 64

	sc := safetyConfig(cfg)
	if len(sc.Allowed) != 2 || sc.Allowed[0] != core.ActionClick {
		t.Errorf("unexpected whitelist: %v", sc.Allowed)
	}
	if sc.MaxInputLen != 64 {
		t.Errorf("expected input ceiling carried over, got %d", sc.MaxInputLen)
	}
}
