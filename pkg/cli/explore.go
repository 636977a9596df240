package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/pzy560117/uiexplorer/pkg/alert"
	"github.com/pzy560117/uiexplorer/pkg/config"
	"github.com/pzy560117/uiexplorer/pkg/core"
	"github.com/pzy560117/uiexplorer/pkg/decision"
	"github.com/pzy560117/uiexplorer/pkg/driver"
	"github.com/pzy560117/uiexplorer/pkg/driver/mock"
	"github.com/pzy560117/uiexplorer/pkg/driver/uia2"
	"github.com/pzy560117/uiexplorer/pkg/engine"
	"github.com/pzy560117/uiexplorer/pkg/logger"
	"github.com/pzy560117/uiexplorer/pkg/recovery"
	"github.com/pzy560117/uiexplorer/pkg/report"
	"github.com/pzy560117/uiexplorer/pkg/reserve"
	"github.com/pzy560117/uiexplorer/pkg/safety"
)

var exploreCommand = &cli.Command{
	Name:  "explore",
	Usage: "Run an autonomous traversal of an app on a device",
	Description: `Reserve the device, bootstrap a session, and traverse the app until
the coverage budget is spent or the action queues run dry.

A per-run audit trail (state transitions, summary) is written under the
report directory.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "device",
			Usage:    "Device ID to drive",
			Required: true,
			EnvVars:  []string{"UIEXPLORER_DEVICE"},
		},
		&cli.StringFlag{
			Name:     "app",
			Usage:    "App package to explore",
			Required: true,
			EnvVars:  []string{"UIEXPLORER_APP"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Wall-clock budget for the run (overrides config)",
		},
		&cli.IntFlag{
			Name:  "max-actions",
			Usage: "Total device interactions ceiling (overrides config)",
		},
		&cli.StringSliceFlag{
			Name:  "blacklist",
			Usage: "Path blacklist rule (repeatable, overrides config)",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Report directory (default from config)",
		},
	},
	Action: runExplore,
}

func runExplore(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if t := c.Duration("timeout"); t > 0 {
		cfg.Coverage.Timeout = config.Duration(t)
	}
	if n := c.Int("max-actions"); n > 0 {
		cfg.Coverage.MaxActions = n
	}
	if bl := c.StringSlice("blacklist"); len(bl) > 0 {
		cfg.Coverage.PathBlacklist = bl
	}
	if out := c.String("output"); out != "" {
		cfg.ReportDir = out
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Model.Endpoint == "" {
		return core.ErrInvalidConfig.WithMessage("model.endpoint is required (config or UIEXPLORER_MODEL_ENDPOINT)")
	}

	level := cfg.Log.Level
	if c.Bool("verbose") {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.File)
	if err != nil {
		return err
	}

	deviceID := c.String("device")
	appPackage := c.String("app")
	runID := uuid.NewString()

	pool := reserve.NewPool()
	if err := pool.Acquire(deviceID, runID); err != nil {
		return err
	}
	defer func() { _ = pool.Release(deviceID, runID) }()

	drv, err := buildDriver(cfg, log)
	if err != nil {
		return err
	}

	writer, err := report.NewWriter(cfg.ReportDir, runID)
	if err != nil {
		return err
	}

	model := decision.NewHTTPModel(cfg.Model.Endpoint, cfg.Model.APIKey, log)

	var sink alert.Sink = alert.Nop{}
	if cfg.Alert.WebhookURL != "" {
		sink = alert.NewWebhook(cfg.Alert.WebhookURL, log)
	}

	validator := safety.New(safetyConfig(cfg))
	recoverer := recovery.NewExecutor(drv, recovery.DefaultSettleDelays(), log)

	eng := engine.New(drv, model, validator, recoverer, sink, log, engine.Options{
		RunID:       runID,
		DeviceID:    deviceID,
		AppPackage:  appPackage,
		Profile:     cfg.Coverage,
		SettleDelay: 500 * time.Millisecond,
		Observer: func(ev core.TransitionEvent) {
			if rerr := writer.Record(ev); rerr != nil {
				log.Warn().Err(rerr).Msg("audit trail write failed")
			}
		},
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	res := eng.Run(ctx)

	if err := writer.Finish(report.Summary{
		RunID:      res.RunID,
		DeviceID:   deviceID,
		AppPackage: appPackage,
		Status:     res.Status.String(),
		Reason:     res.Reason,
		Stats:      res.Stats,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}); err != nil {
		log.Warn().Err(err).Msg("summary write failed")
	}

	fmt.Printf("\nRun %s: %s (%s)\n", res.RunID, res.Status, res.Reason)
	fmt.Printf("  screens discovered: %d\n", res.Stats.CoverageScreens)
	fmt.Printf("  actions: %d total, %d ok, %d failed\n",
		res.Stats.TotalActions, res.Stats.SuccessfulActions, res.Stats.FailedActions)
	fmt.Printf("  report: %s\n", writer.Dir())

	if res.Status == core.RunFailed {
		return cli.Exit(fmt.Sprintf("run failed: %s", res.Reason), 1)
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func buildDriver(cfg *config.Config, log zerolog.Logger) (driver.DeviceDriver, error) {
	switch cfg.Driver.Type {
	case "uia2":
		return uia2.New(cfg.Driver.ServerURL, log), nil
	case "mock":
		return mock.New(mock.Config{}), nil
	}
	return nil, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown driver type %q", cfg.Driver.Type))
}

func safetyConfig(cfg *config.Config) safety.Config {
	allowed := make([]core.ActionType, 0, len(cfg.Safety.AllowedActions))
	for _, a := range cfg.Safety.AllowedActions {
		allowed = append(allowed, core.ActionType(a))
	}
	return safety.Config{
		Allowed:      allowed,
		ScreenWidth:  cfg.Safety.ScreenWidth,
		ScreenHeight: cfg.Safety.ScreenHeight,
		MaxInputLen:  cfg.Safety.MaxInputLen,
	}
}
