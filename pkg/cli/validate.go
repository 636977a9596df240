package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var validateConfigCommand = &cli.Command{
	Name:  "validate-config",
	Usage: "Load and validate the configuration, then exit",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return cli.Exit(fmt.Sprintf("invalid config: %v", err), 1)
		}
		fmt.Printf("config OK: driver=%s timeout=%s maxActions=%d\n",
			cfg.Driver.Type, cfg.Coverage.Timeout.Std(), cfg.Coverage.MaxActions)
		return nil
	},
}
