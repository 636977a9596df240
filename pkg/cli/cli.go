// Package cli provides the command-line interface for uiexplorer.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config.yaml (default: ./config.yaml if present)",
		EnvVars: []string{"UIEXPLORER_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"UIEXPLORER_VERBOSE"},
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "uiexplorer",
		Usage:   "Autonomous UI traversal for mobile apps",
		Version: Version,
		Description: `uiexplorer drives an app on a connected device, discovering screens
and exercising interactive elements without scripted flows.

Examples:
  uiexplorer explore --device emulator-5554 --app com.example.app
  uiexplorer explore --device emulator-5554 --app com.example.app --max-actions 50
  uiexplorer validate-config -c config.yaml`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			exploreCommand,
			validateConfigCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
