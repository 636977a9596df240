// Package config handles configuration for uiexplorer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// Duration wraps time.Duration for YAML decoding of values like "30m".
type Duration time.Duration

// UnmarshalYAML decodes a duration string or a bare number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs int
	if err := node.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// CoverageProfile holds the run's termination and priority configuration.
type CoverageProfile struct {
	Timeout       Duration `yaml:"timeout"`       // Wall-clock budget for the run
	MaxActions    int      `yaml:"maxActions"`    // Total device interactions ceiling
	MaxDepth      int      `yaml:"maxDepth"`      // Navigation depth ceiling (0 = unlimited)
	PathBlacklist []string `yaml:"pathBlacklist"` // Substring rules matched against action targets
}

// ModelConfig points at the decision model endpoint.
type ModelConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// DriverConfig selects and configures the device driver.
type DriverConfig struct {
	Type      string `yaml:"type"`      // "uia2" or "mock"
	ServerURL string `yaml:"serverUrl"` // Automation server URL for uia2
}

// SafetyConfig tunes the decision safety validator.
type SafetyConfig struct {
	AllowedActions []string `yaml:"allowedActions"`
	MaxInputLen    int      `yaml:"maxInputLen"`
	ScreenWidth    int      `yaml:"screenWidth"`
	ScreenHeight   int      `yaml:"screenHeight"`
}

// AlertConfig configures the alerting sink.
type AlertConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Optional log file path
}

// Config represents the workspace configuration (config.yaml).
type Config struct {
	Coverage  CoverageProfile `yaml:"coverage"`
	Model     ModelConfig     `yaml:"model"`
	Driver    DriverConfig    `yaml:"driver"`
	Safety    SafetyConfig    `yaml:"safety"`
	Alert     AlertConfig     `yaml:"alert"`
	Log       LogConfig       `yaml:"log"`
	ReportDir string          `yaml:"reportDir"` // Where run audit trails are written
}

// Default returns a configuration with working defaults for a local run.
func Default() *Config {
	return &Config{
		Coverage: CoverageProfile{
			Timeout:    Duration(30 * time.Minute),
			MaxActions: 200,
		},
		Driver: DriverConfig{
			Type:      "uia2",
			ServerURL: "http://localhost:6790",
		},
		Safety: SafetyConfig{
			AllowedActions: []string{"CLICK", "INPUT", "SCROLL", "NAVIGATE_BACK", "SWIPE", "LONG_PRESS"},
		},
		Log:       LogConfig{Level: "info"},
		ReportDir: "reports",
	}
}

// Load loads configuration from a file, layered over defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	return Default(), nil
}

// ApplyEnv overlays environment variables onto the config. A .env file in
// the working directory is loaded first when present; real environment
// variables win over .env entries.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("UIEXPLORER_MODEL_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("UIEXPLORER_MODEL_ENDPOINT"); v != "" {
		c.Model.Endpoint = v
	}
	if v := os.Getenv("UIEXPLORER_DRIVER_URL"); v != "" {
		c.Driver.ServerURL = v
	}
	if v := os.Getenv("UIEXPLORER_ALERT_WEBHOOK"); v != "" {
		c.Alert.WebhookURL = v
	}
	if v := os.Getenv("UIEXPLORER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Coverage.MaxActions <= 0 {
		return core.ErrInvalidConfig.WithMessage("coverage.maxActions must be positive")
	}
	if c.Coverage.Timeout.Std() <= 0 {
		return core.ErrInvalidConfig.WithMessage("coverage.timeout must be positive")
	}
	if c.Coverage.MaxDepth < 0 {
		return core.ErrInvalidConfig.WithMessage("coverage.maxDepth must not be negative")
	}
	switch c.Driver.Type {
	case "uia2":
		if c.Driver.ServerURL == "" {
			return core.ErrInvalidConfig.WithMessage("driver.serverUrl is required for the uia2 driver")
		}
	case "mock":
	default:
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown driver type %q", c.Driver.Type))
	}
	if len(c.Safety.AllowedActions) == 0 {
		return core.ErrInvalidConfig.WithMessage("safety.allowedActions must not be empty")
	}
	for _, a := range c.Safety.AllowedActions {
		if !core.KnownActionType(core.ActionType(a)) {
			return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown action type %q in safety.allowedActions", a))
		}
	}
	return nil
}
