// Package config contains the definition of the application config structure
// and the logic required to load it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jnury/regis/pkg/logger"
)

// Config represents the configuration of the application.
type Config struct {
	Security   Security   `yaml:"security"`
	Auth       Auth       `yaml:"auth"`
	Connection Connection `yaml:"connection"`
	RDP        RDP        `yaml:"rdp"`
	Boundary   Boundary   `yaml:"boundary"`
}

// Security contains session security settings.
type Security struct {
	// TimeoutSeconds bounds individual CLI invocations.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// AutoLogoutMinutes is how long a stored token may go unused before it
	// is discarded on retrieval.
	AutoLogoutMinutes int `yaml:"auto_logout_minutes"`
}

// Auth contains authentication polling settings.
type Auth struct {
	// PollIntervalSeconds is the period between authentication status checks.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	// PollAttempts is the attempt budget before the flow times out.
	PollAttempts int `yaml:"poll_attempts"`
}

// Connection contains connection establishment settings.
type Connection struct {
	AutoConnectSingleTarget bool `yaml:"auto_connect_single_target"`
	RetryAttempts           int  `yaml:"retry_attempts"`
	RetryDelaySeconds       int  `yaml:"retry_delay_seconds"`
}

// RDP contains remote desktop client launch settings.
type RDP struct {
	AutoLaunch      bool   `yaml:"auto_launch"`
	PreferredClient string `yaml:"preferred_client"`
	Fullscreen      bool   `yaml:"fullscreen"`
	Resolution      string `yaml:"resolution"`
}

// Boundary contains settings for the wrapped boundary CLI.
type Boundary struct {
	CLIPath    string `yaml:"cli_path"`
	AutoDetect bool   `yaml:"auto_detect"`
}

// PollInterval returns the authentication poll period as a duration.
func (a Auth) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalSeconds) * time.Second
}

// RetryDelay returns the establishment retry delay as a duration.
func (c Connection) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// CommandTimeout returns the per-invocation CLI timeout as a duration.
func (s Security) CommandTimeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// defaultPathGenerator generates the default config path using xdg.
var defaultPathGenerator = func() (string, error) {
	return xdg.ConfigFile("regis/config.yaml")
}

// getConfigPath is the current path generator, can be replaced in tests.
var getConfigPath = defaultPathGenerator

// Default returns a config populated with default values.
func Default() Config {
	return Config{
		Security: Security{
			TimeoutSeconds:    30,
			AutoLogoutMinutes: 60,
		},
		Auth: Auth{
			PollIntervalSeconds: 1,
			PollAttempts:        30,
		},
		Connection: Connection{
			AutoConnectSingleTarget: true,
			RetryAttempts:           3,
			RetryDelaySeconds:       2,
		},
		RDP: RDP{
			AutoLaunch:      true,
			PreferredClient: "auto",
			Fullscreen:      false,
			Resolution:      "auto",
		},
		Boundary: Boundary{
			CLIPath:    "boundary",
			AutoDetect: true,
		},
	}
}

// Load reads the application config. Defaults apply for anything the file
// does not set, and REGIS_* environment variables override both. A missing
// config file is not an error.
func Load() (Config, error) {
	cfg := Default()

	path, err := getConfigPath()
	if err != nil {
		return cfg, fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from xdg
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Default(), fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		logger.Debugw("loaded config file", "path", path)
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// applyEnvOverrides lets REGIS_* environment variables override file values,
// e.g. REGIS_BOUNDARY_CLI_PATH or REGIS_AUTH_POLL_ATTEMPTS.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("regis")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if s := v.GetString("boundary.cli_path"); s != "" {
		cfg.Boundary.CLIPath = s
	}
	if n := v.GetInt("auth.poll_interval_seconds"); n > 0 {
		cfg.Auth.PollIntervalSeconds = n
	}
	if n := v.GetInt("auth.poll_attempts"); n > 0 {
		cfg.Auth.PollAttempts = n
	}
	if n := v.GetInt("security.timeout_seconds"); n > 0 {
		cfg.Security.TimeoutSeconds = n
	}
}

func (c *Config) validate() error {
	if c.Auth.PollIntervalSeconds <= 0 {
		return fmt.Errorf("auth.poll_interval_seconds must be positive, got %d", c.Auth.PollIntervalSeconds)
	}
	if c.Auth.PollAttempts <= 0 {
		return fmt.Errorf("auth.poll_attempts must be positive, got %d", c.Auth.PollAttempts)
	}
	if c.Connection.RetryAttempts < 0 {
		return fmt.Errorf("connection.retry_attempts must not be negative, got %d", c.Connection.RetryAttempts)
	}
	if c.Boundary.CLIPath == "" {
		return fmt.Errorf("boundary.cli_path must not be empty")
	}
	return nil
}
