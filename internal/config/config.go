package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"
)

type Config struct {
	Square   SquareConfig   `mapstructure:"square"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Currency string         `mapstructure:"currency"`
	Resubmit ResubmitConfig `mapstructure:"resubmit"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Pairing  PairingConfig  `mapstructure:"pairing"`
}

type SquareConfig struct {
	AccessToken string `mapstructure:"access_token"`
	LocationID  string `mapstructure:"location_id"`
	DeviceID    string `mapstructure:"device_id"`
	Environment string `mapstructure:"environment"`
	APIVersion  string `mapstructure:"api_version"`
}

func (s SquareConfig) Sandbox() bool {
	return strings.EqualFold(s.Environment, EnvironmentSandbox)
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ResubmitConfig struct {
	Tick          time.Duration `mapstructure:"tick"`
	TicksPerCycle int           `mapstructure:"ticks_per_cycle"`
	MaxDuration   time.Duration `mapstructure:"max_duration"`
}

type GatewayConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type JournalConfig struct {
	DSN  string        `mapstructure:"dsn"`
	Poll time.Duration `mapstructure:"poll"`
}

type PairingConfig struct {
	Name string `mapstructure:"name"`
}

var envBindings = map[string]string{
	"square.access_token":      "SQUARE_ACCESS_TOKEN",
	"square.location_id":       "SQUARE_LOCATION_ID",
	"square.device_id":         "SQUARE_DEVICE_ID",
	"square.environment":       "SQUARE_ENVIRONMENT",
	"square.api_version":       "SQUARE_API_VERSION",
	"http.addr":                "TIPBOT_HTTP_ADDR",
	"log.level":                "TIPBOT_LOG_LEVEL",
	"log.development":          "TIPBOT_LOG_DEVELOPMENT",
	"currency":                 "TIPBOT_CURRENCY",
	"resubmit.tick":            "TIPBOT_RESUBMIT_TICK",
	"resubmit.ticks_per_cycle": "TIPBOT_RESUBMIT_TICKS_PER_CYCLE",
	"resubmit.max_duration":    "TIPBOT_RESUBMIT_MAX_DURATION",
	"gateway.timeout":          "TIPBOT_GATEWAY_TIMEOUT",
	"journal.dsn":              "TIPBOT_JOURNAL_DSN",
	"journal.poll":             "TIPBOT_JOURNAL_POLL",
	"pairing.name":             "TIPBOT_PAIRING_NAME",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("square.access_token", "")
	v.SetDefault("square.location_id", "")
	v.SetDefault("square.device_id", "")
	v.SetDefault("square.environment", EnvironmentProduction)
	v.SetDefault("square.api_version", "2024-10-17")
	v.SetDefault("http.addr", ":5000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("currency", "USD")
	v.SetDefault("resubmit.tick", 5*time.Second)
	v.SetDefault("resubmit.ticks_per_cycle", 24)
	v.SetDefault("resubmit.max_duration", 2*time.Hour)
	v.SetDefault("gateway.timeout", 15*time.Second)
	v.SetDefault("journal.dsn", ":memory:")
	v.SetDefault("journal.poll", 500*time.Millisecond)
	v.SetDefault("pairing.name", "TipBot7000 Terminal")
}

// Load layers defaults, an optional config file and the environment, in
// that order of precedence from lowest to highest.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "Failed bind %s", env)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "Failed read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "Failed unmarshal config")
	}
	return &cfg, nil
}

func (c *Config) RequireToken() error {
	if c.Square.AccessToken == "" {
		return errors.New("SQUARE_ACCESS_TOKEN is required")
	}
	switch strings.ToLower(c.Square.Environment) {
	case EnvironmentProduction, EnvironmentSandbox:
	default:
		return errors.Errorf("SQUARE_ENVIRONMENT must be %s or %s, got %q",
			EnvironmentProduction, EnvironmentSandbox, c.Square.Environment)
	}
	return nil
}

// Validate checks everything the server needs to take payments.
func (c *Config) Validate() error {
	if err := c.RequireToken(); err != nil {
		return err
	}
	if c.Square.DeviceID == "" {
		return errors.New("SQUARE_DEVICE_ID is required")
	}
	if c.Currency == "" {
		return errors.New("currency is required")
	}
	if c.Resubmit.TicksPerCycle <= 0 {
		return errors.Errorf("resubmit ticks per cycle must be positive, got %d", c.Resubmit.TicksPerCycle)
	}

	durations := map[string]time.Duration{
		"resubmit tick":         c.Resubmit.Tick,
		"resubmit max duration": c.Resubmit.MaxDuration,
		"gateway timeout":       c.Gateway.Timeout,
		"journal poll":          c.Journal.Poll,
	}
	for name, d := range durations {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}
