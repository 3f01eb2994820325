// ABOUTME: Configuration loading and parsing for parleyd
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete parleyd configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Preview   PreviewConfig   `yaml:"preview"`
	Widget    WidgetConfig    `yaml:"widget"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds snapshot database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SimulatorConfig holds delivery-simulator timing configuration.
type SimulatorConfig struct {
	ReplyDelay         time.Duration `yaml:"-"`
	AmbientInterval    time.Duration `yaml:"-"`
	AmbientProbability float64       `yaml:"ambient_probability"`

	// Raw string values for YAML unmarshaling
	ReplyDelayRaw      string `yaml:"reply_delay"`
	AmbientIntervalRaw string `yaml:"ambient_interval"`
}

// PreviewConfig holds notification preview queue configuration.
type PreviewConfig struct {
	TTL      time.Duration `yaml:"-"`
	Capacity int           `yaml:"capacity"`

	TTLRaw string `yaml:"ttl"`
}

// WidgetConfig is served verbatim to the embeddable widget at bootstrap.
type WidgetConfig struct {
	HeaderTitle    string `yaml:"header_title" json:"header_title"`
	HeaderSubtitle string `yaml:"header_subtitle" json:"header_subtitle"`
	Placeholder    string `yaml:"placeholder" json:"placeholder"`
	WelcomeMessage string `yaml:"welcome_message" json:"welcome_message"`
	OperatorName   string `yaml:"operator_name" json:"operator_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the file leaves a field unset.
const (
	defaultReplyDelay      = time.Second
	defaultAmbientInterval = 15 * time.Second
	defaultAmbientProb     = 0.3
)

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Simulator.AmbientProbability < 0 || c.Simulator.AmbientProbability > 1 {
		return fmt.Errorf("simulator.ambient_probability must be between 0 and 1, got %v",
			c.Simulator.AmbientProbability)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Simulator.ReplyDelayRaw != "" {
		cfg.Simulator.ReplyDelay, err = time.ParseDuration(cfg.Simulator.ReplyDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing reply_delay %q: %w", cfg.Simulator.ReplyDelayRaw, err)
		}
	}

	if cfg.Simulator.AmbientIntervalRaw != "" {
		cfg.Simulator.AmbientInterval, err = time.ParseDuration(cfg.Simulator.AmbientIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing ambient_interval %q: %w", cfg.Simulator.AmbientIntervalRaw, err)
		}
	}

	if cfg.Preview.TTLRaw != "" {
		cfg.Preview.TTL, err = time.ParseDuration(cfg.Preview.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing preview ttl %q: %w", cfg.Preview.TTLRaw, err)
		}
	}

	return nil
}

// applyDefaults fills unset timing fields and widget copy.
func applyDefaults(cfg *Config) {
	if cfg.Simulator.ReplyDelay == 0 {
		cfg.Simulator.ReplyDelay = defaultReplyDelay
	}
	if cfg.Simulator.AmbientInterval == 0 {
		cfg.Simulator.AmbientInterval = defaultAmbientInterval
	}
	if cfg.Simulator.AmbientProbability == 0 {
		cfg.Simulator.AmbientProbability = defaultAmbientProb
	}
	if cfg.Widget.HeaderTitle == "" {
		cfg.Widget.HeaderTitle = "Support"
	}
	if cfg.Widget.HeaderSubtitle == "" {
		cfg.Widget.HeaderSubtitle = "Online"
	}
	if cfg.Widget.Placeholder == "" {
		cfg.Widget.Placeholder = "Type your message..."
	}
	if cfg.Widget.WelcomeMessage == "" {
		cfg.Widget.WelcomeMessage = "Hello! How can I help you today?"
	}
}
