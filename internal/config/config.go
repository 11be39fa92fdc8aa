// ABOUTME: Configuration loading and parsing for bubble-relay
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bubble-relay configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Assistant AssistantConfig `yaml:"assistant"`
	Worker    WorkerConfig    `yaml:"worker"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// RedisConfig holds the shared Redis connection-pool configuration.
// The pool is shared by the session store and the pub/sub relay.
type RedisConfig struct {
	URL         string        `yaml:"url"`
	PoolSize    int           `yaml:"pool_size"`
	PoolTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	PoolTimeoutRaw string `yaml:"pool_timeout"`
}

// AssistantConfig holds the external assistant API configuration
type AssistantConfig struct {
	APIKey      string `yaml:"api_key"`
	AssistantID string `yaml:"assistant_id"`
	BaseURL     string `yaml:"base_url"`

	RunTimeout   time.Duration `yaml:"-"`
	PollInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	RunTimeoutRaw   string `yaml:"run_timeout"`
	PollIntervalRaw string `yaml:"poll_interval"`
}

// WorkerConfig holds the conversation worker pool configuration
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
	QueueSize   int `yaml:"queue_size"`
}

// SessionConfig holds session cache configuration
type SessionConfig struct {
	MaxMessages int `yaml:"max_messages"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied by Load when the file leaves fields unset.
const (
	DefaultPoolSize     = 5
	DefaultPoolTimeout  = 5 * time.Second
	DefaultRunTimeout   = 30 * time.Second
	DefaultPollInterval = time.Second
	DefaultConcurrency  = 10
	DefaultQueueSize    = 256
	DefaultMaxMessages  = 10
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = DefaultPoolSize
	}
	if c.Redis.PoolTimeout == 0 {
		c.Redis.PoolTimeout = DefaultPoolTimeout
	}
	if c.Assistant.RunTimeout == 0 {
		c.Assistant.RunTimeout = DefaultRunTimeout
	}
	if c.Assistant.PollInterval == 0 {
		c.Assistant.PollInterval = DefaultPollInterval
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = DefaultConcurrency
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = DefaultQueueSize
	}
	if c.Session.MaxMessages == 0 {
		c.Session.MaxMessages = DefaultMaxMessages
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}
	if c.Assistant.APIKey == "" {
		return fmt.Errorf("assistant.api_key is required")
	}
	if c.Assistant.AssistantID == "" {
		return fmt.Errorf("assistant.assistant_id is required")
	}
	if c.Worker.Concurrency < 0 {
		return fmt.Errorf("worker.concurrency must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Redis.PoolTimeoutRaw != "" {
		cfg.Redis.PoolTimeout, err = time.ParseDuration(cfg.Redis.PoolTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing pool_timeout %q: %w", cfg.Redis.PoolTimeoutRaw, err)
		}
	}

	if cfg.Assistant.RunTimeoutRaw != "" {
		cfg.Assistant.RunTimeout, err = time.ParseDuration(cfg.Assistant.RunTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing run_timeout %q: %w", cfg.Assistant.RunTimeoutRaw, err)
		}
	}

	if cfg.Assistant.PollIntervalRaw != "" {
		cfg.Assistant.PollInterval, err = time.ParseDuration(cfg.Assistant.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.Assistant.PollIntervalRaw, err)
		}
	}

	return nil
}
