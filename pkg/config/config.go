package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultQueue is the queue snapshots are published to.
const DefaultQueue = "monitor_service_queue"

// ErrMissingCredentials is returned when broker credentials are not set.
var ErrMissingCredentials = errors.New("broker credentials are required (RABBITMQ_USER and RABBITMQ_PASS)")

type Config struct {
	Broker   BrokerConfig   `toml:"broker"`
	Delivery DeliveryConfig `toml:"delivery"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Sampler  SamplerConfig  `toml:"sampler"`
	Journal  JournalConfig  `toml:"journal"`
	Logging  LoggingConfig  `toml:"logging"`
}

type BrokerConfig struct {
	Host         string        `toml:"host"`
	Port         int           `toml:"port"`
	VHost        string        `toml:"vhost"`
	User         string        `toml:"user"`
	Password     string        `toml:"password"`
	Queue        string        `toml:"queue"`
	DialTimeout  string        `toml:"dial_timeout"`
	DialTimeoutD time.Duration `toml:"-" json:"-" yaml:"-"`
}

type DeliveryConfig struct {
	MaxAttempts   int           `toml:"max_attempts"`
	RetryBackoff  string        `toml:"retry_backoff"`
	RetryBackoffD time.Duration `toml:"-" json:"-" yaml:"-"`
}

type MonitorConfig struct {
	Interval  string        `toml:"interval"`
	IntervalD time.Duration `toml:"-" json:"-" yaml:"-"`
}

type SamplerConfig struct {
	// UserName is reported in every snapshot; defaults to $USER.
	UserName string `toml:"user_name"`
}

// JournalConfig controls the local SQLite journal of cycle outcomes.
// The journal never stores snapshot payloads.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".hostmon")

	return &Config{
		Broker: BrokerConfig{
			Host:        "localhost",
			Port:        5672,
			VHost:       "/",
			Queue:       DefaultQueue,
			DialTimeout: "10s",
		},
		Delivery: DeliveryConfig{
			MaxAttempts:  5,
			RetryBackoff: "5s",
		},
		Monitor: MonitorConfig{
			Interval: "5s",
		},
		Sampler: SamplerConfig{
			UserName: "unknown",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "journal.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func LoadFromFile(path string) (*Config, error) {
	expandedPath, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand path: %w", err)
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("decode TOML: %w", err)
	}

	if err := cfg.postProcess(); err != nil {
		return nil, fmt.Errorf("post process config: %w", err)
	}

	return cfg, nil
}

func (c *Config) postProcess() error {
	var err error

	if c.Broker.DialTimeoutD, err = time.ParseDuration(c.Broker.DialTimeout); err != nil {
		return fmt.Errorf("parse broker.dial_timeout: %w", err)
	}

	if c.Delivery.RetryBackoffD, err = time.ParseDuration(c.Delivery.RetryBackoff); err != nil {
		return fmt.Errorf("parse delivery.retry_backoff: %w", err)
	}

	if c.Monitor.IntervalD, err = time.ParseDuration(c.Monitor.Interval); err != nil {
		return fmt.Errorf("parse monitor.interval: %w", err)
	}

	c.Journal.Path, err = expandPath(c.Journal.Path)
	if err != nil {
		return fmt.Errorf("expand journal.path: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Broker.Host) == "" {
		return fmt.Errorf("broker.host cannot be empty")
	}

	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker.port must be between 1 and 65535, got %d", c.Broker.Port)
	}

	if strings.TrimSpace(c.Broker.Queue) == "" {
		return fmt.Errorf("broker.queue cannot be empty")
	}

	if c.Broker.DialTimeoutD <= 0 {
		return fmt.Errorf("broker.dial_timeout must be positive, got %s", c.Broker.DialTimeout)
	}

	if c.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("delivery.max_attempts must be at least 1, got %d", c.Delivery.MaxAttempts)
	}

	if c.Delivery.RetryBackoffD < 0 {
		return fmt.Errorf("delivery.retry_backoff cannot be negative, got %s", c.Delivery.RetryBackoff)
	}

	if c.Monitor.IntervalD < 0 {
		return fmt.Errorf("monitor.interval cannot be negative, got %s", c.Monitor.Interval)
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid logging format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}

// RequireCredentials fails when the broker user or password is unset.
// There is no built-in password.
func (c *Config) RequireCredentials() error {
	if c.Broker.User == "" || c.Broker.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RABBITMQ_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("RABBITMQ_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse RABBITMQ_PORT: %w", err)
		}
		cfg.Broker.Port = port
	}
	if v := os.Getenv("RABBITMQ_VHOST"); v != "" {
		cfg.Broker.VHost = v
	}
	if v := os.Getenv("RABBITMQ_USER"); v != "" {
		cfg.Broker.User = v
	}
	if v := os.Getenv("RABBITMQ_PASS"); v != "" {
		cfg.Broker.Password = v
	}
	if v := os.Getenv("HOSTMON_QUEUE"); v != "" {
		cfg.Broker.Queue = v
	}
	if v := os.Getenv("HOSTMON_INTERVAL"); v != "" {
		cfg.Monitor.Interval = v
	}
	if v := os.Getenv("USER"); v != "" {
		cfg.Sampler.UserName = v
	}
	if v := os.Getenv("HOSTMON_JOURNAL"); v != "" {
		cfg.Journal.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("HOSTMON_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
	if v := os.Getenv("HOSTMON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HOSTMON_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get user home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	return path, nil
}

func Load(configPath string) (*Config, error) {
	var cfg *Config
	var err error

	if configPath != "" {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", configPath, err)
		}
	} else {
		cfg = Default()
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.postProcess(); err != nil {
		return nil, fmt.Errorf("post process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Broker.Password != "" {
		out.Broker.Password = "********"
	}
	return &out
}
