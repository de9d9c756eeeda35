package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the explorer.
// All configuration is loaded from YAML and can be overridden by environment
// variables or command-line flags.
type Config struct {
	AWS     AWSConfig     `yaml:"aws"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// AWSConfig contains AWS-specific overrides. Both fields are optional:
// when empty, the region comes from the SDK credential chain and the
// endpoint from a DescribeEndpoint call at startup.
type AWSConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// MQTTConfig contains MQTT connection settings.
type MQTTConfig struct {
	// ClientID is an explicit client identifier. When empty, one is
	// generated from ClientIDPrefix plus a random suffix.
	ClientID string `yaml:"client_id"`

	// ClientIDPrefix is the prefix for generated client identifiers.
	ClientIDPrefix string `yaml:"client_id_prefix"`

	// Version is the requested MQTT protocol version: "3.1.1" or "5.0".
	// A failed 5.0 attempt falls back to 3.1.1.
	Version string `yaml:"version"`

	// KeepAlive is the keepalive interval in seconds.
	KeepAlive int `yaml:"keep_alive"`

	// ConnectTimeout is the maximum time in seconds to wait for the
	// initial CONNACK.
	ConnectTimeout int `yaml:"connect_timeout"`
}

// SessionConfig contains interactive session settings.
type SessionConfig struct {
	// HistorySize bounds the in-memory message history ring.
	HistorySize int `yaml:"history_size"`

	// TestTopic is the topic used by the "test" command when no
	// subscriptions exist yet.
	TestTopic string `yaml:"test_topic"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// The file is optional for an interactive tool: a missing file yields the
// defaults rather than an error. A present but unparsable file is an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			ClientIDPrefix: "wsexplorer",
			Version:        "3.1.1",
			KeepAlive:      30,
			ConnectTimeout: 10,
		},
		Session: SessionConfig{
			HistorySize: 100,
			TestTopic:   "explorer/test",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variables over file values.
// Variables follow the pattern IOTEXPLORER_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IOTEXPLORER_AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("IOTEXPLORER_AWS_ENDPOINT"); v != "" {
		cfg.AWS.Endpoint = v
	}
	if v := os.Getenv("IOTEXPLORER_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.ClientID = v
	}
	if v := os.Getenv("IOTEXPLORER_MQTT_VERSION"); v != "" {
		cfg.MQTT.Version = v
	}
	if v := os.Getenv("IOTEXPLORER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.MQTT.Version {
	case "3.1.1", "5.0", "5":
	default:
		errs = append(errs, "mqtt.version must be \"3.1.1\" or \"5.0\"")
	}

	if c.MQTT.KeepAlive < 1 {
		errs = append(errs, "mqtt.keep_alive must be at least 1 second")
	}
	if c.MQTT.ConnectTimeout < 1 {
		errs = append(errs, "mqtt.connect_timeout must be at least 1 second")
	}
	if c.Session.HistorySize < 1 {
		errs = append(errs, "session.history_size must be at least 1")
	}
	if c.Session.TestTopic == "" {
		errs = append(errs, "session.test_topic is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetKeepAlive returns the keepalive interval as a Duration.
func (c *Config) GetKeepAlive() time.Duration {
	return time.Duration(c.MQTT.KeepAlive) * time.Second
}

// GetConnectTimeout returns the connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.MQTT.ConnectTimeout) * time.Second
}
