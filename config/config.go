// Package config holds the tunables of the connection manager.
//
// Values come from Default, from the environment (Load, GGTV_ prefix) or from
// a YAML file (LoadFile). The certificate directory defaults to $HOME, where
// the remote library keeps cert.pem and key.pem.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/TienBeta/ggtv-kit/log"
)

const (
	// EnvPrefix is prepended to every variable name read by Load.
	EnvPrefix = "GGTV"

	CertFileName = "cert.pem"
	KeyFileName  = "key.pem"
)

// ErrNoCertDir is returned by CertPaths when no home directory is known.
var ErrNoCertDir = errors.New("certificate directory not set")

// Config is the full set of manager settings.
type Config struct {
	// CertDir holds the client certificate files. Read from GGTV_HOME, then HOME.
	CertDir string `envconfig:"HOME" yaml:"cert_dir"`

	// CallTimeout bounds every synchronous call into the library.
	CallTimeout time.Duration `envconfig:"CALL_TIMEOUT" default:"5s" yaml:"call_timeout"`
	// PingInterval is the idle time after which a key press first reconnects.
	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"5s" yaml:"ping_interval"`

	ConnectAttempts int           `envconfig:"CONNECT_ATTEMPTS" default:"3" yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `envconfig:"CONNECT_BACKOFF" default:"2s" yaml:"connect_backoff"`

	SendKeyAttempts       int           `envconfig:"SEND_KEY_ATTEMPTS" default:"3" yaml:"send_key_attempts"`
	QuickReconnectTimeout time.Duration `envconfig:"QUICK_RECONNECT_TIMEOUT" default:"5s" yaml:"quick_reconnect_timeout"`
	ReconnectSettle       time.Duration `envconfig:"RECONNECT_SETTLE" default:"1s" yaml:"reconnect_settle"`

	// Workers is the size of the background job pool.
	Workers int `envconfig:"WORKERS" default:"5" yaml:"workers"`

	// CommandRate limits commands per second sent to the device; 0 disables.
	CommandRate  float64 `envconfig:"COMMAND_RATE" default:"20" yaml:"command_rate"`
	CommandBurst int     `envconfig:"COMMAND_BURST" default:"5" yaml:"command_burst"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"`

	// MemoryLimit is a soft Go heap ceiling such as "16MiB". Empty leaves the
	// runtime setting alone.
	MemoryLimit string `envconfig:"MEMORY_LIMIT" yaml:"memory_limit"`
}

// Default returns the built-in settings with CertDir taken from $HOME.
func Default() *Config {
	return &Config{
		CertDir:               os.Getenv("HOME"),
		CallTimeout:           5 * time.Second,
		PingInterval:          5 * time.Second,
		ConnectAttempts:       3,
		ConnectBackoff:        2 * time.Second,
		SendKeyAttempts:       3,
		QuickReconnectTimeout: 5 * time.Second,
		ReconnectSettle:       time.Second,
		Workers:               5,
		CommandRate:           20,
		CommandBurst:          5,
		LogLevel:              "info",
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns Default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		log.Warnf("load config from environment: %v; using defaults", err)
		return Default()
	}
	return cfg
}

// LoadFile reads a YAML file on top of Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the manager cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.CallTimeout <= 0:
		return fmt.Errorf("call_timeout must be positive, got %s", c.CallTimeout)
	case c.PingInterval <= 0:
		return fmt.Errorf("ping_interval must be positive, got %s", c.PingInterval)
	case c.ConnectAttempts < 1:
		return fmt.Errorf("connect_attempts must be at least 1, got %d", c.ConnectAttempts)
	case c.SendKeyAttempts < 1:
		return fmt.Errorf("send_key_attempts must be at least 1, got %d", c.SendKeyAttempts)
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.CommandRate < 0:
		return fmt.Errorf("command_rate must not be negative, got %g", c.CommandRate)
	case c.ConnectBackoff < 0 || c.QuickReconnectTimeout < 0 || c.ReconnectSettle < 0:
		return errors.New("durations must not be negative")
	}
	if _, err := c.MemoryLimitBytes(); err != nil {
		return err
	}
	return nil
}

// MemoryLimitBytes parses MemoryLimit. It returns 0 when no limit is set.
func (c *Config) MemoryLimitBytes() (int64, error) {
	if c.MemoryLimit == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(c.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("memory_limit: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("memory_limit must be positive, got %q", c.MemoryLimit)
	}
	return n, nil
}

// CertPaths returns the certificate and key file locations.
func (c *Config) CertPaths() (certFile, keyFile string, err error) {
	if c.CertDir == "" {
		return "", "", ErrNoCertDir
	}
	return filepath.Join(c.CertDir, CertFileName), filepath.Join(c.CertDir, KeyFileName), nil
}
