// Package config provides configuration parsing and validation for pongd.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinmesh/pongd/internal/protocol"
)

// Config represents the complete responder configuration.
type Config struct {
	Listener  ListenerConfig  `yaml:"listener"`
	Responder ResponderConfig `yaml:"responder"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Limits    LimitsConfig    `yaml:"limits"`
	Health    HealthConfig    `yaml:"health"`
	Log       LogConfig       `yaml:"log"`
}

// ListenerConfig defines the UDP listener.
type ListenerConfig struct {
	Host    string `yaml:"host"`     // local bind address
	Port    int    `yaml:"port"`     // UDP port
	UseIPv6 bool   `yaml:"use_ipv6"` // bind an IPv6 socket instead of IPv4
}

// ResponderConfig contains protocol-level settings.
type ResponderConfig struct {
	// Banner is the program/version string advertised in the reply's
	// extended segment. Its length is bounded by the fixed reply buffer.
	Banner string `yaml:"banner"`
}

// IndicatorConfig defines the optional activity indicator light.
type IndicatorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	LEDPath   string `yaml:"led_path"`   // sysfs brightness file
	ActiveLow bool   `yaml:"active_low"` // LED wired active-low
}

// LimitsConfig defines optional anti-amplification limits.
type LimitsConfig struct {
	// ReplyRate caps replies per second per peer. 0 disables limiting,
	// preserving the reference responder's behavior.
	ReplyRate  float64 `yaml:"reply_rate"`
	ReplyBurst int     `yaml:"reply_burst"`
	MaxPeers   int     `yaml:"max_peers"` // tracked peer limiter entries
}

// HealthConfig defines the status/metrics HTTP server.
type HealthConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LogConfig defines logging behavior.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when a field is absent from the
// config file.
func Default() *Config {
	return &Config{
		Listener: ListenerConfig{
			Host:    "0.0.0.0",
			Port:    15998,
			UseIPv6: false,
		},
		Responder: ResponderConfig{
			Banner: "pongd",
		},
		Indicator: IndicatorConfig{
			Enabled:   false,
			LEDPath:   "/sys/class/leds/led0/brightness",
			ActiveLow: false,
		},
		Limits: LimitsConfig{
			ReplyRate:  0,
			ReplyBurst: 4,
			MaxPeers:   4096,
		},
		Health: HealthConfig{
			Enabled:      false,
			Address:      ":8081",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, applying defaults and
// validating the result.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR} or $VAR patterns.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their
// values, supporting ${VAR:-default} fallbacks.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if idx := strings.Index(name, ":-"); idx != -1 {
			varName := name[:idx]
			defaultVal := name[idx+2:]
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return defaultVal
		}

		return os.Getenv(name)
	})
}

// Validate checks the configuration, collecting every fault so a broken
// file is reported in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Listener.Host == "" {
		errs = append(errs, "listener.host is required")
	}
	if c.Listener.Port < 1 || c.Listener.Port > 65535 {
		errs = append(errs, fmt.Sprintf("listener.port must be between 1 and 65535, got %d", c.Listener.Port))
	}

	if c.Responder.Banner == "" {
		errs = append(errs, "responder.banner is required")
	}
	if n := len(c.Responder.Banner); n > protocol.MaxBannerLen {
		errs = append(errs, fmt.Sprintf("responder.banner is %d bytes, maximum is %d", n, protocol.MaxBannerLen))
	}

	if c.Indicator.Enabled && c.Indicator.LEDPath == "" {
		errs = append(errs, "indicator.led_path is required when the indicator is enabled")
	}

	if c.Limits.ReplyRate < 0 {
		errs = append(errs, "limits.reply_rate must not be negative")
	}
	if c.Limits.ReplyRate > 0 {
		if c.Limits.ReplyBurst < 1 {
			errs = append(errs, "limits.reply_burst must be positive when rate limiting is enabled")
		}
		if c.Limits.MaxPeers < 1 {
			errs = append(errs, "limits.max_peers must be positive when rate limiting is enabled")
		}
	}

	if c.Health.Enabled && c.Health.Address == "" {
		errs = append(errs, "health.address is required when enabled")
	}

	if !isValidLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	if !isValidLogFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("invalid log.format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Network returns the UDP network name for the configured address family.
func (c *Config) Network() string {
	if c.Listener.UseIPv6 {
		return "udp6"
	}
	return "udp4"
}

// ListenAddr returns the host:port string for the UDP listener, with
// IPv6 literals bracketed.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Listener.Host, strconv.Itoa(c.Listener.Port))
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	default:
		return false
	}
}
