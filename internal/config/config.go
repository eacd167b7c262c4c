package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. Precedence when loading:
// command-line flags (applied by the CLI) > environment > config file >
// defaults.
type Config struct {
	Env string `yaml:"env"`

	// Backend listener. The backend additionally reserves WcfPort+1.
	WcfHost  string `yaml:"wcf_host"`
	WcfPort  int    `yaml:"wcf_port"`
	WcfDebug bool   `yaml:"wcf_debug"`

	HTTPHost string `yaml:"http_host"`
	HTTPPort int    `yaml:"http_port"`

	// CallbackURL receives forwarded events. Empty disables forwarding:
	// inbound messages are logged and discarded.
	CallbackURL string `yaml:"callback_url"`

	QueueCapacity  int           `yaml:"queue_capacity"`
	MaxAttempts    int           `yaml:"max_attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	RetryBase      time.Duration `yaml:"retry_base"`
	DrainGrace     time.Duration `yaml:"drain_grace"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`

	// DatabaseURL enables the Postgres dead-letter sink. Empty keeps the
	// structured-log sink.
	DatabaseURL string `yaml:"database_url"`
}

func defaults() Config {
	return Config{
		Env:            "dev",
		WcfHost:        "",
		WcfPort:        10086,
		WcfDebug:       true,
		HTTPHost:       "0.0.0.0",
		HTTPPort:       9999,
		QueueCapacity:  4096,
		MaxAttempts:    5,
		AttemptTimeout: 10 * time.Second,
		RetryBase:      500 * time.Millisecond,
		DrainGrace:     5 * time.Second,
		StartupTimeout: 30 * time.Second,
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.Env = getenv("ENV", cfg.Env)
	cfg.WcfHost = getenv("WCF_HOST", cfg.WcfHost)
	cfg.WcfPort = getenvInt("WCF_PORT", cfg.WcfPort)
	cfg.WcfDebug = getenvBool("WCF_DEBUG", cfg.WcfDebug)
	cfg.HTTPHost = getenv("HTTP_HOST", cfg.HTTPHost)
	cfg.HTTPPort = getenvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.CallbackURL = getenv("CALLBACK_URL", cfg.CallbackURL)
	cfg.QueueCapacity = getenvInt("QUEUE_CAPACITY", cfg.QueueCapacity)
	cfg.MaxAttempts = getenvInt("MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.AttemptTimeout = getenvDuration("ATTEMPT_TIMEOUT", cfg.AttemptTimeout)
	cfg.RetryBase = getenvDuration("RETRY_BASE", cfg.RetryBase)
	cfg.DrainGrace = getenvDuration("DRAIN_GRACE", cfg.DrainGrace)
	cfg.StartupTimeout = getenvDuration("STARTUP_TIMEOUT", cfg.StartupTimeout)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate is re-run by the CLI after flag overrides are applied.
func (c Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.WcfPort < 1 || c.WcfPort > 65534 {
		return fmt.Errorf("wcf_port must be between 1 and 65534, got %d", c.WcfPort)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.CallbackURL != "" {
		parsed, err := url.Parse(c.CallbackURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid callback_url %q", c.CallbackURL)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("unsupported callback_url scheme %q", parsed.Scheme)
		}
	}
	return nil
}

func getenv(key, defaultValue string) string {
	v := os.Getenv(key)
	if v != "" {
		return v
	}
	return defaultValue
}

func getenvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getenvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getenvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return parsed
}
