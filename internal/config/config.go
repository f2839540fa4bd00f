package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultFile = "~/.minitrade/config.yaml"
	// TestFile is where test binaries point EnvPath.
	TestFile = "~/.minitrade/config.test.yaml"
	// EnvPath overrides DefaultPath.
	EnvPath = "MINITRADE_CONFIG"
)

// YahooSource configures the Yahoo quote source.
type YahooSource struct {
	EnableProxy bool   `yaml:"enable_proxy"`
	Proxy       string `yaml:"proxy"`
}

type Sources struct {
	Yahoo YahooSource `yaml:"yahoo"`
}

// IBBroker configures the Interactive Brokers gateway admin endpoint.
type IBBroker struct {
	GatewayAdminHost     string `yaml:"gateway_admin_host"`
	GatewayAdminPort     int    `yaml:"gateway_admin_port"`
	GatewayAdminLogLevel string `yaml:"gateway_admin_log_level"`
}

type Brokers struct {
	IB IBBroker `yaml:"ib"`
}

// Scheduler configures the scheduler daemon and its HTTP API.
type Scheduler struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// Mailjet holds the credentials used for e-mail notifications.
type Mailjet struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Sender    string `yaml:"sender"`
	Mailto    string `yaml:"mailto"`
}

type Providers struct {
	Mailjet Mailjet `yaml:"mailjet"`
}

// Watch configures the quote capture jobs run by the scheduler.
type Watch struct {
	Source     string   `yaml:"source"`
	Tickers    []string `yaml:"tickers"`
	SpotCron   string   `yaml:"spot_cron"`
	DailyCron  string   `yaml:"daily_cron"`
	SQLitePath string   `yaml:"sqlite_path"`
	Notify     bool     `yaml:"notify"`
}

// Config holds all application configuration.
// Every field has a default so a fresh install can write a complete file.
type Config struct {
	Sources   Sources   `yaml:"sources"`
	Brokers   Brokers   `yaml:"brokers"`
	Scheduler Scheduler `yaml:"scheduler"`
	Providers Providers `yaml:"providers"`
	Watch     Watch     `yaml:"watch"`
}

// LoadError reports a configuration file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading configuration %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Default returns a fully populated configuration.
func Default() *Config {
	return &Config{
		Brokers: Brokers{IB: IBBroker{
			GatewayAdminHost:     "127.0.0.1",
			GatewayAdminPort:     6667,
			GatewayAdminLogLevel: "info",
		}},
		Scheduler: Scheduler{
			Host:     "127.0.0.1",
			Port:     6666,
			LogLevel: "info",
		},
		Watch: Watch{
			Source:     "Yahoo",
			Tickers:    []string{"SPY"},
			SpotCron:   "0 */5 * * * 1-5",
			DailyCron:  "0 30 17 * * 1-5",
			SQLitePath: "~/.minitrade/quotes.db",
		},
	}
}

// DefaultPath is $MINITRADE_CONFIG when set, otherwise the well-known config location.
func DefaultPath() string {
	if v := os.Getenv(EnvPath); v != "" {
		return ExpandPath(v)
	}
	return ExpandPath(defaultFile)
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load reads config from a YAML file. Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("read config: %w", err)}
	}

	cfg := Default()
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("parse config: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return cfg, nil
}

// LoadOrDefault loads path and falls back to defaults when that fails.
// The returned config is never nil; the error tells the caller why defaults are in use.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes the config as YAML, replacing any existing file.
func (c *Config) Save(path string) error {
	path = ExpandPath(path)
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	log.WithField("path", path).Debug("configuration saved")
	return nil
}

// ApplyEnv overrides selected fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Sources.Yahoo.Proxy = v
	}
	if v := os.Getenv("MAILJET_API_KEY"); v != "" {
		c.Providers.Mailjet.APIKey = v
	}
	if v := os.Getenv("MAILJET_API_SECRET"); v != "" {
		c.Providers.Mailjet.APISecret = v
	}
	if v := os.Getenv("MINITRADE_LOG_LEVEL"); v != "" {
		c.Scheduler.LogLevel = v
	}
}

// Validate checks values that the YAML decoder cannot.
func (c *Config) Validate() error {
	var errs []error
	if p := c.Scheduler.Port; p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("scheduler.port %d out of range", p))
	}
	if p := c.Brokers.IB.GatewayAdminPort; p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("brokers.ib.gateway_admin_port %d out of range", p))
	}
	if _, err := log.ParseLevel(c.Scheduler.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.log_level: %w", err))
	}
	if _, err := log.ParseLevel(c.Brokers.IB.GatewayAdminLogLevel); err != nil {
		errs = append(errs, fmt.Errorf("brokers.ib.gateway_admin_log_level: %w", err))
	}
	if len(c.Watch.Tickers) == 0 {
		errs = append(errs, errors.New("watch.tickers is empty"))
	}
	if c.Watch.SpotCron == "" || c.Watch.DailyCron == "" {
		errs = append(errs, errors.New("watch.spot_cron and watch.daily_cron are required"))
	}
	return errors.Join(errs...)
}
