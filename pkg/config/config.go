// Package config loads server settings from a YAML file, then applies
// A11Y_* environment overrides. Command-line flags are applied last by the
// commands themselves.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/a11ytester/a11ytester/pkg/browser"
	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/duration"
)

// Config is the complete server configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Axe       AxeConfig       `yaml:"axe"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BrowserConfig controls the headless browser.
type BrowserConfig struct {
	// ChromePath overrides browser discovery
	ChromePath string `yaml:"chrome_path"`
	Headless   bool   `yaml:"headless"`
	// NoSandbox is needed when running as root in containers
	NoSandbox bool     `yaml:"no_sandbox"`
	UserAgent string   `yaml:"user_agent"`
	Viewport  Viewport `yaml:"viewport"`
	// NavigationTimeout bounds load plus the network idle wait
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	// IdleWindow is the quiet period that marks the network idle
	IdleWindow time.Duration `yaml:"idle_window"`
}

// Viewport is the emulated window size in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// AxeConfig chooses where the rule engine script comes from.
// ScriptPath wins over ScriptURL.
type AxeConfig struct {
	ScriptPath string `yaml:"script_path"`
	ScriptURL  string `yaml:"script_url"`
}

// ServerConfig applies to the HTTP transport only.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	// RateLimit is requests per second per client; 0 disables limiting
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// LogConfig selects slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig controls metrics and trace export.
type TelemetryConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	ServiceName    string `yaml:"service_name"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         true,
			Viewport:          Viewport{Width: defaults.ViewportWidth, Height: defaults.ViewportHeight},
			NavigationTimeout: duration.Navigation,
			IdleWindow:        duration.NetworkIdleWindow,
		},
		Axe: AxeConfig{
			ScriptURL: defaults.AxeScriptURL,
		},
		Server: ServerConfig{
			HTTPAddr:  defaults.HTTPAddr,
			RateBurst: defaults.RateLimitBurst,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			ServiceName:    defaults.ToolName,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from A11Y_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("A11Y_CHROME_PATH", &c.Browser.ChromePath)
	boolean("A11Y_HEADLESS", &c.Browser.Headless)
	boolean("A11Y_NO_SANDBOX", &c.Browser.NoSandbox)
	str("A11Y_USER_AGENT", &c.Browser.UserAgent)
	integer("A11Y_VIEWPORT_WIDTH", &c.Browser.Viewport.Width)
	integer("A11Y_VIEWPORT_HEIGHT", &c.Browser.Viewport.Height)
	dur("A11Y_NAVIGATION_TIMEOUT", &c.Browser.NavigationTimeout)
	dur("A11Y_IDLE_WINDOW", &c.Browser.IdleWindow)

	str("A11Y_AXE_SCRIPT", &c.Axe.ScriptPath)
	str("A11Y_AXE_URL", &c.Axe.ScriptURL)

	str("A11Y_HTTP_ADDR", &c.Server.HTTPAddr)
	float("A11Y_RATE_LIMIT", &c.Server.RateLimit)
	integer("A11Y_RATE_BURST", &c.Server.RateBurst)

	str("A11Y_LOG_LEVEL", &c.Log.Level)
	str("A11Y_LOG_FORMAT", &c.Log.Format)

	boolean("A11Y_METRICS", &c.Telemetry.MetricsEnabled)
	str("A11Y_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	boolean("A11Y_OTLP_INSECURE", &c.Telemetry.OTLPInsecure)
	str("A11Y_SERVICE_NAME", &c.Telemetry.ServiceName)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate reports every out-of-range value at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	b := c.Browser
	if b.Viewport.Width <= 0 || b.Viewport.Height <= 0 {
		add("browser.viewport must be positive, got %dx%d", b.Viewport.Width, b.Viewport.Height)
	}
	if b.NavigationTimeout <= 0 {
		add("browser.navigation_timeout must be positive")
	}
	if b.IdleWindow <= 0 || b.IdleWindow >= b.NavigationTimeout {
		add("browser.idle_window must be positive and shorter than navigation_timeout")
	}

	if c.Axe.ScriptPath == "" {
		u, err := url.Parse(c.Axe.ScriptURL)
		if c.Axe.ScriptURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("axe.script_url %q is not an http(s) URL", c.Axe.ScriptURL)
		}
	}

	if c.Server.RateLimit < 0 {
		add("server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		add("server.rate_burst must be at least 1 when rate_limit is set")
	}

	if !oneOf(strings.ToLower(c.Log.Level), logLevels) {
		add("log.level %q is not one of %s", c.Log.Level, strings.Join(logLevels, ", "))
	}
	if !oneOf(strings.ToLower(c.Log.Format), logFormats) {
		add("log.format %q is not one of %s", c.Log.Format, strings.Join(logFormats, ", "))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// BrowserOptions converts the browser section for browser.Open.
func (c *Config) BrowserOptions() browser.Config {
	cfg := browser.DefaultConfig()
	cfg.ChromePath = c.Browser.ChromePath
	cfg.Headless = c.Browser.Headless
	cfg.NoSandbox = c.Browser.NoSandbox
	cfg.UserAgent = c.Browser.UserAgent
	cfg.ViewportWidth = c.Browser.Viewport.Width
	cfg.ViewportHeight = c.Browser.Viewport.Height
	cfg.NavigationTimeout = c.Browser.NavigationTimeout
	cfg.IdleWindow = c.Browser.IdleWindow
	return cfg
}
