package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/a11ytester/a11ytester/pkg/audit"
	"github.com/a11ytester/a11ytester/pkg/axe"
	"github.com/a11ytester/a11ytester/pkg/config"
	"github.com/a11ytester/a11ytester/pkg/logging"
	"github.com/a11ytester/a11ytester/pkg/metrics"
)

// CommonFlags are shared by every subcommand. Set flags override the config
// file and A11Y_* environment variables.
type CommonFlags struct {
	ConfigPath string
	ChromePath string
	AxeScript  string
	LogLevel   string
	LogFormat  string
	Headed     bool
	NoColor    bool
}

// Register adds the common flags to fs.
func (cf *CommonFlags) Register(fs *flag.FlagSet) {
	fs.StringVar(&cf.ConfigPath, "config", "", "YAML config file")
	fs.StringVar(&cf.ChromePath, "chrome", "", "Chrome/Chromium executable (default: auto-detect)")
	fs.StringVar(&cf.AxeScript, "axe-script", "", "Local axe-core bundle instead of the CDN copy")
	fs.StringVar(&cf.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&cf.LogFormat, "log-format", "", "Log format: text or json")
	fs.BoolVar(&cf.Headed, "headed", false, "Show the browser window")
	fs.BoolVar(&cf.NoColor, "no-color", false, "Disable colored output")
}

// Load builds the effective configuration.
func (cf *CommonFlags) Load() (*config.Config, error) {
	cfg, err := config.Load(cf.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cf.ChromePath != "" {
		cfg.Browser.ChromePath = cf.ChromePath
	}
	if cf.AxeScript != "" {
		cfg.Axe.ScriptPath = cf.AxeScript
	}
	if cf.LogLevel != "" {
		cfg.Log.Level = cf.LogLevel
	}
	if cf.LogFormat != "" {
		cfg.Log.Format = cf.LogFormat
	}
	if cf.Headed {
		cfg.Browser.Headless = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger on stderr.
func newLogger(stderr io.Writer, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}

// newAuditor wires the Chrome-backed analyzer from cfg. m may be nil.
func newAuditor(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *audit.Auditor {
	browserCfg := cfg.BrowserOptions()
	browserCfg.Logger = logger
	return audit.New(&audit.ChromeAnalyzer{
		Browser: browserCfg,
		Script:  axe.NewSource(cfg.Axe.ScriptPath, cfg.Axe.ScriptURL),
		Metrics: m,
	})
}

func envSet(key string) bool {
	v, ok := os.LookupEnv(key)
	return ok && v != ""
}
