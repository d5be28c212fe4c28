package browser

import (
	"log/slog"
	"time"

	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/duration"
)

// Config controls how sessions launch and load pages.
type Config struct {
	// ChromePath overrides browser discovery.
	ChromePath string
	Headless   bool
	// NoSandbox is required when running as root inside containers.
	NoSandbox bool
	// UserAgent replaces the browser default when set.
	UserAgent string

	ViewportWidth  int
	ViewportHeight int

	// NavigationTimeout bounds load plus the idle wait.
	NavigationTimeout time.Duration
	// IdleWindow is how long in-flight requests must stay at or below
	// IdleConnections before the page counts as settled.
	IdleWindow      time.Duration
	IdleConnections int

	Logger *slog.Logger
}

// DefaultConfig returns a headless 1280x800 configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NoSandbox:         true,
		ViewportWidth:     defaults.ViewportWidth,
		ViewportHeight:    defaults.ViewportHeight,
		NavigationTimeout: duration.Navigation,
		IdleWindow:        duration.NetworkIdleWindow,
		IdleConnections:   defaults.IdleConnections,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = d.ViewportWidth
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = d.ViewportHeight
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = d.NavigationTimeout
	}
	if c.IdleWindow <= 0 {
		c.IdleWindow = d.IdleWindow
	}
	if c.IdleConnections <= 0 {
		c.IdleConnections = d.IdleConnections
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}
