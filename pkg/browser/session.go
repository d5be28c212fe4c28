// Package browser runs isolated headless Chrome sessions over the DevTools
// protocol using chromedp.
//
// Every Session owns its own Chrome process. Callers must Close it on every
// path, typically with a defer right after Open.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/a11ytester/a11ytester/pkg/duration"
)

var (
	// ErrLaunch means Chrome could not be started or attached to.
	ErrLaunch = errors.New("browser launch failed")

	// ErrNavigationTimeout means the page did not load and settle in time.
	ErrNavigationTimeout = errors.New("navigation timeout exceeded")

	// ErrScript means evaluated JavaScript threw.
	ErrScript = errors.New("script evaluation failed")
)

// NavigationTimeoutError carries the budget that was exceeded.
type NavigationTimeoutError struct {
	Timeout time.Duration
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation timeout of %d ms exceeded", e.Timeout.Milliseconds())
}

// Is lets errors.Is match ErrNavigationTimeout.
func (e *NavigationTimeoutError) Is(target error) bool {
	return target == ErrNavigationTimeout
}

// Session is one Chrome process with a single page.
type Session struct {
	cfg  Config
	log  *slog.Logger
	ctx  context.Context
	idle *idleTracker

	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	closeOnce     sync.Once
}

// Open launches Chrome and prepares a page with the configured viewport.
// The process is tied to ctx: cancelling it tears the browser down.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
		// chromedp reports unknown protocol events as errors; they are noise here.
		chromedp.WithErrorf(func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	s := &Session{
		cfg:           cfg,
		log:           log,
		ctx:           browserCtx,
		idle:          newIdleTracker(cfg.IdleConnections, cfg.IdleWindow),
		cancelBrowser: browserCancel,
		cancelAlloc:   allocCancel,
	}
	chromedp.ListenTarget(browserCtx, s.onEvent)

	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(cfg.ViewportWidth), int64(cfg.ViewportHeight)),
	)
	if err != nil {
		_ = s.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	log.Debug("browser session opened",
		"viewport", fmt.Sprintf("%dx%d", cfg.ViewportWidth, cfg.ViewportHeight),
		"headless", cfg.Headless)
	return s, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+8)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		// A false flag drops the --headless added by the defaults.
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	path := cfg.ChromePath
	if path == "" {
		path, _ = FindChrome()
	}
	if path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts
}

func (s *Session) onEvent(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		s.idle.started(string(e.RequestID))
	case *network.EventLoadingFinished:
		s.idle.finished(string(e.RequestID))
	case *network.EventLoadingFailed:
		s.idle.finished(string(e.RequestID))
	}
}

// Navigate loads rawURL and waits until the network settles, all within
// the configured navigation timeout.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, s.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	s.idle.reset()
	err := chromedp.Run(navCtx, chromedp.Navigate(rawURL))
	if err == nil {
		s.idle.arm()
		select {
		case <-s.idle.wait():
		case <-navCtx.Done():
			err = navCtx.Err()
		}
	}
	if err == nil {
		s.log.Debug("page settled", "url", rawURL)
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		s.log.Debug("navigation timed out", "url", rawURL, "in_flight", s.idle.inFlight())
		return &NavigationTimeoutError{Timeout: s.cfg.NavigationTimeout}
	}
	return fmt.Errorf("navigating to %s: %w", rawURL, err)
}

// Evaluate runs expression in the page and returns its value as JSON.
// undefined comes back as null.
func (s *Session) Evaluate(ctx context.Context, expression string, awaitPromise bool) ([]byte, error) {
	evalCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var out []byte
	err := chromedp.Run(evalCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(expression).
			WithAwaitPromise(awaitPromise).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exceptionError(exc)
		}
		if res == nil || len(res.Value) == 0 {
			out = []byte("null")
			return nil
		}
		out = append([]byte(nil), res.Value...)
		return nil
	}))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return out, nil
}

func exceptionError(exc *runtime.ExceptionDetails) error {
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		// Description carries the stack; the first line is the message.
		desc, _, _ := strings.Cut(exc.Exception.Description, "\n")
		msg = desc
	}
	return fmt.Errorf("%w: %s", ErrScript, msg)
}

// Close shuts the browser down. Graceful shutdown gets duration.BrowserCleanup
// before the process tree is killed. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		// The process handle is gone once the contexts are cancelled.
		var proc *os.Process
		if c := chromedp.FromContext(s.ctx); c != nil && c.Browser != nil {
			proc = c.Browser.Process()
		}

		done := make(chan struct{})
		go func() {
			s.cancelBrowser()
			s.cancelAlloc()
			close(done)
		}()

		timer := time.NewTimer(duration.BrowserCleanup)
		defer timer.Stop()
		select {
		case <-done:
			s.log.Debug("browser session closed")
		case <-timer.C:
			killProcessTree(proc)
			s.log.Warn("browser cleanup timed out, killed chrome process tree")
		}
	})
	return nil
}
