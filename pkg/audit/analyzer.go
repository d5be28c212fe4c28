package audit

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/a11ytester/a11ytester/pkg/axe"
	"github.com/a11ytester/a11ytester/pkg/browser"
	"github.com/a11ytester/a11ytester/pkg/metrics"
	"github.com/a11ytester/a11ytester/pkg/tracing"
)

// Analyzer loads a page and returns raw rule engine results for it.
type Analyzer interface {
	Analyze(ctx context.Context, target string, tags []string) (*axe.Results, error)
}

// ChromeAnalyzer runs axe-core in a fresh headless Chrome per call.
// Nothing is shared between calls except the cached engine script.
type ChromeAnalyzer struct {
	Browser browser.Config
	Script  axe.Source
	Metrics *metrics.Metrics
}

// Analyze implements Analyzer. The browser is closed on every return path.
func (a *ChromeAnalyzer) Analyze(ctx context.Context, target string, tags []string) (*axe.Results, error) {
	// Load the engine first so a missing script never costs a browser launch.
	script, err := a.Script.Script(ctx)
	a.Metrics.ObserveScriptLoad(err)
	if err != nil {
		return nil, err
	}

	sess, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	a.Metrics.SessionOpened()
	defer a.Metrics.SessionClosed()
	defer sess.Close()

	if err := a.navigate(ctx, sess, target); err != nil {
		return nil, err
	}
	return a.run(ctx, sess, axe.StaticSource(script), tags)
}

func (a *ChromeAnalyzer) open(ctx context.Context) (sess *browser.Session, err error) {
	ctx, span := tracing.Start(ctx, "browser.launch")
	defer func() { tracing.End(span, err) }()
	return browser.Open(ctx, a.Browser)
}

func (a *ChromeAnalyzer) navigate(ctx context.Context, sess *browser.Session, target string) (err error) {
	ctx, span := tracing.Start(ctx, "browser.navigate", attribute.String("url.full", target))
	defer func() { tracing.End(span, err) }()
	return sess.Navigate(ctx, target)
}

func (a *ChromeAnalyzer) run(ctx context.Context, sess *browser.Session, src axe.Source, tags []string) (res *axe.Results, err error) {
	ctx, span := tracing.Start(ctx, "axe.run", attribute.StringSlice("axe.tags", tags))
	defer func() {
		if res != nil {
			span.SetAttributes(
				attribute.Int("axe.violations", len(res.Violations)),
				attribute.String("axe.version", res.TestEngine.Version),
			)
		}
		tracing.End(span, err)
	}()
	return axe.Run(ctx, sess, src, axe.RunOptions{Tags: tags})
}
