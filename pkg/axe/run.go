package axe

import (
	"context"
	"fmt"

	"github.com/a11ytester/a11ytester/pkg/jsonutil"
)

// Evaluator runs a JavaScript expression in the page and returns the JSON
// encoding of its value. With awaitPromise set, a returned promise is
// awaited first.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, awaitPromise bool) ([]byte, error)
}

// RunOptions configures a single axe.run call.
type RunOptions struct {
	// Tags restricts evaluation to rules carrying any of these tags.
	// Empty runs the engine's default rule set.
	Tags []string
}

type runOnly struct {
	Type   string   `json:"type"`
	Values []string `json:"values"`
}

type runConfig struct {
	RunOnly *runOnly `json:"runOnly,omitempty"`
}

// JSON returns the options object handed to axe.run.
func (o RunOptions) JSON() ([]byte, error) {
	var cfg runConfig
	if len(o.Tags) > 0 {
		cfg.RunOnly = &runOnly{Type: "tag", Values: o.Tags}
	}
	return jsonutil.Marshal(cfg)
}

// injectSuffix makes the injected bundle complete with undefined, so no engine
// object has to be serialized back.
const injectSuffix = "\n;void 0;"

// runTemplate stringifies inside the page so the value crossing the protocol
// is a single string, independent of how the engine shapes its objects.
const runTemplate = `(async () => {
  if (typeof window.axe === "undefined" || typeof window.axe.run !== "function") {
    throw new Error("axe-core is not loaded in this page");
  }
  const r = await window.axe.run(document, %s);
  return JSON.stringify({
    testEngine: r.testEngine,
    url: r.url,
    timestamp: r.timestamp,
    violations: r.violations,
    passes: r.passes,
    incomplete: r.incomplete,
    inapplicable: r.inapplicable
  });
})()`

// Expression builds the JavaScript that runs axe with opts.
func Expression(opts RunOptions) (string, error) {
	cfg, err := opts.JSON()
	if err != nil {
		return "", fmt.Errorf("encoding run options: %w", err)
	}
	return fmt.Sprintf(runTemplate, cfg), nil
}

// Run injects the engine from src into the page behind ev and evaluates it.
func Run(ctx context.Context, ev Evaluator, src Source, opts RunOptions) (*Results, error) {
	script, err := src.Script(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := ev.Evaluate(ctx, script+injectSuffix, false); err != nil {
		return nil, fmt.Errorf("%w: injecting engine: %v", ErrEvaluation, err)
	}

	expr, err := Expression(opts)
	if err != nil {
		return nil, err
	}
	raw, err := ev.Evaluate(ctx, expr, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}

	var payload string
	if err := jsonutil.UnmarshalLenient(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: unexpected result type: %v", ErrEvaluation, err)
	}
	return ParseResults([]byte(payload))
}

// ParseResults decodes the JSON produced by the run expression. Node markup
// may be truncated mid-character by the engine, so invalid text is tolerated.
func ParseResults(data []byte) (*Results, error) {
	var res Results
	if err := jsonutil.UnmarshalLenient(data, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding results: %v", ErrEvaluation, err)
	}
	return &res, nil
}
