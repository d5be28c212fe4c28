// Package audit turns raw axe-core results into the two response shapes the
// server returns: a detailed Report and a severity-bucketed Summary.
//
// The Auditor validates a request once, hands the page to an Analyzer and
// formats what comes back. Formatting is pure and lives in FormatReport and
// BuildSummary.
package audit

import (
	"context"
	"time"
)

// Auditor is stateless apart from its collaborators and is safe for
// concurrent use when its Analyzer is.
type Auditor struct {
	analyzer Analyzer
	now      func() time.Time
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Auditor) { a.now = now }
}

// New creates an Auditor backed by analyzer.
func New(analyzer Analyzer, opts ...Option) *Auditor {
	a := &Auditor{analyzer: analyzer, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Audit produces a Report. Errors wrapping ErrInvalidParams mean the request
// itself was bad; anything else is a failure to audit the page.
func (a *Auditor) Audit(ctx context.Context, req AuditRequest) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseTarget(req.URL); err != nil {
		return nil, err
	}

	res, err := a.analyzer.Analyze(ctx, req.URL, req.Tags)
	if err != nil {
		return nil, err
	}
	return FormatReport(req, res, a.now()), nil
}

// Summarize produces a Summary using the engine's default rule set.
func (a *Auditor) Summarize(ctx context.Context, req SummaryRequest) (*Summary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseTarget(req.URL); err != nil {
		return nil, err
	}

	res, err := a.analyzer.Analyze(ctx, req.URL, nil)
	if err != nil {
		return nil, err
	}
	return BuildSummary(req.URL, res, a.now()), nil
}
