package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/a11ytester/a11ytester/pkg/audit"
	"github.com/a11ytester/a11ytester/pkg/axe"
	"github.com/a11ytester/a11ytester/pkg/browser"
	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/report"
	"github.com/a11ytester/a11ytester/pkg/ui"
)

// auditFlags are the flags of the audit and summary commands.
type auditFlags struct {
	CommonFlags
	format           string
	output           string
	tags             string
	includeHTML      bool
	failOnViolations bool
}

func (af *auditFlags) register(fs *flag.FlagSet, withReportFlags bool) {
	af.CommonFlags.Register(fs)
	fs.StringVar(&af.format, "format", "console", "Output format: console, json, markdown, pdf")
	fs.StringVar(&af.output, "o", "", "Write output to file instead of stdout")
	fs.BoolVar(&af.failOnViolations, "fail-on-violations", false, "Exit with code 1 when violations are found")
	if withReportFlags {
		fs.StringVar(&af.tags, "tags", "", "Comma-separated rule tags to check (e.g. wcag2a,wcag2aa)")
		fs.BoolVar(&af.includeHTML, "include-html", false, "Include HTML snippets of affected elements")
	}
}

// runAudit audits one page and writes the full report.
func runAudit(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var af auditFlags
	af.register(fs, true)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s audit <url> [flags]\n\n", defaults.ToolName)
		fmt.Fprintf(stderr, "Load the page in headless Chrome, run axe-core and print every violation.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	target, code, ok := parseCommand(fs, args, stderr)
	if !ok {
		return code
	}
	format, code, ok := af.parseFormat(stderr)
	if !ok {
		return code
	}

	auditor, code, ok := af.setup(stderr)
	if !ok {
		return code
	}

	req := audit.AuditRequest{URL: target, IncludeHTML: af.includeHTML, Tags: splitTags(af.tags)}
	for _, tag := range req.Tags {
		if !axe.IsKnownTag(tag) {
			ui.PrintWarning(stderr, fmt.Sprintf("tag %q is not a common axe-core tag; rules may not match", tag))
		}
	}

	stop := ui.StartSpinner(stderr, "Auditing "+target)
	rep, err := auditor.Audit(ctx, req)
	stop()
	if err != nil {
		ui.PrintError(stderr, "Error auditing webpage: "+err.Error())
		return exitCode(err)
	}

	if err := af.write(stdout, format, func(w io.Writer) error {
		return report.WriteReport(w, format, rep)
	}); err != nil {
		ui.PrintError(stderr, err.Error())
		return defaults.ExitInternalError
	}
	return af.violationsExit(len(rep.Violations))
}

// runSummary audits one page and writes the severity summary.
func runSummary(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var af auditFlags
	af.register(fs, false)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s summary <url> [flags]\n\n", defaults.ToolName)
		fmt.Fprintf(stderr, "Print issue counts by severity and the top issues of a page.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	target, code, ok := parseCommand(fs, args, stderr)
	if !ok {
		return code
	}
	format, code, ok := af.parseFormat(stderr)
	if !ok {
		return code
	}
	if format == report.FormatPDF {
		ui.PrintError(stderr, "pdf output is only available for audit")
		return defaults.ExitUserError
	}

	auditor, code, ok := af.setup(stderr)
	if !ok {
		return code
	}

	stop := ui.StartSpinner(stderr, "Summarizing "+target)
	sum, err := auditor.Summarize(ctx, audit.SummaryRequest{URL: target})
	stop()
	if err != nil {
		ui.PrintError(stderr, "Error getting summary: "+err.Error())
		return exitCode(err)
	}

	if err := af.write(stdout, format, func(w io.Writer) error {
		return report.WriteSummary(w, format, sum)
	}); err != nil {
		ui.PrintError(stderr, err.Error())
		return defaults.ExitInternalError
	}
	return af.violationsExit(sum.TotalIssues)
}

// parseCommand parses flags around a single positional URL.
func parseCommand(fs *flag.FlagSet, args []string, stderr io.Writer) (target string, code int, ok bool) {
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", defaults.ExitSuccess, false
		}
		return "", defaults.ExitUserError, false
	}
	if len(positional) != 1 {
		ui.PrintError(stderr, "expected exactly one URL")
		fs.Usage()
		return "", defaults.ExitUserError, false
	}
	return positional[0], 0, true
}

// parseInterspersed parses flags that may appear before or after
// positional arguments, which the flag package alone stops at.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func (af *auditFlags) parseFormat(stderr io.Writer) (report.Format, int, bool) {
	format, err := report.ParseFormat(af.format)
	if err != nil {
		ui.PrintError(stderr, err.Error())
		return "", defaults.ExitUserError, false
	}
	if format.Binary() && af.output == "" && ui.IsTerminal(os.Stdout) {
		ui.PrintError(stderr, "refusing to write pdf to a terminal: use -o <file>")
		return "", defaults.ExitUserError, false
	}
	return format, 0, true
}

func (af *auditFlags) setup(stderr io.Writer) (*audit.Auditor, int, bool) {
	if af.NoColor {
		ui.SetNoColor(true)
	}
	cfg, err := af.Load()
	if err != nil {
		ui.PrintError(stderr, err.Error())
		return nil, defaults.ExitUserError, false
	}
	logger, err := newLogger(stderr, cfg)
	if err != nil {
		ui.PrintError(stderr, err.Error())
		return nil, defaults.ExitUserError, false
	}
	return newAuditor(cfg, logger, nil), 0, true
}

// write sends rendered output to -o or stdout.
func (af *auditFlags) write(stdout io.Writer, format report.Format, render func(io.Writer) error) error {
	if af.output == "" {
		return render(stdout)
	}
	if format == report.FormatConsole {
		ui.SetNoColor(true)
	}
	f, err := os.Create(af.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("render %s: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func (af *auditFlags) violationsExit(n int) int {
	if af.failOnViolations && n > 0 {
		return defaults.ExitViolations
	}
	return defaults.ExitSuccess
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// exitCode maps an audit failure to a process exit code.
func exitCode(err error) int {
	switch {
	case errors.Is(err, audit.ErrInvalidParams), errors.Is(err, audit.ErrInvalidURL):
		return defaults.ExitUserError
	case errors.Is(err, browser.ErrLaunch),
		errors.Is(err, browser.ErrNavigationTimeout),
		errors.Is(err, browser.ErrScript),
		errors.Is(err, axe.ErrEvaluation),
		errors.Is(err, axe.ErrScriptUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return defaults.ExitAuditError
	default:
		return defaults.ExitInternalError
	}
}
