// Command a11y-tester audits web pages for accessibility issues, either as
// an MCP server for AI assistants or directly from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/duration"
	"github.com/a11ytester/a11ytester/pkg/ui"
)

func main() {
	// The only shutdown hook in the process: every command receives ctx and
	// in-flight browsers are released by their own deferred Close.
	ctx, cancel := signalContext(os.Stderr, duration.InterruptGrace)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// No subcommand: serve MCP over stdio, which is how IDEs launch us.
	if len(args) == 0 {
		return runMCP(ctx, nil, stderr)
	}

	switch args[0] {
	case "mcp", "serve":
		return runMCP(ctx, args[1:], stderr)
	case "audit":
		return runAudit(ctx, args[1:], stdout, stderr)
	case "summary", "summarize":
		return runSummary(ctx, args[1:], stdout, stderr)
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "%s %s (axe-core %s)\n", defaults.ToolName, defaults.Version, defaults.AxeVersion)
		return defaults.ExitSuccess
	case "-h", "--help", "help":
		printUsage(stdout)
		return defaults.ExitSuccess
	default:
		ui.PrintError(stderr, fmt.Sprintf("unknown command %q", args[0]))
		fmt.Fprintln(stderr)
		printUsage(stderr)
		return defaults.ExitUserError
	}
}

func printUsage(w io.Writer) {
	ui.PrintBanner(w)

	fmt.Fprintln(w, ui.SectionStyle.Render("COMMANDS"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render("mcp     "), "Run the MCP server (stdio by default, --http for remote clients)")
	fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render("audit   "), "Audit one page and print every violation")
	fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render("summary "), "Audit one page and print severity counts and top issues")
	fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render("version "), "Print version information")
	fmt.Fprintln(w)

	fmt.Fprintln(w, ui.SectionStyle.Render("EXAMPLES"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", ui.ValueStyle.Render(defaults.ToolName+" mcp --http :8080"))
	fmt.Fprintf(w, "  %s\n", ui.ValueStyle.Render(defaults.ToolName+" audit https://example.com --tags wcag2a,wcag2aa"))
	fmt.Fprintf(w, "  %s\n", ui.ValueStyle.Render(defaults.ToolName+" audit https://example.com --format pdf -o report.pdf"))
	fmt.Fprintf(w, "  %s\n", ui.ValueStyle.Render(defaults.ToolName+" summary https://example.com --format markdown"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run '%s <command> -h' for command flags.\n", defaults.ToolName)
}
