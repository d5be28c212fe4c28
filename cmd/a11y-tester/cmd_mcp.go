package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/duration"
	"github.com/a11ytester/a11ytester/pkg/mcpserver"
	"github.com/a11ytester/a11ytester/pkg/metrics"
	"github.com/a11ytester/a11ytester/pkg/ratelimit"
	"github.com/a11ytester/a11ytester/pkg/tracing"
	"github.com/a11ytester/a11ytester/pkg/ui"
)

// runMCP starts the MCP (Model Context Protocol) server.
// Supports two transport modes:
//   - --stdio (default): For IDE integrations (VS Code, Claude Desktop, Cursor)
//   - --http <addr>:     For remote/Docker deployments with session management
func runMCP(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var cf CommonFlags
	cf.Register(fs)
	stdio := fs.Bool("stdio", true, "Use stdio transport (default, for IDE integration)")
	httpAddr := fs.String("http", "", "HTTP address to listen on (e.g. :8080). Disables stdio.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s mcp [flags]\n\n", defaults.ToolName)
		fmt.Fprintf(stderr, "Start an MCP server exposing audit_webpage and get_summary.\n\n")
		fmt.Fprintf(stderr, "Transports:\n")
		fmt.Fprintf(stderr, "  --stdio          Stdio transport for IDE integration (default)\n")
		fmt.Fprintf(stderr, "  --http <addr>    Streamable HTTP and SSE transports for remote clients\n\n")
		fmt.Fprintf(stderr, "Environment variables:\n")
		fmt.Fprintf(stderr, "  A11Y_HTTP_ADDR       HTTP listen address (same as --http)\n")
		fmt.Fprintf(stderr, "  A11Y_CHROME_PATH     Chrome executable\n")
		fmt.Fprintf(stderr, "  A11Y_OTLP_ENDPOINT   OTLP gRPC collector for traces\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return defaults.ExitSuccess
		}
		return defaults.ExitUserError
	}

	cfg, err := cf.Load()
	if err != nil {
		ui.PrintError(stderr, err.Error())
		return defaults.ExitUserError
	}
	if cf.NoColor {
		ui.SetNoColor(true)
	}

	// Only an explicit --http or A11Y_HTTP_ADDR selects HTTP; the config
	// default address applies once HTTP is chosen.
	addr := *httpAddr
	if addr == "" && envSet("A11Y_HTTP_ADDR") {
		addr = cfg.Server.HTTPAddr
	}

	logger, err := newLogger(stderr, cfg)
	if err != nil {
		ui.PrintError(stderr, err.Error())
		return defaults.ExitUserError
	}

	shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.OTLPInsecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}()

	var m *metrics.Metrics
	if addr != "" && cfg.Telemetry.MetricsEnabled {
		if m, err = metrics.New(); err != nil {
			logger.Warn("metrics disabled", "error", err)
			m = nil
		}
	}

	srv := mcpserver.New(&mcpserver.Config{
		Auditor: newAuditor(cfg, logger, m),
		Logger:  logger,
		Metrics: m,
		RateLimiter: ratelimit.New(ratelimit.Config{
			RequestsPerSecond: cfg.Server.RateLimit,
			Burst:             cfg.Server.RateBurst,
		}),
	})
	srv.MarkReady()

	if addr != "" {
		return serveHTTP(ctx, srv, addr, logger)
	}

	if *stdio {
		if err := srv.RunStdio(ctx); err != nil && ctx.Err() == nil {
			logger.Error("stdio transport stopped", "error", err)
			return defaults.ExitInternalError
		}
		return defaults.ExitSuccess
	}

	ui.PrintError(stderr, "no transport selected: use --stdio or --http <addr>")
	return defaults.ExitUserError
}

func serveHTTP(ctx context.Context, srv *mcpserver.Server, addr string, logger *slog.Logger) int {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.HTTPHandler(),
		ReadHeaderTimeout: duration.HTTPReadHeader,
		ReadTimeout:       duration.HTTPRead,
		// WriteTimeout intentionally 0: SSE streams are long-lived and
		// any non-zero value sets an absolute deadline that kills them.
		IdleTimeout:    duration.HTTPIdle,
		MaxHeaderBytes: defaults.MaxHeaderBytes,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), duration.HTTPShutdown)
		defer cancel()
		logger.Info("shutting down http transport")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
	}()

	logger.Info("mcp server listening", "transport", "http", "addr", addr, "version", defaults.Version)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http transport stopped", "error", err)
		return defaults.ExitInternalError
	}
	return defaults.ExitSuccess
}
