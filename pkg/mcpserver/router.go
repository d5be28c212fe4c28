package mcpserver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/a11ytester/a11ytester/pkg/metrics"
	"github.com/a11ytester/a11ytester/pkg/tracing"
)

// toolHandler is the raw handler shape every tool registers with.
type toolHandler = func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// addTool registers tool and remembers its name for the router.
func (s *Server) addTool(tool *mcp.Tool, h toolHandler) {
	s.tools[tool.Name] = struct{}{}
	s.mcp.AddTool(tool, s.loggedTool(tool.Name, h))
}

// loggedTool wraps h with a call id, a span, a structured log line and the
// call metrics.
func (s *Server) loggedTool(name string, h toolHandler) toolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callID := uuid.NewString()
		start := time.Now()

		ctx, span := tracing.Start(ctx, name,
			attribute.String("mcp.tool", name),
			attribute.String("mcp.call_id", callID))

		log := s.log.With("tool", name, "call_id", callID)
		if target := argumentURL(req); target != "" {
			log = log.With("url", target)
			span.SetAttributes(attribute.String("a11y.url", target))
		}
		log.Debug("tool call started")

		res, err := h(ctx, req)

		outcome := callOutcome(res, err)
		elapsed := time.Since(start)
		s.config.Metrics.ObserveCall(name, outcome, elapsed)
		tracing.End(span, err)

		switch outcome {
		case metrics.OutcomeSuccess:
			log.Info("tool call finished", "elapsed", elapsed)
		case metrics.OutcomeInvalidInput:
			log.Warn("tool call rejected", "error", err, "elapsed", elapsed)
		default:
			log.Warn("tool call failed", "error", resultError(res, err), "elapsed", elapsed)
		}
		return res, err
	}
}

// argumentURL extracts the url argument for logging. Decoding errors are
// left for the handler to report.
func argumentURL(req *mcp.CallToolRequest) string {
	var probe struct {
		URL string `json:"url"`
	}
	if parseArgs(req, &probe) != nil {
		return ""
	}
	return probe.URL
}

func callOutcome(res *mcp.CallToolResult, err error) string {
	var rpcErr *jsonrpc.Error
	switch {
	case errors.As(err, &rpcErr) && rpcErr.Code == codeInvalidParams:
		return metrics.OutcomeInvalidInput
	case err != nil, res != nil && res.IsError:
		return metrics.OutcomeToolError
	default:
		return metrics.OutcomeSuccess
	}
}

// resultError returns the text of an error result for logging.
func resultError(res *mcp.CallToolResult, err error) any {
	if err != nil {
		return err
	}
	if res != nil && len(res.Content) > 0 {
		if tc, ok := res.Content[0].(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return nil
}

// unknownToolMiddleware answers tools/call for an unregistered name with
// method-not-found before the SDK's own lookup turns it into invalid params.
func (s *Server) unknownToolMiddleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		if method != "tools/call" {
			return next(ctx, method, req)
		}
		call, ok := req.(*mcp.CallToolRequest)
		if !ok || call.Params == nil {
			return next(ctx, method, req)
		}
		if _, known := s.tools[call.Params.Name]; !known {
			s.log.Warn("unknown tool requested", "tool", call.Params.Name)
			s.config.Metrics.ObserveCall("unknown", metrics.OutcomeUnknownTool, 0)
			return nil, methodNotFound(call.Params.Name)
		}
		return next(ctx, method, req)
	}
}
