// Package mcpserver exposes the accessibility auditor as a Model Context
// Protocol (MCP) server, so AI assistants (Claude, VS Code Copilot, Cursor,
// etc.) can audit web pages through natural conversation.
//
// # Architecture
//
// The server is built on the official MCP Go SDK and exposes:
//
//   - Tools:     audit_webpage and get_summary
//   - Resources: server version and the axe-core rule tag catalog
//   - Prompts:   a guided accessibility review workflow
//
// # Errors
//
// Two kinds of failure reach the client differently:
//
//   - Protocol faults: an unknown tool name (-32601) or a missing or
//     undecodable url argument (-32602). Raised before any browser starts.
//   - Audit failures: launch errors, navigation timeouts, malformed URLs,
//     engine errors. Returned as an IsError tool result whose text starts
//     with "Error auditing webpage:" or "Error getting summary:".
//
// # Transports
//
//   - stdio:  Communicates over stdin/stdout (default). Used by IDE integrations.
//   - HTTP:   Streamable HTTP plus legacy SSE, with /health and /metrics.
//
// # Usage
//
//	srv := mcpserver.New(&mcpserver.Config{Auditor: audit.New(analyzer)})
//	err := srv.RunStdio(ctx)
package mcpserver
