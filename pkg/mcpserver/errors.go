package mcpserver

import (
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/a11ytester/a11ytester/pkg/audit"
)

// JSON-RPC 2.0 error codes for protocol faults.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// invalidParams builds the fault for a request that is missing or cannot
// decode its arguments.
func invalidParams(err error) *jsonrpc.Error {
	msg := err.Error()
	if !errors.Is(err, audit.ErrInvalidParams) {
		msg = audit.ErrInvalidParams.Error() + ": " + msg
	}
	return &jsonrpc.Error{Code: codeInvalidParams, Message: msg}
}

// methodNotFound builds the fault for an unregistered tool name.
func methodNotFound(tool string) *jsonrpc.Error {
	return &jsonrpc.Error{
		Code:    codeMethodNotFound,
		Message: fmt.Sprintf("method not found: unknown tool %q", tool),
	}
}
