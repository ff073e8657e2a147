// Package mcpserver exposes the compiler's diagnostic operations as MCP
// tools over stdio JSON-RPC, so editors and AI clients can fold
// expressions, match routes, validate payloads, and detect event-chain
// cycles without shelling out to the aro binary.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/arolang/aro/internal/aroerr"
)

// Custom MCP error codes for the aro devtools server.
const (
	// ErrCodeNoProgram indicates no analyzed program is loaded.
	ErrCodeNoProgram = -32001

	// ErrCodeNoDocument indicates no OpenAPI document is loaded.
	ErrCodeNoDocument = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrNoDocument indicates a routing or schema tool was called with no
	// OpenAPI document loaded.
	ErrNoDocument = errors.New("no openapi document loaded")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params error with a message.
func NewInvalidParamsError(message string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: message}
}

// NewMethodNotFoundError creates a method-not-found error for a tool name.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool not found: %s", name)}
}

// MapError converts internal errors to MCP errors. Structured aro errors
// keep their kind in the message so a client can still dispatch on it.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var aroErr *aroerr.Error
	if errors.As(err, &aroErr) {
		return &MCPError{Code: ErrCodeInternalError, Message: aroErr.Error()}
	}

	switch {
	case errors.Is(err, ErrNoDocument):
		return &MCPError{
			Code:    ErrCodeNoDocument,
			Message: "No OpenAPI document loaded. Start the server with --openapi.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
	}
}
