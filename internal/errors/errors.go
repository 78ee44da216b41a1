// Package errors defines common error values shared across the module.
package errors

import "errors"

// JSON-RPC message errors
var (
	ErrParseMessage     = errors.New("failed to parse JSON-RPC message")
	ErrInvalidMessage   = errors.New("invalid JSON-RPC message format")
	ErrInvalidResponse  = errors.New("invalid JSON-RPC response")
	ErrInvalidRequest   = errors.New("invalid JSON-RPC request")
	ErrEmptyBatch       = errors.New("empty JSON-RPC batch")
	ErrInvalidServerURL = errors.New("invalid server URL")
)

// Transport errors
var (
	ErrRequestSerialization = errors.New("failed to serialize request")
	ErrHTTPRequestCreation  = errors.New("failed to create HTTP request")
	ErrUnknownContentType   = errors.New("unknown response content type")
)

// Job polling errors
var (
	ErrMissingJobID     = errors.New("submission response missing job identifier")
	ErrMissingJobStatus = errors.New("poll response missing job status")
)

// Tool registry errors
var (
	ErrEmptyToolName         = errors.New("tool name cannot be empty")
	ErrToolNotFound          = errors.New("tool not found")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrInvalidToolParams     = errors.New("invalid tool parameters")
	ErrInvalidToolListFormat = errors.New("invalid tool list response format")
)
