package dbtmcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sparkfiresmoke/dbt-mcp/internal/errors"
)

// Constants definition
const (
	// JSONRPCVersion specifies the JSON-RPC version
	JSONRPCVersion = "2.0"

	// Standard JSON-RPC error codes
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)

// Message represents any JSON-RPC message: a request, response, error
// response or notification.
type Message interface{}

// RequestID is the id correlating a request to its response. The wire type
// may be a string or a number; it is compared textually.
type RequestID interface{}

// JSONRPCRequest represents a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      RequestID   `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC success response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// JSONRPCError represents a JSON-RPC error response.
type JSONRPCError struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      RequestID `json:"id,omitempty"`
	Error   struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data,omitempty"`
	} `json:"error"`
}

// JSONRPCNotification represents a JSON-RPC notification.
type JSONRPCNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewJSONRPCRequest creates a new JSON-RPC request.
func NewJSONRPCRequest(id RequestID, method string, params interface{}) *JSONRPCRequest {
	return &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// NewJSONRPCNotification creates a new JSON-RPC notification.
func NewJSONRPCNotification(method string, params interface{}) *JSONRPCNotification {
	return &JSONRPCNotification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}
}

// MessageType represents the type of a JSON-RPC message.
type MessageType string

const (
	MessageTypeRequest      MessageType = "request"
	MessageTypeResponse     MessageType = "response"
	MessageTypeNotification MessageType = "notification"
	MessageTypeError        MessageType = "error"
	MessageTypeUnknown      MessageType = "unknown"
)

// sniffMessageType determines the type of a JSON-RPC message without fully
// decoding it.
func sniffMessageType(data []byte) (MessageType, error) {
	var message map[string]interface{}
	if err := json.Unmarshal(data, &message); err != nil {
		return MessageTypeUnknown, fmt.Errorf("%w: %v", errors.ErrParseMessage, err)
	}

	if version, ok := message["jsonrpc"].(string); !ok || version != JSONRPCVersion {
		return MessageTypeUnknown, fmt.Errorf("%w: invalid or missing jsonrpc version", errors.ErrInvalidMessage)
	}

	if _, hasID := message["id"]; hasID {
		if _, hasError := message["error"]; hasError {
			return MessageTypeError, nil
		}
		if _, hasResult := message["result"]; hasResult {
			return MessageTypeResponse, nil
		}
		return MessageTypeRequest, nil
	}
	if _, hasMethod := message["method"]; hasMethod {
		return MessageTypeNotification, nil
	}

	return MessageTypeUnknown, errors.ErrInvalidMessage
}

// ParseMessage parses a single JSON-RPC message of any type.
func ParseMessage(data []byte) (Message, MessageType, error) {
	msgType, err := sniffMessageType(data)
	if err != nil {
		return nil, MessageTypeUnknown, err
	}

	switch msgType {
	case MessageTypeResponse:
		var resp JSONRPCResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, msgType, fmt.Errorf("%w: %v", errors.ErrInvalidResponse, err)
		}
		return &resp, msgType, nil
	case MessageTypeError:
		var errResp JSONRPCError
		if err := json.Unmarshal(data, &errResp); err != nil {
			return nil, msgType, fmt.Errorf("%w: %v", errors.ErrInvalidResponse, err)
		}
		return &errResp, msgType, nil
	case MessageTypeNotification:
		var notification JSONRPCNotification
		if err := json.Unmarshal(data, &notification); err != nil {
			return nil, msgType, fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
		}
		return &notification, msgType, nil
	case MessageTypeRequest:
		var req JSONRPCRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, msgType, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
		}
		return &req, msgType, nil
	default:
		return nil, msgType, errors.ErrInvalidMessage
	}
}

// ParseMessages parses a payload that is either one JSON-RPC message or a
// batch (a JSON array of messages). The returned slice preserves the batch
// order.
func ParseMessages(data []byte) ([]Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.ErrParseMessage
	}

	if trimmed[0] != '[' {
		msg, _, err := ParseMessage(trimmed)
		if err != nil {
			return nil, err
		}
		return []Message{msg}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrParseMessage, err)
	}
	if len(items) == 0 {
		return nil, errors.ErrEmptyBatch
	}
	messages := make([]Message, 0, len(items))
	for _, item := range items {
		msg, _, err := ParseMessage(item)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// sameRequestID compares two request ids textually. Numeric ids arrive from
// the wire as float64 while locally generated ids are int64.
func sameRequestID(a, b RequestID) bool {
	if a == nil || b == nil {
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// formatMessage returns a short description of a JSON-RPC message for
// logging.
func formatMessage(msg Message) string {
	switch m := msg.(type) {
	case *JSONRPCResponse:
		return fmt.Sprintf("Response(ID=%v)", m.ID)
	case *JSONRPCError:
		return fmt.Sprintf("Error(ID=%v, Code=%d, Message=%s)", m.ID, m.Error.Code, m.Error.Message)
	case *JSONRPCNotification:
		return fmt.Sprintf("Notification(Method=%s)", m.Method)
	case *JSONRPCRequest:
		return fmt.Sprintf("Request(ID=%v, Method=%s)", m.ID, m.Method)
	default:
		return "Unknown message type"
	}
}
