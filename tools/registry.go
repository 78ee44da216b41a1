// Package tools maps tool names to typed invocation descriptors so a host
// can dispatch calls without knowledge of transport internals.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	dbtmcp "github.com/sparkfiresmoke/dbt-mcp"
	interrors "github.com/sparkfiresmoke/dbt-mcp/internal/errors"
)

// Handler executes one tool call. The result is the user-facing text
// (often serialized JSON).
type Handler func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool is one invocation descriptor: a name, a human description, the
// parameter schema and the handler.
type Tool struct {
	Name        string
	Description string
	InputSchema *openapi3.Schema
	Handler     Handler
}

// Registry holds the tool catalog. Registration order is preserved for
// listings.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	order  []string
	logger dbtmcp.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger dbtmcp.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates an empty registry.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		tools:  make(map[string]*Tool),
		logger: dbtmcp.GetDefaultLogger(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Register adds a tool to the catalog.
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return interrors.ErrEmptyToolName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", interrors.ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	r.logger.Debugf("registered tool: %s", tool.Name)
	return nil
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Call validates args against the tool's input schema and runs its handler.
func (r *Registry) Call(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", interrors.ErrToolNotFound, name)
	}
	if err := validateArgs(tool.InputSchema, args); err != nil {
		return "", err
	}
	return tool.Handler(ctx, args)
}

// validateArgs checks the presence of required parameters. Value types are
// left to the handler; remote tool schemas rarely constrain them usefully.
func validateArgs(schema *openapi3.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	for _, required := range schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: missing required parameter %q",
				interrors.ErrInvalidToolParams, required)
		}
	}
	return nil
}

// ParseSchema decodes a raw JSON schema into an openapi3 schema.
func ParseSchema(raw json.RawMessage) (*openapi3.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var schema openapi3.Schema
	if err := schema.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("failed to parse tool input schema: %w", err)
	}
	return &schema, nil
}
