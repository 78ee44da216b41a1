// Package remote proxies tools hosted on a remote MCP server. The catalog
// is fetched over the streamable transport and each remote tool is exposed
// as a locally callable Tool that forwards its arguments over the wire.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	dbtmcp "github.com/sparkfiresmoke/dbt-mcp"
	"github.com/sparkfiresmoke/dbt-mcp/internal/errors"
	"github.com/sparkfiresmoke/dbt-mcp/internal/httputil"
	"github.com/sparkfiresmoke/dbt-mcp/internal/utils"
	"github.com/sparkfiresmoke/dbt-mcp/tools"
)

const (
	methodListTools = "tools/list"
	methodCallTool  = "tools/call"
)

// Toolset holds a transport session to a remote MCP server together with
// the tools discovered on it.
type Toolset struct {
	transport *dbtmcp.StreamableTransport
	registry  *tools.Registry
	logger    dbtmcp.Logger
}

type toolsetSettings struct {
	logger           dbtmcp.Logger
	transportOptions []dbtmcp.TransportOption
}

// ToolsetOption configures a Toolset.
type ToolsetOption func(*toolsetSettings)

// WithLogger sets the logger used for catalog and call diagnostics.
func WithLogger(logger dbtmcp.Logger) ToolsetOption {
	return func(s *toolsetSettings) {
		s.transportOptions = append(s.transportOptions, dbtmcp.WithTransportLogger(logger))
		s.logger = logger
	}
}

// WithTransportOptions passes extra options through to the underlying transport.
func WithTransportOptions(options ...dbtmcp.TransportOption) ToolsetOption {
	return func(s *toolsetSettings) {
		s.transportOptions = append(s.transportOptions, options...)
	}
}

// Connect opens a transport session against baseURL, lists the remote tools
// and registers a forwarding handler for each of them.
func Connect(ctx context.Context, baseURL, token string, headers map[string]string, options ...ToolsetOption) (*Toolset, error) {
	settings := &toolsetSettings{logger: dbtmcp.GetDefaultLogger()}
	for _, option := range options {
		option(settings)
	}

	merged := map[string]string{
		httputil.AuthorizationHeader: "Bearer " + token,
		httputil.PartnerSourceHeader: httputil.PartnerSource,
	}
	for k, v := range headers {
		merged[k] = v
	}

	transport, err := dbtmcp.Open(baseURL, merged, settings.transportOptions...)
	if err != nil {
		return nil, err
	}

	toolset := &Toolset{
		transport: transport,
		registry:  tools.NewRegistry(),
		logger:    settings.logger,
	}
	if err := toolset.loadCatalog(ctx); err != nil {
		transport.Close()
		return nil, err
	}
	return toolset, nil
}

// Registry returns the registry of proxied remote tools.
func (ts *Toolset) Registry() *tools.Registry {
	return ts.registry
}

// Close tears down the transport session.
func (ts *Toolset) Close() error {
	return ts.transport.Close()
}

func (ts *Toolset) loadCatalog(ctx context.Context) error {
	req := dbtmcp.NewJSONRPCRequest(ts.transport.NextRequestID(), methodListTools, nil)
	resp, err := ts.transport.Call(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to list remote tools: %w", err)
	}

	var result struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidToolListFormat, err)
	}

	for _, descriptor := range result.Tools {
		tool := &tools.Tool{
			Name:        descriptor.Name,
			Description: descriptor.Description,
			Handler:     ts.callHandler(descriptor.Name),
		}
		if len(descriptor.InputSchema) > 0 {
			schema, err := tools.ParseSchema(descriptor.InputSchema)
			if err != nil {
				ts.logger.Warnf("skipping remote tool %s: bad input schema: %v", descriptor.Name, err)
				continue
			}
			tool.InputSchema = schema
		}
		if err := ts.registry.Register(tool); err != nil {
			return err
		}
		ts.logger.Debugf("registered remote tool %s", descriptor.Name)
	}
	return nil
}

func (ts *Toolset) callHandler(name string) tools.Handler {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		req := dbtmcp.NewJSONRPCRequest(ts.transport.NextRequestID(), methodCallTool, map[string]interface{}{
			"name":      name,
			"arguments": args,
		})
		resp, err := ts.transport.Call(ctx, req)
		if err != nil {
			return "", err
		}
		return parseCallResult(resp.Result)
	}
}

// parseCallResult extracts the text content from a tools/call result. A
// result flagged isError is rendered as text rather than surfaced as a Go
// error so callers can pass the server's diagnostics through to users.
func parseCallResult(raw json.RawMessage) (string, error) {
	result, err := utils.ParseJSONObject(raw)
	if err != nil {
		return "", &dbtmcp.DecodeError{Err: err}
	}

	var texts []string
	for _, item := range utils.ExtractArray(result, "content") {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if utils.ExtractString(entry, "type") == "text" {
			texts = append(texts, utils.ExtractString(entry, "text"))
		}
	}
	text := strings.Join(texts, "\n")

	if isError, ok := result["isError"].(bool); ok && isError {
		if text == "" {
			text = "remote tool reported an error"
		}
		return "Tool call failed: " + text, nil
	}
	return text, nil
}
