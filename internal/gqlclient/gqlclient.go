// Package gqlclient is a minimal GraphQL-over-HTTP client for the dbt
// platform APIs (semantic layer and discovery).
package gqlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	dbtmcp "github.com/sparkfiresmoke/dbt-mcp"
	"github.com/sparkfiresmoke/dbt-mcp/internal/httputil"
)

// Client executes GraphQL documents against one endpoint with bearer
// authorization.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     dbtmcp.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger dbtmcp.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the given GraphQL endpoint.
func New(url, token string, options ...Option) *Client {
	c := &Client{
		url:        url,
		token:      token,
		httpClient: &http.Client{},
		logger:     dbtmcp.GetDefaultLogger(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// URL returns the endpoint the client talks to.
func (c *Client) URL() string { return c.url }

type request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type response struct {
	Data   map[string]interface{} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GraphQLError reports errors returned inside a well-formed GraphQL
// response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "GraphQL error: " + strings.Join(e.Messages, "; ")
}

// Execute posts one GraphQL document and returns the data object. HTTP
// failures are reported as *dbtmcp.TransportError; errors carried in the
// response body are reported as *GraphQLError.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set(httputil.ContentTypeHeader, httputil.ContentTypeJSON)
	req.Header.Set(httputil.AuthorizationHeader, "Bearer "+c.token)
	req.Header.Set(httputil.PartnerSourceHeader, httputil.PartnerSource)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &dbtmcp.TransportError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &dbtmcp.TransportError{URL: c.url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &dbtmcp.TransportError{URL: c.url, Err: err}
	}

	var decoded response
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &dbtmcp.DecodeError{Err: err}
	}
	if len(decoded.Errors) > 0 {
		messages := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			messages = append(messages, e.Message)
		}
		c.logger.Warnf("GraphQL query failed: %s", strings.Join(messages, "; "))
		return nil, &GraphQLError{Messages: messages}
	}
	return decoded.Data, nil
}
