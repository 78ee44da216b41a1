package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfiresmoke/dbt-mcp/internal/httputil"
	"github.com/sparkfiresmoke/dbt-mcp/internal/sseutil"
	"github.com/sparkfiresmoke/dbt-mcp/log"
)

const listToolsResult = `{
	"tools": [
		{
			"name": "remote_echo",
			"description": "echoes text",
			"inputSchema": {
				"type": "object",
				"properties": {"text": {"type": "string"}},
				"required": ["text"]
			}
		},
		{
			"name": "remote_fail",
			"description": "always errors",
			"inputSchema": {"type": "object"}
		}
	]
}`

func remoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     interface{}            `json:"id"`
			Method string                 `json:"method"`
			Params map[string]interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bearer remote-token", r.Header.Get(httputil.AuthorizationHeader))

		id, _ := json.Marshal(req.ID)
		switch req.Method {
		case "tools/list":
			w.Header().Set(httputil.ContentTypeHeader, httputil.ContentTypeJSON)
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, id, listToolsResult)
		case "tools/call":
			name, _ := req.Params["name"].(string)
			arguments, _ := req.Params["arguments"].(map[string]interface{})
			var result string
			if name == "remote_fail" {
				result = `{"isError":true,"content":[{"type":"text","text":"remote boom"}]}`
			} else {
				text, _ := arguments["text"].(string)
				result = fmt.Sprintf(`{"content":[{"type":"text","text":%q}]}`, "echo: "+text)
			}
			// Answer over SSE to cover the streaming response path.
			sseutil.SetStandardHeaders(w)
			writer := sseutil.NewWriter()
			require.NoError(t, writer.WriteEvent(w, sseutil.Event{
				Data: fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"result":%s}`, id, result),
			}))
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func connectTestToolset(t *testing.T) *Toolset {
	t.Helper()
	server := remoteServer(t)
	toolset, err := Connect(context.Background(), server.URL, "remote-token", nil,
		WithLogger(log.NewNullLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { toolset.Close() })
	return toolset
}

func TestConnectRegistersRemoteCatalog(t *testing.T) {
	toolset := connectTestToolset(t)

	listed := toolset.Registry().List()
	require.Len(t, listed, 2)
	assert.Equal(t, "remote_echo", listed[0].Name)
	assert.Equal(t, "echoes text", listed[0].Description)
	require.NotNil(t, listed[0].InputSchema)
	assert.Equal(t, []string{"text"}, listed[0].InputSchema.Required)
}

func TestRemoteToolCallForwardsArguments(t *testing.T) {
	toolset := connectTestToolset(t)

	result, err := toolset.Registry().Call(context.Background(), "remote_echo",
		map[string]interface{}{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", result)
}

func TestRemoteToolCallValidatesRequiredArguments(t *testing.T) {
	toolset := connectTestToolset(t)

	_, err := toolset.Registry().Call(context.Background(), "remote_echo", nil)
	assert.Error(t, err)
}

func TestRemoteToolErrorIsReportedAsText(t *testing.T) {
	toolset := connectTestToolset(t)

	result, err := toolset.Registry().Call(context.Background(), "remote_fail", nil)
	require.NoError(t, err)
	assert.Contains(t, result, "Tool call failed")
	assert.Contains(t, result, "remote boom")
}

func TestConnectFailsWhenListToolsFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := Connect(context.Background(), server.URL, "remote-token", nil,
		WithLogger(log.NewNullLogger()))
	assert.Error(t, err)
}

func TestParseCallResultJoinsTextItems(t *testing.T) {
	text, err := parseCallResult(json.RawMessage(`{"content":[
		{"type":"text","text":"first"},
		{"type":"image","data":"ignored"},
		{"type":"text","text":"second"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", text)
}

func TestParseCallResultErrorWithoutContent(t *testing.T) {
	text, err := parseCallResult(json.RawMessage(`{"isError":true,"content":[]}`))
	require.NoError(t, err)
	assert.Contains(t, text, "error")
}
