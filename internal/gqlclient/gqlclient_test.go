package gqlclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtmcp "github.com/sparkfiresmoke/dbt-mcp"
	"github.com/sparkfiresmoke/dbt-mcp/internal/httputil"
	"github.com/sparkfiresmoke/dbt-mcp/log"
)

func TestExecuteReturnsData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get(httputil.AuthorizationHeader))
		assert.Equal(t, httputil.PartnerSource, r.Header.Get(httputil.PartnerSourceHeader))

		var body struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "query Q { field }", body.Query)
		assert.Equal(t, float64(1), body.Variables["n"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"field":"value"}}`)
	}))
	defer server.Close()

	client := New(server.URL, "tok", WithLogger(log.NewNullLogger()))
	data, err := client.Execute(context.Background(), "query Q { field }",
		map[string]interface{}{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, "value", data["field"])
}

func TestExecuteNon2xxIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "tok", WithLogger(log.NewNullLogger()))
	_, err := client.Execute(context.Background(), "query Q { field }", nil)
	var transportErr *dbtmcp.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.Status)
}

func TestExecuteBodyErrorsAreGraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"errors":[{"message":"field not found"},{"message":"bad variable"}]}`)
	}))
	defer server.Close()

	client := New(server.URL, "tok", WithLogger(log.NewNullLogger()))
	_, err := client.Execute(context.Background(), "query Q { nope }", nil)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Contains(t, gqlErr.Error(), "field not found")
	assert.Contains(t, gqlErr.Error(), "bad variable")
}

func TestExecuteMalformedBodyIsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{broken`)
	}))
	defer server.Close()

	client := New(server.URL, "tok", WithLogger(log.NewNullLogger()))
	_, err := client.Execute(context.Background(), "query Q { field }", nil)
	var decodeErr *dbtmcp.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}
