package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfiresmoke/dbt-mcp/log"
)

func modelsPage(cursor string, names ...string) string {
	nodes := make([]string, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, fmt.Sprintf(
			`{"node":{"name":%q,"uniqueId":"model.pkg.%s","description":""}}`, name, name))
	}
	return fmt.Sprintf(
		`{"data":{"environment":{"applied":{"models":{"pageInfo":{"endCursor":%q},"edges":[%s]}}}}}`,
		cursor, strings.Join(nodes, ","))
}

func newTestFetcher(t *testing.T, handler http.Handler) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewFetcher(server.URL, "cloud.getdbt.com", "test-token", 42,
		WithLogger(log.NewNullLogger()))
}

func TestGetModelsPaginatesUntilCursorStops(t *testing.T) {
	var calls atomic.Int64
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		switch calls.Add(1) {
		case 1:
			assert.Equal(t, "", body.Variables["after"])
			fmt.Fprint(w, modelsPage("cursor-1", "orders", "customers"))
		case 2:
			assert.Equal(t, "cursor-1", body.Variables["after"])
			fmt.Fprint(w, modelsPage("cursor-2", "payments"))
		default:
			// Repeating the cursor signals the final page.
			fmt.Fprint(w, modelsPage("cursor-2"))
		}
	}))

	models, err := fetcher.GetModels(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, models, 3)
	assert.Equal(t, "orders", models[0]["name"])
	assert.Equal(t, "payments", models[2]["name"])
	assert.Equal(t, int64(3), calls.Load())
}

func TestGetModelsPassesFilterAndSort(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		filter, ok := body.Variables["modelsFilter"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "marts", filter["modelingLayer"])
		sort, ok := body.Variables["sort"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "queryUsageCount", sort["field"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, modelsPage(""))
	}))

	_, err := fetcher.GetModels(context.Background(), map[string]interface{}{"modelingLayer": "marts"})
	require.NoError(t, err)
}

func TestGetModelDetailsPrefersUniqueID(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		filter, ok := body.Variables["modelsFilter"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, []interface{}{"model.pkg.orders"}, filter["uniqueIds"])
		assert.NotContains(t, filter, "identifier")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"environment":{"applied":{"models":{"edges":[
			{"node":{"name":"orders","uniqueId":"model.pkg.orders","compiledCode":"select 1"}}
		]}}}}}`)
	}))

	model, err := fetcher.GetModelDetails(context.Background(), "orders", "model.pkg.orders")
	require.NoError(t, err)
	assert.Equal(t, "select 1", model["compiledCode"])
}

func TestGetModelDetailsFallsBackToIdentifier(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		filter, ok := body.Variables["modelsFilter"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "orders", filter["identifier"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"environment":{"applied":{"models":{"edges":[]}}}}}`)
	}))

	model, err := fetcher.GetModelDetails(context.Background(), "orders", "")
	require.NoError(t, err)
	assert.Empty(t, model)
}

func TestGetModelParents(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"environment":{"applied":{"models":{"edges":[
			{"node":{"parents":[{"name":"stg_orders","resourceType":"model","description":""}]}}
		]}}}}}`)
	}))

	parents, err := fetcher.GetModelParents(context.Background(), "orders", "")
	require.NoError(t, err)
	require.Len(t, parents, 1)
	parent, ok := parents[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "stg_orders", parent["name"])
}

func TestExploreURL(t *testing.T) {
	fetcher := NewFetcher("http://unused", "cloud.getdbt.com", "token", 42,
		WithLogger(log.NewNullLogger()))
	url, err := fetcher.ExploreURL("model.pkg.orders")
	require.NoError(t, err)
	assert.Equal(t,
		"https://cloud.getdbt.com/explore/environments/42/models/model.pkg.orders", url)
}
