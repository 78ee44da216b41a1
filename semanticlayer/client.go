// Package semanticlayer queries the dbt Semantic Layer API: metric
// discovery and asynchronous metric queries resolved through the job
// poller.
package semanticlayer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	dbtmcp "github.com/sparkfiresmoke/dbt-mcp"
	"github.com/sparkfiresmoke/dbt-mcp/internal/gqlclient"
	"github.com/sparkfiresmoke/dbt-mcp/internal/utils"
)

// Job protocol methods understood by the queryExchanger.
const (
	methodCreateQuery = "createQuery"
	methodQueryStatus = "query"
	jobIDField        = "queryId"
)

const suggestionCount = 5

// Fetcher talks to one semantic layer environment. Metric, dimension and
// entity listings are cached for the lifetime of the Fetcher.
type Fetcher struct {
	gql           *gqlclient.Client
	poller        *dbtmcp.JobPoller
	environmentID int64
	logger        dbtmcp.Logger

	mu              sync.Mutex
	metricsCache    []Metric
	metricsCached   bool
	dimensionsCache map[string][]Dimension
	entitiesCache   map[string][]Entity
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherSettings)

type fetcherSettings struct {
	httpClient   *http.Client
	logger       dbtmcp.Logger
	pollInterval time.Duration
	maxAttempts  int
	recorder     dbtmcp.MetricsRecorder
}

// WithHTTPClient sets the HTTP client for GraphQL calls.
func WithHTTPClient(httpClient *http.Client) FetcherOption {
	return func(s *fetcherSettings) { s.httpClient = httpClient }
}

// WithLogger sets the logger.
func WithLogger(logger dbtmcp.Logger) FetcherOption {
	return func(s *fetcherSettings) { s.logger = logger }
}

// WithPollInterval sets the fixed interval between query status polls.
func WithPollInterval(interval time.Duration) FetcherOption {
	return func(s *fetcherSettings) { s.pollInterval = interval }
}

// WithPollMaxAttempts sets the query poll attempt budget.
func WithPollMaxAttempts(attempts int) FetcherOption {
	return func(s *fetcherSettings) { s.maxAttempts = attempts }
}

// WithMetricsRecorder sets the metrics recorder for the poller.
func WithMetricsRecorder(recorder dbtmcp.MetricsRecorder) FetcherOption {
	return func(s *fetcherSettings) { s.recorder = recorder }
}

// NewFetcher creates a Fetcher for the semantic layer API at host (the base
// URL without the /api/graphql path).
func NewFetcher(host, token string, environmentID int64, options ...FetcherOption) *Fetcher {
	settings := &fetcherSettings{
		logger:       dbtmcp.GetDefaultLogger(),
		pollInterval: dbtmcp.DefaultPollInterval,
		maxAttempts:  dbtmcp.DefaultPollMaxAttempts,
	}
	for _, option := range options {
		option(settings)
	}

	gqlOptions := []gqlclient.Option{gqlclient.WithLogger(settings.logger)}
	if settings.httpClient != nil {
		gqlOptions = append(gqlOptions, gqlclient.WithHTTPClient(settings.httpClient))
	}
	gql := gqlclient.New(host+"/api/graphql", token, gqlOptions...)

	pollerOptions := []dbtmcp.JobPollerOption{
		dbtmcp.WithStatusRequest(methodQueryStatus, jobIDField),
		dbtmcp.WithPollInterval(settings.pollInterval),
		dbtmcp.WithPollMaxAttempts(settings.maxAttempts),
		dbtmcp.WithPollerLogger(settings.logger),
	}
	if settings.recorder != nil {
		pollerOptions = append(pollerOptions, dbtmcp.WithPollerMetricsRecorder(settings.recorder))
	}

	exchanger := &queryExchanger{gql: gql, environmentID: environmentID}
	return &Fetcher{
		gql:             gql,
		poller:          dbtmcp.NewJobPoller(exchanger, pollerOptions...),
		environmentID:   environmentID,
		logger:          settings.logger,
		dimensionsCache: make(map[string][]Dimension),
		entitiesCache:   make(map[string][]Entity),
	}
}

// ListMetrics lists every metric defined in the environment.
func (f *Fetcher) ListMetrics(ctx context.Context) ([]Metric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metricsCached {
		return f.metricsCache, nil
	}

	data, err := f.gql.Execute(ctx, metricsQuery, map[string]interface{}{
		"environmentId": f.environmentID,
	})
	if err != nil {
		return nil, err
	}

	var metrics []Metric
	for _, item := range utils.ExtractArray(data, "metrics") {
		node, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		metrics = append(metrics, Metric{
			Name:        utils.ExtractString(node, "name"),
			Type:        utils.ExtractString(node, "type"),
			Label:       utils.ExtractString(node, "label"),
			Description: utils.ExtractString(node, "description"),
		})
	}
	f.metricsCache = metrics
	f.metricsCached = true
	return metrics, nil
}

// GetDimensions lists the dimensions queryable for the given metrics.
func (f *Fetcher) GetDimensions(ctx context.Context, metrics []string) ([]Dimension, error) {
	key := cacheKey(metrics)
	f.mu.Lock()
	if cached, ok := f.dimensionsCache[key]; ok {
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	data, err := f.gql.Execute(ctx, dimensionsQuery, map[string]interface{}{
		"environmentId": f.environmentID,
		"metrics":       metricInputs(metrics),
	})
	if err != nil {
		return nil, err
	}

	var dimensions []Dimension
	for _, item := range utils.ExtractArray(data, "dimensions") {
		node, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		granularities := append(
			utils.ExtractStringSlice(node, "queryableGranularities"),
			utils.ExtractStringSlice(node, "queryableTimeGranularities")...,
		)
		dimensions = append(dimensions, Dimension{
			Name:          utils.ExtractString(node, "name"),
			Type:          utils.ExtractString(node, "type"),
			Label:         utils.ExtractString(node, "label"),
			Description:   utils.ExtractString(node, "description"),
			Granularities: granularities,
		})
	}

	f.mu.Lock()
	f.dimensionsCache[key] = dimensions
	f.mu.Unlock()
	return dimensions, nil
}

// GetEntities lists the entities associated with the given metrics.
func (f *Fetcher) GetEntities(ctx context.Context, metrics []string) ([]Entity, error) {
	key := cacheKey(metrics)
	f.mu.Lock()
	if cached, ok := f.entitiesCache[key]; ok {
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	data, err := f.gql.Execute(ctx, entitiesQuery, map[string]interface{}{
		"environmentId": f.environmentID,
		"metrics":       metricInputs(metrics),
	})
	if err != nil {
		return nil, err
	}

	var entities []Entity
	for _, item := range utils.ExtractArray(data, "entities") {
		node, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entities = append(entities, Entity{
			Name:        utils.ExtractString(node, "name"),
			Type:        utils.ExtractString(node, "type"),
			Description: utils.ExtractString(node, "description"),
		})
	}

	f.mu.Lock()
	f.entitiesCache[key] = entities
	f.mu.Unlock()
	return entities, nil
}

// QueryParams describe one metric query.
type QueryParams struct {
	Metrics   []string
	GroupBy   []string
	TimeGrain string
	Limit     int
}

// ValidateQueryParams checks metric and group-by names against the
// environment and returns a user-facing message listing unknown names with
// suggestions, or "" when all names resolve.
func (f *Fetcher) ValidateQueryParams(ctx context.Context, params QueryParams) (string, error) {
	available, err := f.ListMetrics(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(available))
	for _, m := range available {
		names = append(names, m.Name)
	}

	var problems []string
	for _, m := range findMisspellings(params.Metrics, names, suggestionCount) {
		problems = append(problems, describeMisspelling("Metric", m))
	}
	if len(problems) > 0 {
		return "Errors: " + strings.Join(problems, ", "), nil
	}

	if len(params.GroupBy) > 0 {
		dimensions, err := f.GetDimensions(ctx, params.Metrics)
		if err != nil {
			return "", err
		}
		dimensionNames := make([]string, 0, len(dimensions))
		for _, d := range dimensions {
			dimensionNames = append(dimensionNames, d.Name)
		}
		for _, m := range findMisspellings(params.GroupBy, dimensionNames, suggestionCount) {
			problems = append(problems, describeMisspelling("Dimension", m))
		}
		if len(problems) > 0 {
			return "Errors: " + strings.Join(problems, ", "), nil
		}
	}
	return "", nil
}

// QueryMetrics creates a server-side metric query and polls it to
// completion. The returned string is the raw JSON result, or a user-facing
// validation message when the requested names do not resolve.
func (f *Fetcher) QueryMetrics(ctx context.Context, params QueryParams) (string, error) {
	message, err := f.ValidateQueryParams(ctx, params)
	if err != nil {
		return "", err
	}
	if message != "" {
		return message, nil
	}

	mutation := buildCreateQueryMutation(
		f.environmentID, params.Metrics, params.GroupBy, params.TimeGrain, params.Limit)

	result, err := f.poller.Run(ctx, dbtmcp.JobSpec{
		Method:  methodCreateQuery,
		Params:  map[string]interface{}{"query": mutation},
		IDField: jobIDField,
	})
	if err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "No results returned.", nil
	}
	return string(result), nil
}

func describeMisspelling(kind string, m Misspelling) string {
	if len(m.SimilarWords) == 0 {
		return fmt.Sprintf("%s %s not found.", kind, m.Word)
	}
	return fmt.Sprintf("%s %s not found. Did you mean: %s?",
		kind, m.Word, strings.Join(m.SimilarWords, ", "))
}

func cacheKey(metrics []string) string {
	sorted := append([]string(nil), metrics...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func metricInputs(metrics []string) []map[string]string {
	inputs := make([]map[string]string, 0, len(metrics))
	for _, m := range metrics {
		inputs = append(inputs, map[string]string{"name": m})
	}
	return inputs
}

// queryExchanger adapts the semantic layer GraphQL API to the job poller's
// request/response shape: createQuery submissions and status polls by query
// id.
type queryExchanger struct {
	gql           *gqlclient.Client
	environmentID int64
}

var _ dbtmcp.Exchanger = (*queryExchanger)(nil)

func (e *queryExchanger) Call(ctx context.Context, req *dbtmcp.JSONRPCRequest) (*dbtmcp.JSONRPCResponse, error) {
	params, _ := req.Params.(map[string]interface{})

	switch req.Method {
	case methodCreateQuery:
		doc := utils.ExtractString(params, "query")
		data, err := e.gql.Execute(ctx, doc, nil)
		if err != nil {
			return nil, err
		}
		return wrapResult(req.ID, utils.ExtractMap(data, "createQuery"))
	case methodQueryStatus:
		data, err := e.gql.Execute(ctx, queryStatusQuery, map[string]interface{}{
			"environmentId": e.environmentID,
			jobIDField:      utils.ExtractString(params, jobIDField),
		})
		if err != nil {
			return nil, err
		}
		return wrapResult(req.ID, utils.ExtractMap(data, "query"))
	default:
		return nil, fmt.Errorf("unsupported method: %s", req.Method)
	}
}

func wrapResult(id dbtmcp.RequestID, result map[string]interface{}) (*dbtmcp.JSONRPCResponse, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, &dbtmcp.DecodeError{Err: err}
	}
	return &dbtmcp.JSONRPCResponse{
		JSONRPC: dbtmcp.JSONRPCVersion,
		ID:      id,
		Result:  raw,
	}, nil
}
