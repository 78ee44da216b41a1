// Package discovery queries the dbt platform discovery (metadata) API for
// applied models and their lineage.
package discovery

import (
	"context"
	"fmt"
	"net/http"

	"github.com/yosida95/uritemplate/v3"

	dbtmcp "github.com/sparkfiresmoke/dbt-mcp"
	"github.com/sparkfiresmoke/dbt-mcp/internal/gqlclient"
	"github.com/sparkfiresmoke/dbt-mcp/internal/utils"
)

// Page size and overall cap for model listings.
const (
	pageSize     = 100
	maxNumModels = 1000
)

// exploreURLTemplate builds a link into the dbt platform explorer for a
// model.
var exploreURLTemplate = uritemplate.MustNew(
	"https://{host}/explore/environments/{environmentId}/models/{uniqueId}")

// Model is one applied model node, loosely typed because the node shape
// varies by query.
type Model map[string]interface{}

// Fetcher talks to one discovery API environment.
type Fetcher struct {
	gql           *gqlclient.Client
	host          string
	environmentID int64
	logger        dbtmcp.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherSettings)

type fetcherSettings struct {
	httpClient *http.Client
	logger     dbtmcp.Logger
}

// WithHTTPClient sets the HTTP client for GraphQL calls.
func WithHTTPClient(httpClient *http.Client) FetcherOption {
	return func(s *fetcherSettings) { s.httpClient = httpClient }
}

// WithLogger sets the logger.
func WithLogger(logger dbtmcp.Logger) FetcherOption {
	return func(s *fetcherSettings) { s.logger = logger }
}

// NewFetcher creates a Fetcher for the discovery API at host (the base URL
// without the /graphql path). The platform host is used for explorer links.
func NewFetcher(host, platformHost, token string, environmentID int64, options ...FetcherOption) *Fetcher {
	settings := &fetcherSettings{logger: dbtmcp.GetDefaultLogger()}
	for _, option := range options {
		option(settings)
	}

	gqlOptions := []gqlclient.Option{gqlclient.WithLogger(settings.logger)}
	if settings.httpClient != nil {
		gqlOptions = append(gqlOptions, gqlclient.WithHTTPClient(settings.httpClient))
	}
	return &Fetcher{
		gql:           gqlclient.New(host+"/graphql", token, gqlOptions...),
		host:          platformHost,
		environmentID: environmentID,
		logger:        settings.logger,
	}
}

// GetModels lists applied models sorted by query usage, paginating until
// the cursor stops advancing or the overall cap is reached. An optional
// filter narrows the listing (e.g. {"access": "public"} for mart models).
func (f *Fetcher) GetModels(ctx context.Context, modelFilter map[string]interface{}) ([]Model, error) {
	if modelFilter == nil {
		modelFilter = map[string]interface{}{}
	}

	var (
		models      []Model
		afterCursor string
	)
	for len(models) < maxNumModels {
		data, err := f.gql.Execute(ctx, getModelsQuery, map[string]interface{}{
			"environmentId": f.environmentID,
			"after":         afterCursor,
			"first":         pageSize,
			"modelsFilter":  modelFilter,
			"sort": map[string]interface{}{
				"field":     "queryUsageCount",
				"direction": "desc",
			},
		})
		if err != nil {
			return nil, err
		}

		connection := modelConnection(data)
		models = append(models, parseEdges(connection)...)

		pageInfo := utils.ExtractMap(connection, "pageInfo")
		nextCursor := utils.ExtractString(pageInfo, "endCursor")
		if nextCursor == afterCursor {
			break
		}
		afterCursor = nextCursor
	}
	return models, nil
}

// GetModelDetails returns the full node for one model, located by unique id
// when given, otherwise by identifier.
func (f *Fetcher) GetModelDetails(ctx context.Context, modelName, uniqueID string) (Model, error) {
	data, err := f.gql.Execute(ctx, getModelDetailsQuery, f.singleModelVariables(modelName, uniqueID))
	if err != nil {
		return nil, err
	}
	edges := parseEdges(modelConnection(data))
	if len(edges) == 0 {
		return Model{}, nil
	}
	return edges[0], nil
}

// GetModelParents returns the direct upstream nodes of one model.
func (f *Fetcher) GetModelParents(ctx context.Context, modelName, uniqueID string) ([]interface{}, error) {
	return f.lineage(ctx, getModelParentsQuery, "parents", modelName, uniqueID)
}

// GetModelChildren returns the direct downstream nodes of one model.
func (f *Fetcher) GetModelChildren(ctx context.Context, modelName, uniqueID string) ([]interface{}, error) {
	return f.lineage(ctx, getModelChildrenQuery, "children", modelName, uniqueID)
}

func (f *Fetcher) lineage(ctx context.Context, query, field, modelName, uniqueID string) ([]interface{}, error) {
	data, err := f.gql.Execute(ctx, query, f.singleModelVariables(modelName, uniqueID))
	if err != nil {
		return nil, err
	}
	edges := parseEdges(modelConnection(data))
	if len(edges) == 0 {
		return nil, nil
	}
	return utils.ExtractArray(edges[0], field), nil
}

// ExploreURL returns the dbt platform explorer link for a model.
func (f *Fetcher) ExploreURL(uniqueID string) (string, error) {
	expanded, err := exploreURLTemplate.Expand(uritemplate.Values{
		"host":          uritemplate.String(f.host),
		"environmentId": uritemplate.String(fmt.Sprintf("%d", f.environmentID)),
		"uniqueId":      uritemplate.String(uniqueID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build explore URL: %w", err)
	}
	return expanded, nil
}

func (f *Fetcher) singleModelVariables(modelName, uniqueID string) map[string]interface{} {
	filter := map[string]interface{}{"identifier": modelName}
	if uniqueID != "" {
		filter = map[string]interface{}{"uniqueIds": []string{uniqueID}}
	}
	return map[string]interface{}{
		"environmentId": f.environmentID,
		"modelsFilter":  filter,
		"first":         1,
	}
}

// modelConnection digs the models connection out of the response envelope.
func modelConnection(data map[string]interface{}) map[string]interface{} {
	environment := utils.ExtractMap(data, "environment")
	applied := utils.ExtractMap(environment, "applied")
	return utils.ExtractMap(applied, "models")
}

// parseEdges unwraps edge nodes, skipping malformed entries.
func parseEdges(connection map[string]interface{}) []Model {
	edges := utils.ExtractArray(connection, "edges")
	models := make([]Model, 0, len(edges))
	for _, edge := range edges {
		edgeMap, ok := edge.(map[string]interface{})
		if !ok {
			continue
		}
		if node := utils.ExtractMap(edgeMap, "node"); node != nil {
			models = append(models, node)
		}
	}
	return models
}
