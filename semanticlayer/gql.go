package semanticlayer

import (
	"fmt"
	"strings"
)

// GraphQL documents for the semantic layer API.
const (
	metricsQuery = `
query GetMetrics($environmentId: BigInt!) {
  metrics(environmentId: $environmentId) {
    name
    type
    label
    description
  }
}`

	dimensionsQuery = `
query GetDimensions($environmentId: BigInt!, $metrics: [MetricInput!]!) {
  dimensions(environmentId: $environmentId, metrics: $metrics) {
    name
    type
    label
    description
    queryableGranularities
    queryableTimeGranularities
  }
}`

	entitiesQuery = `
query GetEntities($environmentId: BigInt!, $metrics: [MetricInput!]!) {
  entities(environmentId: $environmentId, metrics: $metrics) {
    name
    type
    description
  }
}`

	queryStatusQuery = `
query GetQueryResult($environmentId: BigInt!, $queryId: String!) {
  query(environmentId: $environmentId, queryId: $queryId) {
    status
    error
    jsonResult(encoded: false)
  }
}`
)

// buildCreateQueryMutation assembles the createQuery mutation. The metric
// and group-by lists are inlined because the createQuery input types do not
// accept them as plain variables across all API versions.
func buildCreateQueryMutation(environmentID int64, metrics []string, groupBy []string, timeGrain string, limit int) string {
	metricItems := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		metricItems = append(metricItems, fmt.Sprintf("{name: %q}", metric))
	}

	var groupBySection string
	if len(groupBy) > 0 {
		groups := make([]string, 0, len(groupBy))
		for _, dim := range groupBy {
			if dim == "metric_time" && timeGrain != "" {
				groups = append(groups, fmt.Sprintf("{name: %q, grain: %s}", dim, timeGrain))
			} else {
				groups = append(groups, fmt.Sprintf("{name: %q}", dim))
			}
		}
		groupBySection = fmt.Sprintf("groupBy: [%s]", strings.Join(groups, ", "))
	}

	var limitSection string
	if limit > 0 {
		limitSection = fmt.Sprintf("limit: %d", limit)
	}

	return fmt.Sprintf(`
mutation {
  createQuery(
    environmentId: "%d"
    metrics: [%s]
    %s
    %s
  ) {
    queryId
  }
}`, environmentID, strings.Join(metricItems, ", "), groupBySection, limitSection)
}
