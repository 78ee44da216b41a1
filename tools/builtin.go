package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sparkfiresmoke/dbt-mcp/dbtcli"
	"github.com/sparkfiresmoke/dbt-mcp/discovery"
	"github.com/sparkfiresmoke/dbt-mcp/semanticlayer"
)

// RegisterSemanticLayerTools adds the metric discovery and query tools.
func RegisterSemanticLayerTools(registry *Registry, fetcher *semanticlayer.Fetcher) error {
	catalog := []*Tool{
		NewTool("list_metrics",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				metrics, err := fetcher.ListMetrics(ctx)
				if err != nil {
					return "", err
				}
				return encodeJSON(metrics)
			},
			WithDescription("List all metrics from the dbt Semantic Layer"),
		),
		NewTool("get_dimensions",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				dimensions, err := fetcher.GetDimensions(ctx, stringSliceArg(args, "metrics"))
				if err != nil {
					return "", err
				}
				return encodeJSON(dimensions)
			},
			WithDescription("Get available dimensions for specified metrics"),
			WithStringArray("metrics", Description("List of metric names"), Required()),
		),
		NewTool("get_entities",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				entities, err := fetcher.GetEntities(ctx, stringSliceArg(args, "metrics"))
				if err != nil {
					return "", err
				}
				return encodeJSON(entities)
			},
			WithDescription("Get entities for specified metrics"),
			WithStringArray("metrics", Description("List of metric names"), Required()),
		),
		NewTool("query_metrics",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				return fetcher.QueryMetrics(ctx, semanticlayer.QueryParams{
					Metrics:   stringSliceArg(args, "metrics"),
					GroupBy:   stringSliceArg(args, "group_by"),
					TimeGrain: stringArg(args, "time_grain"),
					Limit:     intArg(args, "limit"),
				})
			},
			WithDescription("Query metrics with optional grouping and filtering"),
			WithStringArray("metrics", Description("List of metric names"), Required()),
			WithStringArray("group_by", Description("Optional list of dimensions to group by")),
			WithString("time_grain", Description("Optional time grain (DAY, WEEK, MONTH, QUARTER, YEAR)")),
			WithInteger("limit", Description("Optional limit for number of results")),
		),
	}
	return registerAll(registry, catalog)
}

// RegisterDiscoveryTools adds the model metadata and lineage tools.
func RegisterDiscoveryTools(registry *Registry, fetcher *discovery.Fetcher) error {
	catalog := []*Tool{
		NewTool("get_all_models",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				models, err := fetcher.GetModels(ctx, nil)
				if err != nil {
					return "", err
				}
				return encodeJSON(models)
			},
			WithDescription("Get all models in the environment, sorted by query usage"),
		),
		NewTool("get_mart_models",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				models, err := fetcher.GetModels(ctx, map[string]interface{}{"modelingLayer": "marts"})
				if err != nil {
					return "", err
				}
				return encodeJSON(models)
			},
			WithDescription("Get all mart models in the environment"),
		),
		NewTool("get_model_details",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				model, err := fetcher.GetModelDetails(ctx,
					stringArg(args, "model_name"), stringArg(args, "unique_id"))
				if err != nil {
					return "", err
				}
				return encodeJSON(model)
			},
			WithDescription("Get compiled code, description and columns for one model"),
			WithString("model_name", Description("Model name")),
			WithString("unique_id", Description("Model unique id, preferred over model_name when known")),
		),
		NewTool("get_model_parents",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				parents, err := fetcher.GetModelParents(ctx,
					stringArg(args, "model_name"), stringArg(args, "unique_id"))
				if err != nil {
					return "", err
				}
				return encodeJSON(parents)
			},
			WithDescription("Get the direct upstream nodes of one model"),
			WithString("model_name", Description("Model name")),
			WithString("unique_id", Description("Model unique id, preferred over model_name when known")),
		),
		NewTool("get_model_children",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				children, err := fetcher.GetModelChildren(ctx,
					stringArg(args, "model_name"), stringArg(args, "unique_id"))
				if err != nil {
					return "", err
				}
				return encodeJSON(children)
			},
			WithDescription("Get the direct downstream nodes of one model"),
			WithString("model_name", Description("Model name")),
			WithString("unique_id", Description("Model unique id, preferred over model_name when known")),
		),
	}
	return registerAll(registry, catalog)
}

// RegisterCLITools adds the local dbt command tools.
func RegisterCLITools(registry *Registry, runner *dbtcli.Runner) error {
	simple := func(name, description string, run func(context.Context) (string, error)) *Tool {
		return NewTool(name,
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				return run(ctx)
			},
			WithDescription(description),
		)
	}
	selectable := func(name, description string, run func(context.Context, string) (string, error)) *Tool {
		return NewTool(name,
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				return run(ctx, stringArg(args, "selector"))
			},
			WithDescription(description),
			WithString("selector", Description("Optional dbt node selector")),
		)
	}
	catalog := []*Tool{
		selectable("build", "Run dbt build: models, tests, snapshots and seeds", runner.Build),
		simple("compile", "Run dbt compile", runner.Compile),
		simple("debug", "Check the dbt project and warehouse connection", runner.Debug),
		simple("docs", "Run dbt docs generate", runner.Docs),
		selectable("list", "List resources in the dbt project", runner.List),
		simple("parse", "Parse and validate the dbt project", runner.Parse),
		selectable("run", "Run dbt models", runner.Run),
		selectable("test", "Run dbt tests", runner.Test),
		NewTool("show",
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				return runner.Show(ctx, stringArg(args, "sql_query"), intArg(args, "limit"))
			},
			WithDescription("Run an inline SQL query against the warehouse"),
			WithString("sql_query", Description("SQL to execute"), Required()),
			WithInteger("limit", Description("Optional row limit")),
		),
	}
	return registerAll(registry, catalog)
}

func registerAll(registry *Registry, catalog []*Tool) error {
	for _, tool := range catalog {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("failed to register %s: %w", tool.Name, err)
		}
	}
	return nil
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize tool result: %w", err)
	}
	return string(data), nil
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
