// Command dbt-mcp exposes the configured dbt toolsets from the command
// line: list the available tools or call one with JSON arguments.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sparkfiresmoke/dbt-mcp/config"
	"github.com/sparkfiresmoke/dbt-mcp/dbtcli"
	"github.com/sparkfiresmoke/dbt-mcp/discovery"
	"github.com/sparkfiresmoke/dbt-mcp/internal/httputil"
	"github.com/sparkfiresmoke/dbt-mcp/log"
	"github.com/sparkfiresmoke/dbt-mcp/remote"
	"github.com/sparkfiresmoke/dbt-mcp/semanticlayer"
	"github.com/sparkfiresmoke/dbt-mcp/tools"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dbt-mcp",
		Short:         "dbt platform tools over the MCP streamable transport",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newToolsCmd(), newCallCmd())
	return root
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			registry, cleanup, err := buildRegistry(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, tool := range registry.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tool.Name, tool.Description)
			}
			return nil
		},
	}
}

func newCallCmd() *cobra.Command {
	var rawArgs string
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a tool and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			toolArgs := map[string]interface{}{}
			if rawArgs != "" {
				if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
					return fmt.Errorf("failed to parse --args as a JSON object: %w", err)
				}
			}

			registry, cleanup, err := buildRegistry(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := registry.Call(ctx, cmdArgs[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "", "tool arguments as a JSON object")
	return cmd
}

// buildRegistry assembles the tool registry from the enabled toolsets. The
// returned cleanup releases the remote transport session when one was opened.
func buildRegistry(ctx context.Context) (*tools.Registry, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := log.GetLogger()
	registry := tools.NewRegistry()
	cleanup := func() {}

	if cfg.SemanticLayerEnabled {
		fetcher := semanticlayer.NewFetcher(cfg.SemanticLayerHost(), cfg.Token, cfg.ProdEnvironmentID)
		if err := tools.RegisterSemanticLayerTools(registry, fetcher); err != nil {
			return nil, nil, err
		}
	}
	if cfg.DiscoveryEnabled {
		fetcher := discovery.NewFetcher(cfg.MetadataHost(), cfg.Host, cfg.Token, cfg.ProdEnvironmentID)
		if err := tools.RegisterDiscoveryTools(registry, fetcher); err != nil {
			return nil, nil, err
		}
	}
	if cfg.DbtCLIEnabled {
		runner := dbtcli.NewRunner(cfg.DbtPath, cfg.ProjectDir, dbtcli.WithLogger(logger))
		if err := tools.RegisterCLITools(registry, runner); err != nil {
			return nil, nil, err
		}
	}
	if cfg.RemoteEnabled {
		headers := map[string]string{
			httputil.ProdEnvironmentIDHeader: strconv.FormatInt(cfg.ProdEnvironmentID, 10),
			httputil.DevEnvironmentIDHeader:  strconv.FormatInt(cfg.DevEnvironmentID, 10),
			httputil.UserIDHeader:            strconv.FormatInt(cfg.UserID, 10),
		}
		toolset, err := remote.Connect(ctx, cfg.RemoteMCPBaseURL, cfg.Token, headers,
			remote.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { toolset.Close() }
		for _, tool := range toolset.Registry().List() {
			if err := registry.Register(tool); err != nil {
				toolset.Close()
				return nil, nil, err
			}
		}
	}
	return registry, cleanup, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
