// Package config loads and validates the dbt platform settings from the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings shared by every toolset.
type Config struct {
	Host                   string
	ProdEnvironmentID      int64
	DevEnvironmentID       int64
	UserID                 int64
	Token                  string
	ProjectDir             string
	DbtPath                string
	DbtCLIEnabled          bool
	SemanticLayerEnabled   bool
	DiscoveryEnabled       bool
	RemoteEnabled          bool
	MulticellAccountPrefix string
	RemoteMCPBaseURL       string
}

// envKeys lists every environment variable the loader reads.
var envKeys = []string{
	"DBT_HOST",
	"DBT_PROD_ENV_ID",
	"DBT_ENV_ID",
	"DBT_DEV_ENV_ID",
	"DBT_USER_ID",
	"DBT_TOKEN",
	"DBT_PROJECT_DIR",
	"DBT_PATH",
	"DISABLE_DBT_CLI",
	"DISABLE_SEMANTIC_LAYER",
	"DISABLE_DISCOVERY",
	"DISABLE_REMOTE",
	"MULTICELL_ACCOUNT_PREFIX",
	"DBT_REMOTE_MCP_BASE_URL",
}

// Load reads the configuration from the environment and validates the
// combination of enabled toolsets. All validation failures are reported
// together.
func Load() (*Config, error) {
	v := viper.New()
	for _, key := range envKeys {
		// viper's AutomaticEnv does not surface unset keys through IsSet, so
		// each key is bound explicitly.
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	v.SetDefault("DBT_PATH", "dbt")
	v.SetDefault("DISABLE_REMOTE", true)

	cfg := &Config{
		Host:                   v.GetString("DBT_HOST"),
		ProdEnvironmentID:      v.GetInt64("DBT_PROD_ENV_ID"),
		DevEnvironmentID:       v.GetInt64("DBT_DEV_ENV_ID"),
		UserID:                 v.GetInt64("DBT_USER_ID"),
		Token:                  v.GetString("DBT_TOKEN"),
		ProjectDir:             v.GetString("DBT_PROJECT_DIR"),
		DbtPath:                v.GetString("DBT_PATH"),
		DbtCLIEnabled:          !v.GetBool("DISABLE_DBT_CLI"),
		SemanticLayerEnabled:   !v.GetBool("DISABLE_SEMANTIC_LAYER"),
		DiscoveryEnabled:       !v.GetBool("DISABLE_DISCOVERY"),
		RemoteEnabled:          !v.GetBool("DISABLE_REMOTE"),
		MulticellAccountPrefix: v.GetString("MULTICELL_ACCOUNT_PREFIX"),
		RemoteMCPBaseURL:       v.GetString("DBT_REMOTE_MCP_BASE_URL"),
	}

	// DBT_ENV_ID is the legacy name for DBT_PROD_ENV_ID.
	if cfg.ProdEnvironmentID == 0 {
		cfg.ProdEnvironmentID = v.GetInt64("DBT_ENV_ID")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string
	if c.SemanticLayerEnabled || c.DiscoveryEnabled {
		if c.Host == "" {
			problems = append(problems,
				"DBT_HOST is required when the semantic layer or discovery is enabled")
		}
		if c.ProdEnvironmentID == 0 {
			problems = append(problems,
				"DBT_PROD_ENV_ID is required when the semantic layer or discovery is enabled")
		}
		if c.Token == "" {
			problems = append(problems,
				"DBT_TOKEN is required when the semantic layer or discovery is enabled")
		}
		if strings.HasPrefix(c.Host, "metadata") || strings.HasPrefix(c.Host, "semantic-layer") {
			problems = append(problems,
				"DBT_HOST must not start with 'metadata' or 'semantic-layer'")
		}
	}
	if c.RemoteEnabled {
		if c.DevEnvironmentID == 0 {
			problems = append(problems,
				"DBT_DEV_ENV_ID is required when remote tools are enabled")
		}
		if c.UserID == 0 {
			problems = append(problems,
				"DBT_USER_ID is required when remote tools are enabled")
		}
		if c.RemoteMCPBaseURL == "" {
			problems = append(problems,
				"DBT_REMOTE_MCP_BASE_URL is required when remote tools are enabled")
		}
	}
	if c.DbtCLIEnabled {
		if c.ProjectDir == "" {
			problems = append(problems,
				"DBT_PROJECT_DIR is required when the dbt CLI is enabled")
		}
		if c.DbtPath == "" {
			problems = append(problems,
				"DBT_PATH is required when the dbt CLI is enabled")
		}
	}
	if len(problems) > 0 {
		return errors.New("errors found in configuration:\n\n" + strings.Join(problems, "\n"))
	}
	return nil
}

// SemanticLayerHost derives the semantic layer API base URL from the
// configured host: plain http for localhost, and the multicell prefix when
// one is configured.
func (c *Config) SemanticLayerHost() string {
	if strings.HasPrefix(c.Host, "localhost") {
		return "http://" + c.Host
	}
	if c.MulticellAccountPrefix != "" {
		return fmt.Sprintf("https://%s.semantic-layer.%s", c.MulticellAccountPrefix, c.Host)
	}
	return "https://semantic-layer." + c.Host
}

// MetadataHost derives the discovery (metadata) API base URL from the
// configured host.
func (c *Config) MetadataHost() string {
	if strings.HasPrefix(c.Host, "localhost") {
		return "http://" + c.Host
	}
	if c.MulticellAccountPrefix != "" {
		return fmt.Sprintf("https://%s.metadata.%s", c.MulticellAccountPrefix, c.Host)
	}
	return "https://metadata." + c.Host
}
