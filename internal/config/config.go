package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"keboola-mcp/pkg/models"
)

// Config holds the configuration for the server. All values can be supplied
// through KBC_* environment variables or an optional config file.
type Config struct {
	StorageAPIURL   string `mapstructure:"storage_api_url"`
	StorageToken    string `mapstructure:"storage_token"`
	WorkspaceSchema string `mapstructure:"workspace_schema"`
	Backend         string `mapstructure:"backend"`
	QueryRowLimit   int    `mapstructure:"query_row_limit"`
	LogLevel        string `mapstructure:"log_level"`
	Transport       string `mapstructure:"transport"`
	Listen          string `mapstructure:"listen"`

	Snowflake struct {
		Account   string `mapstructure:"account"`
		User      string `mapstructure:"user"`
		Password  string `mapstructure:"password"`
		Warehouse string `mapstructure:"warehouse"`
		Database  string `mapstructure:"database"`
		Role      string `mapstructure:"role"`
	} `mapstructure:"snowflake"`

	BigQuery struct {
		ProjectID       string `mapstructure:"project_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"bigquery"`
}

// LoadConfig loads the configuration from an optional file and the
// environment. Environment variables use the KBC_ prefix with underscores,
// e.g. KBC_STORAGE_TOKEN or KBC_SNOWFLAKE_ACCOUNT.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetDefault("storage_api_url", "https://connection.keboola.com")
	v.SetDefault("query_row_limit", 500)
	v.SetDefault("log_level", "info")
	v.SetDefault("transport", "stdio")
	v.SetDefault("listen", ":8700")
	v.SetDefault("backend", string(models.BackendSnowflake))

	v.SetEnvPrefix("KBC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// AutomaticEnv alone does not surface env-only keys through Unmarshal;
	// bind the known keys explicitly.
	for _, key := range []string{
		"storage_api_url", "storage_token", "workspace_schema", "backend",
		"query_row_limit", "log_level", "transport", "listen",
		"snowflake.account", "snowflake.user", "snowflake.password",
		"snowflake.warehouse", "snowflake.database", "snowflake.role",
		"bigquery.project_id", "bigquery.credentials_file",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.StorageAPIURL = normalizeAPIURL(cfg.StorageAPIURL)

	return &cfg, nil
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	if c.StorageToken == "" {
		return fmt.Errorf("storage_token is required")
	}
	switch models.BackendKind(c.Backend) {
	case models.BackendSnowflake, models.BackendBigQuery:
	default:
		return fmt.Errorf("backend must be one of %q or %q, got %q",
			models.BackendSnowflake, models.BackendBigQuery, c.Backend)
	}
	switch c.Transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", "stdio", "sse", c.Transport)
	}
	return nil
}

// BackendKind returns the configured warehouse backend kind.
func (c *Config) BackendKind() models.BackendKind {
	return models.BackendKind(c.Backend)
}

// String renders the configuration with the token redacted.
func (c *Config) String() string {
	token := ""
	if c.StorageToken != "" {
		token = "****"
	}
	password := ""
	if c.Snowflake.Password != "" {
		password = "****"
	}
	return fmt.Sprintf(
		"Config(storage_api_url=%s, storage_token=%s, workspace_schema=%s, backend=%s, transport=%s, snowflake.account=%s, snowflake.user=%s, snowflake.password=%s, bigquery.project_id=%s)",
		c.StorageAPIURL, token, c.WorkspaceSchema, c.Backend, c.Transport,
		c.Snowflake.Account, c.Snowflake.User, password, c.BigQuery.ProjectID,
	)
}

// normalizeAPIURL ensures the storage API URL carries a scheme and no
// trailing slash, so users can paste the bare stack host from the console.
func normalizeAPIURL(input string) string {
	u := strings.TrimSpace(input)
	u = strings.TrimRight(u, "/")
	if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}
