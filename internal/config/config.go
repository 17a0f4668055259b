// Package config provides configuration structures and loading for warehouse-to-go.
package config

// Supported warehouse types, matching the dbt adapter names used in profiles.yml.
const (
	TypeSnowflake = "snowflake"
	TypePostgres  = "postgres"
	TypeMySQL     = "mysql"
	TypeSQLServer = "sqlserver"
)

// Config represents the complete application configuration.
type Config struct {
	Warehouse    WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	DuckDB       DuckDBConfig    `yaml:"duckdb" mapstructure:"duckdb"`
	Extract      ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	ManifestPath string          `yaml:"manifest_path" mapstructure:"manifest_path"`
	Logging      LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// WarehouseConfig represents the remote warehouse connection.
//
// ProfileName, Target and ProfilesDir select a dbt profile. When Type is set
// in the config file the inline connection fields are used instead.
type WarehouseConfig struct {
	ProfileName string `yaml:"profile_name,omitempty" mapstructure:"profile_name"`
	Target      string `yaml:"target,omitempty" mapstructure:"target"`
	ProfilesDir string `yaml:"profiles_dir,omitempty" mapstructure:"profiles_dir"`

	Type      string `yaml:"type" mapstructure:"type"`
	Account   string `yaml:"account,omitempty" mapstructure:"account"`
	Host      string `yaml:"host,omitempty" mapstructure:"host"`
	Port      int    `yaml:"port,omitempty" mapstructure:"port"`
	User      string `yaml:"user" mapstructure:"user"`
	Warehouse string `yaml:"warehouse,omitempty" mapstructure:"warehouse"`
	Role      string `yaml:"role,omitempty" mapstructure:"role"`
	Database  string `yaml:"database,omitempty" mapstructure:"database"`
	Schema    string `yaml:"schema,omitempty" mapstructure:"schema"`

	Password             string `yaml:"password,omitempty" mapstructure:"password"`
	PrivateKeyPath       string `yaml:"private_key_path,omitempty" mapstructure:"private_key_path"`
	PrivateKeyPassphrase string `yaml:"private_key_passphrase,omitempty" mapstructure:"private_key_passphrase"`

	ClientSessionKeepAlive bool   `yaml:"client_session_keep_alive,omitempty" mapstructure:"client_session_keep_alive"`
	QueryTag               string `yaml:"query_tag,omitempty" mapstructure:"query_tag"`
	TLS                    string `yaml:"tls,omitempty" mapstructure:"tls"` // disable, preferred, required
}

// DuckDBConfig represents the local mirror location.
type DuckDBConfig struct {
	Directory    string `yaml:"directory" mapstructure:"directory"`
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
}

// ExtractConfig represents per-table extraction limits.
type ExtractConfig struct {
	RowLimit  int  `yaml:"row_limit" mapstructure:"row_limit"`   // rows copied per table, 0 means no limit
	BatchSize int  `yaml:"batch_size" mapstructure:"batch_size"` // rows fetched per batch
	Verify    bool `yaml:"verify" mapstructure:"verify"`         // count local rows after each load
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		DuckDB: DuckDBConfig{
			Directory:    "databases",
			DatabasePath: "warehouse_mirror.duckdb",
		},
		Extract: ExtractConfig{
			RowLimit:  10000,
			BatchSize: 10000,
		},
		ManifestPath: "target/manifest.json",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// HasInlineWarehouse reports whether the config file carries its own
// connection settings instead of pointing at a dbt profile.
func (w *WarehouseConfig) HasInlineWarehouse() bool {
	return w.Type != ""
}

// AuthMethod returns the authentication method the connection will use.
// Key-pair authentication wins over a password when both are present.
func (w *WarehouseConfig) AuthMethod() string {
	switch {
	case w.PrivateKeyPath != "":
		return "private_key"
	case w.Password != "":
		return "password"
	default:
		return ""
	}
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Warehouse.Password != "" {
		out.Warehouse.Password = "****"
	}
	if out.Warehouse.PrivateKeyPassphrase != "" {
		out.Warehouse.PrivateKeyPassphrase = "****"
	}
	return &out
}
