package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFile is picked up from the working directory when no config path is given.
const DefaultConfigFile = "config.yml"

// Load reads configuration from the specified file path.
// An empty path falls back to DefaultConfigFile when it exists, and to
// DefaultConfig otherwise. Environment variables are substituted after unmarshalling.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		if _, err := os.Stat(DefaultConfigFile); err != nil {
			cfg := DefaultConfig()
			if err := substituteEnvVars(cfg); err != nil {
				return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
			}
			return cfg, nil
		}
		configPath = DefaultConfigFile
	}

	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	w := &cfg.Warehouse
	w.ProfileName = expandEnvVar(w.ProfileName)
	w.Target = expandEnvVar(w.Target)
	w.ProfilesDir = expandEnvVar(w.ProfilesDir)
	w.Account = expandEnvVar(w.Account)
	w.Host = expandEnvVar(w.Host)
	w.User = expandEnvVar(w.User)
	w.Password = expandEnvVar(w.Password)
	w.PrivateKeyPath = expandEnvVar(w.PrivateKeyPath)
	w.PrivateKeyPassphrase = expandEnvVar(w.PrivateKeyPassphrase)
	w.Warehouse = expandEnvVar(w.Warehouse)
	w.Role = expandEnvVar(w.Role)
	w.Database = expandEnvVar(w.Database)
	w.Schema = expandEnvVar(w.Schema)

	cfg.DuckDB.Directory = expandEnvVar(cfg.DuckDB.Directory)
	cfg.DuckDB.DatabasePath = expandEnvVar(cfg.DuckDB.DatabasePath)
	cfg.ManifestPath = expandEnvVar(cfg.ManifestPath)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// Overrides contains CLI flag values that take precedence over the config file.
// Zero values are ignored.
type Overrides struct {
	Profile      string
	Target       string
	ProfilesDir  string
	ManifestPath string
	LogLevel     string
	LogFormat    string
	RowLimit     int
	BatchSize    int
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied. Selecting a profile or target
// on the command line discards inline warehouse settings from the config file.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Profile != "" || o.Target != "" {
		selection := WarehouseConfig{
			ProfileName: c.Warehouse.ProfileName,
			Target:      c.Warehouse.Target,
			ProfilesDir: c.Warehouse.ProfilesDir,
		}
		if o.Profile != "" {
			selection.ProfileName = o.Profile
		}
		if o.Target != "" {
			selection.Target = o.Target
		}
		c.Warehouse = selection
	}
	if o.ProfilesDir != "" {
		c.Warehouse.ProfilesDir = o.ProfilesDir
	}
	if o.ManifestPath != "" {
		c.ManifestPath = o.ManifestPath
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.RowLimit > 0 {
		c.Extract.RowLimit = o.RowLimit
	}
	if o.BatchSize > 0 {
		c.Extract.BatchSize = o.BatchSize
	}
}

// ResolveWarehouse fills the warehouse connection from the dbt profile unless
// the config file already carries inline connection settings.
func (c *Config) ResolveWarehouse() error {
	if c.Warehouse.HasInlineWarehouse() {
		if c.Warehouse.AuthMethod() == "" {
			return fmt.Errorf("inline warehouse config: %w", ErrNoAuthMethod)
		}
		return nil
	}

	resolved, err := LoadProfile(c.Warehouse.ProfilesDir, c.Warehouse.ProfileName, c.Warehouse.Target)
	if err != nil {
		return err
	}
	resolved.ProfilesDir = c.Warehouse.ProfilesDir
	c.Warehouse = *resolved
	return nil
}

// LoadResolved loads the config file, applies overrides and resolves the warehouse
// connection. It is the single entry point used by commands that talk to the warehouse.
func LoadResolved(configPath string, o Overrides) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(o)
	if err := cfg.ResolveWarehouse(); err != nil {
		return nil, fmt.Errorf("failed to resolve warehouse connection: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
