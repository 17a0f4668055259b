package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/warehouse-to-go/internal/config"
	"github.com/dbsmedya/warehouse-to-go/internal/logger"
	"github.com/dbsmedya/warehouse-to-go/internal/manifest"
	"github.com/dbsmedya/warehouse-to-go/internal/plan"
	"github.com/dbsmedya/warehouse-to-go/internal/report"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	envFile      string
	profile      string
	target       string
	profilesDir  string
	manifestPath string
	logLevel     string
	logFormat    string
	rowLimit     int
	batchSize    int
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "warehouse-to-go",
	Short: "Local DuckDB mirrors of dbt warehouse sources",
	Long: `Create local DuckDB representations of data warehouse sources from dbt projects.

The tool reads the sources declared in a compiled dbt manifest and copies a
bounded number of rows from every source table into local DuckDB files, one
file per warehouse database and one schema per warehouse schema.

Supported warehouses: Snowflake, Postgres, MySQL, SQL Server.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadDotEnv,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Config file flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to configuration file (default: ./config.yml if present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Environment file loaded before configuration")

	// Warehouse selection
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "",
		"dbt profile to use (default: first warehouse profile found)")
	rootCmd.PersistentFlags().StringVarP(&target, "target", "t", "",
		"dbt target to use (default: the profile's target)")
	rootCmd.PersistentFlags().StringVar(&profilesDir, "profiles-dir", "",
		"Directory containing profiles.yml (default: $DBT_PROFILES_DIR or ~/.dbt)")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "",
		"Path to dbt manifest.json (default: target/manifest.json)")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Extraction overrides
	rootCmd.PersistentFlags().IntVar(&rowLimit, "row-limit", 0,
		"Override maximum rows copied per table")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override rows fetched per batch")

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable coloured output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.Overrides {
	return config.Overrides{
		Profile:      profile,
		Target:       target,
		ProfilesDir:  profilesDir,
		ManifestPath: manifestPath,
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		RowLimit:     rowLimit,
		BatchSize:    batchSize,
	}
}

// loadDotEnv loads the environment file. A missing file is not an error and
// variables already set in the environment win.
func loadDotEnv(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// loadConfig reads the config file and applies CLI overrides. The warehouse
// connection is only resolved from profiles.yml when resolve is set.
func loadConfig(resolve bool) (*config.Config, error) {
	if resolve {
		cfg, err := config.LoadResolved(GetConfigFile(), GetCLIOverrides())
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(GetCLIOverrides())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the logger from config. Console output goes to the
// command's stderr so it never mixes with reports on stdout.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logger.Logger, error) {
	switch cfg.Logging.Output {
	case "", "stderr":
		return logger.NewWithWriter(&cfg.Logging, cmd.ErrOrStderr()), nil
	default:
		log, err := logger.New(&cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return log, nil
	}
}

// buildPlan parses the manifest and builds the extraction plan, restricted to
// one source when sourceName is set.
func buildPlan(cfg *config.Config, sourceName string, log *logger.Logger) (*plan.Plan, error) {
	sources, err := manifest.Parse(cfg.ManifestPath, log)
	if err != nil {
		return nil, err
	}
	sources, err = plan.Filter(sources, sourceName)
	if err != nil {
		return nil, err
	}
	return plan.Build(sources, cfg.Extract), nil
}

func newPrinter(cmd *cobra.Command) *report.Printer {
	return report.New(cmd.OutOrStdout(), !noColor && color.SupportColor())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
