package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/warehouse-to-go/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Config prints the configuration after the config file, environment
variables, CLI overrides and the dbt profile have been applied. Passwords and
key passphrases are masked.

Example:
  warehouse-to-go config --profile jaffle_shop --target prod`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(GetCLIOverrides())

	// An unresolvable profile still leaves the rest of the config worth showing.
	if err := cfg.ResolveWarehouse(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: warehouse connection not resolved: %v\n", err)
	}

	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
