package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/warehouse-to-go/internal/manifest"
	"github.com/dbsmedya/warehouse-to-go/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show a summary of the sources in the manifest",
	Long: `Analyze reads the dbt manifest and prints one row per source with its
database, schema and number of tables.

Example:
  warehouse-to-go analyze --manifest target/manifest.json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	sources, err := manifest.Parse(cfg.ManifestPath, log)
	if err != nil {
		return fmt.Errorf("error analyzing manifest: %w", err)
	}

	printer := newPrinter(cmd)
	printer.SourceSummary(sources)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s sources, %s tables\n",
		report.FormatCount(sources.Len()), report.FormatCount(manifest.TableCount(sources)))
	return nil
}
