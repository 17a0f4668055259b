package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/warehouse-to-go/internal/database"
	"github.com/dbsmedya/warehouse-to-go/internal/extractor"
	"github.com/dbsmedya/warehouse-to-go/internal/localdb"
)

var (
	extractSource string
	extractDryRun bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract source tables into local DuckDB files",
	Long: `Extract copies every planned source table from the warehouse into the
local DuckDB mirror.

The extract process follows these steps:
  1. Build the plan from the dbt manifest
  2. Connect to the warehouse and open the local DuckDB file
  3. Attach one DuckDB file per warehouse database and create its schemas
  4. Copy each table, replacing any earlier copy

A table that fails to extract is reported and skipped; the run continues
with the next table.

Example:
  warehouse-to-go extract --profile jaffle_shop --target dev --source raw_crm`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractSource, "source", "s", "",
		"Restrict extraction to one source name")
	extractCmd.Flags().BoolVar(&extractDryRun, "dry-run", false,
		"Show what would be extracted without extracting")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(!extractDryRun)
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	p, err := buildPlan(cfg, extractSource, log)
	if err != nil {
		return err
	}

	if extractDryRun {
		printPlan(cmd, p, "📋 Extraction Plan (Dry Run):")
		return nil
	}

	log.Infow("Starting extraction",
		"warehouse", cfg.Warehouse.Type,
		"profile", cfg.Warehouse.ProfileName,
		"target", cfg.Warehouse.Target,
		"manifest", cfg.ManifestPath,
		"tables", p.TableCount(),
	)

	// Setup context with signal handling
	ctx, cancel := database.SetupSignalHandler(commandContext(cmd), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - stopping extraction", "signal", sig.String())
	})
	defer cancel()

	// Connect to databases
	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer dbManager.Close()

	dialect, err := dbManager.Dialect()
	if err != nil {
		return err
	}

	printer := newPrinter(cmd)
	target := localdb.New(dbManager.Local, dbManager.LocalDir(), log)
	loader, err := extractor.NewLoader(dbManager.Warehouse, dialect, target, cfg.Extract, log, printer)
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}

	printer.Title("🚀 Starting extraction...")
	result, err := loader.Run(ctx, p)
	if result != nil {
		printer.Summary(result)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Extraction cancelled by user")
			return nil
		}
		return fmt.Errorf("extraction failed: %w", err)
	}

	return nil
}
