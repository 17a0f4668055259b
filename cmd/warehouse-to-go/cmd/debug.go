package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dbsmedya/warehouse-to-go/internal/config"
	"github.com/dbsmedya/warehouse-to-go/internal/database"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Test the warehouse connection and local DuckDB creation",
	Long: `Debug resolves the warehouse connection, connects to it, and creates the
local DuckDB file to confirm that an extraction would be able to start.

Example:
  warehouse-to-go debug --profile jaffle_shop --target dev`,
	RunE: runDebug,
}

func init() {
	rootCmd.AddCommand(debugCmd)
}

var warehouseNames = map[string]string{
	config.TypeSnowflake: "Snowflake",
	config.TypePostgres:  "Postgres",
	config.TypeMySQL:     "MySQL",
	config.TypeSQLServer: "SQL Server",
}

func runDebug(cmd *cobra.Command, args []string) error {
	printer := newPrinter(cmd)

	cfg, err := loadConfig(true)
	if err != nil {
		printer.Error("Error initializing configuration: %v", err)
		return err
	}

	ctx := commandContext(cmd)
	dbManager := database.NewManager(cfg)
	defer dbManager.Close()

	name := warehouseNames[cfg.Warehouse.Type]
	printer.Info("Testing %s connection...", name)
	if err := dbManager.ConnectWarehouse(ctx); err != nil {
		printer.Error("Error initializing configuration: %v", err)
		return err
	}
	printer.Success("%s connection successful!", name)

	printer.Info("Testing DuckDB database creation...")
	if err := dbManager.ConnectLocal(ctx); err != nil {
		printer.Error("Error initializing configuration: %v", err)
		return err
	}
	printer.Success("DuckDB database creation successful!")

	printer.Success("Configuration initialized successfully!")
	return nil
}
