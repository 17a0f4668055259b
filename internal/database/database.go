// Package database manages the remote warehouse connection and the local DuckDB
// connection used for one run.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"      // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib"      // Postgres driver ("pgx")
	_ "github.com/marcboeker/go-duckdb/v2"   // DuckDB driver
	_ "github.com/microsoft/go-mssqldb"     // SQL Server driver
	"github.com/snowflakedb/gosnowflake"

	"github.com/dbsmedya/warehouse-to-go/internal/config"
	"github.com/dbsmedya/warehouse-to-go/internal/sqlutil"
)

// Manager holds the warehouse and local connections.
type Manager struct {
	Warehouse *sql.DB
	Local     *sql.DB
	config    *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Dialect returns the SQL dialect of the configured warehouse.
func (m *Manager) Dialect() (sqlutil.Dialect, error) {
	return sqlutil.ParseDialect(m.config.Warehouse.Type)
}

// LocalDir returns the directory holding the DuckDB files.
func (m *Manager) LocalDir() string {
	return m.config.DuckDB.Directory
}

// Connect opens both connections. A warehouse that cannot be reached is an error.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.ConnectWarehouse(ctx); err != nil {
		return err
	}
	if err := m.ConnectLocal(ctx); err != nil {
		_ = m.Warehouse.Close()
		m.Warehouse = nil
		return err
	}
	return nil
}

// ConnectWarehouse opens and verifies the remote warehouse connection.
func (m *Manager) ConnectWarehouse(ctx context.Context) error {
	db, err := OpenWarehouse(&m.config.Warehouse)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", m.config.Warehouse.Type, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to %s warehouse: %w", m.config.Warehouse.Type, err)
	}
	m.Warehouse = db
	return nil
}

// ConnectLocal opens and verifies the main DuckDB file.
func (m *Manager) ConnectLocal(ctx context.Context) error {
	db, err := OpenLocal(&m.config.DuckDB)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to open local database %s: %w", LocalPath(&m.config.DuckDB), err)
	}
	m.Local = db
	return nil
}

// OpenWarehouse creates the connection pool for the configured warehouse type.
// The connection is not verified.
func OpenWarehouse(cfg *config.WarehouseConfig) (*sql.DB, error) {
	var db *sql.DB

	switch cfg.Type {
	case config.TypeSnowflake:
		sfCfg, err := SnowflakeConfig(cfg)
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(gosnowflake.NewConnector(gosnowflake.SnowflakeDriver{}, *sfCfg))
	case config.TypePostgres, config.TypeMySQL, config.TypeSQLServer:
		driverName, dsn, err := BuildDSN(cfg)
		if err != nil {
			return nil, err
		}
		db, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedType, cfg.Type)
	}

	// one query at a time; tables are extracted sequentially
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// LocalPath returns the main DuckDB file path.
func LocalPath(cfg *config.DuckDBConfig) string {
	if filepath.IsAbs(cfg.DatabasePath) {
		return cfg.DatabasePath
	}
	return filepath.Join(cfg.Directory, cfg.DatabasePath)
}

// OpenLocal creates the DuckDB directory if needed and opens the main file.
// The pool is capped at one connection so attached catalogs stay visible to
// every statement.
func OpenLocal(cfg *config.DuckDBConfig) (*sql.DB, error) {
	if cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", LocalPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open local database %s: %w", LocalPath(cfg), err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// Close closes all database connections gracefully.
func (m *Manager) Close() error {
	var errs []error

	if m.Local != nil {
		if err := m.Local.Close(); err != nil {
			errs = append(errs, fmt.Errorf("local close: %w", err))
		}
		m.Local = nil
	}

	if m.Warehouse != nil {
		if err := m.Warehouse.Close(); err != nil {
			errs = append(errs, fmt.Errorf("warehouse close: %w", err))
		}
		m.Warehouse = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %w", errors.Join(errs...))
	}
	return nil
}

// Ping verifies all connections are alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Warehouse != nil {
		if err := m.Warehouse.PingContext(ctx); err != nil {
			return fmt.Errorf("warehouse ping failed: %w", err)
		}
	}

	if m.Local != nil {
		if err := m.Local.PingContext(ctx); err != nil {
			return fmt.Errorf("local ping failed: %w", err)
		}
	}

	return nil
}
