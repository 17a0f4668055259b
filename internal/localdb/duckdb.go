// Package localdb writes extracted batches into local DuckDB database files.
package localdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb/v2"

	"github.com/dbsmedya/warehouse-to-go/internal/logger"
	"github.com/dbsmedya/warehouse-to-go/internal/parquetfile"
	"github.com/dbsmedya/warehouse-to-go/internal/sqlutil"
	"github.com/dbsmedya/warehouse-to-go/internal/types"
)

// TableRef names a local table as catalog.schema.table. The catalog is the
// attached per-database file.
type TableRef struct {
	Database string
	Schema   string
	Table    string
}

func (r TableRef) String() string {
	return r.Database + "." + r.Schema + "." + r.Table
}

// Quoted returns the double-quoted three-part name.
func (r TableRef) Quoted() string {
	return sqlutil.QuoteDouble(r.Database) + "." + sqlutil.QuoteDouble(r.Schema) + "." + sqlutil.QuoteDouble(r.Table)
}

// DuckDB is the local mirror. Each remote database is attached as its own file
// under dir; the connection itself points at the main mirror file.
type DuckDB struct {
	db     *sql.DB
	dir    string
	logger *logger.Logger
}

// New wraps an open DuckDB connection pool.
func New(db *sql.DB, dir string, log *logger.Logger) *DuckDB {
	if log == nil {
		log = logger.NewNop()
	}
	return &DuckDB{db: db, dir: dir, logger: log}
}

// DatabaseFile returns the file a remote database is mirrored into.
func (d *DuckDB) DatabaseFile(database string) string {
	return filepath.Join(d.dir, database+".duckdb")
}

// EnsureSchema attaches the database file for database and creates schema in it.
// Calling it again for the same pair is a no-op.
func (d *DuckDB) EnsureSchema(ctx context.Context, database, schema string) error {
	attach := fmt.Sprintf("ATTACH IF NOT EXISTS %s AS %s",
		sqlutil.QuoteString(d.DatabaseFile(database)), sqlutil.QuoteDouble(database))
	if _, err := d.db.ExecContext(ctx, attach); err != nil {
		return fmt.Errorf("failed to attach database %s: %w", database, err)
	}

	create := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s.%s", sqlutil.QuoteDouble(database), sqlutil.QuoteDouble(schema))
	if _, err := d.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create schema %s.%s: %w", database, schema, err)
	}

	d.logger.Debugw("Local schema ready", "database", database, "schema", schema, "file", d.DatabaseFile(database))
	return nil
}

// ColumnType maps a column kind onto its DuckDB type.
func ColumnType(k types.Kind) string {
	switch k {
	case types.KindInt:
		return "BIGINT"
	case types.KindFloat:
		return "DOUBLE"
	case types.KindBool:
		return "BOOLEAN"
	case types.KindTimestamp:
		return "TIMESTAMP"
	case types.KindDate:
		return "DATE"
	case types.KindBytes:
		return "BLOB"
	default:
		return "VARCHAR"
	}
}

// CreateTableSQL renders the DDL for batch's columns. replace drops any
// existing table; otherwise an existing table is kept.
func CreateTableSQL(ref TableRef, cols []types.Column, replace bool) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = sqlutil.QuoteDouble(c.Name) + " " + ColumnType(c.Kind)
	}
	verb := "CREATE TABLE IF NOT EXISTS"
	if replace {
		verb = "CREATE OR REPLACE TABLE"
	}
	return fmt.Sprintf("%s %s (%s)", verb, ref.Quoted(), strings.Join(defs, ", "))
}

// WriteBatch creates the table from the batch schema and appends the rows
// through the DuckDB Appender. The write runs in one transaction, so a failure
// leaves the table as it was.
func (d *DuckDB) WriteBatch(ctx context.Context, ref TableRef, batch *types.Batch, replace bool) (err error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get local connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
				d.logger.Warnw("Rollback failed", "table", ref.String(), "error", rbErr)
			}
		}
	}()

	if _, err = conn.ExecContext(ctx, CreateTableSQL(ref, batch.Columns, replace)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", ref, err)
	}

	if err = conn.Raw(func(driverConn any) error {
		return appendRows(driverConn, ref, batch)
	}); err != nil {
		return err
	}

	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit %s: %w", ref, err)
	}

	d.logger.Debugw("Batch appended",
		"table", ref.String(),
		"rows", batch.Rows,
		"columns", batch.ColumnNames(),
		"replace", replace,
	)
	return nil
}

func appendRows(driverConn any, ref TableRef, batch *types.Batch) error {
	dc, ok := driverConn.(driver.Conn)
	if !ok {
		return fmt.Errorf("appender: unexpected driver connection %T", driverConn)
	}
	appender, err := duckdb.NewAppender(dc, ref.Database, ref.Schema, ref.Table)
	if err != nil {
		return fmt.Errorf("failed to create appender for %s: %w", ref, err)
	}

	row := make([]driver.Value, len(batch.Columns))
	for i := 0; i < batch.Rows; i++ {
		for c, col := range batch.Columns {
			row[c] = appendValue(col.Kind, col.Values[i])
		}
		if err := appender.AppendRow(row...); err != nil {
			_ = appender.Close()
			return fmt.Errorf("failed to append row %d to %s: %w", i, ref, err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("failed to flush appender for %s: %w", ref, err)
	}
	return nil
}

// appendValue converts a normalized value to what the Appender accepts for the
// column's DuckDB type.
func appendValue(kind types.Kind, v any) driver.Value {
	if v == nil {
		return nil
	}
	switch kind {
	case types.KindInt, types.KindFloat, types.KindBool:
		return v
	case types.KindTimestamp, types.KindDate:
		if t, ok := v.(time.Time); ok {
			return t
		}
		return nil
	case types.KindBytes:
		if s, ok := v.(string); ok {
			return []byte(s)
		}
		return v
	default:
		switch s := v.(type) {
		case string:
			return s
		case []byte:
			return string(s)
		default:
			return fmt.Sprint(s)
		}
	}
}

// LoadParquet loads a file written by parquetfile.Write into ref. With replace
// the table is recreated from the file, otherwise the rows are appended.
func (d *DuckDB) LoadParquet(ctx context.Context, ref TableRef, path string, cols []types.Column, replace bool) error {
	source := fmt.Sprintf("SELECT %s FROM read_parquet(%s)", parquetfile.Projection(cols), sqlutil.QuoteString(path))

	var query string
	if replace {
		query = fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", ref.Quoted(), source)
	} else {
		query = fmt.Sprintf("INSERT INTO %s %s", ref.Quoted(), source)
	}

	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to load %s from parquet: %w", ref, err)
	}
	return nil
}

// CountRows returns the number of rows in ref.
func (d *DuckDB) CountRows(ctx context.Context, ref TableRef) (int64, error) {
	var n int64
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ref.Quoted()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", ref, err)
	}
	return n, nil
}
