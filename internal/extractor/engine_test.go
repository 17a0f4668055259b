package extractor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/warehouse-to-go/internal/config"
	"github.com/dbsmedya/warehouse-to-go/internal/localdb"
	"github.com/dbsmedya/warehouse-to-go/internal/types"
)

// directFailing forces every batch through the Parquet fallback.
type directFailing struct {
	*localdb.DuckDB
}

func (directFailing) WriteBatch(context.Context, localdb.TableRef, *types.Batch, bool) error {
	return errors.New("appender: unsupported type")
}

func openDuckDB(t *testing.T) (*localdb.DuckDB, *sql.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping DuckDB engine test in short mode")
	}

	dir := t.TempDir()
	db, err := sql.Open("duckdb", filepath.Join(dir, "mirror.duckdb"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return localdb.New(db, dir, nil), db
}

func avatarRows(n int) *sqlmock.Rows {
	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("ID").OfType("BIGINT", int64(0)),
		sqlmock.NewColumn("NAME").OfType("VARCHAR", ""),
		sqlmock.NewColumn("AVATAR").OfType("BINARY", []byte(nil)),
	)
	for i := 1; i <= n; i++ {
		rows.AddRow(int64(i), fmt.Sprintf("customer %d", i), []byte{byte(i), 0x00, 0xff})
	}
	return rows
}

func TestEngineLoadTable(t *testing.T) {
	tests := []struct {
		name         string
		wrap         func(*localdb.DuckDB) Target
		wantFallback bool
	}{
		{name: "direct", wrap: func(d *localdb.DuckDB) Target { return d }},
		{name: "parquet fallback", wrap: func(d *localdb.DuckDB) Target { return directFailing{d} }, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			duck, db := openDuckDB(t)
			ctx := context.Background()
			require.NoError(t, duck.EnsureSchema(ctx, "ANALYTICS", "CRM"))

			l, mock := newTestLoader(t, tt.wrap(duck), config.ExtractConfig{Verify: true}, nil)
			unit := unitFor(5, 2)

			// Two runs of the same table leave one copy capped at the row limit.
			for run := 0; run < 2; run++ {
				mock.ExpectQuery(selectQuery("CUSTOMERS", 5)).WillReturnRows(avatarRows(10))

				res := l.LoadTable(ctx, unit)
				require.True(t, res.Success, "run %d failed: %v", run, res.Err)
				assert.Equal(t, int64(5), res.Rows)
				assert.Equal(t, 3, res.Batches)
				assert.Equal(t, tt.wantFallback, res.Fallback)

				n, err := duck.CountRows(ctx, res.Ref)
				require.NoError(t, err)
				assert.Equal(t, int64(5), n)
				assert.Empty(t, tempDirEntries(t, l))
			}
			assert.NoError(t, mock.ExpectationsWereMet())

			var name string
			var avatar []byte
			require.NoError(t, db.QueryRow(`SELECT "NAME", "AVATAR" FROM "ANALYTICS"."CRM"."CUSTOMERS" WHERE "ID" = 3`).
				Scan(&name, &avatar))
			assert.Equal(t, "customer 3", name)
			assert.Equal(t, []byte{3, 0x00, 0xff}, avatar)
		})
	}
}

func TestEngineLoadTableEmptyResult(t *testing.T) {
	duck, _ := openDuckDB(t)
	ctx := context.Background()
	require.NoError(t, duck.EnsureSchema(ctx, "ANALYTICS", "CRM"))

	l, mock := newTestLoader(t, duck, config.ExtractConfig{}, nil)
	mock.ExpectQuery(selectQuery("CUSTOMERS", 10)).WillReturnRows(avatarRows(0))

	res := l.LoadTable(ctx, unitFor(10, 10))
	require.True(t, res.Success, "load failed: %v", res.Err)
	assert.Equal(t, int64(0), res.Rows)

	n, err := duck.CountRows(ctx, res.Ref)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestEngineRun(t *testing.T) {
	duck, _ := openDuckDB(t)
	ctx := context.Background()

	l, mock := newTestLoader(t, duck, config.ExtractConfig{}, nil)
	p := buildPlan(config.ExtractConfig{RowLimit: 3, BatchSize: 10}, crmSource())

	mock.ExpectQuery(selectQuery("CUSTOMERS", 3)).WillReturnRows(customerRows(3))
	mock.ExpectQuery(selectQuery("ORDERS", 3)).WillReturnError(errors.New("object does not exist"))

	result, err := l.Run(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TablesLoaded)
	assert.Equal(t, 1, result.TablesFailed)
	assert.Equal(t, int64(3), result.RowsWritten)

	n, err := duck.CountRows(ctx, localdb.TableRef{Database: "ANALYTICS", Schema: "CRM", Table: "CUSTOMERS"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
