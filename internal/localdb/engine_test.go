package localdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/warehouse-to-go/internal/parquetfile"
	"github.com/dbsmedya/warehouse-to-go/internal/types"
)

// These tests run against an embedded DuckDB file instead of sqlmock, so the
// DDL, ATTACH, the Appender and read_parquet are executed for real.

func openEngine(t *testing.T) (*DuckDB, *sql.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping DuckDB engine test in short mode")
	}

	dir := t.TempDir()
	db, err := sql.Open("duckdb", filepath.Join(dir, "mirror.duckdb"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return New(db, dir, nil), db
}

var (
	engineTS   = time.Date(2024, 3, 1, 12, 30, 0, 123456000, time.UTC)
	engineDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	engineBlob = []byte{0x00, 0xff, 0x10, 'a'}
)

func allKindsBatch(t *testing.T) *types.Batch {
	t.Helper()
	b := types.NewBatch([]types.Column{
		{Name: "ID", Kind: types.KindInt},
		{Name: "SCORE", Kind: types.KindFloat},
		{Name: "ACTIVE", Kind: types.KindBool},
		{Name: "CREATED_AT", Kind: types.KindTimestamp},
		{Name: "BIRTHDAY", Kind: types.KindDate},
		{Name: "EMAIL", Kind: types.KindString},
		{Name: "AVATAR", Kind: types.KindBytes},
		{Name: "Extra Info", Kind: types.KindOther},
	})
	require.NoError(t, b.AppendRow([]any{int64(1), 1.5, true, engineTS, engineDate, "a@example.com", engineBlob, "x"}))
	require.NoError(t, b.AppendRow([]any{int64(2), nil, nil, nil, nil, nil, nil, nil}))
	return b
}

type engineRow struct {
	id      int64
	score   sql.NullFloat64
	active  sql.NullBool
	created sql.NullTime
	born    sql.NullTime
	email   sql.NullString
	avatar  []byte
	extra   sql.NullString
}

func readAllKinds(t *testing.T, db *sql.DB, ref TableRef) []engineRow {
	t.Helper()
	rows, err := db.Query(`SELECT "ID", "SCORE", "ACTIVE", "CREATED_AT", "BIRTHDAY", "EMAIL", "AVATAR", "Extra Info" FROM ` +
		ref.Quoted() + ` ORDER BY "ID"`)
	require.NoError(t, err)
	defer rows.Close()

	var out []engineRow
	for rows.Next() {
		var r engineRow
		require.NoError(t, rows.Scan(&r.id, &r.score, &r.active, &r.created, &r.born, &r.email, &r.avatar, &r.extra))
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}

func assertAllKinds(t *testing.T, got []engineRow) {
	t.Helper()
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, int64(1), first.id)
	assert.Equal(t, sql.NullFloat64{Float64: 1.5, Valid: true}, first.score)
	assert.Equal(t, sql.NullBool{Bool: true, Valid: true}, first.active)
	require.True(t, first.created.Valid)
	assert.True(t, engineTS.Equal(first.created.Time), "created_at = %v", first.created.Time)
	require.True(t, first.born.Valid)
	assert.True(t, engineDate.Equal(first.born.Time), "birthday = %v", first.born.Time)
	assert.Equal(t, "a@example.com", first.email.String)
	assert.Equal(t, engineBlob, first.avatar)
	assert.Equal(t, "x", first.extra.String)

	second := got[1]
	assert.Equal(t, int64(2), second.id)
	assert.False(t, second.score.Valid)
	assert.False(t, second.active.Valid)
	assert.False(t, second.created.Valid)
	assert.False(t, second.born.Valid)
	assert.False(t, second.email.Valid)
	assert.Nil(t, second.avatar)
	assert.False(t, second.extra.Valid)
}

func TestEngineEnsureSchemaIdempotent(t *testing.T) {
	d, _ := openEngine(t)
	ctx := context.Background()

	require.NoError(t, d.EnsureSchema(ctx, "ANALYTICS", "CRM"))
	require.NoError(t, d.EnsureSchema(ctx, "ANALYTICS", "CRM"))
	require.NoError(t, d.EnsureSchema(ctx, "ANALYTICS", "BILLING"))

	_, err := os.Stat(d.DatabaseFile("ANALYTICS"))
	assert.NoError(t, err)
}

func TestEngineWritePaths(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, d *DuckDB, batch *types.Batch, replace bool) error
	}{
		{
			name: "appender",
			write: func(t *testing.T, d *DuckDB, batch *types.Batch, replace bool) error {
				return d.WriteBatch(context.Background(), customersRef, batch, replace)
			},
		},
		{
			name: "parquet",
			write: func(t *testing.T, d *DuckDB, batch *types.Batch, replace bool) error {
				path := filepath.Join(t.TempDir(), "batch.parquet")
				if err := parquetfile.Write(path, batch); err != nil {
					return err
				}
				return d.LoadParquet(context.Background(), customersRef, path, batch.Columns, replace)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, db := openEngine(t)
			ctx := context.Background()
			require.NoError(t, d.EnsureSchema(ctx, customersRef.Database, customersRef.Schema))

			require.NoError(t, tt.write(t, d, allKindsBatch(t), true))
			assertAllKinds(t, readAllKinds(t, db, customersRef))

			// Replacing again leaves one copy of the rows.
			require.NoError(t, tt.write(t, d, allKindsBatch(t), true))
			n, err := d.CountRows(ctx, customersRef)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			require.NoError(t, tt.write(t, d, allKindsBatch(t), false))
			n, err = d.CountRows(ctx, customersRef)
			require.NoError(t, err)
			assert.Equal(t, int64(4), n)
		})
	}
}

func TestEngineWriteEmptyBatchCreatesTable(t *testing.T) {
	d, db := openEngine(t)
	ctx := context.Background()
	require.NoError(t, d.EnsureSchema(ctx, customersRef.Database, customersRef.Schema))

	empty := types.NewBatch(allKindsBatch(t).Columns)
	require.NoError(t, d.WriteBatch(ctx, customersRef, empty, true))

	n, err := d.CountRows(ctx, customersRef)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Empty(t, readAllKinds(t, db, customersRef))
}

func TestEngineCountRowsMissingTable(t *testing.T) {
	d, _ := openEngine(t)
	ctx := context.Background()
	require.NoError(t, d.EnsureSchema(ctx, customersRef.Database, customersRef.Schema))

	_, err := d.CountRows(ctx, customersRef)
	assert.Error(t, err)
}
