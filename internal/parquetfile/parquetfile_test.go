package parquetfile

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/dbsmedya/warehouse-to-go/internal/types"
)

func sampleBatch(t *testing.T) *types.Batch {
	t.Helper()
	b := types.NewBatch([]types.Column{
		{Name: "ID", Kind: types.KindInt},
		{Name: "SCORE", Kind: types.KindFloat},
		{Name: "ACTIVE", Kind: types.KindBool},
		{Name: "CREATED_AT", Kind: types.KindTimestamp},
		{Name: "BIRTHDAY", Kind: types.KindDate},
		{Name: "EMAIL", Kind: types.KindString},
		{Name: "AVATAR", Kind: types.KindBytes},
	})
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, b.AppendRow([]any{int64(1), 1.5, true, ts, ts, "a@example.com", []byte{1, 2}}))
	require.NoError(t, b.AppendRow([]any{int64(2), nil, false, nil, nil, nil, nil}))
	require.NoError(t, b.AppendRow([]any{nil, 3.25, nil, ts, ts, "c@example.com", []byte{}}))
	return b
}

func TestWriteRoundTripRowCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.parquet")
	require.NoError(t, Write(path, sampleBatch(t)))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	assert.Equal(t, int64(3), pr.GetNumRows())
}

func TestWriteEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	b := types.NewBatch([]types.Column{{Name: "ID", Kind: types.KindInt}})
	require.NoError(t, Write(path, b))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	assert.Equal(t, int64(0), pr.GetNumRows())
}

func TestWriteBadPath(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "missing", "dir", "x.parquet"), sampleBatch(t))
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	var schema struct {
		Tag    string
		Fields []struct{ Tag string }
	}
	require.NoError(t, json.Unmarshal([]byte(Schema(sampleBatch(t).Columns)), &schema))

	assert.Equal(t, "name=parquet_go_root, repetitiontype=REQUIRED", schema.Tag)
	require.Len(t, schema.Fields, 7)
	assert.Equal(t, "name=c0, type=INT64, repetitiontype=OPTIONAL", schema.Fields[0].Tag)
	assert.Equal(t, "name=c1, type=DOUBLE, repetitiontype=OPTIONAL", schema.Fields[1].Tag)
	assert.Equal(t, "name=c2, type=BOOLEAN, repetitiontype=OPTIONAL", schema.Fields[2].Tag)
	assert.Equal(t, "name=c3, type=INT64, convertedtype=TIMESTAMP_MICROS, repetitiontype=OPTIONAL", schema.Fields[3].Tag)
	assert.Equal(t, "name=c4, type=INT32, convertedtype=DATE, repetitiontype=OPTIONAL", schema.Fields[4].Tag)
	assert.Equal(t, "name=c5, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", schema.Fields[5].Tag)
	assert.Equal(t, "name=c6, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", schema.Fields[6].Tag)
}

func TestProjection(t *testing.T) {
	cols := []types.Column{
		{Name: "ID", Kind: types.KindInt},
		{Name: "Raw Bytes", Kind: types.KindBytes},
	}
	assert.Equal(t, `"c0" AS "ID", from_base64(CAST("c1" AS VARCHAR)) AS "Raw Bytes"`, Projection(cols))
}

func TestEncodeValue(t *testing.T) {
	ts := time.Date(1970, 1, 2, 0, 0, 1, 0, time.UTC)

	tests := []struct {
		name     string
		kind     types.Kind
		in       any
		expected any
	}{
		{"int", types.KindInt, int64(5), int64(5)},
		{"int wrong type", types.KindInt, "5", nil},
		{"float", types.KindFloat, 2.5, 2.5},
		{"float inf", types.KindFloat, math.Inf(1), nil},
		{"bool", types.KindBool, true, true},
		{"timestamp", types.KindTimestamp, ts, int64(86401000000)},
		{"date", types.KindDate, ts, int32(1)},
		{"string", types.KindString, "x", "x"},
		{"other stringified", types.KindOther, 12, "12"},
		{"bytes", types.KindBytes, []byte("hi"), "aGk="},
		{"bytes from string", types.KindBytes, "hi", "aGk="},
		{"empty bytes", types.KindBytes, []byte{}, ""},
		{"nil", types.KindString, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, encodeValue(tt.kind, tt.in))
		})
	}
}

func TestEpochDaysBeforeEpoch(t *testing.T) {
	assert.Equal(t, int32(-1), epochDays(time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(19783), epochDays(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}
