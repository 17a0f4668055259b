// Package parquetfile writes normalized batches to Parquet for the DuckDB
// read_parquet fallback load.
package parquetfile

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/dbsmedya/warehouse-to-go/internal/sqlutil"
	"github.com/dbsmedya/warehouse-to-go/internal/types"
)

// parallelism is the number of marshalling goroutines used by the writer.
const parallelism = 4

// FieldName is the name column i is stored under. Positional names keep
// arbitrary warehouse column names out of the schema tag syntax.
func FieldName(i int) string {
	return fmt.Sprintf("c%d", i)
}

// Write stores batch at path. Every field is OPTIONAL so nulls survive.
func Write(path string, batch *types.Batch) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	pw, err := writer.NewJSONWriter(Schema(batch.Columns), fw, parallelism)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := 0; i < batch.Rows; i++ {
		row, err := encodeRow(batch, i)
		if err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return fw.Close()
}

// Schema returns the parquet-go JSON schema for cols.
func Schema(cols []types.Column) string {
	fields := make([]map[string]string, 0, len(cols))
	for i, c := range cols {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", FieldName(i), physicalType(c.Kind)),
		})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func physicalType(k types.Kind) string {
	switch k {
	case types.KindInt:
		return "type=INT64"
	case types.KindFloat:
		return "type=DOUBLE"
	case types.KindBool:
		return "type=BOOLEAN"
	case types.KindTimestamp:
		return "type=INT64, convertedtype=TIMESTAMP_MICROS"
	case types.KindDate:
		return "type=INT32, convertedtype=DATE"
	default:
		// bytes are stored as base64 text and decoded by Projection
		return "type=BYTE_ARRAY, convertedtype=UTF8"
	}
}

// Projection returns the read_parquet select list that restores the original
// column names. Binary columns hold base64 text and are decoded back to BLOB.
func Projection(cols []types.Column) string {
	exprs := make([]string, len(cols))
	for i, c := range cols {
		field := sqlutil.QuoteDouble(FieldName(i))
		if c.Kind == types.KindBytes {
			field = "from_base64(CAST(" + field + " AS VARCHAR))"
		}
		exprs[i] = field + " AS " + sqlutil.QuoteDouble(c.Name)
	}
	return strings.Join(exprs, ", ")
}

func encodeRow(batch *types.Batch, i int) (string, error) {
	row := make(map[string]any, len(batch.Columns))
	for c, col := range batch.Columns {
		row[FieldName(c)] = encodeValue(col.Kind, col.Values[i])
	}
	b, err := json.Marshal(row)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodeValue maps a normalized value onto the physical parquet representation.
// Values that do not fit their column kind are written as null.
func encodeValue(kind types.Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case types.KindInt:
		if n, ok := v.(int64); ok {
			return n
		}
		return nil
	case types.KindFloat:
		f, ok := v.(float64)
		if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil
		}
		return f
	case types.KindBool:
		if b, ok := v.(bool); ok {
			return b
		}
		return nil
	case types.KindTimestamp:
		if t, ok := v.(time.Time); ok {
			return t.UTC().UnixMicro()
		}
		return nil
	case types.KindDate:
		if t, ok := v.(time.Time); ok {
			return epochDays(t)
		}
		return nil
	case types.KindBytes:
		switch b := v.(type) {
		case []byte:
			return base64.StdEncoding.EncodeToString(b)
		case string:
			return base64.StdEncoding.EncodeToString([]byte(b))
		}
		return nil
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

func epochDays(t time.Time) int32 {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int32(midnight.Unix() / 86400)
}
