// Package types holds the columnar batch shared by the extractor and the local writers.
package types

import (
	"database/sql"
	"fmt"
	"time"
)

// Column is one column of a batch. Values holds one entry per row; nil is null.
type Column struct {
	Name         string
	DatabaseType string
	Kind         Kind
	Values       []interface{}
}

// Batch is a chunk of rows fetched from the warehouse, stored column by column.
type Batch struct {
	Columns []Column
	Rows    int
}

// NewBatch returns an empty batch with the schema of cols. Values are not copied.
func NewBatch(cols []Column) *Batch {
	b := &Batch{Columns: make([]Column, len(cols))}
	for i, c := range cols {
		b.Columns[i] = Column{Name: c.Name, DatabaseType: c.DatabaseType, Kind: c.Kind}
	}
	return b
}

// ColumnsFromSQL derives batch columns from driver column metadata.
func ColumnsFromSQL(cts []*sql.ColumnType) []Column {
	cols := make([]Column, len(cts))
	for i, ct := range cts {
		scale := UnknownScale
		if _, s, ok := ct.DecimalSize(); ok {
			scale = s
		}
		cols[i] = Column{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Kind:         KindFor(ct.DatabaseTypeName(), ct.ScanType(), scale),
		}
	}
	return cols
}

// AppendRow adds one row. values must have one entry per column.
func (b *Batch) AppendRow(values []interface{}) error {
	if len(values) != len(b.Columns) {
		return fmt.Errorf("row has %d values, batch has %d columns", len(values), len(b.Columns))
	}
	for i, v := range values {
		b.Columns[i].Values = append(b.Columns[i].Values, v)
	}
	b.Rows++
	return nil
}

// Row returns the values of row i across all columns.
func (b *Batch) Row(i int) []interface{} {
	row := make([]interface{}, len(b.Columns))
	for c := range b.Columns {
		row[c] = b.Columns[c].Values[i]
	}
	return row
}

// ColumnNames returns the column names in order.
func (b *Batch) ColumnNames() []string {
	names := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		names[i] = c.Name
	}
	return names
}

// Dropped counts the non-null values of one column that Normalize could not
// convert and replaced with null, such as NUMBER(38,0) values beyond int64.
type Dropped struct {
	Column string
	Kind   Kind
	Count  int
}

// Normalize rewrites values in place into the representation the local writers
// expect: Int columns hold int64, Float columns hold float64, String columns hold
// string. NaN and unconvertible numerics become nil. Other kinds are untouched.
// Columns that lost values other than NaN are returned.
func Normalize(b *Batch) []Dropped {
	var dropped []Dropped
	for c := range b.Columns {
		col := &b.Columns[c]
		n := 0
		for i, v := range col.Values {
			out := normalizeValue(col.Kind, v)
			if out == nil && v != nil && !IsNaN(v) {
				n++
			}
			col.Values[i] = out
		}
		if n > 0 {
			dropped = append(dropped, Dropped{Column: col.Name, Kind: col.Kind, Count: n})
		}
	}
	return dropped
}

func normalizeValue(kind Kind, v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch kind {
	case KindInt:
		if IsNaN(v) {
			return nil
		}
		if n, ok := ToInt64(v); ok {
			return n
		}
		return nil
	case KindFloat:
		if f, ok := ToFloat64(v); ok {
			return f
		}
		return nil
	case KindString:
		switch s := v.(type) {
		case []byte:
			return string(s)
		case string:
			return s
		case time.Time:
			// TIME columns arrive as a time on the zero date.
			return s.Format("15:04:05.999999999")
		default:
			return fmt.Sprint(s)
		}
	default:
		return v
	}
}
