package types

import (
	"database/sql"
	"reflect"
	"strings"
	"time"
)

// Kind is the normalized category of a remote column.
type Kind int

const (
	KindOther Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTimestamp
	KindDate
	KindString
	KindBytes
)

var kindNames = map[Kind]string{
	KindOther:     "other",
	KindInt:       "int",
	KindFloat:     "float",
	KindBool:      "bool",
	KindTimestamp: "timestamp",
	KindDate:      "date",
	KindString:    "string",
	KindBytes:     "bytes",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "other"
}

// UnknownScale is passed to KindFor when the driver reports no decimal scale.
const UnknownScale int64 = -1

var typeNameKinds = map[string]Kind{
	// integers
	"INT": KindInt, "INTEGER": KindInt, "BIGINT": KindInt, "SMALLINT": KindInt,
	"TINYINT": KindInt, "MEDIUMINT": KindInt, "BYTEINT": KindInt,
	"INT2": KindInt, "INT4": KindInt, "INT8": KindInt,
	"UNSIGNED INT": KindInt, "UNSIGNED BIGINT": KindInt, "UNSIGNED SMALLINT": KindInt,
	"UNSIGNED TINYINT": KindInt, "UNSIGNED MEDIUMINT": KindInt,
	"SERIAL": KindInt, "BIGSERIAL": KindInt, "YEAR": KindInt,

	// floats
	"FLOAT": KindFloat, "FLOAT4": KindFloat, "FLOAT8": KindFloat, "REAL": KindFloat,
	"DOUBLE": KindFloat, "DOUBLE PRECISION": KindFloat,
	"MONEY": KindFloat, "SMALLMONEY": KindFloat,

	// booleans
	"BOOL": KindBool, "BOOLEAN": KindBool,

	// timestamps
	"TIMESTAMP": KindTimestamp, "TIMESTAMP_NTZ": KindTimestamp, "TIMESTAMP_LTZ": KindTimestamp,
	"TIMESTAMP_TZ": KindTimestamp, "TIMESTAMPTZ": KindTimestamp, "DATETIME": KindTimestamp,
	"DATETIME2": KindTimestamp, "SMALLDATETIME": KindTimestamp, "DATETIMEOFFSET": KindTimestamp,

	"DATE": KindDate,

	// text, including semi-structured values that drivers hand back as JSON text
	"TEXT": KindString, "STRING": KindString, "VARCHAR": KindString, "CHAR": KindString,
	"NVARCHAR": KindString, "NCHAR": KindString, "NTEXT": KindString, "BPCHAR": KindString,
	"CHARACTER": KindString, "CHARACTER VARYING": KindString,
	"TINYTEXT": KindString, "MEDIUMTEXT": KindString, "LONGTEXT": KindString,
	"UUID": KindString, "JSON": KindString, "JSONB": KindString, "XML": KindString,
	"VARIANT": KindString, "OBJECT": KindString, "ARRAY": KindString,
	"ENUM": KindString, "SET": KindString, "INET": KindString, "CIDR": KindString,
	"TIME": KindString, "TIMETZ": KindString, "INTERVAL": KindString,

	// binary
	"BINARY": KindBytes, "VARBINARY": KindBytes, "BLOB": KindBytes, "BYTEA": KindBytes,
	"TINYBLOB": KindBytes, "MEDIUMBLOB": KindBytes, "LONGBLOB": KindBytes, "IMAGE": KindBytes,
	"UNIQUEIDENTIFIER": KindBytes,
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// KindFor classifies a remote column from the driver's type name, falling back to
// the Go scan type. Exact numerics (NUMBER, DECIMAL, Snowflake FIXED) are integers
// when their scale is zero and floats otherwise.
func KindFor(databaseTypeName string, scanType reflect.Type, scale int64) Kind {
	name := strings.ToUpper(strings.TrimSpace(databaseTypeName))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}

	switch name {
	case "FIXED", "NUMBER", "NUMERIC", "DECIMAL", "DEC":
		if scale == 0 {
			return KindInt
		}
		return KindFloat
	case "BIT":
		// SQL Server BIT is a boolean, MySQL BIT(n) is a bit string.
		if scanType != nil && scanType.Kind() == reflect.Bool {
			return KindBool
		}
		return KindBytes
	}

	if k, ok := typeNameKinds[name]; ok {
		return k
	}
	return kindForScanType(scanType)
}

func kindForScanType(t reflect.Type) Kind {
	if t == nil {
		return KindOther
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case timeType, reflect.TypeOf(sql.NullTime{}):
		return KindTimestamp
	case bytesType, reflect.TypeOf(sql.RawBytes{}):
		return KindBytes
	case reflect.TypeOf(sql.NullInt64{}), reflect.TypeOf(sql.NullInt32{}), reflect.TypeOf(sql.NullInt16{}), reflect.TypeOf(sql.NullByte{}):
		return KindInt
	case reflect.TypeOf(sql.NullFloat64{}):
		return KindFloat
	case reflect.TypeOf(sql.NullBool{}):
		return KindBool
	case reflect.TypeOf(sql.NullString{}):
		return KindString
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.Bool:
		return KindBool
	case reflect.String:
		return KindString
	default:
		return KindOther
	}
}
