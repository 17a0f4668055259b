package types

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ToInt64 converts a driver value to int64.
// Supports every Go integer type, *big.Int, float32/float64 (truncated toward
// zero) and numeric strings or bytes. ok is false for nil, NaN, infinities, values that
// overflow int64 and anything unparseable.
func ToInt64(v interface{}) (n int64, ok bool) {
	switch i := v.(type) {
	case nil:
		return 0, false
	case int64:
		return i, true
	case int:
		return int64(i), true
	case int32:
		return int64(i), true
	case int16:
		return int64(i), true
	case int8:
		return int64(i), true
	case uint:
		return uintToInt64(uint64(i))
	case uint64:
		return uintToInt64(i)
	case uint32:
		return int64(i), true
	case uint16:
		return int64(i), true
	case uint8:
		return int64(i), true
	case *big.Int:
		if i == nil || !i.IsInt64() {
			return 0, false
		}
		return i.Int64(), true
	case float64:
		return floatToInt64(i)
	case float32:
		return floatToInt64(float64(i))
	case string:
		return parseInt64(i)
	case []byte:
		return parseInt64(string(i))
	default:
		return 0, false
	}
}

// ToFloat64 converts a driver value to float64.
// ok is false for nil, NaN in any spelling and anything unparseable.
func ToFloat64(v interface{}) (f float64, ok bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case string:
		return parseFloat64(x)
	case []byte:
		return parseFloat64(string(x))
	default:
		n, isInt := ToInt64(v)
		if !isInt {
			return 0, false
		}
		f = float64(n)
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// IsNaN reports whether v is a NaN float or the string "NaN" in any case.
func IsNaN(v interface{}) bool {
	switch x := v.(type) {
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "nan")
	case []byte:
		return strings.EqualFold(strings.TrimSpace(string(x)), "nan")
	default:
		return false
	}
}

func uintToInt64(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, false
	}
	return int64(t), true
}

func parseInt64(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	// NUMBER(38,0) values sometimes arrive as "42.000" or "4.2e1"
	f, ok := parseFloat64(s)
	if !ok {
		return 0, false
	}
	return floatToInt64(f)
}

func parseFloat64(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
