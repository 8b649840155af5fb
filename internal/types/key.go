package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// KeyTuple is the ordered set of key column values identifying one row.
// Equality is structural: see Encode.
type KeyTuple []any

// Encode renders the tuple in a canonical form. Integral numbers compare
// equal regardless of their Go type, strings are case-sensitive and
// timestamps are compared in UTC.
func (k KeyTuple) Encode() string {
	var b strings.Builder
	for i, v := range k {
		if i > 0 {
			b.WriteByte('|')
		}
		switch n := Normalize(v).(type) {
		case nil:
			b.WriteString("n")
		case int64:
			b.WriteString("i:")
			b.WriteString(strconv.FormatInt(n, 10))
		case float64:
			b.WriteString("f:")
			b.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
		case bool:
			b.WriteString("b:")
			b.WriteString(strconv.FormatBool(n))
		case time.Time:
			b.WriteString("t:")
			b.WriteString(n.UTC().Format(time.RFC3339Nano))
		case string:
			fmt.Fprintf(&b, "s%d:%s", len(n), n)
		default:
			s := fmt.Sprint(n)
			fmt.Fprintf(&b, "s%d:%s", len(s), s)
		}
	}
	return b.String()
}

func (k KeyTuple) Equal(other KeyTuple) bool {
	return len(k) == len(other) && k.Encode() == other.Encode()
}

func (k KeyTuple) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		switch n := Normalize(v).(type) {
		case nil:
			parts[i] = "NULL"
		case string:
			parts[i] = strconv.Quote(n)
		case time.Time:
			parts[i] = n.Format("2006-01-02 15:04:05")
		default:
			parts[i] = fmt.Sprint(n)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Normalize folds driver-specific representations into int64, float64,
// string, bool, time.Time or nil.
func Normalize(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(n)
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return float64(n)
		}
		return int64(n)
	case float32:
		return normalizeFloat(float64(n))
	case float64:
		return normalizeFloat(n)
	case time.Time:
		return n
	case string, bool:
		return n
	case fmt.Stringer:
		return n.String()
	default:
		return v
	}
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// Coerce converts v to the representation expected by the column's semantic
// type. Values that cannot be converted are returned normalized but unchanged.
func Coerce(c Column, v any) any {
	n := Normalize(v)
	s, isString := n.(string)
	if !isString {
		return n
	}
	switch c.Semantic {
	case SemanticNumeric:
		t := strings.TrimSpace(s)
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return normalizeFloat(f)
		}
	case SemanticDate, SemanticTimestamp:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return ts
			}
		}
	case SemanticBoolean:
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	}
	return s
}
