package common

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

var lengthRegex = regexp.MustCompile(`\(\s*(\d+)(?:\s*(?:CHAR|BYTE))?\s*(?:,\s*(\d+)\s*)?\)`)

// MapSemantic classifies a database type name. TEXT is treated as large
// text; adapters whose TEXT is an ordinary string type override that.
func MapSemantic(dataType string) types.SemanticType {
	t := strings.ToUpper(strings.TrimSpace(dataType))
	if idx := strings.Index(t, "("); idx > 0 {
		t = strings.TrimSpace(t[:idx])
	}

	switch {
	case strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"), t == "LONG":
		return types.SemanticLargeText
	case strings.Contains(t, "BOOL"):
		return types.SemanticBoolean
	case strings.Contains(t, "TIMESTAMP"), strings.Contains(t, "DATETIME"):
		return types.SemanticTimestamp
	case t == "DATE":
		return types.SemanticDate
	case strings.Contains(t, "INT"), strings.Contains(t, "SERIAL"), strings.Contains(t, "NUMBER"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"), strings.Contains(t, "REAL"),
		strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"):
		return types.SemanticNumeric
	case strings.Contains(t, "CHAR"), strings.Contains(t, "STRING"), strings.Contains(t, "UUID"),
		strings.Contains(t, "ENUM"), strings.Contains(t, "CITEXT"):
		return types.SemanticString
	default:
		return types.SemanticOther
	}
}

// ParseLength extracts the declared length and scale from a type such as
// VARCHAR(50) or NUMERIC(10,2).
func ParseLength(dataType string) (length, scale int) {
	m := lengthRegex.FindStringSubmatch(dataType)
	if m == nil {
		return 0, 0
	}
	length, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		scale, _ = strconv.Atoi(m[2])
	}
	return length, scale
}
