package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

// QuoteStandard quotes a string literal by doubling single quotes.
func QuoteStandard(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// FormatValue renders v as a SQL literal, using quote for strings.
func FormatValue(v interface{}, quote func(string) string) string {
	switch n := types.Normalize(v).(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		if n {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return quote(n.Format("2006-01-02 15:04:05"))
	case string:
		return quote(n)
	default:
		return quote(fmt.Sprintf("%v", n))
	}
}
