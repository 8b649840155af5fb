package common

import (
	"regexp"
	"strings"
)

var (
	castRegex      = regexp.MustCompile(`(?i)::\s*(?:character varying|double precision|timestamp(?: with(?:out)? time zone)?|[a-z_][a-z0-9_]*)(?:\[\])?`)
	introducerRgx  = regexp.MustCompile(`(?i)(^|[\s,(])_[a-z0-9]+'`)
	quotedIdentRgx = regexp.MustCompile("[`\"]")
)

// ParseCheckInList extracts the allowed values of a simple enumerated CHECK
// constraint on column. Both the portable form `col IN ('A','B')` and the
// PostgreSQL rendering `col = ANY (ARRAY['A', 'B'])` are understood. It
// returns nil when the condition is not a simple list on that column.
func ParseCheckInList(column, condition string) []string {
	cond := castRegex.ReplaceAllString(condition, "")
	cond = introducerRgx.ReplaceAllString(cond, "${1}'")
	cond = quotedIdentRgx.ReplaceAllString(cond, "")

	col := regexp.QuoteMeta(column)
	// unwrap "(col)" produced by some renderers
	cond = regexp.MustCompile(`(?i)\(\s*`+col+`\s*\)`).ReplaceAllString(cond, column)

	inList := regexp.MustCompile(`(?i)(?:^|[^\w$#])` + col + `\s+IN\s*\(([^)]*)\)`)
	if m := inList.FindStringSubmatch(cond); m != nil {
		return splitValues(m[1])
	}

	anyArray := regexp.MustCompile(`(?i)(?:^|[^\w$#])` + col + `\s*=\s*ANY\s*\(\s*\(?\s*ARRAY\s*\[([^\]]*)\]`)
	if m := anyArray.FindStringSubmatch(cond); m != nil {
		return splitValues(m[1])
	}
	return nil
}

func splitValues(list string) []string {
	var (
		values  []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		v := strings.TrimSpace(current.String())
		v = strings.Trim(v, "'")
		v = strings.ReplaceAll(v, "''", "'")
		if v != "" {
			values = append(values, v)
		}
		current.Reset()
	}
	for _, r := range list {
		switch {
		case r == '\'':
			quoted = !quoted
			current.WriteRune(r)
		case r == ',' && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return values
}
