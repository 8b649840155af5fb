package common

import (
	"regexp"
	"strings"
)

// Pre-compiled regex patterns for SQL parsing
var (
	commentRegex    = regexp.MustCompile(`(?m)^\s*--.*$`)
	stringRegex     = regexp.MustCompile(`'(?:[^']|'')*'|"(?:[^"]|"")*"|` + "`(?:[^`]|``)*`")
	identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$#]*$`)
)

type QueryResult struct {
	Columns []string
	Rows    []map[string]interface{}
}

// IsValidIdentifier checks a (possibly schema qualified) table or column name.
func IsValidIdentifier(name string) bool {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return false
	}
	for _, p := range parts {
		if !identifierRegex.MatchString(p) {
			return false
		}
	}
	return true
}

// SplitQualified splits "schema.table" into its parts.
func SplitQualified(name string) (schema, table string) {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

// ParseSQLStatements splits a script on semicolons that are not inside string literals.
func ParseSQLStatements(sql string) []string {
	sql = commentRegex.ReplaceAllString(sql, "")

	stringPositions := make(map[int]bool)
	for _, match := range stringRegex.FindAllStringIndex(sql, -1) {
		for i := match[0]; i < match[1]; i++ {
			stringPositions[i] = true
		}
	}

	var statements []string
	estimatedStmts := strings.Count(sql, ";") + 1
	statements = make([]string, 0, estimatedStmts)

	var currentStatement strings.Builder
	currentStatement.Grow(len(sql) / estimatedStmts)

	for i, char := range sql {
		if char == ';' && !stringPositions[i] {
			stmt := strings.TrimSpace(currentStatement.String())
			if stmt != "" && !strings.HasPrefix(stmt, "/*") && !isTransactionControl(stmt) {
				statements = append(statements, stmt)
			}
			currentStatement.Reset()
		} else {
			currentStatement.WriteRune(char)
		}
	}

	if currentStatement.Len() > 0 {
		stmt := strings.TrimSpace(currentStatement.String())
		if stmt != "" && !strings.HasPrefix(stmt, "/*") && !isTransactionControl(stmt) {
			statements = append(statements, stmt)
		}
	}

	return statements
}

// Scripts carry their own COMMIT for manual runs; executors wrap statements
// in a transaction instead.
func isTransactionControl(stmt string) bool {
	switch strings.ToUpper(stmt) {
	case "COMMIT", "BEGIN", "ROLLBACK", "START TRANSACTION":
		return true
	}
	return false
}
