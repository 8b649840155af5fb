package common

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLQuerier adapts a database/sql handle to Querier.
type SQLQuerier struct {
	DB *sql.DB
}

func (q SQLQuerier) Query(ctx context.Context, query string, args ...interface{}) (*QueryResult, error) {
	rows, err := q.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()
	return ScanRows(rows)
}

func ScanRows(rows *sql.Rows) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &QueryResult{Columns: columns, Rows: results}, nil
}

// ExecScript runs statements in a single transaction.
func ExecScript(ctx context.Context, db *sql.DB, statements []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SplitLeadingDDL separates the CREATE TABLE statements at the head of a
// script from the rest, for providers where DDL commits implicitly.
func SplitLeadingDDL(statements []string) (ddl, rest []string) {
	i := 0
	for ; i < len(statements); i++ {
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(statements[i])), "CREATE TABLE") {
			break
		}
	}
	return statements[:i], statements[i:]
}
