package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/Masterminds/squirrel"
)

// Querier runs a read query and materializes the result.
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (*QueryResult, error)
}

// RowStore implements row-level reads once for every provider; adapters
// differ only in their Querier and placeholder format.
type RowStore struct {
	q  Querier
	qb squirrel.StatementBuilderType
}

func NewRowStore(q Querier, qb squirrel.StatementBuilderType) *RowStore {
	return &RowStore{q: q, qb: qb}
}

func (s *RowStore) SelectRows(ctx context.Context, sel types.Selection) ([]types.Row, error) {
	query, args, err := BuildSelect(s.qb, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to build selection on %s: %w", sel.Source.Label(), err)
	}

	result, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", sel.Source.Label(), err)
	}

	rows := make([]types.Row, 0, len(result.Rows))
	for _, r := range result.Rows {
		row := make(types.Row, len(r))
		for k, v := range r {
			row[k] = types.Normalize(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SelectKeys returns the key tuples of every row matching where.
func (s *RowStore) SelectKeys(ctx context.Context, src types.SourceSpec, where string, keyColumns []string) ([]types.KeyTuple, error) {
	rows, err := s.SelectRows(ctx, types.Selection{
		Source:     src,
		Columns:    keyColumns,
		Where:      where,
		KeyColumns: keyColumns,
	})
	if err != nil {
		return nil, err
	}

	keys := make([]types.KeyTuple, 0, len(rows))
	for _, row := range rows {
		key := make(types.KeyTuple, len(keyColumns))
		for i, c := range keyColumns {
			key[i], _ = row.Get(c)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *RowStore) KeyExists(ctx context.Context, table string, keyColumns []string, key types.KeyTuple) (bool, error) {
	if !IsValidIdentifier(table) {
		return false, fmt.Errorf("invalid table name: %q", table)
	}
	eq, err := MatchKey(keyColumns, key)
	if err != nil {
		return false, err
	}
	return s.exists(ctx, s.qb.Select("1").From(table).Where(eq).Limit(1))
}

func (s *RowStore) ValueExists(ctx context.Context, table, column string, value interface{}) (bool, error) {
	if !IsValidIdentifier(table) || !IsValidIdentifier(column) {
		return false, fmt.Errorf("invalid reference %s.%s", table, column)
	}
	return s.exists(ctx, s.qb.Select("1").From(table).Where(squirrel.Eq{column: types.Normalize(value)}).Limit(1))
}

func (s *RowStore) exists(ctx context.Context, b squirrel.SelectBuilder) (bool, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return false, err
	}
	result, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return len(result.Rows) > 0, nil
}

// ColumnValues returns distinct non-null values of a column in ascending
// order. A limit of zero or less returns every value.
func (s *RowStore) ColumnValues(ctx context.Context, table, column string, limit int) ([]interface{}, error) {
	if !IsValidIdentifier(table) || !IsValidIdentifier(column) {
		return nil, fmt.Errorf("invalid reference %s.%s", table, column)
	}

	b := s.qb.Select(column).Distinct().From(table).
		Where(squirrel.NotEq{column: nil}).
		OrderBy(column)
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	result, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s.%s: %w", table, column, err)
	}

	values := make([]interface{}, 0, len(result.Rows))
	for _, r := range result.Rows {
		for k, v := range r {
			if strings.EqualFold(k, column) || len(r) == 1 {
				values = append(values, types.Normalize(v))
				break
			}
		}
	}
	return values, nil
}

func (s *RowStore) SampleReferencedValues(ctx context.Context, table, column string, limit int) ([]interface{}, error) {
	return s.ColumnValues(ctx, table, column, limit)
}

// MaxValue returns MAX(column) over a source, nil when it is empty.
func (s *RowStore) MaxValue(ctx context.Context, src types.SourceSpec, column string) (interface{}, error) {
	if !IsValidIdentifier(column) {
		return nil, fmt.Errorf("invalid column name: %q", column)
	}
	from, err := SourceFrom(src)
	if err != nil {
		return nil, err
	}

	query, args, err := s.qb.Select("MAX(" + column + ") AS max_value").From(from).ToSql()
	if err != nil {
		return nil, err
	}
	result, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read max %s from %s: %w", column, src.Label(), err)
	}
	if len(result.Rows) == 0 {
		return nil, nil
	}
	for _, v := range result.Rows[0] {
		return types.Normalize(v), nil
	}
	return nil, nil
}

// SourceColumns returns the column names a source produces.
func (s *RowStore) SourceColumns(ctx context.Context, src types.SourceSpec) ([]string, error) {
	from, err := SourceFrom(src)
	if err != nil {
		return nil, err
	}
	query, args, err := s.qb.Select("*").From(from).Where("1 = 0").ToSql()
	if err != nil {
		return nil, err
	}
	result, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to describe source %s: %w", src.Label(), err)
	}
	return result.Columns, nil
}
