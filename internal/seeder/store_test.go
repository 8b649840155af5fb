package seeder

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

// memStore is an in-memory Store. Predicates are registered by their exact
// text; an empty predicate matches every row.
type memStore struct {
	tables     map[string]*memTable
	predicates map[string]func(types.Row) bool
	selects    int
}

type memTable struct {
	schema  *types.TableSchema
	columns []string
	rows    []types.Row
}

func newMemStore() *memStore {
	return &memStore{
		tables:     make(map[string]*memTable),
		predicates: make(map[string]func(types.Row) bool),
	}
}

func (m *memStore) addTable(schema *types.TableSchema, rows ...types.Row) {
	t := &memTable{schema: schema, rows: rows}
	for _, c := range schema.Columns {
		t.columns = append(t.columns, c.Name)
	}
	m.tables[strings.ToLower(schema.Name)] = t
}

// addSource registers a plain table with the given columns and no schema metadata.
func (m *memStore) addSource(name string, columns []string, rows ...types.Row) {
	m.tables[strings.ToLower(name)] = &memTable{columns: columns, rows: rows}
}

func (m *memStore) where(pred string, fn func(types.Row) bool) {
	m.predicates[pred] = fn
}

func (m *memStore) table(name string) (*memTable, error) {
	t, ok := m.tables[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, types.ErrSchemaNotFound)
	}
	return t, nil
}

func (m *memStore) match(pred string, row types.Row) (bool, error) {
	if strings.TrimSpace(pred) == "" {
		return true, nil
	}
	fn, ok := m.predicates[pred]
	if !ok {
		return false, fmt.Errorf("unknown predicate %q", pred)
	}
	return fn(row), nil
}

func keyOfRow(row types.Row, cols []string) types.KeyTuple {
	key := make(types.KeyTuple, len(cols))
	for i, c := range cols {
		key[i], _ = row.Get(c)
	}
	return key
}

func (m *memStore) GetSchema(ctx context.Context, table string) (*types.TableSchema, error) {
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	if t.schema == nil {
		return nil, fmt.Errorf("%s has no schema: %w", table, types.ErrSchemaNotFound)
	}
	return t.schema, nil
}

func (m *memStore) TableExists(ctx context.Context, table string) (bool, error) {
	_, ok := m.tables[strings.ToLower(table)]
	return ok, nil
}

func (m *memStore) GetForeignKeys(ctx context.Context, table string) (map[string]types.ForeignKey, error) {
	s, err := m.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	return s.ForeignKeys, nil
}

func (m *memStore) GetCheckConstraints(ctx context.Context, table string) (map[string][]string, error) {
	s, err := m.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	return s.Checks, nil
}

func (m *memStore) SampleReferencedValues(ctx context.Context, table, column string, limit int) ([]interface{}, error) {
	return m.ColumnValues(ctx, table, column, limit)
}

func (m *memStore) SelectRows(ctx context.Context, sel types.Selection) ([]types.Row, error) {
	m.selects++
	if sel.Source.IsQuery() {
		return nil, fmt.Errorf("queries are not supported")
	}
	t, err := m.table(sel.Source.Table)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(sel.Exclude))
	for _, k := range sel.Exclude {
		excluded[k.Encode()] = true
	}

	var out []types.Row
	for _, row := range t.rows {
		ok, err := m.match(sel.Where, row)
		if err != nil {
			return nil, err
		}
		if !ok || excluded[keyOfRow(row, sel.KeyColumns).Encode()] {
			continue
		}
		out = append(out, row.Clone())
		if sel.Limit > 0 && len(out) == sel.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) SelectKeys(ctx context.Context, src types.SourceSpec, where string, keyColumns []string) ([]types.KeyTuple, error) {
	rows, err := m.SelectRows(ctx, types.Selection{Source: src, Where: where, KeyColumns: keyColumns})
	if err != nil {
		return nil, err
	}
	keys := make([]types.KeyTuple, len(rows))
	for i, row := range rows {
		keys[i] = keyOfRow(row, keyColumns)
	}
	return keys, nil
}

func (m *memStore) KeyExists(ctx context.Context, table string, keyColumns []string, key types.KeyTuple) (bool, error) {
	t, err := m.table(table)
	if err != nil {
		return false, err
	}
	for _, row := range t.rows {
		if keyOfRow(row, keyColumns).Equal(key) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ValueExists(ctx context.Context, table, column string, value interface{}) (bool, error) {
	return m.KeyExists(ctx, table, []string{column}, types.KeyTuple{value})
}

func (m *memStore) ColumnValues(ctx context.Context, table, column string, limit int) ([]interface{}, error) {
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var values []interface{}
	for _, row := range t.rows {
		v, _ := row.Get(column)
		if v == nil {
			continue
		}
		enc := types.KeyTuple{v}.Encode()
		if seen[enc] {
			continue
		}
		seen[enc] = true
		values = append(values, types.Normalize(v))
		if limit > 0 && len(values) == limit {
			break
		}
	}
	return values, nil
}

func (m *memStore) MaxValue(ctx context.Context, src types.SourceSpec, column string) (interface{}, error) {
	t, err := m.table(src.Table)
	if err != nil {
		return nil, err
	}
	var max interface{}
	for _, row := range t.rows {
		v, _ := row.Get(column)
		n, ok := types.Normalize(v).(int64)
		if !ok {
			continue
		}
		if cur, set := max.(int64); !set || n > cur {
			max = n
		}
	}
	return max, nil
}

func (m *memStore) SourceColumns(ctx context.Context, src types.SourceSpec) ([]string, error) {
	if src.IsQuery() {
		return nil, fmt.Errorf("queries are not supported")
	}
	t, err := m.table(src.Table)
	if err != nil {
		return nil, err
	}
	return t.columns, nil
}
