package common

import (
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/Masterminds/squirrel"
)

// SourceFrom renders the FROM target of a source: a table name or an inline
// query aliased as src.
func SourceFrom(src types.SourceSpec) (string, error) {
	if src.IsQuery() {
		q := strings.TrimSpace(src.Query)
		q = strings.TrimSpace(strings.TrimRight(q, ";"))
		return "(" + q + ") src", nil
	}
	if !IsValidIdentifier(src.Table) {
		return "", fmt.Errorf("invalid table name: %q", src.Table)
	}
	return src.Table, nil
}

// ExcludeKeys builds a predicate rejecting every row whose key is in keys.
// It returns nil when there is nothing to exclude.
func ExcludeKeys(keyColumns []string, keys []types.KeyTuple) (squirrel.Sqlizer, error) {
	if len(keys) == 0 || len(keyColumns) == 0 {
		return nil, nil
	}
	for _, c := range keyColumns {
		if !IsValidIdentifier(c) {
			return nil, fmt.Errorf("invalid key column: %q", c)
		}
	}

	if len(keyColumns) == 1 {
		col := keyColumns[0]
		values := make([]interface{}, 0, len(keys))
		hasNull := false
		for _, k := range keys {
			if len(k) != 1 {
				return nil, fmt.Errorf("key %s does not match key columns %v", k, keyColumns)
			}
			v := types.Normalize(k[0])
			if v == nil {
				hasNull = true
				continue
			}
			values = append(values, v)
		}
		// a NULL inside NOT IN makes the predicate NULL for every row
		var and squirrel.And
		if len(values) > 0 {
			and = append(and, squirrel.NotEq{col: values})
		}
		if hasNull {
			and = append(and, squirrel.NotEq{col: nil})
		}
		if len(and) == 1 {
			return and[0], nil
		}
		return and, nil
	}

	or := make(squirrel.Or, 0, len(keys))
	for _, k := range keys {
		if len(k) != len(keyColumns) {
			return nil, fmt.Errorf("key %s does not match key columns %v", k, keyColumns)
		}
		eq := squirrel.Eq{}
		for i, c := range keyColumns {
			eq[c] = types.Normalize(k[i])
		}
		or = append(or, eq)
	}
	sql, args, err := or.ToSql()
	if err != nil {
		return nil, err
	}
	return squirrel.Expr("NOT "+sql, args...), nil
}

// MatchKey builds an equality predicate on every key column.
func MatchKey(keyColumns []string, key types.KeyTuple) (squirrel.Eq, error) {
	if len(key) != len(keyColumns) {
		return nil, fmt.Errorf("key %s does not match key columns %v", key, keyColumns)
	}
	eq := squirrel.Eq{}
	for i, c := range keyColumns {
		if !IsValidIdentifier(c) {
			return nil, fmt.Errorf("invalid key column: %q", c)
		}
		eq[c] = types.Normalize(key[i])
	}
	return eq, nil
}

// BuildSelect renders a Selection: predicate, key exclusion, descending
// order on the ordering columns (the key columns when none are given) and limit.
func BuildSelect(qb squirrel.StatementBuilderType, sel types.Selection) (string, []interface{}, error) {
	from, err := SourceFrom(sel.Source)
	if err != nil {
		return "", nil, err
	}

	columns := sel.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	} else {
		for _, c := range columns {
			if !IsValidIdentifier(c) {
				return "", nil, fmt.Errorf("invalid column name: %q", c)
			}
		}
	}

	b := qb.Select(columns...).From(from)
	if where := strings.TrimSpace(sel.Where); where != "" {
		b = b.Where("(" + where + ")")
	}

	exclude, err := ExcludeKeys(sel.KeyColumns, sel.Exclude)
	if err != nil {
		return "", nil, err
	}
	if exclude != nil {
		b = b.Where(exclude)
	}

	order := sel.OrderBy
	if len(order) == 0 {
		order = sel.KeyColumns
	}
	for _, c := range order {
		if !IsValidIdentifier(c) {
			return "", nil, fmt.Errorf("invalid order column: %q", c)
		}
		b = b.OrderBy(c + " DESC")
	}

	if sel.Limit > 0 {
		b = b.Limit(uint64(sel.Limit))
	}
	return b.ToSql()
}
