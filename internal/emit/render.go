package emit

import (
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

type renderer struct {
	dialect database.Dialect
	schema  *types.TableSchema
	table   string
}

func (r *renderer) literal(v interface{}) string {
	if seq, ok := v.(types.SequenceRef); ok {
		return r.dialect.SequenceExpr(seq.Name)
	}
	return r.dialect.QuoteLiteral(v)
}

func (r *renderer) keyMatch(key types.KeyTuple) string {
	parts := make([]string, len(r.schema.KeyColumns))
	for i, c := range r.schema.KeyColumns {
		if key[i] == nil {
			parts[i] = c + " IS NULL"
			continue
		}
		parts[i] = fmt.Sprintf("%s = %s", c, r.literal(key[i]))
	}
	return strings.Join(parts, " AND ")
}

// keysPredicate matches every given key: an IN list for single-column
// keys, a disjunction of conjunctions otherwise.
func (r *renderer) keysPredicate(keys []types.KeyTuple) string {
	if len(r.schema.KeyColumns) == 1 {
		col := r.schema.KeyColumns[0]
		var values []string
		hasNull := false
		for _, k := range keys {
			if k[0] == nil {
				hasNull = true
				continue
			}
			values = append(values, r.literal(k[0]))
		}
		var clauses []string
		if len(values) > 0 {
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", col, strings.Join(values, ", ")))
		}
		if hasNull {
			clauses = append(clauses, col+" IS NULL")
		}
		if len(clauses) == 1 {
			return clauses[0]
		}
		return "(" + strings.Join(clauses, " OR ") + ")"
	}

	clauses := make([]string, len(keys))
	for i, k := range keys {
		clauses[i] = "(" + r.keyMatch(k) + ")"
	}
	return strings.Join(clauses, " OR ")
}

func (r *renderer) insert(row *types.ResolvedRow) string {
	var cols, values []string
	for _, c := range r.schema.InsertableColumns() {
		v, ok := row.Values.Get(c.Name)
		if !ok {
			continue
		}
		cols = append(cols, c.Name)
		values = append(values, r.literal(v))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.table, strings.Join(cols, ", "), strings.Join(values, ", "))
}

func (r *renderer) update(row *types.ResolvedRow) string {
	if len(row.Set) == 0 {
		return ""
	}
	sets := make([]string, len(row.Set))
	for i, cv := range row.Set {
		sets[i] = fmt.Sprintf("%s = %s", cv.Column, r.literal(cv.Value))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", r.table, strings.Join(sets, ", "), r.keyMatch(row.Key))
}

// restoreInsert copies the backed up rows back. Identity columns keep their
// original values where the provider allows overriding them; generated
// columns are always recomputed.
func (r *renderer) restoreInsert(backup string) string {
	override := r.dialect.IdentityInsertClause()
	var cols []string
	overridden := false
	for _, c := range r.schema.Columns {
		if c.Generated || (c.Identity && override == "") {
			continue
		}
		if c.Identity {
			overridden = true
		}
		cols = append(cols, c.Name)
	}

	list := strings.Join(cols, ", ")
	if overridden {
		return fmt.Sprintf("INSERT INTO %s (%s) %s SELECT %s FROM %s", r.table, list, override, list, backup)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", r.table, list, list, backup)
}
