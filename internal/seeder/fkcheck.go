package seeder

import (
	"context"
	"fmt"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

// fkValidator confirms foreign key values exist in their referenced table
// and replaces dangling ones with a known-good value.
type fkValidator struct {
	store    Store
	schema   *types.TableSchema
	exists   map[string]bool
	fallback map[string][]interface{}
}

func newFKValidator(store Store, schema *types.TableSchema) *fkValidator {
	return &fkValidator{
		store:    store,
		schema:   schema,
		exists:   make(map[string]bool),
		fallback: make(map[string][]interface{}),
	}
}

// Validate checks the foreign key columns of values, all of them when
// columns is empty. Dangling values are corrected in place and described in
// the returned notes. A *types.ForeignKeyError is returned when the
// referenced table has no rows at all.
func (v *fkValidator) Validate(ctx context.Context, values types.Row, columns []string, key types.KeyTuple) ([]string, error) {
	if len(v.schema.ForeignKeys) == 0 {
		return nil, nil
	}
	if len(columns) == 0 {
		for _, c := range v.schema.Columns {
			columns = append(columns, c.Name)
		}
	}

	var notes []string
	for _, col := range columns {
		fk, ok := v.schema.ForeignKey(col)
		if !ok {
			continue
		}
		value, _ := values.Get(col)
		if value == nil {
			continue
		}
		if _, isSeq := value.(types.SequenceRef); isSeq {
			continue
		}

		ok, err := v.valueExists(ctx, fk, value)
		if err != nil {
			return notes, err
		}
		if ok {
			continue
		}

		replacement, err := v.replacement(ctx, fk)
		if err != nil {
			return notes, err
		}
		if replacement == nil {
			return notes, &types.ForeignKeyError{
				Column:    col,
				Value:     value,
				RefTable:  fk.RefTable,
				RefColumn: fk.RefColumn,
				Key:       key,
			}
		}
		values[col] = replacement
		notes = append(notes, fmt.Sprintf("%s: %v -> %v", col, value, replacement))
	}
	return notes, nil
}

func (v *fkValidator) valueExists(ctx context.Context, fk types.ForeignKey, value interface{}) (bool, error) {
	cacheKey := fk.RefTable + "." + fk.RefColumn + "|" + types.KeyTuple{value}.Encode()
	if ok, cached := v.exists[cacheKey]; cached {
		return ok, nil
	}
	ok, err := v.store.ValueExists(ctx, fk.RefTable, fk.RefColumn, value)
	if err != nil {
		return false, fmt.Errorf("failed to check %s.%s: %w", fk.RefTable, fk.RefColumn, err)
	}
	v.exists[cacheKey] = ok
	return ok, nil
}

// replacement returns the first referenced value, nil when there is none.
func (v *fkValidator) replacement(ctx context.Context, fk types.ForeignKey) (interface{}, error) {
	ref := fk.RefTable + "." + fk.RefColumn
	sample, loaded := v.fallback[ref]
	if !loaded {
		var err error
		sample, err = v.store.SampleReferencedValues(ctx, fk.RefTable, fk.RefColumn, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to sample %s: %w", ref, err)
		}
		v.fallback[ref] = sample
	}
	if len(sample) == 0 {
		return nil, nil
	}
	return sample[0], nil
}
