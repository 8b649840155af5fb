package seeder

import (
	"context"
	"fmt"

	"github.com/Lumos-Labs-HQ/mockdml/internal/ledger"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

// sourceBinding maps a source onto the target table.
type sourceBinding struct {
	spec    types.SourceSpec
	mapping map[string]string // target column -> source column
	keyCols []string          // source columns holding the target key, nil when missing
	err     error
}

func (b *sourceBinding) hasKey() bool {
	return len(b.keyCols) > 0
}

// keyOf extracts the target key of a source row.
func (b *sourceBinding) keyOf(schema *types.TableSchema, row types.Row) types.KeyTuple {
	key := make(types.KeyTuple, len(b.keyCols))
	for i, c := range b.keyCols {
		v, _ := row.Get(c)
		if col, ok := schema.Column(schema.KeyColumns[i]); ok {
			v = types.Coerce(col, v)
		}
		key[i] = v
	}
	return key
}

func bindSource(ctx context.Context, store Store, schema *types.TableSchema, src types.SourceSpec) (*sourceBinding, error) {
	cols, err := store.SourceColumns(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of source %s: %w", src.Label(), err)
	}

	b := &sourceBinding{spec: src, mapping: schema.ColumnMapping(cols)}
	if len(b.mapping) == 0 {
		b.err = fmt.Errorf("source %s: %w", src.Label(), types.ErrNoCommonColumns)
		return b, nil
	}
	for _, k := range schema.KeyColumns {
		sc, ok := b.mapping[k]
		if !ok {
			b.keyCols = nil
			break
		}
		b.keyCols = append(b.keyCols, sc)
	}
	return b, nil
}

// resolver draws candidate rows from a source, never returning a row whose
// key is already reserved.
type resolver struct {
	store  Store
	ledger *ledger.Ledger
	schema *types.TableSchema
}

// Resolve returns at most n rows matching where, in descending order of
// orderBy, excluding reserved keys and any extra keys given.
func (r *resolver) Resolve(ctx context.Context, b *sourceBinding, where string, orderBy []string, n int, exclude []types.KeyTuple) ([]types.Row, error) {
	if n <= 0 || b == nil || !b.hasKey() {
		return nil, nil
	}

	excluded := append(r.ledger.Keys(), exclude...)
	rows, err := r.store.SelectRows(ctx, types.Selection{
		Source:     b.spec,
		Where:      where,
		KeyColumns: b.keyCols,
		Exclude:    excluded,
		OrderBy:    orderBy,
		Limit:      n,
	})
	if err != nil {
		return nil, err
	}

	// a query source may repeat keys
	seen := make(map[string]bool, len(rows))
	out := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		enc := b.keyOf(r.schema, row).Encode()
		if seen[enc] {
			continue
		}
		seen[enc] = true
		out = append(out, row)
	}
	return out, nil
}

// prober finds rows already present in the target for an update predicate.
type prober struct {
	store  Store
	ledger *ledger.Ledger
	schema *types.TableSchema
}

func (p *prober) Probe(ctx context.Context, where string, n int) ([]types.Row, error) {
	if n <= 0 {
		return nil, nil
	}
	return p.store.SelectRows(ctx, types.Selection{
		Source:     types.SourceSpec{Table: p.schema.QualifiedName()},
		Where:      where,
		KeyColumns: p.schema.KeyColumns,
		Exclude:    p.ledger.Keys(),
		Limit:      n,
	})
}

// targetKeys lists every key currently in the target matching where.
func (p *prober) targetKeys(ctx context.Context, where string) ([]types.KeyTuple, error) {
	return p.store.SelectKeys(ctx, types.SourceSpec{Table: p.schema.QualifiedName()}, where, p.schema.KeyColumns)
}
