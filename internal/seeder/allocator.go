package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lumos-Labs-HQ/mockdml/internal/ledger"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

// allocator reconciles a requested batch size against the rows the target
// and the source can supply, synthesizing the rest.
type allocator struct {
	schema    *types.TableSchema
	ledger    *ledger.Ledger
	resolver  *resolver
	prober    *prober
	keys      *keyGenerator
	plan      *SmartColumnPlan
	validator *fkValidator
	log       *logger
}

type batchResult struct {
	Rows    []*types.ResolvedRow
	Skipped int
	Errors  []error
}

// boundAssignment is an update assignment resolved against the target schema.
type boundAssignment struct {
	types.Assignment
	column types.Column
}

// InsertBatch sources up to count rows and synthesizes any shortfall.
func (a *allocator) InsertBatch(ctx context.Context, group string, sel types.InsertSelection, b *sourceBinding) (*batchResult, error) {
	res := &batchResult{}
	if sel.Count <= 0 {
		return res, nil
	}
	if !a.schema.KeyInsertable() {
		return nil, fmt.Errorf("%s: %w", a.schema.QualifiedName(), types.ErrNoInsertableKey)
	}

	rows, err := a.resolver.Resolve(ctx, b, sel.Where, sel.OrderBy, sel.Count, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source rows: %w", err)
	}

	pos := 0
	for _, row := range rows {
		rr := a.fromSource(row, b, types.Sourced, pos)
		pos++
		if err := a.accept(ctx, res, rr, nil); err != nil {
			return nil, err
		}
	}

	if err := a.synthesize(ctx, res, group, &pos, sel.Count, nil); err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateBatch runs PROBE, SUPPLEMENT, SYNTHESIZE and COMMIT for one update
// configuration. Rows that are not TARGET_EXISTING must also be inserted.
func (a *allocator) UpdateBatch(ctx context.Context, group string, upd types.UpdateConfig, set []boundAssignment, b *sourceBinding) (*batchResult, error) {
	res := &batchResult{}
	n := upd.Count
	if n <= 0 {
		return res, nil
	}

	// PROBE
	existing, err := a.prober.Probe(ctx, upd.Where, n)
	if err != nil {
		return nil, fmt.Errorf("failed to probe target: %w", err)
	}
	pos := 0
	for _, row := range existing {
		rr := &types.ResolvedRow{
			Key:        a.schema.KeyOf(row),
			Values:     row,
			Provenance: types.TargetExisting,
			Position:   pos,
		}
		pos++
		if err := a.accept(ctx, res, rr, set); err != nil {
			return nil, err
		}
	}
	if pos >= n {
		return res, nil
	}

	if !a.schema.KeyInsertable() {
		res.Errors = append(res.Errors, fmt.Errorf("%d of %d updates: %w", n-pos, n, types.ErrNoInsertableKey))
		res.Skipped += n - pos
		return res, nil
	}

	// SUPPLEMENT
	if b != nil && b.hasKey() {
		targetKeys, err := a.prober.targetKeys(ctx, upd.Where)
		if err != nil {
			return nil, fmt.Errorf("failed to read target keys: %w", err)
		}
		rows, err := a.resolver.Resolve(ctx, b, upd.SupplementWhere(), nil, n-pos, targetKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve merge rows: %w", err)
		}
		for _, row := range rows {
			rr := a.fromSource(row, b, types.MergeInserted, pos)
			pos++
			if err := a.accept(ctx, res, rr, set); err != nil {
				return nil, err
			}
		}
	}

	// SYNTHESIZE
	if err := a.synthesize(ctx, res, group, &pos, n, set); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *allocator) synthesize(ctx context.Context, res *batchResult, group string, pos *int, n int, set []boundAssignment) error {
	for ; *pos < n; *pos++ {
		key, err := a.keys.Next(ctx, group, *pos)
		if err != nil {
			return err
		}

		values := make(types.Row)
		for i, k := range a.schema.KeyColumns {
			values[k] = key[i]
		}
		for _, name := range a.plan.Columns() {
			values[name] = a.plan.Value(name, *pos)
		}

		rr := &types.ResolvedRow{Key: key, Values: values, Provenance: types.Synthesized, Position: *pos}
		if err := a.accept(ctx, res, rr, set); err != nil {
			return err
		}
	}
	return nil
}

// fromSource maps a source row onto the target columns, filling the columns
// the source lacks from the plan.
func (a *allocator) fromSource(row types.Row, b *sourceBinding, prov types.Provenance, pos int) *types.ResolvedRow {
	values := make(types.Row)
	for _, col := range a.schema.InsertableColumns() {
		if cp, ok := a.plan.Column(col.Name); ok && cp.Strategy == StrategySequence {
			values[col.Name] = a.plan.Value(col.Name, pos)
			continue
		}
		if sc, ok := b.mapping[col.Name]; ok {
			v, _ := row.Get(sc)
			values[col.Name] = types.Coerce(col, v)
			continue
		}
		if a.schema.IsKey(col.Name) {
			continue
		}
		values[col.Name] = a.plan.Value(col.Name, pos)
	}
	return &types.ResolvedRow{
		Key:        b.keyOf(a.schema, row),
		Values:     values,
		Provenance: prov,
		Position:   pos,
	}
}

// accept reserves the row's key, applies update assignments and validates
// foreign keys. The key stays reserved when validation rejects the row.
func (a *allocator) accept(ctx context.Context, res *batchResult, rr *types.ResolvedRow, set []boundAssignment) error {
	if !a.ledger.Reserve(rr.Key) {
		res.Skipped++
		res.Errors = append(res.Errors, fmt.Errorf("key %s already allocated in this run", rr.Key))
		return nil
	}

	if rr.Provenance.Inserts() {
		notes, err := a.validator.Validate(ctx, rr.Values, nil, rr.Key)
		if rejected, err := a.rejected(res, rr, err); rejected || err != nil {
			return err
		}
		rr.Corrections = append(rr.Corrections, notes...)
	}

	if len(set) > 0 {
		assigned := make(types.Row, len(set))
		names := make([]string, 0, len(set))
		for _, s := range set {
			assigned[s.column.Name] = a.assignedValue(s, rr.Position)
			names = append(names, s.column.Name)
		}
		notes, err := a.validator.Validate(ctx, assigned, names, rr.Key)
		if rejected, err := a.rejected(res, rr, err); rejected || err != nil {
			return err
		}
		rr.Corrections = append(rr.Corrections, notes...)
		for _, name := range names {
			rr.Set = append(rr.Set, types.ColumnValue{Column: name, Value: assigned[name]})
		}
	}

	for _, note := range rr.Corrections {
		a.log.warn("row %s: corrected foreign key %s", rr.Key, note)
	}
	res.Rows = append(res.Rows, rr)
	return nil
}

// rejected classifies a validation error: unresolvable foreign keys reject
// the row, anything else aborts the batch.
func (a *allocator) rejected(res *batchResult, rr *types.ResolvedRow, err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, types.ErrUnresolvableForeignKey) {
		a.log.fail("%v", err)
		res.Skipped++
		res.Errors = append(res.Errors, err)
		return true, nil
	}
	return false, err
}

func (a *allocator) assignedValue(s boundAssignment, pos int) interface{} {
	if v, ok := s.ValueAt(pos); ok {
		return types.Coerce(s.column, v)
	}
	return a.plan.ValueFor(s.column, pos)
}
