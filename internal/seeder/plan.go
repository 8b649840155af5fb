package seeder

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

type Strategy string

const (
	StrategySequence   Strategy = "SEQUENCE"
	StrategyForeignKey Strategy = "FOREIGN_KEY"
	StrategyEnumerated Strategy = "ENUMERATED"
	StrategyUnique     Strategy = "UNIQUE"
	StrategyFake       Strategy = "FAKE"
)

type ColumnPlan struct {
	Column   types.Column
	Strategy Strategy
	Sample   []interface{} // FOREIGN_KEY reference sample
	Allowed  []string      // ENUMERATED values
	pool     *uniquePool
}

// SmartColumnPlan decides, once per run, how every insertable non-key column
// of the target is populated when no source value is available.
type SmartColumnPlan struct {
	columns map[string]*ColumnPlan
	order   []string
	gen     *DataGenerator
	// Degraded lists FOREIGN_KEY columns that fell back to FAKE.
	Degraded []string
}

type planOptions struct {
	ReferenceSample int
	UniqueAttempts  int
	PoolSize        int
}

func buildPlan(ctx context.Context, store Store, schema *types.TableSchema, opts planOptions, gen *DataGenerator, log *logger) (*SmartColumnPlan, error) {
	plan := &SmartColumnPlan{
		columns: make(map[string]*ColumnPlan),
		gen:     gen,
	}

	for _, col := range schema.InsertableColumns() {
		cp := &ColumnPlan{Column: col, Strategy: StrategyFake}

		switch {
		case schema.IsKey(col.Name):
			// keys come from the source or the key generator
			continue
		case col.HasSequence():
			cp.Strategy = StrategySequence
		default:
			if fk, ok := schema.ForeignKey(col.Name); ok {
				sample, err := store.SampleReferencedValues(ctx, fk.RefTable, fk.RefColumn, opts.ReferenceSample)
				if err != nil {
					return nil, fmt.Errorf("failed to sample %s.%s for %s: %w", fk.RefTable, fk.RefColumn, col.Name, err)
				}
				if len(sample) > 0 {
					cp.Strategy = StrategyForeignKey
					cp.Sample = sample
					break
				}
				plan.Degraded = append(plan.Degraded, col.Name)
				log.warn("%s: %v (%s.%s), using random values", col.Name, types.ErrReferenceDataUnavailable, fk.RefTable, fk.RefColumn)
			}
			if allowed := schema.Check(col.Name); len(allowed) > 0 {
				cp.Strategy = StrategyEnumerated
				cp.Allowed = allowed
			} else if schema.IsUnique(col.Name) && cp.Strategy == StrategyFake {
				existing, err := store.ColumnValues(ctx, schema.QualifiedName(), col.Name, 0)
				if err != nil {
					return nil, fmt.Errorf("failed to snapshot %s: %w", col.Name, err)
				}
				cp.Strategy = StrategyUnique
				cp.pool = newUniquePool(col, existing, opts.PoolSize, opts.UniqueAttempts, gen)
			}
		}

		plan.columns[strings.ToLower(col.Name)] = cp
		plan.order = append(plan.order, col.Name)
	}
	return plan, nil
}

func (p *SmartColumnPlan) Column(name string) (*ColumnPlan, bool) {
	cp, ok := p.columns[strings.ToLower(name)]
	return cp, ok
}

// Columns returns the planned column names in table order.
func (p *SmartColumnPlan) Columns() []string {
	return p.order
}

// Value produces the value of a column for the row at index.
func (p *SmartColumnPlan) Value(name string, index int) interface{} {
	cp, ok := p.Column(name)
	if !ok {
		return nil
	}

	switch cp.Strategy {
	case StrategySequence:
		return types.SequenceRef{Name: cp.Column.Sequence}
	case StrategyForeignKey:
		return cp.Sample[index%len(cp.Sample)]
	case StrategyEnumerated:
		return types.Coerce(cp.Column, cp.Allowed[index%len(cp.Allowed)])
	case StrategyUnique:
		return cp.pool.Next()
	default:
		return p.gen.GenerateForColumn(cp.Column)
	}
}

// ValueFor is Value for columns that may be outside the plan, such as
// update assignments on key-less plans.
func (p *SmartColumnPlan) ValueFor(col types.Column, index int) interface{} {
	if _, ok := p.Column(col.Name); ok {
		return p.Value(col.Name, index)
	}
	return p.gen.GenerateForColumn(col)
}
