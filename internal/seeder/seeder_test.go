package seeder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordersSchema() *types.TableSchema {
	return &types.TableSchema{
		Name: "ORDERS",
		Columns: []types.Column{
			{Name: "ID", Semantic: types.SemanticNumeric},
			{Name: "STATUS", Semantic: types.SemanticString, Length: 10},
			{Name: "REGION", Semantic: types.SemanticString, Length: 8},
			{Name: "CUSTOMER_ID", Semantic: types.SemanticNumeric, Nullable: true},
			{Name: "CODE", Semantic: types.SemanticString, Length: 12},
			{Name: "NOTES", Semantic: types.SemanticLargeText, Nullable: true},
		},
		KeyKind:    types.KeyPrimary,
		KeyColumns: []string{"ID"},
		UniqueKeys: [][]string{{"CODE"}},
		ForeignKeys: map[string]types.ForeignKey{
			"CUSTOMER_ID": {Column: "CUSTOMER_ID", RefTable: "CUSTOMERS", RefColumn: "ID"},
		},
	}
}

func customersSchema() *types.TableSchema {
	return &types.TableSchema{
		Name:       "CUSTOMERS",
		Columns:    []types.Column{{Name: "ID", Semantic: types.SemanticNumeric}},
		KeyKind:    types.KeyPrimary,
		KeyColumns: []string{"ID"},
	}
}

func newFixture(customers ...types.Row) *memStore {
	m := newMemStore()
	m.addTable(customersSchema(), customers...)
	m.where("STATUS='ACTIVE'", func(r types.Row) bool { return r["STATUS"] == "ACTIVE" })
	m.where("REGION='EAST'", func(r types.Row) bool { return r["REGION"] == "EAST" })
	return m
}

func run(t *testing.T, store Store, spec RunSpec) *RunResult {
	t.Helper()
	res, err := New(store, Options{Seed: 42, Output: io.Discard}).Run(context.Background(), spec)
	require.NoError(t, err)
	return res
}

func keysOf(rows []*types.ResolvedRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key.String()
	}
	return out
}

func assertDistinctKeys(t *testing.T, rows []*types.ResolvedRow) {
	t.Helper()
	seen := make(map[string]bool)
	for _, r := range rows {
		enc := r.Key.Encode()
		assert.False(t, seen[enc], "key %s allocated twice", r.Key)
		seen[enc] = true
	}
}

func TestInsertSourcesThenSynthesizes(t *testing.T) {
	store := newFixture(types.Row{"ID": int64(1)}, types.Row{"ID": int64(2)})
	store.addTable(ordersSchema())
	store.addSource("STAGING_ORDERS", []string{"ID", "STATUS", "REGION", "CODE"},
		types.Row{"ID": int64(101), "STATUS": "ACTIVE", "REGION": "EAST", "CODE": "S101"},
		types.Row{"ID": int64(102), "STATUS": "ACTIVE", "REGION": "WEST", "CODE": "S102"},
		types.Row{"ID": int64(103), "STATUS": "CLOSED", "REGION": "EAST", "CODE": "S103"},
	)

	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Source: types.SourceSpec{Table: "STAGING_ORDERS"},
		Groups: []types.Group{{
			Name:   "NEW_ACTIVE",
			Insert: types.InsertSelection{Where: "STATUS='ACTIVE'", Count: 5},
		}},
	})

	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.Equal(t, 2, g.Count(types.Sourced))
	assert.Equal(t, 3, g.Count(types.Synthesized))
	assert.Len(t, g.Inserts, 5)
	assert.Empty(t, g.Updates)
	assert.Equal(t, 5, res.Ledger.Len())
	assertDistinctKeys(t, g.Inserts)

	for _, r := range g.Inserts {
		id, ok := r.Key[0].(int64)
		require.True(t, ok)
		if r.Provenance == types.Synthesized {
			assert.Greater(t, id, int64(103), "synthetic keys continue past the source maximum")
		} else {
			assert.Equal(t, "ACTIVE", r.Values["STATUS"])
		}
		assert.Contains(t, []interface{}{int64(1), int64(2)}, r.Values["CUSTOMER_ID"])
		assert.Empty(t, r.Set)
	}
}

func TestUpdateMergesAndSynthesizesShortfall(t *testing.T) {
	store := newFixture(types.Row{"ID": int64(1)})
	var target []types.Row
	for i := int64(1); i <= 5; i++ {
		region := "EAST"
		if i == 5 {
			region = "WEST"
		}
		target = append(target, types.Row{"ID": i, "STATUS": "NEW", "REGION": region, "CUSTOMER_ID": int64(1), "CODE": "T" + string(rune('0'+i))})
	}
	store.addTable(ordersSchema(), target...)
	store.addSource("STAGING_ORDERS", []string{"ID", "STATUS", "REGION", "CODE"},
		types.Row{"ID": int64(3), "STATUS": "NEW", "REGION": "EAST", "CODE": "T3"},
		types.Row{"ID": int64(201), "STATUS": "NEW", "REGION": "EAST", "CODE": "S201"},
		types.Row{"ID": int64(202), "STATUS": "NEW", "REGION": "EAST", "CODE": "S202"},
		types.Row{"ID": int64(203), "STATUS": "NEW", "REGION": "EAST", "CODE": "S203"},
		types.Row{"ID": int64(204), "STATUS": "NEW", "REGION": "WEST", "CODE": "S204"},
	)

	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Source: types.SourceSpec{Table: "STAGING_ORDERS"},
		Groups: []types.Group{{
			Name: "TOUCH",
			Updates: []types.UpdateConfig{{
				Where: "REGION='EAST'",
				Count: 10,
				Set:   []types.Assignment{{Column: "STATUS", Values: []string{"TOUCHED"}}},
			}},
		}},
	})

	g := res.Groups[0]
	assert.Equal(t, 4, g.Count(types.TargetExisting))
	assert.Equal(t, 3, g.Count(types.MergeInserted))
	assert.Equal(t, 3, g.Count(types.Synthesized))
	assert.Len(t, g.Updates, 10)
	assert.Len(t, g.Inserts, 6)
	assert.Equal(t, 10, res.Ledger.Len())
	assertDistinctKeys(t, g.Updates)

	assert.Equal(t, []string{"(1)", "(2)", "(3)", "(4)", "(201)", "(202)", "(203)"}, keysOf(g.Updates[:7]))
	for i, r := range g.Updates {
		assert.Equal(t, i, r.Position)
		assert.Equal(t, []types.ColumnValue{{Column: "STATUS", Value: "TOUCHED"}}, r.Set)
		if r.Provenance == types.Synthesized {
			assert.Greater(t, r.Key[0].(int64), int64(204))
		}
	}
	for _, r := range g.Inserts {
		assert.NotEqual(t, types.TargetExisting, r.Provenance)
	}
}

func TestZeroCountTouchesNothing(t *testing.T) {
	store := newFixture(types.Row{"ID": int64(1)})
	store.addTable(ordersSchema(), types.Row{"ID": int64(1), "REGION": "EAST"})

	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Groups: []types.Group{{
			Name:    "NOOP",
			Insert:  types.InsertSelection{Count: 0},
			Updates: []types.UpdateConfig{{Where: "REGION='EAST'", Count: 0}},
		}},
	})

	g := res.Groups[0]
	assert.Empty(t, g.Inserts)
	assert.Empty(t, g.Updates)
	assert.Zero(t, res.Ledger.Len())
	assert.Zero(t, store.selects)
}

func TestUnresolvableForeignKeyIsIsolatedPerRow(t *testing.T) {
	store := newFixture()
	store.addTable(ordersSchema())
	store.addSource("STAGING_ORDERS", []string{"ID", "STATUS", "CUSTOMER_ID"},
		types.Row{"ID": int64(101), "STATUS": "ACTIVE", "CUSTOMER_ID": nil},
		types.Row{"ID": int64(102), "STATUS": "ACTIVE", "CUSTOMER_ID": int64(7)},
	)

	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Source: types.SourceSpec{Table: "STAGING_ORDERS"},
		Groups: []types.Group{{
			Name:   "ORPHANS",
			Insert: types.InsertSelection{Where: "STATUS='ACTIVE'", Count: 3},
		}},
	})

	g := res.Groups[0]
	require.Len(t, g.Inserts, 1)
	assert.Equal(t, "(101)", g.Inserts[0].Key.String())
	assert.Equal(t, 2, g.Skipped)
	require.Len(t, g.Errors, 2)
	for _, err := range g.Errors {
		assert.ErrorIs(t, err, types.ErrUnresolvableForeignKey)
		var fkErr *types.ForeignKeyError
		require.True(t, errors.As(err, &fkErr))
		assert.Equal(t, "CUSTOMERS", fkErr.RefTable)
	}
	// rejected rows keep their keys reserved
	assert.Equal(t, 3, res.Ledger.Len())
	assert.Equal(t, []string{"CUSTOMER_ID"}, res.Plan.Degraded)
}

func TestLaterGroupsSeeEarlierReservations(t *testing.T) {
	store := newFixture(types.Row{"ID": int64(1)})
	store.addTable(ordersSchema())
	store.addSource("STAGING_ORDERS", []string{"ID", "STATUS"},
		types.Row{"ID": int64(101), "STATUS": "ACTIVE"},
		types.Row{"ID": int64(102), "STATUS": "ACTIVE"},
	)

	insert := types.InsertSelection{Where: "STATUS='ACTIVE'", Count: 2}
	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Source: types.SourceSpec{Table: "STAGING_ORDERS"},
		Groups: []types.Group{{Name: "FIRST", Insert: insert}, {Name: "SECOND", Insert: insert}},
	})

	assert.Equal(t, 2, res.Groups[0].Count(types.Sourced))
	assert.Equal(t, 2, res.Groups[1].Count(types.Synthesized))
	assertDistinctKeys(t, append(res.Groups[0].Inserts, res.Groups[1].Inserts...))
	assert.Equal(t, 4, res.Ledger.Len())
}

func TestGroupWithoutCommonColumnsIsSkipped(t *testing.T) {
	store := newFixture(types.Row{"ID": int64(1)})
	store.addTable(ordersSchema())
	store.addSource("UNRELATED", []string{"X"}, types.Row{"X": 1})

	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Groups: []types.Group{
			{Name: "BAD", Source: &types.SourceSpec{Table: "UNRELATED"}, Insert: types.InsertSelection{Count: 2}},
			{Name: "GOOD", Insert: types.InsertSelection{Count: 2}},
		},
	})

	assert.ErrorIs(t, res.Groups[0].Err, types.ErrNoCommonColumns)
	assert.Empty(t, res.Groups[0].Inserts)
	assert.Len(t, res.Groups[1].Inserts, 2)
}

func TestMissingSourceIsFatal(t *testing.T) {
	store := newFixture()
	store.addTable(ordersSchema())

	_, err := New(store, Options{Output: io.Discard}).Run(context.Background(), RunSpec{
		Target: "ORDERS",
		Source: types.SourceSpec{Table: "NOWHERE"},
	})
	assert.ErrorIs(t, err, types.ErrSchemaNotFound)

	_, err = New(store, Options{Output: io.Discard}).Run(context.Background(), RunSpec{Target: "NOWHERE"})
	assert.ErrorIs(t, err, types.ErrSchemaNotFound)
}

func TestIdentityKeyOnlyAllowsExistingUpdates(t *testing.T) {
	schema := ordersSchema()
	schema.Columns[0].Identity = true
	store := newFixture(types.Row{"ID": int64(1)})
	store.addTable(schema,
		types.Row{"ID": int64(1), "REGION": "EAST"},
		types.Row{"ID": int64(2), "REGION": "EAST"},
	)

	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Groups: []types.Group{{
			Name:    "IDENTITY",
			Insert:  types.InsertSelection{Count: 1},
			Updates: []types.UpdateConfig{{Where: "REGION='EAST'", Count: 3}},
		}},
	})

	g := res.Groups[0]
	assert.Empty(t, g.Inserts)
	assert.Len(t, g.Updates, 2)
	assert.Equal(t, 2, g.Skipped)
	require.Len(t, g.Errors, 2)
	for _, err := range g.Errors {
		assert.ErrorIs(t, err, types.ErrNoInsertableKey)
	}
}

func TestBindAssignments(t *testing.T) {
	schema := ordersSchema()

	set, err := bindAssignments(schema, nil)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "STATUS", set[0].column.Name)

	_, err = bindAssignments(schema, []types.Assignment{{Column: "ID"}})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = bindAssignments(customersSchema(), nil)
	assert.ErrorIs(t, err, types.ErrNoUpdatableColumns)
}

func TestAssignmentsWithoutValuesHonourChecks(t *testing.T) {
	schema := ordersSchema()
	schema.Checks = map[string][]string{"STATUS": {"OPEN", "SHUT"}}
	store := newFixture(types.Row{"ID": int64(1)})
	store.addTable(schema, types.Row{"ID": int64(1), "REGION": "EAST"}, types.Row{"ID": int64(2), "REGION": "EAST"})

	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Groups: []types.Group{{
			Name:    "CHECKED",
			Updates: []types.UpdateConfig{{Where: "REGION='EAST'", Count: 2, Set: []types.Assignment{{Column: "status"}}}},
		}},
	})

	var got []interface{}
	for _, r := range res.Groups[0].Updates {
		require.Len(t, r.Set, 1)
		got = append(got, r.Set[0].Value)
	}
	assert.Equal(t, []interface{}{"OPEN", "SHUT"}, got)
}

func TestFKValidatorCorrectsDanglingValues(t *testing.T) {
	store := newFixture(types.Row{"ID": int64(1)}, types.Row{"ID": int64(2)})
	v := newFKValidator(store, ordersSchema())

	row := types.Row{"ID": int64(9), "CUSTOMER_ID": int64(9)}
	notes, err := v.Validate(context.Background(), row, nil, types.KeyTuple{int64(9)})
	require.NoError(t, err)
	assert.Equal(t, []string{"CUSTOMER_ID: 9 -> 1"}, notes)
	assert.Equal(t, int64(1), row["CUSTOMER_ID"])

	row = types.Row{"CUSTOMER_ID": int64(2)}
	notes, err = v.Validate(context.Background(), row, []string{"CUSTOMER_ID"}, nil)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestPrintSummary(t *testing.T) {
	store := newFixture(types.Row{"ID": int64(1)})
	store.addTable(ordersSchema())
	res := run(t, store, RunSpec{
		Target: "ORDERS",
		Groups: []types.Group{{Name: "NEW_ACTIVE", Insert: types.InsertSelection{Count: 2}}},
	})

	var buf bytes.Buffer
	PrintSummary(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "SYNTHESIZED")
	assert.Contains(t, out, "NEW_ACTIVE")
	assert.Contains(t, out, res.RunID)
}
