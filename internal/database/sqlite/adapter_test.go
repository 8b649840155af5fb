package sqlite

import (
	"context"
	"testing"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
CREATE TABLE customers (
	id INTEGER PRIMARY KEY,
	email TEXT UNIQUE
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	code VARCHAR(8) NOT NULL UNIQUE,
	status TEXT CHECK (status IN ('NEW', 'DONE')),
	customer_id INTEGER REFERENCES customers(id),
	referrer_id INTEGER REFERENCES customers,
	notes CLOB,
	created_at DATETIME
);
INSERT INTO customers (id, email) VALUES (1, 'a@example.com'), (2, 'b@example.com');
INSERT INTO orders (id, code, status, customer_id) VALUES
	(10, 'A10', 'NEW', 1),
	(11, 'A11', 'DONE', 2),
	(12, 'A12', 'NEW', 2);
`

func newTestAdapter(t *testing.T, name string) *Adapter {
	t.Helper()

	a := New()
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx, "sqlite://file:"+name+"?mode=memory&cache=shared"))
	t.Cleanup(func() { a.Close() })

	require.NoError(t, a.ExecuteScript(ctx, common.ParseSQLStatements(fixture)))
	return a
}

func TestGetSchema(t *testing.T) {
	a := newTestAdapter(t, "schema")

	schema, err := a.GetSchema(context.Background(), "orders")
	require.NoError(t, err)

	assert.Equal(t, "orders", schema.Name)
	assert.Len(t, schema.Columns, 7)
	assert.Equal(t, types.KeyPrimary, schema.KeyKind)
	assert.Equal(t, []string{"id"}, schema.KeyColumns)
	assert.Equal(t, [][]string{{"code"}}, schema.UniqueKeys)

	assert.Equal(t, types.ForeignKey{Column: "customer_id", RefTable: "customers", RefColumn: "id"}, schema.ForeignKeys["customer_id"])
	assert.Equal(t, "id", schema.ForeignKeys["referrer_id"].RefColumn)
	assert.Equal(t, []string{"NEW", "DONE"}, schema.Checks["status"])

	code, ok := schema.Column("CODE")
	require.True(t, ok)
	assert.Equal(t, 8, code.Length)
	assert.Equal(t, types.SemanticString, code.Semantic)
	assert.False(t, code.Nullable)

	status, _ := schema.Column("status")
	assert.Equal(t, types.SemanticString, status.Semantic)
	notes, _ := schema.Column("notes")
	assert.Equal(t, types.SemanticLargeText, notes.Semantic)
	created, _ := schema.Column("created_at")
	assert.Equal(t, types.SemanticTimestamp, created.Semantic)
}

func TestMetadataLookups(t *testing.T) {
	a := newTestAdapter(t, "metadata")
	ctx := context.Background()

	fks, err := a.GetForeignKeys(ctx, "orders")
	require.NoError(t, err)
	assert.Len(t, fks, 2)

	checks, err := a.GetCheckConstraints(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"status": {"NEW", "DONE"}}, checks)

	sample, err := a.SampleReferencedValues(ctx, "customers", "id", 1)
	require.NoError(t, err)
	assert.Len(t, sample, 1)
}

func TestGetSchemaMissingTable(t *testing.T) {
	a := newTestAdapter(t, "missing")

	_, err := a.GetSchema(context.Background(), "nope")
	assert.ErrorIs(t, err, types.ErrSchemaNotFound)

	exists, err := a.TableExists(context.Background(), "ORDERS")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRowStoreReads(t *testing.T) {
	a := newTestAdapter(t, "rowstore")
	ctx := context.Background()
	src := types.SourceSpec{Table: "orders"}

	rows, err := a.SelectRows(ctx, types.Selection{
		Source:     src,
		Where:      "status = 'NEW'",
		KeyColumns: []string{"id"},
		Exclude:    []types.KeyTuple{{int64(12)}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10), rows[0]["id"])

	keys, err := a.SelectKeys(ctx, src, "customer_id = 2", []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, []types.KeyTuple{{int64(12)}, {int64(11)}}, keys)

	exists, err := a.KeyExists(ctx, "orders", []string{"id"}, types.KeyTuple{11})
	require.NoError(t, err)
	assert.True(t, exists)

	max, err := a.MaxValue(ctx, src, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), max)

	codes, err := a.ColumnValues(ctx, "orders", "code", 0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"A10", "A11", "A12"}, codes)

	cols, err := a.SourceColumns(ctx, types.SourceSpec{Query: "SELECT id, code FROM orders"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "code"}, cols)
}

func TestExecuteScriptIsAtomic(t *testing.T) {
	a := newTestAdapter(t, "atomic")
	ctx := context.Background()

	err := a.ExecuteScript(ctx, []string{
		"INSERT INTO customers (id, email) VALUES (3, 'c@example.com')",
		"INSERT INTO customers (id, email) VALUES (4, 'a@example.com')",
	})
	require.Error(t, err)

	exists, err := a.KeyExists(ctx, "customers", []string{"id"}, types.KeyTuple{3})
	require.NoError(t, err)
	assert.False(t, exists)
}
