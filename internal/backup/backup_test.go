package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Lumos-Labs-HQ/mockdml/internal/emit"
	"github.com/Lumos-Labs-HQ/mockdml/internal/ledger"
	"github.com/Lumos-Labs-HQ/mockdml/internal/seeder"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainDialect struct{}

func (plainDialect) Name() string { return "plain" }
func (plainDialect) QuoteLiteral(v interface{}) string {
	return common.FormatValue(v, common.QuoteStandard)
}
func (plainDialect) SequenceExpr(seq string) string { return "NULL" }
func (plainDialect) IdentityInsertClause() string   { return "" }
func (plainDialect) CreateTableAs(table, from, where string) string {
	return common.CreateTableAs(table, from, where)
}

func sampleRun() *seeder.RunResult {
	schema := &types.TableSchema{
		Name:       "ORDERS",
		Columns:    []types.Column{{Name: "ID", Semantic: types.SemanticNumeric}, {Name: "STATUS"}},
		KeyKind:    types.KeyPrimary,
		KeyColumns: []string{"ID"},
	}
	l := ledger.New()
	l.Reserve(types.KeyTuple{int64(7)})
	row := &types.ResolvedRow{Key: types.KeyTuple{int64(7)}, Values: types.Row{"ID": int64(7), "STATUS": "NEW"}, Provenance: types.Synthesized}
	return &seeder.RunResult{
		RunID:  "run-9",
		Target: schema,
		Ledger: l,
		Groups: []*seeder.GroupResult{{Name: "NEW", Inserts: []*types.ResolvedRow{row}, Skipped: 1}},
	}
}

func TestManifestRoundTrip(t *testing.T) {
	result := sampleRun()
	script := emit.Build(plainDialect{}, result, emit.ModeExecute)
	m := NewManifest("sqlite", result, script)

	assert.True(t, m.Executed)
	assert.Equal(t, GroupCounts{Synthesized: 1, Skipped: 1}, m.Counts["NEW"])
	require.Len(t, m.Restore, 2)

	bm := NewManager(filepath.Join(t.TempDir(), "db_backup"))
	path, err := bm.Write(m)
	require.NoError(t, err)
	assert.Equal(t, "manifest_"+m.Timestamp+".json", filepath.Base(path))

	latest, err := bm.Latest()
	require.NoError(t, err)
	assert.Equal(t, path, latest)

	loaded, err := bm.Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.Equal(t, m.Restore, loaded.Restore)
	assert.Equal(t, script.BackupTable, loaded.BackupTable)
	assert.Equal(t, []interface{}{float64(7)}, loaded.Keys[0])
}

func TestLoadRejectsManifestWithoutRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest_x.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"run_id":"r"}`), 0644))

	_, err := NewManager(dir).Load(path)
	assert.Error(t, err)

	latest, err := NewManager(filepath.Join(dir, "none")).Latest()
	require.NoError(t, err)
	assert.Empty(t, latest)
}
