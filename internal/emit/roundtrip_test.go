package emit

import (
	"context"
	"fmt"
	"io"
	"sort"
	"testing"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Lumos-Labs-HQ/mockdml/internal/database/sqlite"
	"github.com/Lumos-Labs-HQ/mockdml/internal/seeder"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const logsFixture = `
CREATE TABLE logs (code TEXT, msg TEXT);
CREATE TABLE staging (code TEXT, msg TEXT);
INSERT INTO logs (code, msg) VALUES (NULL, 'x'), ('A', 'y'), ('B', 'z');
INSERT INTO staging (code, msg) VALUES ('A', 'from staging'), ('S1', 's'), ('S2', 't');
`

func snapshot(t *testing.T, a *sqlite.Adapter) []string {
	t.Helper()

	rows, err := a.SelectRows(context.Background(), types.Selection{Source: types.SourceSpec{Table: "logs"}})
	require.NoError(t, err)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = fmt.Sprintf("%v|%v", types.Normalize(r["code"]), types.Normalize(r["msg"]))
	}
	sort.Strings(out)
	return out
}

func TestExecuteThenRestoreReproducesPreRunRows(t *testing.T) {
	ctx := context.Background()
	a := sqlite.New()
	require.NoError(t, a.Connect(ctx, "sqlite://file:roundtrip?mode=memory&cache=shared"))
	t.Cleanup(func() { a.Close() })
	require.NoError(t, a.ExecuteScript(ctx, common.ParseSQLStatements(logsFixture)))

	before := snapshot(t, a)

	result, err := seeder.New(a, seeder.Options{Seed: 1, Output: io.Discard}).Run(ctx, seeder.RunSpec{
		Target: "logs",
		Source: types.SourceSpec{Table: "staging"},
		Groups: []types.Group{
			{
				Name: "FIRST",
				Updates: []types.UpdateConfig{{
					Where: "msg = 'x'",
					Count: 1,
					Set:   []types.Assignment{{Column: "msg", Values: []string{"touched"}}},
				}},
			},
			{
				Name:   "SECOND",
				Insert: types.InsertSelection{Where: "code IN ('A', 'S1')", Count: 2},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)
	assert.Equal(t, 1, result.Groups[0].Count(types.TargetExisting))
	assert.Equal(t, 2, result.Groups[1].Count(types.Sourced), "a reserved NULL key must not hide source rows")
	assert.Equal(t, 3, result.Ledger.Len())

	script := Build(a, result, ModeExecute)
	require.NoError(t, a.ExecuteScript(ctx, script.Statements()))

	after := snapshot(t, a)
	assert.Equal(t, []string{"<nil>|touched", "A|from staging", "B|z", "S1|s"}, after)

	backedUp, err := a.SelectRows(ctx, types.Selection{Source: types.SourceSpec{Table: script.BackupTable}})
	require.NoError(t, err)
	assert.Len(t, backedUp, 2, "the NULL-keyed row and A are backed up")

	require.NoError(t, a.ExecuteScript(ctx, script.RestoreStatements()))
	assert.Equal(t, before, snapshot(t, a))
}
