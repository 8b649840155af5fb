package common

import (
	"testing"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestParseCheckInList(t *testing.T) {
	tests := []struct {
		name      string
		column    string
		condition string
		want      []string
	}{
		{"portable", "STATUS", "STATUS IN ('A','B','C')", []string{"A", "B", "C"}},
		{"lowercase keyword", "status", "status in ('open', 'closed')", []string{"open", "closed"}},
		{"numeric list", "PRIORITY", "PRIORITY IN (1, 2, 3)", []string{"1", "2", "3"}},
		{"postgres any array", "status",
			"CHECK (((status)::text = ANY ((ARRAY['NEW'::character varying, 'DONE'::character varying])::text[])))",
			[]string{"NEW", "DONE"}},
		{"mysql introducers", "status", "(`status` in (_utf8mb4'X_1',_utf8mb4'Y'))", []string{"X_1", "Y"}},
		{"escaped quote", "NAME", "NAME IN ('O''Brien','Smith')", []string{"O'Brien", "Smith"}},
		{"other column", "STATUS", "OTHER_STATUS IN ('A')", nil},
		{"not a list", "AMOUNT", "AMOUNT > 0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCheckInList(tt.column, tt.condition))
		})
	}
}

func TestMapSemantic(t *testing.T) {
	assert.Equal(t, types.SemanticString, MapSemantic("VARCHAR2(20 CHAR)"))
	assert.Equal(t, types.SemanticString, MapSemantic("character varying"))
	assert.Equal(t, types.SemanticNumeric, MapSemantic("NUMBER(10,2)"))
	assert.Equal(t, types.SemanticNumeric, MapSemantic("bigint"))
	assert.Equal(t, types.SemanticDate, MapSemantic("DATE"))
	assert.Equal(t, types.SemanticTimestamp, MapSemantic("timestamp with time zone"))
	assert.Equal(t, types.SemanticTimestamp, MapSemantic("datetime"))
	assert.Equal(t, types.SemanticLargeText, MapSemantic("CLOB"))
	assert.Equal(t, types.SemanticLargeText, MapSemantic("longtext"))
	assert.Equal(t, types.SemanticBoolean, MapSemantic("boolean"))
	assert.Equal(t, types.SemanticOther, MapSemantic("bytea"))
}

func TestParseLength(t *testing.T) {
	l, s := ParseLength("VARCHAR2(20 CHAR)")
	assert.Equal(t, 20, l)
	assert.Equal(t, 0, s)

	l, s = ParseLength("numeric(10, 2)")
	assert.Equal(t, 10, l)
	assert.Equal(t, 2, s)

	l, _ = ParseLength("TEXT")
	assert.Equal(t, 0, l)
}

func TestParseSQLStatementsSkipsTransactionControl(t *testing.T) {
	script := `-- header
DELETE FROM T WHERE ID = 1;
INSERT INTO T (ID, NAME) VALUES (1, 'a;b');
COMMIT;`
	stmts := ParseSQLStatements(script)
	assert.Equal(t, []string{
		"DELETE FROM T WHERE ID = 1",
		"INSERT INTO T (ID, NAME) VALUES (1, 'a;b')",
	}, stmts)
}

func TestSplitLeadingDDL(t *testing.T) {
	ddl, rest := SplitLeadingDDL([]string{
		"create table bkp AS SELECT * FROM t",
		"DELETE FROM t WHERE id = 1",
		"CREATE TABLE late (id INT)",
	})
	assert.Equal(t, []string{"create table bkp AS SELECT * FROM t"}, ddl)
	assert.Len(t, rest, 2)

	ddl, rest = SplitLeadingDDL([]string{"UPDATE t SET a = 1"})
	assert.Empty(t, ddl)
	assert.Len(t, rest, 1)
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("ORDERS"))
	assert.True(t, IsValidIdentifier("app.orders"))
	assert.False(t, IsValidIdentifier("orders; DROP TABLE x"))
	assert.False(t, IsValidIdentifier("a.b.c"))
	assert.False(t, IsValidIdentifier(""))
}
