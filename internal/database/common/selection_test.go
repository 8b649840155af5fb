package common

import (
	"testing"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelectAppliesPredicateExclusionOrderAndLimit(t *testing.T) {
	qb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	sql, args, err := BuildSelect(qb, types.Selection{
		Source:     types.SourceSpec{Table: "ORDERS"},
		Where:      "STATUS = 'ACTIVE'",
		KeyColumns: []string{"ID"},
		Exclude:    []types.KeyTuple{{1}, {int64(2)}},
		OrderBy:    []string{"CREATED_AT"},
		Limit:      5,
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM ORDERS WHERE (STATUS = 'ACTIVE') AND ID NOT IN ($1,$2) ORDER BY CREATED_AT DESC LIMIT 5", sql)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, args)
}

func TestBuildSelectDefaultsOrderToKeyColumns(t *testing.T) {
	sql, args, err := BuildSelect(squirrel.StatementBuilder, types.Selection{
		Source:     types.SourceSpec{Query: "SELECT * FROM staging_orders;"},
		KeyColumns: []string{"ID"},
		Limit:      3,
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM (SELECT * FROM staging_orders) src ORDER BY ID DESC LIMIT 3", sql)
	assert.Empty(t, args)
}

func TestExcludeCompositeKeys(t *testing.T) {
	pred, err := ExcludeKeys([]string{"A", "B"}, []types.KeyTuple{{1, "x"}, {2, "y"}})
	require.NoError(t, err)

	sql, args, err := pred.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "NOT (")
	assert.Contains(t, sql, " OR ")
	assert.Len(t, args, 4)
}

func TestExcludeNullKeys(t *testing.T) {
	pred, err := ExcludeKeys([]string{"CODE"}, []types.KeyTuple{{nil}, {"A"}})
	require.NoError(t, err)

	sql, args, err := pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(CODE NOT IN (?) AND CODE IS NOT NULL)", sql)
	assert.Equal(t, []interface{}{"A"}, args)

	pred, err = ExcludeKeys([]string{"CODE"}, []types.KeyTuple{{nil}})
	require.NoError(t, err)
	sql, args, err = pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "CODE IS NOT NULL", sql)
	assert.Empty(t, args)
}

func TestExcludeKeysRejectsMismatchedTuples(t *testing.T) {
	_, err := ExcludeKeys([]string{"A", "B"}, []types.KeyTuple{{1}})
	assert.Error(t, err)
}

func TestBuildSelectRejectsBadIdentifiers(t *testing.T) {
	_, _, err := BuildSelect(squirrel.StatementBuilder, types.Selection{
		Source: types.SourceSpec{Table: "orders; drop table x"},
	})
	assert.Error(t, err)

	_, _, err = BuildSelect(squirrel.StatementBuilder, types.Selection{
		Source:  types.SourceSpec{Table: "orders"},
		OrderBy: []string{"id desc; --"},
	})
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", FormatValue(nil, QuoteStandard))
	assert.Equal(t, "42", FormatValue(int32(42), QuoteStandard))
	assert.Equal(t, "1.5", FormatValue(1.5, QuoteStandard))
	assert.Equal(t, "'O''Brien'", FormatValue("O'Brien", QuoteStandard))
	assert.Equal(t, "TRUE", FormatValue(true, QuoteStandard))
}
