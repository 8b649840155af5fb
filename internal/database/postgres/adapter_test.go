package postgres

import (
	"math/big"
	"testing"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestPlainValue(t *testing.T) {
	id := uuid.MustParse("6f1c2f3e-8d4b-4a8e-9d9a-0b1c2d3e4f50")
	assert.Equal(t, id.String(), plainValue([16]byte(id)))

	whole := pgtype.Numeric{Int: big.NewInt(42), Exp: 0, Valid: true}
	assert.Equal(t, int64(42), plainValue(whole))

	fraction := pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}
	assert.Equal(t, 12.5, plainValue(fraction))

	assert.Nil(t, plainValue(pgtype.Numeric{}))
	assert.Equal(t, "x", plainValue("x"))
}

func TestDialect(t *testing.T) {
	a := New()

	assert.Equal(t, "postgresql", a.Name())
	assert.Equal(t, "'O''Brien'", a.QuoteLiteral("O'Brien"))
	assert.Equal(t, "7", a.QuoteLiteral(int32(7)))
	assert.Equal(t, "NULL", a.QuoteLiteral(nil))
	assert.Equal(t, "nextval('orders_id_seq')", a.SequenceExpr("orders_id_seq"))
	assert.Equal(t, "OVERRIDING SYSTEM VALUE", a.IdentityInsertClause())
}

func TestSemanticTreatsTextAsString(t *testing.T) {
	assert.Equal(t, types.SemanticString, semantic("TEXT", "text", false))
	assert.Equal(t, types.SemanticString, semantic("ORDER_STATUS", "order_status", true))
	assert.Equal(t, types.SemanticNumeric, semantic("INTEGER", "int4", false))
	assert.Equal(t, types.SemanticTimestamp, semantic("TIMESTAMP WITH TIME ZONE", "timestamptz", false))
}
