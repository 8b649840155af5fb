package database

import (
	"context"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

// MetadataProvider reads table structure from the catalog.
type MetadataProvider interface {
	// GetSchema returns the table's columns, resolved key, unique keys,
	// foreign keys and enumerated CHECK constraints. It wraps
	// types.ErrSchemaNotFound when the table or view does not exist.
	GetSchema(ctx context.Context, table string) (*types.TableSchema, error)
	TableExists(ctx context.Context, table string) (bool, error)
	GetForeignKeys(ctx context.Context, table string) (map[string]types.ForeignKey, error)
	// GetCheckConstraints returns the enumerated value sets of simple
	// column IN (...) checks, keyed by column.
	GetCheckConstraints(ctx context.Context, table string) (map[string][]string, error)
	// SampleReferencedValues returns up to limit distinct non-null values of
	// a referenced column.
	SampleReferencedValues(ctx context.Context, table, column string, limit int) ([]interface{}, error)
}

// RowStore is the row-level read surface used while allocating keys.
type RowStore interface {
	SelectRows(ctx context.Context, sel types.Selection) ([]types.Row, error)
	SelectKeys(ctx context.Context, src types.SourceSpec, where string, keyColumns []string) ([]types.KeyTuple, error)
	KeyExists(ctx context.Context, table string, keyColumns []string, key types.KeyTuple) (bool, error)
	ValueExists(ctx context.Context, table, column string, value interface{}) (bool, error)
	ColumnValues(ctx context.Context, table, column string, limit int) ([]interface{}, error)
	MaxValue(ctx context.Context, src types.SourceSpec, column string) (interface{}, error)
	SourceColumns(ctx context.Context, src types.SourceSpec) ([]string, error)
}

// Dialect renders provider-specific SQL text.
type Dialect interface {
	Name() string
	QuoteLiteral(v interface{}) string
	// SequenceExpr is the expression drawing the next value of a sequence.
	SequenceExpr(sequence string) string
	// IdentityInsertClause is placed between the column list and VALUES when
	// explicit values are written into identity columns, empty when the
	// provider needs none.
	IdentityInsertClause() string
	// CreateTableAs renders a statement copying the rows matching where into a new table.
	CreateTableAs(table, from, where string) string
}

// Store is everything the allocator needs from a database.
type Store interface {
	MetadataProvider
	RowStore
	Dialect
}

type DatabaseAdapter interface {
	Store

	Connect(ctx context.Context, url string) error
	Close() error
	Ping(ctx context.Context) error

	// ExecuteScript runs statements in a single transaction.
	ExecuteScript(ctx context.Context, statements []string) error
}
