package types

import (
	"errors"
	"fmt"
)

var (
	ErrSchemaNotFound           = errors.New("table or view not found")
	ErrNoCommonColumns          = errors.New("source and target share no columns")
	ErrNoUpdatableColumns       = errors.New("no updatable columns")
	ErrReferenceDataUnavailable = errors.New("reference table has no rows")
	ErrUnresolvableForeignKey   = errors.New("unresolvable foreign key")
	ErrKeyCollisionExhausted    = errors.New("key collision retries exhausted")
	ErrNoInsertableKey          = errors.New("key column is an identity column")
	ErrInvalidConfig            = errors.New("invalid configuration")
)

// ForeignKeyError reports a row whose foreign key value could not be corrected.
type ForeignKeyError struct {
	Column    string
	Value     any
	RefTable  string
	RefColumn string
	Key       KeyTuple
}

func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("row %s: %s=%v has no match in %s.%s and the referenced table is empty",
		e.Key, e.Column, e.Value, e.RefTable, e.RefColumn)
}

func (e *ForeignKeyError) Unwrap() error {
	return ErrUnresolvableForeignKey
}
