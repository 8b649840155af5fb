package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type SemanticType int

const (
	SemanticString SemanticType = iota
	SemanticNumeric
	SemanticDate
	SemanticTimestamp
	SemanticLargeText
	SemanticBoolean
	SemanticOther
)

func (s SemanticType) String() string {
	switch s {
	case SemanticString:
		return "string"
	case SemanticNumeric:
		return "numeric"
	case SemanticDate:
		return "date"
	case SemanticTimestamp:
		return "timestamp"
	case SemanticLargeText:
		return "large-text"
	case SemanticBoolean:
		return "boolean"
	default:
		return "other"
	}
}

type KeyKind string

const (
	KeyPrimary     KeyKind = "PRIMARY"
	KeyUnique      KeyKind = "UNIQUE"
	KeyFirstColumn KeyKind = "FIRST_COLUMN_AS_PK"
)

type Column struct {
	Name      string
	DataType  string
	Semantic  SemanticType
	Length    int // declared character length, 0 when unbounded or unknown
	Precision int
	Scale     int
	Nullable  bool
	Identity  bool   // GENERATED ALWAYS, never insertable
	Generated bool   // computed from other columns, implies Identity
	Sequence  string // sequence behind the column default, empty when none
	Default   string
}

func (c Column) HasSequence() bool {
	return c.Sequence != ""
}

// Truncate cuts s to the declared length of the column, counting runes.
func (c Column) Truncate(s string) string {
	if c.Length <= 0 || utf8.RuneCountInString(s) <= c.Length {
		return s
	}
	runes := []rune(s)
	return string(runes[:c.Length])
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

type TableSchema struct {
	Schema      string
	Name        string
	Columns     []Column
	KeyKind     KeyKind
	KeyColumns  []string
	UniqueKeys  [][]string
	ForeignKeys map[string]ForeignKey
	Checks      map[string][]string
}

func (t *TableSchema) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column looks a column up by name, ignoring case.
func (t *TableSchema) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

func (t *TableSchema) IsKey(name string) bool {
	for _, k := range t.KeyColumns {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// IsUnique reports whether the column takes part in any unique key other than the row key.
func (t *TableSchema) IsUnique(name string) bool {
	for _, uk := range t.UniqueKeys {
		for _, c := range uk {
			if strings.EqualFold(c, name) {
				return true
			}
		}
	}
	return false
}

func (t *TableSchema) ForeignKey(name string) (ForeignKey, bool) {
	for col, fk := range t.ForeignKeys {
		if strings.EqualFold(col, name) {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

func (t *TableSchema) Check(name string) []string {
	for col, allowed := range t.Checks {
		if strings.EqualFold(col, name) {
			return allowed
		}
	}
	return nil
}

func (t *TableSchema) InsertableColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Identity {
			cols = append(cols, c)
		}
	}
	return cols
}

// UpdatableColumns excludes key, identity and large-text columns.
func (t *TableSchema) UpdatableColumns() []Column {
	var cols []Column
	for _, c := range t.Columns {
		if t.IsKey(c.Name) || c.Identity || c.Semantic == SemanticLargeText {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// KeyInsertable is false when any key column is an identity column.
func (t *TableSchema) KeyInsertable() bool {
	for _, k := range t.KeyColumns {
		if c, ok := t.Column(k); ok && c.Identity {
			return false
		}
	}
	return true
}

func (t *TableSchema) KeyColumnDefs() []Column {
	cols := make([]Column, 0, len(t.KeyColumns))
	for _, k := range t.KeyColumns {
		if c, ok := t.Column(k); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// KeyOf extracts the key tuple of a row, coercing numeric key values.
func (t *TableSchema) KeyOf(row Row) KeyTuple {
	key := make(KeyTuple, len(t.KeyColumns))
	for i, k := range t.KeyColumns {
		v, _ := row.Get(k)
		if c, ok := t.Column(k); ok {
			v = Coerce(c, v)
		}
		key[i] = v
	}
	return key
}

// ColumnMapping maps target column names to the matching source column names.
func (t *TableSchema) ColumnMapping(sourceColumns []string) map[string]string {
	mapping := make(map[string]string)
	for _, c := range t.Columns {
		for _, s := range sourceColumns {
			if strings.EqualFold(c.Name, s) {
				mapping[c.Name] = s
				break
			}
		}
	}
	return mapping
}

// ResolveKey applies the key fallback: primary key, then first unique key, then first column.
func (t *TableSchema) ResolveKey(primary []string) {
	switch {
	case len(primary) > 0:
		t.KeyKind = KeyPrimary
		t.KeyColumns = primary
	case len(t.UniqueKeys) > 0:
		t.KeyKind = KeyUnique
		t.KeyColumns = t.UniqueKeys[0]
		t.UniqueKeys = t.UniqueKeys[1:]
	case len(t.Columns) > 0:
		t.KeyKind = KeyFirstColumn
		t.KeyColumns = []string{t.Columns[0].Name}
	}
}

func (t *TableSchema) String() string {
	return fmt.Sprintf("%s (%d columns, %s key %v)", t.QualifiedName(), len(t.Columns), t.KeyKind, t.KeyColumns)
}

// Row holds column values keyed by column name.
type Row map[string]any

// Get looks a value up by column name, falling back to a case-insensitive match.
func (r Row) Get(name string) (any, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SequenceRef stands in for a value drawn from a database sequence at insert time.
type SequenceRef struct {
	Name string
}

type ColumnValue struct {
	Column string
	Value  any
}

type Provenance string

const (
	Sourced        Provenance = "SOURCED"
	TargetExisting Provenance = "TARGET_EXISTING"
	MergeInserted  Provenance = "MERGE_INSERTED"
	Synthesized    Provenance = "SYNTHESIZED"
)

// Inserts reports whether rows of this provenance are emitted as INSERT.
func (p Provenance) Inserts() bool {
	return p != TargetExisting
}

type ResolvedRow struct {
	Key         KeyTuple
	Values      Row
	Provenance  Provenance
	Position    int
	Set         []ColumnValue
	Corrections []string
}
