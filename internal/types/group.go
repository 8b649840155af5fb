package types

import "strings"

// SourceSpec names where candidate rows come from: a table or a query.
type SourceSpec struct {
	Table string `json:"table,omitempty" yaml:"table,omitempty" mapstructure:"table"`
	Query string `json:"query,omitempty" yaml:"query,omitempty" mapstructure:"query"`
}

func (s SourceSpec) IsQuery() bool {
	return strings.TrimSpace(s.Query) != ""
}

func (s SourceSpec) IsZero() bool {
	return s.Table == "" && !s.IsQuery()
}

func (s SourceSpec) Label() string {
	if s.IsQuery() {
		return "query"
	}
	return s.Table
}

type InsertSelection struct {
	Where   string
	Count   int
	OrderBy []string
}

type Assignment struct {
	Column string
	Values []string
}

// ValueAt returns the configured value for a row position, cycling through
// the list. ok is false when the assignment has no values and one must be
// generated instead.
func (a Assignment) ValueAt(pos int) (string, bool) {
	if len(a.Values) == 0 {
		return "", false
	}
	return a.Values[pos%len(a.Values)], true
}

type UpdateConfig struct {
	Where       string
	SourceWhere string
	Count       int
	Set         []Assignment
}

// SupplementWhere is the predicate used against the source when the target
// cannot satisfy the update count on its own.
func (u UpdateConfig) SupplementWhere() string {
	if strings.TrimSpace(u.SourceWhere) != "" {
		return u.SourceWhere
	}
	return u.Where
}

type Group struct {
	Name    string
	Source  *SourceSpec
	Insert  InsertSelection
	Updates []UpdateConfig
}

// Selection describes one read against a source or target.
type Selection struct {
	Source     SourceSpec
	Columns    []string
	Where      string
	KeyColumns []string
	Exclude    []KeyTuple
	OrderBy    []string
	Limit      int
}
