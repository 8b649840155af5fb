package common

import "fmt"

// CreateTableAs renders a CREATE TABLE ... AS SELECT copying matching rows.
// All supported providers accept this form.
func CreateTableAs(table, from, where string) string {
	if where == "" {
		return fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", table, from)
	}
	return fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s WHERE %s", table, from, where)
}

// GroupConstraintColumns collects constraint columns in declaration order,
// keyed by constraint name, preserving the order constraints were first seen.
type GroupConstraintColumns struct {
	names   []string
	columns map[string][]string
}

func (g *GroupConstraintColumns) Add(constraint, column string) {
	if g.columns == nil {
		g.columns = make(map[string][]string)
	}
	if _, ok := g.columns[constraint]; !ok {
		g.names = append(g.names, constraint)
	}
	g.columns[constraint] = append(g.columns[constraint], column)
}

// Lists returns the column lists in first-seen order.
func (g *GroupConstraintColumns) Lists() [][]string {
	out := make([][]string, 0, len(g.names))
	for _, n := range g.names {
		out = append(out, g.columns[n])
	}
	return out
}
