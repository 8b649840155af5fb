package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

// pragma renders a table PRAGMA. PRAGMA does not accept bound parameters so
// names are validated before use.
func pragma(name, table string) (string, error) {
	if !common.IsValidIdentifier(table) {
		return "", fmt.Errorf("invalid table name: %s", table)
	}
	schema, t := common.SplitQualified(table)
	if schema != "" {
		return fmt.Sprintf("PRAGMA \"%s\".%s(\"%s\")", schema, name, t), nil
	}
	return fmt.Sprintf("PRAGMA %s(\"%s\")", name, t), nil
}

func (s *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	_, name := common.SplitQualified(table)

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ? COLLATE NOCASE", name).Scan(&count)
	return count > 0, err
}

func (s *Adapter) GetSchema(ctx context.Context, table string) (*types.TableSchema, error) {
	schemaName, name := common.SplitQualified(table)

	columns, primary, err := s.getColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: %w", table, types.ErrSchemaNotFound)
	}

	schema := &types.TableSchema{
		Schema:      schemaName,
		Name:        name,
		Columns:     columns,
		ForeignKeys: make(map[string]types.ForeignKey),
		Checks:      make(map[string][]string),
	}

	if schema.UniqueKeys, err = s.getUniqueKeys(ctx, table); err != nil {
		return nil, err
	}
	if err := s.applyForeignKeys(ctx, schema); err != nil {
		return nil, err
	}
	s.applyChecks(ctx, schema)

	schema.ResolveKey(primary)
	return schema, nil
}

// getColumns returns the columns and the primary key columns in key order.
func (s *Adapter) getColumns(ctx context.Context, table string) ([]types.Column, []string, error) {
	query, err := pragma("table_xinfo", table)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []types.Column
	pkOrder := make(map[int]string)
	for rows.Next() {
		var cid, notNull, pk, hidden int
		var column types.Column
		var dataType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &column.Name, &dataType, &notNull, &defaultValue, &pk, &hidden); err != nil {
			return nil, nil, err
		}
		// hidden columns of virtual tables are not part of the row
		if hidden == 1 {
			continue
		}

		column.DataType = s.formatSQLiteType(dataType)
		column.Semantic = semantic(column.DataType)
		column.Length, column.Scale = common.ParseLength(dataType)
		column.Nullable = notNull == 0 && pk == 0
		column.Generated = hidden == 2 || hidden == 3
		column.Identity = column.Generated
		if defaultValue.Valid {
			column.Default = s.formatSQLiteDefault(defaultValue.String)
		}
		if pk > 0 {
			pkOrder[pk] = column.Name
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	primary := make([]string, 0, len(pkOrder))
	for i := 1; i <= len(pkOrder); i++ {
		primary = append(primary, pkOrder[i])
	}
	return columns, primary, nil
}

func (s *Adapter) getUniqueKeys(ctx context.Context, table string) ([][]string, error) {
	query, err := pragma("index_list", table)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	var names []string
	for rows.Next() {
		var seq, unique, partial int
		var indexName, origin string
		if err := rows.Scan(&seq, &indexName, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		if unique == 1 && origin != "pk" && partial == 0 {
			names = append(names, indexName)
		}
	}
	rows.Close()

	// index_list reports the newest index first
	keys := make([][]string, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		if cols := s.getIndexColumns(ctx, names[i]); len(cols) > 0 {
			keys = append(keys, cols)
		}
	}
	return keys, nil
}

func (s *Adapter) getIndexColumns(ctx context.Context, indexName string) []string {
	colRows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(\"%s\")", strings.ReplaceAll(indexName, `"`, `""`)))
	if err != nil {
		return nil
	}
	defer colRows.Close()

	var columns []string
	for colRows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := colRows.Scan(&seqno, &cid, &name); err == nil && name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns
}

func (s *Adapter) applyForeignKeys(ctx context.Context, schema *types.TableSchema) error {
	query, err := pragma("foreign_key_list", schema.QualifiedName())
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}

	var fks []types.ForeignKey
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			rows.Close()
			return err
		}
		fks = append(fks, types.ForeignKey{Column: from, RefTable: refTable, RefColumn: to.String})
	}
	rows.Close()

	for _, fk := range fks {
		// a reference without a column targets the parent's primary key
		if fk.RefColumn == "" {
			_, primary, err := s.getColumns(ctx, fk.RefTable)
			if err != nil || len(primary) == 0 {
				continue
			}
			fk.RefColumn = primary[0]
		}
		schema.ForeignKeys[fk.Column] = fk
	}
	return nil
}

// applyChecks scans the table definition for enumerated CHECK constraints.
func (s *Adapter) applyChecks(ctx context.Context, schema *types.TableSchema) {
	var ddl sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", schema.Name).Scan(&ddl)
	if err != nil || !ddl.Valid {
		return
	}
	for _, c := range schema.Columns {
		if values := common.ParseCheckInList(c.Name, ddl.String); len(values) > 0 {
			schema.Checks[c.Name] = values
		}
	}
}

// semantic classifies a declared type. SQLite TEXT is an ordinary string type.
func semantic(dataType string) types.SemanticType {
	if strings.EqualFold(strings.TrimSpace(dataType), "TEXT") {
		return types.SemanticString
	}
	return common.MapSemantic(dataType)
}

func (s *Adapter) formatSQLiteType(dataType string) string {
	switch strings.ToUpper(dataType) {
	case "INTEGER":
		return "INTEGER"
	case "TEXT":
		return "TEXT"
	case "REAL":
		return "REAL"
	case "BLOB":
		return "BLOB"
	case "NUMERIC":
		return "NUMERIC"
	default:
		return strings.ToUpper(dataType)
	}
}

func (s *Adapter) formatSQLiteDefault(defaultValue string) string {
	if defaultValue == "" {
		return ""
	}

	if strings.Contains(strings.ToLower(defaultValue), "current_timestamp") {
		return "CURRENT_TIMESTAMP"
	}

	return defaultValue
}

func (s *Adapter) GetForeignKeys(ctx context.Context, table string) (map[string]types.ForeignKey, error) {
	schema, err := s.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	return schema.ForeignKeys, nil
}

func (s *Adapter) GetCheckConstraints(ctx context.Context, table string) (map[string][]string, error) {
	schema, err := s.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	return schema.Checks, nil
}
