package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

// schemaOf returns the database holding table, the connection's database
// when the name is not qualified.
func (m *Adapter) schemaOf(table string) (string, string) {
	schema, name := common.SplitQualified(table)
	if schema == "" {
		schema = m.dbName
	}
	return schema, name
}

func (m *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	schema, name := m.schemaOf(table)

	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name = ? AND table_schema = COALESCE(NULLIF(?, ''), DATABASE())
	`, name, schema).Scan(&count)
	return count > 0, err
}

func (m *Adapter) GetSchema(ctx context.Context, table string) (*types.TableSchema, error) {
	if !common.IsValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	schemaName, name := m.schemaOf(table)

	columns, checks, err := m.getColumns(ctx, schemaName, name)
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
		Checks:      checks,
	}

	primary, err := m.applyConstraints(ctx, schema)
	if err != nil {
		return nil, err
	}
	m.applyChecks(ctx, schema)
	schema.ResolveKey(primary)
	return schema, nil
}

func (m *Adapter) getColumns(ctx context.Context, schemaName, table string) ([]types.Column, map[string][]string, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.extra
		FROM information_schema.columns c
		WHERE c.table_name = ? AND c.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		ORDER BY c.ordinal_position
	`, table, schemaName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []types.Column
	checks := make(map[string][]string)
	for rows.Next() {
		var column types.Column
		var dataType, columnType, isNullable, extra string
		var columnDefault sql.NullString
		var charMaxLength, numericPrecision, numericScale sql.NullInt64

		err := rows.Scan(
			&column.Name,
			&dataType,
			&columnType,
			&isNullable,
			&columnDefault,
			&charMaxLength,
			&numericPrecision,
			&numericScale,
			&extra,
		)
		if err != nil {
			return nil, nil, err
		}

		column.DataType = m.formatMySQLType(dataType, columnType, charMaxLength, numericPrecision, numericScale)
		column.Semantic = common.MapSemantic(column.DataType)
		column.Nullable = isNullable == "YES"
		if charMaxLength.Valid {
			column.Length = int(charMaxLength.Int64)
		}
		if numericPrecision.Valid {
			column.Precision = int(numericPrecision.Int64)
		}
		if numericScale.Valid {
			column.Scale = int(numericScale.Int64)
		}
		if columnDefault.Valid {
			column.Default = columnDefault.String
		}
		// generated columns reject explicit values
		if strings.Contains(strings.ToUpper(extra), "GENERATED") && !strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED") {
			column.Identity = true
			column.Generated = true
		}

		if values := extractEnumValues(columnType); len(values) > 0 {
			column.Semantic = types.SemanticString
			checks[column.Name] = values
		}

		columns = append(columns, column)
	}
	return columns, checks, rows.Err()
}

func extractEnumValues(columnType string) []string {
	if !strings.HasPrefix(columnType, "enum(") {
		return nil
	}

	values := strings.TrimPrefix(columnType, "enum(")
	values = strings.TrimSuffix(values, ")")

	var result []string
	parts := strings.Split(values, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, "'\"")
		if part != "" {
			result = append(result, part)
		}
	}

	return result
}

func (m *Adapter) applyConstraints(ctx context.Context, schema *types.TableSchema) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT
			tc.constraint_name,
			tc.constraint_type,
			kcu.column_name,
			COALESCE(kcu.referenced_table_name, ''),
			COALESCE(kcu.referenced_column_name, '')
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_name = ?
		  AND tc.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
		ORDER BY tc.constraint_type, tc.constraint_name, kcu.ordinal_position
	`, schema.Name, schema.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to read constraints of %s: %w", schema.Name, err)
	}
	defer rows.Close()

	var primary []string
	var unique common.GroupConstraintColumns
	for rows.Next() {
		var name, kind, column, refTable, refColumn string
		if err := rows.Scan(&name, &kind, &column, &refTable, &refColumn); err != nil {
			return nil, err
		}

		switch kind {
		case "PRIMARY KEY":
			primary = append(primary, column)
		case "UNIQUE":
			unique.Add(name, column)
		case "FOREIGN KEY":
			schema.ForeignKeys[column] = types.ForeignKey{Column: column, RefTable: refTable, RefColumn: refColumn}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	schema.UniqueKeys = unique.Lists()
	return primary, nil
}

// applyChecks reads CHECK constraints. Servers without
// information_schema.check_constraints are skipped silently.
func (m *Adapter) applyChecks(ctx context.Context, schema *types.TableSchema) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT cc.check_clause
		FROM information_schema.check_constraints cc
		JOIN information_schema.table_constraints tc
			ON cc.constraint_schema = tc.constraint_schema
			AND cc.constraint_name = tc.constraint_name
		WHERE tc.table_name = ?
		  AND tc.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND tc.constraint_type = 'CHECK'
	`, schema.Name, schema.Schema)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var clause string
		if err := rows.Scan(&clause); err != nil {
			continue
		}
		for _, c := range schema.Columns {
			if values := common.ParseCheckInList(c.Name, clause); len(values) > 0 {
				schema.Checks[c.Name] = values
			}
		}
	}
}

func (m *Adapter) formatMySQLType(dataType, columnType string, charMaxLength, numericPrecision, numericScale sql.NullInt64) string {
	switch strings.ToLower(dataType) {
	case "varchar", "char":
		if charMaxLength.Valid {
			return fmt.Sprintf("%s(%d)", strings.ToUpper(dataType), charMaxLength.Int64)
		}
	case "decimal", "numeric":
		if numericPrecision.Valid && numericScale.Valid {
			return fmt.Sprintf("DECIMAL(%d,%d)", numericPrecision.Int64, numericScale.Int64)
		}
	case "enum":
		return columnType
	case "tinyint":
		if strings.HasPrefix(strings.ToLower(columnType), "tinyint(1)") {
			return "BOOLEAN"
		}
	}
	return m.MapColumnType(dataType)
}

func (m *Adapter) GetForeignKeys(ctx context.Context, table string) (map[string]types.ForeignKey, error) {
	schema, err := m.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	return schema.ForeignKeys, nil
}

func (m *Adapter) GetCheckConstraints(ctx context.Context, table string) (map[string][]string, error) {
	schema, err := m.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	return schema.Checks, nil
}
