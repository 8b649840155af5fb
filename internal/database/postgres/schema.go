package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

var nextvalRegex = regexp.MustCompile(`nextval\('([^']+)'`)

func (p *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	schema, name := common.SplitQualified(table)

	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE lower(table_name) = lower($1)
			  AND table_schema = COALESCE(NULLIF($2, ''), current_schema())
		)
	`, name, schema).Scan(&exists)
	return exists, err
}

// GetSchema reads one table or view. Names match case-insensitively since
// unquoted identifiers are folded to lower case.
func (p *Adapter) GetSchema(ctx context.Context, table string) (*types.TableSchema, error) {
	if !common.IsValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	schemaName, name := common.SplitQualified(table)

	columns, err := p.getColumns(ctx, schemaName, name)
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

	enums, err := p.getEnumValues(ctx, schemaName, name)
	if err != nil {
		return nil, err
	}
	for col, values := range enums {
		schema.Checks[col] = values
	}

	primary, err := p.applyConstraints(ctx, schema)
	if err != nil {
		return nil, err
	}
	schema.ResolveKey(primary)
	return schema, nil
}

func (p *Adapter) getColumns(ctx context.Context, schemaName, table string) ([]types.Column, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_identity,
			COALESCE(c.identity_generation, ''),
			c.is_generated,
			pg_get_serial_sequence(quote_ident(c.table_schema) || '.' || quote_ident(c.table_name), c.column_name)
		FROM information_schema.columns c
		WHERE lower(c.table_name) = lower($1)
		  AND c.table_schema = COALESCE(NULLIF($2, ''), current_schema())
		ORDER BY c.ordinal_position
	`, table, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var column types.Column
		var dataType, udtName, isNullable, isIdentity, identityGeneration, isGenerated string
		var columnDefault, serialSequence sql.NullString
		var charMaxLength, numericPrecision, numericScale sql.NullInt64

		err := rows.Scan(
			&column.Name,
			&dataType,
			&udtName,
			&isNullable,
			&columnDefault,
			&charMaxLength,
			&numericPrecision,
			&numericScale,
			&isIdentity,
			&identityGeneration,
			&isGenerated,
			&serialSequence,
		)
		if err != nil {
			return nil, err
		}

		column.DataType = p.formatPostgresType(udtName, charMaxLength, numericPrecision, numericScale)
		column.Semantic = semantic(column.DataType, udtName, dataType == "USER-DEFINED")
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

		switch {
		case isGenerated == "ALWAYS":
			column.Identity = true
			column.Generated = true
		case isIdentity == "YES" && identityGeneration == "ALWAYS":
			column.Identity = true
		case serialSequence.Valid:
			column.Sequence = serialSequence.String
		case columnDefault.Valid:
			if m := nextvalRegex.FindStringSubmatch(columnDefault.String); m != nil {
				column.Sequence = m[1]
			}
		}
		if columnDefault.Valid {
			column.Default = p.cleanDefaultValue(columnDefault.String)
		}

		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func (p *Adapter) getEnumValues(ctx context.Context, schemaName, table string) (map[string][]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.attname, e.enumlabel
		FROM pg_attribute a
		JOIN pg_class cls ON a.attrelid = cls.oid
		JOIN pg_namespace ns ON cls.relnamespace = ns.oid
		JOIN pg_enum e ON e.enumtypid = a.atttypid
		WHERE lower(cls.relname) = lower($1)
		  AND ns.nspname = COALESCE(NULLIF($2, ''), current_schema())
		  AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum, e.enumsortorder
	`, table, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to read enum values of %s: %w", table, err)
	}
	defer rows.Close()

	enums := make(map[string][]string)
	for rows.Next() {
		var column, label string
		if err := rows.Scan(&column, &label); err != nil {
			return nil, err
		}
		enums[column] = append(enums[column], label)
	}
	return enums, rows.Err()
}

// applyConstraints fills unique keys, foreign keys and enumerated checks and
// returns the primary key columns.
func (p *Adapter) applyConstraints(ctx context.Context, schema *types.TableSchema) ([]string, error) {
	// UNNEST with ordinality keeps composite key columns in declaration order
	rows, err := p.pool.Query(ctx, `
		SELECT
			con.conname,
			con.contype::text,
			src_attr.attname,
			COALESCE(tgt_table.relname, ''),
			COALESCE(tgt_attr.attname, ''),
			COALESCE(pg_get_constraintdef(con.oid), '')
		FROM pg_constraint con
		JOIN pg_class src_table ON con.conrelid = src_table.oid
		JOIN pg_namespace ns ON src_table.relnamespace = ns.oid
		CROSS JOIN LATERAL UNNEST(con.conkey, COALESCE(con.confkey, con.conkey)) WITH ORDINALITY AS cols(src_col, tgt_col, ord)
		JOIN pg_attribute src_attr ON src_attr.attrelid = src_table.oid AND src_attr.attnum = cols.src_col
		LEFT JOIN pg_class tgt_table ON con.confrelid = tgt_table.oid
		LEFT JOIN pg_attribute tgt_attr ON tgt_attr.attrelid = tgt_table.oid AND tgt_attr.attnum = cols.tgt_col
		WHERE lower(src_table.relname) = lower($1)
		  AND ns.nspname = COALESCE(NULLIF($2, ''), current_schema())
		  AND con.contype IN ('p', 'u', 'f', 'c')
		ORDER BY con.contype, con.conname, cols.ord
	`, schema.Name, schema.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to read constraints of %s: %w", schema.Name, err)
	}
	defer rows.Close()

	var primary []string
	var unique common.GroupConstraintColumns
	for rows.Next() {
		var name, kind, column, refTable, refColumn, definition string
		if err := rows.Scan(&name, &kind, &column, &refTable, &refColumn, &definition); err != nil {
			return nil, err
		}

		switch kind {
		case "p":
			primary = append(primary, column)
		case "u":
			unique.Add(name, column)
		case "f":
			schema.ForeignKeys[column] = types.ForeignKey{Column: column, RefTable: refTable, RefColumn: refColumn}
		case "c":
			if values := common.ParseCheckInList(column, definition); len(values) > 0 {
				schema.Checks[column] = values
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	schema.UniqueKeys = unique.Lists()
	return primary, nil
}

func (p *Adapter) formatPostgresType(udtName string, charMaxLength, numericPrecision, numericScale sql.NullInt64) string {
	switch udtName {
	case "varchar", "character varying":
		if charMaxLength.Valid {
			return fmt.Sprintf("VARCHAR(%d)", charMaxLength.Int64)
		}
		return "VARCHAR"
	case "bpchar", "character":
		if charMaxLength.Valid {
			return fmt.Sprintf("CHAR(%d)", charMaxLength.Int64)
		}
		return "CHAR"
	case "numeric":
		if numericPrecision.Valid && numericScale.Valid {
			return fmt.Sprintf("NUMERIC(%d,%d)", numericPrecision.Int64, numericScale.Int64)
		} else if numericPrecision.Valid {
			return fmt.Sprintf("NUMERIC(%d)", numericPrecision.Int64)
		}
		return "NUMERIC"
	case "timestamptz":
		return "TIMESTAMP WITH TIME ZONE"
	case "timestamp":
		return "TIMESTAMP"
	default:
		return p.MapColumnType(udtName)
	}
}

func (p *Adapter) cleanDefaultValue(defaultVal string) string {
	if defaultVal == "" {
		return ""
	}

	if idx := strings.Index(defaultVal, "::"); idx != -1 {
		value := strings.TrimSpace(defaultVal[:idx])

		if strings.Contains(strings.ToLower(value), "nextval") {
			return ""
		}

		if strings.Contains(strings.ToUpper(value), "NOW()") || strings.Contains(strings.ToUpper(value), "CURRENT_TIMESTAMP") {
			return "NOW()"
		}

		return value
	}

	upper := strings.ToUpper(defaultVal)
	if strings.Contains(upper, "NEXTVAL") {
		return ""
	}
	if strings.Contains(upper, "NOW()") || strings.Contains(upper, "CURRENT_TIMESTAMP") {
		return "NOW()"
	}
	if upper == "TRUE" || upper == "FALSE" {
		return upper
	}

	return defaultVal
}

func (p *Adapter) GetForeignKeys(ctx context.Context, table string) (map[string]types.ForeignKey, error) {
	schema, err := p.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	return schema.ForeignKeys, nil
}

func (p *Adapter) GetCheckConstraints(ctx context.Context, table string) (map[string][]string, error) {
	schema, err := p.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	return schema.Checks, nil
}
