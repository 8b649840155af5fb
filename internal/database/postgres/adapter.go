package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type Adapter struct {
	*common.RowStore
	pool *pgxpool.Pool
	qb   squirrel.StatementBuilderType
}

var typeMap = map[string]string{
	"character varying": "VARCHAR", "varchar": "VARCHAR",
	"character": "CHAR", "char": "CHAR", "bpchar": "CHAR", "text": "TEXT",
	"integer": "INTEGER", "int4": "INTEGER", "bigint": "BIGINT", "int8": "BIGINT",
	"smallint": "SMALLINT", "int2": "SMALLINT", "boolean": "BOOLEAN", "bool": "BOOLEAN",
	"timestamp with time zone": "TIMESTAMP WITH TIME ZONE", "timestamptz": "TIMESTAMP WITH TIME ZONE",
	"timestamp without time zone": "TIMESTAMP", "timestamp": "TIMESTAMP",
	"date": "DATE", "time": "TIME", "numeric": "NUMERIC", "decimal": "NUMERIC",
	"real": "REAL", "float4": "REAL", "double precision": "DOUBLE PRECISION", "float8": "DOUBLE PRECISION",
	"uuid": "UUID", "json": "JSON", "jsonb": "JSONB", "citext": "CITEXT",
}

func New() *Adapter {
	a := &Adapter{
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	a.RowStore = common.NewRowStore(a, a.qb)
	return a
}

func (p *Adapter) Connect(ctx context.Context, url string) error {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("failed to parse connection URL: %w", err)
	}

	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	config.MaxConns = 2
	config.MinConns = 0
	config.MaxConnLifetime = 15 * time.Minute
	config.MaxConnIdleTime = 3 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	p.pool = pool
	return nil
}

func (p *Adapter) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *Adapter) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Adapter) ExecuteScript(ctx context.Context, statements []string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query implements common.Querier on the pool.
func (p *Adapter) Query(ctx context.Context, query string, args ...interface{}) (*common.QueryResult, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescriptions := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescriptions))
	for i, fd := range fieldDescriptions {
		columns[i] = string(fd.Name)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = plainValue(values[i])
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &common.QueryResult{
		Columns: columns,
		Rows:    results,
	}, nil
}

// plainValue unwraps pgx representations that have no literal form of their own.
func plainValue(v interface{}) interface{} {
	switch n := v.(type) {
	case [16]byte:
		return uuid.UUID(n).String()
	case pgtype.Numeric:
		if !n.Valid {
			return nil
		}
		if i, err := n.Int64Value(); err == nil && i.Valid && n.Exp >= 0 {
			return i.Int64
		}
		if dv, err := n.Value(); err == nil {
			if s, ok := dv.(string); ok {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					return f
				}
				return s
			}
		}
		return nil
	case driver.Valuer:
		dv, err := n.Value()
		if err != nil {
			return v
		}
		return dv
	default:
		return v
	}
}

func (p *Adapter) Name() string {
	return "postgresql"
}

func (p *Adapter) QuoteLiteral(v interface{}) string {
	return common.FormatValue(v, pq.QuoteLiteral)
}

func (p *Adapter) SequenceExpr(sequence string) string {
	return fmt.Sprintf("nextval(%s)", pq.QuoteLiteral(sequence))
}

func (p *Adapter) IdentityInsertClause() string {
	return "OVERRIDING SYSTEM VALUE"
}

func (p *Adapter) CreateTableAs(table, from, where string) string {
	return common.CreateTableAs(table, from, where)
}

func (p *Adapter) MapColumnType(dbType string) string {
	if mapped, exists := typeMap[strings.ToLower(dbType)]; exists {
		return mapped
	}
	return strings.ToUpper(dbType)
}

// semantic classifies a formatted column type. PostgreSQL TEXT is an
// ordinary string type.
func semantic(dataType, udtName string, isEnum bool) types.SemanticType {
	if isEnum {
		return types.SemanticString
	}
	switch strings.ToLower(udtName) {
	case "text", "citext":
		return types.SemanticString
	}
	return common.MapSemantic(dataType)
}
