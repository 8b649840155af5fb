package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Masterminds/squirrel"
	driver "github.com/go-sql-driver/mysql"
)

type Adapter struct {
	*common.RowStore
	db     *sql.DB
	qb     squirrel.StatementBuilderType
	dbName string
}

var typeMap = map[string]string{
	"varchar": "VARCHAR", "char": "CHAR",
	"text": "TEXT", "longtext": "LONGTEXT", "mediumtext": "MEDIUMTEXT", "tinytext": "TINYTEXT",
	"int": "INT", "integer": "INT", "bigint": "BIGINT", "smallint": "SMALLINT", "tinyint": "TINYINT",
	"boolean": "BOOLEAN", "bool": "BOOLEAN",
	"datetime": "DATETIME", "timestamp": "TIMESTAMP", "date": "DATE", "time": "TIME",
	"decimal": "DECIMAL", "numeric": "DECIMAL", "float": "FLOAT", "double": "DOUBLE",
	"json": "JSON", "blob": "BLOB", "binary": "BINARY", "varbinary": "VARBINARY",
}

func New() *Adapter {
	a := &Adapter{
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
	a.RowStore = common.NewRowStore(a, a.qb)
	return a
}

// toDSN converts a mysql:// URL into a driver DSN.
func toDSN(url string) string {
	if !strings.HasPrefix(url, "mysql://") {
		return url
	}
	dsn := strings.TrimPrefix(url, "mysql://")

	atIndex := strings.LastIndex(dsn, "@")
	if atIndex <= 0 {
		return dsn
	}
	credentials := dsn[:atIndex]
	remainder := dsn[atIndex+1:]

	slashIndex := strings.Index(remainder, "/")
	if slashIndex <= 0 {
		return dsn
	}
	hostPort := remainder[:slashIndex]
	dbAndParams := remainder[slashIndex+1:]

	dbAndParams = strings.ReplaceAll(dbAndParams, "ssl-mode=REQUIRED", "tls=skip-verify")
	dbAndParams = strings.ReplaceAll(dbAndParams, "ssl-mode=DISABLED", "tls=false")
	dbAndParams = strings.ReplaceAll(dbAndParams, "ssl-mode=VERIFY_CA", "tls=true")
	dbAndParams = strings.ReplaceAll(dbAndParams, "ssl-mode=VERIFY_IDENTITY", "tls=true")
	dbAndParams = strings.ReplaceAll(dbAndParams, "sslmode=require", "tls=skip-verify")
	dbAndParams = strings.ReplaceAll(dbAndParams, "sslmode=disable", "tls=false")
	dbAndParams = strings.ReplaceAll(dbAndParams, "sslmode=verify-ca", "tls=true")
	dbAndParams = strings.ReplaceAll(dbAndParams, "sslmode=verify-full", "tls=true")

	return fmt.Sprintf("%s@tcp(%s)/%s", credentials, hostPort, dbAndParams)
}

func (m *Adapter) Connect(ctx context.Context, url string) error {
	cfg, err := driver.ParseDSN(toDSN(url))
	if err != nil {
		return fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	m.dbName = cfg.DBName

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	m.db = db
	return nil
}

func (m *Adapter) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *Adapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// ExecuteScript runs the leading backup DDL on its own, since MySQL commits
// implicitly around CREATE TABLE, then the DML in a single transaction.
func (m *Adapter) ExecuteScript(ctx context.Context, statements []string) error {
	ddl, rest := common.SplitLeadingDDL(statements)
	for _, stmt := range ddl {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create backup table: %w", err)
		}
	}
	if len(rest) == 0 {
		return nil
	}
	return common.ExecScript(ctx, m.db, rest)
}

func (m *Adapter) Query(ctx context.Context, query string, args ...interface{}) (*common.QueryResult, error) {
	return common.SQLQuerier{DB: m.db}.Query(ctx, query, args...)
}

func (m *Adapter) Name() string {
	return "mysql"
}

// QuoteLiteral escapes backslashes too, MySQL treats them as escapes by default.
func (m *Adapter) QuoteLiteral(v interface{}) string {
	return common.FormatValue(v, quoteString)
}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SequenceExpr yields NULL, which MySQL replaces with the next AUTO_INCREMENT value.
func (m *Adapter) SequenceExpr(string) string {
	return "NULL"
}

func (m *Adapter) IdentityInsertClause() string {
	return ""
}

func (m *Adapter) CreateTableAs(table, from, where string) string {
	return common.CreateTableAs(table, from, where)
}

func (m *Adapter) MapColumnType(dbType string) string {
	if mapped, exists := typeMap[strings.ToLower(dbType)]; exists {
		return mapped
	}
	return strings.ToUpper(dbType)
}
