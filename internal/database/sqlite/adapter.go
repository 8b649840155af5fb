package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

type Adapter struct {
	*common.RowStore
	db *sql.DB
	qb squirrel.StatementBuilderType
}

func New() *Adapter {
	a := &Adapter{
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
	a.RowStore = common.NewRowStore(a, a.qb)
	return a
}

func (s *Adapter) Connect(ctx context.Context, url string) error {
	dbPath := strings.TrimPrefix(url, "sqlite://")
	if !strings.Contains(dbPath, "?") {
		dbPath += "?cache=shared&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s.db = db
	return nil
}

func (s *Adapter) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Adapter) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Adapter) ExecuteScript(ctx context.Context, statements []string) error {
	return common.ExecScript(ctx, s.db, statements)
}

func (s *Adapter) Query(ctx context.Context, query string, args ...interface{}) (*common.QueryResult, error) {
	return common.SQLQuerier{DB: s.db}.Query(ctx, query, args...)
}

func (s *Adapter) Name() string {
	return "sqlite"
}

func (s *Adapter) QuoteLiteral(v interface{}) string {
	return common.FormatValue(v, common.QuoteStandard)
}

// SequenceExpr yields NULL, which SQLite replaces with a fresh rowid.
func (s *Adapter) SequenceExpr(string) string {
	return "NULL"
}

func (s *Adapter) IdentityInsertClause() string {
	return ""
}

func (s *Adapter) CreateTableAs(table, from, where string) string {
	return common.CreateTableAs(table, from, where)
}
