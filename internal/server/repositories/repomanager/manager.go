// Package repomanager opens the configured database and vends repositories
// bound to a dbx.DBTX, plus the goose migration hook.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/abateiq-edge/internal/dbx"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/migrations"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/resetrequests"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// Goose dialect names double as database/sql driver names.
const (
	DialectPostgres = "pgx"
	DialectSQLite   = "sqlite3"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	ResetRequests(db dbx.DBTX) resetrequests.Repository
	Submissions(db dbx.DBTX) submissions.Repository
}

// SQLRepositoryManager vends the SQL repositories. Queries are written with
// $n placeholders, which both drivers accept.
type SQLRepositoryManager struct {
	dialect string
}

func NewSQLRepositoryManager(dialect string) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

func (m *SQLRepositoryManager) Dialect() string {
	return m.dialect
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) ResetRequests(db dbx.DBTX) resetrequests.Repository {
	return resetrequests.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Submissions(db dbx.DBTX) submissions.Repository {
	return submissions.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// ParseDSN picks the driver from the DSN. "sqlite3:" is stripped, "file:"
// URIs and paths ending in .db or .sqlite go to SQLite, anything else is
// handed to pgx.
func ParseDSN(dsn string) (dialect, source string) {
	switch {
	case strings.HasPrefix(dsn, "sqlite3:"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite3:")
	case strings.HasPrefix(dsn, "file:"),
		strings.HasSuffix(dsn, ".db"),
		strings.HasSuffix(dsn, ".sqlite"):
		return DialectSQLite, dsn
	default:
		return DialectPostgres, dsn
	}
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open opens and pings the database named by dsn and returns a manager for
// its dialect.
func Open(ctx context.Context, dsn string) (*sql.DB, *SQLRepositoryManager, error) {
	dialect, source := ParseDSN(dsn)

	db, err := sqlOpen(dialect, source)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// one writer keeps SQLite from returning SQLITE_BUSY under load
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, NewSQLRepositoryManager(dialect), nil
}
