// Package mssql implements the SQL Server storage backend using the
// go-mssqldb bulk copy API.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"csvclean/internal/storage"
	"csvclean/internal/transformer"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN   string
	Table string
}

// Repository is an MSSQL-backed storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// Dialect renders SQL Server DDL. SQL Server has no CREATE TABLE IF NOT
// EXISTS, so Exec rewrites it into an OBJECT_ID guard.
var Dialect = storage.Dialect{
	Name:  "mssql",
	Quote: msIdent,
	Types: map[string]string{
		transformer.TypeText:      "NVARCHAR(MAX)",
		transformer.TypeInteger:   "BIGINT",
		transformer.TypeReal:      "FLOAT",
		transformer.TypeBoolean:   "BIT",
		transformer.TypeDate:      "DATE",
		transformer.TypeTimestamp: "DATETIME2",
		storage.TypeYear:          "INT",
	},
}

// NewRepository validates the DSN, opens and pings the database and returns
// a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// CopyFrom bulk-copies rows into the configured table in one transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.cfg.Table, mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Exec runs a single statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, rewriteCreateIfNotExists(sqlText))
	return err
}

const createIfNotExists = "CREATE TABLE IF NOT EXISTS "

// rewriteCreateIfNotExists turns "CREATE TABLE IF NOT EXISTS t (...)" into
// an IF OBJECT_ID(...) IS NULL guard. Other statements pass through.
func rewriteCreateIfNotExists(s string) string {
	if !strings.HasPrefix(s, createIfNotExists) {
		return s
	}
	rest := s[len(createIfNotExists):]
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return s
	}
	name := strings.TrimSpace(rest[:open])
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s %s",
		strings.ReplaceAll(name, "'", "''"), name, strings.TrimSuffix(strings.TrimSpace(rest[open:]), ";"))
}

func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }
