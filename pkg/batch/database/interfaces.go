package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Tx はデータベーストランザクションのインターフェースです。
type Tx interface {
	Commit() error
	Rollback() error
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Rebind(query string) string
}

// DBConnection はデータベース接続のインターフェースです。
type DBConnection interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Close() error
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
	Dialect() Dialect
	// DB は下位の *sqlx.DB を返します。マイグレーションなどドライバ固有の処理で使用します。
	DB() *sqlx.DB
}

// sqlxTxAdapter は sqlx.Tx を Tx インターフェースに適合させるアダプターです。
type sqlxTxAdapter struct {
	*sqlx.Tx
}

// sqlxDBAdapter は sqlx.DB を DBConnection インターフェースに適合させるアダプターです。
type sqlxDBAdapter struct {
	db      *sqlx.DB
	dialect Dialect
}

// NewDBConnection は *sqlx.DB を DBConnection でラップします。
func NewDBConnection(db *sqlx.DB, dialect Dialect) DBConnection {
	return &sqlxDBAdapter{db: db, dialect: dialect}
}

func (a *sqlxDBAdapter) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := a.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlxTxAdapter{tx}, nil
}

func (a *sqlxDBAdapter) Close() error {
	return a.db.Close()
}

func (a *sqlxDBAdapter) PingContext(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *sqlxDBAdapter) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return a.db.ExecContext(ctx, query, args...)
}

func (a *sqlxDBAdapter) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.db.QueryContext(ctx, query, args...)
}

func (a *sqlxDBAdapter) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return a.db.QueryRowContext(ctx, query, args...)
}

func (a *sqlxDBAdapter) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return a.db.SelectContext(ctx, dest, query, args...)
}

func (a *sqlxDBAdapter) Rebind(query string) string {
	return a.db.Rebind(query)
}

func (a *sqlxDBAdapter) Dialect() Dialect {
	return a.dialect
}

func (a *sqlxDBAdapter) DB() *sqlx.DB {
	return a.db
}
