package connector

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite ドライバ (cgo 不要)

	"weatheretl/pkg/batch/config"
	"weatheretl/pkg/batch/database"
)

// sqliteConnector はSQLiteファイル (またはインメモリDB) への接続を確立するDBConnectorの実装です。
// sqlite:///path/to/file.db, sqlite://file.db, sqlite::memory: を受け付けます。
type sqliteConnector struct{}

// Connect はSQLiteに接続します。書き込みの競合を避けるため接続は 1 本に制限します。
func (c *sqliteConnector) Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	pool := cfg.ConnectionPool
	pool.MaxOpenConns = 1
	pool.MaxIdleConns = 1
	return openAndPing(ctx, database.DialectSQLite, sqliteDSN(cfg.URL), pool)
}

func (c *sqliteConnector) Dialect() database.Dialect {
	return database.DialectSQLite
}

func sqliteDSN(rawURL string) string {
	return stripScheme(rawURL)
}

func init() {
	RegisterConnector("sqlite", &sqliteConnector{})
}
