package connector

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL ドライバ

	"weatheretl/pkg/batch/config"
	"weatheretl/pkg/batch/database"
)

// postgresConnector はPostgreSQLデータベースへの接続を確立するDBConnectorの実装です。
// lib/pq は URL 形式の DSN をそのまま受け付けます。
type postgresConnector struct{}

// Connect はPostgreSQLデータベースへの接続を確立し、*sqlx.DBを返します。
func (c *postgresConnector) Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return openAndPing(ctx, database.DialectPostgres, cfg.URL, cfg.ConnectionPool)
}

func (c *postgresConnector) Dialect() database.Dialect {
	return database.DialectPostgres
}

func init() {
	RegisterConnector("postgres", &postgresConnector{})
	RegisterConnector("postgresql", &postgresConnector{})
}
