package connector

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Redshift は PostgreSQL のワイヤープロトコル互換のため pq ドライバを使用

	"weatheretl/pkg/batch/config"
	"weatheretl/pkg/batch/database"
)

// redshiftConnector はRedshiftデータベースへの接続を確立するDBConnectorの実装です。
type redshiftConnector struct{}

// Connect は redshift:// を postgres:// に置き換えて接続します。
func (c *redshiftConnector) Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return openAndPing(ctx, database.DialectRedshift, redshiftDSN(cfg.URL), cfg.ConnectionPool)
}

func (c *redshiftConnector) Dialect() database.Dialect {
	return database.DialectRedshift
}

func redshiftDSN(rawURL string) string {
	return "postgres://" + stripScheme(rawURL)
}

func init() {
	RegisterConnector("redshift", &redshiftConnector{})
}
