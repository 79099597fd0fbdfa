package connector

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"weatheretl/pkg/batch/config"
	"weatheretl/pkg/batch/database"
	"weatheretl/pkg/batch/util/exception"
	"weatheretl/pkg/batch/util/logger"
)

// DBConnector は特定のデータベースタイプへの接続を確立するためのインターフェースです。
type DBConnector interface {
	Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error)
	Dialect() database.Dialect
}

// connectors は URL スキームごとに登録された DBConnector の実装を保持するマップです。
var connectors = make(map[string]DBConnector)

// RegisterConnector は指定された URL スキームで DBConnector を登録します。
func RegisterConnector(scheme string, connector DBConnector) {
	if _, exists := connectors[scheme]; exists {
		logger.Warnf("スキーム '%s' の DBConnector は既に登録されています。上書きします。", scheme)
	}
	connectors[scheme] = connector
}

// RegisteredSchemes は登録済みの URL スキームをソートして返します。
func RegisteredSchemes() []string {
	schemes := make([]string, 0, len(connectors))
	for s := range connectors {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Lookup は DATABASE_URL のスキームに対応する DBConnector を返します。
func Lookup(cfg config.DatabaseConfig) (DBConnector, error) {
	scheme := cfg.Scheme()
	if scheme == "" {
		return nil, exception.NewBatchError("database", exception.KindConfig, "DATABASE_URL が設定されていないか、スキームを解析できません", nil)
	}
	c, ok := connectors[scheme]
	if !ok {
		return nil, exception.NewBatchErrorf("database", exception.KindConfig,
			"未対応のデータベーススキーム: %s (対応: %s)", scheme, strings.Join(RegisteredSchemes(), ", "))
	}
	return c, nil
}

// NewDBConnectionFromConfig は設定に基づいて適切なデータベース接続を確立します。
// 登録されたコネクタの中から DATABASE_URL のスキームに一致するものを選択して接続します。
func NewDBConnectionFromConfig(ctx context.Context, cfg config.DatabaseConfig) (database.DBConnection, error) {
	c, err := Lookup(cfg)
	if err != nil {
		return nil, err
	}
	db, err := c.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return database.NewDBConnection(db, c.Dialect()), nil
}

// openAndPing は接続を開き、プール設定を適用して疎通を確認します。失敗した場合は接続を閉じます。
func openAndPing(ctx context.Context, dialect database.Dialect, dsn string, pool config.ConnectionPoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, exception.NewBatchErrorf("database", exception.KindPersistence, "%s への接続に失敗しました", dialect, err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, exception.NewBatchErrorf("database", exception.KindPersistence, "%s への Ping に失敗しました", dialect, err)
	}

	logger.Debugf("%s に正常に接続しました。MaxOpenConns: %d, MaxIdleConns: %d, ConnMaxLifetime: %d秒",
		dialect, pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetimeSeconds)
	return db, nil
}

// stripScheme は "scheme://" または "scheme:" の接頭辞を取り除きます。
func stripScheme(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		return rawURL[i+3:]
	}
	if i := strings.Index(rawURL, ":"); i >= 0 {
		return rawURL[i+1:]
	}
	return rawURL
}
