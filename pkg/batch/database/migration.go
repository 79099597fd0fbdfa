package database

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"weatheretl/pkg/batch/util/exception"
	"weatheretl/pkg/batch/util/logger"
)

// MigrationsTable はバッチフレームワークのマイグレーション履歴テーブルです。
// アプリケーション側のテーブルと衝突しないよう専用の名前を使います。
const MigrationsTable = "batch_schema_migrations"

//go:embed migrations
var migrationFS embed.FS

func migrationDir(dialect Dialect) (string, bool) {
	switch dialect {
	case DialectPostgres, DialectRedshift:
		return "migrations/postgres", true
	case DialectMySQL:
		return "migrations/mysql", true
	case DialectSQLite:
		return "migrations/sqlite", true
	default:
		return "", false
	}
}

func migrationDriver(db *sql.DB, dialect Dialect) (migratedb.Driver, error) {
	switch dialect {
	case DialectPostgres, DialectRedshift:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	case DialectMySQL:
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: MigrationsTable})
	case DialectSQLite:
		return sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, errors.New("unsupported dialect: " + string(dialect))
	}
}

// RunMigrations は実行履歴テーブル (job_executions, step_executions) のマイグレーションを適用します。
// ownsDB が true の場合、完了後に db をクローズします。
// PostgreSQL と MySQL のドライバは専用のコネクションを確保するため、それらでは専用の *sql.DB を渡してください。
func RunMigrations(db *sql.DB, dialect Dialect, ownsDB bool) error {
	dir, ok := migrationDir(dialect)
	if !ok {
		return exception.NewBatchErrorf("migration", exception.KindConfig, "サポートされていないデータベースタイプ: %s", dialect)
	}
	logger.Infof("データベースマイグレーションを開始します。DBタイプ: %s, マイグレーション: %s", dialect, dir)

	src, err := iofs.New(migrationFS, dir)
	if err != nil {
		return exception.NewBatchError("migration", exception.KindInternal, "マイグレーションソースの読み込みに失敗しました", err)
	}
	driver, err := migrationDriver(db, dialect)
	if err != nil {
		return exception.NewBatchError("migration", exception.KindPersistence, "マイグレーションドライバの作成に失敗しました", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		return exception.NewBatchError("migration", exception.KindPersistence, "マイグレーションインスタンスの作成に失敗しました", err)
	}
	if ownsDB {
		defer m.Close()
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("マイグレーションは不要です。データベースは最新の状態です。")
			return nil
		}
		return exception.NewBatchError("migration", exception.KindPersistence, "マイグレーションの実行に失敗しました", err)
	}

	logger.Infof("データベースマイグレーションが正常に完了しました。")
	return nil
}
