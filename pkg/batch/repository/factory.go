package repository

import (
	"weatheretl/pkg/batch/database"
	logger "weatheretl/pkg/batch/util/logger"
)

// NewJobRepository は接続の有無と方言に応じて JobRepository を選択します。
//
//   - 接続がない場合: InMemoryJobRepository
//   - 実行履歴テーブルを持たない方言 (Snowflake): InMemoryJobRepository (接続は業務データ用に保持)
//   - それ以外: SQLJobRepository
//
// 接続の所有権はリポジトリに移り、Close でまとめて解放されます。
func NewJobRepository(conn database.DBConnection) JobRepository {
	if conn == nil {
		logger.Debugf("データベースが設定されていないため、InMemoryJobRepository を使用します。")
		return NewInMemoryJobRepository(nil)
	}
	if !conn.Dialect().SupportsJobRepository() {
		logger.Warnf("%s には実行履歴テーブルを作成しないため、実行履歴はメモリ上にのみ保持されます。", conn.Dialect())
		return NewInMemoryJobRepository(conn)
	}
	logger.Debugf("SQLJobRepository を生成しました。Dialect: %s", conn.Dialect())
	return NewSQLJobRepository(conn)
}
