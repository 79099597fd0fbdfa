package repository

import (
	"weatheretl/pkg/batch/database"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// SQLJobRepository は JobRepository インターフェースの SQL データベース実装です。
// 各リポジトリの具体的な実装を埋め込み、委譲します。
type SQLJobRepository struct {
	dbConnection database.DBConnection

	*SQLJobExecutionRepository
	*SQLStepExecutionRepository
}

// NewSQLJobRepository は新しい SQLJobRepository のインスタンスを作成します。
// 実行履歴テーブルはマイグレーション済みであることを前提とします。
func NewSQLJobRepository(dbConn database.DBConnection) *SQLJobRepository {
	stepRepo := NewSQLStepExecutionRepository(dbConn)
	executionRepo := NewSQLJobExecutionRepository(dbConn)
	executionRepo.SetStepExecutionRepository(stepRepo)

	return &SQLJobRepository{
		dbConnection:               dbConn,
		SQLJobExecutionRepository:  executionRepo,
		SQLStepExecutionRepository: stepRepo,
	}
}

// GetDBConnection は JobRepository インターフェースの実装です。
func (r *SQLJobRepository) GetDBConnection() database.DBConnection {
	return r.dbConnection
}

// Close はデータベース接続を閉じます。
func (r *SQLJobRepository) Close() error {
	if r.dbConnection == nil {
		return nil
	}
	if err := r.dbConnection.Close(); err != nil {
		return exception.NewBatchError("job_repository", exception.KindPersistence, "データベース接続を閉じるのに失敗しました", err)
	}
	logger.Debugf("Job Repository のデータベース接続を閉じました。")
	return nil
}

var _ JobRepository = (*SQLJobRepository)(nil)
