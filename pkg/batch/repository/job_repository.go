package repository

import (
	"weatheretl/pkg/batch/database"
	"weatheretl/pkg/batch/repository/job"
)

// JobRepository はバッチ実行に関するメタデータを永続化・管理するためのインターフェースです。
// 複数のより小さなリポジトリインターフェースを埋め込むことで、責務を分割します。
type JobRepository interface {
	job.JobExecution
	job.StepExecution

	// Close はリポジトリが使用するリソース (データベース接続など) を解放します。
	Close() error

	// GetDBConnection は、このリポジトリが使用するデータベース接続を返します。
	// データベースが設定されていない場合は nil です。
	GetDBConnection() database.DBConnection
}
