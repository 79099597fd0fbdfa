package joboperator

import (
	"context"

	core "weatheretl/pkg/batch/job/core"
)

// JobOperator はバッチ実行の管理操作を行うためのインターフェースです。
type JobOperator interface {
	// Start は指定されたジョブを起動し、終了した JobExecution を返します。
	Start(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error)

	// Stop は実行中の JobExecution を停止します。
	Stop(ctx context.Context, executionID string) error

	// GetJobExecution は指定された ID の JobExecution を取得します。
	GetJobExecution(ctx context.Context, executionID string) (*core.JobExecution, error)

	// GetLastJobExecution は指定されたジョブの最新の JobExecution を取得します。
	GetLastJobExecution(ctx context.Context, jobName string) (*core.JobExecution, error)

	// GetJobNames は JSL に定義されている全てのジョブ名を取得します。
	GetJobNames(ctx context.Context) ([]string, error)
}
