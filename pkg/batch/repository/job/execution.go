package job

import (
	"context"

	core "weatheretl/pkg/batch/job/core"
)

// JobExecution は JobExecution の永続化と取得に関する操作を定義します。
type JobExecution interface {
	// SaveJobExecution は新しい JobExecution を永続化します。
	SaveJobExecution(ctx context.Context, jobExecution *core.JobExecution) error

	// UpdateJobExecution は既存の JobExecution の状態を更新します。
	UpdateJobExecution(ctx context.Context, jobExecution *core.JobExecution) error

	// FindJobExecutionByID は指定された ID の JobExecution を検索します。
	// 関連する StepExecution もロードされます。
	FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error)

	// FindLatestJobExecution は指定されたジョブ名の最新の JobExecution を検索します。
	FindLatestJobExecution(ctx context.Context, jobName string) (*core.JobExecution, error)
}
