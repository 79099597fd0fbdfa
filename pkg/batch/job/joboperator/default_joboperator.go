package joboperator

import (
	"context"

	core "weatheretl/pkg/batch/job/core"
	factory "weatheretl/pkg/batch/job/factory"
	"weatheretl/pkg/batch/job/joblauncher"
	repository "weatheretl/pkg/batch/repository"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// DefaultJobOperator は JobOperator インターフェースのデフォルト実装です。
// 起動は SimpleJobLauncher に委譲し、参照系は JobRepository を使用します。
type DefaultJobOperator struct {
	jobRepository repository.JobRepository
	jobFactory    *factory.JobFactory
	launcher      *joblauncher.SimpleJobLauncher
}

var _ JobOperator = (*DefaultJobOperator)(nil)

// NewDefaultJobOperator は新しい DefaultJobOperator のインスタンスを作成します。
func NewDefaultJobOperator(jobRepository repository.JobRepository, jobFactory *factory.JobFactory) *DefaultJobOperator {
	return &DefaultJobOperator{
		jobRepository: jobRepository,
		jobFactory:    jobFactory,
		launcher:      joblauncher.NewSimpleJobLauncher(jobRepository, jobFactory),
	}
}

func (o *DefaultJobOperator) Start(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error) {
	logger.Infof("JobOperator: Job '%s' の起動を要求します。", jobName)
	return o.launcher.Launch(ctx, jobName, params)
}

func (o *DefaultJobOperator) Stop(ctx context.Context, executionID string) error {
	if !o.launcher.Stop(executionID) {
		return exception.NewBatchErrorf("job_operator", exception.KindInternal, "JobExecution (ID: %s) は実行中ではありません", executionID)
	}
	return nil
}

func (o *DefaultJobOperator) GetJobExecution(ctx context.Context, executionID string) (*core.JobExecution, error) {
	return o.jobRepository.FindJobExecutionByID(ctx, executionID)
}

func (o *DefaultJobOperator) GetLastJobExecution(ctx context.Context, jobName string) (*core.JobExecution, error) {
	return o.jobRepository.FindLatestJobExecution(ctx, jobName)
}

func (o *DefaultJobOperator) GetJobNames(ctx context.Context) ([]string, error) {
	return o.jobFactory.JobNames(), nil
}
