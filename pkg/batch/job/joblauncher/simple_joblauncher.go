package joblauncher

import (
	"context"
	"sync"

	core "weatheretl/pkg/batch/job/core"
	factory "weatheretl/pkg/batch/job/factory"
	repository "weatheretl/pkg/batch/repository"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// SimpleJobLauncher は JobLauncher インターフェースのシンプルな実装です。
// JobExecution のライフサイクル管理と JobRepository を使用した永続化を行います。
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobFactory    *factory.JobFactory

	mu                     sync.Mutex
	activeJobCancellations map[string]context.CancelFunc
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)

// NewSimpleJobLauncher は新しい SimpleJobLauncher のインスタンスを作成します。
func NewSimpleJobLauncher(jobRepository repository.JobRepository, jobFactory *factory.JobFactory) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository:          jobRepository,
		jobFactory:             jobFactory,
		activeJobCancellations: make(map[string]context.CancelFunc),
	}
}

func (l *SimpleJobLauncher) registerCancelFunc(executionID string, cancelFunc context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeJobCancellations[executionID] = cancelFunc
}

func (l *SimpleJobLauncher) unregisterCancelFunc(executionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cancelFunc, ok := l.activeJobCancellations[executionID]; ok {
		cancelFunc()
		delete(l.activeJobCancellations, executionID)
	}
}

// Stop は実行中の JobExecution をキャンセルします。該当する実行がない場合は false を返します。
func (l *SimpleJobLauncher) Stop(executionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cancelFunc, ok := l.activeJobCancellations[executionID]
	if ok {
		logger.Warnf("JobExecution (ID: %s) の停止を要求します。", executionID)
		cancelFunc()
	}
	return ok
}

// nextParameters は JSL に incrementer が定義されている場合、前回実行のパラメータを基に次回用のパラメータを生成します。
func (l *SimpleJobLauncher) nextParameters(ctx context.Context, jobName string, params core.JobParameters) core.JobParameters {
	incrementer := l.jobFactory.GetJobParametersIncrementer(jobName)
	if incrementer == nil {
		return params
	}
	base := core.NewJobParameters()
	if latest, err := l.jobRepository.FindLatestJobExecution(ctx, jobName); err == nil {
		base = latest.Parameters
	}
	return incrementer.GetNext(base.Merge(params))
}

// Launch は指定された Job を JobParameters とともに起動し、JobExecution を管理します。
// ジョブが失敗した場合は JobExecution と原因のエラーを両方返します。
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error) {
	logger.Infof("JobLauncher を使用して Job '%s' を起動します。", jobName)

	batchJob, err := l.jobFactory.CreateJob(jobName)
	if err != nil {
		return nil, err
	}

	params = l.nextParameters(ctx, jobName, params)
	if err := batchJob.ValidateParameters(params); err != nil {
		logger.Errorf("Job '%s': JobParameters のバリデーションに失敗しました: %v", jobName, err)
		return nil, err
	}

	jobExecution := core.NewJobExecution(jobName, params)
	jobCtx, cancel := context.WithCancel(ctx)
	jobExecution.CancelFunc = cancel
	l.registerCancelFunc(jobExecution.ID, cancel)
	defer l.unregisterCancelFunc(jobExecution.ID)

	if err := l.jobRepository.SaveJobExecution(jobCtx, jobExecution); err != nil {
		logger.Errorf("JobExecution (ID: %s) の初期永続化に失敗しました: %v", jobExecution.ID, err)
		jobExecution.MarkAsFailed(err)
		return jobExecution, err
	}

	jobExecution.MarkAsStarted()
	if err := l.jobRepository.UpdateJobExecution(jobCtx, jobExecution); err != nil {
		logger.Errorf("JobExecution (ID: %s) の Started 状態への更新に失敗しました: %v", jobExecution.ID, err)
		jobExecution.MarkAsFailed(err)
		return jobExecution, err
	}

	runErr := batchJob.Run(jobCtx, jobExecution, params)

	// キャンセル後も最終状態を記録する
	if updateErr := l.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); updateErr != nil {
		logger.Errorf("JobExecution (ID: %s) の最終状態の更新に失敗しました: %v", jobExecution.ID, updateErr)
		if runErr == nil {
			jobExecution.MarkAsFailed(updateErr)
			runErr = exception.NewBatchError("job_launcher", exception.KindPersistence, "JobExecution 最終状態の永続化に失敗しました", updateErr)
		}
	}

	return jobExecution, runErr
}
