package listener

import (
	"context"
	"time"

	config "weatheretl/pkg/batch/config"
	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/util/logger"
)

// LoggingJobListener はジョブの開始と終了をログに出力する JobExecutionListener です。
type LoggingJobListener struct {
	config *config.LoggingConfig
}

var _ core.JobExecutionListener = (*LoggingJobListener)(nil)

// NewLoggingJobListener は新しい LoggingJobListener を作成します。
func NewLoggingJobListener(cfg *config.LoggingConfig) *LoggingJobListener {
	return &LoggingJobListener{config: cfg}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *core.JobExecution) {
	logger.Infof("Job '%s' の実行を開始します。Execution ID: %s, Parameters: %v",
		jobExecution.JobName, jobExecution.ID, jobExecution.Parameters.Params)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *core.JobExecution) {
	elapsed := time.Since(jobExecution.StartTime).Round(time.Millisecond)
	if len(jobExecution.Failures) > 0 || jobExecution.Status == core.BatchStatusFailed {
		logger.Errorf("Job '%s' がエラーで終了しました (%s)。Status: %s, Failures: %v",
			jobExecution.JobName, elapsed, jobExecution.Status, jobExecution.Failures)
		return
	}
	logger.Infof("Job '%s' の実行が正常に完了しました (%s)。Status: %s",
		jobExecution.JobName, elapsed, jobExecution.Status)
}
