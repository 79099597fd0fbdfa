package listener

import (
	"context"
	"time"

	config "weatheretl/pkg/batch/config"
	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/util/logger"
)

// LoggingStepListener はステップの開始と終了をログに出力する StepExecutionListener です。
type LoggingStepListener struct {
	config *config.LoggingConfig
}

var _ core.StepExecutionListener = (*LoggingStepListener)(nil)

// NewLoggingStepListener は新しい LoggingStepListener を作成します。
func NewLoggingStepListener(cfg *config.LoggingConfig) *LoggingStepListener {
	return &LoggingStepListener{config: cfg}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *core.StepExecution) {
	logger.Infof("Step '%s' の実行を開始します。", stepExecution.StepName)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *core.StepExecution) {
	elapsed := time.Since(stepExecution.StartTime).Round(time.Millisecond)
	if stepExecution.Status == core.BatchStatusFailed {
		logger.Errorf("Step '%s' が失敗しました (%s)。ExitStatus: %s, Failures: %v",
			stepExecution.StepName, elapsed, stepExecution.ExitStatus, stepExecution.Failures)
		return
	}
	logger.Infof("Step '%s' が完了しました (%s)。ExitStatus: %s, Read: %d, Write: %d, Filter: %d",
		stepExecution.StepName, elapsed, stepExecution.ExitStatus,
		stepExecution.ReadCount, stepExecution.WriteCount, stepExecution.FilterCount)
}
