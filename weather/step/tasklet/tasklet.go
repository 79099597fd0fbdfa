package tasklet

import (
	"context"

	core "weatheretl/pkg/batch/job/core"
	logger "weatheretl/pkg/batch/util/logger"
)

// ExecutionContext のキーです。後続のステップは JobExecutionContext にプロモートされた値を参照します。
const (
	KeyRawWeatherPath     = "rawWeatherPath"
	KeyRawAirQualityPath  = "rawAirQualityPath"
	KeyTransformedCSVPath = "transformedCsvPath"
	KeyRecordCount        = "recordCount"
	KeyLoadedRows         = "loadedRows"
)

// taskletBase は各 Tasklet に共通する ExecutionContext の保持とクローズ処理です。
type taskletBase struct {
	name string
	ec   core.ExecutionContext
}

// Close はリソースを解放するためのメソッドです。
func (t *taskletBase) Close(ctx context.Context) error {
	logger.Debugf("Tasklet '%s' をクローズします。", t.name)
	return nil
}

// SetExecutionContext は ExecutionContext を設定します。
func (t *taskletBase) SetExecutionContext(ctx context.Context, ec core.ExecutionContext) error {
	t.ec = ec
	return nil
}

// GetExecutionContext は ExecutionContext を取得します。
func (t *taskletBase) GetExecutionContext(ctx context.Context) (core.ExecutionContext, error) {
	if t.ec == nil {
		t.ec = core.NewExecutionContext()
	}
	return t.ec, nil
}

// jobParameter はジョブパラメータに空でない文字列が指定されていればそれを、なければ def を返します。
func jobParameter(se *core.StepExecution, key, def string) string {
	if se == nil || se.JobExecution == nil {
		return def
	}
	if v, ok := se.JobExecution.Parameters.GetString(key); ok && v != "" {
		return v
	}
	return def
}

// promotedPath は前のステップが JobExecutionContext に残したパスを返します。なければ def です。
func promotedPath(se *core.StepExecution, key, def string) string {
	if se == nil || se.JobExecution == nil || se.JobExecution.ExecutionContext == nil {
		return def
	}
	if v, ok := se.JobExecution.ExecutionContext.GetString(key); ok && v != "" {
		return v
	}
	return def
}
