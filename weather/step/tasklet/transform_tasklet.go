package tasklet

import (
	"context"

	config "weatheretl/pkg/batch/config"
	core "weatheretl/pkg/batch/job/core"
	repository "weatheretl/pkg/batch/repository"
	logger "weatheretl/pkg/batch/util/logger"
	weather_config "weatheretl/weather/config"
	"weatheretl/weather/storage"
	"weatheretl/weather/transform"
)

// TransformWeatherTasklet は生の気象データを読み込み、整形した CSV を書き出す Tasklet です。
type TransformWeatherTasklet struct {
	taskletBase
	cfg weather_config.TransformConfig
}

var _ core.Tasklet = (*TransformWeatherTasklet)(nil)

// NewTransformWeatherTasklet は新しい TransformWeatherTasklet を作成します。
func NewTransformWeatherTasklet(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (*TransformWeatherTasklet, error) {
	return NewTransformWeatherTaskletWith(weather_config.NewTransformConfig(cfg, properties)), nil
}

// NewTransformWeatherTaskletWith は TransformConfig を直接指定して作成します。
func NewTransformWeatherTaskletWith(c weather_config.TransformConfig) *TransformWeatherTasklet {
	return &TransformWeatherTasklet{
		taskletBase: taskletBase{name: "TransformWeatherTasklet"},
		cfg:         c,
	}
}

// Execute は変換処理を実行します。変換に失敗した場合、出力ファイルは書き込みません。
func (t *TransformWeatherTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.ExitStatus, error) {
	input := promotedPath(stepExecution, KeyRawWeatherPath, t.cfg.InputPath)
	logger.Infof("Tasklet '%s': '%s' を変換します。", t.name, input)

	data, err := storage.ReadFile(input)
	if err != nil {
		return core.ExitStatusFailed, err
	}
	payload, err := transform.ParsePayload(data)
	if err != nil {
		return core.ExitStatusFailed, err
	}
	table, err := transform.Transform(payload)
	if err != nil {
		return core.ExitStatusFailed, err
	}
	if err := ctx.Err(); err != nil {
		return core.ExitStatusFailed, err
	}

	if err := storage.WriteCSV(t.cfg.OutputPath, table); err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.ExecutionContext.Put(KeyTransformedCSVPath, t.cfg.OutputPath)
	stepExecution.ExecutionContext.Put(KeyRecordCount, len(table.Records))
	stepExecution.WriteCount = len(table.Records)
	logger.Infof("Tasklet '%s': %d 件のレコードを '%s' に保存しました。", t.name, len(table.Records), t.cfg.OutputPath)
	return core.ExitStatusCompleted, nil
}
