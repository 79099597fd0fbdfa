package tasklet

import (
	"context"

	config "weatheretl/pkg/batch/config"
	"weatheretl/pkg/batch/database"
	core "weatheretl/pkg/batch/job/core"
	repository "weatheretl/pkg/batch/repository"
	logger "weatheretl/pkg/batch/util/logger"
	weather_config "weatheretl/weather/config"
	weather_repository "weatheretl/weather/repository"
	"weatheretl/weather/storage"
	"weatheretl/weather/transform"
)

// LoadWeatherTasklet は変換済み CSV を読み込み、データベースのテーブルを置き換える Tasklet です。
type LoadWeatherTasklet struct {
	taskletBase
	cfg  weather_config.LoadConfig
	conn database.DBConnection
	repo weather_repository.WeatherRepository
}

var _ core.Tasklet = (*LoadWeatherTasklet)(nil)

// NewLoadWeatherTasklet は JobRepository と同じデータベース接続を使用する LoadWeatherTasklet を作成します。
// DATABASE_URL が未設定の場合は実行時に ConfigError で失敗します。
func NewLoadWeatherTasklet(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (*LoadWeatherTasklet, error) {
	c := weather_config.NewLoadConfig(cfg, properties)
	if err := weather_repository.ValidateTableName(c.Table); err != nil {
		return nil, err
	}
	t := &LoadWeatherTasklet{
		taskletBase: taskletBase{name: "LoadWeatherTasklet"},
		cfg:         c,
	}
	if repo != nil {
		t.conn = repo.GetDBConnection()
	}
	return t, nil
}

// NewLoadWeatherTaskletWith は WeatherRepository を直接指定して作成します。
func NewLoadWeatherTaskletWith(c weather_config.LoadConfig, repo weather_repository.WeatherRepository) *LoadWeatherTasklet {
	return &LoadWeatherTasklet{
		taskletBase: taskletBase{name: "LoadWeatherTasklet"},
		cfg:         c,
		repo:        repo,
	}
}

func (t *LoadWeatherTasklet) weatherRepository() (weather_repository.WeatherRepository, error) {
	if t.repo != nil {
		return t.repo, nil
	}
	r, err := weather_repository.NewWeatherRepository(t.conn)
	if err != nil {
		return nil, err
	}
	t.repo = r
	return r, nil
}

// Execute は CSV を読み込み、テーブルの内容を置き換えます。
func (t *LoadWeatherTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.ExitStatus, error) {
	input := promotedPath(stepExecution, KeyTransformedCSVPath, t.cfg.InputPath)
	logger.Infof("Tasklet '%s': '%s' をテーブル '%s' にロードします。", t.name, input, t.cfg.Table)

	records, err := storage.ReadCSV(input, transform.OutputColumns)
	if err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.ReadCount = len(records)

	repo, err := t.weatherRepository()
	if err != nil {
		return core.ExitStatusFailed, err
	}
	n, err := repo.ReplaceWeatherData(ctx, t.cfg.Table, records)
	if err != nil {
		stepExecution.RollbackCount++
		return core.ExitStatusFailed, err
	}
	stepExecution.WriteCount = n
	stepExecution.CommitCount++
	stepExecution.ExecutionContext.Put(KeyLoadedRows, n)
	return core.ExitStatusCompleted, nil
}
