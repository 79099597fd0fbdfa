package tasklet

import (
	"context"

	config "weatheretl/pkg/batch/config"
	core "weatheretl/pkg/batch/job/core"
	repository "weatheretl/pkg/batch/repository"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
	"weatheretl/weather/client"
	weather_config "weatheretl/weather/config"
	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/weather/storage"
	"weatheretl/weather/transform"
)

// WeatherFetcher は日別の気象データを取得します。
type WeatherFetcher interface {
	FetchTimeline(ctx context.Context, location, startDate, endDate string) (*weather_entity.RawWeatherPayload, error)
}

// AirQualityFetcher は大気質の履歴データを取得します。
type AirQualityFetcher interface {
	FetchHistory(ctx context.Context, city, state, country, startDate, endDate string) (*weather_entity.AirQualityPayload, error)
}

// ExtractWeatherTasklet は外部 API から生データを取得し、JSON ファイルとして保存する Tasklet です。
type ExtractWeatherTasklet struct {
	taskletBase
	cfg        weather_config.ExtractConfig
	weather    WeatherFetcher
	airQuality AirQualityFetcher
}

var _ core.Tasklet = (*ExtractWeatherTasklet)(nil)

// NewExtractWeatherTasklet は設定から API クライアントを生成して ExtractWeatherTasklet を作成します。
// 大気質データは AIRVISUAL_API_KEY が設定されている場合のみ取得します。
func NewExtractWeatherTasklet(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (*ExtractWeatherTasklet, error) {
	c := weather_config.NewExtractConfig(cfg, properties)
	httpClient := client.NewHTTPClient(c.HTTPTimeout)

	var airQuality AirQualityFetcher
	if c.AirQualityActive {
		airQuality = client.NewAirVisualClient(c.AirQuality.Endpoint, c.AirQuality.APIKey, httpClient)
	} else {
		logger.Infof("AIRVISUAL_API_KEY が設定されていないか無効化されているため、大気質データは取得しません。")
	}
	weather := client.NewVisualCrossingClient(c.VisualCrossing.Endpoint, c.VisualCrossing.APIKey, httpClient)
	return NewExtractWeatherTaskletWith(c, weather, airQuality), nil
}

// NewExtractWeatherTaskletWith は取得処理を差し替えて ExtractWeatherTasklet を作成します。airQuality が nil の場合は大気質データを取得しません。
func NewExtractWeatherTaskletWith(c weather_config.ExtractConfig, weather WeatherFetcher, airQuality AirQualityFetcher) *ExtractWeatherTasklet {
	return &ExtractWeatherTasklet{
		taskletBase: taskletBase{name: "ExtractWeatherTasklet"},
		cfg:         c,
		weather:     weather,
		airQuality:  airQuality,
	}
}

// Execute は期間を検証してから API を呼び出し、取得したデータをファイルに書き込みます。
// いずれかの取得に失敗した場合はファイルを書き込みません。
func (t *ExtractWeatherTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.ExitStatus, error) {
	location := jobParameter(stepExecution, weather_config.ParamLocation, t.cfg.Location)
	startDate := jobParameter(stepExecution, weather_config.ParamStartDate, t.cfg.StartDate)
	endDate := jobParameter(stepExecution, weather_config.ParamEndDate, t.cfg.EndDate)

	if err := transform.ValidateDateRange(startDate, endDate); err != nil {
		return core.ExitStatusFailed, err
	}
	if location == "" {
		return core.ExitStatusFailed, exception.NewBatchError("extractor", exception.KindConfig, "取得地点が指定されていません", nil)
	}

	logger.Infof("Tasklet '%s': '%s' の %s から %s までの気象データを取得します。", t.name, location, startDate, endDate)
	payload, err := t.weather.FetchTimeline(ctx, location, startDate, endDate)
	if err != nil {
		return core.ExitStatusFailed, err
	}

	var airQuality *weather_entity.AirQualityPayload
	if t.airQuality != nil {
		logger.Infof("Tasklet '%s': %s/%s/%s の大気質データを取得します。", t.name, t.cfg.City, t.cfg.State, t.cfg.Country)
		airQuality, err = t.airQuality.FetchHistory(ctx, t.cfg.City, t.cfg.State, t.cfg.Country, startDate, endDate)
		if err != nil {
			return core.ExitStatusFailed, err
		}
	}

	if err := storage.WriteJSON(t.cfg.RawWeatherPath, payload.Raw); err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.ExecutionContext.Put(KeyRawWeatherPath, t.cfg.RawWeatherPath)
	logger.Infof("Tasklet '%s': 気象データを '%s' に保存しました。", t.name, t.cfg.RawWeatherPath)

	if airQuality != nil {
		if err := storage.WriteJSON(t.cfg.RawAirQualityPath, airQuality.Raw); err != nil {
			return core.ExitStatusFailed, err
		}
		stepExecution.ExecutionContext.Put(KeyRawAirQualityPath, t.cfg.RawAirQualityPath)
		logger.Infof("Tasklet '%s': 大気質データを '%s' に保存しました。", t.name, t.cfg.RawAirQualityPath)
	}
	return core.ExitStatusCompleted, nil
}
