package job

import (
	"github.com/google/uuid"

	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/job/runner"
	repository "weatheretl/pkg/batch/repository"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
	weather_config "weatheretl/weather/config"
	"weatheretl/weather/transform"
)

// WeatherJob は気象データの抽出・変換・ロードを行うバッチジョブです。
// フローの実行は FlowJob に委譲し、ジョブパラメータの検証のみを追加します。
type WeatherJob struct {
	*runner.FlowJob
}

// WeatherJob が core.Job インターフェースを満たすことを確認します。
var _ core.Job = (*WeatherJob)(nil)

// NewWeatherJob は新しい WeatherJob のインスタンスを作成します。
// flow パラメータは JSL からロードされたフロー定義を受け取ります。
func NewWeatherJob(
	name string,
	jobRepository repository.JobRepository,
	listeners []core.JobExecutionListener,
	flow *core.FlowDefinition,
) *WeatherJob {
	return &WeatherJob{
		FlowJob: runner.NewFlowJob(uuid.New().String(), name, flow, jobRepository, listeners),
	}
}

// ValidateParameters は start_date と end_date が指定されている場合に、その形式と前後関係を検証します。
func (j *WeatherJob) ValidateParameters(params core.JobParameters) error {
	logger.Debugf("ジョブ '%s': JobParameters を検証します。Parameters: %+v", j.JobName(), params.Params)

	start, hasStart := params.GetString(weather_config.ParamStartDate)
	end, hasEnd := params.GetString(weather_config.ParamEndDate)
	if !hasStart && !hasEnd {
		return nil
	}
	if hasStart != hasEnd {
		return exception.NewBatchErrorf(j.JobName(), exception.KindConfig,
			"パラメータ '%s' と '%s' は両方指定してください", weather_config.ParamStartDate, weather_config.ParamEndDate)
	}
	return transform.ValidateDateRange(start, end)
}
