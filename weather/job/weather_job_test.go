package job_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	core "weatheretl/pkg/batch/job/core"
	repository "weatheretl/pkg/batch/repository"
	"weatheretl/pkg/batch/util/exception"
	weather_config "weatheretl/weather/config"
	"weatheretl/weather/job"
)

func TestWeatherJob_ValidateParameters(t *testing.T) {
	j := job.NewWeatherJob("weather-etl", repository.NewJobRepository(nil), nil, core.NewFlowDefinition("extractStep"))
	assert.Equal(t, "weather-etl", j.JobName())

	tests := []struct {
		name   string
		params map[string]any
		kind   exception.ErrorKind
	}{
		{name: "no dates", params: map[string]any{"run.id": 3}},
		{name: "valid range", params: map[string]any{weather_config.ParamStartDate: "2024-06-03", weather_config.ParamEndDate: "2024-09-03"}},
		{name: "single day", params: map[string]any{weather_config.ParamStartDate: "2024-06-03", weather_config.ParamEndDate: "2024-06-03"}},
		{name: "bad format", params: map[string]any{weather_config.ParamStartDate: "03/06/2024", weather_config.ParamEndDate: "2024-09-03"}, kind: exception.KindParse},
		{name: "reversed", params: map[string]any{weather_config.ParamStartDate: "2024-09-03", weather_config.ParamEndDate: "2024-06-03"}, kind: exception.KindConfig},
		{name: "only start", params: map[string]any{weather_config.ParamStartDate: "2024-06-03"}, kind: exception.KindConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := core.NewJobParameters()
			for k, v := range tt.params {
				params.Put(k, v)
			}
			err := j.ValidateParameters(params)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, exception.IsKind(err, tt.kind), "kind: %v", err)
		})
	}
}
