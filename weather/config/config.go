package weather_config

import (
	"time"

	config "weatheretl/pkg/batch/config"
	"weatheretl/pkg/batch/job/component"
)

// ExtractConfig は抽出ステップに必要な設定のみを持つ構造体です。
type ExtractConfig struct {
	Location  string
	City      string
	State     string
	Country   string
	StartDate string
	EndDate   string

	VisualCrossing   config.APIConfig
	AirQuality       config.APIConfig
	AirQualityActive bool
	HTTPTimeout      time.Duration

	RawWeatherPath    string
	RawAirQualityPath string
}

// NewExtractConfig はアプリケーション設定と JSL のプロパティから ExtractConfig を組み立てます。
// プロパティ location, outputFile, airQualityOutputFile が指定されていれば設定値より優先します。
func NewExtractConfig(cfg *config.Config, properties map[string]string) ExtractConfig {
	w := cfg.Weather
	return ExtractConfig{
		Location:          component.Property(properties, "location", w.Location),
		City:              w.City,
		State:             w.State,
		Country:           w.Country,
		StartDate:         w.StartDate,
		EndDate:           w.EndDate,
		VisualCrossing:    w.VisualCrossing,
		AirQuality:        w.AirQuality.APIConfig,
		AirQualityActive:  w.AirQualityActive(),
		HTTPTimeout:       w.HTTPTimeout(),
		RawWeatherPath:    w.Path(component.Property(properties, "outputFile", w.Files.RawWeather)),
		RawAirQualityPath: w.Path(component.Property(properties, "airQualityOutputFile", w.Files.RawAirQuality)),
	}
}

// TransformConfig は変換ステップの入出力ファイルです。
type TransformConfig struct {
	InputPath  string
	OutputPath string
}

// NewTransformConfig は TransformConfig を組み立てます。
func NewTransformConfig(cfg *config.Config, properties map[string]string) TransformConfig {
	w := cfg.Weather
	return TransformConfig{
		InputPath:  w.Path(component.Property(properties, "inputFile", w.Files.RawWeather)),
		OutputPath: w.Path(component.Property(properties, "outputFile", w.Files.TransformedCSV)),
	}
}

// LoadConfig はロードステップの入力ファイルと保存先テーブルです。
type LoadConfig struct {
	InputPath string
	Table     string
}

// NewLoadConfig は LoadConfig を組み立てます。プロパティ table で保存先テーブルを変更できます。
func NewLoadConfig(cfg *config.Config, properties map[string]string) LoadConfig {
	w := cfg.Weather
	return LoadConfig{
		InputPath: w.Path(component.Property(properties, "inputFile", w.Files.TransformedCSV)),
		Table:     component.Property(properties, "table", w.Table),
	}
}

// JobParameters のキーです。指定された値は application.yaml の設定より優先します。
const (
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamLocation  = "location"
)
