package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// EmbeddedConfig は main.go から渡される埋め込み設定 (application.yaml) の内容です。
type EmbeddedConfig []byte

// ConnectionPoolConfig はデータベースコネクションプールの設定を保持します。
type ConnectionPoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds" validate:"gte=0"`
}

// DatabaseConfig は DATABASE_URL を中心としたデータベース設定です。
// URL のスキーム (postgres, redshift, mysql, snowflake, sqlite) で接続先の種類が決まります。
type DatabaseConfig struct {
	URL            string               `yaml:"url"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
	// Migrate が true の場合、ジョブ実行履歴テーブルのマイグレーションを起動時に適用します。
	// false の場合はテーブルが作成済みであることを前提とします。
	Migrate bool `yaml:"migrate"`
}

// Scheme は URL のスキームを小文字で返します。URL が空、または解析できない場合は空文字列です。
func (c DatabaseConfig) Scheme() string {
	if c.URL == "" {
		return ""
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// Redacted はパスワードを伏せた URL を返します。ログ出力用です。
func (c DatabaseConfig) Redacted() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "<invalid database url>"
	}
	return u.Redacted()
}

// BatchConfig はジョブ選択の設定です。
type BatchConfig struct {
	JobName string `yaml:"job_name" validate:"required"`
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL debug info warn error fatal"`
}

// SystemConfig はシステム全体の設定です。
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// APIConfig は外部 API ひとつ分の接続設定です。
type APIConfig struct {
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	APIKey   string `yaml:"-"`
}

// AirQualityConfig は大気質データ取得の設定です。
type AirQualityConfig struct {
	APIConfig `yaml:",inline"`
	Enabled   bool `yaml:"enabled"`
}

// FilesConfig はステージ間で受け渡すファイルの名前です。DataDir からの相対パスとして解決されます。
type FilesConfig struct {
	RawWeather     string `yaml:"raw_weather" validate:"required"`
	RawAirQuality  string `yaml:"raw_air_quality" validate:"required"`
	TransformedCSV string `yaml:"transformed_csv" validate:"required"`
}

// WeatherConfig は ETL パイプライン固有の設定です。
type WeatherConfig struct {
	Location           string           `yaml:"location" validate:"required"`
	City               string           `yaml:"city"`
	State              string           `yaml:"state"`
	Country            string           `yaml:"country"`
	StartDate          string           `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string           `yaml:"end_date" validate:"required,datetime=2006-01-02"`
	DataDir            string           `yaml:"data_dir"`
	HTTPTimeoutSeconds int              `yaml:"http_timeout_seconds" validate:"gt=0"`
	Table              string           `yaml:"table" validate:"required"`
	VisualCrossing     APIConfig        `yaml:"visual_crossing"`
	AirQuality         AirQualityConfig `yaml:"air_quality"`
	Files              FilesConfig      `yaml:"files"`
}

// HTTPTimeout は外部 API 呼び出しのタイムアウトを返します。
func (w WeatherConfig) HTTPTimeout() time.Duration {
	return time.Duration(w.HTTPTimeoutSeconds) * time.Second
}

// AirQualityActive は大気質データを取得するかどうかを返します。
// API キーが設定されていない場合は取得しません。
func (w WeatherConfig) AirQualityActive() bool {
	return w.AirQuality.Enabled && w.AirQuality.APIKey != ""
}

// Path は DataDir を基準にファイルパスを解決します。
func (w WeatherConfig) Path(name string) string {
	if w.DataDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.DataDir, name)
}

// Config はアプリケーション全体の設定です。
type Config struct {
	Database       DatabaseConfig `yaml:"database"`
	Batch          BatchConfig    `yaml:"batch"`
	System         SystemConfig   `yaml:"system"`
	Weather        WeatherConfig  `yaml:"weather"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig はデフォルト値を設定した Config を返します。
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Migrate: true,
		},
		Batch: BatchConfig{
			JobName: "weather-etl",
		},
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO"},
		},
		Weather: WeatherConfig{
			Location:           "ioannina",
			City:               "ioannina",
			State:              "epirus",
			Country:            "greece",
			StartDate:          "2024-06-03",
			EndDate:            "2024-09-03",
			HTTPTimeoutSeconds: 30,
			Table:              "weather_data",
			VisualCrossing: APIConfig{
				Endpoint: "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline",
			},
			AirQuality: AirQualityConfig{
				APIConfig: APIConfig{Endpoint: "https://api.airvisual.com/v2/history"},
				Enabled:   true,
			},
			Files: FilesConfig{
				RawWeather:     "weather_data.json",
				RawAirQuality:  "historical_air_quality_data.json",
				TransformedCSV: "transformed_weather_data.csv",
			},
		},
	}
}
