package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"weatheretl/pkg/batch/util/exception"
	"weatheretl/pkg/batch/util/logger"
)

var validate = validator.New()

// BytesConfigLoader はバイトスライスから設定をロードします。
type BytesConfigLoader struct {
	data []byte
}

// NewBytesConfigLoader は新しい BytesConfigLoader のインスタンスを作成します。
func NewBytesConfigLoader(data []byte) *BytesConfigLoader {
	return &BytesConfigLoader{data: data}
}

// Load はデフォルト値、埋め込み YAML、環境変数の順に設定を重ね、検証した結果を返します。
func (l *BytesConfigLoader) Load() (*Config, error) {
	cfg := NewConfig()

	if len(l.data) > 0 {
		if err := yaml.Unmarshal(l.data, cfg); err != nil {
			return nil, exception.NewBatchError("config", exception.KindConfig, "YAML設定のパースに失敗しました", err)
		}
	}

	loadEnvVars(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.EmbeddedConfig = l.data
	return cfg, nil
}

// Validate は設定値を検証します。
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return exception.NewBatchError("config", exception.KindConfig, "設定値が不正です", err)
	}
	start, _ := time.Parse("2006-01-02", cfg.Weather.StartDate)
	end, _ := time.Parse("2006-01-02", cfg.Weather.EndDate)
	if start.After(end) {
		return exception.NewBatchErrorf("config", exception.KindConfig,
			"start_date (%s) が end_date (%s) より後になっています", cfg.Weather.StartDate, cfg.Weather.EndDate)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("%s の値 '%s' が無効です。設定ファイルの値 (%d) を使用します。", key, v, def)
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warnf("%s の値 '%s' が無効です。設定ファイルの値 (%t) を使用します。", key, v, def)
		return def
	}
	return b
}

// loadEnvVars は環境変数で個別の設定値を上書きします。
// API キーは YAML には書かず、環境変数からのみ読み込みます。
func loadEnvVars(cfg *Config) {
	cfg.Database.URL = getenvDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Migrate = getenvBool("DATABASE_MIGRATE", cfg.Database.Migrate)
	cfg.Database.ConnectionPool.MaxOpenConns = getenvInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.ConnectionPool.MaxOpenConns)
	cfg.Database.ConnectionPool.MaxIdleConns = getenvInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.ConnectionPool.MaxIdleConns)
	cfg.Database.ConnectionPool.ConnMaxLifetimeSeconds = getenvInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", cfg.Database.ConnectionPool.ConnMaxLifetimeSeconds)

	cfg.Batch.JobName = getenvDefault("BATCH_JOB_NAME", cfg.Batch.JobName)
	cfg.System.Logging.Level = getenvDefault("SYSTEM_LOGGING_LEVEL", cfg.System.Logging.Level)

	w := &cfg.Weather
	w.VisualCrossing.APIKey = os.Getenv("VISUALCROSSING_API_KEY")
	w.AirQuality.APIKey = os.Getenv("AIRVISUAL_API_KEY")
	w.AirQuality.Enabled = getenvBool("WEATHER_AIR_QUALITY_ENABLED", w.AirQuality.Enabled)
	w.Location = getenvDefault("WEATHER_LOCATION", w.Location)
	w.City = getenvDefault("WEATHER_CITY", w.City)
	w.State = getenvDefault("WEATHER_STATE", w.State)
	w.Country = getenvDefault("WEATHER_COUNTRY", w.Country)
	w.StartDate = getenvDefault("WEATHER_START_DATE", w.StartDate)
	w.EndDate = getenvDefault("WEATHER_END_DATE", w.EndDate)
	w.DataDir = getenvDefault("WEATHER_DATA_DIR", w.DataDir)
	w.Table = getenvDefault("WEATHER_TABLE", w.Table)
	w.HTTPTimeoutSeconds = getenvInt("WEATHER_HTTP_TIMEOUT_SECONDS", w.HTTPTimeoutSeconds)
}
