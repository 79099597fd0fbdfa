package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	config "weatheretl/pkg/batch/config"
	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/util/exception"
)

const timelineBody = `{"queryCost":2,"resolvedAddress":"Ioannina, Greece","days":[
	{"datetime":"2024-06-01","tempmax":25,"temp":20,"feelslike":19,"humidity":50,"precip":0,"windspeed":5,"conditions":"Clear"},
	{"datetime":"2024-06-02","tempmax":26,"temp":null,"feelslike":18,"humidity":55,"precip":1,"windspeed":6,"conditions":"Rain"}
]}`

type env struct {
	dataDir string
	dbPath  string
	config  []byte
	jsl     []byte
	paths   []string
}

// newEnv は API のスタブサーバーと一時ディレクトリを用意し、アプリケーションの環境変数を設定します。
func newEnv(t *testing.T, body string, status int) *env {
	t.Helper()
	e := &env{dataDir: t.TempDir()}
	e.dbPath = filepath.Join(e.dataDir, "weather.db")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.paths = append(e.paths, r.URL.Path)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)

	e.config = []byte(fmt.Sprintf(`
system:
  logging:
    level: ERROR
weather:
  visual_crossing:
    endpoint: %s/timeline
`, ts.URL))

	jsl, err := os.ReadFile(filepath.Join("..", "resources", "job.yaml"))
	require.NoError(t, err)
	e.jsl = jsl

	t.Setenv("VISUALCROSSING_API_KEY", "test-key")
	t.Setenv("AIRVISUAL_API_KEY", "")
	t.Setenv("BATCH_JOB_NAME", "")
	t.Setenv("WEATHER_DATA_DIR", e.dataDir)
	t.Setenv("DATABASE_URL", "sqlite://"+e.dbPath)
	return e
}

func (e *env) run(args ...string) int {
	return RunApplication(context.Background(), args, "", e.config, e.jsl)
}

func countRows(t *testing.T, dbPath, table string) int {
	t.Helper()
	db, err := sqlx.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func TestRunApplication_WeatherETL(t *testing.T) {
	e := newEnv(t, timelineBody, http.StatusOK)

	require.Equal(t, 0, e.run())

	require.Len(t, e.paths, 1)
	assert.Equal(t, "/timeline/ioannina/2024-06-03/2024-09-03", e.paths[0])
	assert.FileExists(t, filepath.Join(e.dataDir, "weather_data.json"))
	assert.NoFileExists(t, filepath.Join(e.dataDir, "historical_air_quality_data.json"))

	csv, err := os.ReadFile(filepath.Join(e.dataDir, "transformed_weather_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "date,temperature,feels_like,humidity,precipitation,wind_speed\n"+
		"2024-06-01,20,19,50,0,5\n"+
		"2024-06-02,20,18,55,1,6\n", string(csv))

	assert.Equal(t, 2, countRows(t, e.dbPath, "weather_data"))

	// 再実行してもテーブルは置き換えられ、行数は変わらない
	require.Equal(t, 0, e.run())
	assert.Equal(t, 2, countRows(t, e.dbPath, "weather_data"))
}

func TestRunApplication_StagesAsSeparateJobs(t *testing.T) {
	e := newEnv(t, timelineBody, http.StatusOK)

	require.Equal(t, 0, e.run("extract"))
	assert.NoFileExists(t, filepath.Join(e.dataDir, "transformed_weather_data.csv"))

	require.Equal(t, 0, e.run("transform"))
	assert.FileExists(t, filepath.Join(e.dataDir, "transformed_weather_data.csv"))

	require.Equal(t, 0, e.run("load"))
	assert.Equal(t, 2, countRows(t, e.dbPath, "weather_data"))
}

func TestRunApplication_MissingColumnFails(t *testing.T) {
	e := newEnv(t, `{"days":[{"datetime":"2024-06-01","temp":20,"feelslike":19,"humidity":50,"precip":0}]}`, http.StatusOK)

	assert.Equal(t, 1, e.run())
	assert.FileExists(t, filepath.Join(e.dataDir, "weather_data.json"))
	assert.NoFileExists(t, filepath.Join(e.dataDir, "transformed_weather_data.csv"))
}

func TestRunApplication_APIErrorFails(t *testing.T) {
	e := newEnv(t, "Invalid API key", http.StatusUnauthorized)

	assert.Equal(t, 1, e.run())
	assert.NoFileExists(t, filepath.Join(e.dataDir, "weather_data.json"))
}

func TestRunApplication_LoadWithoutDatabaseFails(t *testing.T) {
	e := newEnv(t, timelineBody, http.StatusOK)
	t.Setenv("DATABASE_URL", "")

	assert.Equal(t, 0, e.run("extract"))
	assert.Equal(t, 0, e.run("transform"))
	assert.Equal(t, 1, e.run("load"))
}

func TestRunApplication_UnknownJob(t *testing.T) {
	e := newEnv(t, timelineBody, http.StatusOK)
	assert.Equal(t, 1, e.run("no-such-job"))
	assert.Empty(t, e.paths)
}

func TestRunApplication_LoadsEnvFile(t *testing.T) {
	e := newEnv(t, timelineBody, http.StatusOK)
	t.Setenv("VISUALCROSSING_API_KEY", "")
	require.NoError(t, os.Unsetenv("VISUALCROSSING_API_KEY"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VISUALCROSSING_API_KEY=from-dotenv\n"), 0o600))

	code := RunApplication(context.Background(), []string{"extract"}, envFile, e.config, e.jsl)
	assert.Equal(t, 0, code)
	assert.Equal(t, "from-dotenv", os.Getenv("VISUALCROSSING_API_KEY"))
}

func TestResolveJobName(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Batch.JobName = "load"

	assert.Equal(t, "extract", resolveJobName([]string{"extract"}, cfg))
	assert.Equal(t, "load", resolveJobName(nil, cfg))
	assert.Equal(t, "load", resolveJobName([]string{""}, cfg))
}

func TestHandleApplicationError(t *testing.T) {
	completed := core.NewJobExecution("weather-etl", core.NewJobParameters())
	completed.MarkAsStarted()
	completed.MarkAsCompleted()
	assert.Equal(t, 0, handleApplicationError(nil, completed, "weather-etl"))

	cause := exception.NewBatchError("transformer", exception.KindSchema, "必須カラム 'windspeed' がデータに存在しません", nil)
	failed := core.NewJobExecution("weather-etl", core.NewJobParameters())
	failed.MarkAsStarted()
	failed.MarkAsFailed(cause)
	assert.Equal(t, 1, handleApplicationError(cause, failed, "weather-etl"))

	assert.Equal(t, 1, handleApplicationError(errors.New("boom"), nil, ""))
}
