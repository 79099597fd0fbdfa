package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"weatheretl/pkg/batch/database"
	"weatheretl/pkg/batch/util/exception"
	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/weather/repository"
)

func newSQLiteConn(t *testing.T) database.DBConnection {
	t.Helper()
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "weather.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return database.NewDBConnection(db, database.DialectSQLite)
}

func day(s string) time.Time {
	d, _ := time.Parse(weather_entity.DateLayout, s)
	return d
}

func records(n int) []weather_entity.WeatherRecord {
	out := make([]weather_entity.WeatherRecord, 0, n)
	start := day("2024-06-01")
	for i := 0; i < n; i++ {
		out = append(out, weather_entity.WeatherRecord{
			Date:          start.AddDate(0, 0, i),
			Temperature:   20 + float64(i),
			FeelsLike:     21 + float64(i),
			Humidity:      60,
			Precipitation: 0.5,
			WindSpeed:     10.2,
		})
	}
	return out
}

type storedRow struct {
	Date          string  `db:"date"`
	Temperature   float64 `db:"temperature"`
	FeelsLike     float64 `db:"feels_like"`
	Humidity      float64 `db:"humidity"`
	Precipitation float64 `db:"precipitation"`
	WindSpeed     float64 `db:"wind_speed"`
}

func selectAll(t *testing.T, conn database.DBConnection, table string) []storedRow {
	t.Helper()
	var rows []storedRow
	require.NoError(t, conn.SelectContext(context.Background(), &rows,
		`SELECT CAST(date AS TEXT) AS date, temperature, feels_like, humidity, precipitation, wind_speed FROM "`+table+`" ORDER BY date`))
	return rows
}

func TestReplaceWeatherData_CreatesTable(t *testing.T) {
	conn := newSQLiteConn(t)
	repo, err := repository.NewWeatherRepository(conn)
	require.NoError(t, err)

	n, err := repo.ReplaceWeatherData(context.Background(), repository.DefaultTable, records(2))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := selectAll(t, conn, repository.DefaultTable)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-06-01", rows[0].Date)
	assert.Equal(t, 20.0, rows[0].Temperature)
	assert.Equal(t, 21.0, rows[0].FeelsLike)
	assert.Equal(t, 60.0, rows[0].Humidity)
	assert.Equal(t, 0.5, rows[0].Precipitation)
	assert.Equal(t, 10.2, rows[0].WindSpeed)
	assert.Equal(t, "2024-06-02", rows[1].Date)
}

func TestReplaceWeatherData_ReplacesExistingRows(t *testing.T) {
	conn := newSQLiteConn(t)
	repo, err := repository.NewWeatherRepository(conn)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.ReplaceWeatherData(ctx, repository.DefaultTable, records(5))
	require.NoError(t, err)
	n, err := repo.ReplaceWeatherData(ctx, repository.DefaultTable, records(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, selectAll(t, conn, repository.DefaultTable), 3)

	// 同じ入力で再実行しても結果は変わらない
	_, err = repo.ReplaceWeatherData(ctx, repository.DefaultTable, records(3))
	require.NoError(t, err)
	assert.Len(t, selectAll(t, conn, repository.DefaultTable), 3)
}

func TestReplaceWeatherData_EmptyRecords(t *testing.T) {
	conn := newSQLiteConn(t)
	repo, err := repository.NewWeatherRepository(conn)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.ReplaceWeatherData(ctx, repository.DefaultTable, records(4))
	require.NoError(t, err)
	n, err := repo.ReplaceWeatherData(ctx, repository.DefaultTable, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, selectAll(t, conn, repository.DefaultTable))
}

func TestReplaceWeatherData_CanceledContextKeepsPreviousRows(t *testing.T) {
	conn := newSQLiteConn(t)
	repo, err := repository.NewWeatherRepository(conn)
	require.NoError(t, err)

	_, err = repo.ReplaceWeatherData(context.Background(), repository.DefaultTable, records(4))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.ReplaceWeatherData(ctx, repository.DefaultTable, records(1))
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindPersistence))

	assert.Len(t, selectAll(t, conn, repository.DefaultTable), 4)
}

func TestReplaceWeatherData_InvalidTableName(t *testing.T) {
	conn := newSQLiteConn(t)
	repo, err := repository.NewWeatherRepository(conn)
	require.NoError(t, err)

	for _, table := range []string{"", "weather data", "weather;DROP TABLE x", "1weather", `we"ather`} {
		_, err := repo.ReplaceWeatherData(context.Background(), table, records(1))
		require.Error(t, err, table)
		assert.True(t, exception.IsKind(err, exception.KindConfig), table)
	}
}

func TestNewWeatherRepository_NilConnection(t *testing.T) {
	_, err := repository.NewWeatherRepository(nil)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
