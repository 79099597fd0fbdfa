package storage_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheretl/pkg/batch/util/exception"
	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/weather/storage"
	"weatheretl/weather/transform"
)

func sampleTable() *weather_entity.WeatherTable {
	return &weather_entity.WeatherTable{
		Columns: transform.OutputColumns,
		Records: []weather_entity.WeatherRecord{
			{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Temperature: 20, FeelsLike: 19.5, Humidity: 50, Precipitation: 0, WindSpeed: 5.25},
			{Date: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), Temperature: 20, FeelsLike: 18, Humidity: 55, Precipitation: 0.0001, WindSpeed: 1e6},
		},
	}
}

func TestEncodeCSV(t *testing.T) {
	data, err := storage.EncodeCSV(sampleTable())
	require.NoError(t, err)

	want := "date,temperature,feels_like,humidity,precipitation,wind_speed\n" +
		"2024-06-01,20,19.5,50,0,5.25\n" +
		"2024-06-02,20,18,55,0.0001,1000000\n"
	assert.Equal(t, want, string(data))
}

func TestEncodeCSV_EmptyTableWritesHeader(t *testing.T) {
	data, err := storage.EncodeCSV(&weather_entity.WeatherTable{Columns: transform.OutputColumns})
	require.NoError(t, err)
	assert.Equal(t, "date,temperature,feels_like,humidity,precipitation,wind_speed\n", string(data))
}

func TestWriteAndReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "transformed_weather_data.csv")
	table := sampleTable()

	require.NoError(t, storage.WriteCSV(path, table))

	records, err := storage.ReadCSV(path, transform.OutputColumns)
	require.NoError(t, err)
	assert.Equal(t, table.Records, records)

	// 一時ファイルが残っていないこと
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadCSV_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	tests := []struct {
		name string
		path string
		msg  string
	}{
		{"missing file", filepath.Join(dir, "nope.csv"), "見つかりません"},
		{"empty file", write("empty.csv", ""), "空です"},
		{"wrong header", write("header.csv", "date,temp\n2024-06-01,1\n"), "ヘッダー"},
		{"bad date", write("date.csv", "date,temperature,feels_like,humidity,precipitation,wind_speed\n06/01/2024,1,1,1,1,1\n"), "2 行目"},
		{"bad number", write("num.csv", "date,temperature,feels_like,humidity,precipitation,wind_speed\n2024-06-01,x,1,1,1,1\n"), "2 行目"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := storage.ReadCSV(tt.path, transform.OutputColumns)
			require.Error(t, err)
			assert.True(t, exception.IsKind(err, exception.KindFormat))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestWriteJSON_IndentsAndKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_data.json")
	raw := json.RawMessage(`{"z":1,"days":[{"datetime":"2024-06-01","temp":20.10}]}`)

	require.NoError(t, storage.WriteJSON(path, raw))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "{\n    \"z\": 1,\n    \"days\": [\n        {\n            \"datetime\": \"2024-06-01\",\n            \"temp\": 20.10\n        }\n    ]\n}\n"
	assert.Equal(t, want, string(data))
}

func TestWriteJSON_InvalidKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_data.json")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	err := storage.WriteJSON(path, json.RawMessage(`{"days":`))
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindFormat))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}
