package transform_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheretl/pkg/batch/util/exception"
	"weatheretl/weather/transform"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func mustTransform(t *testing.T, body string) ([]string, []float64, []time.Time) {
	t.Helper()
	payload, err := transform.ParsePayload([]byte(body))
	require.NoError(t, err)
	table, err := transform.Transform(payload)
	require.NoError(t, err)

	temps := make([]float64, len(table.Records))
	dates := make([]time.Time, len(table.Records))
	for i, r := range table.Records {
		temps[i] = r.Temperature
		dates[i] = r.Date
	}
	return table.Columns, temps, dates
}

// TestTransform_EndToEnd は 2 日分のデータで 2 日目の temperature が前方補完されることを確認します。
func TestTransform_EndToEnd(t *testing.T) {
	body := `{"days":[
		{"datetime":"2024-06-01","temp":20,"feelslike":19,"humidity":50,"precip":0,"windspeed":5},
		{"datetime":"2024-06-02","temp":null,"feelslike":18,"humidity":55,"precip":1,"windspeed":6}
	]}`
	payload, err := transform.ParsePayload([]byte(body))
	require.NoError(t, err)

	table, err := transform.Transform(payload)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)

	assert.Equal(t, transform.OutputColumns, table.Columns)
	first, second := table.Records[0], table.Records[1]
	assert.Equal(t, date("2024-06-01"), first.Date)
	assert.Equal(t, 20.0, first.Temperature)
	assert.Equal(t, 19.0, first.FeelsLike)
	assert.Equal(t, 50.0, first.Humidity)
	assert.Equal(t, 0.0, first.Precipitation)
	assert.Equal(t, 5.0, first.WindSpeed)

	assert.Equal(t, date("2024-06-02"), second.Date)
	assert.Equal(t, 20.0, second.Temperature)
	assert.Equal(t, 18.0, second.FeelsLike)
	assert.Equal(t, 55.0, second.Humidity)
	assert.Equal(t, 1.0, second.Precipitation)
	assert.Equal(t, 6.0, second.WindSpeed)
}

// TestTransform_ColumnSelection は余分なキーがあっても出力列が固定であることを確認します。
func TestTransform_ColumnSelection(t *testing.T) {
	body := `{"resolvedAddress":"Ioannina","days":[
		{"tempmax":25,"datetime":"2024-06-01","conditions":"Clear","temp":"21.5","feelslike":21,"humidity":40,"precip":0,"windspeed":3,"icon":"clear-day"},
		{"datetime":"2024-06-02","temp":22,"feelslike":22,"humidity":41,"precip":0.2,"windspeed":4,"uvindex":7}
	]}`
	cols, temps, _ := mustTransform(t, body)
	assert.Equal(t, []string{"date", "temperature", "feels_like", "humidity", "precipitation", "wind_speed"}, cols)
	assert.Equal(t, []float64{21.5, 22}, temps)
}

// TestTransform_LeadingNullsDropped は先頭の欠損が補完されず行ごと取り除かれることを確認します。
func TestTransform_LeadingNullsDropped(t *testing.T) {
	body := `{"days":[
		{"datetime":"2024-06-01","temp":null,"feelslike":1,"humidity":1,"precip":1,"windspeed":1},
		{"datetime":"2024-06-02","temp":null,"feelslike":2,"humidity":2,"precip":2,"windspeed":2},
		{"datetime":"2024-06-03","temp":5,"feelslike":3,"humidity":3,"precip":3,"windspeed":3}
	]}`
	_, temps, dates := mustTransform(t, body)
	assert.Equal(t, []float64{5}, temps)
	assert.Equal(t, []time.Time{date("2024-06-03")}, dates)
}

// TestTransform_LenientCoercion は数値に変換できない値が欠損として扱われ、前方補完されることを確認します。
func TestTransform_LenientCoercion(t *testing.T) {
	body := `{"days":[
		{"datetime":"2024-06-01","temp":10,"feelslike":9,"humidity":"n/a","precip":0,"windspeed":1},
		{"datetime":"2024-06-02","temp":"abc","feelslike":8,"humidity":60,"precip":true,"windspeed":2},
		{"datetime":"2024-06-03","temp":" 12.5 ","feelslike":7,"humidity":61,"precip":{"v":1},"windspeed":3}
	]}`
	payload, err := transform.ParsePayload([]byte(body))
	require.NoError(t, err)
	table, err := transform.Transform(payload)
	require.NoError(t, err)

	// 1 行目は humidity が補完できないため除外される
	require.Len(t, table.Records, 2)
	assert.Equal(t, 10.0, table.Records[0].Temperature)
	assert.Equal(t, 60.0, table.Records[0].Humidity)
	assert.Equal(t, 0.0, table.Records[0].Precipitation)
	assert.Equal(t, 12.5, table.Records[1].Temperature)
	assert.Equal(t, 0.0, table.Records[1].Precipitation)
}

// TestTransform_RowOrderPreserved は残った行が入力の順序を保つことを確認します。
func TestTransform_RowOrderPreserved(t *testing.T) {
	body := `{"days":[
		{"datetime":"2024-06-05","temp":null,"feelslike":1,"humidity":1,"precip":1,"windspeed":1},
		{"datetime":"2024-06-03","temp":3,"feelslike":1,"humidity":1,"precip":1,"windspeed":1},
		{"datetime":"2024-06-09","temp":9,"feelslike":1,"humidity":1,"precip":1,"windspeed":1},
		{"datetime":"2024-06-01","temp":1,"feelslike":1,"humidity":1,"precip":1,"windspeed":1}
	]}`
	_, temps, dates := mustTransform(t, body)
	assert.Equal(t, []float64{3, 9, 1}, temps)
	assert.Equal(t, []time.Time{date("2024-06-03"), date("2024-06-09"), date("2024-06-01")}, dates)
}

// TestTransform_NoMissingValues は出力に欠損 (0 埋めなど) が紛れ込まないことを確認します。
func TestTransform_NoMissingValues(t *testing.T) {
	body := `{"days":[
		{"datetime":"2024-06-01","temp":1,"feelslike":null,"humidity":1,"precip":1,"windspeed":1},
		{"datetime":"2024-06-02","temp":2,"feelslike":2,"humidity":null,"precip":1,"windspeed":null},
		{"datetime":"2024-06-03","temp":3,"feelslike":3,"humidity":3,"precip":null,"windspeed":3}
	]}`
	payload, err := transform.ParsePayload([]byte(body))
	require.NoError(t, err)
	table, err := transform.Transform(payload)
	require.NoError(t, err)

	require.Len(t, table.Records, 2)
	assert.Equal(t, 2.0, table.Records[0].FeelsLike)
	assert.Equal(t, 1.0, table.Records[0].Humidity)
	assert.Equal(t, 1.0, table.Records[0].WindSpeed)
	assert.Equal(t, 1.0, table.Records[1].Precipitation)
}

func TestTransform_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind exception.ErrorKind
		msg  string
	}{
		{
			name: "missing windspeed",
			body: `{"days":[{"datetime":"2024-06-01","temp":1,"feelslike":1,"humidity":1,"precip":1}]}`,
			kind: exception.KindSchema,
			msg:  "windspeed",
		},
		{
			name: "absent days",
			body: `{"address":"ioannina"}`,
			kind: exception.KindSchema,
			msg:  "datetime",
		},
		{
			name: "empty days",
			body: `{"days":[]}`,
			kind: exception.KindSchema,
			msg:  "days",
		},
		{
			name: "unparseable date",
			body: `{"days":[{"datetime":"2024-06-01","temp":1,"feelslike":1,"humidity":1,"precip":1,"windspeed":1},
				{"datetime":"yesterday","temp":1,"feelslike":1,"humidity":1,"precip":1,"windspeed":1}]}`,
			kind: exception.KindParse,
			msg:  "yesterday",
		},
		{
			name: "numeric date",
			body: `{"days":[{"datetime":20240601,"temp":1,"feelslike":1,"humidity":1,"precip":1,"windspeed":1}]}`,
			kind: exception.KindParse,
			msg:  "20240601",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := transform.ParsePayload([]byte(tt.body))
			require.NoError(t, err)
			_, err = transform.Transform(payload)
			require.Error(t, err)
			assert.True(t, exception.IsKind(err, tt.kind), "kind: %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParsePayload_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "{days:"},
		{"array", `[{"datetime":"2024-06-01"}]`},
		{"null", "null"},
		{"days not a list", `{"days":{"datetime":"2024-06-01"}}`},
		{"record not an object", `{"days":[{"datetime":"2024-06-01"}, 42]}`},
		{"null record", `{"days":[null]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transform.ParsePayload([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, exception.IsKind(err, exception.KindFormat), "kind: %v", err)
		})
	}
}

func TestParsePayload_KeepsKeyOrder(t *testing.T) {
	payload, err := transform.ParsePayload([]byte(`{"days":[{"b":1,"a":2},{"c":3,"a":4}]}`))
	require.NoError(t, err)
	require.Len(t, payload.Days, 2)
	assert.Equal(t, []string{"b", "a"}, payload.Days[0].Keys)

	frame := transform.Materialize(payload.Days)
	assert.Equal(t, []string{"b", "a", "c"}, frame.Columns)
	assert.Nil(t, frame.Rows[1][0])
	assert.Nil(t, frame.Rows[0][2])
}

func TestValidateDate(t *testing.T) {
	assert.True(t, transform.ValidateDate("2024-06-03"))
	assert.False(t, transform.ValidateDate("2024-02-30"))
	assert.False(t, transform.ValidateDate("03/06/2024"))
	assert.False(t, transform.ValidateDate(""))

	assert.NoError(t, transform.ValidateDateRange("2024-06-03", "2024-09-03"))
	assert.NoError(t, transform.ValidateDateRange("2024-06-03", "2024-06-03"))
	assert.True(t, exception.IsKind(transform.ValidateDateRange("2024-09-03", "2024-06-03"), exception.KindConfig))
	assert.True(t, exception.IsKind(transform.ValidateDateRange("2024-9-3", "2024-09-03"), exception.KindParse))
}

func TestParseDate_Layouts(t *testing.T) {
	for _, s := range []string{"2024-06-01", "2024-06-01T13:45:00", "2024-06-01T23:30:00+03:00", "2024-06-01 08:00:00", "2024/06/01", "20240601"} {
		got, ok := transform.ParseDate(s)
		assert.True(t, ok, s)
		assert.Equal(t, date("2024-06-01"), got, s)
	}
	_, ok := transform.ParseDate("June 1st")
	assert.False(t, ok)
}
