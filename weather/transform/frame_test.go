package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheretl/weather/transform"
)

func singleColumn(values ...any) *transform.Frame {
	f := &transform.Frame{Columns: []string{"temperature"}}
	for _, v := range values {
		f.Rows = append(f.Rows, []any{v})
	}
	return f
}

func TestForwardFill(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want []any
	}{
		{"gap in the middle", []any{10.0, nil, nil, 20.0}, []any{10.0, 10.0, 10.0, 20.0}},
		{"leading nulls stay", []any{nil, nil, 5.0}, []any{nil, nil, 5.0}},
		{"trailing nulls", []any{1.0, nil}, []any{1.0, 1.0}},
		{"all null", []any{nil, nil}, []any{nil, nil}},
		{"empty", []any{}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := singleColumn(tt.in...)
			got := transform.ForwardFill(in)
			assert.Equal(t, tt.want, got.Column("temperature"))
			// 入力は変更しない
			assert.Equal(t, tt.in, in.Column("temperature"))
		})
	}
}

func TestForwardFill_ColumnsAreIndependent(t *testing.T) {
	f := &transform.Frame{
		Columns: []string{"a", "b"},
		Rows: [][]any{
			{1.0, nil},
			{nil, 2.0},
			{nil, nil},
		},
	}
	got := transform.ForwardFill(f)
	assert.Equal(t, []any{1.0, 1.0, 1.0}, got.Column("a"))
	assert.Equal(t, []any{nil, 2.0, 2.0}, got.Column("b"))
}

func TestDropIncomplete(t *testing.T) {
	filled := transform.ForwardFill(singleColumn(nil, nil, 5.0))
	got := transform.DropIncomplete(filled)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, []any{5.0}, got.Column("temperature"))

	f := &transform.Frame{
		Columns: []string{"a", "b"},
		Rows: [][]any{
			{1.0, 1.0},
			{2.0, nil},
			{3.0, 3.0},
		},
	}
	got = transform.DropIncomplete(f)
	assert.Equal(t, []any{1.0, 3.0}, got.Column("a"))
}

func TestSelectAndRename(t *testing.T) {
	f := &transform.Frame{
		Columns: []string{"x", "temp", "datetime"},
		Rows:    [][]any{{"ignored", 1.0, "2024-06-01"}},
	}
	selected, err := transform.SelectColumns(f, []string{"datetime", "temp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"datetime", "temp"}, selected.Columns)
	assert.Equal(t, []any{"2024-06-01", 1.0}, selected.Rows[0])

	renamed, err := transform.RenameColumns(selected, []string{"date", "temperature"})
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "temperature"}, renamed.Columns)
	assert.Equal(t, []string{"datetime", "temp"}, selected.Columns)

	_, err = transform.RenameColumns(selected, []string{"date"})
	assert.Error(t, err)

	_, err = transform.SelectColumns(f, []string{"windspeed"})
	assert.ErrorContains(t, err, "windspeed")
}

func TestNormalizeColumnName(t *testing.T) {
	tests := map[string]string{
		"  Wind Speed ": "wind_speed",
		"FEELS LIKE":    "feels_like",
		"date":          "date",
		"precipitation": "precipitation",
	}
	for in, want := range tests {
		once := transform.NormalizeColumnName(in)
		assert.Equal(t, want, once)
		assert.Equal(t, once, transform.NormalizeColumnName(once), "正規化は冪等であること")
	}

	f := &transform.Frame{Columns: []string{" Temperature", "Wind Speed"}}
	assert.Equal(t, []string{"temperature", "wind_speed"}, transform.NormalizeColumnNames(f).Columns)
}

func TestCoerceNumericColumns(t *testing.T) {
	f := &transform.Frame{
		Columns: []string{"v"},
		Rows:    [][]any{{"1.5"}, {"NaN"}, {"Inf"}, {"x"}, {nil}, {3}},
	}
	got, err := transform.CoerceNumericColumns(f, []string{"v"})
	require.NoError(t, err)
	assert.Equal(t, []any{1.5, nil, nil, nil, nil, 3.0}, got.Column("v"))
}
