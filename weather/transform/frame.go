package transform

import (
	"math"
	"strconv"
	"strings"
	"time"

	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/pkg/batch/util/exception"
)

// Frame は列名と行からなる表です。値が欠損しているセルは nil で表します。
// 各関数は受け取った Frame を変更せず、新しい Frame を返します。
type Frame struct {
	Columns []string
	Rows    [][]any
}

// Index は列名に対応する位置を返します。存在しない場合は -1 です。
func (f *Frame) Index(column string) int {
	for i, c := range f.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Column は指定された列の値を行順に返します。
func (f *Frame) Column(column string) []any {
	idx := f.Index(column)
	if idx < 0 {
		return nil
	}
	values := make([]any, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[idx]
	}
	return values
}

func (f *Frame) clone() *Frame {
	out := &Frame{
		Columns: append([]string(nil), f.Columns...),
		Rows:    make([][]any, len(f.Rows)),
	}
	for i, row := range f.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

// Materialize は day-record の並びを 1 レコード 1 行の Frame にします。
// 列は全レコードのキーの和集合で、最初に現れた順に並びます。キーを持たないレコードのセルは欠損になります。
func Materialize(days []weather_entity.DayRecord) *Frame {
	f := &Frame{}
	seen := make(map[string]bool)
	for _, d := range days {
		for _, k := range d.Keys {
			if !seen[k] {
				seen[k] = true
				f.Columns = append(f.Columns, k)
			}
		}
	}

	f.Rows = make([][]any, len(days))
	for i, d := range days {
		row := make([]any, len(f.Columns))
		for j, c := range f.Columns {
			if v, ok := d.Get(c); ok {
				row[j] = v
			}
		}
		f.Rows[i] = row
	}
	return f
}

// SelectColumns は指定された列だけを指定された順序で残します。
// いずれかの列が存在しない場合は、その列名を含む SchemaError を返します。
func SelectColumns(f *Frame, columns []string) (*Frame, error) {
	indexes := make([]int, len(columns))
	for i, c := range columns {
		idx := f.Index(c)
		if idx < 0 {
			return nil, exception.NewBatchErrorf(module, exception.KindSchema, "必須カラム '%s' がデータに存在しません", c)
		}
		indexes[i] = idx
	}

	out := &Frame{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]any, len(f.Rows)),
	}
	for i, row := range f.Rows {
		selected := make([]any, len(indexes))
		for j, idx := range indexes {
			selected[j] = row[idx]
		}
		out.Rows[i] = selected
	}
	return out, nil
}

// RenameColumns は列名を位置に従って置き換えます。
func RenameColumns(f *Frame, names []string) (*Frame, error) {
	if len(names) != len(f.Columns) {
		return nil, exception.NewBatchErrorf(module, exception.KindSchema,
			"列数が一致しません (現在: %d, 新しい列名: %d)", len(f.Columns), len(names))
	}
	out := f.clone()
	copy(out.Columns, names)
	return out, nil
}

var dateLayouts = []string{
	weather_entity.DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"20060102",
}

// ParseDate は ISO 形式に準じた日付文字列を日付 (UTC の 0 時) に変換します。
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseDateColumn は指定された列を日付に変換します。
// null は欠損として扱い、解釈できない値は値と行番号を含む ParseError になります。
func ParseDateColumn(f *Frame, column string) (*Frame, error) {
	idx := f.Index(column)
	if idx < 0 {
		return nil, exception.NewBatchErrorf(module, exception.KindSchema, "カラム '%s' がデータに存在しません", column)
	}
	out := f.clone()
	for i, row := range out.Rows {
		v := row[idx]
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, exception.NewBatchErrorf(module, exception.KindParse, "%d 行目の %s の値 '%v' は日付ではありません", i+1, column, v)
		}
		t, ok := ParseDate(s)
		if !ok {
			return nil, exception.NewBatchErrorf(module, exception.KindParse, "%d 行目の %s の値 '%s' を日付として解釈できません", i+1, column, s)
		}
		row[idx] = t
	}
	return out, nil
}

// toFloat は値を数値に変換します。数値として解釈できない値、NaN、無限大は false を返します。
func toFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case interface{ Float64() (float64, error) }:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CoerceNumericColumns は指定された列を float64 に変換します。
// 変換できない値はエラーにせず欠損にします。
func CoerceNumericColumns(f *Frame, columns []string) (*Frame, error) {
	out := f.clone()
	for _, c := range columns {
		idx := out.Index(c)
		if idx < 0 {
			return nil, exception.NewBatchErrorf(module, exception.KindSchema, "カラム '%s' がデータに存在しません", c)
		}
		for _, row := range out.Rows {
			if n, ok := toFloat(row[idx]); ok {
				row[idx] = n
			} else {
				row[idx] = nil
			}
		}
	}
	return out, nil
}

// ForwardFill は列ごとに欠損値を直前の非欠損値で埋めます。
// 先頭から続く欠損は埋める値がないため欠損のまま残ります。
func ForwardFill(f *Frame) *Frame {
	out := f.clone()
	for j := range out.Columns {
		var last any
		for _, row := range out.Rows {
			if row[j] == nil {
				row[j] = last
			} else {
				last = row[j]
			}
		}
	}
	return out
}

// DropIncomplete は欠損値を 1 つでも含む行を取り除きます。残る行の順序は変わりません。
func DropIncomplete(f *Frame) *Frame {
	out := &Frame{Columns: append([]string(nil), f.Columns...)}
	for _, row := range f.Rows {
		complete := true
		for _, v := range row {
			if v == nil {
				complete = false
				break
			}
		}
		if complete {
			out.Rows = append(out.Rows, append([]any(nil), row...))
		}
	}
	return out
}

// NormalizeColumnName は列名の前後の空白を除去し、小文字にして空白をアンダースコアに置き換えます。
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// NormalizeColumnNames はすべての列名を NormalizeColumnName で正規化します。
func NormalizeColumnNames(f *Frame) *Frame {
	out := f.clone()
	for i, c := range out.Columns {
		out.Columns[i] = NormalizeColumnName(c)
	}
	return out
}
