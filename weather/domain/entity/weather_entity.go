package weather_entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// DateLayout は CSV とデータベースで使用する日付の書式です。
const DateLayout = "2006-01-02"

// DayRecord は Visual Crossing の days 配列に含まれる 1 日分のレコードです。
// キーの出現順を保持するため、map ではなく Keys と Values の組で表します。
// 数値は json.Number のまま保持します。
type DayRecord struct {
	Keys   []string
	Values map[string]any
}

// Get はキーに対応する値を返します。キーが存在しない場合は false を返します。
func (d DayRecord) Get(key string) (any, bool) {
	v, ok := d.Values[key]
	return v, ok
}

// UnmarshalJSON はオブジェクトをキーの出現順を保ったままデコードします。
// JSON オブジェクト以外が渡された場合はエラーを返します。
func (d *DayRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("day-record はオブジェクトである必要があります: %s", describeJSON(data))
	}

	d.Keys = d.Keys[:0]
	d.Values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("不正なキーです: %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if _, dup := d.Values[key]; !dup {
			d.Keys = append(d.Keys, key)
		}
		d.Values[key] = value
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func describeJSON(data []byte) string {
	s := string(bytes.TrimSpace(data))
	if len(s) > 32 {
		s = s[:32] + "..."
	}
	return s
}

// RawWeatherPayload は Visual Crossing Timeline API のレスポンスです。
// Raw は API が返したバイト列そのものです。Days は変換処理が参照する days 配列で、
// days が存在しない場合は空になります。
type RawWeatherPayload struct {
	Raw  json.RawMessage
	Days []DayRecord
}

// AirQualityPayload は AirVisual History API のレスポンスです。変換処理では使用せず、そのままファイルに保存します。
type AirQualityPayload struct {
	Raw json.RawMessage
}

// WeatherRecord は変換後の 1 日分の気象データです。
type WeatherRecord struct {
	Date          time.Time `csv:"date" db:"date"`
	Temperature   float64   `csv:"temperature" db:"temperature"`
	FeelsLike     float64   `csv:"feels_like" db:"feels_like"`
	Humidity      float64   `csv:"humidity" db:"humidity"`
	Precipitation float64   `csv:"precipitation" db:"precipitation"`
	WindSpeed     float64   `csv:"wind_speed" db:"wind_speed"`
}

// WeatherTable は変換結果のテーブルです。Columns は正規化済みの列名で、Records は入力の順序を保持します。
type WeatherTable struct {
	Columns []string
	Records []WeatherRecord
}
