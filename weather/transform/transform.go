package transform

import (
	"time"

	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// SourceColumns は day-record から取り出すキーです。この順序で出力列に対応します。
var SourceColumns = []string{"datetime", "temp", "feelslike", "humidity", "precip", "windspeed"}

// OutputColumns は変換後の列名です。CSV のヘッダーとテーブルの列もこの順序になります。
var OutputColumns = []string{"date", "temperature", "feels_like", "humidity", "precipitation", "wind_speed"}

// Transform は RawWeatherPayload を WeatherTable に変換します。
//
// 処理は次の順に行います。
//  1. days を Frame に展開する
//  2. 必須の 6 列を選択する
//  3. 列名を位置に従って置き換える
//  4. date を日付に変換する
//  5. 数値列を float64 に変換する (変換できない値は欠損)
//  6. 前方補完を行い、欠損が残る行を取り除く
//  7. 列名を正規化する
func Transform(payload *weather_entity.RawWeatherPayload) (*weather_entity.WeatherTable, error) {
	if payload == nil {
		return nil, exception.NewBatchError(module, exception.KindFormat, "気象データがありません", nil)
	}
	if len(payload.Days) == 0 {
		// 必須列を 1 つも持たないため、列の選択と同じ SchemaError とする
		return nil, exception.NewBatchErrorf(module, exception.KindSchema,
			"'days' が空です。必須カラム '%s' がデータに存在しません", SourceColumns[0])
	}

	frame := Materialize(payload.Days)
	logger.Debugf("days を展開しました。行数: %d, 列数: %d", len(frame.Rows), len(frame.Columns))

	frame, err := SelectColumns(frame, SourceColumns)
	if err != nil {
		return nil, err
	}
	if frame, err = RenameColumns(frame, OutputColumns); err != nil {
		return nil, err
	}
	if frame, err = ParseDateColumn(frame, OutputColumns[0]); err != nil {
		return nil, err
	}
	if frame, err = CoerceNumericColumns(frame, OutputColumns[1:]); err != nil {
		return nil, err
	}

	filled := ForwardFill(frame)
	cleaned := DropIncomplete(filled)
	if dropped := len(filled.Rows) - len(cleaned.Rows); dropped > 0 {
		logger.Warnf("欠損値が補完できなかった %d 行を除外しました。", dropped)
	}

	return ToTable(NormalizeColumnNames(cleaned))
}

// ToTable は欠損のない Frame を WeatherTable に変換します。
func ToTable(f *Frame) (*weather_entity.WeatherTable, error) {
	indexes := make([]int, len(OutputColumns))
	for i, c := range OutputColumns {
		idx := f.Index(c)
		if idx < 0 {
			return nil, exception.NewBatchErrorf(module, exception.KindSchema, "カラム '%s' がデータに存在しません", c)
		}
		indexes[i] = idx
	}

	table := &weather_entity.WeatherTable{
		Columns: append([]string(nil), f.Columns...),
		Records: make([]weather_entity.WeatherRecord, 0, len(f.Rows)),
	}
	for i, row := range f.Rows {
		date, ok := row[indexes[0]].(time.Time)
		if !ok {
			return nil, exception.NewBatchErrorf(module, exception.KindInternal, "%d 行目の date が日付に変換されていません", i+1)
		}
		nums := make([]float64, len(OutputColumns)-1)
		for j := range nums {
			n, ok := row[indexes[j+1]].(float64)
			if !ok {
				return nil, exception.NewBatchErrorf(module, exception.KindInternal, "%d 行目の %s が数値に変換されていません", i+1, OutputColumns[j+1])
			}
			nums[j] = n
		}
		table.Records = append(table.Records, weather_entity.WeatherRecord{
			Date:          date,
			Temperature:   nums[0],
			FeelsLike:     nums[1],
			Humidity:      nums[2],
			Precipitation: nums[3],
			WindSpeed:     nums[4],
		})
	}
	return table, nil
}

// ValidateDate は文字列が YYYY-MM-DD 形式の実在する日付かどうかを返します。
func ValidateDate(s string) bool {
	_, err := time.Parse(weather_entity.DateLayout, s)
	return err == nil
}

// ValidateDateRange は開始日と終了日の書式と前後関係を検証します。
func ValidateDateRange(start, end string) error {
	if !ValidateDate(start) {
		return exception.NewBatchErrorf("date_validator", exception.KindParse, "開始日 '%s' は YYYY-MM-DD 形式ではありません", start)
	}
	if !ValidateDate(end) {
		return exception.NewBatchErrorf("date_validator", exception.KindParse, "終了日 '%s' は YYYY-MM-DD 形式ではありません", end)
	}
	if start > end {
		return exception.NewBatchErrorf("date_validator", exception.KindConfig, "開始日 '%s' が終了日 '%s' より後になっています", start, end)
	}
	return nil
}
