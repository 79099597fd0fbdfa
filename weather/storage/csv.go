package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

func marshalDate(t time.Time) ([]byte, error) {
	return []byte(t.Format(weather_entity.DateLayout)), nil
}

func unmarshalDate(data []byte, t *time.Time) error {
	var err error
	*t, err = time.Parse(weather_entity.DateLayout, string(data))
	return err
}

func marshalFloat(f float64) ([]byte, error) {
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// EncodeCSV は WeatherTable をヘッダー付きの CSV にエンコードします。
// date は YYYY-MM-DD、数値は指数表記を使わない 10 進数で出力します。
func EncodeCSV(table *weather_entity.WeatherTable) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	enc.Register(marshalDate)
	enc.Register(marshalFloat)

	if len(table.Records) == 0 {
		if err := enc.EncodeHeader(weather_entity.WeatherRecord{}); err != nil {
			return nil, exception.NewBatchError(module, exception.KindInternal, "CSV ヘッダーのエンコードに失敗しました", err)
		}
	}
	for i := range table.Records {
		if err := enc.Encode(table.Records[i]); err != nil {
			return nil, exception.NewBatchErrorf(module, exception.KindInternal, "%d 行目の CSV エンコードに失敗しました", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, exception.NewBatchError(module, exception.KindInternal, "CSV の書き込みに失敗しました", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV は WeatherTable を CSV ファイルとしてアトミックに書き込みます。
func WriteCSV(path string, table *weather_entity.WeatherTable) error {
	data, err := EncodeCSV(table)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return err
	}
	logger.Infof("変換済みデータを '%s' に保存しました (%d 行)。", path, len(table.Records))
	return nil
}

// DecodeCSV は CSV を WeatherRecord の並びにデコードします。
// ヘッダーが date,temperature,feels_like,humidity,precipitation,wind_speed と一致しない場合、
// 値が解釈できない場合、データが空の場合は FormatError を返します。
func DecodeCSV(data []byte, expectedHeader []string) ([]weather_entity.WeatherRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, exception.NewBatchError(module, exception.KindFormat, "変換済みデータが空です", nil)
	}

	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, exception.NewBatchError(module, exception.KindFormat, "CSV ヘッダーを読み取れません", err)
	}
	dec.Register(unmarshalDate)

	if header := dec.Header(); !equalHeader(header, expectedHeader) {
		return nil, exception.NewBatchErrorf(module, exception.KindFormat,
			"CSV ヘッダーが不正です (期待: %s, 実際: %s)", strings.Join(expectedHeader, ","), strings.Join(header, ","))
	}

	records := make([]weather_entity.WeatherRecord, 0)
	for line := 2; ; line++ {
		var rec weather_entity.WeatherRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, exception.NewBatchErrorf(module, exception.KindFormat, "CSV の %d 行目を読み取れません", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCSV は CSV ファイルを読み込みます。
// ファイルが存在しない、空である、読み込めない、の各場合を区別した FormatError を返します。
func ReadCSV(path string, expectedHeader []string) ([]weather_entity.WeatherRecord, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := DecodeCSV(data, expectedHeader)
	if err != nil {
		return nil, exception.NewBatchErrorf(module, exception.KindFormat, "変換済みデータ '%s' を読み込めません", path, err)
	}
	logger.Debugf("'%s' から %d 行を読み込みました。", path, len(records))
	return records, nil
}

func equalHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
