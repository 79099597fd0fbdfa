package transform

import (
	"bytes"
	"encoding/json"

	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/pkg/batch/util/exception"
)

const module = "transformer"

// ParsePayload は Visual Crossing のレスポンス JSON を RawWeatherPayload に変換します。
//
// トップレベルがオブジェクトでない場合、days が配列でない場合、days の要素がオブジェクトでない場合は
// FormatError を返します。days が存在しない場合は空の Days を持つペイロードを返します。
func ParsePayload(data []byte) (*weather_entity.RawWeatherPayload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, exception.NewBatchError(module, exception.KindFormat, "気象データの JSON が空です", nil)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, exception.NewBatchError(module, exception.KindFormat, "気象データの JSON をデコードできません", err)
	}
	if top == nil {
		return nil, exception.NewBatchError(module, exception.KindFormat, "気象データの JSON がオブジェクトではありません", nil)
	}

	payload := &weather_entity.RawWeatherPayload{Raw: json.RawMessage(trimmed)}
	rawDays, ok := top["days"]
	if !ok || string(bytes.TrimSpace(rawDays)) == "null" {
		return payload, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawDays, &items); err != nil {
		return nil, exception.NewBatchError(module, exception.KindFormat, "'days' が配列ではありません", err)
	}

	payload.Days = make([]weather_entity.DayRecord, 0, len(items))
	for i, item := range items {
		var rec weather_entity.DayRecord
		if err := rec.UnmarshalJSON(item); err != nil {
			return nil, exception.NewBatchErrorf(module, exception.KindFormat, "'days' の %d 番目の要素を読み取れません", i, err)
		}
		payload.Days = append(payload.Days, rec)
	}
	return payload, nil
}
