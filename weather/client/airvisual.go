package client

import (
	"context"
	"net/http"
	"net/url"

	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/pkg/batch/util/exception"
)

// AirVisualClient は AirVisual History API のクライアントです。
type AirVisualClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAirVisualClient は新しい AirVisualClient を作成します。
func NewAirVisualClient(baseURL, apiKey string, httpClient *http.Client) *AirVisualClient {
	return &AirVisualClient{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

// HistoryURL は都市と期間を指定した履歴データの URL を組み立てます。
func (c *AirVisualClient) HistoryURL(city, state, country, startDate, endDate string) string {
	values := url.Values{}
	values.Set("city", city)
	values.Set("state", state)
	values.Set("country", country)
	values.Set("start", startDate)
	values.Set("end", endDate)
	values.Set("key", c.apiKey)
	return c.baseURL + "?" + values.Encode()
}

// FetchHistory は大気質の履歴データを取得します。
func (c *AirVisualClient) FetchHistory(ctx context.Context, city, state, country, startDate, endDate string) (*weather_entity.AirQualityPayload, error) {
	const module = "airvisual_client"
	if c.apiKey == "" {
		return nil, exception.NewBatchError(module, exception.KindConfig, "AIRVISUAL_API_KEY が設定されていません", nil)
	}

	raw, err := getJSON(ctx, c.httpClient, module, c.HistoryURL(city, state, country, startDate, endDate))
	if err != nil {
		return nil, err
	}
	return &weather_entity.AirQualityPayload{Raw: raw}, nil
}
