package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	weather_entity "weatheretl/weather/domain/entity"
	"weatheretl/pkg/batch/util/exception"
)

// VisualCrossingClient は Visual Crossing Timeline API のクライアントです。
type VisualCrossingClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewVisualCrossingClient は新しい VisualCrossingClient を作成します。
func NewVisualCrossingClient(baseURL, apiKey string, httpClient *http.Client) *VisualCrossingClient {
	return &VisualCrossingClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// TimelineURL は指定された地点と期間の日別データを取得する URL を組み立てます。
func (c *VisualCrossingClient) TimelineURL(location, startDate, endDate string) string {
	values := url.Values{}
	values.Set("unitGroup", "metric")
	values.Set("include", "days")
	values.Set("key", c.apiKey)
	values.Set("contentType", "json")
	return c.baseURL + "/" + url.PathEscape(location) + "/" + startDate + "/" + endDate + "?" + values.Encode()
}

// FetchTimeline は地点と期間を指定して日別の気象データを取得します。
func (c *VisualCrossingClient) FetchTimeline(ctx context.Context, location, startDate, endDate string) (*weather_entity.RawWeatherPayload, error) {
	const module = "visual_crossing_client"
	if c.apiKey == "" {
		return nil, exception.NewBatchError(module, exception.KindConfig, "VISUALCROSSING_API_KEY が設定されていません", nil)
	}

	raw, err := getJSON(ctx, c.httpClient, module, c.TimelineURL(location, startDate, endDate))
	if err != nil {
		return nil, err
	}
	return &weather_entity.RawWeatherPayload{Raw: raw}, nil
}
