package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// maxErrorBody はエラーメッセージに含めるレスポンスボディの最大長です。
const maxErrorBody = 512

// NewHTTPClient はタイムアウトを設定した http.Client を返します。timeout が 0 以下の場合は 30 秒を使用します。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// redactURL はクエリパラメータ key の値を伏せた URL を返します。
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// getJSON は GET リクエストを送信し、レスポンスボディを JSON として返します。
// 接続エラー、タイムアウト、2xx 以外のステータスは TransportError、JSON として不正なボディは FormatError です。
func getJSON(ctx context.Context, httpClient *http.Client, module, rawURL string) (json.RawMessage, error) {
	safeURL := redactURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, exception.NewBatchErrorf(module, exception.KindTransport, "HTTPリクエストの作成に失敗しました (%s)", safeURL, err)
	}
	req.Header.Set("Accept", "application/json")

	logger.Debugf("%s: GET %s", module, safeURL)
	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = safeURL
		}
		return nil, exception.NewBatchErrorf(module, exception.KindTransport, "APIへのリクエストに失敗しました (%s)", safeURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, exception.NewBatchErrorf(module, exception.KindTransport,
			"APIからエラーレスポンスが返されました: ステータスコード %d, ボディ: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exception.NewBatchError(module, exception.KindTransport, "APIレスポンスの読み込みに失敗しました", err)
	}
	if !json.Valid(body) {
		return nil, exception.NewBatchError(module, exception.KindFormat, "APIレスポンスが JSON ではありません", fmt.Errorf("%d bytes", len(body)))
	}
	logger.Debugf("%s: ステータス %d, %d bytes (%s)", module, resp.StatusCode, len(body), time.Since(start))
	return json.RawMessage(body), nil
}
