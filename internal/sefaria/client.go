// Package sefaria はSefaria公開APIのクライアントを提供する。
// ランダムな学習トピックと当日の学習カレンダーを取得する。
package sefaria

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/studytoday/internal/metrics"
	"github.com/hitoshi/studytoday/internal/model"
)

const (
	// endpointTopic はトピックエンドポイントのメトリクス・ログ用の名前。
	endpointTopic = "topic"
	// endpointCalendar はカレンダーエンドポイントのメトリクス・ログ用の名前。
	endpointCalendar = "calendar"

	userAgent = "StudyToday/1.0"

	// defaultMaxBodySize はMaxBodySize未指定時のレスポンス上限（5MiB）。
	defaultMaxBodySize = 5 << 20
)

// ClientConfig はClientの接続先設定。
type ClientConfig struct {
	TopicEndpoint    string
	CalendarEndpoint string
	MaxBodySize      int64
}

// Client はSefaria APIのクライアント。
// リトライは行わず、1回の呼び出しにつき1回だけリクエストを送信する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	config     ClientConfig
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, m metrics.MetricsCollector, config ClientConfig) *Client {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = defaultMaxBodySize
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
		config:     config,
	}
}

// FetchTopic はトピックエンドポイントからランダムな学習トピックを取得する。
func (c *Client) FetchTopic(ctx context.Context) (*model.TopicResult, error) {
	body, err := c.get(ctx, endpointTopic, c.config.TopicEndpoint)
	if err != nil {
		return nil, err
	}

	topic, err := model.ParseTopic(body)
	if err != nil {
		c.logger.Error("トピックのパースに失敗しました",
			slog.String("endpoint", c.config.TopicEndpoint),
			slog.String("error", err.Error()),
		)
		return nil, model.NewParseError(c.config.TopicEndpoint, err)
	}
	return topic, nil
}

// FetchCalendar はカレンダーエンドポイントから当日の学習カレンダーを取得する。
func (c *Client) FetchCalendar(ctx context.Context) (*model.CalendarResult, error) {
	body, err := c.get(ctx, endpointCalendar, c.config.CalendarEndpoint)
	if err != nil {
		return nil, err
	}

	calendar, err := model.ParseCalendar(body)
	if err != nil {
		c.logger.Error("カレンダーのパースに失敗しました",
			slog.String("endpoint", c.config.CalendarEndpoint),
			slog.String("error", err.Error()),
		)
		return nil, model.NewParseError(c.config.CalendarEndpoint, err)
	}
	return calendar, nil
}

// get はエンドポイントにGETリクエストを送り、レスポンスボディを返す。
// 通信失敗、2xx以外のステータス、サイズ超過はNetworkErrorとして返す。
func (c *Client) get(ctx context.Context, name, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, model.NewNetworkError(endpoint, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Sefaria APIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, model.NewNetworkError(endpoint, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	c.metrics.RecordUpstreamStatus(name, resp.StatusCode)
	c.metrics.RecordUpstreamLatency(name, duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Sefaria APIがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewStatusError(endpoint, resp.StatusCode)
	}

	// 上限を1バイト超えて読み、超過を検出する
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize+1))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, model.NewNetworkError(endpoint, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}
	if int64(len(body)) > c.config.MaxBodySize {
		return nil, model.NewNetworkError(endpoint,
			fmt.Errorf("レスポンスが上限サイズ %d バイトを超えています", c.config.MaxBodySize))
	}

	c.logger.Debug("Sefaria APIからレスポンスを受信しました",
		slog.String("endpoint", endpoint),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("body_bytes", len(body)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return body, nil
}
