// Package study はFetch-and-Log処理を提供する。
// Sefaria APIからトピックとカレンダーを取得し、ログストアに追記して呼び出し元に返す。
package study

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/hitoshi/studytoday/internal/metrics"
	"github.com/hitoshi/studytoday/internal/model"
	"github.com/hitoshi/studytoday/internal/repository"
)

// SourceClient はトピックとカレンダーの取得元のインターフェース。
type SourceClient interface {
	FetchTopic(ctx context.Context) (*model.TopicResult, error)
	FetchCalendar(ctx context.Context) (*model.CalendarResult, error)
}

// Service はFetch-and-Logを実行するサービス。
// 呼び出し間で共有する状態はログストアのみ。
type Service struct {
	source  SourceClient
	repo    repository.CommandLogRepository
	clock   clockwork.Clock
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	source SourceClient,
	repo repository.CommandLogRepository,
	clock clockwork.Clock,
	m metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		source:  source,
		repo:    repo,
		clock:   clock,
		metrics: m,
		logger:  logger,
	}
}

// Fetch はトピックとカレンダーを順に取得し、ログレコードを追記して結果を返す。
// 取得またはパースに失敗した場合は*model.FetchErrorを返し、レコードは作成しない。
// ログストアへの書き込み失敗は処理を中断せず、FetchResult.PersistErrに設定する。
func (s *Service) Fetch(ctx context.Context) (*model.FetchResult, error) {
	topic, err := s.source.FetchTopic(ctx)
	if err != nil {
		s.recordFailure(err)
		return nil, fmt.Errorf("トピックの取得に失敗しました: %w", err)
	}

	calendar, err := s.source.FetchCalendar(ctx)
	if err != nil {
		s.recordFailure(err)
		return nil, fmt.Errorf("カレンダーの取得に失敗しました: %w", err)
	}

	result := &model.FetchResult{
		Topic:    topic,
		Calendar: calendar,
	}

	record, err := s.appendRecord(ctx, topic, calendar)
	if err != nil {
		s.metrics.RecordPersistFailure()
		s.logger.Error("ログストアへの書き込みに失敗しました",
			slog.String("hebrew_topic", topic.HebrewTopic),
			slog.String("error", err.Error()),
		)
		result.PersistErr = model.NewPersistenceError(err)
	} else {
		s.metrics.RecordRecordAppended()
		result.Record = record
	}

	s.metrics.RecordFetchSuccess()
	s.logger.Info("学習データを取得しました",
		slog.String("hebrew_topic", topic.HebrewTopic),
		slog.String("calendar_date", calendar.Date),
		slog.Int("calendar_items", len(calendar.Items)),
		slog.Bool("persisted", result.Record != nil),
	)

	return result, nil
}

// History は新しい順に最大limit件のログレコードを返す。
func (s *Service) History(ctx context.Context, limit int) ([]model.LogRecord, error) {
	records, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, model.NewPersistenceError(err)
	}
	return records, nil
}

func (s *Service) appendRecord(ctx context.Context, topic *model.TopicResult, calendar *model.CalendarResult) (*model.LogRecord, error) {
	calendarData, err := model.IndentedJSON(calendar.Raw)
	if err != nil {
		return nil, err
	}

	record := &model.LogRecord{
		Timestamp:    s.clock.Now().Local().Format(model.TimestampLayout),
		HebrewTopic:  topic.HebrewTopic,
		CalendarData: calendarData,
	}
	if err := s.repo.Append(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) recordFailure(err error) {
	kind := model.KindOf(err)
	if kind == 0 {
		kind = model.NetworkError
	}
	s.metrics.RecordFetchFailure(kind.String())
}
