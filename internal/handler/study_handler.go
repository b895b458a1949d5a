package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/studytoday/internal/middleware"
	"github.com/hitoshi/studytoday/internal/model"
)

const (
	// defaultHistoryLimit は履歴取得のデフォルト件数。
	defaultHistoryLimit = 20
	// maxHistoryLimit は履歴取得の最大件数。
	maxHistoryLimit = 100
)

// StudyServiceInterface は学習データハンドラーが必要とするサービスインターフェース。
type StudyServiceInterface interface {
	// Fetch はトピックとカレンダーを取得し、ログストアに追記して返す。
	Fetch(ctx context.Context) (*model.FetchResult, error)
	// History は新しい順に最大limit件のログレコードを返す。
	History(ctx context.Context, limit int) ([]model.LogRecord, error)
}

// StudyHandler は学習データのHTTPハンドラー。
// リクエストごとにFetch-and-Logを実行し、結果はキャッシュしない。
type StudyHandler struct {
	service StudyServiceInterface
	page    *PageRenderer
	debug   bool
}

// NewStudyHandler はStudyHandlerを生成する。
func NewStudyHandler(service StudyServiceInterface, page *PageRenderer, debug bool) *StudyHandler {
	return &StudyHandler{
		service: service,
		page:    page,
		debug:   debug,
	}
}

// --- レスポンス型 ---

// dataResponse は GET /api/data のレスポンス。
// 各値は上流APIから受信したJSONをそのまま出力する。
type dataResponse struct {
	HebrewData   *model.TopicResult    `json:"hebrew_data"`
	CalendarData *model.CalendarResult `json:"calendar_data"`
}

// historyResponse は GET /api/history のレスポンス。
type historyResponse struct {
	Records []model.LogRecord `json:"records"`
	Count   int               `json:"count"`
}

// Index は学習データを埋め込んだHTMLページを返す。
// GET /
func (h *StudyHandler) Index(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Fetch(r.Context())
	if err != nil {
		statusCode, apiErr := mapFetchErrorToHTTPStatus(err)
		logFetchError(r, err, apiErr)
		h.page.RenderError(w, statusCode, apiErr, err, h.debug)
		return
	}

	h.page.Render(w, result)
}

// Data は学習データをJSONで返す。
// GET /api/data
func (h *StudyHandler) Data(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Fetch(r.Context())
	if err != nil {
		handleFetchError(w, r, err, h.debug)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(dataResponse{
		HebrewData:   result.Topic,
		CalendarData: result.Calendar,
	}); err != nil {
		slog.Error("レスポンスの書き込みに失敗しました",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// History はログストアの履歴を新しい順に返す。
// GET /api/history?limit=N
func (h *StudyHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLimitError(raw), nil, false)
			return
		}
		limit = n
	}

	records, err := h.service.History(r.Context(), limit)
	if err != nil {
		slog.Error("履歴の読み取りに失敗しました",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewHistoryUnavailableError(), err, h.debug)
		return
	}

	if records == nil {
		records = []model.LogRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(historyResponse{
		Records: records,
		Count:   len(records),
	})
}
