package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// StoreChecker はログストアの状態確認に必要なインターフェース。
// repository.CommandLogRepositoryの部分集合として定義する。
type StoreChecker interface {
	Count(ctx context.Context) (int, error)
}

// healthResponse は GET /health のレスポンス。
type healthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Records *int   `json:"records,omitempty"`
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
// ログストアが使えなくてもFetch-and-Logは動作するため、ストアの状態は報告のみで常に200を返す。
type HealthHandler struct {
	store StoreChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(store StoreChecker) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health はプロセスの稼働状態とログストアの状態を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "ok"}

	count, err := h.store.Count(r.Context())
	if err != nil {
		slog.Warn("ログストアの状態確認に失敗しました", slog.String("error", err.Error()))
		resp.Store = "unavailable"
	} else {
		resp.Records = &count
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
