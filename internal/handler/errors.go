package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/studytoday/internal/middleware"
	"github.com/hitoshi/studytoday/internal/model"
)

// mapFetchErrorToHTTPStatus はFetch-and-Logのエラー種別をHTTPステータスとAPIErrorに変換する。
//
//	NetworkError → 502 UPSTREAM_UNAVAILABLE
//	ParseError   → 502 UPSTREAM_INVALID_RESPONSE
//	それ以外     → 500 INTERNAL_ERROR
func mapFetchErrorToHTTPStatus(err error) (int, *model.APIError) {
	switch model.KindOf(err) {
	case model.NetworkError:
		return http.StatusBadGateway, model.NewUpstreamUnavailableError()
	case model.ParseError:
		return http.StatusBadGateway, model.NewUpstreamInvalidError()
	default:
		return http.StatusInternalServerError, model.NewInternalError()
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
// debugが有効な場合はerrの内容をdetailとして含める。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError, err error, debug bool) {
	detail := ""
	if debug && err != nil {
		detail = err.Error()
	}
	middleware.WriteDetailedErrorResponse(w, statusCode, apiErr, detail)
}

// handleFetchError はFetchのエラーをログに記録し、JSONのエラーレスポンスを返す。
func handleFetchError(w http.ResponseWriter, r *http.Request, err error, debug bool) {
	statusCode, apiErr := mapFetchErrorToHTTPStatus(err)
	logFetchError(r, err, apiErr)
	writeAPIErrorResponse(w, statusCode, apiErr, err, debug)
}

func logFetchError(r *http.Request, err error, apiErr *model.APIError) {
	slog.Error("学習データの取得に失敗しました",
		slog.String("path", r.URL.Path),
		slog.String("code", apiErr.Code),
		slog.String("kind", model.KindOf(err).String()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)
}
