package model

import (
	"errors"
	"fmt"
)

// ErrorKind はフェッチ処理で発生するエラーの種別を表す。
type ErrorKind int

const (
	// NetworkError はHTTPリクエストの失敗または2xx以外のステータス。
	NetworkError ErrorKind = iota + 1
	// ParseError はレスポンスボディが有効なJSONオブジェクトでない。
	ParseError
	// PersistenceError はログストアへの書き込み失敗。
	PersistenceError
)

// String はエラー種別の名前を返す。
func (k ErrorKind) String() string {
	switch k {
	case NetworkError:
		return "network"
	case ParseError:
		return "parse"
	case PersistenceError:
		return "persistence"
	default:
		return "unknown"
	}
}

// FetchError はFetch-and-Logの各段階で発生したエラー。
type FetchError struct {
	Kind       ErrorKind
	Endpoint   string // 対象URL（永続化エラーの場合は空）
	StatusCode int    // 2xx以外のステータスを受信した場合のみ設定
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s error: %s returned status %d", e.Kind, e.Endpoint, e.StatusCode)
	case e.Endpoint != "":
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

// Unwrap は元のエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewNetworkError はネットワークエラーを生成する。
func NewNetworkError(endpoint string, err error) *FetchError {
	return &FetchError{Kind: NetworkError, Endpoint: endpoint, Err: err}
}

// NewStatusError は2xx以外のステータスによるネットワークエラーを生成する。
func NewStatusError(endpoint string, statusCode int) *FetchError {
	return &FetchError{
		Kind:       NetworkError,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Err:        fmt.Errorf("unexpected status %d", statusCode),
	}
}

// NewParseError はパースエラーを生成する。
func NewParseError(endpoint string, err error) *FetchError {
	return &FetchError{Kind: ParseError, Endpoint: endpoint, Err: err}
}

// NewPersistenceError は永続化エラーを生成する。
func NewPersistenceError(err error) *FetchError {
	return &FetchError{Kind: PersistenceError, Err: err}
}

// KindOf はエラーチェーン中のFetchErrorの種別を返す。
// FetchErrorを含まない場合は0を返す。
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: upstream, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamInvalid     = "UPSTREAM_INVALID_RESPONSE"
	ErrCodeInvalidLimit        = "INVALID_LIMIT"
	ErrCodeHistoryUnavailable  = "HISTORY_UNAVAILABLE"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUpstreamUnavailableError は外部APIに到達できない場合のエラーを生成する。
func NewUpstreamUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  "学習データの取得に失敗しました。",
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamInvalidError は外部APIのレスポンスが解析できない場合のエラーを生成する。
func NewUpstreamInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamInvalid,
		Message:  "学習データの解析に失敗しました。",
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidLimitError は件数指定が無効な場合のエラーを生成する。
func NewInvalidLimitError(limit string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLimit,
		Message:  fmt.Sprintf("無効な件数です: %s", limit),
		Category: "validation",
		Action:   "limitには1から100までの整数を指定してください。",
	}
}

// NewHistoryUnavailableError は履歴の読み取りに失敗した場合のエラーを生成する。
func NewHistoryUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeHistoryUnavailable,
		Message:  "履歴を読み取れませんでした。",
		Category: "system",
		Action:   "データベースの設定を確認してください。",
	}
}

// NewRateLimitError はレート制限を超過した場合のエラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterで指定された秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
