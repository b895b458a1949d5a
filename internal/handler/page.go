package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/hitoshi/studytoday/internal/middleware"
	"github.com/hitoshi/studytoday/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// DescriptionSanitizer はカレンダー項目の説明文HTMLをサニタイズする。
type DescriptionSanitizer interface {
	Sanitize(rawHTML string) string
}

// PageRenderer は学習データのHTMLページを描画する。
type PageRenderer struct {
	tmpl        *template.Template
	sanitizer   DescriptionSanitizer
	siteBaseURL string
}

// NewPageRenderer はPageRendererを生成する。
// siteBaseURLはトピックとカレンダー項目のリンク先の接頭辞として使う。
func NewPageRenderer(sanitizer DescriptionSanitizer, siteBaseURL string) (*PageRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(siteBaseURL, "/") {
		siteBaseURL += "/"
	}
	return &PageRenderer{
		tmpl:        tmpl,
		sanitizer:   sanitizer,
		siteBaseURL: siteBaseURL,
	}, nil
}

// --- テンプレート用ビューモデル ---

type topicView struct {
	Ref     string
	TitleHe string
	TitleEn string
	URL     string
	Link    string
}

type calendarItemView struct {
	TitleHe     string
	TitleEn     string
	DisplayHe   string
	DisplayEn   string
	HeRef       string
	Ref         string
	Description template.HTML // サニタイズ済み
	URL         string
	Link        string
}

type calendarView struct {
	Date     string
	Timezone string
	Items    []calendarItemView
}

type errorView struct {
	Code    string
	Message string
	Action  string
	Detail  string
}

type pageData struct {
	Topic          *topicView
	Calendar       *calendarView
	PersistWarning bool
	Error          *errorView
}

// Render は取得結果をHTMLページとして書き込む。
func (p *PageRenderer) Render(w http.ResponseWriter, result *model.FetchResult) {
	data := pageData{
		Topic:          p.topicView(result.Topic),
		Calendar:       p.calendarView(result.Calendar),
		PersistWarning: result.PersistErr != nil,
	}
	p.write(w, http.StatusOK, data)
}

// RenderError はエラーカードのみのHTMLページを書き込む。
// debugが有効な場合はerrの内容を詳細として表示する。
func (p *PageRenderer) RenderError(w http.ResponseWriter, statusCode int, apiErr *model.APIError, err error, debug bool) {
	view := &errorView{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Action:  apiErr.Action,
	}
	if debug && err != nil {
		view.Detail = err.Error()
	}
	p.write(w, statusCode, pageData{Error: view})
}

// write はテンプレートをバッファに描画してから書き込む。
// 描画に失敗した場合は途中までのHTMLを返さず、統一エラーを返す。
func (p *PageRenderer) write(w http.ResponseWriter, statusCode int, data pageData) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		slog.Error("ページの描画に失敗しました", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}

func (p *PageRenderer) topicView(topic *model.TopicResult) *topicView {
	if topic == nil {
		return nil
	}
	return &topicView{
		Ref:     topic.Ref,
		TitleHe: topic.Title.He,
		TitleEn: topic.Title.En,
		URL:     topic.URL,
		Link:    p.siteBaseURL + topic.URL,
	}
}

func (p *PageRenderer) calendarView(calendar *model.CalendarResult) *calendarView {
	if calendar == nil {
		return nil
	}
	return &calendarView{
		Date:     calendar.Date,
		Timezone: calendar.Timezone,
		Items: lo.Map(calendar.Items, func(item model.CalendarItem, _ int) calendarItemView {
			return calendarItemView{
				TitleHe:     item.Title.He,
				TitleEn:     item.Title.En,
				DisplayHe:   item.DisplayValue.He,
				DisplayEn:   item.DisplayValue.En,
				HeRef:       item.HeRef,
				Ref:         item.Ref,
				Description: template.HTML(p.sanitizer.Sanitize(item.DescriptionHe)),
				URL:         item.URL,
				Link:        p.siteBaseURL + item.URL,
			}
		}),
	}
}
