package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizer はカレンダー項目の説明文に含まれるHTMLをサニタイズする。
// 説明文はSefaria APIから受け取った外部データのため、ページに埋め込む前に必ず通す。
type DescriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, b, i, strong, em, small, a
//   - aタグ: httpsのhrefのみ許可し、target="_blank" と rel="noopener noreferrer" を付与
//   - script, style, iframe および on*イベント属性は除去
func NewDescriptionSanitizer() *DescriptionSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements("p", "br", "b", "i", "strong", "em", "small")

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("https")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &DescriptionSanitizer{policy: p}
}

// Sanitize は説明文のHTMLをサニタイズして返す。空文字列には空文字列を返す。
func (s *DescriptionSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}
