// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/valyala/fastjson"
)

// UnknownHebrewTopic はトピックのヘブライ語タイトルが取得できない場合のラベル。
const UnknownHebrewTopic = "Unknown"

// BilingualText はヘブライ語と英語の対訳テキストを表す。
type BilingualText struct {
	He string
	En string
}

// TopicResult はトピックエンドポイントのレスポンスを表す。
// Rawは受信したJSONそのもので、表示用フィールドはRawから抽出した値。
type TopicResult struct {
	Raw json.RawMessage

	Title       BilingualText // topic.primaryTitle
	Ref         string
	URL         string
	HebrewTopic string // topic.primaryTitle.he、存在しない場合は "Unknown"
}

// MarshalJSON は受信したJSONをそのまま出力する。
func (t *TopicResult) MarshalJSON() ([]byte, error) {
	if len(t.Raw) == 0 {
		return []byte("null"), nil
	}
	return t.Raw, nil
}

// CalendarItem は学習カレンダーの1項目を表す。
type CalendarItem struct {
	Title         BilingualText
	DisplayValue  BilingualText
	HeRef         string
	Ref           string
	DescriptionHe string // description.he（任意項目）
	URL           string
}

// CalendarResult はカレンダーエンドポイントのレスポンスを表す。
type CalendarResult struct {
	Raw json.RawMessage

	Date     string
	Timezone string
	Items    []CalendarItem
}

// MarshalJSON は受信したJSONをそのまま出力する。
func (c *CalendarResult) MarshalJSON() ([]byte, error) {
	if len(c.Raw) == 0 {
		return []byte("null"), nil
	}
	return c.Raw, nil
}

// IndentedJSON はRawを4スペースでインデントした文字列を返す。
// 文字列中の\uXXXXエスケープはデコードし、非ASCII文字とHTML特殊文字をそのまま出力する。
// キーの順序は受信したJSONと同じ。
func IndentedJSON(raw json.RawMessage) (string, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		return "", fmt.Errorf("JSONの整形に失敗しました: %w", err)
	}

	var compact bytes.Buffer
	if err := writeLiteral(&compact, v); err != nil {
		return "", fmt.Errorf("JSONの整形に失敗しました: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, compact.Bytes(), "", "    "); err != nil {
		return "", fmt.Errorf("JSONの整形に失敗しました: %w", err)
	}
	return buf.String(), nil
}

// writeLiteral はvをコンパクトなJSONとして書き出す。
// 文字列は必要最小限のエスケープのみ行う。
func writeLiteral(buf *bytes.Buffer, v *fastjson.Value) error {
	switch v.Type() {
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		first := true
		o.Visit(func(key []byte, fv *fastjson.Value) {
			if err != nil {
				return
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err = writeString(buf, string(key)); err != nil {
				return
			}
			buf.WriteByte(':')
			err = writeLiteral(buf, fv)
		})
		if err != nil {
			return err
		}
		buf.WriteByte('}')
	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return err
		}
		buf.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeLiteral(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case fastjson.TypeString:
		b, err := v.StringBytes()
		if err != nil {
			return err
		}
		return writeString(buf, string(b))
	default:
		buf.Write(v.MarshalTo(nil))
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// ParseTopic はトピックエンドポイントのレスポンスボディをパースする。
// ボディがJSONオブジェクトでない場合はエラーを返す。
func ParseTopic(body []byte) (*TopicResult, error) {
	v, err := parseObject(body)
	if err != nil {
		return nil, err
	}

	t := &TopicResult{
		Raw:   cloneBytes(body),
		Title: bilingualAt(v, "topic", "primaryTitle"),
		Ref:   stringOrEmpty(v, "ref"),
		URL:   stringOrEmpty(v, "url"),
	}

	t.HebrewTopic = UnknownHebrewTopic
	if he, ok := stringAt(v, "topic", "primaryTitle", "he"); ok {
		t.HebrewTopic = he
	}

	return t, nil
}

// ParseCalendar はカレンダーエンドポイントのレスポンスボディをパースする。
// ボディがJSONオブジェクトでない場合はエラーを返す。
func ParseCalendar(body []byte) (*CalendarResult, error) {
	v, err := parseObject(body)
	if err != nil {
		return nil, err
	}

	c := &CalendarResult{
		Raw:      cloneBytes(body),
		Date:     stringOrEmpty(v, "date"),
		Timezone: stringOrEmpty(v, "timezone"),
	}

	for _, iv := range v.GetArray("calendar_items") {
		if iv.Type() != fastjson.TypeObject {
			continue
		}
		c.Items = append(c.Items, CalendarItem{
			Title:         bilingualAt(iv, "title"),
			DisplayValue:  bilingualAt(iv, "displayValue"),
			HeRef:         stringOrEmpty(iv, "heRef"),
			Ref:           stringOrEmpty(iv, "ref"),
			DescriptionHe: stringOrEmpty(iv, "description", "he"),
			URL:           stringOrEmpty(iv, "url"),
		})
	}

	return c, nil
}

// parseObject はbodyをJSONオブジェクトとしてパースする。
// NaNやInfなどJSONとして不正な数値はエラーにする。
func parseObject(body []byte) (*fastjson.Value, error) {
	if !json.Valid(body) {
		return nil, errors.New("不正なJSONです")
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("JSONのパースに失敗しました: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("JSONオブジェクトではありません: %s", v.Type())
	}
	return v, nil
}

// stringAt は指定パスの文字列値を返す。値が存在しないか文字列でない場合はfalseを返す。
func stringAt(v *fastjson.Value, keys ...string) (string, bool) {
	f := v.Get(keys...)
	if f == nil || f.Type() != fastjson.TypeString {
		return "", false
	}
	b, err := f.StringBytes()
	if err != nil {
		return "", false
	}
	return string(b), true
}

func stringOrEmpty(v *fastjson.Value, keys ...string) string {
	s, _ := stringAt(v, keys...)
	return s
}

func bilingualAt(v *fastjson.Value, keys ...string) BilingualText {
	obj := v.Get(keys...)
	if obj == nil {
		return BilingualText{}
	}
	return BilingualText{
		He: stringOrEmpty(obj, "he"),
		En: stringOrEmpty(obj, "en"),
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
