// Package console はターミナル向けのフロントエンドを提供する。
// 取得結果をラベル付きで表示し、表示したテキストをそのままファイルに保存する。
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/hitoshi/studytoday/internal/model"
)

const (
	// Label は結果表示の見出し。
	Label = "Study This today"

	// DefaultExtension は保存先にファイル拡張子が無い場合に付与する拡張子。
	DefaultExtension = ".json"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// BuildText は取得結果から表示テキストを組み立てる。
// 形式: "Hebrew Topic Data:\n<JSON>\n\nCalendar Data:\n<JSON>"（JSONは4スペースインデント）
func BuildText(result *model.FetchResult) (string, error) {
	topic, err := model.IndentedJSON(result.Topic.Raw)
	if err != nil {
		return "", fmt.Errorf("トピックの整形に失敗しました: %w", err)
	}
	calendar, err := model.IndentedJSON(result.Calendar.Raw)
	if err != nil {
		return "", fmt.Errorf("カレンダーの整形に失敗しました: %w", err)
	}
	return "Hebrew Topic Data:\n" + topic + "\n\nCalendar Data:\n" + calendar, nil
}

// Printer は結果とメッセージをターミナルに出力する。
// 出力先が端末の場合のみlipglossで装飾する。
type Printer struct {
	out    io.Writer
	errOut io.Writer
	styled bool
}

// NewPrinter はPrinterを生成する。
func NewPrinter(out, errOut io.Writer) *Printer {
	return &Printer{
		out:    out,
		errOut: errOut,
		styled: isTerminal(out),
	}
}

// PrintResult は見出しと表示テキストを出力する。
func (p *Printer) PrintResult(text string) {
	fmt.Fprintln(p.out, p.style(labelStyle, Label))
	fmt.Fprintln(p.out, strings.Repeat("─", runewidth.StringWidth(Label)))
	fmt.Fprintln(p.out, text)
}

// PrintWarning は処理を継続できる問題を警告として出力する。
func (p *Printer) PrintWarning(msg string) {
	fmt.Fprintln(p.errOut, p.style(warningStyle, "Warning: "+msg))
}

// PrintError はエラーを出力する。
func (p *Printer) PrintError(err error) {
	fmt.Fprintln(p.errOut, p.style(errorStyle, "Error: "+err.Error()))
}

// PrintSaved は保存完了を出力する。
func (p *Printer) PrintSaved(path string) {
	fmt.Fprintf(p.out, "Saved results to %s\n", path)
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// SaveText は表示テキストをそのままファイルに書き込み、書き込んだパスを返す。
// pathに拡張子が無い場合は.jsonを付与する。
func SaveText(path, text string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("保存先のパスが空です")
	}
	if filepath.Ext(path) == "" {
		path += DefaultExtension
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("ファイルの保存に失敗しました: %w", err)
	}
	return path, nil
}

// isTerminal はwが端末に接続されたファイルかを判定する。
func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
