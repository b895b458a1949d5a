// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/studytoday/internal/model"
)

// CommandLogRepository はフェッチログ（commandsテーブル）の永続化インターフェース。
// 追記専用で、更新・削除は提供しない。
type CommandLogRepository interface {
	// Append はログレコードを追加し、採番されたIDをrecord.IDに設定する。
	// テーブルが存在しない場合は作成する。
	Append(ctx context.Context, record *model.LogRecord) error

	// List は新しい順に最大limit件のログレコードを取得する。
	List(ctx context.Context, limit int) ([]model.LogRecord, error)

	// Count はログレコードの総数を返す。
	Count(ctx context.Context) (int, error)
}
