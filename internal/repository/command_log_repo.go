package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/studytoday/internal/database"
	"github.com/hitoshi/studytoday/internal/model"
)

// SQLCommandLogRepo はSQLite/PostgreSQLを使用したフェッチログリポジトリ。
// 接続は呼び出しごとに開いて閉じ、接続を保持しない。
type SQLCommandLogRepo struct {
	databaseURL string

	// 同一プロセス内の書き込みを直列化する
	mu sync.Mutex
}

// NewSQLCommandLogRepo はSQLCommandLogRepoを生成する。
func NewSQLCommandLogRepo(databaseURL string) *SQLCommandLogRepo {
	return &SQLCommandLogRepo{databaseURL: databaseURL}
}

// Append はログレコードを追加し、採番されたIDをrecord.IDに設定する。
func (r *SQLCommandLogRepo) Append(ctx context.Context, record *model.LogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.open()
	if err != nil {
		return err
	}
	defer db.Close()

	query := db.Rebind(
		`INSERT INTO commands (timestamp, hebrew_topic, calendar_data)
		 VALUES (?, ?, ?)
		 RETURNING id`,
	)

	var id int64
	if err := db.QueryRowxContext(ctx, query,
		record.Timestamp, record.HebrewTopic, record.CalendarData,
	).Scan(&id); err != nil {
		return fmt.Errorf("ログレコードの追加に失敗しました: %w", err)
	}

	record.ID = id
	return nil
}

// List は新しい順に最大limit件のログレコードを取得する。
func (r *SQLCommandLogRepo) List(ctx context.Context, limit int) ([]model.LogRecord, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	records := []model.LogRecord{}
	if err := db.SelectContext(ctx, &records, db.Rebind(
		`SELECT id, timestamp, hebrew_topic, calendar_data
		 FROM commands
		 ORDER BY id DESC
		 LIMIT ?`,
	), limit); err != nil {
		return nil, fmt.Errorf("ログレコードの取得に失敗しました: %w", err)
	}

	return records, nil
}

// Count はログレコードの総数を返す。
func (r *SQLCommandLogRepo) Count(ctx context.Context) (int, error) {
	db, err := r.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM commands`); err != nil {
		return 0, fmt.Errorf("ログレコード数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// open はスキーマを最新にしてから新しい接続を開く。
func (r *SQLCommandLogRepo) open() (*sqlx.DB, error) {
	if err := database.EnsureSchema(r.databaseURL); err != nil {
		return nil, fmt.Errorf("ログストアの準備に失敗しました: %w", err)
	}

	db, _, err := database.Open(r.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ログストアへの接続に失敗しました: %w", err)
	}
	return db, nil
}
