package model

// TimestampLayout はLogRecordのタイムスタンプ形式（YYYY-MM-DD HH:MM:SS）。
const TimestampLayout = "2006-01-02 15:04:05"

// LogRecord はcommandsテーブルの1行を表す。
// 1回のフェッチにつき1件作成され、更新・削除はしない。
type LogRecord struct {
	ID           int64  `db:"id" json:"id"`
	Timestamp    string `db:"timestamp" json:"timestamp"`
	HebrewTopic  string `db:"hebrew_topic" json:"hebrew_topic"`
	CalendarData string `db:"calendar_data" json:"calendar_data"`
}

// FetchResult はFetch-and-Logの結果を表す。
// 永続化に失敗した場合もTopicとCalendarは有効で、RecordはnilになりPersistErrが設定される。
type FetchResult struct {
	Topic      *TopicResult
	Calendar   *CalendarResult
	Record     *LogRecord
	PersistErr error
}
