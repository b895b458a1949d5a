package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect はログストアのSQL方言を表す。
type Dialect string

const (
	// DialectSQLite はローカルファイルのSQLite。
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres はPostgreSQL。
	DialectPostgres Dialect = "postgres"
)

// sqliteBusyTimeoutMs はSQLiteのロック待ち時間（ミリ秒）。
const sqliteBusyTimeoutMs = 5000

func init() {
	// modernc.org/sqliteのドライバ名はsqlxの既定の対応表に含まれない
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

// ParseDatabaseURL はデータベースURLから方言とドライバ用DSNを求める。
// postgres:// または postgresql:// で始まる場合はPostgreSQL、それ以外はSQLiteのファイルパスとして扱う。
func ParseDatabaseURL(databaseURL string) (Dialect, string, error) {
	if databaseURL == "" {
		return "", "", fmt.Errorf("empty database URL")
	}

	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return DialectPostgres, databaseURL, nil
	}

	path := strings.TrimPrefix(databaseURL, "sqlite://")
	path = strings.TrimPrefix(path, "file:")
	if path == "" {
		return "", "", fmt.Errorf("empty sqlite path in database URL: %s", databaseURL)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := fmt.Sprintf("file:%s%s_pragma=busy_timeout(%d)", path, sep, sqliteBusyTimeoutMs)
	return DialectSQLite, dsn, nil
}

// Open はデータベースURLに応じたドライバでデータベース接続を開く。
// sqlx.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*sqlx.DB, Dialect, error) {
	dialect, dsn, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, "", err
	}

	db, err := sqlx.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	return db, dialect, nil
}
