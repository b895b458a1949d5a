// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// migrationsTable はマイグレーション履歴テーブル名。
const migrationsTable = "schema_migrations"

// NewMigrator は既存の接続を使うmigrateインスタンスを生成する。
// 返されたmigrateをCloseするとdbも閉じられる。
func NewMigrator(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, path.Join("migrations", string(dialect)))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	var driver migratedb.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{
			MigrationsTable: migrationsTable,
		})
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{
			MigrationsTable: migrationsTable,
		})
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// EnsureSchema はデータベースURLに接続し、commandsテーブルを含むスキーマを最新にする。
// すでに最新の場合は何もしない。dirty状態の場合は直前のバージョンに戻して再適用する。
// 接続はこの関数内で開いて閉じる。
func EnsureSchema(databaseURL string) (err error) {
	db, dialect, err := Open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m, err := NewMigrator(db.DB, dialect)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		prev, err := previousVersion(dialect, v)
		if err != nil {
			return fmt.Errorf("failed to find version before %d: %w", v, err)
		}
		if err := m.Force(prev); err != nil {
			return fmt.Errorf("failed to reset dirty version %d: %w", v, err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// previousVersion はマイグレーションソース上でvの直前のバージョンを返す。
// vが最初のマイグレーションの場合はNilVersionを返す。
func previousVersion(dialect Dialect, v uint) (int, error) {
	src, err := iofs.New(migrationsFS, path.Join("migrations", string(dialect)))
	if err != nil {
		return 0, fmt.Errorf("failed to create migration source: %w", err)
	}
	defer src.Close()

	prev, err := src.Prev(v)
	if errors.Is(err, fs.ErrNotExist) {
		return migratedb.NilVersion, nil
	}
	if err != nil {
		return 0, err
	}
	return int(prev), nil
}

// RunMigrations はすべてのマイグレーションを適用する。
func RunMigrations(databaseURL string) error {
	return EnsureSchema(databaseURL)
}
