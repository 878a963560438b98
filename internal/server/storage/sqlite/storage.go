package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	sqlitedrv "modernc.org/sqlite" // SQLite driver
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage represents SQLite storage implementation
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Option настраивает Storage
type Option func(*Storage)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// New creates a new SQLite storage instance
// dbPath is the path to the SQLite database file
// Use ":memory:" for in-memory database (useful for testing)
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Один писатель: транзакции проверки версий сериализуются на уровне пула
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Storage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// dsn добавляет к пути файла режим BEGIN IMMEDIATE,
// чтобы транзакция сразу брала блокировку записи
func dsn(dbPath string) string {
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:") {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_txlock=immediate"
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping проверяет доступность БД
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SchemaVersion возвращает номер последней примененной миграции
func (s *Storage) SchemaVersion(ctx context.Context) (int64, error) {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	v, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}

// runMigrations выполняет миграции из embedded FS
func (s *Storage) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sql.DB {
	return s.db
}

// isUniqueViolation проверяет нарушение UNIQUE/PRIMARY KEY
func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixMilli(t time.Time) int64 {
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullUnixMilli(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnixMilli(v.Int64)
	return &t
}
