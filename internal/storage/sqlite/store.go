// Package sqlite встроенное хранилище на SQLite (sqlx поверх modernc.org/sqlite).
package sqlite

import (
	"context"
	"fmt"

	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tests (
    id                TEXT PRIMARY KEY,
    name              TEXT    NOT NULL,
    group_id          TEXT    NOT NULL,
    time_limit        INTEGER NOT NULL,
    question_count    INTEGER NOT NULL DEFAULT 0,
    date_time         TEXT    NOT NULL,
    test_maker        TEXT    NOT NULL,
    status            TEXT    NOT NULL DEFAULT 'draft',
    anti_cheat_config TEXT,
    created_at        TEXT    NOT NULL,
    completed_at      TEXT,
    version           INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS questions (
    seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
    id                   TEXT    NOT NULL UNIQUE,
    test_id              TEXT    NOT NULL,
    text                 TEXT    NOT NULL,
    options              TEXT    NOT NULL DEFAULT '[]',
    correct_option_index INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT    NOT NULL,
    updated_at           TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS questions_test_id_idx ON questions (test_id, seq);

CREATE TABLE IF NOT EXISTS test_sessions (
    id          TEXT PRIMARY KEY,
    test_id     TEXT NOT NULL,
    student_id  TEXT NOT NULL,
    status      TEXT NOT NULL,
    final_score REAL,
    answers     TEXT,
    start_time  TEXT NOT NULL,
    end_time    TEXT
);

CREATE INDEX IF NOT EXISTS test_sessions_test_id_idx ON test_sessions (test_id);
`

// Store реализация storage.Store поверх SQLite
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// Open открывает базу по пути и создает схему
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает соединение для вспомогательных операций
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// RunInTx выполняет fn в транзакции
func (s *Store) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &sqliteTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close закрывает соединение
func (s *Store) Close() error {
	return s.db.Close()
}
