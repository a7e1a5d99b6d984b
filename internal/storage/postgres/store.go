// Package postgres хранилище на PostgreSQL (pgxpool).
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Store реализация storage.Store поверх пула соединений
type Store struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// NewStore создает новый экземпляр Store
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Migrate создает недостающие таблицы
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RunInTx выполняет fn в транзакции READ COMMITTED.
// Ошибки сериализации и взаимоблокировки возвращаются как storage.ErrConflict.
func (s *Store) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return conflictOr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return conflictOr(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Close закрывает пул соединений
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// conflictOr превращает ошибки конкурентного доступа в storage.ErrConflict
func conflictOr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.Message)
		}
	}
	return err
}
