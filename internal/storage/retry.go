package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts число попыток транзакции при конфликтах по умолчанию
const DefaultMaxAttempts = 5

// Transact выполняет fn в транзакции и повторяет ее целиком при ErrConflict.
func Transact(ctx context.Context, s Store, maxAttempts int, fn TxFunc) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.RunInTx(ctx, fn)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		// Небольшая пауза, растущая с номером попытки
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
		}
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", maxAttempts, err)
}
