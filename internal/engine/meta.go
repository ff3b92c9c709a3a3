package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetMeta reads a single meta-data value by key. It returns "" and no
// error when the key is unset.
func (e *Engine[T]) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	query := fmt.Sprintf(`SELECT value FROM "%s" WHERE key = ?`, metaTableName)
	err := e.Handle.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("engine: get meta %q: %w", key, err)
	}
	return value, nil
}

// SetMeta upserts a single meta-data value on its own connection. It
// must not be called from inside a FlushFunc — the flush transaction
// holds the database's one write lock, and a second connection
// writing here would block on it until the flush itself returns,
// deadlocking. Use SetMetaTx from within a FlushFunc instead.
func (e *Engine[T]) SetMeta(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (key, value) VALUES (?, ?)`, metaTableName)
	return e.Handle.ExecRetry(ctx, query, key, value)
}

// SetMetaTx upserts a single meta-data value using the same
// transaction a FlushFunc was handed, so a store's flush batch and its
// meta-data update (e.g. tradestore's "bet-id" high-water mark) commit
// or roll back together.
func (e *Engine[T]) SetMetaTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (key, value) VALUES (?, ?)`, metaTableName)
	_, err := tx.ExecContext(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("engine: set meta tx %q: %w", key, err)
	}
	return nil
}
