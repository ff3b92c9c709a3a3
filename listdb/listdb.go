// Package listdb implements the auto-incrementing-key list store: a
// (int64 key, string value) table where a zero key on insert means
// "assign the next key", mirroring the original ListDatabase's
// set_value/set_item/set_items semantics.
package listdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/NewYaroslav/tradedb-go/internal/dbutil"
)

// ErrReadOnly is returned by every mutating method when the store was
// opened with readOnly set.
var ErrReadOnly = errors.New("listdb: store is read-only")

// Item is a single list record; Key is auto-assigned by SetItem/SetItems
// when zero.
type Item struct {
	Key   int64
	Value string
}

// Store is the list store: a single-column-value table with an
// auto-incrementing int64 key.
type Store struct {
	handle   *dbutil.Handle
	table    string
	readOnly bool
}

// Open creates or opens the named list table in the database at path.
// readOnly selects the documented open mode: read-write creates a
// missing file and its parent directories, while read-only fails if
// the file does not already exist and rejects every mutating method
// afterward.
func Open(ctx context.Context, path, table string, readOnly bool, busyTimeoutMs int, log zerolog.Logger, useLog bool) (*Store, error) {
	h, err := dbutil.Open(path, readOnly, busyTimeoutMs, log, useLog)
	if err != nil {
		return nil, err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (key INTEGER PRIMARY KEY AUTOINCREMENT, value TEXT NOT NULL)`, table)
	if err := h.ExecRetry(ctx, ddl); err != nil {
		_ = h.Close()
		return nil, err
	}
	return &Store{handle: h, table: table, readOnly: readOnly}, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error { return s.handle.Close() }

// SetValue appends value with an auto-assigned key and returns it.
func (s *Store) SetValue(ctx context.Context, value string) (int64, error) {
	if s.readOnly {
		return 0, ErrReadOnly
	}
	res, err := s.handle.DB.ExecContext(ctx, fmt.Sprintf(`INSERT INTO "%s" (value) VALUES (?)`, s.table), value)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SetItem inserts or replaces item. If item.Key is zero, a key is
// auto-assigned and written back into item before returning, matching
// the original's set_item(Item&) out-parameter behavior.
func (s *Store) SetItem(ctx context.Context, item *Item) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if item.Key == 0 {
		id, err := s.SetValue(ctx, item.Value)
		if err != nil {
			return err
		}
		item.Key = id
		return nil
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (key, value) VALUES (?, ?)`, s.table)
	return s.handle.ExecRetry(ctx, query, item.Key, item.Value)
}

// SetItems inserts or replaces a batch of items inside one transaction.
// Items with a zero key are auto-assigned, in order, within the batch.
func (s *Store) SetItems(ctx context.Context, items []Item) ([]Item, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	out := make([]Item, len(items))
	err := s.handle.WithTx(ctx, func(tx *sql.Tx) error {
		insertQuery := fmt.Sprintf(`INSERT INTO "%s" (value) VALUES (?)`, s.table)
		replaceQuery := fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (key, value) VALUES (?, ?)`, s.table)
		for i, item := range items {
			if item.Key == 0 {
				res, err := tx.ExecContext(ctx, insertQuery, item.Value)
				if err != nil {
					return fmt.Errorf("listdb: insert value at index %d: %w", i, err)
				}
				id, err := res.LastInsertId()
				if err != nil {
					return err
				}
				item.Key = id
			} else if _, err := tx.ExecContext(ctx, replaceQuery, item.Key, item.Value); err != nil {
				return fmt.Errorf("listdb: replace key=%d: %w", item.Key, err)
			}
			out[i] = item
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetAllItems returns every item, ordered by key.
func (s *Store) GetAllItems(ctx context.Context) ([]Item, error) {
	rows, err := s.handle.DB.QueryContext(ctx, fmt.Sprintf(`SELECT key, value FROM "%s" ORDER BY key`, s.table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Value); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetAllValues returns every value, ordered by key.
func (s *Store) GetAllValues(ctx context.Context) ([]string, error) {
	items, err := s.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Value
	}
	return out, nil
}

// GetMapAllItems returns every item as a key->value map.
func (s *Store) GetMapAllItems(ctx context.Context) (map[int64]string, error) {
	items, err := s.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(items))
	for _, it := range items {
		out[it.Key] = it.Value
	}
	return out, nil
}

// SetMapItems upserts every entry of m, keyed by its map key.
func (s *Store) SetMapItems(ctx context.Context, m map[int64]string) error {
	items := make([]Item, 0, len(m))
	for k, v := range m {
		items = append(items, Item{Key: k, Value: v})
	}
	_, err := s.SetItems(ctx, items)
	return err
}

// RemoveValue deletes a single item by key.
func (s *Store) RemoveValue(ctx context.Context, key int64) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.handle.ExecRetry(ctx, fmt.Sprintf(`DELETE FROM "%s" WHERE key = ?`, s.table), key)
}

// RemoveAll truncates the list table.
func (s *Store) RemoveAll(ctx context.Context) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.handle.ExecRetry(ctx, fmt.Sprintf(`DELETE FROM "%s"`, s.table))
}
