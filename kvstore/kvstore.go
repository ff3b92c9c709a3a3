// Package kvstore implements a generic, fully synchronous key-value
// table: no staging queue or background timer, unlike tradestore —
// every call hits the relational handle directly, matching the
// original int-key-blob-value-database's design.
package kvstore

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
var ErrReadOnly = errors.New("kvstore: store is read-only")

// Key is the set of key types the store supports: int64 keys (for a
// blob-valued table) or string keys (for a string-valued table).
type Key interface {
	~int64 | ~string
}

// Pair is a single key/value record.
type Pair[K Key, V any] struct {
	Key   K
	Value V
}

// Store[K, V] is a generic (key, value) table with replace semantics
// on the primary key.
type Store[K Key, V any] struct {
	handle    *dbutil.Handle
	table     string
	encode    func(V) (any, error)
	decode    func(any) (V, error)
	columnDDL string
	readOnly  bool
}

// Codec describes how to marshal/unmarshal the value type into a
// column the driver can bind directly (blob, text, int, ...).
type Codec[V any] struct {
	ColumnDDL string
	Encode    func(V) (any, error)
	Decode    func(any) (V, error)
}

// BytesCodec stores a []byte value as a BLOB column, unmodified.
func BytesCodec() Codec[[]byte] {
	return Codec[[]byte]{
		ColumnDDL: "BLOB",
		Encode:    func(v []byte) (any, error) { return v, nil },
		Decode: func(a any) ([]byte, error) {
			b, ok := a.([]byte)
			if !ok {
				return nil, fmt.Errorf("kvstore: expected []byte, got %T", a)
			}
			return b, nil
		},
	}
}

// StringCodec stores a string value as a TEXT column, unmodified.
func StringCodec() Codec[string] {
	return Codec[string]{
		ColumnDDL: "TEXT",
		Encode:    func(v string) (any, error) { return v, nil },
		Decode: func(a any) (string, error) {
			s, ok := a.(string)
			if !ok {
				return "", fmt.Errorf("kvstore: expected string, got %T", a)
			}
			return s, nil
		},
	}
}

func keyColumnDDL[K Key]() string {
	var zero K
	switch any(zero).(type) {
	case int64:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// Open creates or opens a key-value table named table in the database
// at path. readOnly selects the documented open mode: read-write
// creates a missing file and its parent directories, while read-only
// fails if the file does not already exist and rejects every mutating
// method afterward.
func Open[K Key, V any](ctx context.Context, path, table string, readOnly bool, busyTimeoutMs int, codec Codec[V], log zerolog.Logger, useLog bool) (*Store[K, V], error) {
	h, err := dbutil.Open(path, readOnly, busyTimeoutMs, log, useLog)
	if err != nil {
		return nil, err
	}
	s := &Store[K, V]{
		handle:    h,
		table:     table,
		encode:    codec.Encode,
		decode:    codec.Decode,
		columnDDL: codec.ColumnDDL,
		readOnly:  readOnly,
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (key %s PRIMARY KEY, value %s)`,
		table, keyColumnDDL[K](), s.columnDDL)
	if err := h.ExecRetry(ctx, ddl); err != nil {
		_ = h.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying handle.
func (s *Store[K, V]) Close() error { return s.handle.Close() }

// Set upserts a single (key, value) pair.
func (s *Store[K, V]) Set(ctx context.Context, key K, value V) error {
	if s.readOnly {
		return ErrReadOnly
	}
	enc, err := s.encode(value)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (key, value) VALUES (?, ?)`, s.table)
	return s.handle.ExecRetry(ctx, query, key, enc)
}

// SetPairs upserts a batch of pairs inside a single transaction.
func (s *Store[K, V]) SetPairs(ctx context.Context, pairs []Pair[K, V]) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.handle.WithTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (key, value) VALUES (?, ?)`, s.table)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, p := range pairs {
			enc, err := s.encode(p.Value)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, p.Key, enc); err != nil {
				return fmt.Errorf("kvstore: set pair key=%v: %w", p.Key, err)
			}
		}
		return nil
	})
}

// Get returns the value for key, and false if it is unset.
func (s *Store[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	var raw any
	query := fmt.Sprintf(`SELECT value FROM "%s" WHERE key = ?`, s.table)
	err := s.handle.DB.QueryRowContext(ctx, query, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("kvstore: get key=%v: %w", key, err)
	}
	v, err := s.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// GetAll returns every value in the table, in no particular order.
func (s *Store[K, V]) GetAll(ctx context.Context) ([]V, error) {
	rows, err := s.handle.DB.QueryContext(ctx, fmt.Sprintf(`SELECT value FROM "%s"`, s.table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []V
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := s.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetAllPairs returns the full (key, value) table as a map.
func (s *Store[K, V]) GetAllPairs(ctx context.Context) (map[K]V, error) {
	rows, err := s.handle.DB.QueryContext(ctx, fmt.Sprintf(`SELECT key, value FROM "%s"`, s.table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[K]V)
	for rows.Next() {
		var key K
		var raw any
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		v, err := s.decode(raw)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, rows.Err()
}

// Remove deletes a single key.
func (s *Store[K, V]) Remove(ctx context.Context, key K) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.handle.ExecRetry(ctx, fmt.Sprintf(`DELETE FROM "%s" WHERE key = ?`, s.table), key)
}

// RemoveAll truncates the table.
func (s *Store[K, V]) RemoveAll(ctx context.Context) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.handle.ExecRetry(ctx, fmt.Sprintf(`DELETE FROM "%s"`, s.table))
}

// Backup streams a consistent copy of the store to destPath.
func (s *Store[K, V]) Backup(ctx context.Context, destPath string) error {
	return s.handle.Backup(ctx, destPath)
}
