// Package dbutil wraps a SQLite handle with the retry envelope and
// prepared-statement lifecycle every store engine in this module needs:
// schema creation and other single statements (ExecRetry) and statement
// preparation (PrepareRetry) retry through a bounded backoff instead of
// failing on the first SQLITE_BUSY. Transactional batch execution
// (WithTx) runs once and is not retried.
package dbutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrMissingReadOnly is returned by Open when readOnly is true and path
// does not already exist, per the documented open-flags contract:
// read-write creates a missing file and its parent directories;
// read-only fails instead.
var ErrMissingReadOnly = errors.New("dbutil: read-only open requires an existing file")

// RetryAttempts and RetryDelayMs mirror the fixed 100-attempt, 250ms
// envelope the underlying engine uses for schema and DDL operations.
const (
	RetryAttempts = 100
	RetryDelayMs  = 250
)

// Handle wraps a *sql.DB opened against a single SQLite file, plus a
// logger gated by the store's use_log configuration flag.
type Handle struct {
	DB     *sql.DB
	path   string
	log    zerolog.Logger
	useLog bool
}

// Open opens a SQLite database file at path, applying the
// WAL journal mode, NORMAL synchronous mode and busy_timeout that keep a
// single-writer/many-reader embedded workload responsive.
//
// readOnly selects one of the two documented open modes: read-write
// creates the file and any missing parent directories, while read-only
// fails with ErrMissingReadOnly if the file does not already exist.
func Open(path string, readOnly bool, busyTimeoutMs int, log zerolog.Logger, useLog bool) (*Handle, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("dbutil: stat %s: %w", path, err)
		}
		if readOnly {
			return nil, fmt.Errorf("%w: %s", ErrMissingReadOnly, path)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("dbutil: create parent dir for %s: %w", path, err)
			}
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d", path, busyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("dbutil: open %s: %w", path, err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMs)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("dbutil: set busy_timeout: %w", err)
	}
	h := &Handle{DB: db, path: path, log: log, useLog: useLog}
	if useLog {
		h.log.Info().Str("path", path).Msg("database opened")
	}
	return h, nil
}

// Path returns the file path the handle was opened against.
func (h *Handle) Path() string {
	return h.path
}

// Close closes the underlying *sql.DB.
func (h *Handle) Close() error {
	return h.DB.Close()
}

func retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(RetryDelayMs*time.Millisecond), RetryAttempts)
	return backoff.WithContext(b, ctx)
}

// ExecRetry runs a DDL/schema statement, retrying on failure with the
// fixed 250ms x 100-attempt envelope the store engine uses for schema
// creation, deletes and single-row upserts. Most failures in this path are transient
// SQLITE_BUSY errors from a concurrent reader/writer.
func (h *Handle) ExecRetry(ctx context.Context, query string, args ...any) error {
	op := func() error {
		_, err := h.DB.ExecContext(ctx, query, args...)
		return err
	}
	if err := backoff.Retry(op, retryPolicy(ctx)); err != nil {
		return fmt.Errorf("dbutil: exec retry exhausted: %w", err)
	}
	return nil
}

// PrepareRetry prepares a statement, retrying with the same envelope
// as ExecRetry.
func (h *Handle) PrepareRetry(ctx context.Context, query string) (*sql.Stmt, error) {
	var stmt *sql.Stmt
	op := func() error {
		s, err := h.DB.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		stmt = s
		return nil
	}
	if err := backoff.Retry(op, retryPolicy(ctx)); err != nil {
		return nil, fmt.Errorf("dbutil: prepare retry exhausted: %w", err)
	}
	return stmt, nil
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back if fn returns an error or panics.
func (h *Handle) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbutil: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("dbutil: commit: %w", err)
	}
	return nil
}
