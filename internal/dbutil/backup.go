package dbutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Backup streams the live database to destPath using SQLite's online
// backup API, stepping a bounded number of pages at a time so a large
// database does not hold the source connection locked for the whole
// copy. Only one backup may run against a handle at a time; callers
// serialize this with the is-backup-in-progress guard in the store
// engine (see internal/engine).
func (h *Handle) Backup(ctx context.Context, destPath string) error {
	destDB, err := sql.Open("sqlite3", destPath)
	if err != nil {
		return fmt.Errorf("dbutil: open backup destination: %w", err)
	}
	defer func() { _ = destDB.Close() }()

	srcConn, err := h.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("dbutil: acquire source conn: %w", err)
	}
	defer func() { _ = srcConn.Close() }()

	destConn, err := destDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("dbutil: acquire dest conn: %w", err)
	}
	defer func() { _ = destConn.Close() }()

	var backupErr error
	rawErr := destConn.Raw(func(destDriverConn any) error {
		return srcConn.Raw(func(srcDriverConn any) error {
			destSQLite, ok := destDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("dbutil: dest conn is not a sqlite3 connection")
			}
			srcSQLite, ok := srcDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("dbutil: source conn is not a sqlite3 connection")
			}
			backup, err := destSQLite.Backup("main", srcSQLite, "main")
			if err != nil {
				return fmt.Errorf("dbutil: init backup: %w", err)
			}
			defer func() { _ = backup.Close() }()

			for {
				done, stepErr := backup.Step(256)
				if stepErr != nil {
					backupErr = fmt.Errorf("dbutil: backup step: %w", stepErr)
					return nil
				}
				if done {
					return nil
				}
				select {
				case <-ctx.Done():
					backupErr = ctx.Err()
					return nil
				default:
				}
			}
		})
	})
	if rawErr != nil {
		return rawErr
	}
	return backupErr
}
