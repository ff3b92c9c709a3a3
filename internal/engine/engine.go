// Package engine implements the generic store-engine machinery shared
// by every typed store in this module: a staging queue fed by callers,
// a background timer that evaluates the flush predicate every tick,
// and a meta-data key/value table used for schema version, last-update
// timestamp, and store-specific counters such as the trade UID high
// water mark.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NewYaroslav/tradedb-go/dbconfig"
	"github.com/NewYaroslav/tradedb-go/internal/asynctasks"
	"github.com/NewYaroslav/tradedb-go/internal/dbutil"
	"github.com/NewYaroslav/tradedb-go/internal/queue"
	"github.com/NewYaroslav/tradedb-go/internal/ztimer"
)

// tickInterval is how often the background timer evaluates the flush
// predicate against the staging queue.
const tickInterval = 10 * time.Millisecond

// metaTableName is the meta-data key/value table every store engine
// creates alongside its primary data table.
const metaTableName = "meta-data"

// FlushFunc performs the actual transactional write of a drained batch.
type FlushFunc[T any] func(ctx context.Context, tx *sql.Tx, batch []T) error

// Engine is the generic store engine: it owns the SQLite handle, the
// staging queue, and the background timer that applies the flush
// predicate from the data model (queue length over threshold, or
// queue non-empty and either explicitly requested or idle past
// idle_time).
type Engine[T any] struct {
	Handle *dbutil.Handle
	cfg    dbconfig.Config
	log    zerolog.Logger

	queue   *queue.Queue[T]
	timer   *ztimer.Timer
	runner  *asynctasks.Runner
	flushFn FlushFunc[T]

	mu              sync.Mutex
	lastActivity    time.Time
	lastMetaRefresh time.Time
	flushRequested  bool
	flushing        atomic.Bool

	// lastUpdateDate caches the "update-date" meta-data key so external
	// observers can poll LastUpdateDate without a relational read. It is
	// refreshed from the table every meta_data_time tick and written
	// through on every successful flush commit.
	lastUpdateDate atomic.Int64
}

// New opens the database at cfg.Path, creates the shared meta-data
// table, and wires the staging queue and background flush timer. flush
// is called with every drained batch inside a transaction; it must not
// retain tx beyond the call.
func New[T any](ctx context.Context, cfg dbconfig.Config, log zerolog.Logger, flush FlushFunc[T]) (*Engine[T], error) {
	h, err := dbutil.Open(cfg.Path, cfg.ReadOnly, int(cfg.BusyTimeout/time.Millisecond), log, cfg.UseLog)
	if err != nil {
		return nil, err
	}

	e := &Engine[T]{
		Handle:       h,
		cfg:          cfg,
		log:          log,
		queue:        queue.New[T](),
		flushFn:      flush,
		lastActivity: time.Now(),
	}

	if err := e.initMetaTable(ctx); err != nil {
		_ = h.Close()
		return nil, err
	}
	if err := e.initVersion(ctx); err != nil {
		_ = h.Close()
		return nil, err
	}

	e.runner = asynctasks.NewRunner(ctx)
	if !cfg.ReadOnly {
		e.timer = ztimer.New(tickInterval, ztimer.UnstableInterval, e.tick)
		e.timer.Start()
	}

	return e, nil
}

func (e *Engine[T]) initMetaTable(ctx context.Context) error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (key TEXT PRIMARY KEY, value TEXT)`, metaTableName)
	return e.Handle.ExecRetry(ctx, schema)
}

func (e *Engine[T]) initVersion(ctx context.Context) error {
	existing, err := e.GetMeta(ctx, dbconfig.MetaKeyVersion)
	if err != nil {
		return err
	}
	if existing == "" {
		return e.SetMeta(ctx, dbconfig.MetaKeyVersion, e.cfg.DBVersion)
	}
	return nil
}

// Push stages a record for the next flush. It does not touch the
// relational handle, so it never blocks on a concurrent flush.
func (e *Engine[T]) Push(item T) {
	e.queue.Push(item)
	e.mu.Lock()
	e.lastActivity = time.Now()
	e.mu.Unlock()
}

// QueueLen reports the number of records currently staged.
func (e *Engine[T]) QueueLen() int {
	return e.queue.Len()
}

// shouldFlush implements the documented flush predicate: the queue
// exceeds the batch threshold, or the queue is non-empty and either a
// flush was explicitly requested or the staging queue has been idle
// past idle_time.
func (e *Engine[T]) shouldFlush() bool {
	n := e.queue.Len()
	if n == 0 {
		return false
	}
	if n > e.cfg.ThresholdBets {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flushRequested {
		return true
	}
	return time.Since(e.lastActivity) >= e.cfg.IdleTime
}

func (e *Engine[T]) tick() {
	ctx := e.runner.Context()

	e.mu.Lock()
	dueForMeta := time.Since(e.lastMetaRefresh) >= e.cfg.MetaDataTime
	if dueForMeta {
		e.lastMetaRefresh = time.Now()
	}
	e.mu.Unlock()
	if dueForMeta {
		e.refreshLastUpdateDate(ctx)
	}

	if !e.shouldFlush() {
		return
	}
	if err := e.drainAndFlush(ctx); err != nil && e.cfg.UseLog {
		e.log.Error().Err(err).Msg("flush failed")
	}
}

// refreshLastUpdateDate re-reads the "update-date" meta-data key into
// the in-memory cache, per the documented meta_data_time refresh tick
// (§4.5): it is a read, not a write — the write happens once per
// successful flush commit, in drainAndFlush.
func (e *Engine[T]) refreshLastUpdateDate(ctx context.Context) {
	raw, err := e.GetMeta(ctx, dbconfig.MetaKeyUpdateDate)
	if err != nil {
		if e.cfg.UseLog {
			e.log.Error().Err(err).Msg("meta-data refresh failed")
		}
		return
	}
	if v, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
		e.lastUpdateDate.Store(v)
	}
}

// LastUpdateDate returns the epoch-seconds "update-date" value as of
// the most recent meta_data_time refresh or successful flush, without
// touching the relational handle.
func (e *Engine[T]) LastUpdateDate() int64 {
	return e.lastUpdateDate.Load()
}

func (e *Engine[T]) drainAndFlush(ctx context.Context) error {
	e.flushing.Store(true)
	defer e.flushing.Store(false)

	batch := e.queue.Drain()
	e.mu.Lock()
	e.flushRequested = false
	e.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := e.Handle.WithTx(ctx, func(tx *sql.Tx) error {
		return e.flushFn(ctx, tx, batch)
	}); err != nil {
		return err
	}

	// I3: after a successful commit, update-date = wall-clock seconds
	// at commit time.
	now := time.Now().Unix()
	if err := e.SetMeta(ctx, dbconfig.MetaKeyUpdateDate, strconv.FormatInt(now, 10)); err != nil {
		return fmt.Errorf("engine: persist update-date: %w", err)
	}
	e.lastUpdateDate.Store(now)
	return nil
}

// Flush requests an immediate flush and blocks until the staging queue
// has been drained, mirroring the engine's synchronous flush() call.
// It is a synchronous convenience on top of the same predicate the
// background timer evaluates. On a read-only engine it returns an
// error without draining anything.
func (e *Engine[T]) Flush(ctx context.Context) error {
	if e.cfg.ReadOnly {
		return fmt.Errorf("engine: flush not permitted in read-only mode")
	}
	e.mu.Lock()
	e.flushRequested = true
	e.mu.Unlock()

	for {
		if e.queue.Len() == 0 {
			return nil
		}
		if !e.flushing.Load() {
			if err := e.drainAndFlush(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// Close stops the background timer and any running tasks, then closes
// the underlying handle. Any staged-but-unflushed records are lost, as
// documented for an ungraceful shutdown; callers should Flush first.
func (e *Engine[T]) Close() error {
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.runner != nil {
		_ = e.runner.Wait()
	}
	e.queue.Shutdown()
	return e.Handle.Close()
}

// Backup spawns a background task that streams a consistent copy of
// the database to destPath, reporting whether it started. Only one
// backup may run at a time against an engine; a second concurrent
// call returns false without starting a duplicate or touching the
// running one. onDone, if non-nil, is invoked exactly once with the
// outcome when the spawned task finishes; it must not block.
func (e *Engine[T]) Backup(destPath string, onDone func(destPath string, err error)) bool {
	correlationID := uuid.New().String()
	return e.runner.TryGoDetached("backup", func(taskCtx context.Context) error {
		if e.cfg.UseLog {
			e.log.Info().Str("backup_id", correlationID).Str("dest", destPath).Msg("backup starting")
		}
		return e.Handle.Backup(taskCtx, destPath)
	}, func(err error) {
		if e.cfg.UseLog {
			if err != nil {
				e.log.Error().Str("backup_id", correlationID).Err(err).Msg("backup failed")
			} else {
				e.log.Info().Str("backup_id", correlationID).Msg("backup finished")
			}
		}
		if onDone != nil {
			onDone(destPath, err)
		}
	})
}

// RemoveAll runs the supplied statements (typically a single
// `DELETE FROM <table>`) under the standard retry-with-backoff
// envelope. It does not touch the staging queue: per the documented
// contract, remove_all does not drain pending writes first, so any
// record already staged at the moment of the call is still flushed
// afterward. Callers who need deterministic semantics should Flush
// first.
func (e *Engine[T]) RemoveAll(ctx context.Context, stmts ...string) error {
	for _, stmt := range stmts {
		if err := e.Handle.ExecRetry(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
