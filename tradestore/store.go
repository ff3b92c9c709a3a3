package tradestore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/NewYaroslav/tradedb-go/dbconfig"
	"github.com/NewYaroslav/tradedb-go/internal/engine"
)

const tableName = "bets-data-v1"

const schemaDDL = `CREATE TABLE IF NOT EXISTS "` + tableName + `" (
	uid INTEGER NOT NULL,
	broker_id INTEGER NOT NULL,
	open_date INTEGER NOT NULL,
	close_date INTEGER NOT NULL,
	open_price REAL NOT NULL,
	close_price REAL NOT NULL,
	amount REAL NOT NULL,
	profit REAL NOT NULL,
	payout REAL NOT NULL,
	winrate REAL NOT NULL,
	delay INTEGER NOT NULL,
	ping INTEGER NOT NULL,
	duration INTEGER NOT NULL,
	step INTEGER NOT NULL,
	demo INTEGER NOT NULL,
	last INTEGER NOT NULL,
	contract_type INTEGER NOT NULL,
	status INTEGER NOT NULL,
	bo_type INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	broker TEXT NOT NULL,
	currency TEXT NOT NULL,
	signal TEXT NOT NULL,
	comment TEXT NOT NULL,
	user_data TEXT NOT NULL,
	PRIMARY KEY (open_date, uid)
)`

var indexDDLs = []string{
	`CREATE INDEX IF NOT EXISTS idx_bets_broker ON "` + tableName + `" (broker)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_symbol ON "` + tableName + `" (symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_signal ON "` + tableName + `" (signal)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_currency ON "` + tableName + `" (currency)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_duration ON "` + tableName + `" (duration)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_demo ON "` + tableName + `" (demo)`,
}

const insertQuery = `INSERT OR REPLACE INTO "` + tableName + `" (
	uid, broker_id, open_date, close_date, open_price, close_price,
	amount, profit, payout, winrate, delay, ping, duration, step,
	demo, last, contract_type, status, bo_type,
	symbol, broker, currency, signal, comment, user_data
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// Store is the binary-option trade record store: schema, staging
// queue, flush, and UID allocation over the generic engine.
type Store struct {
	eng     *engine.Engine[Trade]
	nextUID atomic.Int64
	cfg     dbconfig.Config
}

// Open creates or opens a trade store at cfg.Path, restoring the UID
// allocator from the persisted "bet-id" meta-data key (defaulting the
// next UID to 1 when absent).
func Open(ctx context.Context, cfg dbconfig.Config, log zerolog.Logger) (*Store, error) {
	s := &Store{cfg: cfg}

	eng, err := engine.New[Trade](ctx, cfg, log, s.flushBatch)
	if err != nil {
		return nil, err
	}
	s.eng = eng

	if err := eng.Handle.ExecRetry(ctx, schemaDDL); err != nil {
		_ = eng.Close()
		return nil, err
	}
	for _, ddl := range indexDDLs {
		if err := eng.Handle.ExecRetry(ctx, ddl); err != nil {
			_ = eng.Close()
			return nil, err
		}
	}

	if err := s.initUID(ctx); err != nil {
		_ = eng.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initUID(ctx context.Context) error {
	raw, err := s.eng.GetMeta(ctx, dbconfig.MetaKeyBetID)
	if err != nil {
		return err
	}
	next := int64(1)
	if raw != "" {
		v, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr == nil {
			next = v
		}
	}
	s.nextUID.Store(next)
	return nil
}

// AllocateUID returns the current UID and atomically increments the
// allocator, per invariant I4: strictly increasing per call.
func (s *Store) AllocateUID() int64 {
	return s.nextUID.Add(1) - 1
}

// Enqueue validates and stages a trade. If the trade's UID is <= 0 a
// fresh one is allocated, matching the original's replace_trade
// behavior of stamping a UID only when the caller didn't supply one.
func (s *Store) Enqueue(t Trade) (Trade, error) {
	if s.cfg.ReadOnly {
		return Trade{}, ErrReadOnly
	}
	if t.UID <= 0 {
		t.UID = s.AllocateUID()
	}
	if err := t.Validate(); err != nil {
		return Trade{}, err
	}
	s.eng.Push(t)
	return t, nil
}

// Flush forces an immediate drain-and-commit of the staging queue,
// blocking until it completes.
func (s *Store) Flush(ctx context.Context) error {
	return s.eng.Flush(ctx)
}

// Close stops the background flush timer and closes the underlying
// handle. Callers should Flush before Close to avoid losing staged
// records.
func (s *Store) Close() error {
	return s.eng.Close()
}

// Backup spawns a background task that streams a consistent copy of
// the store to destPath, reporting whether it started; a backup
// already in progress rejects a second concurrent call. onDone, if
// non-nil, receives the outcome once the backup completes.
func (s *Store) Backup(destPath string, onDone func(destPath string, err error)) bool {
	return s.eng.Backup(destPath, onDone)
}

// RemoveAll issues a DELETE FROM against the trade table under the
// standard retry-with-backoff envelope. It does not drain the staging
// queue first; callers who need deterministic semantics should Flush
// before RemoveAll. The UID allocator is not reset, matching the
// original's separation of schema lifecycle from UID lifecycle.
func (s *Store) RemoveAll(ctx context.Context) error {
	if s.cfg.ReadOnly {
		return ErrReadOnly
	}
	return s.eng.RemoveAll(ctx, `DELETE FROM "`+tableName+`"`)
}

// RemoveTrade deletes a single trade by primary key under the same
// retry-with-backoff envelope as RemoveAll.
func (s *Store) RemoveTrade(ctx context.Context, openDate, uid int64) error {
	if s.cfg.ReadOnly {
		return ErrReadOnly
	}
	return s.eng.Handle.ExecRetry(ctx,
		`DELETE FROM "`+tableName+`" WHERE open_date = ? AND uid = ?`, openDate, uid)
}

// RemoveTrades deletes a set of trades by UID using parameter
// placeholders — never string-concatenated keys, unlike the pattern
// this store's design notes flag as unsafe in the original — retried
// under the same envelope as RemoveAll.
func (s *Store) RemoveTrades(ctx context.Context, uids []int64) error {
	if s.cfg.ReadOnly {
		return ErrReadOnly
	}
	if len(uids) == 0 {
		return nil
	}
	placeholders := make([]byte, 0, len(uids)*2)
	args := make([]any, len(uids))
	for i, uid := range uids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = uid
	}
	query := fmt.Sprintf(`DELETE FROM "%s" WHERE uid IN (%s)`, tableName, string(placeholders))
	return s.eng.Handle.ExecRetry(ctx, query, args...)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Store) flushBatch(ctx context.Context, tx *sql.Tx, batch []Trade) error {
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("tradestore: prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range batch {
		_, err := stmt.ExecContext(ctx,
			t.UID, t.BrokerID, t.OpenDate, t.CloseDate, t.OpenPrice, t.ClosePrice,
			t.Amount, t.Profit, t.Payout, t.Winrate, t.Delay, t.Ping, t.Duration, t.Step,
			boolToInt(t.Demo), boolToInt(t.Last), int(t.ContractType), int(t.Status), int(t.Type),
			t.Symbol, t.Broker, t.Currency, t.Signal, t.Comment, t.UserData,
		)
		if err != nil {
			return fmt.Errorf("tradestore: insert uid=%d: %w", t.UID, err)
		}
	}

	if err := s.eng.SetMetaTx(ctx, tx, dbconfig.MetaKeyBetID, strconv.FormatInt(s.nextUID.Load(), 10)); err != nil {
		return fmt.Errorf("tradestore: persist bet-id: %w", err)
	}
	return nil
}
