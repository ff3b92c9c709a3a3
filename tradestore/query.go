package tradestore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/NewYaroslav/tradedb-go/internal/calendar"
)

// RequestConfig composes a trade query: the fields that map onto
// indexed columns are pushed down into the SQL WHERE clause; the rest
// are evaluated as an in-memory post-filter over the pushed-down
// result set.
type RequestConfig struct {
	StartDate, StopDate int64 // open_date range, ms; 0/0 disables

	Brokers, NoBrokers     []string
	Symbols, NoSymbols     []string
	Signals, NoSignals     []string
	Currency, NoCurrency   []string
	Durations, NoDurations []int64

	Hours, NoHours     []int // 0-23
	Weekday, NoWeekday []int // 0-6

	StartTime, StopTime int64 // seconds since midnight; both 0 disables

	MinAmount, MaxAmount float64
	MinPayout, MaxPayout float64
	MinPing, MaxPing     int64

	OnlyLast   bool
	OnlyResult bool // when true, restricts to Status ∈ {WIN, LOSS, STANDOFF}

	UseDemo bool
	UseReal bool

	UseBuy  bool
	UseSell bool
}

// DefaultRequestConfig returns a RequestConfig with both demo/real and
// both buy/sell enabled and every other filter disabled, matching the
// "empty query returns everything" behavior.
func DefaultRequestConfig() RequestConfig {
	return RequestConfig{UseDemo: true, UseReal: true, UseBuy: true, UseSell: true}
}

// Query runs rc against the store, pushing down the indexed-column
// filters into SQL and applying the remaining filters in memory.
// Results are ordered ascending by OpenDate.
func (s *Store) Query(ctx context.Context, rc RequestConfig) ([]Trade, error) {
	if rc.StartDate > 0 && rc.StopDate > 0 && rc.StartDate > rc.StopDate {
		return nil, nil
	}

	query, args := buildPushDownQuery(rc)
	rows, err := s.eng.Handle.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tradestore: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		if postFilter(t, rc) {
			out = append(out, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].OpenDate < out[j].OpenDate })
	return out, nil
}

func buildPushDownQuery(rc RequestConfig) (string, []any) {
	var where []string
	var args []any

	if rc.StartDate > 0 || rc.StopDate > 0 {
		switch {
		case rc.StartDate > 0 && rc.StopDate > 0:
			where = append(where, "open_date BETWEEN ? AND ?")
			args = append(args, rc.StartDate, rc.StopDate)
		case rc.StartDate > 0:
			where = append(where, "open_date >= ?")
			args = append(args, rc.StartDate)
		default:
			where = append(where, "open_date <= ?")
			args = append(args, rc.StopDate)
		}
	}

	addInClause(&where, &args, "broker", rc.Brokers, false)
	addInClause(&where, &args, "broker", rc.NoBrokers, true)
	addInClause(&where, &args, "symbol", rc.Symbols, false)
	addInClause(&where, &args, "symbol", rc.NoSymbols, true)
	addInClause(&where, &args, "signal", rc.Signals, false)
	addInClause(&where, &args, "signal", rc.NoSignals, true)
	addInClause(&where, &args, "currency", rc.Currency, false)
	addInClause(&where, &args, "currency", rc.NoCurrency, true)
	addInClauseInt(&where, &args, "duration", rc.Durations, false)
	addInClauseInt(&where, &args, "duration", rc.NoDurations, true)

	if rc.UseDemo != rc.UseReal {
		where = append(where, "demo = ?")
		args = append(args, boolToInt(rc.UseDemo))
	}

	query := `SELECT uid, broker_id, open_date, close_date, open_price, close_price,
		amount, profit, payout, winrate, delay, ping, duration, step,
		demo, last, contract_type, status, bo_type,
		symbol, broker, currency, signal, comment, user_data
		FROM "` + tableName + `"`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	} else {
		query += " WHERE open_date >= 0"
	}
	return query, args
}

func addInClause(where *[]string, args *[]any, column string, values []string, negate bool) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, v)
	}
	op := "IN"
	if negate {
		op = "NOT IN"
	}
	*where = append(*where, fmt.Sprintf("%s %s (%s)", column, op, strings.Join(placeholders, ",")))
}

func addInClauseInt(where *[]string, args *[]any, column string, values []int64, negate bool) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, v)
	}
	op := "IN"
	if negate {
		op = "NOT IN"
	}
	*where = append(*where, fmt.Sprintf("%s %s (%s)", column, op, strings.Join(placeholders, ",")))
}

func scanTrade(rows *sql.Rows) (Trade, error) {
	var t Trade
	var demo, last, contractType, status, boType int
	err := rows.Scan(
		&t.UID, &t.BrokerID, &t.OpenDate, &t.CloseDate, &t.OpenPrice, &t.ClosePrice,
		&t.Amount, &t.Profit, &t.Payout, &t.Winrate, &t.Delay, &t.Ping, &t.Duration, &t.Step,
		&demo, &last, &contractType, &status, &boType,
		&t.Symbol, &t.Broker, &t.Currency, &t.Signal, &t.Comment, &t.UserData,
	)
	if err != nil {
		return Trade{}, fmt.Errorf("tradestore: scan: %w", err)
	}
	t.Demo = demo != 0
	t.Last = last != 0
	t.ContractType = ContractType(contractType)
	t.Status = Status(status)
	t.Type = BoType(boType)
	return t, nil
}

func postFilter(t Trade, rc RequestConfig) bool {
	if len(rc.Hours) > 0 && !intInSet(calendar.Hour(t.OpenDate/1000), rc.Hours) {
		return false
	}
	if len(rc.NoHours) > 0 && intInSet(calendar.Hour(t.OpenDate/1000), rc.NoHours) {
		return false
	}
	if len(rc.Weekday) > 0 && !intInSet(calendar.Weekday(t.OpenDate/1000), rc.Weekday) {
		return false
	}
	if len(rc.NoWeekday) > 0 && intInSet(calendar.Weekday(t.OpenDate/1000), rc.NoWeekday) {
		return false
	}
	if rc.StartTime != 0 || rc.StopTime != 0 {
		if !calendar.TimeOfDay(t.OpenDate/1000, rc.StartTime, rc.StopTime) {
			return false
		}
	}
	if rc.MinAmount != 0 && t.Amount < rc.MinAmount {
		return false
	}
	if rc.MaxAmount != 0 && t.Amount > rc.MaxAmount {
		return false
	}
	if rc.MinPayout != 0 && t.Payout < rc.MinPayout {
		return false
	}
	if rc.MaxPayout != 0 && t.Payout > rc.MaxPayout {
		return false
	}
	if rc.MinPing != 0 && t.Ping < rc.MinPing {
		return false
	}
	if rc.MaxPing != 0 && t.Ping > rc.MaxPing {
		return false
	}
	if rc.OnlyLast && !t.Last {
		return false
	}
	if rc.OnlyResult && !(t.Status == StatusWin || t.Status == StatusLoss || t.Status == StatusStandoff) {
		return false
	}
	if !rc.UseBuy && t.ContractType == ContractBuy {
		return false
	}
	if !rc.UseSell && t.ContractType == ContractSell {
		return false
	}
	return true
}

func intInSet(v int, set []int) bool {
	for _, s := range set {
		if s == int(v) {
			return true
		}
	}
	return false
}
