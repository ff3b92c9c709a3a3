// Package metastats breaks a trade sequence down by broker, signal,
// symbol, currency, hour-of-day, and weekday, producing one stats
// Report per distinct value of each dimension.
package metastats

import (
	"sort"

	"github.com/NewYaroslav/tradedb-go/internal/calendar"
	"github.com/NewYaroslav/tradedb-go/stats"
)

// MetaStats is the per-dimension breakdown of a trade sequence.
type MetaStats struct {
	Brokers    []string
	Symbols    []string
	Signals    []string
	Currencies []string
	Real       bool
	Demo       bool

	CurrencyStats map[string]stats.Report
	SignalStats   map[string]stats.Report
	BrokerStats   map[string]stats.Report
	SymbolStats   map[string]stats.Report
	HourStats     [calendar.HoursPerDay]stats.Report
	WeekdayStats  [calendar.DaysPerWeek]stats.Report
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Calc computes a MetaStats breakdown of trades, starting every
// per-dimension balance curve at startBalance. convert, if non-nil, is
// threaded into every dimension's stats.Config.Convert.
func Calc(trades []stats.Trade, startBalance float64, convert stats.ConvertFunc) MetaStats {
	var brokers, symbols, signals, currencies []string
	var m MetaStats

	for _, t := range trades {
		brokers = append(brokers, t.Broker)
		symbols = append(symbols, t.Symbol)
		signals = append(signals, t.Signal)
		currencies = append(currencies, t.Currency)
		if t.Demo {
			m.Demo = true
		} else {
			m.Real = true
		}
	}

	m.Brokers = distinct(brokers)
	m.Symbols = distinct(symbols)
	m.Signals = distinct(signals)
	m.Currencies = distinct(currencies)

	m.CurrencyStats = make(map[string]stats.Report, len(m.Currencies))
	for _, c := range m.Currencies {
		cfg := stats.DefaultConfig()
		cfg.Currency = c
		cfg.Convert = convert
		m.CurrencyStats[c] = stats.Calc(trades, startBalance, cfg)
	}

	m.SignalStats = make(map[string]stats.Report, len(m.Signals))
	for _, s := range m.Signals {
		cfg := stats.DefaultConfig()
		cfg.Signals = []string{s}
		cfg.Convert = convert
		m.SignalStats[s] = stats.Calc(trades, startBalance, cfg)
	}

	m.SymbolStats = make(map[string]stats.Report, len(m.Symbols))
	for _, s := range m.Symbols {
		cfg := stats.DefaultConfig()
		cfg.Symbols = []string{s}
		cfg.Convert = convert
		m.SymbolStats[s] = stats.Calc(trades, startBalance, cfg)
	}

	m.BrokerStats = make(map[string]stats.Report, len(m.Brokers))
	for _, b := range m.Brokers {
		cfg := stats.DefaultConfig()
		cfg.Brokers = []string{b}
		cfg.Convert = convert
		m.BrokerStats[b] = stats.Calc(trades, startBalance, cfg)
	}

	for h := 0; h < calendar.HoursPerDay; h++ {
		cfg := stats.DefaultConfig()
		cfg.Convert = convert
		m.HourStats[h] = stats.Calc(tradesInHour(trades, h), startBalance, cfg)
	}

	for wd := 0; wd < calendar.DaysPerWeek; wd++ {
		cfg := stats.DefaultConfig()
		cfg.Convert = convert
		m.WeekdayStats[wd] = stats.Calc(tradesInWeekday(trades, wd), startBalance, cfg)
	}

	return m
}

func tradesInHour(trades []stats.Trade, hour int) []stats.Trade {
	var out []stats.Trade
	for _, t := range trades {
		if calendar.Hour(t.OpenDate/1000) == hour {
			out = append(out, t)
		}
	}
	return out
}

func tradesInWeekday(trades []stats.Trade, weekday int) []stats.Trade {
	var out []stats.Trade
	for _, t := range trades {
		if calendar.Weekday(t.OpenDate/1000) == weekday {
			out = append(out, t)
		}
	}
	return out
}
