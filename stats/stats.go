package stats

import (
	"math"

	"github.com/NewYaroslav/tradedb-go/internal/calendar"
)

// Report is the full statistics output of a single Calc call.
type Report struct {
	Config Config

	TotalVolume float64
	TotalProfit float64
	TotalGain   float64 // final_balance / start_balance

	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64 // gross_profit/gross_loss; see computeProfitFactor for the 0/0 and +Inf edge cases

	AverRelativeProfit float64
	AverAbsoluteProfit float64
	AverAbsoluteAmount float64
	MaxAbsoluteProfit  float64

	Overall WinrateStats
	Buy     WinrateStats
	Sell    WinrateStats

	BySecond  [60]WinrateStats
	ByHour    [calendar.HoursPerDay]WinrateStats
	ByWeekday [calendar.DaysPerWeek]WinrateStats
	ByMonth   [12]WinrateStats
	ByDay     [31]WinrateStats
	BySymbol  map[string]WinrateStats
	BySignal  map[string]WinrateStats

	Series SeriesCriterion
	Chart  ChartData

	TradeCount int
}

func passesFilter(t Trade, cfg Config) bool {
	switch cfg.StatsType {
	case FirstBet:
		if t.Step != 0 {
			return false
		}
	case LastBet:
		if !t.Last {
			return false
		}
	}
	if cfg.Currency != "" && t.Currency != cfg.Currency {
		return false
	}
	if !contains(cfg.Brokers, t.Broker) {
		return false
	}
	if !contains(cfg.Signals, t.Signal) {
		return false
	}
	if !contains(cfg.Symbols, t.Symbol) {
		return false
	}
	if t.Demo && !cfg.UseDemo {
		return false
	}
	if !t.Demo && !cfg.UseReal {
		return false
	}
	return true
}

func convertedAmount(t Trade, cfg Config) (amount, profit float64) {
	amount, profit = t.Amount, t.Profit
	if cfg.Convert != nil && cfg.Currency != "" && t.Currency != cfg.Currency {
		amount = cfg.Convert(amount, t.Currency)
		profit = cfg.Convert(profit, t.Currency)
	}
	return
}

// Calc computes a Report over trades using cfg, starting the balance
// curve at startBalance.
func Calc(trades []Trade, startBalance float64, cfg Config) Report {
	r := Report{
		Config:   cfg,
		BySymbol: make(map[string]WinrateStats),
		BySignal: make(map[string]WinrateStats),
	}

	var events []balanceEvent
	var maxProfit float64

	for _, t := range trades {
		if !passesFilter(t, cfg) {
			continue
		}
		r.TradeCount++

		amount, profit := convertedAmount(t, cfg)

		r.TotalVolume += amount
		r.TotalProfit += profit
		r.AverAbsoluteAmount += amount
		if profit > 0 {
			r.GrossProfit += profit
		} else {
			r.GrossLoss += -profit
		}
		if profit > maxProfit {
			maxProfit = profit
		}

		events = append(events, balanceEvent{time: t.CloseDate, delta: profit})

		r.Overall.add(t.Outcome)
		if t.Buy {
			r.Buy.add(t.Outcome)
		} else {
			r.Sell.add(t.Outcome)
		}

		r.BySecond[calendar.Second(t.OpenDate/1000)].add(t.Outcome)
		r.ByHour[calendar.Hour(t.OpenDate/1000)].add(t.Outcome)
		r.ByWeekday[calendar.Weekday(t.OpenDate/1000)].add(t.Outcome)
		r.ByMonth[calendar.Month(t.OpenDate/1000)-1].add(t.Outcome)
		r.ByDay[calendar.Day(t.OpenDate/1000)-1].add(t.Outcome)

		if t.Symbol != "" {
			ws := r.BySymbol[t.Symbol]
			ws.add(t.Outcome)
			r.BySymbol[t.Symbol] = ws
		}
		if t.Signal != "" {
			ws := r.BySignal[t.Signal]
			ws.add(t.Outcome)
			r.BySignal[t.Signal] = ws
		}

		if t.Outcome == OutcomeWin {
			r.Series.Update(true)
		} else if t.Outcome == OutcomeLoss {
			r.Series.Update(false)
		}
	}

	r.MaxAbsoluteProfit = maxProfit
	if r.TradeCount > 0 {
		r.AverAbsoluteProfit = r.TotalProfit / float64(r.TradeCount)
		r.AverAbsoluteAmount /= float64(r.TradeCount)
		if r.AverAbsoluteAmount != 0 {
			r.AverRelativeProfit = r.AverAbsoluteProfit / r.AverAbsoluteAmount
		}
	}

	r.ProfitFactor = computeProfitFactor(r.GrossProfit, r.GrossLoss)

	r.Chart = buildChart(events, startBalance)
	if startBalance > 0 {
		r.TotalGain = r.Chart.FinalBalance() / startBalance
	}

	return r
}

// computeProfitFactor implements the documented edge case: when
// gross_loss is 0, the ratio is +Inf if there was any gross profit,
// else 0 (the 0/0 case, per P9) — never NaN.
func computeProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}
