package tradestore

import "github.com/NewYaroslav/tradedb-go/stats"

// ToStatsTrade adapts a query result into the narrow shape the stats
// engine consumes, so Query's output can be fed to stats.Calc/
// metastats.Calc without either package importing the storage layer.
func (t Trade) ToStatsTrade() stats.Trade {
	var outcome stats.Outcome
	switch t.Status {
	case StatusWin:
		outcome = stats.OutcomeWin
	case StatusLoss:
		outcome = stats.OutcomeLoss
	case StatusStandoff:
		outcome = stats.OutcomeStandoff
	default:
		outcome = stats.OutcomeUnknown
	}

	return stats.Trade{
		OpenDate:  t.OpenDate,
		CloseDate: t.CloseDate,
		Amount:    t.Amount,
		Payout:    t.Payout,
		Profit:    t.Profit,
		Outcome:   outcome,
		Buy:       t.ContractType == ContractBuy,
		Step:      t.Step,
		Last:      t.Last,
		Symbol:    t.Symbol,
		Signal:    t.Signal,
		Broker:    t.Broker,
		Currency:  t.Currency,
		Demo:      t.Demo,
	}
}

// ToStatsTrades adapts a slice of query results in bulk, preserving
// order.
func ToStatsTrades(trades []Trade) []stats.Trade {
	out := make([]stats.Trade, len(trades))
	for i, t := range trades {
		out[i] = t.ToStatsTrade()
	}
	return out
}
