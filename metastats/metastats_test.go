package metastats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NewYaroslav/tradedb-go/stats"
)

func sampleTrades() []stats.Trade {
	return []stats.Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Profit: 10, Payout: 1, Broker: "A", Symbol: "EURUSD", Signal: "rsi", Currency: "USD", Outcome: stats.OutcomeWin, Demo: true},
		{OpenDate: 1000, CloseDate: 2000, Amount: 10, Profit: -10, Broker: "B", Symbol: "AUDCAD", Signal: "macd", Currency: "EUR", Outcome: stats.OutcomeLoss, Demo: false},
	}
}

func TestCalc_CollectsDistinctDimensions(t *testing.T) {
	m := Calc(sampleTrades(), 1000, nil)
	require.ElementsMatch(t, []string{"A", "B"}, m.Brokers)
	require.ElementsMatch(t, []string{"EURUSD", "AUDCAD"}, m.Symbols)
	require.ElementsMatch(t, []string{"rsi", "macd"}, m.Signals)
	require.ElementsMatch(t, []string{"USD", "EUR"}, m.Currencies)
	require.True(t, m.Demo)
	require.True(t, m.Real)
}

func TestCalc_PerBrokerStatsIsolatesTrades(t *testing.T) {
	m := Calc(sampleTrades(), 1000, nil)
	require.Equal(t, 1, m.BrokerStats["A"].TradeCount)
	require.Equal(t, 1, m.BrokerStats["B"].TradeCount)
}

func TestCalc_PerSymbolAndSignalStats(t *testing.T) {
	m := Calc(sampleTrades(), 1000, nil)
	require.Equal(t, 1, m.SymbolStats["EURUSD"].TradeCount)
	require.Equal(t, 1, m.SignalStats["macd"].TradeCount)
}

func TestCalc_PerCurrencyStatsAppliesConvert(t *testing.T) {
	convert := func(amount float64, from string) float64 { return amount * 2 }
	m := Calc(sampleTrades(), 1000, convert)
	require.Equal(t, 1, m.CurrencyStats["EUR"].TradeCount)
}

func TestCalc_HourAndWeekdayBucketsCoverAllTrades(t *testing.T) {
	m := Calc(sampleTrades(), 1000, nil)
	var totalByHour int
	for _, r := range m.HourStats {
		totalByHour += r.TradeCount
	}
	require.Equal(t, 2, totalByHour)

	var totalByWeekday int
	for _, r := range m.WeekdayStats {
		totalByWeekday += r.TradeCount
	}
	require.Equal(t, 2, totalByWeekday)
}

func TestCalc_EmptyTradesProducesEmptyDimensions(t *testing.T) {
	m := Calc(nil, 1000, nil)
	require.Empty(t, m.Brokers)
	require.Empty(t, m.Symbols)
	require.False(t, m.Demo)
	require.False(t, m.Real)
}
