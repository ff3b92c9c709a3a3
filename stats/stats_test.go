package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCalc_BalanceCurveAndDrawdownScenario mirrors the documented
// end-to-end scenario: start_balance=1000, three trades spaced 60s
// apart (WIN, LOSS, WIN), amount=100, payout=0.8 on the wins.
func TestCalc_BalanceCurveAndDrawdownScenario(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 60_000, Amount: 100, Payout: 0.8, Profit: 80, Outcome: OutcomeWin},
		{OpenDate: 60_000, CloseDate: 120_000, Amount: 100, Profit: -100, Outcome: OutcomeLoss},
		{OpenDate: 120_000, CloseDate: 180_000, Amount: 100, Payout: 0.8, Profit: 80, Outcome: OutcomeWin},
	}

	r := Calc(trades, 1000, DefaultConfig())

	require.Equal(t, 3, r.TradeCount)
	require.InDelta(t, 60, r.TotalProfit, 1e-9)
	require.InDelta(t, 1.06, r.TotalGain, 1e-9)
	require.InDelta(t, 100, r.Chart.MaxAbsoluteDrawdown, 1e-9)
}

func TestCalc_WinrateAndProfitFactor(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 100, Payout: 1, Profit: 100, Outcome: OutcomeWin},
		{OpenDate: 1000, CloseDate: 2000, Amount: 50, Profit: -50, Outcome: OutcomeLoss},
		{OpenDate: 2000, CloseDate: 3000, Amount: 20, Profit: 0, Outcome: OutcomeStandoff},
	}

	r := Calc(trades, 1000, DefaultConfig())

	require.Equal(t, int64(1), r.Overall.Wins)
	require.Equal(t, int64(1), r.Overall.Losses)
	require.Equal(t, int64(1), r.Overall.Standoffs)
	require.Equal(t, int64(3), r.Overall.Deals)
	require.InDelta(t, 1.0/3.0, r.Overall.Winrate, 1e-9)

	require.InDelta(t, 100, r.GrossProfit, 1e-9)
	require.InDelta(t, 50, r.GrossLoss, 1e-9)
	require.InDelta(t, 2.0, r.ProfitFactor, 1e-9)
}

func TestCalc_ProfitFactorInfiniteWhenNoLosses(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 100, Payout: 1, Profit: 100, Outcome: OutcomeWin},
	}
	r := Calc(trades, 1000, DefaultConfig())
	require.True(t, math.IsInf(r.ProfitFactor, 1))
}

func TestCalc_ProfitFactorZeroWhenNoTradesAtAll(t *testing.T) {
	r := Calc(nil, 1000, DefaultConfig())
	require.Equal(t, float64(0), r.ProfitFactor)
}

func TestCalc_StatsTypeFirstBetFiltersByStepZero(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Step: 0, Outcome: OutcomeWin, Payout: 1},
		{OpenDate: 1000, CloseDate: 2000, Amount: 20, Step: 1, Outcome: OutcomeLoss},
	}
	cfg := DefaultConfig()
	cfg.StatsType = FirstBet
	r := Calc(trades, 100, cfg)
	require.Equal(t, 1, r.TradeCount)
	require.InDelta(t, 10, r.TotalVolume, 1e-9)
}

func TestCalc_StatsTypeLastBetFiltersByLastFlag(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Last: false, Outcome: OutcomeLoss},
		{OpenDate: 1000, CloseDate: 2000, Amount: 20, Last: true, Outcome: OutcomeWin, Payout: 1},
	}
	cfg := DefaultConfig()
	cfg.StatsType = LastBet
	r := Calc(trades, 100, cfg)
	require.Equal(t, 1, r.TradeCount)
	require.InDelta(t, 20, r.TotalVolume, 1e-9)
}

func TestCalc_CurrencyFilterExcludesOtherCurrencies(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Currency: "USD", Outcome: OutcomeWin, Payout: 1},
		{OpenDate: 1000, CloseDate: 2000, Amount: 20, Currency: "EUR", Outcome: OutcomeWin, Payout: 1},
	}
	cfg := DefaultConfig()
	cfg.Currency = "USD"
	r := Calc(trades, 100, cfg)
	require.Equal(t, 1, r.TradeCount)
}

func TestCalc_ConvertAppliedWhenCurrencyDiffers(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Currency: "EUR", Outcome: OutcomeWin, Payout: 1},
	}
	cfg := DefaultConfig()
	cfg.Currency = "EUR"
	cfg.Convert = func(amount float64, from string) float64 { return amount * 2 }
	r := Calc(trades, 100, cfg)
	require.InDelta(t, 20, r.TotalVolume, 1e-9)
}

func TestCalc_BrokerSignalSymbolFilters(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Broker: "A", Signal: "s1", Symbol: "EURUSD", Outcome: OutcomeWin, Payout: 1},
		{OpenDate: 1000, CloseDate: 2000, Amount: 10, Broker: "B", Signal: "s2", Symbol: "AUDCAD", Outcome: OutcomeWin, Payout: 1},
	}
	cfg := DefaultConfig()
	cfg.Brokers = []string{"A"}
	r := Calc(trades, 100, cfg)
	require.Equal(t, 1, r.TradeCount)
}

func TestCalc_DemoRealInclusion(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Demo: true, Outcome: OutcomeWin, Payout: 1},
		{OpenDate: 1000, CloseDate: 2000, Amount: 10, Demo: false, Outcome: OutcomeWin, Payout: 1},
	}
	cfg := DefaultConfig()
	cfg.UseDemo = false
	r := Calc(trades, 100, cfg)
	require.Equal(t, 1, r.TradeCount)
}

func TestCalc_BySymbolAndBySignalBuckets(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Symbol: "EURUSD", Signal: "rsi", Outcome: OutcomeWin, Payout: 1},
		{OpenDate: 1000, CloseDate: 2000, Amount: 10, Symbol: "EURUSD", Signal: "rsi", Outcome: OutcomeLoss},
	}
	r := Calc(trades, 100, DefaultConfig())
	require.Equal(t, int64(2), r.BySymbol["EURUSD"].Deals)
	require.Equal(t, int64(2), r.BySignal["rsi"].Deals)
}

func TestSeriesCriterion_ZScoreZeroOnEmptySeries(t *testing.T) {
	var s SeriesCriterion
	require.Equal(t, float64(0), s.ZScore())
}

func TestSeriesCriterion_ZScoreZeroWhenAllWins(t *testing.T) {
	var s SeriesCriterion
	s.Update(true)
	s.Update(true)
	s.Update(true)
	require.Equal(t, float64(0), s.ZScore())
}

func TestSeriesCriterion_CountsRunsAcrossAlternation(t *testing.T) {
	var s SeriesCriterion
	s.Update(true)
	s.Update(false)
	s.Update(true)
	s.Update(true)
	require.Equal(t, int64(3), s.R())
}

func TestCalc_MaxAbsoluteProfitTracksLargestWin(t *testing.T) {
	trades := []Trade{
		{OpenDate: 0, CloseDate: 1000, Amount: 10, Outcome: OutcomeWin, Payout: 1, Profit: 10},
		{OpenDate: 1000, CloseDate: 2000, Amount: 100, Outcome: OutcomeWin, Payout: 2, Profit: 200},
	}
	r := Calc(trades, 100, DefaultConfig())
	require.InDelta(t, 200, r.MaxAbsoluteProfit, 1e-9)
}
