package stats

import (
	"math"
	"sort"
)

// ChartPoint is a single (time, balance) sample on the balance curve.
type ChartPoint struct {
	Time    int64
	Balance float64
}

// ChartData is the folded balance curve plus the drawdown statistics
// accumulated while folding it.
type ChartData struct {
	Points []ChartPoint

	MaxAbsoluteDrawdown float64
	MaxDrawdown         float64 // ratio: MaxAbsoluteDrawdown / peak at that point
	MaxDrawdownDate     int64
	AverDrawdown        float64 // mean of all *completed* drawdown ratios
}

type balanceEvent struct {
	time  int64
	delta float64
}

// buildChart folds a sequence of per-trade profit events, posted at
// CloseDate, into a balance curve and accumulates drawdown statistics
// while doing so.
func buildChart(events []balanceEvent, startBalance float64) ChartData {
	sort.SliceStable(events, func(i, j int) bool { return events[i].time < events[j].time })

	var cd ChartData
	balance := startBalance
	cd.Points = append(cd.Points, ChartPoint{Time: 0, Balance: balance})

	lastMaxBalance := balance
	var drawdownRatios []float64
	inDrawdown := false
	var drawdownStart int64

	for _, ev := range events {
		balance += ev.delta
		cd.Points = append(cd.Points, ChartPoint{Time: ev.time, Balance: balance})

		if balance < lastMaxBalance {
			if !inDrawdown {
				inDrawdown = true
				drawdownStart = ev.time
			}
			absDrop := lastMaxBalance - balance
			if absDrop > cd.MaxAbsoluteDrawdown {
				cd.MaxAbsoluteDrawdown = absDrop
				cd.MaxDrawdownDate = drawdownStart
				if lastMaxBalance != 0 {
					cd.MaxDrawdown = absDrop / lastMaxBalance
				}
			}
		} else {
			if inDrawdown {
				ratio := 0.0
				if lastMaxBalance != 0 {
					ratio = (lastMaxBalance - minBalanceSince(cd.Points, drawdownStart)) / lastMaxBalance
				}
				drawdownRatios = append(drawdownRatios, ratio)
				inDrawdown = false
			}
			lastMaxBalance = balance
		}
	}

	if len(drawdownRatios) > 0 {
		var sum float64
		for _, r := range drawdownRatios {
			sum += r
		}
		cd.AverDrawdown = sum / float64(len(drawdownRatios))
	}

	return cd
}

func minBalanceSince(points []ChartPoint, since int64) float64 {
	min := math.Inf(1)
	for _, p := range points {
		if p.Time >= since && p.Balance < min {
			min = p.Balance
		}
	}
	return min
}

// FinalBalance returns the balance at the end of the curve.
func (c ChartData) FinalBalance() float64 {
	if len(c.Points) == 0 {
		return 0
	}
	return c.Points[len(c.Points)-1].Balance
}
