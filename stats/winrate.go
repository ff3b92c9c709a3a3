package stats

import "math"

// WinrateStats tallies outcomes over some bucket (an hour, a weekday,
// a symbol, ...). Standoffs count toward Deals, and so toward the
// Winrate denominator (Wins / Deals), but never as wins.
type WinrateStats struct {
	Wins      int64
	Losses    int64
	Standoffs int64
	Deals     int64
	Winrate   float64
}

func (w *WinrateStats) add(o Outcome) {
	w.Deals++
	switch o {
	case OutcomeWin:
		w.Wins++
	case OutcomeLoss:
		w.Losses++
	case OutcomeStandoff:
		w.Standoffs++
	}
	if w.Deals > 0 {
		w.Winrate = float64(w.Wins) / float64(w.Deals)
	}
}

// SeriesCriterion computes Kaufman's serial-dependence Z-score over a
// sequence of win/loss outcomes (standoffs are ignored entirely, per
// the documented filter rule).
type SeriesCriterion struct {
	wins, losses int64
	runs         int64
	inRun        bool
	lastWasWin   bool
}

// Update folds a single win/loss outcome into the series. Standoff
// outcomes must not be passed here.
func (s *SeriesCriterion) Update(isWin bool) {
	if !s.inRun || isWin != s.lastWasWin {
		s.runs++
		s.inRun = true
	}
	s.lastWasWin = isWin
	if isWin {
		s.wins++
	} else {
		s.losses++
	}
}

// R returns the run count.
func (s *SeriesCriterion) R() int64 { return s.runs }

// ZScore computes Z = (R - 2P(1-P)N) / (2P(1-P)sqrt(N)). Per the
// documented edge-case decision, a 0/0 division (N == 0, or P == 0 or
// P == 1 making the denominator zero) is reported as 0 rather than
// NaN or +/-Inf.
func (s *SeriesCriterion) ZScore() float64 {
	n := float64(s.wins + s.losses)
	if n == 0 {
		return 0
	}
	p := float64(s.wins) / n
	denomFactor := 2 * p * (1 - p)
	if denomFactor == 0 {
		return 0
	}
	r := float64(s.runs)
	return (r - denomFactor*n) / (denomFactor * math.Sqrt(n))
}
