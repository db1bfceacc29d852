package statistics

import (
	"fmt"
	"math"
	"sort"
)

// RoundResult represents the outcome of a single settled blackjack round
type RoundResult struct {
	Winnings     int64  // Signed dollars won or lost on the round
	BalanceAfter int64  // Session balance once the round settled
	Result       string // blackjack, win, loss, push or bust
}

// Statistics tracks aggregate results across many rounds
type Statistics struct {
	Rounds int
	Sum    float64
	Sum2   float64   // Sum of squares for variance calculation
	Values []float64 // Store all values for median/percentile calculation

	// Ledger - every round lands in exactly one bucket
	TotalWinnings int64 // Sum of positive winnings
	TotalLosses   int64 // Sum of |negative winnings|
	Net           int64 // Signed total for sanity check

	HighestBalance int64
	ResultCounts   map[string]int
}

// Add incorporates a new round result into the statistics
func (s *Statistics) Add(result RoundResult) {
	w := float64(result.Winnings)
	s.Rounds++
	s.Sum += w
	s.Sum2 += w * w
	s.Values = append(s.Values, w)

	switch {
	case result.Winnings > 0:
		s.TotalWinnings += result.Winnings
	case result.Winnings < 0:
		s.TotalLosses += -result.Winnings
	}
	s.Net += result.Winnings

	if s.Rounds == 1 || result.BalanceAfter > s.HighestBalance {
		s.HighestBalance = result.BalanceAfter
	}

	if s.ResultCounts == nil {
		s.ResultCounts = make(map[string]int)
	}
	s.ResultCounts[result.Result]++
}

// Mean returns the arithmetic mean winnings per round
func (s *Statistics) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.Sum / float64(s.Rounds)
}

// Variance returns the sample variance of all results
func (s *Statistics) Variance() float64 {
	if s.Rounds < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.Sum2 - float64(s.Rounds)*mean*mean) / float64(s.Rounds-1)
}

// StdDev returns the sample standard deviation of all results
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Rounds))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median value of all results
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Count returns how many rounds ended with the given result
func (s *Statistics) Count(result string) int {
	return s.ResultCounts[result]
}

// IsLedgerBalanced checks if the accounting is consistent
func (s *Statistics) IsLedgerBalanced() bool {
	return s.TotalWinnings-s.TotalLosses == s.Net
}

// Validate performs comprehensive validation of statistics data
func (s *Statistics) Validate() error {
	if !s.IsLedgerBalanced() {
		return fmt.Errorf("ledger mismatch: winnings=%d losses=%d net=%d",
			s.TotalWinnings, s.TotalLosses, s.Net)
	}

	if s.Rounds <= 0 {
		return fmt.Errorf("invalid rounds count: %d", s.Rounds)
	}

	if len(s.Values) != s.Rounds {
		return fmt.Errorf("values array length (%d) does not match rounds count (%d)",
			len(s.Values), s.Rounds)
	}

	total := 0
	for _, n := range s.ResultCounts {
		total += n
	}
	if total != s.Rounds {
		return fmt.Errorf("result counts total (%d) does not match rounds count (%d)", total, s.Rounds)
	}

	return nil
}
