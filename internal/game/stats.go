package game

import (
	"time"

	"github.com/lox/blackjack/internal/statistics"
)

// UserStatistics is the aggregate row refreshed whenever a session completes.
type UserStatistics struct {
	UserID         string    `json:"user_id"`
	GamesPlayed    int       `json:"games_played"`
	RoundsPlayed   int       `json:"rounds_played"`
	TotalWinnings  int64     `json:"total_winnings"`
	TotalLosses    int64     `json:"total_losses"`
	HighestBalance int64     `json:"highest_balance"`
	Blackjacks     int       `json:"blackjacks"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	Pushes         int       `json:"pushes"`
	Busts          int       `json:"busts"`
	MeanWinnings   float64   `json:"mean_winnings"`
	StdDevWinnings float64   `json:"stddev_winnings"`
	MedianWinnings float64   `json:"median_winnings"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ComputeStatistics folds a user's round history into aggregate statistics.
// gamesPlayed is the number of completed sessions.
func ComputeStatistics(userID string, rounds []RoundRecord, gamesPlayed int, now time.Time) *UserStatistics {
	var agg statistics.Statistics
	for _, r := range rounds {
		agg.Add(statistics.RoundResult{
			Winnings:     r.Winnings,
			BalanceAfter: r.BalanceAfter,
			Result:       string(r.Result),
		})
	}

	return &UserStatistics{
		UserID:         userID,
		GamesPlayed:    gamesPlayed,
		RoundsPlayed:   agg.Rounds,
		TotalWinnings:  agg.TotalWinnings,
		TotalLosses:    agg.TotalLosses,
		HighestBalance: agg.HighestBalance,
		Blackjacks:     agg.Count(string(ResultBlackjack)),
		Wins:           agg.Count(string(ResultWin)),
		Losses:         agg.Count(string(ResultLoss)),
		Pushes:         agg.Count(string(ResultPush)),
		Busts:          agg.Count(string(ResultBust)),
		MeanWinnings:   agg.Mean(),
		StdDevWinnings: agg.StdDev(),
		MedianWinnings: agg.Median(),
		UpdatedAt:      now,
	}
}
