package game

import (
	"math"
	"time"
)

const (
	// MaxPoints is awarded for a correct answer at the instant the question opens.
	MaxPoints = 1000
	// MinPoints is awarded for a correct answer right at the deadline.
	MinPoints = MaxPoints / 2
)

// Score computes the points for one answer. Points decay linearly from
// MaxPoints at zero elapsed time to MinPoints at the end of the budget.
// Wrong answers, answers outside the window and empty budgets score 0.
func Score(correct bool, elapsed, budget time.Duration) int {
	if !correct || budget <= 0 || elapsed > budget {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}

	fraction := float64(elapsed) / float64(budget)
	return int(math.Round(MaxPoints * (1 - fraction/2)))
}

// elapsedFor derives the authoritative elapsed time from the room deadline.
// Client-reported time never enters the calculation.
func elapsedFor(now, deadline time.Time, budget time.Duration) time.Duration {
	return budget - deadline.Sub(now)
}
