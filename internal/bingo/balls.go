package bingo

import (
	"sort"
	"time"
)

// =============================================================================
// BALL POOL / DRAWER
// =============================================================================

// Ball is one drawn ball. DrawnIndex is its position in the draw order,
// starting at 0.
type Ball struct {
	Number     int    `json:"number"`
	Column     Column `json:"column"`
	DrawnAt    int64  `json:"drawnAt"`
	DrawnIndex int    `json:"drawnIndex"`
}

// NewBallPool returns the full ordered set of balls 1..75.
func NewBallPool() []int {
	pool := make([]int, 75)
	for i := range pool {
		pool[i] = i + 1
	}
	return pool
}

// ShuffleBalls returns a shuffled copy of the pool. The pool is shuffled once
// at game start; drawing never reshuffles.
func ShuffleBalls(pool []int) []int {
	shuffled := make([]int, len(pool))
	copy(shuffled, pool)
	shuffleInts(shuffled)
	return shuffled
}

// DrawNext takes the head of the remaining sequence. It returns ok=false once
// the pool is exhausted; callers surface that as a non-fatal error.
func DrawNext(remaining []int, drawnIndex int) (Ball, []int, bool) {
	if len(remaining) == 0 {
		return Ball{}, remaining, false
	}

	number := remaining[0]
	rest := make([]int, len(remaining)-1)
	copy(rest, remaining[1:])

	ball := Ball{
		Number:     number,
		Column:     ColumnForNumber(number),
		DrawnAt:    time.Now().UnixMilli(),
		DrawnIndex: drawnIndex,
	}
	return ball, rest, true
}

// IsBallDrawn reports whether the number already appears in the draw history.
func IsBallDrawn(drawn []Ball, number int) bool {
	for _, ball := range drawn {
		if ball.Number == number {
			return true
		}
	}
	return false
}

// GroupBallsByColumn buckets drawn numbers per column, each sorted ascending,
// for board display.
func GroupBallsByColumn(drawn []Ball) map[Column][]int {
	grouped := map[Column][]int{
		ColumnB: {},
		ColumnI: {},
		ColumnN: {},
		ColumnG: {},
		ColumnO: {},
	}
	for _, ball := range drawn {
		grouped[ball.Column] = append(grouped[ball.Column], ball.Number)
	}
	for col := range grouped {
		sort.Ints(grouped[col])
	}
	return grouped
}
