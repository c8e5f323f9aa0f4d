package bingo

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// BINGO 75 CARD GENERATION
// =============================================================================

type Column string

const (
	ColumnB Column = "B"
	ColumnI Column = "I"
	ColumnN Column = "N"
	ColumnG Column = "G"
	ColumnO Column = "O"
)

// ColumnOrder is the left-to-right column layout of a card.
var ColumnOrder = [5]Column{ColumnB, ColumnI, ColumnN, ColumnG, ColumnO}

// ColumnRange holds the inclusive number range a column draws from.
type ColumnRange struct {
	Min int
	Max int
}

// ColumnRanges are the fixed Bingo 75 ranges: B 1-15, I 16-30, N 31-45,
// G 46-60, O 61-75.
var ColumnRanges = map[Column]ColumnRange{
	ColumnB: {Min: 1, Max: 15},
	ColumnI: {Min: 16, Max: 30},
	ColumnN: {Min: 31, Max: 45},
	ColumnG: {Min: 46, Max: 60},
	ColumnO: {Min: 61, Max: 75},
}

const (
	// NumberPoints is awarded per marked number.
	NumberPoints = 1
	// LineBonusPoints is awarded per completed row or column. Diagonals are
	// tracked for display but award nothing.
	LineBonusPoints = 5
)

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Cell is one square of a card. Number is nil only for the free center cell.
type Cell struct {
	Number      *int   `json:"number"`
	Column      Column `json:"column"`
	IsMarked    bool   `json:"isMarked"`
	IsFreeSpace bool   `json:"isFreeSpace"`
}

// Card is a 5x5 grid indexed [row][col]. The center cell (2,2) carries no
// number and starts marked.
type Card struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"playerId"`
	Cells       [5][5]Cell `json:"cells"`
	GeneratedAt int64      `json:"generatedAt"`
}

// GenerateCard builds a card for playerId: each column gets 5 distinct
// numbers from its fixed range via a Fisher-Yates shuffle, and the center
// cell becomes the pre-marked free space.
func GenerateCard(playerID string) *Card {
	card := &Card{
		ID:          "card_" + uuid.NewString(),
		PlayerID:    playerID,
		GeneratedAt: time.Now().UnixMilli(),
	}

	for col := 0; col < 5; col++ {
		column := ColumnOrder[col]
		r := ColumnRanges[column]

		pool := make([]int, 0, r.Max-r.Min+1)
		for n := r.Min; n <= r.Max; n++ {
			pool = append(pool, n)
		}
		shuffleInts(pool)

		next := 0
		for row := 0; row < 5; row++ {
			if row == 2 && col == 2 {
				card.Cells[row][col] = Cell{
					Number:      nil,
					Column:      column,
					IsMarked:    true,
					IsFreeSpace: true,
				}
				continue
			}
			n := pool[next]
			next++
			card.Cells[row][col] = Cell{
				Number: &n,
				Column: column,
			}
		}
	}

	return card
}

// FindNumber locates a number on the card.
func (c *Card) FindNumber(number int) (Position, bool) {
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			cell := c.Cells[row][col]
			if cell.Number != nil && *cell.Number == number {
				return Position{Row: row, Col: col}, true
			}
		}
	}
	return Position{}, false
}

// ContainsNumber reports whether the number appears anywhere on the card.
func (c *Card) ContainsNumber(number int) bool {
	_, ok := c.FindNumber(number)
	return ok
}

// ColumnForNumber derives the column purely from the number.
func ColumnForNumber(number int) Column {
	switch {
	case number >= 1 && number <= 15:
		return ColumnB
	case number >= 16 && number <= 30:
		return ColumnI
	case number >= 31 && number <= 45:
		return ColumnN
	case number >= 46 && number <= 60:
		return ColumnG
	default:
		return ColumnO
	}
}

// shuffleInts is an in-place Fisher-Yates shuffle.
func shuffleInts(nums []int) {
	for i := len(nums) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		nums[i], nums[j] = nums[j], nums[i]
	}
}
