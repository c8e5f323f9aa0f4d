package bingo

import "time"

// =============================================================================
// SCORING ENGINE
// =============================================================================

type LineType string

const (
	LineRow      LineType = "row"
	LineColumn   LineType = "column"
	LineDiagonal LineType = "diagonal"
)

// CompletedLine records a finished line. Index is 0-4 for rows/columns and
// 0-1 for diagonals.
type CompletedLine struct {
	Type         LineType `json:"type"`
	Index        int      `json:"index"`
	CompletedAt  int64    `json:"completedAt"`
	BonusAwarded int      `json:"bonusAwarded"`
}

// IsRowComplete reports whether every cell of the row is marked.
func IsRowComplete(card *Card, row int) bool {
	for col := 0; col < 5; col++ {
		if !card.Cells[row][col].IsMarked {
			return false
		}
	}
	return true
}

// IsColumnComplete reports whether every cell of the column is marked.
func IsColumnComplete(card *Card, col int) bool {
	for row := 0; row < 5; row++ {
		if !card.Cells[row][col].IsMarked {
			return false
		}
	}
	return true
}

// IsDiagonalComplete checks diagonal 0 (top-left to bottom-right) or 1
// (top-right to bottom-left).
func IsDiagonalComplete(card *Card, diagonal int) bool {
	for i := 0; i < 5; i++ {
		col := i
		if diagonal == 1 {
			col = 4 - i
		}
		if !card.Cells[i][col].IsMarked {
			return false
		}
	}
	return true
}

// FindNewlyCompletedLines returns the lines through pos that just became
// complete and are not already in alreadyCompleted. Checking twice with the
// same completed list never re-reports a line. Only rows and columns are
// returned; diagonals award no bonus.
func FindNewlyCompletedLines(card *Card, pos Position, alreadyCompleted []CompletedLine) []CompletedLine {
	var newLines []CompletedLine
	now := time.Now().UnixMilli()

	if IsRowComplete(card, pos.Row) && !hasLine(alreadyCompleted, LineRow, pos.Row) {
		newLines = append(newLines, CompletedLine{
			Type:         LineRow,
			Index:        pos.Row,
			CompletedAt:  now,
			BonusAwarded: LineBonusPoints,
		})
	}

	if IsColumnComplete(card, pos.Col) && !hasLine(alreadyCompleted, LineColumn, pos.Col) {
		newLines = append(newLines, CompletedLine{
			Type:         LineColumn,
			Index:        pos.Col,
			CompletedAt:  now,
			BonusAwarded: LineBonusPoints,
		})
	}

	return newLines
}

// IsCardComplete reports a full card: every cell marked, free cell included.
func IsCardComplete(card *Card) bool {
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			if !card.Cells[row][col].IsMarked {
				return false
			}
		}
	}
	return true
}

// TotalScore is marked-number points plus the sum of awarded line bonuses.
func TotalScore(markedCount int, completedLines []CompletedLine) int {
	score := markedCount * NumberPoints
	for _, line := range completedLines {
		score += line.BonusAwarded
	}
	return score
}

func hasLine(lines []CompletedLine, lineType LineType, index int) bool {
	for _, line := range lines {
		if line.Type == lineType && line.Index == index {
			return true
		}
	}
	return false
}
