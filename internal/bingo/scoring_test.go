package bingo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markRow(card *Card, row int) {
	for col := 0; col < 5; col++ {
		card.Cells[row][col].IsMarked = true
	}
}

func markColumn(card *Card, col int) {
	for row := 0; row < 5; row++ {
		card.Cells[row][col].IsMarked = true
	}
}

func TestRowAndColumnCompletion(t *testing.T) {
	card := GenerateCard("p")

	assert.False(t, IsRowComplete(card, 0))
	markRow(card, 0)
	assert.True(t, IsRowComplete(card, 0))

	assert.False(t, IsColumnComplete(card, 4))
	markColumn(card, 4)
	assert.True(t, IsColumnComplete(card, 4))
}

func TestCenterRowCompletesWithFourMarks(t *testing.T) {
	card := GenerateCard("p")

	// The free space already counts; only the four numbered cells remain.
	for col := 0; col < 5; col++ {
		if col == 2 {
			continue
		}
		card.Cells[2][col].IsMarked = true
	}
	assert.True(t, IsRowComplete(card, 2))
}

func TestDiagonalCompletion(t *testing.T) {
	card := GenerateCard("p")

	for i := 0; i < 5; i++ {
		card.Cells[i][i].IsMarked = true
	}
	assert.True(t, IsDiagonalComplete(card, 0))
	assert.False(t, IsDiagonalComplete(card, 1))

	for i := 0; i < 5; i++ {
		card.Cells[i][4-i].IsMarked = true
	}
	assert.True(t, IsDiagonalComplete(card, 1))
}

func TestFindNewlyCompletedLinesIsIdempotent(t *testing.T) {
	card := GenerateCard("p")
	markRow(card, 1)

	lines := FindNewlyCompletedLines(card, Position{Row: 1, Col: 3}, nil)
	require.Len(t, lines, 1)
	assert.Equal(t, LineRow, lines[0].Type)
	assert.Equal(t, 1, lines[0].Index)
	assert.Equal(t, LineBonusPoints, lines[0].BonusAwarded)

	// Re-checking the same position with the line recorded reports nothing.
	again := FindNewlyCompletedLines(card, Position{Row: 1, Col: 3}, lines)
	assert.Empty(t, again)
}

func TestFindNewlyCompletedLinesReportsRowAndColumnTogether(t *testing.T) {
	card := GenerateCard("p")
	markRow(card, 3)
	markColumn(card, 0)

	lines := FindNewlyCompletedLines(card, Position{Row: 3, Col: 0}, nil)
	require.Len(t, lines, 2)

	types := []LineType{lines[0].Type, lines[1].Type}
	assert.Contains(t, types, LineRow)
	assert.Contains(t, types, LineColumn)
}

func TestDiagonalsAwardNoBonus(t *testing.T) {
	card := GenerateCard("p")
	for i := 0; i < 5; i++ {
		card.Cells[i][i].IsMarked = true
	}

	lines := FindNewlyCompletedLines(card, Position{Row: 4, Col: 4}, nil)
	for _, line := range lines {
		assert.NotEqual(t, LineDiagonal, line.Type)
	}
}

func TestIsCardComplete(t *testing.T) {
	card := GenerateCard("p")
	assert.False(t, IsCardComplete(card))

	for row := 0; row < 5; row++ {
		markRow(card, row)
	}
	assert.True(t, IsCardComplete(card))
}

func TestTotalScore(t *testing.T) {
	assert.Equal(t, 0, TotalScore(0, nil))
	assert.Equal(t, 7, TotalScore(7, nil))

	lines := []CompletedLine{
		{Type: LineRow, Index: 0, BonusAwarded: LineBonusPoints},
		{Type: LineColumn, Index: 2, BonusAwarded: LineBonusPoints},
	}
	assert.Equal(t, 10+2*LineBonusPoints, TotalScore(10, lines))
}
