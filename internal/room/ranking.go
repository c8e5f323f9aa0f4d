package room

import (
	"slices"

	"github.com/cashly-rent-a-car/bingo/internal"
)

// calculateRanking builds the leaderboard snapshot: players who completed a
// card rank first in claim order, everyone else by score. The ranking also
// carries connection status so clients can group online vs offline players.
func calculateRanking(state *internal.RoomState) []internal.RankingEntry {
	players := make([]*internal.Player, 0, len(state.Players))
	for _, p := range state.Players {
		players = append(players, p)
	}

	// Pre-order by join time so map iteration order never leaks into ties.
	slices.SortFunc(players, func(a, b *internal.Player) int {
		if a.JoinedAt != b.JoinedAt {
			return int(a.JoinedAt - b.JoinedAt)
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	slices.SortStableFunc(players, func(a, b *internal.Player) int {
		if a.HasBingo != b.HasBingo {
			if a.HasBingo {
				return -1
			}
			return 1
		}
		if a.HasBingo && b.HasBingo {
			return bingoPosition(a) - bingoPosition(b)
		}
		return b.Score - a.Score
	})

	ranking := make([]internal.RankingEntry, 0, len(players))
	for i, p := range players {
		ranking = append(ranking, internal.RankingEntry{
			PlayerID:         p.ID,
			PlayerName:       p.Name,
			AvatarID:         p.AvatarID,
			Score:            p.Score,
			LinesCompleted:   len(p.CompletedLines),
			Position:         i + 1,
			PreviousPosition: i + 1,
			IsConnected:      p.IsConnected,
		})
	}
	return ranking
}

// bingoPosition orders completed players by claim order; a completed card
// that was never claimed sorts after every claimant.
func bingoPosition(p *internal.Player) int {
	if p.BingoPosition == nil {
		return 999
	}
	return *p.BingoPosition
}
