package internal

import (
	"time"

	"github.com/cashly-rent-a-car/bingo/internal/bingo"
)

const (
	// DisconnectGrace is how long a mid-game disconnect stays unannounced so
	// page navigations can reconnect silently.
	DisconnectGrace = 3 * time.Second

	// RoomTTL bounds a room's lifetime and its persisted snapshot.
	RoomTTL = 24 * time.Hour

	// StatsExpiry is how long the aggregator keeps a room without activity.
	StatsExpiry = 25 * time.Hour

	MinPlayersToStart = 1
)

type GamePhase string

const (
	PhaseLobby   GamePhase = "lobby"
	PhasePlaying GamePhase = "playing"
	PhaseEnded   GamePhase = "ended"
)

// Player is one participant's authoritative record, keyed by the live
// connection id. Card is nil until a game starts or a late joiner is issued
// one.
type Player struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	AvatarID         string                `json:"avatarId"`
	JoinedAt         int64                 `json:"joinedAt"`
	IsHost           bool                  `json:"isHost"`
	IsConnected      bool                  `json:"isConnected"`
	Card             *bingo.Card           `json:"card"`
	MarkedNumbers    []int                 `json:"markedNumbers"`
	Score            int                   `json:"score"`
	CompletedLines   []bingo.CompletedLine `json:"completedLines"`
	HasBingo         bool                  `json:"hasBingo"`
	BingoCompletedAt *int64                `json:"bingoCompletedAt,omitempty"`
	BingoPosition    *int                  `json:"bingoPosition,omitempty"`
}

// SessionInfo survives reconnects: the token is what a browser presents to
// reclaim its player after the connection id changed.
type SessionInfo struct {
	SessionToken string   `json:"sessionToken"`
	PlayerID     string   `json:"playerId"`
	PlayerName   string   `json:"playerName"`
	AvatarID     string   `json:"avatarId"`
	IsHost       bool     `json:"isHost"`
	ActiveTabIDs []string `json:"activeTabIds"`
	CreatedAt    int64    `json:"createdAt"`
	LastSeenAt   int64    `json:"lastSeenAt"`
	IsConnected  bool     `json:"isConnected"`
}

// RankingEntry is one row of the room leaderboard. Players who completed
// their card rank first, ordered by completion; the rest order by score.
type RankingEntry struct {
	PlayerID         string `json:"playerId"`
	PlayerName       string `json:"playerName"`
	AvatarID         string `json:"avatarId"`
	Score            int    `json:"score"`
	LinesCompleted   int    `json:"linesCompleted"`
	Position         int    `json:"position"`
	PreviousPosition int    `json:"previousPosition"`
	IsConnected      bool   `json:"isConnected"`
}

// GameState exists only while gamePhase != lobby. DrawnBalls is append-only;
// drawn and remaining always partition 1..75.
type GameState struct {
	DrawnBalls     []bingo.Ball   `json:"drawnBalls"`
	RemainingBalls []int          `json:"remainingBalls"`
	CurrentBall    *bingo.Ball    `json:"currentBall"`
	Ranking        []RankingEntry `json:"ranking"`
	StartedAt      int64          `json:"startedAt"`
	EndedAt        *int64         `json:"endedAt"`
	WinnerID       *string        `json:"winnerId"`
}

// RoomState is the full authoritative state of one room. Only the room actor
// mutates it; it also serves as the persisted snapshot layout.
type RoomState struct {
	Pin       string                  `json:"pin"`
	MagicLink string                  `json:"magicLink"`
	CreatedAt int64                   `json:"createdAt"`
	ExpiresAt int64                   `json:"expiresAt"`
	HostID    string                  `json:"hostId"`
	HostName  string                  `json:"hostName"`
	Players   map[string]*Player      `json:"players"`
	GamePhase GamePhase               `json:"gamePhase"`
	Game      *GameState              `json:"game"`
	Sessions  map[string]*SessionInfo `json:"sessions"`
}

// NewRoomState initializes an empty lobby for the pin.
func NewRoomState(pin, magicLink string) *RoomState {
	now := time.Now().UnixMilli()
	return &RoomState{
		Pin:       pin,
		MagicLink: magicLink,
		CreatedAt: now,
		ExpiresAt: now + RoomTTL.Milliseconds(),
		Players:   make(map[string]*Player),
		GamePhase: PhaseLobby,
		Sessions:  make(map[string]*SessionInfo),
	}
}

// ConnectedCount counts players currently attached to a live connection.
func (s *RoomState) ConnectedCount() int {
	count := 0
	for _, p := range s.Players {
		if p.IsConnected {
			count++
		}
	}
	return count
}
