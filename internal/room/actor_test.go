package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashly-rent-a-car/bingo/internal"
	"github.com/cashly-rent-a-car/bingo/internal/bingo"
	"github.com/cashly-rent-a-car/bingo/internal/store"
)

// fakeConn records every frame the room sends it, decoded.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames []internal.ServerMessage
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	msg, err := internal.DecodeServerMessage(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, msg)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) byType(serverType string) []internal.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []internal.ServerMessage
	for _, msg := range c.frames {
		if msg.ServerType() == serverType {
			matched = append(matched, msg)
		}
	}
	return matched
}

func (c *fakeConn) countType(serverType string) int {
	return len(c.byType(serverType))
}

func (c *fakeConn) last(t *testing.T, serverType string) internal.ServerMessage {
	t.Helper()
	matched := c.byType(serverType)
	require.NotEmpty(t, matched, "expected at least one %s frame", serverType)
	return matched[len(matched)-1]
}

const testGrace = 30 * time.Millisecond

func newTestActor(t *testing.T, st store.Store) *Actor {
	t.Helper()
	actor := NewActor("4821", "http://localhost:8080/sala/4821", st, nil, testGrace)
	go actor.Run()
	t.Cleanup(actor.Stop)
	return actor
}

// flush waits until every previously posted command has executed; Info goes
// through the same inbox, so its reply is a strict ordering barrier.
func flush(t *testing.T, a *Actor) {
	t.Helper()
	_, ok := a.Info()
	require.True(t, ok)
}

func connectHost(t *testing.T, a *Actor) *fakeConn {
	t.Helper()
	host := newFakeConn("host-conn")
	a.Connect(host)
	a.Dispatch(host.ID(), &internal.JoinRoomPayload{IsHost: true})
	flush(t, a)
	return host
}

func connectPlayer(t *testing.T, a *Actor, id, name string) *fakeConn {
	t.Helper()
	conn := newFakeConn(id)
	a.Connect(conn)
	a.Dispatch(conn.ID(), &internal.JoinRoomPayload{PlayerName: name, AvatarID: "cat"})
	flush(t, a)
	return conn
}

func startGame(t *testing.T, a *Actor, host *fakeConn) {
	t.Helper()
	a.Dispatch(host.ID(), &internal.StartGamePayload{})
	flush(t, a)
}

func drawAllBalls(t *testing.T, a *Actor, host *fakeConn) {
	t.Helper()
	for i := 0; i < 75; i++ {
		a.Dispatch(host.ID(), &internal.DrawBallPayload{})
	}
	flush(t, a)
	require.Equal(t, 75, host.countType(internal.TypeBallDrawn))
}

func cardFor(t *testing.T, conn *fakeConn, playerID string) *bingo.Card {
	t.Helper()
	started, ok := conn.last(t, internal.TypeGameStarted).(*internal.GameStartedPayload)
	require.True(t, ok)
	card, ok := started.Cards[playerID]
	require.True(t, ok, "no card issued for %s", playerID)
	return card
}

// markFullCard dispatches a mark for every numbered cell of the card.
func markFullCard(t *testing.T, a *Actor, conn *fakeConn, card *bingo.Card) {
	t.Helper()
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			cell := card.Cells[row][col]
			if cell.Number == nil {
				continue
			}
			a.Dispatch(conn.ID(), &internal.MarkNumberPayload{
				Number:   *cell.Number,
				Position: bingo.Position{Row: row, Col: col},
			})
		}
	}
	flush(t, a)
}

func TestStopIsIdempotent(t *testing.T) {
	actor := NewActor("4821", "http://localhost:8080/sala/4821", nil, nil, testGrace)
	go actor.Run()

	actor.Stop()
	assert.NotPanics(t, actor.Stop, "stopping twice must be a no-op")

	// A stopped actor refuses queries instead of blocking.
	_, ok := actor.Info()
	assert.False(t, ok)
}

func TestHostAndPlayerJoinFlow(t *testing.T) {
	actor := newTestActor(t, nil)

	host := connectHost(t, actor)
	hostConnected, ok := host.last(t, internal.TypeHostConnected).(*internal.HostConnectedPayload)
	require.True(t, ok)
	assert.Equal(t, host.ID(), hostConnected.HostID)

	player := connectPlayer(t, actor, "player-1", "Ana")
	joined, ok := host.last(t, internal.TypePlayerJoined).(*internal.PlayerJoinedPayload)
	require.True(t, ok)
	assert.Equal(t, "Ana", joined.Player.Name)
	assert.False(t, joined.IsLateJoin)
	assert.Nil(t, joined.Player.Card, "no card before the game starts")

	// Both ends received the initial room snapshot on connect.
	assert.GreaterOrEqual(t, player.countType(internal.TypeRoomState), 1)

	info, ok := actor.Info()
	require.True(t, ok)
	assert.Equal(t, "4821", info.Pin)
	assert.Equal(t, 1, info.PlayerCount)
	assert.Equal(t, internal.PhaseLobby, info.GamePhase)
}

func TestStartGameRequiresHost(t *testing.T) {
	actor := newTestActor(t, nil)
	connectHost(t, actor)
	player := connectPlayer(t, actor, "player-1", "Ana")

	actor.Dispatch(player.ID(), &internal.StartGamePayload{})
	flush(t, actor)

	errFrame, ok := player.last(t, internal.TypeError).(*internal.ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, internal.ErrCodeNotHost, errFrame.Code)
	assert.Zero(t, player.countType(internal.TypeGameStarted))
}

func TestStartGameDealsOneCardPerPlayer(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	connectPlayer(t, actor, "player-1", "Ana")
	player2 := connectPlayer(t, actor, "player-2", "Bea")

	startGame(t, actor, host)

	started, ok := player2.last(t, internal.TypeGameStarted).(*internal.GameStartedPayload)
	require.True(t, ok)
	assert.Len(t, started.Cards, 2)
	assert.Equal(t, "player-2", started.Cards["player-2"].PlayerID)

	info, _ := actor.Info()
	assert.Equal(t, internal.PhasePlaying, info.GamePhase)

	// A second START_GAME must not redeal.
	startGame(t, actor, host)
	assert.Equal(t, 1, player2.countType(internal.TypeGameStarted))
}

func TestDrawBallExhaustsPoolExactlyOnce(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	connectPlayer(t, actor, "player-1", "Ana")
	startGame(t, actor, host)

	drawAllBalls(t, actor, host)

	seen := make(map[int]bool)
	for _, frame := range host.byType(internal.TypeBallDrawn) {
		drawn := frame.(*internal.BallDrawnPayload)
		assert.False(t, seen[drawn.Ball.Number], "ball %d drawn twice", drawn.Ball.Number)
		seen[drawn.Ball.Number] = true
	}
	assert.Len(t, seen, 75)

	// Ball 76 does not exist: the draw is refused with an error.
	actor.Dispatch(host.ID(), &internal.DrawBallPayload{})
	flush(t, actor)
	errFrame := host.last(t, internal.TypeError).(*internal.ErrorPayload)
	assert.Equal(t, internal.ErrCodeNoBallsLeft, errFrame.Code)
	assert.Equal(t, 75, host.countType(internal.TypeBallDrawn))
}

func TestMarkUndrawnNumberRejected(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	player := connectPlayer(t, actor, "player-1", "Ana")
	startGame(t, actor, host)

	card := cardFor(t, player, "player-1")
	number := *card.Cells[0][0].Number

	actor.Dispatch(player.ID(), &internal.MarkNumberPayload{
		Number:   number,
		Position: bingo.Position{Row: 0, Col: 0},
	})
	flush(t, actor)

	marked, ok := player.last(t, internal.TypeNumberMarked).(*internal.NumberMarkedPayload)
	require.True(t, ok)
	assert.False(t, marked.Valid, "marking an undrawn number must be rejected")
	assert.Zero(t, marked.NewScore)
}

func TestMarkDrawnNumberScores(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	player := connectPlayer(t, actor, "player-1", "Ana")
	startGame(t, actor, host)
	drawAllBalls(t, actor, host)

	card := cardFor(t, player, "player-1")
	number := *card.Cells[1][3].Number

	actor.Dispatch(player.ID(), &internal.MarkNumberPayload{
		Number:   number,
		Position: bingo.Position{Row: 1, Col: 3},
	})
	flush(t, actor)

	marked := player.last(t, internal.TypeNumberMarked).(*internal.NumberMarkedPayload)
	assert.True(t, marked.Valid)
	assert.Equal(t, bingo.NumberPoints, marked.NewScore)

	// Re-marking the same cell is a stale duplicate: no second ack.
	actor.Dispatch(player.ID(), &internal.MarkNumberPayload{
		Number:   number,
		Position: bingo.Position{Row: 1, Col: 3},
	})
	flush(t, actor)
	assert.Equal(t, 1, player.countType(internal.TypeNumberMarked))
}

func TestFullCardClaimWinsAndEndsGame(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	player := connectPlayer(t, actor, "player-1", "Ana")
	startGame(t, actor, host)
	drawAllBalls(t, actor, host)

	card := cardFor(t, player, "player-1")
	markFullCard(t, actor, player, card)

	// 24 numbers plus 10 line bonuses (5 rows, 5 columns, no diagonals).
	wantScore := 24*bingo.NumberPoints + 10*bingo.LineBonusPoints
	marked := player.last(t, internal.TypeNumberMarked).(*internal.NumberMarkedPayload)
	assert.Equal(t, wantScore, marked.NewScore)
	assert.Equal(t, 10, player.countType(internal.TypeLineCompleted))

	actor.Dispatch(player.ID(), &internal.ClaimBingoPayload{})
	flush(t, actor)

	won := player.last(t, internal.TypeBingoWon).(*internal.BingoWonPayload)
	assert.Equal(t, "player-1", won.WinnerID)
	assert.True(t, won.IsFirstWinner)
	assert.Equal(t, 1, won.CompletedCount)
	assert.Equal(t, 1, won.TotalPlayers)

	ended := player.last(t, internal.TypeGameEnded).(*internal.GameEndedPayload)
	assert.Equal(t, "all_completed", ended.Reason)
	require.NotEmpty(t, ended.FinalScores)
	assert.Equal(t, wantScore, ended.FinalScores[0].Score)

	info, _ := actor.Info()
	assert.Equal(t, internal.PhaseEnded, info.GamePhase)
}

func TestClaimBingoRequiresCompleteCard(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	player := connectPlayer(t, actor, "player-1", "Ana")
	startGame(t, actor, host)

	actor.Dispatch(player.ID(), &internal.ClaimBingoPayload{})
	flush(t, actor)

	errFrame := player.last(t, internal.TypeError).(*internal.ErrorPayload)
	assert.Equal(t, internal.ErrCodeInvalidBingo, errFrame.Code)
	assert.Zero(t, player.countType(internal.TypeBingoWon))
}

func TestSecondClaimIsIgnored(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	player1 := connectPlayer(t, actor, "player-1", "Ana")
	connectPlayer(t, actor, "player-2", "Bea")
	startGame(t, actor, host)
	drawAllBalls(t, actor, host)

	card := cardFor(t, player1, "player-1")
	markFullCard(t, actor, player1, card)

	actor.Dispatch(player1.ID(), &internal.ClaimBingoPayload{})
	actor.Dispatch(player1.ID(), &internal.ClaimBingoPayload{})
	flush(t, actor)

	require.Equal(t, 1, player1.countType(internal.TypeBingoWon))
	won := player1.last(t, internal.TypeBingoWon).(*internal.BingoWonPayload)
	assert.True(t, won.IsFirstWinner)
	assert.Equal(t, 2, won.TotalPlayers)

	// One pending claimant remains, so the game keeps going.
	info, _ := actor.Info()
	assert.Equal(t, internal.PhasePlaying, info.GamePhase)
}

func TestLateJoinReceivesCardAndHistory(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	connectPlayer(t, actor, "player-1", "Ana")
	startGame(t, actor, host)

	actor.Dispatch(host.ID(), &internal.DrawBallPayload{})
	actor.Dispatch(host.ID(), &internal.DrawBallPayload{})
	flush(t, actor)

	late := connectPlayer(t, actor, "player-2", "Caro")

	joined := host.last(t, internal.TypePlayerJoined).(*internal.PlayerJoinedPayload)
	assert.True(t, joined.IsLateJoin)

	success, ok := late.last(t, internal.TypeLateJoinSuccess).(*internal.LateJoinSuccessPayload)
	require.True(t, ok)
	require.NotNil(t, success.Card)
	assert.Equal(t, "player-2", success.Card.PlayerID)
	assert.Len(t, success.DrawnBalls, 2)
	require.NotNil(t, success.CurrentBall)
	assert.Equal(t, success.DrawnBalls[1].Number, success.CurrentBall.Number)
}

func TestLeaveRoomRemovesImmediately(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	player := connectPlayer(t, actor, "player-1", "Ana")

	actor.Dispatch(player.ID(), &internal.LeaveRoomPayload{})
	flush(t, actor)

	left := host.last(t, internal.TypePlayerLeft).(*internal.PlayerLeftPayload)
	assert.Equal(t, "player-1", left.PlayerID)
	assert.Equal(t, "Ana", left.PlayerName)

	info, _ := actor.Info()
	assert.Zero(t, info.PlayerCount)
}

func TestClaimHostOnlyMidGame(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	player := connectPlayer(t, actor, "player-1", "Ana")

	actor.Dispatch(player.ID(), &internal.ClaimHostPayload{})
	flush(t, actor)
	errFrame := player.last(t, internal.TypeError).(*internal.ErrorPayload)
	assert.Equal(t, internal.ErrCodeInvalidClaim, errFrame.Code)

	startGame(t, actor, host)
	actor.Dispatch(player.ID(), &internal.ClaimHostPayload{})
	flush(t, actor)

	state := player.last(t, internal.TypeRoomState).(*internal.RoomStatePayload)
	assert.Equal(t, "player-1", state.HostID)
}

func TestReturnToLobbyResetsPlayersAndSessions(t *testing.T) {
	actor := newTestActor(t, nil)
	host := connectHost(t, actor)
	player := connectPlayer(t, actor, "player-1", "Ana")

	// Mint a session during the round so the reset has something to clear.
	actor.Dispatch(player.ID(), &internal.IdentifyPayload{TabID: "tab-1", PlayerName: "Ana"})
	flush(t, actor)
	confirmed := player.last(t, internal.TypeIdentityConfirmed).(*internal.IdentityConfirmedPayload)
	token := confirmed.SessionToken
	require.NotEmpty(t, token)

	startGame(t, actor, host)
	drawAllBalls(t, actor, host)

	actor.Dispatch(host.ID(), &internal.ReturnToLobbyPayload{})
	flush(t, actor)

	assert.Equal(t, 1, player.countType(internal.TypeReturnedToLobby))
	state := player.last(t, internal.TypeRoomState).(*internal.RoomStatePayload)
	assert.Equal(t, internal.PhaseLobby, state.GamePhase)
	assert.Nil(t, state.Game)
	for _, p := range state.Players {
		assert.Nil(t, p.Card)
		assert.Zero(t, p.Score)
		assert.False(t, p.HasBingo)
	}

	// The old round's session token no longer identifies anyone.
	actor.Dispatch(player.ID(), &internal.IdentifyPayload{SessionToken: &token, TabID: "tab-1"})
	flush(t, actor)
	rejected := player.last(t, internal.TypeIdentityRejected).(*internal.IdentityRejectedPayload)
	assert.Equal(t, internal.RejectReasonSessionExpired, rejected.Reason)
}
