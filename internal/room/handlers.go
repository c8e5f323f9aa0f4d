package room

import (
	"log"
	"time"

	"github.com/cashly-rent-a-car/bingo/internal"
	"github.com/cashly-rent-a-car/bingo/internal/bingo"
)

// =============================================================================
// GAME COMMAND HANDLERS (all run on the actor goroutine)
// =============================================================================

// handleJoinRoom registers either the host controller or a player. The first
// arrival claims host only through the explicit empty-hostId check, never
// through any container ordering.
func (a *Actor) handleJoinRoom(conn internal.Conn, payload *internal.JoinRoomPayload) {
	isHost := payload.IsHost || (a.state.HostID == "" && len(a.state.Players) == 0)

	if isHost {
		a.state.HostID = conn.ID()
		a.state.HostName = "Host"
		a.saveState()
		a.broadcast(internal.HostConnectedPayload{HostID: conn.ID()})
		a.reportStats(internal.ReportUpdateRoom)
		return
	}

	player := &internal.Player{
		ID:             conn.ID(),
		Name:           payload.PlayerName,
		AvatarID:       payload.AvatarID,
		JoinedAt:       time.Now().UnixMilli(),
		IsConnected:    true,
		MarkedNumbers:  []int{},
		CompletedLines: []bingo.CompletedLine{},
	}

	isLateJoin := a.state.GamePhase == internal.PhasePlaying && a.state.Game != nil
	if isLateJoin {
		player.Card = bingo.GenerateCard(conn.ID())
		log.Printf("[Room %s] late join: %s gets a fresh card", a.pin, payload.PlayerName)
	}

	a.state.Players[conn.ID()] = player
	a.saveState()

	a.broadcast(internal.PlayerJoinedPayload{Player: player, IsLateJoin: isLateJoin})
	a.reportStats(internal.ReportUpdateRoom)

	if isLateJoin {
		a.send(conn, internal.LateJoinSuccessPayload{
			Card:        player.Card,
			DrawnBalls:  a.state.Game.DrawnBalls,
			CurrentBall: a.state.Game.CurrentBall,
			Ranking:     calculateRanking(a.state),
		})
	}
}

func (a *Actor) handleSelectAvatar(conn internal.Conn, payload *internal.SelectAvatarPayload) {
	player, ok := a.state.Players[conn.ID()]
	if !ok {
		return
	}

	player.AvatarID = payload.AvatarID
	a.saveState()
	a.broadcast(internal.AvatarChangedPayload{PlayerID: conn.ID(), AvatarID: payload.AvatarID})
}

// handleStartGame issues one card per player, builds the shuffled ball pool
// and moves the room to playing.
func (a *Actor) handleStartGame(conn internal.Conn) {
	if conn.ID() != a.state.HostID {
		a.sendError(conn, internal.ErrCodeNotHost, "only the host can start the game")
		return
	}
	if len(a.state.Players) < internal.MinPlayersToStart {
		a.sendError(conn, internal.ErrCodeNotEnoughPlayers, "at least 1 player is required")
		return
	}
	if a.state.GamePhase != internal.PhaseLobby {
		log.Printf("[Room %s] start ignored: phase=%s", a.pin, a.state.GamePhase)
		return
	}

	cards := make(map[string]*bingo.Card, len(a.state.Players))
	for playerID, player := range a.state.Players {
		card := bingo.GenerateCard(playerID)
		player.Card = card
		cards[playerID] = card
	}

	a.state.Game = &internal.GameState{
		DrawnBalls:     []bingo.Ball{},
		RemainingBalls: bingo.ShuffleBalls(bingo.NewBallPool()),
		Ranking:        calculateRanking(a.state),
		StartedAt:      time.Now().UnixMilli(),
	}
	a.state.GamePhase = internal.PhasePlaying
	a.saveState()

	log.Printf("[Room %s] game started with %d players", a.pin, len(cards))
	a.broadcast(internal.GameStartedPayload{Cards: cards})
	a.reportStats(internal.ReportUpdateRoom)
}

// handleDrawBall advances the draw. An exhausted pool is answered with an
// explicit error and no state change.
func (a *Actor) handleDrawBall(conn internal.Conn) {
	if conn.ID() != a.state.HostID {
		a.sendError(conn, internal.ErrCodeNotHost, "only the host can draw")
		return
	}
	if a.state.Game == nil || a.state.GamePhase != internal.PhasePlaying {
		return
	}

	game := a.state.Game
	ball, remaining, ok := bingo.DrawNext(game.RemainingBalls, len(game.DrawnBalls))
	if !ok {
		a.sendError(conn, internal.ErrCodeNoBallsLeft, "every ball has been drawn")
		return
	}

	game.CurrentBall = &ball
	game.DrawnBalls = append(game.DrawnBalls, ball)
	game.RemainingBalls = remaining
	a.saveState()

	a.broadcast(internal.BallDrawnPayload{Ball: ball, DrawnBalls: game.DrawnBalls})
}

// handleMarkNumber validates a mark against the draw history and the card.
// An undrawn number is an explicit valid:false ack so the client can animate
// the rejection; a wrong cell or an already marked cell is a stale duplicate
// and stays silent.
func (a *Actor) handleMarkNumber(conn internal.Conn, payload *internal.MarkNumberPayload) {
	player, ok := a.state.Players[conn.ID()]
	if !ok {
		a.sendError(conn, internal.ErrCodePlayerNotFound, "player not found")
		return
	}
	if player.Card == nil {
		a.sendError(conn, internal.ErrCodeNoCard, "player has no card")
		return
	}
	if a.state.Game == nil {
		a.sendError(conn, internal.ErrCodeNoGame, "game not started")
		return
	}

	pos := payload.Position
	if pos.Row < 0 || pos.Row > 4 || pos.Col < 0 || pos.Col > 4 {
		a.sendError(conn, internal.ErrCodeInvalidMessage, "position out of range")
		return
	}

	if !bingo.IsBallDrawn(a.state.Game.DrawnBalls, payload.Number) {
		a.send(conn, internal.NumberMarkedPayload{
			PlayerID:   conn.ID(),
			PlayerName: player.Name,
			Number:     payload.Number,
			Valid:      false,
			NewScore:   player.Score,
		})
		return
	}

	cell := &player.Card.Cells[pos.Row][pos.Col]
	if cell.Number == nil || *cell.Number != payload.Number || cell.IsMarked {
		return
	}

	cell.IsMarked = true
	player.MarkedNumbers = append(player.MarkedNumbers, payload.Number)

	newLines := bingo.FindNewlyCompletedLines(player.Card, pos, player.CompletedLines)
	player.CompletedLines = append(player.CompletedLines, newLines...)
	player.Score = bingo.TotalScore(len(player.MarkedNumbers), player.CompletedLines)

	for _, line := range newLines {
		a.broadcast(internal.LineCompletedPayload{
			PlayerID:   conn.ID(),
			PlayerName: player.Name,
			AvatarID:   player.AvatarID,
			LineType:   line.Type,
			NewScore:   player.Score,
		})
	}

	// A full card only flags completion; finishing is the player's explicit
	// CLAIM_BINGO.
	if bingo.IsCardComplete(player.Card) {
		player.HasBingo = true
	}

	a.saveState()

	a.send(conn, internal.NumberMarkedPayload{
		PlayerID:   conn.ID(),
		PlayerName: player.Name,
		Number:     payload.Number,
		Valid:      true,
		NewScore:   player.Score,
	})

	a.broadcastRanking()
}

// handleClaimBingo awards finish ranks in claim order. Only the first claim
// sets the winner; when everyone has claimed the game ends.
func (a *Actor) handleClaimBingo(conn internal.Conn) {
	player, ok := a.state.Players[conn.ID()]
	if !ok || player.Card == nil || a.state.Game == nil {
		return
	}

	if !bingo.IsCardComplete(player.Card) {
		a.sendError(conn, internal.ErrCodeInvalidBingo, "card is not complete")
		return
	}

	// Second claim from the same player: silently ignored.
	if player.BingoPosition != nil {
		return
	}

	now := time.Now().UnixMilli()
	player.HasBingo = true
	player.BingoCompletedAt = &now

	completedCount := 0
	for _, p := range a.state.Players {
		if p.BingoPosition != nil {
			completedCount++
		}
	}
	completedCount++
	position := completedCount
	player.BingoPosition = &position

	totalPlayers := len(a.state.Players)
	isFirstWinner := completedCount == 1
	if isFirstWinner {
		winnerID := conn.ID()
		a.state.Game.WinnerID = &winnerID
	}

	a.saveState()

	a.broadcast(internal.BingoWonPayload{
		WinnerID:       conn.ID(),
		WinnerName:     player.Name,
		WinnerAvatarID: player.AvatarID,
		FinalScores:    calculateRanking(a.state),
		IsFirstWinner:  isFirstWinner,
		CompletedCount: completedCount,
		TotalPlayers:   totalPlayers,
	})

	if completedCount == totalPlayers {
		endedAt := time.Now().UnixMilli()
		a.state.Game.EndedAt = &endedAt
		a.state.GamePhase = internal.PhaseEnded
		a.saveState()

		a.broadcast(internal.GameEndedPayload{
			Reason:      "all_completed",
			FinalScores: calculateRanking(a.state),
		})
		a.reportStats(internal.ReportUpdateRoom)
	}
}

// handleLeaveRoom is an explicit departure: removal is immediate in every
// phase, no grace period.
func (a *Actor) handleLeaveRoom(conn internal.Conn) {
	player, ok := a.state.Players[conn.ID()]
	if !ok {
		return
	}

	a.cancelDisconnectNotice(conn.ID())
	delete(a.state.Players, conn.ID())
	a.saveState()

	a.broadcast(internal.PlayerLeftPayload{PlayerID: conn.ID(), PlayerName: player.Name})
	a.reportStats(internal.ReportUpdateRoom)
}

// handleClaimHost reassigns control mid-game only; lobby takeovers are
// rejected so nobody hijacks a room during setup.
func (a *Actor) handleClaimHost(conn internal.Conn) {
	if a.state.GamePhase != internal.PhasePlaying {
		a.sendError(conn, internal.ErrCodeInvalidClaim, "host cannot be claimed right now")
		return
	}

	a.state.HostID = conn.ID()
	a.saveState()

	// Full state rebroadcast: every client re-derives the controller.
	a.broadcast(internal.RoomStatePayload{RoomState: a.state})
}

// handleReturnToLobby resets the room for a new round. Player identity
// survives; cards, marks, scores and every session are wiped so the old
// round's session mapping cannot leak into the new one.
func (a *Actor) handleReturnToLobby(conn internal.Conn) {
	if conn.ID() != a.state.HostID {
		a.sendError(conn, internal.ErrCodeNotHost, "only the host can return to the lobby")
		return
	}

	log.Printf("[Room %s] resetting to lobby for a new round", a.pin)

	for id, timer := range a.disconnectTimers {
		timer.Stop()
		delete(a.disconnectTimers, id)
	}

	a.state.GamePhase = internal.PhaseLobby
	a.state.Game = nil
	for _, player := range a.state.Players {
		player.Card = nil
		player.MarkedNumbers = []int{}
		player.Score = 0
		player.CompletedLines = []bingo.CompletedLine{}
		player.HasBingo = false
		player.BingoCompletedAt = nil
		player.BingoPosition = nil
	}
	a.state.Sessions = make(map[string]*internal.SessionInfo)
	a.saveState()

	a.broadcast(internal.ReturnedToLobbyPayload{Message: "preparing a new round"})
	a.broadcast(internal.RoomStatePayload{RoomState: a.state})
	a.reportStats(internal.ReportUpdateRoom)
}
