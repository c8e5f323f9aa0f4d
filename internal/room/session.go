package room

import (
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/cashly-rent-a-car/bingo/internal"
	"github.com/cashly-rent-a-car/bingo/internal/bingo"
)

// =============================================================================
// IDENTITY, SESSIONS & RECONNECTION
// =============================================================================

// handleIdentify is the session handshake. A known token rebinds the caller
// to its previous player record; an unknown token is rejected so the client
// can fall back to a fresh join; no token mints a new session.
func (a *Actor) handleIdentify(conn internal.Conn, payload *internal.IdentifyPayload) {
	if payload.SessionToken != nil {
		session, ok := a.state.Sessions[*payload.SessionToken]
		if ok {
			a.reconnectSession(conn, payload, session)
			return
		}
		log.Printf("[Room %s] identify with unknown token from %s", a.pin, conn.ID())
		a.send(conn, internal.IdentityRejectedPayload{
			Reason:  internal.RejectReasonSessionExpired,
			Message: "Session expired. Please join again.",
		})
		return
	}

	a.createSession(conn, payload)
}

// reconnectSession rewires a returning client onto its existing identity.
// The player key moves from the old connection id to the new one in a single
// step, together with every reference to it.
func (a *Actor) reconnectSession(conn internal.Conn, payload *internal.IdentifyPayload, session *internal.SessionInfo) {
	oldID := session.PlayerID
	a.cancelDisconnectNotice(oldID)

	session.PlayerID = conn.ID()
	session.LastSeenAt = time.Now().UnixMilli()
	session.IsConnected = true
	if payload.TabID != "" && !slices.Contains(session.ActiveTabIDs, payload.TabID) {
		session.ActiveTabIDs = append(session.ActiveTabIDs, payload.TabID)
	}

	if !session.IsHost {
		if _, ok := a.state.Players[oldID]; ok {
			a.rebindPlayer(oldID, conn.ID())
			a.state.Players[conn.ID()].IsConnected = true
		}
	}
	if session.IsHost {
		a.state.HostID = conn.ID()
	}

	a.saveState()
	log.Printf("[Room %s] %s reconnected as %s (was %s)", a.pin, session.PlayerName, conn.ID(), oldID)

	confirmed := internal.IdentityConfirmedPayload{
		SessionToken:   session.SessionToken,
		PlayerID:       conn.ID(),
		IsReconnection: true,
		PlayerName:     session.PlayerName,
		AvatarID:       session.AvatarID,
		IsHost:         session.IsHost,
		GamePhase:      a.state.GamePhase,
	}
	if player, ok := a.state.Players[conn.ID()]; ok {
		confirmed.Card = player.Card
		confirmed.MarkedNumbers = player.MarkedNumbers
	}
	if a.state.Game != nil {
		confirmed.DrawnBalls = a.state.Game.DrawnBalls
		confirmed.CurrentBall = a.state.Game.CurrentBall
		confirmed.Ranking = calculateRanking(a.state)
	}

	a.send(conn, confirmed)
	a.send(conn, internal.RoomStatePayload{RoomState: a.state})
	a.broadcastRanking()
}

// createSession mints a fresh identity for a first-time connection.
func (a *Actor) createSession(conn internal.Conn, payload *internal.IdentifyPayload) {
	token := uuid.NewString()
	now := time.Now().UnixMilli()

	session := &internal.SessionInfo{
		SessionToken: token,
		PlayerID:     conn.ID(),
		PlayerName:   payload.PlayerName,
		AvatarID:     payload.AvatarID,
		IsHost:       payload.IsHost,
		ActiveTabIDs: []string{payload.TabID},
		CreatedAt:    now,
		LastSeenAt:   now,
		IsConnected:  true,
	}
	a.state.Sessions[token] = session

	confirmed := internal.IdentityConfirmedPayload{
		SessionToken:   token,
		PlayerID:       conn.ID(),
		IsReconnection: false,
		PlayerName:     payload.PlayerName,
		AvatarID:       payload.AvatarID,
		IsHost:         payload.IsHost,
		GamePhase:      a.state.GamePhase,
	}

	if payload.IsHost {
		a.state.HostID = conn.ID()
		a.state.HostName = "Host"
		a.saveState()
		a.send(conn, confirmed)
		a.send(conn, internal.RoomStatePayload{RoomState: a.state})
		return
	}

	if payload.PlayerName != "" {
		player := &internal.Player{
			ID:             conn.ID(),
			Name:           payload.PlayerName,
			AvatarID:       payload.AvatarID,
			JoinedAt:       now,
			IsConnected:    true,
			MarkedNumbers:  []int{},
			CompletedLines: []bingo.CompletedLine{},
		}

		if a.state.GamePhase == internal.PhasePlaying && a.state.Game != nil {
			player.Card = bingo.GenerateCard(conn.ID())
			a.state.Players[conn.ID()] = player
			a.saveState()

			a.broadcast(internal.PlayerJoinedPayload{Player: player, IsLateJoin: true})
			a.reportStats(internal.ReportUpdateRoom)

			confirmed.Card = player.Card
			confirmed.DrawnBalls = a.state.Game.DrawnBalls
			confirmed.CurrentBall = a.state.Game.CurrentBall
			confirmed.Ranking = calculateRanking(a.state)
			a.send(conn, confirmed)
			a.send(conn, internal.RoomStatePayload{RoomState: a.state})
			return
		}

		a.state.Players[conn.ID()] = player
		a.broadcast(internal.PlayerJoinedPayload{Player: player, IsLateJoin: false})
		a.reportStats(internal.ReportUpdateRoom)
		confirmed.MarkedNumbers = player.MarkedNumbers
	}

	a.saveState()

	if a.state.Game != nil {
		confirmed.DrawnBalls = a.state.Game.DrawnBalls
		confirmed.CurrentBall = a.state.Game.CurrentBall
	}

	a.send(conn, confirmed)
	a.send(conn, internal.RoomStatePayload{RoomState: a.state})
}

// handleRejoinGame is the legacy reconnect path: the client still knows its
// previous player id and asks to carry that record over to the new socket.
func (a *Actor) handleRejoinGame(conn internal.Conn, payload *internal.RejoinGamePayload) {
	if payload.OldPlayerID == "" {
		a.sendError(conn, internal.ErrCodeRejoinError, "no previous player to rejoin as")
		return
	}

	a.cancelDisconnectNotice(payload.OldPlayerID)

	old, ok := a.state.Players[payload.OldPlayerID]
	if !ok {
		a.sendError(conn, internal.ErrCodePlayerNotFound, "previous player not found")
		return
	}
	if old.Card == nil {
		a.sendError(conn, internal.ErrCodeNoCard, "previous player has no card")
		return
	}

	a.rebindPlayer(payload.OldPlayerID, conn.ID())
	player := a.state.Players[conn.ID()]
	player.IsConnected = true
	a.saveState()

	log.Printf("[Room %s] %s rejoined as %s (was %s)", a.pin, player.Name, conn.ID(), payload.OldPlayerID)

	success := internal.RejoinSuccessPayload{
		PlayerID:      conn.ID(),
		Card:          player.Card,
		MarkedNumbers: player.MarkedNumbers,
		DrawnBalls:    []bingo.Ball{},
	}
	if a.state.Game != nil {
		success.DrawnBalls = a.state.Game.DrawnBalls
		success.CurrentBall = a.state.Game.CurrentBall
	}

	a.send(conn, success)
	a.broadcastRanking()
}

// rebindPlayer moves a player record to a new connection id and rewrites
// every reference in one step, so no command can ever see the old and new ids
// pointing at different records.
func (a *Actor) rebindPlayer(oldID, newID string) {
	player, ok := a.state.Players[oldID]
	if !ok {
		return
	}

	delete(a.state.Players, oldID)
	player.ID = newID
	if player.Card != nil {
		player.Card.PlayerID = newID
	}
	a.state.Players[newID] = player

	for _, session := range a.state.Sessions {
		if session.PlayerID == oldID {
			session.PlayerID = newID
		}
	}
	if a.state.HostID == oldID {
		a.state.HostID = newID
	}
	if a.state.Game != nil && a.state.Game.WinnerID != nil && *a.state.Game.WinnerID == oldID {
		winnerID := newID
		a.state.Game.WinnerID = &winnerID
	}
	if timer, ok := a.disconnectTimers[oldID]; ok {
		delete(a.disconnectTimers, oldID)
		a.disconnectTimers[newID] = timer
	}
}

// =============================================================================
// DISCONNECT GRACE TIMERS
// =============================================================================

// scheduleDisconnectNotice arms the grace timer for a mid-game disconnect.
// The expiry posts back into the inbox and re-reads the live state, so a
// reconnect inside the window wins regardless of timer scheduling.
func (a *Actor) scheduleDisconnectNotice(playerID, playerName string) {
	if timer, ok := a.disconnectTimers[playerID]; ok {
		timer.Stop()
		delete(a.disconnectTimers, playerID)
	}

	a.disconnectTimers[playerID] = time.AfterFunc(a.grace, func() {
		a.post(func() {
			a.finishDisconnect(playerID, playerName)
		})
	})
}

// finishDisconnect runs when the grace window elapsed without a reconnect.
func (a *Actor) finishDisconnect(playerID, playerName string) {
	delete(a.disconnectTimers, playerID)

	player, ok := a.state.Players[playerID]
	if !ok || player.IsConnected {
		return
	}

	log.Printf("[Room %s] %s did not return within the grace window", a.pin, playerName)
	a.broadcast(internal.PlayerDisconnectedPayload{PlayerID: playerID, PlayerName: playerName})
	a.broadcastRanking()
}

func (a *Actor) cancelDisconnectNotice(playerID string) {
	if timer, ok := a.disconnectTimers[playerID]; ok {
		timer.Stop()
		delete(a.disconnectTimers, playerID)
	}
}
