// Package room implements the per-room state machine. Each room is a
// single-goroutine actor: every client command, transport close, and grace
// timer expiry is funneled through one inbox and executed strictly in
// arrival order, so the room state is never mutated concurrently.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cashly-rent-a-car/bingo/internal"
	"github.com/cashly-rent-a-car/bingo/internal/stats"
	"github.com/cashly-rent-a-car/bingo/internal/store"
)

const inboxSize = 256

// Actor owns the authoritative state of one room. All fields below inbox are
// touched only from the Run goroutine.
type Actor struct {
	pin       string
	magicLink string
	store     store.Store
	reporter  *stats.Reporter
	grace     time.Duration

	inbox    chan func()
	done     chan struct{}
	stopOnce sync.Once

	state            *internal.RoomState
	conns            map[string]internal.Conn
	disconnectTimers map[string]*time.Timer
}

// NewActor prepares a room actor; Run must be started on its own goroutine.
func NewActor(pin, magicLink string, st store.Store, reporter *stats.Reporter, grace time.Duration) *Actor {
	if grace <= 0 {
		grace = internal.DisconnectGrace
	}
	return &Actor{
		pin:              pin,
		magicLink:        magicLink,
		store:            st,
		reporter:         reporter,
		grace:            grace,
		inbox:            make(chan func(), inboxSize),
		done:             make(chan struct{}),
		state:            internal.NewRoomState(pin, magicLink),
		conns:            make(map[string]internal.Conn),
		disconnectTimers: make(map[string]*time.Timer),
	}
}

// Run restores the persisted snapshot, registers with the admin aggregator,
// and then drains the inbox until Stop.
func (a *Actor) Run() {
	a.restore()
	a.reportStats(internal.ReportRegisterRoom)

	for {
		select {
		case fn := <-a.inbox:
			fn()
		case <-a.done:
			return
		}
	}
}

// Stop shuts the actor down; extra calls are no-ops. Pending inbox entries
// are dropped; timers are left to fire into a closed inbox, where post
// discards them.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
}

// post enqueues work for the actor goroutine. After Stop it is a no-op.
func (a *Actor) post(fn func()) {
	select {
	case a.inbox <- fn:
	case <-a.done:
	}
}

// Pin returns the immutable room identifier.
func (a *Actor) Pin() string {
	return a.pin
}

// MagicLink returns the shareable join link for this room.
func (a *Actor) MagicLink() string {
	return a.magicLink
}

// Connect attaches a live connection and sends it the current room state.
func (a *Actor) Connect(conn internal.Conn) {
	a.post(func() {
		a.conns[conn.ID()] = conn
		a.send(conn, internal.RoomStatePayload{RoomState: a.state})
	})
}

// Disconnect handles a transport close for the given connection id.
func (a *Actor) Disconnect(connID string) {
	a.post(func() {
		a.handleClose(connID)
	})
}

// Dispatch routes one decoded client command. The switch is exhaustive over
// the closed ClientMessage set.
func (a *Actor) Dispatch(connID string, msg internal.ClientMessage) {
	a.post(func() {
		conn, ok := a.conns[connID]
		if !ok {
			return
		}

		switch m := msg.(type) {
		case *internal.JoinRoomPayload:
			a.handleJoinRoom(conn, m)
		case *internal.SelectAvatarPayload:
			a.handleSelectAvatar(conn, m)
		case *internal.StartGamePayload:
			a.handleStartGame(conn)
		case *internal.DrawBallPayload:
			a.handleDrawBall(conn)
		case *internal.MarkNumberPayload:
			a.handleMarkNumber(conn, m)
		case *internal.ClaimBingoPayload:
			a.handleClaimBingo(conn)
		case *internal.LeaveRoomPayload:
			a.handleLeaveRoom(conn)
		case *internal.ClaimHostPayload:
			a.handleClaimHost(conn)
		case *internal.RejoinGamePayload:
			a.handleRejoinGame(conn, m)
		case *internal.IdentifyPayload:
			a.handleIdentify(conn, m)
		case *internal.ReturnToLobbyPayload:
			a.handleReturnToLobby(conn)
		default:
			a.sendError(conn, internal.ErrCodeInvalidMessage, "unsupported message")
		}
	})
}

// Info answers a synchronous stats query through the inbox, so the snapshot
// it returns is consistent with command ordering.
func (a *Actor) Info() (internal.RoomStats, bool) {
	reply := make(chan internal.RoomStats, 1)
	a.post(func() {
		reply <- a.currentStats()
	})
	select {
	case info := <-reply:
		return info, true
	case <-a.done:
		return internal.RoomStats{}, false
	}
}

// handleClose implements the disconnect policy: hosts are dropped without
// ceremony, lobby players are removed immediately, mid-game players get the
// grace window before anyone is told.
func (a *Actor) handleClose(connID string) {
	defer delete(a.conns, connID)

	if connID == a.state.HostID {
		log.Printf("[Room %s] host connection %s closed", a.pin, connID)
		a.reportStats(internal.ReportUpdateRoom)
		return
	}

	player, ok := a.state.Players[connID]
	if !ok {
		return
	}

	player.IsConnected = false
	a.saveState()

	switch {
	case a.state.GamePhase == internal.PhaseLobby:
		delete(a.state.Players, connID)
		a.saveState()
		a.broadcast(internal.PlayerLeftPayload{PlayerID: connID, PlayerName: player.Name})
		a.reportStats(internal.ReportUpdateRoom)

	case a.state.GamePhase == internal.PhasePlaying && a.state.Game != nil:
		// Admin sees the connectivity change immediately; other players only
		// hear about it if the grace window passes without a reconnect.
		a.reportStats(internal.ReportUpdateRoom)
		a.scheduleDisconnectNotice(connID, player.Name)

	default:
		a.reportStats(internal.ReportUpdateRoom)
	}
}

// =============================================================================
// PERSISTENCE & STATS
// =============================================================================

func (a *Actor) stateKey() string {
	return a.pin + ":state"
}

// restore loads the snapshot written by a previous process, if any.
func (a *Actor) restore() {
	if a.store == nil {
		return
	}
	data, err := a.store.Get(context.Background(), a.stateKey())
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("[Room %s] snapshot restore failed: %v", a.pin, err)
		return
	}

	restored := &internal.RoomState{}
	if err := json.Unmarshal(data, restored); err != nil {
		log.Printf("[Room %s] snapshot unmarshal failed: %v", a.pin, err)
		return
	}
	if restored.Players == nil {
		restored.Players = make(map[string]*internal.Player)
	}
	if restored.Sessions == nil {
		restored.Sessions = make(map[string]*internal.SessionInfo)
	}
	a.state = restored
	log.Printf("[Room %s] restored snapshot (phase=%s, players=%d)", a.pin, restored.GamePhase, len(restored.Players))
}

// saveState snapshots the room after a mutating command. The marshal happens
// on the actor goroutine for consistency; only the write is detached, and a
// failure is a logged durability gap, never a gameplay error.
func (a *Actor) saveState() {
	if a.store == nil {
		return
	}
	data, err := json.Marshal(a.state)
	if err != nil {
		log.Printf("[Room %s] snapshot marshal failed: %v", a.pin, err)
		return
	}
	key := a.stateKey()
	go func() {
		if err := a.store.Put(context.Background(), key, data, internal.RoomTTL); err != nil {
			log.Printf("[Room %s] snapshot write failed: %v", a.pin, err)
		}
	}()
}

func (a *Actor) currentStats() internal.RoomStats {
	return internal.RoomStats{
		Pin:            a.state.Pin,
		GamePhase:      a.state.GamePhase,
		PlayerCount:    len(a.state.Players),
		ConnectedCount: a.state.ConnectedCount(),
		CreatedAt:      a.state.CreatedAt,
		LastActivity:   time.Now().UnixMilli(),
	}
}

// reportStats pushes a summary to the aggregator, fire and forget.
func (a *Actor) reportStats(reportType string) {
	if a.reporter == nil {
		return
	}
	report := internal.RoomReport{Type: reportType}
	if reportType == internal.ReportRemoveRoom {
		report.Pin = a.pin
	} else {
		current := a.currentStats()
		report.Stats = &current
	}
	go a.reporter.Report(report)
}

// =============================================================================
// OUTBOUND
// =============================================================================

func (a *Actor) send(conn internal.Conn, msg internal.ServerMessage) {
	data, err := internal.EncodeServerMessage(msg)
	if err != nil {
		log.Printf("[Room %s] encode %s failed: %v", a.pin, msg.ServerType(), err)
		return
	}
	if err := conn.Send(data); err != nil {
		log.Printf("[Room %s] send %s to %s failed: %v", a.pin, msg.ServerType(), conn.ID(), err)
	}
}

func (a *Actor) sendError(conn internal.Conn, code, message string) {
	a.send(conn, internal.ErrorPayload{Code: code, Message: message})
}

func (a *Actor) broadcast(msg internal.ServerMessage) {
	data, err := internal.EncodeServerMessage(msg)
	if err != nil {
		log.Printf("[Room %s] encode %s failed: %v", a.pin, msg.ServerType(), err)
		return
	}
	for id, conn := range a.conns {
		if err := conn.Send(data); err != nil {
			log.Printf("[Room %s] broadcast %s to %s failed: %v", a.pin, msg.ServerType(), id, err)
		}
	}
}

func (a *Actor) broadcastRanking() {
	if a.state.Game == nil {
		return
	}
	a.state.Game.Ranking = calculateRanking(a.state)
	a.broadcast(internal.RankingUpdatePayload{Ranking: a.state.Game.Ranking})
}
