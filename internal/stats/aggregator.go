package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cashly-rent-a-car/bingo/internal"
	"github.com/cashly-rent-a-car/bingo/internal/store"
)

const statsKey = "stats"

// Aggregator mirrors per-room summaries for the admin dashboard. It is a
// single-goroutine actor like the rooms: HTTP ingests and dashboard socket
// events are funneled through one inbox, so the stats map needs no locking.
// Rooms are deduplicated by pin (last write wins) and dropped after 25 hours
// without activity.
type Aggregator struct {
	password string
	store    store.Store

	inbox    chan func()
	done     chan struct{}
	stopOnce sync.Once

	stats         internal.AdminStats
	conns         map[string]internal.Conn
	authenticated map[string]bool
}

func NewAggregator(password string, st store.Store) *Aggregator {
	return &Aggregator{
		password: password,
		store:    st,
		inbox:    make(chan func(), 64),
		done:     make(chan struct{}),
		stats: internal.AdminStats{
			Rooms:      make(map[string]internal.RoomStats),
			LastUpdate: time.Now().UnixMilli(),
		},
		conns:         make(map[string]internal.Conn),
		authenticated: make(map[string]bool),
	}
}

// Run drains the inbox until Stop. It restores persisted stats first and
// sweeps expired rooms hourly.
func (a *Aggregator) Run() {
	a.restore()
	a.expireStale()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case fn := <-a.inbox:
			fn()
		case <-ticker.C:
			a.post(a.expireStale)
		case <-a.done:
			return
		}
	}
}

// Stop shuts the aggregator down; extra calls are no-ops.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
}

func (a *Aggregator) post(fn func()) {
	select {
	case a.inbox <- fn:
	case <-a.done:
	}
}

// HandleReport ingests one HTTP side-channel report from a room.
func (a *Aggregator) HandleReport(report internal.RoomReport) {
	a.post(func() {
		switch report.Type {
		case internal.ReportRegisterRoom, internal.ReportUpdateRoom:
			if report.Stats == nil {
				return
			}
			a.stats.Rooms[report.Stats.Pin] = *report.Stats
			a.recalculateTotals()
			a.save()
			if report.Type == internal.ReportRegisterRoom {
				a.broadcast(internal.RoomRegisteredPayload{RoomStats: *report.Stats})
			} else {
				a.broadcast(internal.RoomUpdatedPayload{RoomStats: *report.Stats})
			}
			log.Printf("[Aggregator] %s pin=%s players=%d", report.Type, report.Stats.Pin, report.Stats.PlayerCount)

		case internal.ReportRemoveRoom:
			delete(a.stats.Rooms, report.Pin)
			a.recalculateTotals()
			a.save()
			a.broadcast(internal.RoomRemovedPayload{Pin: report.Pin})
			log.Printf("[Aggregator] room removed pin=%s", report.Pin)
		}
	})
}

// Connect registers a dashboard socket; it must authenticate before
// receiving anything.
func (a *Aggregator) Connect(conn internal.Conn) {
	a.post(func() {
		a.conns[conn.ID()] = conn
		log.Printf("[Aggregator] dashboard connection %s", conn.ID())
	})
}

func (a *Aggregator) Disconnect(connID string) {
	a.post(func() {
		delete(a.conns, connID)
		delete(a.authenticated, connID)
	})
}

// Dispatch handles one dashboard message.
func (a *Aggregator) Dispatch(connID string, msg internal.AdminClientMessage) {
	a.post(func() {
		conn, ok := a.conns[connID]
		if !ok {
			return
		}

		switch m := msg.(type) {
		case *internal.AuthenticatePayload:
			if m.Password == a.password {
				a.authenticated[connID] = true
				a.send(conn, internal.AuthSuccessPayload{})
				a.send(conn, internal.StatsUpdatePayload{AdminStats: a.stats})
				log.Printf("[Aggregator] dashboard authenticated: %s", connID)
			} else {
				a.send(conn, internal.AuthFailedPayload{Message: "incorrect password"})
			}

		case *internal.RequestStatsPayload:
			if a.authenticated[connID] {
				a.send(conn, internal.StatsUpdatePayload{AdminStats: a.stats})
			}
		}
	})
}

func (a *Aggregator) expireStale() {
	cutoff := time.Now().UnixMilli() - internal.StatsExpiry.Milliseconds()
	removed := 0
	for pin, room := range a.stats.Rooms {
		if room.LastActivity < cutoff {
			delete(a.stats.Rooms, pin)
			removed++
		}
	}
	if removed > 0 {
		a.recalculateTotals()
		a.save()
		log.Printf("[Aggregator] expired %d stale rooms", removed)
	}
}

func (a *Aggregator) recalculateTotals() {
	a.stats.TotalRooms = len(a.stats.Rooms)
	a.stats.TotalPlayers = 0
	for _, room := range a.stats.Rooms {
		a.stats.TotalPlayers += room.ConnectedCount
	}
	a.stats.LastUpdate = time.Now().UnixMilli()
}

func (a *Aggregator) send(conn internal.Conn, msg internal.AdminServerMessage) {
	data, err := internal.EncodeAdminServerMessage(msg)
	if err != nil {
		log.Printf("[Aggregator] encode %s failed: %v", msg.AdminServerType(), err)
		return
	}
	if err := conn.Send(data); err != nil {
		log.Printf("[Aggregator] send to %s failed: %v", conn.ID(), err)
	}
}

func (a *Aggregator) broadcast(msg internal.AdminServerMessage) {
	for id, conn := range a.conns {
		if a.authenticated[id] {
			a.send(conn, msg)
		}
	}
}

func (a *Aggregator) restore() {
	if a.store == nil {
		return
	}
	data, err := a.store.Get(context.Background(), statsKey)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("[Aggregator] restore failed: %v", err)
		return
	}
	var stored internal.AdminStats
	if err := json.Unmarshal(data, &stored); err != nil {
		log.Printf("[Aggregator] restore unmarshal failed: %v", err)
		return
	}
	if stored.Rooms == nil {
		stored.Rooms = make(map[string]internal.RoomStats)
	}
	a.stats = stored
	log.Printf("[Aggregator] restored stats for %d rooms", len(a.stats.Rooms))
}

func (a *Aggregator) save() {
	if a.store == nil {
		return
	}
	data, err := json.Marshal(a.stats)
	if err != nil {
		log.Printf("[Aggregator] marshal stats failed: %v", err)
		return
	}
	go func() {
		if err := a.store.Put(context.Background(), statsKey, data, 0); err != nil {
			log.Printf("[Aggregator] persist stats failed: %v", err)
		}
	}()
}
