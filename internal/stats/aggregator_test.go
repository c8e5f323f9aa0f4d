package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashly-rent-a-car/bingo/internal"
)

type fakeConn struct {
	id string

	mu     sync.Mutex
	frames []internal.AdminServerMessage
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	msg, err := internal.DecodeAdminServerMessage(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, msg)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) byType(adminType string) []internal.AdminServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []internal.AdminServerMessage
	for _, msg := range c.frames {
		if msg.AdminServerType() == adminType {
			matched = append(matched, msg)
		}
	}
	return matched
}

func newTestAggregator(t *testing.T, password string) *Aggregator {
	t.Helper()
	agg := NewAggregator(password, nil)
	go agg.Run()
	t.Cleanup(agg.Stop)
	return agg
}

// barrier waits until every previously posted closure has run.
func barrier(t *testing.T, a *Aggregator) {
	t.Helper()
	done := make(chan struct{})
	a.post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("aggregator inbox stalled")
	}
}

func authenticate(t *testing.T, a *Aggregator, conn *fakeConn, password string) {
	t.Helper()
	a.Connect(conn)
	a.Dispatch(conn.ID(), &internal.AuthenticatePayload{Password: password})
	barrier(t, a)
}

func roomStats(pin string, connected int, lastActivity int64) *internal.RoomStats {
	return &internal.RoomStats{
		Pin:            pin,
		GamePhase:      internal.PhaseLobby,
		PlayerCount:    connected,
		ConnectedCount: connected,
		CreatedAt:      lastActivity,
		LastActivity:   lastActivity,
	}
}

func TestAggregatorStopIsIdempotent(t *testing.T) {
	agg := NewAggregator("secret", nil)
	go agg.Run()

	agg.Stop()
	assert.NotPanics(t, agg.Stop, "stopping twice must be a no-op")
}

func TestAuthenticationGate(t *testing.T) {
	agg := newTestAggregator(t, "secret")

	conn := &fakeConn{id: "dash-1"}
	authenticate(t, agg, conn, "wrong")

	require.Len(t, conn.byType(internal.TypeAuthFailed), 1)
	assert.Empty(t, conn.byType(internal.TypeStatsUpdate), "no stats before authentication")

	authenticate(t, agg, conn, "secret")
	require.Len(t, conn.byType(internal.TypeAuthSuccess), 1)
	assert.Len(t, conn.byType(internal.TypeStatsUpdate), 1, "authentication answers with a stats snapshot")
}

func TestReportsDeduplicateByPin(t *testing.T) {
	agg := newTestAggregator(t, "secret")
	conn := &fakeConn{id: "dash-1"}
	authenticate(t, agg, conn, "secret")

	now := time.Now().UnixMilli()
	agg.HandleReport(internal.RoomReport{Type: internal.ReportRegisterRoom, Stats: roomStats("1111", 2, now)})
	agg.HandleReport(internal.RoomReport{Type: internal.ReportUpdateRoom, Stats: roomStats("1111", 3, now)})
	agg.HandleReport(internal.RoomReport{Type: internal.ReportRegisterRoom, Stats: roomStats("2222", 1, now)})
	barrier(t, agg)

	agg.Dispatch(conn.ID(), &internal.RequestStatsPayload{})
	barrier(t, agg)

	updates := conn.byType(internal.TypeStatsUpdate)
	require.NotEmpty(t, updates)
	latest := updates[len(updates)-1].(*internal.StatsUpdatePayload)

	assert.Equal(t, 2, latest.TotalRooms, "same pin reported twice counts once")
	assert.Equal(t, 4, latest.TotalPlayers, "the later report for a pin wins")
	assert.Equal(t, 3, latest.Rooms["1111"].ConnectedCount)

	require.Len(t, conn.byType(internal.TypeRoomRegistered), 2)
	require.Len(t, conn.byType(internal.TypeRoomUpdated), 1)
}

func TestRemoveRoomReport(t *testing.T) {
	agg := newTestAggregator(t, "secret")
	conn := &fakeConn{id: "dash-1"}
	authenticate(t, agg, conn, "secret")

	now := time.Now().UnixMilli()
	agg.HandleReport(internal.RoomReport{Type: internal.ReportRegisterRoom, Stats: roomStats("1111", 2, now)})
	agg.HandleReport(internal.RoomReport{Type: internal.ReportRemoveRoom, Pin: "1111"})
	barrier(t, agg)

	removed := conn.byType(internal.TypeRoomRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, "1111", removed[0].(*internal.RoomRemovedPayload).Pin)

	agg.Dispatch(conn.ID(), &internal.RequestStatsPayload{})
	barrier(t, agg)
	updates := conn.byType(internal.TypeStatsUpdate)
	latest := updates[len(updates)-1].(*internal.StatsUpdatePayload)
	assert.Zero(t, latest.TotalRooms)
}

func TestStaleRoomsExpire(t *testing.T) {
	agg := newTestAggregator(t, "secret")
	conn := &fakeConn{id: "dash-1"}
	authenticate(t, agg, conn, "secret")

	now := time.Now().UnixMilli()
	stale := now - (internal.StatsExpiry + time.Hour).Milliseconds()
	agg.HandleReport(internal.RoomReport{Type: internal.ReportRegisterRoom, Stats: roomStats("1111", 2, stale)})
	agg.HandleReport(internal.RoomReport{Type: internal.ReportRegisterRoom, Stats: roomStats("2222", 1, now)})
	barrier(t, agg)

	agg.post(agg.expireStale)
	barrier(t, agg)

	agg.Dispatch(conn.ID(), &internal.RequestStatsPayload{})
	barrier(t, agg)

	updates := conn.byType(internal.TypeStatsUpdate)
	latest := updates[len(updates)-1].(*internal.StatsUpdatePayload)
	assert.Equal(t, 1, latest.TotalRooms)
	assert.NotContains(t, latest.Rooms, "1111")
	assert.Contains(t, latest.Rooms, "2222")
}

func TestUnauthenticatedDispatchIsIgnored(t *testing.T) {
	agg := newTestAggregator(t, "secret")
	conn := &fakeConn{id: "dash-1"}
	agg.Connect(conn)
	barrier(t, agg)

	agg.Dispatch(conn.ID(), &internal.RequestStatsPayload{})
	barrier(t, agg)
	assert.Empty(t, conn.byType(internal.TypeStatsUpdate))
}
