package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/cashly-rent-a-car/bingo/internal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla socket to the Conn interface. The mutex serializes
// writes: room broadcasts and direct sends come from different goroutines.
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{id: uuid.NewString(), conn: conn}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// HandleRoomWebSocket upgrades the connection and pumps decoded commands into
// the room actor until the socket dies.
func (s *Server) HandleRoomWebSocket(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]

	actor, err := s.registry.GetOrCreate(pin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade failed: ", err)
		return
	}

	conn := newWSConn(raw)
	log.Printf("[Server] connection %s joined room %s", conn.ID(), pin)
	actor.Connect(conn)

	defer func() {
		conn.Close()
		actor.Disconnect(conn.ID())
	}()

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			log.Printf("[Server] read error on %s: %v", conn.ID(), err)
			return
		}

		msg, err := internal.DecodeClientMessage(data)
		if err != nil {
			log.Printf("[Server] bad frame from %s: %v", conn.ID(), err)
			sendDecodeError(conn)
			continue
		}

		actor.Dispatch(conn.ID(), msg)
	}
}

// HandleAdminWebSocket serves the password-gated dashboard socket.
func (s *Server) HandleAdminWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade failed: ", err)
		return
	}

	conn := newWSConn(raw)
	s.aggregator.Connect(conn)

	defer func() {
		conn.Close()
		s.aggregator.Disconnect(conn.ID())
	}()

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return
		}

		msg, err := internal.DecodeAdminClientMessage(data)
		if err != nil {
			log.Printf("[Server] bad admin frame from %s: %v", conn.ID(), err)
			continue
		}

		s.aggregator.Dispatch(conn.ID(), msg)
	}
}

func sendDecodeError(conn internal.Conn) {
	data, err := internal.EncodeServerMessage(internal.ErrorPayload{
		Code:    internal.ErrCodeInvalidMessage,
		Message: "could not parse message",
	})
	if err != nil {
		return
	}
	_ = conn.Send(data)
}
