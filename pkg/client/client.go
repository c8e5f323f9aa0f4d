// Package client is a small Go adapter for the room websocket protocol,
// usable from bots, load tests, and integration tooling.
package client

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/cashly-rent-a-car/bingo/internal"
	"github.com/cashly-rent-a-car/bingo/internal/bingo"
)

// Client holds one websocket to one room. Events carries every decoded
// server frame in arrival order; it closes when the socket dies.
type Client struct {
	conn   *websocket.Conn
	events chan internal.ServerMessage

	mu     sync.Mutex
	closed bool
}

// Dial connects to ws(s)://host/ws/{pin} and starts the receive loop.
func Dial(baseURL, pin string) (*Client, error) {
	url := fmt.Sprintf("%s/ws/%s", baseURL, pin)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("error dialing room %s: %w", pin, err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan internal.ServerMessage, 64),
	}
	go c.receive()
	return c, nil
}

// Events returns the stream of decoded server frames.
func (c *Client) Events() <-chan internal.ServerMessage {
	return c.events
}

func (c *Client) receive() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := internal.DecodeServerMessage(data)
		if err != nil {
			continue
		}
		c.events <- msg
	}
}

func (c *Client) send(msg internal.ClientMessage) error {
	data, err := internal.EncodeClientMessage(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client closed")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Identify runs the session handshake. Pass a nil token for a fresh session.
func (c *Client) Identify(token *string, tabID, playerName, avatarID string, isHost bool) error {
	return c.send(&internal.IdentifyPayload{
		SessionToken: token,
		TabID:        tabID,
		PlayerName:   playerName,
		AvatarID:     avatarID,
		IsHost:       isHost,
	})
}

func (c *Client) Join(playerName, avatarID string, isHost bool) error {
	return c.send(&internal.JoinRoomPayload{PlayerName: playerName, AvatarID: avatarID, IsHost: isHost})
}

func (c *Client) SelectAvatar(avatarID string) error {
	return c.send(&internal.SelectAvatarPayload{AvatarID: avatarID})
}

func (c *Client) StartGame() error {
	return c.send(&internal.StartGamePayload{})
}

func (c *Client) DrawBall() error {
	return c.send(&internal.DrawBallPayload{})
}

func (c *Client) MarkNumber(number int, pos bingo.Position) error {
	return c.send(&internal.MarkNumberPayload{Number: number, Position: pos})
}

func (c *Client) ClaimBingo() error {
	return c.send(&internal.ClaimBingoPayload{})
}

func (c *Client) ClaimHost() error {
	return c.send(&internal.ClaimHostPayload{})
}

func (c *Client) Rejoin(oldPlayerID string) error {
	return c.send(&internal.RejoinGamePayload{OldPlayerID: oldPlayerID})
}

func (c *Client) ReturnToLobby() error {
	return c.send(&internal.ReturnToLobbyPayload{})
}

func (c *Client) Leave() error {
	return c.send(&internal.LeaveRoomPayload{})
}

// Close tears the socket down; Events closes shortly after.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
