package internal

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// ADMIN / STATS TYPES
// =============================================================================

// RoomStats is the summary a room pushes to the aggregator after mutating
// commands.
type RoomStats struct {
	Pin            string    `json:"pin"`
	GamePhase      GamePhase `json:"gamePhase"`
	PlayerCount    int       `json:"playerCount"`
	ConnectedCount int       `json:"connectedCount"`
	CreatedAt      int64     `json:"createdAt"`
	LastActivity   int64     `json:"lastActivity"`
}

// AdminStats is the aggregator's full view, keyed by pin (last write wins).
type AdminStats struct {
	Rooms        map[string]RoomStats `json:"rooms"`
	TotalRooms   int                  `json:"totalRooms"`
	TotalPlayers int                  `json:"totalPlayers"`
	LastUpdate   int64                `json:"lastUpdate"`
}

// Room -> aggregator report kinds, carried over the HTTP side channel.
const (
	ReportRegisterRoom = "REGISTER_ROOM"
	ReportUpdateRoom   = "UPDATE_ROOM"
	ReportRemoveRoom   = "REMOVE_ROOM"
)

// RoomReport is the HTTP side-channel body. Stats is set for register/update,
// Pin for remove.
type RoomReport struct {
	Type  string     `json:"type"`
	Stats *RoomStats `json:"stats,omitempty"`
	Pin   string     `json:"pin,omitempty"`
}

// =============================================================================
// ADMIN DASHBOARD WEBSOCKET MESSAGES
// =============================================================================

const (
	TypeAuthenticate   = "AUTHENTICATE"
	TypeRequestStats   = "REQUEST_STATS"
	TypeAuthSuccess    = "AUTH_SUCCESS"
	TypeAuthFailed     = "AUTH_FAILED"
	TypeStatsUpdate    = "STATS_UPDATE"
	TypeRoomRegistered = "ROOM_REGISTERED"
	TypeRoomUpdated    = "ROOM_UPDATED"
	TypeRoomRemoved    = "ROOM_REMOVED"
)

type AdminClientMessage interface {
	AdminClientType() string
}

type AuthenticatePayload struct {
	Password string `json:"password"`
}

type RequestStatsPayload struct{}

func (AuthenticatePayload) AdminClientType() string { return TypeAuthenticate }
func (RequestStatsPayload) AdminClientType() string { return TypeRequestStats }

// DecodeAdminClientMessage parses a dashboard frame.
func DecodeAdminClientMessage(data []byte) (AdminClientMessage, error) {
	var envelope Message[json.RawMessage]
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid message envelope: %w", err)
	}

	switch envelope.Type {
	case TypeAuthenticate:
		payload := &AuthenticatePayload{}
		if len(envelope.Payload) > 0 {
			if err := json.Unmarshal(envelope.Payload, payload); err != nil {
				return nil, fmt.Errorf("invalid %s payload: %w", envelope.Type, err)
			}
		}
		return payload, nil
	case TypeRequestStats:
		return &RequestStatsPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", envelope.Type)
	}
}

type AdminServerMessage interface {
	AdminServerType() string
}

type AuthSuccessPayload struct{}

type AuthFailedPayload struct {
	Message string `json:"message"`
}

type StatsUpdatePayload struct {
	AdminStats
}

type RoomRegisteredPayload struct {
	RoomStats
}

type RoomUpdatedPayload struct {
	RoomStats
}

type RoomRemovedPayload struct {
	Pin string `json:"pin"`
}

func (AuthSuccessPayload) AdminServerType() string    { return TypeAuthSuccess }
func (AuthFailedPayload) AdminServerType() string     { return TypeAuthFailed }
func (StatsUpdatePayload) AdminServerType() string    { return TypeStatsUpdate }
func (RoomRegisteredPayload) AdminServerType() string { return TypeRoomRegistered }
func (RoomUpdatedPayload) AdminServerType() string    { return TypeRoomUpdated }
func (RoomRemovedPayload) AdminServerType() string    { return TypeRoomRemoved }

// EncodeAdminServerMessage frames a dashboard event.
func EncodeAdminServerMessage(msg AdminServerMessage) ([]byte, error) {
	return json.Marshal(Message[AdminServerMessage]{Type: msg.AdminServerType(), Payload: msg})
}

// DecodeAdminServerMessage parses a frame received by a dashboard client.
func DecodeAdminServerMessage(data []byte) (AdminServerMessage, error) {
	var envelope Message[json.RawMessage]
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid message envelope: %w", err)
	}

	decode := func(into AdminServerMessage) (AdminServerMessage, error) {
		if len(envelope.Payload) == 0 {
			return into, nil
		}
		if err := json.Unmarshal(envelope.Payload, into); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", envelope.Type, err)
		}
		return into, nil
	}

	switch envelope.Type {
	case TypeAuthSuccess:
		return decode(&AuthSuccessPayload{})
	case TypeAuthFailed:
		return decode(&AuthFailedPayload{})
	case TypeStatsUpdate:
		return decode(&StatsUpdatePayload{})
	case TypeRoomRegistered:
		return decode(&RoomRegisteredPayload{})
	case TypeRoomUpdated:
		return decode(&RoomUpdatedPayload{})
	case TypeRoomRemoved:
		return decode(&RoomRemovedPayload{})
	default:
		return nil, fmt.Errorf("unknown message type %q", envelope.Type)
	}
}
