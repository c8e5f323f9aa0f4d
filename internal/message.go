package internal

import (
	"encoding/json"
	"fmt"

	"github.com/cashly-rent-a-car/bingo/internal/bingo"
)

// Message is the wire envelope for every frame in both directions.
type Message[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload,omitempty"`
}

// =============================================================================
// CLIENT -> ROOM
// =============================================================================

const (
	TypeJoinRoom      = "JOIN_ROOM"
	TypeSelectAvatar  = "SELECT_AVATAR"
	TypeStartGame     = "START_GAME"
	TypeDrawBall      = "DRAW_BALL"
	TypeMarkNumber    = "MARK_NUMBER"
	TypeClaimBingo    = "CLAIM_BINGO"
	TypeLeaveRoom     = "LEAVE_ROOM"
	TypeClaimHost     = "CLAIM_HOST"
	TypeRejoinGame    = "REJOIN_GAME"
	TypeIdentify      = "IDENTIFY"
	TypeReturnToLobby = "RETURN_TO_LOBBY"
)

// ClientMessage is the closed set of commands a client can send. Adding a
// message kind means adding a variant here and a case in DecodeClientMessage;
// the room actor switch is exhaustive over these types.
type ClientMessage interface {
	ClientType() string
}

type JoinRoomPayload struct {
	PlayerName string `json:"playerName"`
	AvatarID   string `json:"avatarId"`
	IsHost     bool   `json:"isHost,omitempty"`
}

type SelectAvatarPayload struct {
	AvatarID string `json:"avatarId"`
}

type StartGamePayload struct{}

type DrawBallPayload struct{}

type MarkNumberPayload struct {
	Number   int            `json:"number"`
	Position bingo.Position `json:"position"`
}

type ClaimBingoPayload struct{}

type LeaveRoomPayload struct{}

type ClaimHostPayload struct{}

type RejoinGamePayload struct {
	OldPlayerID string `json:"oldPlayerId"`
}

// IdentifyPayload drives the session protocol: a nil SessionToken requests a
// fresh session, a known token a reconnection, an unknown token a rejection.
type IdentifyPayload struct {
	SessionToken *string `json:"sessionToken"`
	TabID        string  `json:"tabId"`
	PlayerName   string  `json:"playerName,omitempty"`
	AvatarID     string  `json:"avatarId,omitempty"`
	IsHost       bool    `json:"isHost,omitempty"`
}

type ReturnToLobbyPayload struct{}

func (JoinRoomPayload) ClientType() string      { return TypeJoinRoom }
func (SelectAvatarPayload) ClientType() string  { return TypeSelectAvatar }
func (StartGamePayload) ClientType() string     { return TypeStartGame }
func (DrawBallPayload) ClientType() string      { return TypeDrawBall }
func (MarkNumberPayload) ClientType() string    { return TypeMarkNumber }
func (ClaimBingoPayload) ClientType() string    { return TypeClaimBingo }
func (LeaveRoomPayload) ClientType() string     { return TypeLeaveRoom }
func (ClaimHostPayload) ClientType() string     { return TypeClaimHost }
func (RejoinGamePayload) ClientType() string    { return TypeRejoinGame }
func (IdentifyPayload) ClientType() string      { return TypeIdentify }
func (ReturnToLobbyPayload) ClientType() string { return TypeReturnToLobby }

// DecodeClientMessage parses a raw frame into its typed variant.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var envelope Message[json.RawMessage]
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid message envelope: %w", err)
	}

	decode := func(into ClientMessage) (ClientMessage, error) {
		if len(envelope.Payload) == 0 {
			return into, nil
		}
		if err := json.Unmarshal(envelope.Payload, into); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", envelope.Type, err)
		}
		return into, nil
	}

	switch envelope.Type {
	case TypeJoinRoom:
		return decode(&JoinRoomPayload{})
	case TypeSelectAvatar:
		return decode(&SelectAvatarPayload{})
	case TypeStartGame:
		return decode(&StartGamePayload{})
	case TypeDrawBall:
		return decode(&DrawBallPayload{})
	case TypeMarkNumber:
		return decode(&MarkNumberPayload{})
	case TypeClaimBingo:
		return decode(&ClaimBingoPayload{})
	case TypeLeaveRoom:
		return decode(&LeaveRoomPayload{})
	case TypeClaimHost:
		return decode(&ClaimHostPayload{})
	case TypeRejoinGame:
		return decode(&RejoinGamePayload{})
	case TypeIdentify:
		return decode(&IdentifyPayload{})
	case TypeReturnToLobby:
		return decode(&ReturnToLobbyPayload{})
	default:
		return nil, fmt.Errorf("unknown message type %q", envelope.Type)
	}
}

// EncodeClientMessage frames a client command for the wire.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	return json.Marshal(Message[ClientMessage]{Type: msg.ClientType(), Payload: msg})
}

// =============================================================================
// ROOM -> CLIENT
// =============================================================================

const (
	TypeRoomState          = "ROOM_STATE"
	TypePlayerJoined       = "PLAYER_JOINED"
	TypePlayerLeft         = "PLAYER_LEFT"
	TypePlayerDisconnected = "PLAYER_DISCONNECTED"
	TypeAvatarChanged      = "AVATAR_CHANGED"
	TypeHostConnected      = "HOST_CONNECTED"
	TypeGameStarted        = "GAME_STARTED"
	TypeBallDrawn          = "BALL_DRAWN"
	TypeNumberMarked       = "NUMBER_MARKED"
	TypeLineCompleted      = "LINE_COMPLETED"
	TypeBingoWon           = "BINGO_WON"
	TypeGameEnded          = "GAME_ENDED"
	TypeRankingUpdate      = "RANKING_UPDATE"
	TypeIdentityConfirmed  = "IDENTITY_CONFIRMED"
	TypeIdentityRejected   = "IDENTITY_REJECTED"
	TypeRejoinSuccess      = "REJOIN_SUCCESS"
	TypeLateJoinSuccess    = "LATE_JOIN_SUCCESS"
	TypeReturnedToLobby    = "RETURNED_TO_LOBBY"
	TypeError              = "ERROR"
)

// ServerMessage is the closed set of frames the room can emit.
type ServerMessage interface {
	ServerType() string
}

type RoomStatePayload struct {
	*RoomState
}

type PlayerJoinedPayload struct {
	Player     *Player `json:"player"`
	IsLateJoin bool    `json:"isLateJoin"`
}

type PlayerLeftPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type PlayerDisconnectedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type AvatarChangedPayload struct {
	PlayerID string `json:"playerId"`
	AvatarID string `json:"avatarId"`
}

type HostConnectedPayload struct {
	HostID string `json:"hostId"`
}

type GameStartedPayload struct {
	Cards map[string]*bingo.Card `json:"cards"`
}

type BallDrawnPayload struct {
	Ball       bingo.Ball   `json:"ball"`
	DrawnBalls []bingo.Ball `json:"drawnBalls"`
}

type NumberMarkedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Number     int    `json:"number"`
	Valid      bool   `json:"valid"`
	NewScore   int    `json:"newScore"`
}

type LineCompletedPayload struct {
	PlayerID   string         `json:"playerId"`
	PlayerName string         `json:"playerName"`
	AvatarID   string         `json:"avatarId"`
	LineType   bingo.LineType `json:"lineType"`
	NewScore   int            `json:"newScore"`
}

type BingoWonPayload struct {
	WinnerID       string         `json:"winnerId"`
	WinnerName     string         `json:"winnerName"`
	WinnerAvatarID string         `json:"winnerAvatarId"`
	FinalScores    []RankingEntry `json:"finalScores"`
	IsFirstWinner  bool           `json:"isFirstWinner"`
	CompletedCount int            `json:"completedCount"`
	TotalPlayers   int            `json:"totalPlayers"`
}

type GameEndedPayload struct {
	Reason      string         `json:"reason"`
	FinalScores []RankingEntry `json:"finalScores"`
}

type RankingUpdatePayload struct {
	Ranking []RankingEntry `json:"ranking"`
}

type IdentityConfirmedPayload struct {
	SessionToken   string         `json:"sessionToken"`
	PlayerID       string         `json:"playerId"`
	IsReconnection bool           `json:"isReconnection"`
	PlayerName     string         `json:"playerName"`
	AvatarID       string         `json:"avatarId"`
	IsHost         bool           `json:"isHost"`
	GamePhase      GamePhase      `json:"gamePhase"`
	Card           *bingo.Card    `json:"card,omitempty"`
	MarkedNumbers  []int          `json:"markedNumbers,omitempty"`
	DrawnBalls     []bingo.Ball   `json:"drawnBalls,omitempty"`
	CurrentBall    *bingo.Ball    `json:"currentBall,omitempty"`
	Ranking        []RankingEntry `json:"ranking,omitempty"`
}

type IdentityRejectedPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type RejoinSuccessPayload struct {
	PlayerID      string       `json:"playerId"`
	Card          *bingo.Card  `json:"card"`
	MarkedNumbers []int        `json:"markedNumbers"`
	DrawnBalls    []bingo.Ball `json:"drawnBalls"`
	CurrentBall   *bingo.Ball  `json:"currentBall"`
}

type LateJoinSuccessPayload struct {
	Card        *bingo.Card    `json:"card"`
	DrawnBalls  []bingo.Ball   `json:"drawnBalls"`
	CurrentBall *bingo.Ball    `json:"currentBall"`
	Ranking     []RankingEntry `json:"ranking"`
}

type ReturnedToLobbyPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (RoomStatePayload) ServerType() string          { return TypeRoomState }
func (PlayerJoinedPayload) ServerType() string       { return TypePlayerJoined }
func (PlayerLeftPayload) ServerType() string         { return TypePlayerLeft }
func (PlayerDisconnectedPayload) ServerType() string { return TypePlayerDisconnected }
func (AvatarChangedPayload) ServerType() string      { return TypeAvatarChanged }
func (HostConnectedPayload) ServerType() string      { return TypeHostConnected }
func (GameStartedPayload) ServerType() string        { return TypeGameStarted }
func (BallDrawnPayload) ServerType() string          { return TypeBallDrawn }
func (NumberMarkedPayload) ServerType() string       { return TypeNumberMarked }
func (LineCompletedPayload) ServerType() string      { return TypeLineCompleted }
func (BingoWonPayload) ServerType() string           { return TypeBingoWon }
func (GameEndedPayload) ServerType() string          { return TypeGameEnded }
func (RankingUpdatePayload) ServerType() string      { return TypeRankingUpdate }
func (IdentityConfirmedPayload) ServerType() string  { return TypeIdentityConfirmed }
func (IdentityRejectedPayload) ServerType() string   { return TypeIdentityRejected }
func (RejoinSuccessPayload) ServerType() string      { return TypeRejoinSuccess }
func (LateJoinSuccessPayload) ServerType() string    { return TypeLateJoinSuccess }
func (ReturnedToLobbyPayload) ServerType() string    { return TypeReturnedToLobby }
func (ErrorPayload) ServerType() string              { return TypeError }

// EncodeServerMessage frames a server event for the wire.
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	return json.Marshal(Message[ServerMessage]{Type: msg.ServerType(), Payload: msg})
}

// DecodeServerMessage parses a frame received by a client adapter.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var envelope Message[json.RawMessage]
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid message envelope: %w", err)
	}

	decode := func(into ServerMessage) (ServerMessage, error) {
		if len(envelope.Payload) == 0 {
			return into, nil
		}
		if err := json.Unmarshal(envelope.Payload, into); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", envelope.Type, err)
		}
		return into, nil
	}

	switch envelope.Type {
	case TypeRoomState:
		return decode(&RoomStatePayload{})
	case TypePlayerJoined:
		return decode(&PlayerJoinedPayload{})
	case TypePlayerLeft:
		return decode(&PlayerLeftPayload{})
	case TypePlayerDisconnected:
		return decode(&PlayerDisconnectedPayload{})
	case TypeAvatarChanged:
		return decode(&AvatarChangedPayload{})
	case TypeHostConnected:
		return decode(&HostConnectedPayload{})
	case TypeGameStarted:
		return decode(&GameStartedPayload{})
	case TypeBallDrawn:
		return decode(&BallDrawnPayload{})
	case TypeNumberMarked:
		return decode(&NumberMarkedPayload{})
	case TypeLineCompleted:
		return decode(&LineCompletedPayload{})
	case TypeBingoWon:
		return decode(&BingoWonPayload{})
	case TypeGameEnded:
		return decode(&GameEndedPayload{})
	case TypeRankingUpdate:
		return decode(&RankingUpdatePayload{})
	case TypeIdentityConfirmed:
		return decode(&IdentityConfirmedPayload{})
	case TypeIdentityRejected:
		return decode(&IdentityRejectedPayload{})
	case TypeRejoinSuccess:
		return decode(&RejoinSuccessPayload{})
	case TypeLateJoinSuccess:
		return decode(&LateJoinSuccessPayload{})
	case TypeReturnedToLobby:
		return decode(&ReturnedToLobbyPayload{})
	case TypeError:
		return decode(&ErrorPayload{})
	default:
		return nil, fmt.Errorf("unknown message type %q", envelope.Type)
	}
}

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	ErrCodeNotHost          = "NOT_HOST"
	ErrCodeNotEnoughPlayers = "NOT_ENOUGH_PLAYERS"
	ErrCodeNoBallsLeft      = "NO_BALLS_LEFT"
	ErrCodePlayerNotFound   = "PLAYER_NOT_FOUND"
	ErrCodeNoCard           = "NO_CARD"
	ErrCodeNoGame           = "NO_GAME"
	ErrCodeInvalidBingo     = "INVALID_BINGO"
	ErrCodeInvalidClaim     = "INVALID_CLAIM"
	ErrCodeRejoinError      = "REJOIN_ERROR"
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"

	RejectReasonSessionExpired = "session_expired"
)
