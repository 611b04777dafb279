package transfer

import "github.com/namanjh/socket-huddlegames/core/domain/entity"

// JoinRoomRequest join-room
type JoinRoomRequest struct {
	RoomCode string         `json:"roomCode"`
	Player   *entity.Player `json:"player"`
}

// StartGameRequest start-game，也是 NATS room.start-game 的请求体
type StartGameRequest struct {
	RoomCode string `json:"roomCode"`
	GameSlug string `json:"gameSlug"`
}

// TeamsAssignedRequest teams-assigned
type TeamsAssignedRequest struct {
	RoomCode string                   `json:"roomCode"`
	Players  []*entity.TeamAssignment `json:"players"`
}

type GameStartedPush struct {
	Message  string `json:"message"`
	GameSlug string `json:"gameSlug"`
	Round    int    `json:"round"`
}

type ConnectedPush struct {
	SocketID string `json:"socket_id"`
}

// ErrorPush 被拒绝事件的回执
type ErrorPush struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StartGameResponse NATS room.start-game 的应答
type StartGameResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
