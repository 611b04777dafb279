package node

import (
	"context"
	"encoding/json"
	"time"

	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"
)

const controlTimeout = 5 * time.Second

// GameStarter 控制面开局，通常是房间事件循环
type GameStarter interface {
	StartGame(ctx context.Context, roomCode, gameSlug string) error
}

// ControlHandlers <subject>.control 上的处理器
func ControlHandlers(starter GameStarter) SubscriberHandler {
	return SubscriberHandler{
		transfer.RoomStartGame: startGameHandler(starter),
	}
}

// startGameHandler 支持在玩家连上之前由大厅直接开局
func startGameHandler(starter GameStarter) LogicFunc {
	return func(message []byte) any {
		var req transfer.StartGameRequest
		if err := json.Unmarshal(message, &req); err != nil {
			return &transfer.StartGameResponse{Success: false, Message: transfer.ErrMessageUnmarshal.Error()}
		}

		ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
		defer cancel()
		if err := starter.StartGame(ctx, req.RoomCode, req.GameSlug); err != nil {
			log.Warn("NATS 开局失败, room=%s err=%v", req.RoomCode, err)
			return &transfer.StartGameResponse{Success: false, Message: err.Error()}
		}
		return &transfer.StartGameResponse{Success: true, Message: transfer.GameStartedMessage}
	}
}
