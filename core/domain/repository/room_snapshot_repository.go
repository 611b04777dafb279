package repository

import (
	"context"
	"time"

	"github.com/namanjh/socket-huddlegames/core/domain/entity"
)

// RoomSnapshotRepository 房间快照仓储接口
// 只做对外镜像，注册表本身从不回读
type RoomSnapshotRepository interface {
	// SaveSnapshot 覆盖保存房间快照，ttl 到期后自动清理
	SaveSnapshot(ctx context.Context, snapshot *entity.RoomSnapshot, ttl time.Duration) error

	// GetSnapshot 不存在时返回 ErrRoomNotFound
	GetSnapshot(ctx context.Context, roomCode string) (*entity.RoomSnapshot, error)

	DeleteSnapshot(ctx context.Context, roomCode string) error

	ExistsSnapshot(ctx context.Context, roomCode string) (bool, error)

	// ListRoomCodes 当前镜像里的房间号
	ListRoomCodes(ctx context.Context) ([]string, error)
}
