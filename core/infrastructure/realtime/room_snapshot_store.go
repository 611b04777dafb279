package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/namanjh/socket-huddlegames/common/database"
	"github.com/namanjh/socket-huddlegames/core/domain/entity"
	"github.com/namanjh/socket-huddlegames/core/domain/repository"

	"github.com/redis/go-redis/v9"
)

const (
	roomSnapshotKey = "room"  // <prefix>:room:<code> -> 快照 JSON
	roomIndexKey    = "rooms" // <prefix>:rooms Set: 当前镜像的房间号
)

// RedisRoomSnapshotRepository Redis 实现的房间快照仓储
type RedisRoomSnapshotRepository struct {
	redis  *database.RedisManager
	prefix string
}

func NewRedisRoomSnapshotRepository(redis *database.RedisManager, prefix string) *RedisRoomSnapshotRepository {
	return &RedisRoomSnapshotRepository{
		redis:  redis,
		prefix: prefix,
	}
}

func (r *RedisRoomSnapshotRepository) snapshotKey(roomCode string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, roomSnapshotKey, roomCode)
}

func (r *RedisRoomSnapshotRepository) indexKey() string {
	return r.prefix + ":" + roomIndexKey
}

func (r *RedisRoomSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *entity.RoomSnapshot, ttl time.Duration) error {
	if snapshot == nil || snapshot.RoomCode == "" {
		return fmt.Errorf("保存房间快照失败: 房间号为空")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化房间快照失败: %w", err)
	}
	cli, err := r.redis.GetClient()
	if err != nil {
		return err
	}
	_, err = cli.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.snapshotKey(snapshot.RoomCode), data, ttl)
		pipe.SAdd(ctx, r.indexKey(), snapshot.RoomCode)
		return nil
	})
	return err
}

func (r *RedisRoomSnapshotRepository) GetSnapshot(ctx context.Context, roomCode string) (*entity.RoomSnapshot, error) {
	data, err := r.redis.Get(ctx, r.snapshotKey(roomCode))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", roomCode, repository.ErrRoomNotFound)
		}
		return nil, err
	}
	var snapshot entity.RoomSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("解析房间快照失败: %w", err)
	}
	return &snapshot, nil
}

func (r *RedisRoomSnapshotRepository) DeleteSnapshot(ctx context.Context, roomCode string) error {
	cli, err := r.redis.GetClient()
	if err != nil {
		return err
	}
	_, err = cli.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.snapshotKey(roomCode))
		pipe.SRem(ctx, r.indexKey(), roomCode)
		return nil
	})
	return err
}

func (r *RedisRoomSnapshotRepository) ExistsSnapshot(ctx context.Context, roomCode string) (bool, error) {
	count, err := r.redis.Exists(ctx, r.snapshotKey(roomCode))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRoomCodes 索引里可能残留 ttl 已过期的房间，调用方以 GetSnapshot 为准
func (r *RedisRoomSnapshotRepository) ListRoomCodes(ctx context.Context) ([]string, error) {
	cli, err := r.redis.GetClient()
	if err != nil {
		return nil, err
	}
	codes, err := cli.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(codes)
	return codes, nil
}
