package cache

import (
	"fmt"
	"time"

	"github.com/namanjh/socket-huddlegames/common/cache"
	"github.com/namanjh/socket-huddlegames/core/domain/entity"
)

// RoomSnapshotCache 处理 roomCode -> RoomSnapshot 的映射
// 作为注册表的观察者，HTTP 查询先读这里
type RoomSnapshotCache struct {
	cache   *cache.GeneralCache
	ttl     time.Duration
	roomKey string
}

func NewRoomSnapshotCache(maxCost int64, ttl time.Duration) (*RoomSnapshotCache, error) {
	generalCache, err := cache.NewGeneralCache(maxCost, ttl)
	if err != nil {
		return nil, fmt.Errorf("创建房间快照缓存失败: %w", err)
	}
	return &RoomSnapshotCache{cache: generalCache, ttl: ttl, roomKey: "room:snapshot"}, nil
}

func (c *RoomSnapshotCache) key(roomCode string) string {
	return fmt.Sprintf("%s:%s", c.roomKey, roomCode)
}

func (c *RoomSnapshotCache) Set(snapshot *entity.RoomSnapshot) bool {
	if snapshot == nil || snapshot.RoomCode == "" {
		return false
	}
	key := c.key(snapshot.RoomCode)
	if !c.cache.SetWithTTL(key, snapshot, c.ttl) {
		// 写入被丢弃时删掉旧值，避免读到过期的成员列表
		c.cache.Delete(key)
		return false
	}
	return true
}

func (c *RoomSnapshotCache) Get(roomCode string) (*entity.RoomSnapshot, bool) {
	value, ok := c.cache.Get(c.key(roomCode))
	if !ok {
		return nil, false
	}
	snapshot, ok := value.(*entity.RoomSnapshot)
	return snapshot, ok
}

func (c *RoomSnapshotCache) Delete(roomCode string) {
	c.cache.Delete(c.key(roomCode))
}

// OnRoomUpdated 注册表观察者
func (c *RoomSnapshotCache) OnRoomUpdated(snapshot *entity.RoomSnapshot) {
	c.Set(snapshot)
}

func (c *RoomSnapshotCache) OnRoomRemoved(roomCode string) {
	c.Delete(roomCode)
}

// Wait 等待异步写入完成，测试用
func (c *RoomSnapshotCache) Wait() {
	c.cache.Wait()
}

func (c *RoomSnapshotCache) Close() {
	c.cache.Close()
}
