package api

import (
	"context"
	"errors"
	"time"

	"github.com/namanjh/socket-huddlegames/common/http"
	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/domain/entity"
	"github.com/namanjh/socket-huddlegames/core/domain/repository"
	"github.com/namanjh/socket-huddlegames/runtime/game"
)

const queryTimeout = 3 * time.Second

// RoomQuerier 事件循环提供的只读查询
type RoomQuerier interface {
	Rooms(ctx context.Context) ([]*entity.RoomSnapshot, error)
	Room(ctx context.Context, roomCode string) (*entity.RoomSnapshot, error)
}

// SnapshotReader 房间快照缓存
type SnapshotReader interface {
	Get(roomCode string) (*entity.RoomSnapshot, bool)
}

// LoadReporter 最近一次负载采样
type LoadReporter interface {
	Latest() *game.LoadInfo
}

// ConnectionStats 连接层计数
type ConnectionStats interface {
	Stats() map[string]int64
}

type Handler struct {
	service string
	rooms   RoomQuerier
	cache   SnapshotReader
	load    LoadReporter
	conns   ConnectionStats
}

// NewHandler cache 和 conns 可以为 nil
func NewHandler(service string, rooms RoomQuerier, cache SnapshotReader, load LoadReporter, conns ConnectionStats) *Handler {
	return &Handler{
		service: service,
		rooms:   rooms,
		cache:   cache,
		load:    load,
		conns:   conns,
	}
}

// Ping ping 检查
func (h *Handler) Ping(c *http.Context) error {
	c.Success(map[string]any{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
		"service":   h.service,
	})
	return nil
}

// Health 返回最近一次负载采样，还没有采样时返回 503
func (h *Handler) Health(c *http.Context) error {
	var info *game.LoadInfo
	if h.load != nil {
		info = h.load.Latest()
	}
	if info == nil {
		c.ServiceUnavailable("负载数据尚未采集")
		return nil
	}
	health := map[string]any{"load": info}
	if h.conns != nil {
		health["connections"] = h.conns.Stats()
	}
	c.Success(health)
	return nil
}

func (h *Handler) ListRooms(c *http.Context) error {
	ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
	defer cancel()

	rooms, err := h.rooms.Rooms(ctx)
	if err != nil {
		return err
	}
	c.Success(map[string]any{
		"total": len(rooms),
		"rooms": rooms,
	})
	return nil
}

// GetRoom 先读缓存，未命中再查事件循环
func (h *Handler) GetRoom(c *http.Context) error {
	roomCode := c.GetParam("code")
	if roomCode == "" {
		c.BadRequest("roomCode 不能为空")
		return nil
	}
	if h.cache != nil {
		if snapshot, ok := h.cache.Get(roomCode); ok {
			c.Success(snapshot)
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
	defer cancel()

	snapshot, err := h.rooms.Room(ctx, roomCode)
	if errors.Is(err, repository.ErrRoomNotFound) {
		c.NotFound("房间不存在: " + roomCode)
		return nil
	}
	if err != nil {
		log.Warn("查询房间失败, roomCode=%s err=%v", roomCode, err)
		return err
	}
	c.Success(snapshot)
	return nil
}
