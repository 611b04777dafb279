package game

import (
	"sort"
	"strings"

	"github.com/namanjh/socket-huddlegames/common/config"
	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/domain/entity"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"
)

// Transport 连接层提供的能力：房间分组、广播、单发
// 实现必须是非阻塞的
type Transport interface {
	Subscribe(connID, roomCode string)
	Unsubscribe(connID, roomCode string)
	Broadcast(roomCode, event string, payload any)
	Send(connID, event string, payload any)
}

// Observer 房间状态变化的旁路订阅者（缓存、redis 镜像、nats 发布）
// 在事件循环里同步调用，实现不能阻塞
type Observer interface {
	OnRoomUpdated(snapshot *entity.RoomSnapshot)
	OnRoomRemoved(roomCode string)
}

// Stats 注册表计数
type Stats struct {
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
	Games   int `json:"games"`
}

// Registry 房间注册表
// 没有锁，只能由 Worker 的事件循环访问
type Registry struct {
	rooms     map[string]*Room             // roomCode -> Room
	games     map[string]*entity.GameState // roomCode -> GameState
	connRoom  map[string]string            // connID -> roomCode，一个连接同时只在一个房间
	transport Transport
	observers []Observer
	policy    config.StartGamePolicy
}

func NewRegistry(transport Transport, policy config.StartGamePolicy) *Registry {
	if policy == "" {
		policy = config.StartGameAllow
	}
	return &Registry{
		rooms:     make(map[string]*Room),
		games:     make(map[string]*entity.GameState),
		connRoom:  make(map[string]string),
		transport: transport,
		policy:    policy,
	}
}

// AddObserver 只能在事件循环启动前调用
func (r *Registry) AddObserver(observers ...Observer) {
	for _, o := range observers {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// Join 加入房间
// 连接已经在别的房间时先离开旧房间
func (r *Registry) Join(connID, roomCode string, player *entity.Player) error {
	if connID == "" {
		return newEventError(transfer.JoinRoom, roomCode, ErrValidation, "missing connection id")
	}
	if strings.TrimSpace(roomCode) == "" {
		return newEventError(transfer.JoinRoom, roomCode, ErrValidation, "roomCode is required")
	}
	if player == nil {
		return newEventError(transfer.JoinRoom, roomCode, ErrValidation, "player is required")
	}
	if player.PlayerID.IsZero() {
		return newEventError(transfer.JoinRoom, roomCode, ErrValidation, "player.player_id is required")
	}
	if strings.TrimSpace(player.PlayerName) == "" {
		return newEventError(transfer.JoinRoom, roomCode, ErrValidation, "player.player_name is required")
	}

	if previous, exists := r.connRoom[connID]; exists && previous != roomCode {
		log.Info("Registry 连接 %s 从房间 %s 切换到 %s", connID, previous, roomCode)
		r.leave(connID, previous)
	}

	r.transport.Subscribe(connID, roomCode)

	room, exists := r.rooms[roomCode]
	if !exists {
		room = NewRoom(roomCode)
		r.rooms[roomCode] = room
		log.Info("Registry 创建房间 %s", roomCode)
	}

	member := player.Clone()
	member.SocketID = connID
	room.Put(connID, member)
	r.connRoom[connID] = roomCode

	r.transport.Broadcast(roomCode, transfer.PlayersUpdate, room.Players())
	log.Info("Registry %s 加入房间 %s，当前人数: %d", member.PlayerName, roomCode, room.Len())
	r.notifyUpdated(roomCode)
	return nil
}

// StartGame 开局，每次都把回合重置为 1
// allow 策略下没有成员的房间也会留下一份游戏状态
func (r *Registry) StartGame(roomCode, gameSlug string) error {
	if strings.TrimSpace(roomCode) == "" {
		return newEventError(transfer.StartGame, roomCode, ErrValidation, "roomCode is required")
	}
	if strings.TrimSpace(gameSlug) == "" {
		return newEventError(transfer.StartGame, roomCode, ErrValidation, "gameSlug is required")
	}
	if r.policy == config.StartGameReject {
		if room, exists := r.rooms[roomCode]; !exists || room.IsEmpty() {
			return newEventError(transfer.StartGame, roomCode, ErrUnknownRoom, "room has no members")
		}
	}

	state := entity.NewStartedGame(gameSlug)
	r.games[roomCode] = state

	r.transport.Broadcast(roomCode, transfer.GameStarted, &transfer.GameStartedPush{
		Message:  transfer.GameStartedMessage,
		GameSlug: state.GameSlug,
		Round:    state.Round,
	})
	log.Info("Registry 房间 %s 开始游戏 %s", roomCode, gameSlug)
	r.notifyUpdated(roomCode)
	return nil
}

// TeamsAssigned 按 player_id 修改队伍，找不到的条目忽略
func (r *Registry) TeamsAssigned(roomCode string, assignments []*entity.TeamAssignment) error {
	if strings.TrimSpace(roomCode) == "" {
		return newEventError(transfer.TeamsAssigned, roomCode, ErrValidation, "roomCode is required")
	}
	for i, a := range assignments {
		if a == nil || a.PlayerID.IsZero() {
			return newEventError(transfer.TeamsAssigned, roomCode, ErrValidation, "players[%d].player_id is required", i)
		}
	}

	room, exists := r.rooms[roomCode]
	if !exists {
		return newEventError(transfer.TeamsAssigned, roomCode, ErrUnknownRoom, "room does not exist")
	}

	changed := 0
	for _, a := range assignments {
		changed += room.AssignTeam(a.PlayerID, a.Team)
	}

	r.transport.Broadcast(roomCode, transfer.PlayersUpdate, room.Players())
	log.Info("Registry 房间 %s 分配队伍，修改 %d/%d 人", roomCode, changed, room.Len())
	r.notifyUpdated(roomCode)
	return nil
}

// Disconnect 连接断开，不在任何房间时什么都不做
func (r *Registry) Disconnect(connID string) error {
	roomCode, exists := r.connRoom[connID]
	if !exists {
		return nil
	}
	r.leave(connID, roomCode)
	return nil
}

// leave 把连接移出房间，房间空了连同游戏状态一起删除，否则广播剩余成员
func (r *Registry) leave(connID, roomCode string) {
	delete(r.connRoom, connID)
	r.transport.Unsubscribe(connID, roomCode)

	room, exists := r.rooms[roomCode]
	if !exists {
		return
	}
	player, removed := room.Remove(connID)
	if !removed {
		return
	}
	log.Info("Registry %s 离开房间 %s", player.PlayerName, roomCode)

	if room.IsEmpty() {
		delete(r.rooms, roomCode)
		delete(r.games, roomCode)
		log.Info("Registry 房间 %s 已空，删除", roomCode)
		r.notifyRemoved(roomCode)
		return
	}

	r.transport.Broadcast(roomCode, transfer.PlayersUpdate, room.Players())
	r.notifyUpdated(roomCode)
}

// Snapshot 房间成员或游戏状态任一存在即可
func (r *Registry) Snapshot(roomCode string) (*entity.RoomSnapshot, bool) {
	room, hasRoom := r.rooms[roomCode]
	game, hasGame := r.games[roomCode]
	if !hasRoom && !hasGame {
		return nil, false
	}

	snapshot := &entity.RoomSnapshot{
		RoomCode: roomCode,
		Players:  []*entity.Player{},
	}
	if hasRoom {
		snapshot.Players = room.Players()
	}
	if hasGame {
		cp := *game
		snapshot.Game = &cp
	}
	return snapshot, true
}

// Snapshots 按房间号排序
func (r *Registry) Snapshots() []*entity.RoomSnapshot {
	codes := make([]string, 0, len(r.rooms)+len(r.games))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	for code := range r.games {
		if _, exists := r.rooms[code]; !exists {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	snapshots := make([]*entity.RoomSnapshot, 0, len(codes))
	for _, code := range codes {
		snapshot, _ := r.Snapshot(code)
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// roomOf 连接当前所在的房间
func (r *Registry) roomOf(connID string) (string, bool) {
	roomCode, exists := r.connRoom[connID]
	return roomCode, exists
}

func (r *Registry) Stats() Stats {
	stats := Stats{Rooms: len(r.rooms), Games: len(r.games)}
	for _, room := range r.rooms {
		stats.Players += room.Len()
	}
	return stats
}

func (r *Registry) notifyUpdated(roomCode string) {
	if len(r.observers) == 0 {
		return
	}
	snapshot, exists := r.Snapshot(roomCode)
	if !exists {
		return
	}
	for _, o := range r.observers {
		o.OnRoomUpdated(snapshot)
	}
}

func (r *Registry) notifyRemoved(roomCode string) {
	for _, o := range r.observers {
		o.OnRoomRemoved(roomCode)
	}
}
