package game

import (
	"slices"

	"github.com/namanjh/socket-huddlegames/core/domain/entity"
)

// Room 一个房间的成员表
// connID -> Player 一对一，列表顺序为最近一次加入的顺序
type Room struct {
	Code    string
	members map[string]*entity.Player
	order   []string
}

func NewRoom(code string) *Room {
	return &Room{
		Code:    code,
		members: make(map[string]*entity.Player),
	}
}

// Put 插入或覆盖，重复加入的连接移到末尾
func (r *Room) Put(connID string, player *entity.Player) {
	if _, exists := r.members[connID]; exists {
		r.dropOrder(connID)
	}
	r.members[connID] = player
	r.order = append(r.order, connID)
}

// Remove 返回被移除的玩家
func (r *Room) Remove(connID string) (*entity.Player, bool) {
	player, exists := r.members[connID]
	if !exists {
		return nil, false
	}
	delete(r.members, connID)
	r.dropOrder(connID)
	return player, true
}

func (r *Room) Len() int {
	return len(r.members)
}

func (r *Room) IsEmpty() bool {
	return len(r.members) == 0
}

// AssignTeam 所有 player_id 匹配的成员都改队伍，返回修改的数量
func (r *Room) AssignTeam(playerID, team entity.Ident) int {
	changed := 0
	for _, connID := range r.order {
		player := r.members[connID]
		if player.PlayerID.Equal(playerID) {
			player.Team = team
			changed++
		}
	}
	return changed
}

// Players 按顺序返回成员副本
func (r *Room) Players() []*entity.Player {
	players := make([]*entity.Player, 0, len(r.order))
	for _, connID := range r.order {
		players = append(players, r.members[connID].Clone())
	}
	return players
}

func (r *Room) dropOrder(connID string) {
	if i := slices.Index(r.order, connID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}
