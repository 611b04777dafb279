package entity

// RoomSnapshot 房间只读副本，交给观察者和 HTTP 查询使用
type RoomSnapshot struct {
	RoomCode string     `json:"roomCode"`
	Players  []*Player  `json:"players"`
	Game     *GameState `json:"game,omitempty"`
}

// PlayerCount 成员数
func (s *RoomSnapshot) PlayerCount() int {
	if s == nil {
		return 0
	}
	return len(s.Players)
}
