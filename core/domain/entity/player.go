package entity

// Player 房间成员
// SocketID 由注册表在加入时写入，客户端传入的值会被覆盖
type Player struct {
	PlayerID   Ident  `json:"player_id"`
	PlayerName string `json:"player_name"`
	Team       Ident  `json:"team"`
	IsAdmin    bool   `json:"is_admin"`
	SocketID   string `json:"socket_id"`
}

// TeamAssignment teams-assigned 里的一项
type TeamAssignment struct {
	PlayerID Ident `json:"player_id"`
	Team     Ident `json:"team"`
}

// Clone 返回副本，广播和快照都只拿副本
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
