package game

import "time"

// LoadInfo 负载信息
// 用于计算 connector 节点的综合负载评分
type LoadInfo struct {
	Rooms       int       `json:"rooms"`       // 当前房间数
	Players     int       `json:"players"`     // 当前在房间里的玩家数
	Games       int       `json:"games"`       // 有游戏状态的房间数
	CPUUsage    float64   `json:"cpuUsage"`    // CPU 使用率（0-100）
	MemUsage    float64   `json:"memUsage"`    // 内存使用率（0-100）
	Load        float64   `json:"load"`        // 综合评分
	CollectedAt time.Time `json:"collectedAt"`
}

// CalculateLoad 计算综合负载评分
// 权重：CPU 30%、内存 20%、房间数 25%、玩家数 25%
// 房间数按 1000、玩家数按 10000 归一化，返回值越小表示负载越低
func (li *LoadInfo) CalculateLoad() float64 {
	normalizedRooms := float64(li.Rooms) / 1000.0
	if normalizedRooms > 1.0 {
		normalizedRooms = 1.0
	}

	normalizedPlayers := float64(li.Players) / 10000.0
	if normalizedPlayers > 1.0 {
		normalizedPlayers = 1.0
	}

	return li.CPUUsage*0.3 + li.MemUsage*0.2 + normalizedRooms*100*0.25 + normalizedPlayers*100*0.25
}
