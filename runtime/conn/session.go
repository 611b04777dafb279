package conn

import (
	"sync"
	"time"
)

// Session 连接级别的数据
type Session struct {
	sync.RWMutex
	ConnID      string
	RemoteAddr  string
	ConnectedAt time.Time
	roomCode    string
}

func NewSession(connID string) *Session {
	return &Session{
		ConnID:      connID,
		ConnectedAt: time.Now(),
	}
}

// SetRoomCode 记录连接当前订阅的房间分组，只给日志和排查用
func (s *Session) SetRoomCode(roomCode string) {
	s.Lock()
	s.roomCode = roomCode
	s.Unlock()
}

func (s *Session) GetRoomCode() string {
	s.RLock()
	defer s.RUnlock()
	return s.roomCode
}

func (s *Session) Close() {
	s.Lock()
	defer s.Unlock()
	s.roomCode = ""
}
