package transfer

import (
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/protocol"
)

// ServicePacket 用于服务节点之间通信，有两层路由
// Destination 是 NATS subject，Route 是 subject 内的处理器
type ServicePacket struct {
	Body        *protocol.Message `json:"body"`
	Source      string            `json:"source"`
	Destination string            `json:"destination"`
	Route       string            `json:"route"`
}
