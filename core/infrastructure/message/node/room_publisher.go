package node

import (
	"encoding/json"

	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/domain/entity"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/protocol"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"
)

// RoomPublisher 注册表观察者，把房间变化推送到 <subject>.events
type RoomPublisher struct {
	worker  *NatsWorker
	nodeID  string
	subject string
}

func NewRoomPublisher(worker *NatsWorker, nodeID, subject string) *RoomPublisher {
	return &RoomPublisher{
		worker:  worker,
		nodeID:  nodeID,
		subject: subject,
	}
}

type roomRemovedBody struct {
	RoomCode string `json:"roomCode"`
}

func (p *RoomPublisher) OnRoomUpdated(snapshot *entity.RoomSnapshot) {
	p.publish(transfer.RoomUpdated, snapshot.RoomCode, snapshot)
}

func (p *RoomPublisher) OnRoomRemoved(roomCode string) {
	p.publish(transfer.RoomRemoved, roomCode, &roomRemovedBody{RoomCode: roomCode})
}

func (p *RoomPublisher) publish(route, roomCode string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Error("RoomPublisher 序列化房间 %s 失败: %v", roomCode, err)
		return
	}
	packet := &transfer.ServicePacket{
		Source:      p.nodeID,
		Destination: p.subject,
		Route:       route,
		Body: &protocol.Message{
			Type:  protocol.Push,
			Route: route,
			Data:  data,
		},
	}
	if err := p.worker.PushMessage(packet); err != nil {
		log.Warn("RoomPublisher 推送 %s 失败, room=%s err=%v", route, roomCode, err)
	}
}
