package protocol

import "encoding/json"

type MessageType byte

const (
	Request MessageType = iota
	Response
	Push
)

// Message 节点之间（NATS）的消息体
type Message struct {
	Type  MessageType     `json:"type"`
	Route string          `json:"route"`
	Data  json.RawMessage `json:"data,omitempty"`
}
