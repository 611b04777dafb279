package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidFrame = errors.New("invalid frame")

// Envelope 客户端和服务端之间的一帧
// 入站支持 {"event":"x","data":{...}} 和 ["x", {...}] 两种写法，出站统一用对象写法
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode 解析一帧，数组写法只取前两项，多余的参数忽略
func Decode(frame []byte) (*Envelope, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}

	var env Envelope
	switch frame[0] {
	case '{':
		if err := json.Unmarshal(frame, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(frame, &parts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("%w: empty array", ErrInvalidFrame)
		}
		if err := json.Unmarshal(parts[0], &env.Event); err != nil {
			return nil, fmt.Errorf("%w: event name must be a string", ErrInvalidFrame)
		}
		if len(parts) > 1 {
			env.Data = parts[1]
		}
	default:
		return nil, fmt.Errorf("%w: expected object or array", ErrInvalidFrame)
	}

	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrInvalidFrame)
	}
	return &env, nil
}

// Encode 编码出站帧
func Encode(event string, data any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrInvalidFrame)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(&Envelope{Event: event, Data: raw})
}

// Bind 把 data 解析到 v，没有 data 时视为非法
func (e *Envelope) Bind(v any) error {
	if len(e.Data) == 0 || bytes.Equal(e.Data, []byte("null")) {
		return fmt.Errorf("%w: %s carries no data", ErrInvalidFrame, e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFrame, e.Event, err)
	}
	return nil
}
