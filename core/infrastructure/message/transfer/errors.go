package transfer

import "errors"

// 消息相关错误
var (
	ErrMessageUnmarshal = errors.New("message unmarshal error")
)
