package dto

import "errors"

// 连接相关错误
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendChanFull     = errors.New("send channel full")
	ErrAtCapacity       = errors.New("server is at capacity")
	ErrRateLimited      = errors.New("too many connections")
	ErrShuttingDown     = errors.New("server is shutting down")
)
