package node

import "errors"

// 远程通信错误
var (
	ErrNotConnected  = errors.New("未连接到远程服务")
	ErrWriteChanFull = errors.New("writeChan 已满")
	ErrWorkerClosed  = errors.New("nats worker 已关闭")
)
