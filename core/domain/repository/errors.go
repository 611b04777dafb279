package repository

import "errors"

var (
	// 房间快照相关错误
	ErrRoomNotFound = errors.New("room not found")
)
