package game

import (
	"errors"
	"fmt"
)

// 事件处理结果的分类
var (
	ErrValidation    = errors.New("validation failed")
	ErrUnknownRoom   = errors.New("unknown room")
	ErrInternalFault = errors.New("internal fault")
)

var ErrWorkerClosed = errors.New("room worker closed")

// 回给客户端的错误码
const (
	CodeValidation  = "validation"
	CodeUnknownRoom = "unknown-room"
	CodeInternal    = "internal"
)

// EventError 一个入站事件被拒绝或处理失败
type EventError struct {
	Event    string
	RoomCode string
	Kind     error // ErrValidation / ErrUnknownRoom / ErrInternalFault
	Reason   string
}

func newEventError(event, roomCode string, kind error, format string, args ...any) *EventError {
	return &EventError{
		Event:    event,
		RoomCode: roomCode,
		Kind:     kind,
		Reason:   fmt.Sprintf(format, args...),
	}
}

func (e *EventError) Error() string {
	if e.RoomCode == "" {
		return fmt.Sprintf("%s: %v: %s", e.Event, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s[%s]: %v: %s", e.Event, e.RoomCode, e.Kind, e.Reason)
}

func (e *EventError) Unwrap() error {
	return e.Kind
}

// Code 对应的错误码
func (e *EventError) Code() string {
	return CodeOf(e.Kind)
}

// CodeOf 任意错误映射到错误码，无法识别的都算 internal
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrUnknownRoom):
		return CodeUnknownRoom
	default:
		return CodeInternal
	}
}
