package game

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/domain/entity"
	"github.com/namanjh/socket-huddlegames/core/domain/repository"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/protocol"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"
)

/*
	房间事件循环
	1.所有对注册表的读写都在同一个协程里，一次处理一个事件
	2.连接层的入站事件、断线通知，NATS 的开局请求，HTTP 的查询都投递到同一个队列
	3.单个事件 panic 只影响这个事件，循环继续处理后面的事件
*/

type task struct {
	event    string
	connID   string // 非空时，失败结果回给这个连接
	roomCode string
	fn       func() error
	done     chan error // 需要等待结果时非空
}

type Worker struct {
	Registry  *Registry
	transport Transport

	tasks     chan *task
	closeCh   chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewWorker 创建事件循环，buffer 为队列长度
func NewWorker(registry *Registry, transport Transport, buffer int) *Worker {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Worker{
		Registry:  registry,
		transport: transport,
		tasks:     make(chan *task, buffer),
		closeCh:   make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start 启动事件循环，ctx 取消或者 Close 后退出
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.loop(ctx)
		log.Info("Room Worker 启动成功")
	})
}

// Done 事件循环退出后关闭
func (w *Worker) Done() <-chan struct{} {
	return w.stopped
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.stopped)
	for {
		select {
		case <-ctx.Done():
			log.Info("Room Worker 收到停止信号，退出事件循环")
			return
		case <-w.closeCh:
			log.Info("Room Worker 已关闭，退出事件循环")
			return
		case t := <-w.tasks:
			w.handle(t)
		}
	}
}

func (w *Worker) handle(t *task) {
	err := w.execute(t)
	if err != nil {
		switch {
		case errors.Is(err, ErrInternalFault):
			log.Error("Room Worker 处理事件失败 %v", err)
		case errors.Is(err, repository.ErrRoomNotFound):
			// 查询未命中，交给调用方处理
		default:
			log.Warn("Room Worker 拒绝事件 %v", err)
		}
		if t.connID != "" {
			w.reportError(t.connID, t.event, err)
		}
	}
	if t.done != nil {
		t.done <- err
	}
}

// execute 执行单个任务，panic 转成 ErrInternalFault
func (w *Worker) execute(t *task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Room Worker 处理 %s 时 panic: %v\n%s", t.event, rec, debug.Stack())
			err = newEventError(t.event, t.roomCode, ErrInternalFault, "%v", rec)
		}
	}()
	return t.fn()
}

func (w *Worker) reportError(connID, event string, err error) {
	push := &transfer.ErrorPush{Event: event, Code: CodeOf(err), Message: err.Error()}
	var eventErr *EventError
	if errors.As(err, &eventErr) {
		push.Message = eventErr.Reason
	}
	w.transport.Send(connID, transfer.Error, push)
}

// enqueue 队列满时阻塞，保证事件不丢
func (w *Worker) enqueue(ctx context.Context, t *task) error {
	select {
	case w.tasks <- t:
		return nil
	case <-w.closeCh:
		return ErrWorkerClosed
	case <-w.stopped:
		return ErrWorkerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call 投递任务并等待结果
func (w *Worker) call(ctx context.Context, event, roomCode string, fn func() error) error {
	t := &task{event: event, roomCode: roomCode, fn: fn, done: make(chan error, 1)}
	if err := w.enqueue(ctx, t); err != nil {
		return err
	}
	select {
	case err := <-t.done:
		return err
	case <-w.stopped:
		return ErrWorkerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch 连接层收到的一帧，按事件名解析后投递
// 解析失败和未知事件直接回给发送者，不进入事件循环
func (w *Worker) Dispatch(connID string, env *protocol.Envelope) {
	if env == nil {
		return
	}
	t, err := w.decode(connID, env)
	if err != nil {
		log.Warn("Room Worker 拒绝连接 %s 的事件: %v", connID, err)
		w.reportError(connID, env.Event, err)
		return
	}
	if err := w.enqueue(context.Background(), t); err != nil {
		log.Warn("Room Worker 投递事件 %s 失败: %v", env.Event, err)
	}
}

func (w *Worker) decode(connID string, env *protocol.Envelope) (*task, error) {
	t := &task{event: env.Event, connID: connID}
	switch env.Event {
	case transfer.JoinRoom:
		var req transfer.JoinRoomRequest
		if err := env.Bind(&req); err != nil {
			return nil, newEventError(env.Event, "", ErrValidation, "%v", err)
		}
		t.roomCode = req.RoomCode
		t.fn = func() error { return w.Registry.Join(connID, req.RoomCode, req.Player) }
	case transfer.StartGame:
		var req transfer.StartGameRequest
		if err := env.Bind(&req); err != nil {
			return nil, newEventError(env.Event, "", ErrValidation, "%v", err)
		}
		t.roomCode = req.RoomCode
		t.fn = func() error { return w.Registry.StartGame(req.RoomCode, req.GameSlug) }
	case transfer.TeamsAssigned:
		var req transfer.TeamsAssignedRequest
		if err := env.Bind(&req); err != nil {
			return nil, newEventError(env.Event, "", ErrValidation, "%v", err)
		}
		t.roomCode = req.RoomCode
		t.fn = func() error { return w.Registry.TeamsAssigned(req.RoomCode, req.Players) }
	default:
		return nil, newEventError(env.Event, "", ErrValidation, "unsupported event %q", env.Event)
	}
	return t, nil
}

// Disconnect 连接断开通知
func (w *Worker) Disconnect(connID string) {
	t := &task{
		event: "disconnect",
		fn:    func() error { return w.Registry.Disconnect(connID) },
	}
	if err := w.enqueue(context.Background(), t); err != nil {
		log.Warn("Room Worker 投递断线 %s 失败: %v", connID, err)
	}
}

// StartGame 控制面（NATS）开局，等待结果
func (w *Worker) StartGame(ctx context.Context, roomCode, gameSlug string) error {
	return w.call(ctx, transfer.StartGame, roomCode, func() error {
		return w.Registry.StartGame(roomCode, gameSlug)
	})
}

// Rooms 所有房间快照
func (w *Worker) Rooms(ctx context.Context) ([]*entity.RoomSnapshot, error) {
	var snapshots []*entity.RoomSnapshot
	err := w.call(ctx, "rooms", "", func() error {
		snapshots = w.Registry.Snapshots()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Room 单个房间快照，不存在返回 repository.ErrRoomNotFound
func (w *Worker) Room(ctx context.Context, roomCode string) (*entity.RoomSnapshot, error) {
	var snapshot *entity.RoomSnapshot
	err := w.call(ctx, "room", roomCode, func() error {
		found, exists := w.Registry.Snapshot(roomCode)
		if !exists {
			return fmt.Errorf("%s: %w", roomCode, repository.ErrRoomNotFound)
		}
		snapshot = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (w *Worker) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := w.call(ctx, "stats", "", func() error {
		stats = w.Registry.Stats()
		return nil
	})
	return stats, err
}

// Close 停止事件循环，队列里剩下的事件丢弃
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.closeCh)
		log.Info("Room Worker 已关闭")
	})
}
