package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/domain/entity"
	"github.com/namanjh/socket-huddlegames/core/domain/repository"
)

const mirrorWriteTimeout = 3 * time.Second

// mirrorOp snapshot 为空表示删除
type mirrorOp struct {
	roomCode string
	snapshot *entity.RoomSnapshot
}

// RoomMirror 注册表观察者，异步把房间快照写到仓储
// 队列满时丢弃写入，不阻塞事件循环
type RoomMirror struct {
	repo      repository.RoomSnapshotRepository
	ttl       time.Duration
	queue     chan mirrorOp
	closeCh   chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

func NewRoomMirror(repo repository.RoomSnapshotRepository, ttl time.Duration, queueSize int) *RoomMirror {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &RoomMirror{
		repo:    repo,
		ttl:     ttl,
		queue:   make(chan mirrorOp, queueSize),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (m *RoomMirror) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

func (m *RoomMirror) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case op := <-m.queue:
			m.apply(ctx, op)
		case <-ctx.Done():
			return
		case <-m.closeCh:
			// 关闭前把队列里剩下的写完
			for {
				select {
				case op := <-m.queue:
					m.apply(ctx, op)
				default:
					return
				}
			}
		}
	}
}

func (m *RoomMirror) apply(ctx context.Context, op mirrorOp) {
	writeCtx, cancel := context.WithTimeout(ctx, mirrorWriteTimeout)
	defer cancel()
	if op.snapshot == nil {
		if err := m.repo.DeleteSnapshot(writeCtx, op.roomCode); err != nil {
			log.Warn("RoomMirror 删除房间 %s 失败: %v", op.roomCode, err)
		}
		return
	}
	if err := m.repo.SaveSnapshot(writeCtx, op.snapshot, m.ttl); err != nil {
		log.Warn("RoomMirror 保存房间 %s 失败: %v", op.roomCode, err)
	}
}

func (m *RoomMirror) enqueue(op mirrorOp) {
	select {
	case <-m.closeCh:
		return
	default:
	}
	select {
	case m.queue <- op:
	default:
		log.Warn("RoomMirror 队列已满，丢弃房间 %s 的写入", op.roomCode)
	}
}

func (m *RoomMirror) OnRoomUpdated(snapshot *entity.RoomSnapshot) {
	m.enqueue(mirrorOp{roomCode: snapshot.RoomCode, snapshot: snapshot})
}

func (m *RoomMirror) OnRoomRemoved(roomCode string) {
	m.enqueue(mirrorOp{roomCode: roomCode})
}

// Close 写完队列后返回，Start 之前调用直接返回
func (m *RoomMirror) Close() {
	m.closeOnce.Do(func() {
		close(m.closeCh)
	})
	started := true
	m.startOnce.Do(func() { started = false })
	if started {
		<-m.done
	}
}
