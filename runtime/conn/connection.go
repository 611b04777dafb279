package conn

import (
	"sync"
	"time"

	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/runtime/dto"

	"github.com/gorilla/websocket"
)

// LongConnection 一条 websocket 长连接
// 读协程负责解析入站帧，写协程负责出站和心跳
type LongConnection struct {
	ConnID    string
	Conn      *websocket.Conn
	worker    *Worker
	WriteChan chan []byte
	Session   *Session
	closeChan chan struct{}
	closeOnce sync.Once

	pongWait       time.Duration
	writeWait      time.Duration
	pingInterval   time.Duration
	maxMessageSize int64
}

func newLongConnection(connID string, conn *websocket.Conn, worker *Worker) *LongConnection {
	pongWait := worker.pongWait
	return &LongConnection{
		ConnID:         connID,
		Conn:           conn,
		worker:         worker,
		WriteChan:      make(chan []byte, worker.sendBuffer),
		Session:        NewSession(connID),
		closeChan:      make(chan struct{}),
		pongWait:       pongWait,
		writeWait:      worker.writeWait,
		pingInterval:   (pongWait * 9) / 10,
		maxMessageSize: worker.maxMessageSize,
	}
}

func (con *LongConnection) Run() {
	con.Conn.SetPongHandler(con.PongHandler)
	go con.readMessage()
	go con.writeMessage()
}

func (con *LongConnection) writeMessage() {
	pingTicker := time.NewTicker(con.pingInterval)
	defer func() {
		pingTicker.Stop()
		con.Close()
	}()

	for {
		select {
		case message := <-con.WriteChan:
			if err := con.Conn.SetWriteDeadline(time.Now().Add(con.writeWait)); err != nil {
				log.Error("客户端[%s] SetWriteDeadline err :%+v", con.ConnID, err)
				return
			}
			if err := con.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("客户端[%s] write stream err :%+v", con.ConnID, err)
				return
			}
		case <-pingTicker.C:
			if err := con.Conn.SetWriteDeadline(time.Now().Add(con.writeWait)); err != nil {
				log.Error("客户端[%s] ping SetWriteDeadline err :%+v", con.ConnID, err)
				return
			}
			if err := con.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("客户端[%s] ping err :%+v", con.ConnID, err)
				return
			}
		case <-con.closeChan:
			log.Debug("客户端[%s] writeMessage stopped", con.ConnID)
			return
		}
	}
}

// readMessage 读协程退出即视为断线，由 worker 统一清理并通知房间
func (con *LongConnection) readMessage() {
	defer func() {
		log.Debug("客户端[%s] 读协程停止", con.ConnID)
		con.worker.removeClient(con)
	}()
	con.Conn.SetReadLimit(con.maxMessageSize)
	if err := con.Conn.SetReadDeadline(time.Now().Add(con.pongWait)); err != nil {
		log.Error("客户端[%s] SetReadDeadline err:%v", con.ConnID, err)
		return
	}
	for {
		messageType, message, err := con.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("客户端[%s] 异常断开: %v", con.ConnID, err)
			}
			return
		}
		// 任何入站消息都说明连接还活着
		_ = con.Conn.SetReadDeadline(time.Now().Add(con.pongWait))
		con.worker.handleFrame(con, messageType, message)
	}
}

func (con *LongConnection) PongHandler(string) error {
	return con.Conn.SetReadDeadline(time.Now().Add(con.pongWait))
}

// SendMessage 非阻塞写入，缓冲区满时丢弃
func (con *LongConnection) SendMessage(buf []byte) error {
	select {
	case <-con.closeChan:
		return dto.ErrConnectionClosed
	default:
	}
	select {
	case con.WriteChan <- buf:
		return nil
	default:
		return dto.ErrSendChanFull
	}
}

func (con *LongConnection) Close() {
	//确保只执行一次
	con.closeOnce.Do(func() {
		close(con.closeChan)
		if con.Conn != nil {
			deadline := time.Now().Add(time.Second)
			_ = con.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = con.Conn.Close()
		}
		if con.Session != nil {
			log.Info("客户端[%s] 连接关闭, remote=%s room=%s 在线 %v", con.ConnID,
				con.Session.RemoteAddr, con.Session.GetRoomCode(), time.Since(con.Session.ConnectedAt).Round(time.Second))
			con.Session.Close()
			return
		}
		log.Info("客户端[%s] 连接关闭", con.ConnID)
	})
}
