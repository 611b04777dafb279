package conn

import (
	"errors"
	"hash/fnv"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/namanjh/socket-huddlegames/common/config"
	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/common/utils"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/protocol"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"
	"github.com/namanjh/socket-huddlegames/runtime/dto"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

/*
长连接网关职责：
 1. 连接事件：处理长连接的生命周期、读写事件，每个连接分配一个 UUID 作为 socket_id
 2. 房间分组：按房间号维护连接分组，提供广播和单发
 3. 入站事件：解析客户端帧后交给 Dispatcher（房间事件循环）
 4. 断线通知：每个连接只通知一次，之后不会再有这个连接的事件
*/

// Dispatcher 入站事件的接收方
type Dispatcher interface {
	Dispatch(connID string, env *protocol.Envelope)
	Disconnect(connID string)
}

type ClientBucket struct {
	sync.RWMutex
	clients map[string]*LongConnection
}

func NewClientBucket() *ClientBucket {
	return &ClientBucket{
		clients: make(map[string]*LongConnection),
	}
}

type WorkerOption func(worker *Worker)

// WithRateLimiter 新建连接限流
func WithRateLimiter(limiter *utils.RateLimiter) WorkerOption {
	return func(w *Worker) {
		w.ConnectionRateLimiter = limiter
	}
}

// WithDispatcher 也可以在启动前通过 SetDispatcher 注入
func WithDispatcher(dispatcher Dispatcher) WorkerOption {
	return func(w *Worker) {
		w.dispatcher = dispatcher
	}
}

type Worker struct {
	websocketUpgrade      *websocket.Upgrader
	ConnectionRateLimiter *utils.RateLimiter
	dispatcher            Dispatcher

	clientBuckets []*ClientBucket
	bucketMask    uint32
	connSemaphore chan struct{} // 连接信号量

	groupLock  sync.RWMutex
	groups     map[string]map[string]struct{} // roomCode -> connIDs
	connGroups map[string]map[string]struct{} // connID -> roomCodes

	sendBuffer     int
	pongWait       time.Duration
	writeWait      time.Duration
	maxMessageSize int64

	stats struct {
		currentConnections int32
		messageProcessed   int64
		messageErrors      int64
		messageDropped     int64
	}
	closed atomic.Bool
}

func NewWorker(socketConf config.SocketConf, corsConf config.CorsConf, opts ...WorkerOption) *Worker {
	bucketCount := 32
	maxConnections := socketConf.MaxConnections
	if maxConnections <= 0 {
		maxConnections = 100000
	}
	sendBuffer := socketConf.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	pongWait := time.Duration(socketConf.PongWait) * time.Second
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	writeWait := time.Duration(socketConf.WriteWait) * time.Second
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	maxMessageSize := socketConf.MaxMessageSize
	if maxMessageSize <= 0 {
		maxMessageSize = 64 * 1024
	}

	w := &Worker{
		bucketMask:     uint32(bucketCount - 1),
		connSemaphore:  make(chan struct{}, maxConnections),
		groups:         make(map[string]map[string]struct{}),
		connGroups:     make(map[string]map[string]struct{}),
		sendBuffer:     sendBuffer,
		pongWait:       pongWait,
		writeWait:      writeWait,
		maxMessageSize: maxMessageSize,
	}
	for _, opt := range opts {
		opt(w)
	}

	// 初始化客户端分片
	w.clientBuckets = make([]*ClientBucket, bucketCount)
	for i := range bucketCount {
		w.clientBuckets[i] = NewClientBucket()
	}

	w.websocketUpgrade = &websocket.Upgrader{
		CheckOrigin:     newOriginChecker(corsConf.AllowOrigins),
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return w
}

// SetDispatcher 必须在 ServeWS 之前调用
func (w *Worker) SetDispatcher(dispatcher Dispatcher) {
	w.dispatcher = dispatcher
}

// ServeWS websocket 升级入口
func (w *Worker) ServeWS(writer http.ResponseWriter, r *http.Request) {
	if w.closed.Load() {
		http.Error(writer, dto.ErrShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}
	if !w.ConnectionRateLimiter.Allow() {
		http.Error(writer, dto.ErrRateLimited.Error(), http.StatusTooManyRequests)
		log.Warn("连接速率限流 exceeded from %s", r.RemoteAddr)
		return
	}
	select {
	case w.connSemaphore <- struct{}{}:
	default:
		http.Error(writer, dto.ErrAtCapacity.Error(), http.StatusServiceUnavailable)
		log.Warn("连接达到阈值 %s", r.RemoteAddr)
		return
	}

	header := http.Header{}
	header.Add("Server", "huddle-connector")
	log.Debug("WebSocket connection attempt from %s, User-Agent: %s", r.RemoteAddr, r.UserAgent())

	conn, err := w.websocketUpgrade.Upgrade(writer, r, header)
	if err != nil {
		<-w.connSemaphore
		log.Warn("websocket 升级失败, remote=%s err:%v", r.RemoteAddr, err)
		return
	}

	client := newLongConnection(uuid.NewString(), conn, w)
	client.Session.RemoteAddr = r.RemoteAddr
	w.addClient(client)

	// connected 一定是这个连接收到的第一条消息
	w.sendTo(client, transfer.Connected, &transfer.ConnectedPush{SocketID: client.ConnID})
	client.Run()
	log.Info("WebSocket 建立连接: connID=%s, remote=%s", client.ConnID, r.RemoteAddr)
}

func (w *Worker) addClient(client *LongConnection) {
	bucket := w.getBucket(client.ConnID)
	bucket.Lock()
	bucket.clients[client.ConnID] = client
	bucket.Unlock()
	atomic.AddInt32(&w.stats.currentConnections, 1)
}

// removeClient 只有第一次调用生效，保证断线通知只发一次
func (w *Worker) removeClient(con *LongConnection) {
	bucket := w.getBucket(con.ConnID)
	removed := false

	bucket.Lock()
	if _, ok := bucket.clients[con.ConnID]; ok {
		delete(bucket.clients, con.ConnID)
		removed = true
	}
	bucket.Unlock()

	if !removed {
		return
	}

	w.purgeGroups(con.ConnID)
	con.Close()

	select {
	case <-w.connSemaphore:
	default:
	}
	atomic.AddInt32(&w.stats.currentConnections, -1)

	if w.dispatcher != nil {
		w.dispatcher.Disconnect(con.ConnID)
	}
}

func (w *Worker) getClient(connID string) (*LongConnection, bool) {
	bucket := w.getBucket(connID)
	bucket.RLock()
	client, ok := bucket.clients[connID]
	bucket.RUnlock()
	return client, ok
}

func (w *Worker) getBucket(connID string) *ClientBucket {
	hash := fnv32(connID)
	index := hash & w.bucketMask
	return w.clientBuckets[index]
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// Subscribe 把连接加入房间分组，已断开的连接忽略
func (w *Worker) Subscribe(connID, roomCode string) {
	client, ok := w.getClient(connID)
	if !ok {
		log.Debug("Subscribe 连接 %s 已断开，忽略", connID)
		return
	}

	w.groupLock.Lock()
	members, ok := w.groups[roomCode]
	if !ok {
		members = make(map[string]struct{})
		w.groups[roomCode] = members
	}
	members[connID] = struct{}{}
	rooms, ok := w.connGroups[connID]
	if !ok {
		rooms = make(map[string]struct{})
		w.connGroups[connID] = rooms
	}
	rooms[roomCode] = struct{}{}
	w.groupLock.Unlock()

	client.Session.SetRoomCode(roomCode)
}

func (w *Worker) Unsubscribe(connID, roomCode string) {
	w.groupLock.Lock()
	w.unsubscribeLocked(connID, roomCode)
	w.groupLock.Unlock()

	if client, ok := w.getClient(connID); ok && client.Session.GetRoomCode() == roomCode {
		client.Session.SetRoomCode("")
	}
}

func (w *Worker) unsubscribeLocked(connID, roomCode string) {
	if members, ok := w.groups[roomCode]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(w.groups, roomCode)
		}
	}
	if rooms, ok := w.connGroups[connID]; ok {
		delete(rooms, roomCode)
		if len(rooms) == 0 {
			delete(w.connGroups, connID)
		}
	}
}

func (w *Worker) purgeGroups(connID string) {
	w.groupLock.Lock()
	defer w.groupLock.Unlock()
	for roomCode := range w.connGroups[connID] {
		w.unsubscribeLocked(connID, roomCode)
	}
}

// Broadcast 编码一次，逐个非阻塞写入，写满的连接丢弃这条消息
func (w *Worker) Broadcast(roomCode, event string, payload any) {
	buf, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error("Broadcast 编码错误, room=%s event=%s err:%v", roomCode, event, err)
		return
	}

	w.groupLock.RLock()
	members := make([]string, 0, len(w.groups[roomCode]))
	for connID := range w.groups[roomCode] {
		members = append(members, connID)
	}
	w.groupLock.RUnlock()

	for _, connID := range members {
		client, ok := w.getClient(connID)
		if !ok {
			continue
		}
		w.push(client, event, buf)
	}
	log.Debug("Broadcast room=%s event=%s 接收者 %d 个", roomCode, event, len(members))
}

// Send 单发给一个连接
func (w *Worker) Send(connID, event string, payload any) {
	client, ok := w.getClient(connID)
	if !ok {
		log.Debug("Send 连接 %s 不存在, event=%s", connID, event)
		return
	}
	w.sendTo(client, event, payload)
}

func (w *Worker) sendTo(client *LongConnection, event string, payload any) {
	buf, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error("Send 编码错误, event=%s err:%v", event, err)
		return
	}
	w.push(client, event, buf)
}

func (w *Worker) push(client *LongConnection, event string, buf []byte) {
	if err := client.SendMessage(buf); err != nil {
		if errors.Is(err, dto.ErrSendChanFull) {
			atomic.AddInt64(&w.stats.messageDropped, 1)
			log.Warn("客户端[%s] 发送缓冲区已满，丢弃 %s", client.ConnID, event)
		}
	}
}

// Members 房间分组里的连接数
func (w *Worker) Members(roomCode string) int {
	w.groupLock.RLock()
	defer w.groupLock.RUnlock()
	return len(w.groups[roomCode])
}

func (w *Worker) ConnectionCount() int {
	return int(atomic.LoadInt32(&w.stats.currentConnections))
}

// Stats 连接层计数
func (w *Worker) Stats() map[string]int64 {
	return map[string]int64{
		"connections":        int64(atomic.LoadInt32(&w.stats.currentConnections)),
		"messages_processed": atomic.LoadInt64(&w.stats.messageProcessed),
		"message_errors":     atomic.LoadInt64(&w.stats.messageErrors),
		"messages_dropped":   atomic.LoadInt64(&w.stats.messageDropped),
	}
}

// Close 拒绝新连接并关闭所有连接，断线通知照常发出
func (w *Worker) Close() {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	var clients []*LongConnection
	for _, bucket := range w.clientBuckets {
		bucket.RLock()
		for _, client := range bucket.clients {
			clients = append(clients, client)
		}
		bucket.RUnlock()
	}
	for _, client := range clients {
		client.Close()
	}
	log.Info("connector worker 已关闭 %d 个连接", len(clients))
}
