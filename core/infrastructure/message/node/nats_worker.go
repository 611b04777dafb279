package node

import (
	"encoding/json"
	"sync"

	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/protocol"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"
)

type LogicFunc func(message []byte) any
type SubscriberHandler map[string]LogicFunc

// NatsWorker 节点间通信
// 读协程按 Route 找处理器，Request 类型的结果回给 Source；写协程负责发送
type NatsWorker struct {
	NatsCli           Client
	readChan          chan []byte
	writeChan         chan *transfer.ServicePacket
	subscriberHandler SubscriberHandler
	closeCh           chan struct{}
	closeOnce         sync.Once
	wg                sync.WaitGroup
}

func NewNatsWorker() *NatsWorker {
	return &NatsWorker{
		readChan:          make(chan []byte, 1024),
		writeChan:         make(chan *transfer.ServicePacket, 1024),
		subscriberHandler: make(SubscriberHandler),
		closeCh:           make(chan struct{}),
	}
}

// Run
// url nats 服务的地址
// topic 本地订阅的 nats 频道
func (worker *NatsWorker) Run(url string, topic string) error {
	cli := NewNatsClient(topic, worker.readChan)
	if err := cli.Run(url); err != nil {
		return err
	}
	worker.start(cli)
	return nil
}

func (worker *NatsWorker) start(cli Client) {
	worker.NatsCli = cli
	worker.wg.Add(2)
	go worker.readChanMessage()
	go worker.writeChanMessage()
}

func (worker *NatsWorker) readChanMessage() {
	defer worker.wg.Done()
	for {
		select {
		case rawMessage := <-worker.readChan:
			worker.dispatch(rawMessage)
		case <-worker.closeCh:
			return
		}
	}
}

func (worker *NatsWorker) dispatch(rawMessage []byte) {
	var packet transfer.ServicePacket
	if err := json.Unmarshal(rawMessage, &packet); err != nil || packet.Body == nil {
		log.Warn("NatsWorker-节点通信 packet 解析错误: %s", rawMessage)
		return
	}
	route := packet.Route
	if route == "" {
		route = packet.Body.Route
	}
	handler := worker.subscriberHandler[route]
	if handler == nil {
		log.Warn("NatsWorker-不支持的路由类型: %s", route)
		return
	}

	// 处理器可能涉及 IO 操作，新开一个协程去处理
	go func() {
		result := handler(packet.Body.Data)
		if packet.Body.Type != protocol.Request || result == nil || packet.Source == "" {
			return
		}
		data, err := json.Marshal(result)
		if err != nil {
			log.Error("NatsWorker 响应序列化失败, route=%s err=%v", route, err)
			return
		}
		resp := &transfer.ServicePacket{
			Source:      packet.Destination,
			Destination: packet.Source,
			Route:       route,
			Body: &protocol.Message{
				Type:  protocol.Response,
				Route: route,
				Data:  data,
			},
		}
		if err := worker.PushMessage(resp); err != nil {
			log.Warn("NatsWorker 响应发送失败, route=%s err=%v", route, err)
		}
	}()
}

func (worker *NatsWorker) writeChanMessage() {
	defer worker.wg.Done()
	for {
		select {
		case message := <-worker.writeChan:
			worker.send(message)
		case <-worker.closeCh:
			// 关闭前把已经排队的消息发出去
			for {
				select {
				case message := <-worker.writeChan:
					worker.send(message)
				default:
					return
				}
			}
		}
	}
}

func (worker *NatsWorker) send(message *transfer.ServicePacket) {
	marshal, err := json.Marshal(message)
	if err != nil {
		log.Error("nats 序列化错误, route: %s, err: %v", message.Route, err)
		return
	}
	if err := worker.NatsCli.SendMessage(message.Destination, marshal); err != nil {
		log.Error("nats 发送错误, destination: %s, route: %s, err: %v", message.Destination, message.Route, err)
	}
}

func (worker *NatsWorker) Close() {
	worker.closeOnce.Do(func() {
		close(worker.closeCh)
		worker.wg.Wait()
		if worker.NatsCli != nil {
			_ = worker.NatsCli.Close()
		}
	})
}

// RegisterHandlers 必须在 Run 之前调用
func (worker *NatsWorker) RegisterHandlers(handlers SubscriberHandler) {
	worker.subscriberHandler = handlers
}

// PushMessage 主动推送消息
// 将消息写入 writeChan，由 writeChanMessage goroutine 自动发送
func (worker *NatsWorker) PushMessage(packet *transfer.ServicePacket) error {
	select {
	case <-worker.closeCh:
		return ErrWorkerClosed
	default:
	}
	select {
	case worker.writeChan <- packet:
		return nil
	default:
		return ErrWriteChanFull
	}
}
