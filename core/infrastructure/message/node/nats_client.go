package node

import (
	"github.com/namanjh/socket-huddlegames/common/log"

	"github.com/nats-io/nats.go"
)

type Client interface {
	Run(string) error
	SendMessage(string, []byte) error
	Close() error
}

// NatsClient 订阅一个 topic，收到的消息写入 readChan
type NatsClient struct {
	topic    string
	conn     *nats.Conn
	sub      *nats.Subscription
	readChan chan []byte
}

func NewNatsClient(topic string, readChan chan []byte) *NatsClient {
	return &NatsClient{
		topic:    topic,
		readChan: readChan,
	}
}

func (nc *NatsClient) IsConnected() bool {
	return nc.conn != nil && nc.conn.IsConnected()
}

func (nc *NatsClient) Run(url string) error {
	log.Info("nats 服务正在启动, url:%s", url)
	var err error
	nc.conn, err = nats.Connect(url,
		nats.Name("huddle-connector"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats 连接断开: %v", err)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info("nats 重连成功: %s", conn.ConnectedUrl())
		}),
	)
	if err != nil {
		log.Error("nats 连接错误,err:%v", err)
		return err
	}
	if err := nc.Subscribe(); err != nil {
		nc.conn.Close()
		return err
	}

	log.Info("nats 服务启动成功, url:%s, topic:%s", url, nc.topic)
	return nil
}

func (nc *NatsClient) Subscribe() error {
	sub, err := nc.conn.Subscribe(nc.topic, func(message *nats.Msg) {
		select {
		case nc.readChan <- message.Data:
		default:
			log.Warn("nats readChan 已满，丢弃 topic=%s 的消息", nc.topic)
		}
	})
	if err != nil {
		log.Error("nats sub err:%v", err)
		return err
	}
	nc.sub = sub
	return nil
}

func (nc *NatsClient) Close() error {
	if nc.conn == nil {
		return nil
	}
	// Drain 会把已收到的消息处理完再关闭
	if err := nc.conn.Drain(); err != nil {
		nc.conn.Close()
	}
	log.Info("NATS 连接已关闭")
	return nil
}

func (nc *NatsClient) SendMessage(subject string, data []byte) error {
	if !nc.IsConnected() {
		return ErrNotConnected
	}
	return nc.conn.Publish(subject, data)
}
