package node

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/namanjh/socket-huddlegames/core/domain/entity"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/protocol"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"
)

type sentMessage struct {
	subject string
	packet  transfer.ServicePacket
}

// fakeClient 记录所有发出的消息
type fakeClient struct {
	sent chan sentMessage
}

func newFakeClient() *fakeClient {
	return &fakeClient{sent: make(chan sentMessage, 16)}
}

func (c *fakeClient) Run(string) error { return nil }

func (c *fakeClient) SendMessage(subject string, data []byte) error {
	var packet transfer.ServicePacket
	if err := json.Unmarshal(data, &packet); err != nil {
		return err
	}
	c.sent <- sentMessage{subject: subject, packet: packet}
	return nil
}

func (c *fakeClient) Close() error { return nil }

func (c *fakeClient) next(t *testing.T) sentMessage {
	t.Helper()
	select {
	case m := <-c.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("没有发出消息")
		return sentMessage{}
	}
}

type fakeStarter struct {
	err   error
	calls chan transfer.StartGameRequest
}

func (s *fakeStarter) StartGame(_ context.Context, roomCode, gameSlug string) error {
	s.calls <- transfer.StartGameRequest{RoomCode: roomCode, GameSlug: gameSlug}
	return s.err
}

func startTestWorker(t *testing.T, handlers SubscriberHandler) (*NatsWorker, *fakeClient) {
	t.Helper()
	cli := newFakeClient()
	worker := NewNatsWorker()
	worker.RegisterHandlers(handlers)
	worker.start(cli)
	t.Cleanup(worker.Close)
	return worker, cli
}

func requestPacket(t *testing.T, route string, body any) []byte {
	t.Helper()
	data, _ := json.Marshal(body)
	raw, err := json.Marshal(&transfer.ServicePacket{
		Source:      "lobby.reply",
		Destination: "huddle.control",
		Route:       route,
		Body:        &protocol.Message{Type: protocol.Request, Route: route, Data: data},
	})
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	return raw
}

func TestStartGameControlRoute(t *testing.T) {
	starter := &fakeStarter{calls: make(chan transfer.StartGameRequest, 1)}
	worker, cli := startTestWorker(t, ControlHandlers(starter))

	worker.readChan <- requestPacket(t, transfer.RoomStartGame, &transfer.StartGameRequest{RoomCode: "ABCD", GameSlug: "trivia"})

	call := <-starter.calls
	if call.RoomCode != "ABCD" || call.GameSlug != "trivia" {
		t.Errorf("开局参数不符: %+v", call)
	}
	resp := cli.next(t)
	if resp.subject != "lobby.reply" || resp.packet.Body.Type != protocol.Response {
		t.Fatalf("响应应该回给请求方: %s %+v", resp.subject, resp.packet.Body)
	}
	var body transfer.StartGameResponse
	_ = json.Unmarshal(resp.packet.Body.Data, &body)
	if !body.Success {
		t.Errorf("开局应该成功: %+v", body)
	}
}

func TestStartGameControlRouteFailure(t *testing.T) {
	starter := &fakeStarter{err: errors.New("unknown room"), calls: make(chan transfer.StartGameRequest, 1)}
	worker, cli := startTestWorker(t, ControlHandlers(starter))

	worker.readChan <- requestPacket(t, transfer.RoomStartGame, &transfer.StartGameRequest{RoomCode: "ABCD", GameSlug: "trivia"})
	<-starter.calls

	var body transfer.StartGameResponse
	_ = json.Unmarshal(cli.next(t).packet.Body.Data, &body)
	if body.Success || body.Message != "unknown room" {
		t.Errorf("失败时应该带上原因: %+v", body)
	}
}

func TestNatsWorkerIgnoresUnknownRoutes(t *testing.T) {
	worker, cli := startTestWorker(t, SubscriberHandler{})

	worker.readChan <- []byte(`not json`)
	worker.readChan <- requestPacket(t, "room.unknown", map[string]string{})

	select {
	case m := <-cli.sent:
		t.Errorf("未知路由不应该有响应: %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRoomPublisher(t *testing.T) {
	worker, cli := startTestWorker(t, SubscriberHandler{})
	publisher := NewRoomPublisher(worker, "connector-1", "huddle.events")

	publisher.OnRoomUpdated(&entity.RoomSnapshot{RoomCode: "ABCD", Players: []*entity.Player{}})
	publisher.OnRoomRemoved("ABCD")

	updated := cli.next(t)
	if updated.subject != "huddle.events" || updated.packet.Route != transfer.RoomUpdated {
		t.Errorf("更新事件不符: %s %s", updated.subject, updated.packet.Route)
	}
	if updated.packet.Source != "connector-1" || updated.packet.Body.Type != protocol.Push {
		t.Errorf("更新事件的来源或类型不符: %+v", updated.packet)
	}
	removed := cli.next(t)
	if removed.packet.Route != transfer.RoomRemoved || string(removed.packet.Body.Data) != `{"roomCode":"ABCD"}` {
		t.Errorf("删除事件不符: %s %s", removed.packet.Route, removed.packet.Body.Data)
	}
}

func TestPushMessageAfterClose(t *testing.T) {
	worker, _ := startTestWorker(t, SubscriberHandler{})
	worker.Close()
	if err := worker.PushMessage(&transfer.ServicePacket{}); !errors.Is(err, ErrWorkerClosed) {
		t.Errorf("关闭后期望 ErrWorkerClosed, 实际 %v", err)
	}
}
