package conn

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/namanjh/socket-huddlegames/common/config"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/protocol"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"

	"github.com/gorilla/websocket"
)

type dispatched struct {
	connID string
	env    *protocol.Envelope
}

type fakeDispatcher struct {
	events      chan dispatched
	disconnects chan string
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		events:      make(chan dispatched, 16),
		disconnects: make(chan string, 16),
	}
}

func (d *fakeDispatcher) Dispatch(connID string, env *protocol.Envelope) {
	d.events <- dispatched{connID: connID, env: env}
}

func (d *fakeDispatcher) Disconnect(connID string) {
	d.disconnects <- connID
}

func testSocketConf() config.SocketConf {
	return config.SocketConf{
		Path:           "/socket",
		MaxConnections: 8,
		SendBuffer:     16,
		PongWait:       60,
		WriteWait:      10,
		MaxMessageSize: 4096,
	}
}

func newTestServer(t *testing.T, socketConf config.SocketConf) (*Worker, *fakeDispatcher, string) {
	t.Helper()
	dispatcher := newFakeDispatcher()
	w := NewWorker(socketConf, config.CorsConf{AllowOrigins: []string{"*"}}, WithDispatcher(dispatcher))
	srv := httptest.NewServer(http.HandlerFunc(w.ServeWS))
	t.Cleanup(func() {
		w.Close()
		srv.Close()
	})
	return w, dispatcher, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("连接失败: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readEnvelope(t *testing.T, c *websocket.Conn) *protocol.Envelope {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("读取消息失败: %v", err)
	}
	env, err := protocol.Decode(message)
	if err != nil {
		t.Fatalf("解析消息失败: %v", err)
	}
	return env
}

func readConnected(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	env := readEnvelope(t, c)
	if env.Event != transfer.Connected {
		t.Fatalf("第一条消息期望 connected, 实际 %s", env.Event)
	}
	var push transfer.ConnectedPush
	if err := json.Unmarshal(env.Data, &push); err != nil || push.SocketID == "" {
		t.Fatalf("connected 缺少 socket_id: %s", env.Data)
	}
	return push.SocketID
}

func waitDisconnect(t *testing.T, d *fakeDispatcher) string {
	t.Helper()
	select {
	case connID := <-d.disconnects:
		return connID
	case <-time.After(2 * time.Second):
		t.Fatalf("没有收到断线通知")
		return ""
	}
}

func TestWorkerDispatchesFrames(t *testing.T) {
	_, dispatcher, url := newTestServer(t, testSocketConf())
	c := dial(t, url)
	socketID := readConnected(t, c)

	frame := `["join-room",{"roomCode":"ABCD","player":{"player_id":1,"player_name":"Ann"}}]`
	if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	select {
	case got := <-dispatcher.events:
		if got.connID != socketID || got.env.Event != transfer.JoinRoom {
			t.Errorf("分发结果不符: %s %s", got.connID, got.env.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("没有收到分发的事件")
	}
}

func TestWorkerRepliesToMalformedFrames(t *testing.T) {
	_, dispatcher, url := newTestServer(t, testSocketConf())
	c := dial(t, url)
	readConnected(t, c)

	if err := c.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	env := readEnvelope(t, c)
	if env.Event != transfer.Error {
		t.Fatalf("期望 error 回执, 实际 %s", env.Event)
	}
	var push transfer.ErrorPush
	_ = json.Unmarshal(env.Data, &push)
	if push.Code != "validation" {
		t.Errorf("错误码期望 validation, 实际 %s", push.Code)
	}
	select {
	case got := <-dispatcher.events:
		t.Errorf("非法帧不应该分发: %+v", got)
	default:
	}
}

func TestWorkerBroadcastAndSend(t *testing.T) {
	w, _, url := newTestServer(t, testSocketConf())
	a := dial(t, url)
	idA := readConnected(t, a)
	b := dial(t, url)
	idB := readConnected(t, b)

	w.Subscribe(idA, "ABCD")
	w.Subscribe(idB, "ABCD")
	w.Subscribe("ghost", "ABCD")
	if w.Members("ABCD") != 2 {
		t.Fatalf("分组期望 2 人, 实际 %d", w.Members("ABCD"))
	}

	w.Broadcast("ABCD", transfer.GameStarted, &transfer.GameStartedPush{Message: transfer.GameStartedMessage, GameSlug: "trivia", Round: 1})
	for _, c := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, c)
		if env.Event != transfer.GameStarted || string(env.Data) != `{"message":"Game has started!","gameSlug":"trivia","round":1}` {
			t.Errorf("广播内容不符: %s %s", env.Event, env.Data)
		}
	}

	w.Unsubscribe(idA, "ABCD")
	w.Send(idA, transfer.Error, &transfer.ErrorPush{Event: "x", Code: "validation", Message: "m"})
	w.Broadcast("ABCD", transfer.PlayersUpdate, []string{})
	if env := readEnvelope(t, a); env.Event != transfer.Error {
		t.Errorf("A 退出分组后只应该收到单发, 实际 %s", env.Event)
	}
	if env := readEnvelope(t, b); env.Event != transfer.PlayersUpdate {
		t.Errorf("B 应该收到广播, 实际 %s", env.Event)
	}
}

func TestWorkerNotifiesDisconnectOnce(t *testing.T) {
	w, dispatcher, url := newTestServer(t, testSocketConf())
	c := dial(t, url)
	socketID := readConnected(t, c)
	w.Subscribe(socketID, "ABCD")

	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.Close()

	if got := waitDisconnect(t, dispatcher); got != socketID {
		t.Errorf("断线通知的连接期望 %s, 实际 %s", socketID, got)
	}
	if w.Members("ABCD") != 0 {
		t.Errorf("断线后应该退出所有分组")
	}
	if w.ConnectionCount() != 0 {
		t.Errorf("断线后连接数应该为 0, 实际 %d", w.ConnectionCount())
	}

	w.Close()
	select {
	case extra := <-dispatcher.disconnects:
		t.Errorf("断线通知只能发一次, 多出 %s", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWorkerCloseDisconnectsEveryone(t *testing.T) {
	w, dispatcher, url := newTestServer(t, testSocketConf())
	a := dial(t, url)
	readConnected(t, a)
	b := dial(t, url)
	readConnected(t, b)

	w.Close()
	seen := map[string]bool{}
	seen[waitDisconnect(t, dispatcher)] = true
	seen[waitDisconnect(t, dispatcher)] = true
	if len(seen) != 2 {
		t.Errorf("两个连接都应该收到断线通知: %v", seen)
	}

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("关闭后不应该接受新连接")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("关闭后期望 503")
	}
}

func TestWorkerCapacity(t *testing.T) {
	socketConf := testSocketConf()
	socketConf.MaxConnections = 1
	_, _, url := newTestServer(t, socketConf)

	c := dial(t, url)
	readConnected(t, c)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("超过上限的连接应该被拒绝")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("超过上限期望 503")
	}
}

func TestOriginChecker(t *testing.T) {
	check := newOriginChecker([]string{"https://huddle.games/"})
	cases := map[string]bool{
		"":                         true,
		"https://huddle.games":     true,
		"https://HUDDLE.games":     true,
		"https://evil.example":     false,
		"http://huddle.games:8080": false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/socket", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := check(r); got != want {
			t.Errorf("origin %q 期望 %v, 实际 %v", origin, want, got)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/socket", nil)
	r.Header.Set("Origin", "https://anything")
	if !newOriginChecker([]string{"*"})(r) || !newOriginChecker(nil)(r) {
		t.Errorf("* 和空列表应该放行所有来源")
	}
}
