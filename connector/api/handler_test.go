package api

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/namanjh/socket-huddlegames/common/http"
	"github.com/namanjh/socket-huddlegames/core/domain/entity"
	"github.com/namanjh/socket-huddlegames/core/domain/repository"
	"github.com/namanjh/socket-huddlegames/runtime/game"
)

type fakeRooms struct {
	rooms map[string]*entity.RoomSnapshot
	calls int
}

func (f *fakeRooms) Rooms(context.Context) ([]*entity.RoomSnapshot, error) {
	list := make([]*entity.RoomSnapshot, 0, len(f.rooms))
	for _, snapshot := range f.rooms {
		list = append(list, snapshot)
	}
	return list, nil
}

func (f *fakeRooms) Room(_ context.Context, roomCode string) (*entity.RoomSnapshot, error) {
	f.calls++
	snapshot, ok := f.rooms[roomCode]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return snapshot, nil
}

type fakeCache map[string]*entity.RoomSnapshot

func (f fakeCache) Get(roomCode string) (*entity.RoomSnapshot, bool) {
	snapshot, ok := f[roomCode]
	return snapshot, ok
}

type fakeLoad struct {
	info *game.LoadInfo
}

func (f *fakeLoad) Latest() *game.LoadInfo {
	return f.info
}

type fakeConns struct{}

func (fakeConns) Stats() map[string]int64 {
	return map[string]int64{"connections": 2}
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func newTestRouter(rooms *fakeRooms, cache SnapshotReader, load LoadReporter) *http.HttpServer {
	server := http.NewHttpServer(http.WithMode("test"))
	RegisterRoutes(server, NewHandler("connector", rooms, cache, load, fakeConns{}), "/socket", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusTeapot)
	})
	return server
}

func get(t *testing.T, server *http.HttpServer, path string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, path, nil))
	var body envelope
	if w.Code != nethttp.StatusTeapot {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("响应不是合法的 JSON: %s", w.Body.String())
		}
	}
	return w.Code, body
}

func snapshotOf(code string) *entity.RoomSnapshot {
	return &entity.RoomSnapshot{
		RoomCode: code,
		Players: []*entity.Player{
			{PlayerID: entity.NumberIdent(1), PlayerName: "Ann", SocketID: "A"},
		},
	}
}

func TestGetRoom(t *testing.T) {
	rooms := &fakeRooms{rooms: map[string]*entity.RoomSnapshot{"ABCD": snapshotOf("ABCD")}}
	server := newTestRouter(rooms, fakeCache{"CACHED": snapshotOf("CACHED")}, nil)

	status, body := get(t, server, "/rooms/CACHED")
	if status != nethttp.StatusOK || rooms.calls != 0 {
		t.Errorf("缓存命中时不应该查询事件循环: %d calls=%d", status, rooms.calls)
	}

	status, body = get(t, server, "/rooms/ABCD")
	if status != nethttp.StatusOK || rooms.calls != 1 {
		t.Fatalf("缓存未命中时应该查询事件循环: %d calls=%d", status, rooms.calls)
	}
	var snapshot entity.RoomSnapshot
	if err := json.Unmarshal(body.Data, &snapshot); err != nil || snapshot.RoomCode != "ABCD" || snapshot.PlayerCount() != 1 {
		t.Errorf("快照内容不符: %s", body.Data)
	}

	status, body = get(t, server, "/rooms/NOPE")
	if status != nethttp.StatusNotFound || body.Code != http.CodeNotFound {
		t.Errorf("不存在的房间期望 404, 实际 %d %+v", status, body)
	}
}

func TestListRooms(t *testing.T) {
	rooms := &fakeRooms{rooms: map[string]*entity.RoomSnapshot{
		"ABCD": snapshotOf("ABCD"),
		"EFGH": snapshotOf("EFGH"),
	}}
	server := newTestRouter(rooms, nil, nil)

	status, body := get(t, server, "/rooms")
	if status != nethttp.StatusOK {
		t.Fatalf("期望 200, 实际 %d", status)
	}
	var data struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(body.Data, &data)
	if data.Total != 2 {
		t.Errorf("房间总数期望 2, 实际 %d", data.Total)
	}
}

func TestHealth(t *testing.T) {
	load := &fakeLoad{}
	server := newTestRouter(&fakeRooms{}, nil, load)

	if status, _ := get(t, server, "/health"); status != nethttp.StatusServiceUnavailable {
		t.Errorf("没有采样时期望 503, 实际 %d", status)
	}

	load.info = &game.LoadInfo{Rooms: 3, Players: 7}
	status, body := get(t, server, "/health")
	if status != nethttp.StatusOK {
		t.Fatalf("期望 200, 实际 %d", status)
	}
	var health struct {
		Load        game.LoadInfo    `json:"load"`
		Connections map[string]int64 `json:"connections"`
	}
	_ = json.Unmarshal(body.Data, &health)
	if health.Load.Rooms != 3 || health.Load.Players != 7 {
		t.Errorf("负载数据不符: %+v", health.Load)
	}
	if health.Connections["connections"] != 2 {
		t.Errorf("连接计数不符: %v", health.Connections)
	}
}

func TestPingAndSocketRoute(t *testing.T) {
	server := newTestRouter(&fakeRooms{}, nil, nil)

	if status, body := get(t, server, "/ping"); status != nethttp.StatusOK || body.Code != http.CodeSuccess {
		t.Errorf("ping 期望成功, 实际 %d %+v", status, body)
	}
	if status, _ := get(t, server, "/socket"); status != nethttp.StatusTeapot {
		t.Errorf("长连接入口应该交给 ServeWS, 实际 %d", status)
	}
}
