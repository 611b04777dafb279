package api

import (
	nethttp "net/http"

	"github.com/namanjh/socket-huddlegames/common/http"
)

// RegisterRoutes 注册查询接口和长连接入口
func RegisterRoutes(server *http.HttpServer, handler *Handler, socketPath string, serveWS nethttp.HandlerFunc) {
	server.GET("/ping", handler.Ping)
	server.GET("/health", handler.Health)

	server.GET("/rooms", handler.ListRooms)
	server.GET("/rooms/:code", handler.GetRoom)

	server.Handle(nethttp.MethodGet, socketPath, serveWS)
}
