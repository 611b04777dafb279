package conn

import (
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/protocol"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/transfer"

	"github.com/gorilla/websocket"
)

// 帧解析失败时回给客户端的错误码
const codeInvalidFrame = "validation"

// handleFrame 读协程收到的一帧，文本帧和二进制帧都按 JSON 解析
func (w *Worker) handleFrame(con *LongConnection, messageType int, message []byte) {
	if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
		log.Warn("客户端[%s] 不支持的流类型 : %d", con.ConnID, messageType)
		return
	}

	env, err := protocol.Decode(message)
	if err != nil {
		atomic.AddInt64(&w.stats.messageErrors, 1)
		log.Warn("客户端[%s] 解码错误: %v", con.ConnID, err)
		w.sendTo(con, transfer.Error, &transfer.ErrorPush{
			Code:    codeInvalidFrame,
			Message: err.Error(),
		})
		return
	}
	atomic.AddInt64(&w.stats.messageProcessed, 1)
	log.Debug("客户端[%s] 收到事件 %s", con.ConnID, env.Event)

	if w.dispatcher == nil {
		log.Warn("connector worker 未注入 dispatcher，丢弃事件 %s", env.Event)
		return
	}
	w.dispatcher.Dispatch(con.ConnID, env)
}

// newOriginChecker 跨域白名单，包含 "*" 或者为空时放行所有来源
// 没有 Origin 头的请求（非浏览器客户端）直接放行
func newOriginChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
